package sse

import "testing"

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	a, unsubA := h.Subscribe()
	b, unsubB := h.Subscribe()
	defer unsubB()

	h.Broadcast([]byte("x"))
	if got := string(<-a); got != "x" {
		t.Errorf("a got %q", got)
	}
	if got := string(<-b); got != "x" {
		t.Errorf("b got %q", got)
	}

	unsubA()
	unsubA()
	if _, ok := <-a; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	if n := h.Subscribers(); n != 1 {
		t.Errorf("Subscribers() = %d, want 1", n)
	}
}

func TestHub_DropsWhenSubscriberIsFull(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe()
	defer unsub()

	for i := 0; i < 20; i++ {
		h.Broadcast([]byte("x"))
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered %d events, want %d", len(ch), cap(ch))
	}
}

func TestEvent(t *testing.T) {
	got, err := Event("change", map[string]string{"op": "add"})
	if err != nil {
		t.Fatalf("Event() error = %v", err)
	}
	if string(got) != "event: change\ndata: {\"op\":\"add\"}\n\n" {
		t.Errorf("Event() = %q", got)
	}
}
