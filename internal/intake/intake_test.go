package intake

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.io/infrasutra/orgmail/internal/imagepick"
	"github.io/infrasutra/orgmail/internal/store"
)

func newConverter(maxImage int) *Converter {
	c := NewConverter(imagepick.New(maxImage), slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return c
}

const plainMessage = "From: Budi Santoso <budi@example.com>\r\n" +
	"To: surat@org.example\r\n" +
	"Subject: Undangan Rapat\r\n" +
	"Date: Tue, 04 Mar 2025 10:00:00 +0700\r\n" +
	"Message-ID: <001-ORG-2025@example.com>\r\n" +
	"\r\n" +
	"Mohon hadir pada rapat.\r\n"

const multipartMessage = "From: sari@example.com\r\n" +
	"To: Kantor Pusat <pusat@example.com>\r\n" +
	"Subject: Laporan\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Terlampir scan surat.\r\n" +
	"--b1\r\n" +
	"Content-Type: image/png\r\n" +
	"Content-Disposition: attachment; filename=\"scan.png\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"aW1n\r\n" +
	"--b1--\r\n"

func TestConverter_Convert_Plain(t *testing.T) {
	rec, err := newConverter(0).Convert([]byte(plainMessage), store.Incoming)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	want := store.MailRecord{
		Type:    store.Incoming,
		Number:  "001-ORG-2025@example.com",
		Name:    "Budi Santoso",
		Subject: "Undangan Rapat",
		Date:    "2025-03-04",
		Notes:   "Mohon hadir pada rapat.",
	}
	if rec != want {
		t.Errorf("Convert() = %+v\nwant %+v", rec, want)
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("converted record invalid: %v", err)
	}
}

func TestConverter_Convert_MultipartWithImage(t *testing.T) {
	rec, err := newConverter(0).Convert([]byte(multipartMessage), store.Outgoing)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if rec.Name != "Kantor Pusat" {
		t.Errorf("Name = %q, want the To display name for outgoing", rec.Name)
	}
	if rec.Image != "data:image/png;base64,aW1n" {
		t.Errorf("Image = %q", rec.Image)
	}
	if rec.Notes != "Terlampir scan surat." {
		t.Errorf("Notes = %q", rec.Notes)
	}
	if rec.Date != "2025-06-01" {
		t.Errorf("Date = %q, want today when the header is missing", rec.Date)
	}
	if !strings.HasPrefix(rec.Number, "MSG-") {
		t.Errorf("Number = %q, want a generated number", rec.Number)
	}
}

func TestConverter_Convert_DropsOversizedImage(t *testing.T) {
	rec, err := newConverter(10).Convert([]byte(multipartMessage), store.Incoming)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if rec.Image != "" {
		t.Errorf("Image = %q, want dropped", rec.Image)
	}
	if rec.Name != "sari@example.com" {
		t.Errorf("Name = %q, want the bare From address", rec.Name)
	}
}

type recordingAdder struct {
	records []store.MailRecord
	failAt  int
}

func (a *recordingAdder) AddMail(_ context.Context, r store.MailRecord) (store.MailRecord, error) {
	if a.failAt > 0 && len(a.records)+1 == a.failAt {
		return store.MailRecord{}, errors.New("boom")
	}
	a.records = append(a.records, r)
	return r, nil
}

func mboxOf(messages ...string) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString("From sender@example.com Tue Mar  4 10:00:00 2025\n")
		b.WriteString(strings.ReplaceAll(m, "\r\n", "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func TestConverter_ImportMbox(t *testing.T) {
	adder := &recordingAdder{}
	n, err := newConverter(0).ImportMbox(context.Background(), strings.NewReader(mboxOf(plainMessage, multipartMessage)), store.Incoming, adder)
	if err != nil {
		t.Fatalf("ImportMbox() error = %v", err)
	}
	if n != 2 || len(adder.records) != 2 {
		t.Fatalf("imported %d (%d recorded), want 2", n, len(adder.records))
	}
	if adder.records[0].Subject != "Undangan Rapat" || adder.records[1].Subject != "Laporan" {
		t.Errorf("subjects = %q, %q", adder.records[0].Subject, adder.records[1].Subject)
	}
	for _, r := range adder.records {
		if r.Type != store.Incoming {
			t.Errorf("Type = %q, want incoming", r.Type)
		}
	}
}

func TestConverter_ImportMbox_StopsOnAddFailure(t *testing.T) {
	adder := &recordingAdder{failAt: 2}
	n, err := newConverter(0).ImportMbox(context.Background(), strings.NewReader(mboxOf(plainMessage, multipartMessage)), store.Incoming, adder)
	if err == nil {
		t.Fatal("ImportMbox() should report the add failure")
	}
	if n != 1 {
		t.Errorf("imported %d, want 1", n)
	}
}
