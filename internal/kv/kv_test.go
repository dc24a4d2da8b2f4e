package kv

import (
	"context"
	"path/filepath"
	"testing"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	ctx := context.Background()

	mem, err := OpenSQLite(ctx, "")
	if err != nil {
		t.Fatalf("OpenSQLite(memory) error = %v", err)
	}
	t.Cleanup(func() { mem.Close() })

	file, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "orgmail.db"))
	if err != nil {
		t.Fatalf("OpenSQLite(file) error = %v", err)
	}
	t.Cleanup(func() { file.Close() })

	return map[string]Backend{
		"memory":        NewMemory(),
		"sqlite-memory": mem,
		"sqlite-file":   file,
	}
}

func TestBackend_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := backend.Get(ctx, "orgmail:user"); err != nil || ok {
				t.Fatalf("Get(missing) = ok %v, err %v; want absent", ok, err)
			}

			if err := backend.Set(ctx, "orgmail:user", `{"name":"a"}`); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := backend.Set(ctx, "orgmail:user", `{"name":"b"}`); err != nil {
				t.Fatalf("Set(overwrite) error = %v", err)
			}
			value, ok, err := backend.Get(ctx, "orgmail:user")
			if err != nil || !ok {
				t.Fatalf("Get() = ok %v, err %v", ok, err)
			}
			if value != `{"name":"b"}` {
				t.Errorf("Get() = %q, want overwritten value", value)
			}

			if err := backend.Remove(ctx, "orgmail:user"); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
			if _, ok, _ := backend.Get(ctx, "orgmail:user"); ok {
				t.Error("key still present after Remove()")
			}
			if err := backend.Remove(ctx, "orgmail:user"); err != nil {
				t.Errorf("Remove(missing) error = %v", err)
			}
		})
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orgmail.db")

	first, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	if err := first.Set(ctx, "orgmail:incoming", "[]"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer second.Close()
	value, ok, err := second.Get(ctx, "orgmail:incoming")
	if err != nil || !ok || value != "[]" {
		t.Errorf("Get() after reopen = %q, %v, %v", value, ok, err)
	}
}

func TestNewKeys(t *testing.T) {
	keys := NewKeys("acme")
	if keys.User != "acme:user" || keys.Incoming != "acme:incoming" || keys.Outgoing != "acme:outgoing" || keys.Archived != "acme:archived" {
		t.Errorf("NewKeys(acme) = %+v", keys)
	}
	if NewKeys("").User != "orgmail:user" {
		t.Errorf("NewKeys(\"\") should default to the orgmail prefix")
	}
}
