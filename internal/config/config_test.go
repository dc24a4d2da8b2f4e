package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_PORT", "DB_PATH", "KEY_PREFIX", "MAX_IMAGE_BYTES", "SMTP_ENABLED", "SHUTDOWN_TIMEOUT"} {
		t.Setenv(key, "")
	}
	// An empty DB_PATH is meaningful, so the default needs it unset.
	os.Unsetenv("DB_PATH")

	cfg := Load()
	if cfg.HTTPPort != 3025 {
		t.Errorf("HTTPPort = %d, want 3025", cfg.HTTPPort)
	}
	if cfg.DBPath != "orgmail.db" {
		t.Errorf("DBPath = %q, want orgmail.db", cfg.DBPath)
	}
	if cfg.KeyPrefix != "orgmail" {
		t.Errorf("KeyPrefix = %q, want orgmail", cfg.KeyPrefix)
	}
	if cfg.MaxImageBytes != 2<<20 {
		t.Errorf("MaxImageBytes = %d, want %d", cfg.MaxImageBytes, 2<<20)
	}
	if cfg.SMTPEnabled {
		t.Error("SMTPEnabled should default to false")
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_EmptyDBPathMeansInMemory(t *testing.T) {
	t.Setenv("DB_PATH", "  ")
	if cfg := Load(); cfg.DBPath != "" {
		t.Errorf("DBPath = %q, want empty for an in-memory database", cfg.DBPath)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", " 8080 ")
	t.Setenv("KEY_PREFIX", "acme")
	t.Setenv("SMTP_ENABLED", "true")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("MAX_IMAGE_BYTES", "not-a-number")

	cfg := Load()
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.KeyPrefix != "acme" {
		t.Errorf("KeyPrefix = %q, want acme", cfg.KeyPrefix)
	}
	if !cfg.SMTPEnabled {
		t.Error("SMTPEnabled = false, want true")
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 3s", cfg.ShutdownTimeout)
	}
	if cfg.MaxImageBytes != 2<<20 {
		t.Errorf("MaxImageBytes = %d, want fallback", cfg.MaxImageBytes)
	}
}

func TestLoadFromCommand_FlagsWin(t *testing.T) {
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("DB_PATH", "env.db")

	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	RegisterFlags(cmd)
	if err := cmd.ParseFlags([]string{"--http-port", "9090", "--db", " flag.db "}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	cfg, err := LoadFromCommand(cmd)
	if err != nil {
		t.Fatalf("LoadFromCommand() error = %v", err)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d, want 9090", cfg.HTTPPort)
	}
	if cfg.DBPath != "flag.db" {
		t.Errorf("DBPath = %q, want flag.db", cfg.DBPath)
	}
}

func TestLoadFromCommand_InvalidPort(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	RegisterFlags(cmd)
	if err := cmd.ParseFlags([]string{"--http-port", "70000"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if _, err := LoadFromCommand(cmd); err == nil {
		t.Error("expected error for out-of-range port")
	}
}
