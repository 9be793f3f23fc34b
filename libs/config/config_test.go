package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStringFallsBackWhenUnset(t *testing.T) {
	if got := String("SLOTBOOK_TEST_UNSET_KEY", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestEnvironmentIsRead(t *testing.T) {
	t.Setenv("SLOTBOOK_TEST_PORT", "9090")
	port, err := Port("SLOTBOOK_TEST_PORT", "8080")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port != "9090" {
		t.Fatalf("expected 9090, got %s", port)
	}
}

func TestPortRejectsGarbage(t *testing.T) {
	t.Setenv("SLOTBOOK_TEST_BAD_PORT", "99999")
	if _, err := Port("SLOTBOOK_TEST_BAD_PORT", "8080"); err == nil {
		t.Fatalf("expected error for out of range port")
	}
}

func TestRequiredString(t *testing.T) {
	if _, err := RequiredString("SLOTBOOK_TEST_REQUIRED"); err == nil {
		t.Fatalf("expected error for missing key")
	}
	t.Setenv("SLOTBOOK_TEST_REQUIRED", "x")
	if v, err := RequiredString("SLOTBOOK_TEST_REQUIRED"); err != nil || v != "x" {
		t.Fatalf("expected x, got %q err=%v", v, err)
	}
}

func TestDurationAcceptsSecondsAndGoSyntax(t *testing.T) {
	t.Setenv("SLOTBOOK_TEST_TTL", "45")
	d, err := Duration("SLOTBOOK_TEST_TTL", time.Minute)
	if err != nil || d != 45*time.Second {
		t.Fatalf("expected 45s, got %s err=%v", d, err)
	}
	t.Setenv("SLOTBOOK_TEST_TTL", "2m")
	d, err = Duration("SLOTBOOK_TEST_TTL", time.Minute)
	if err != nil || d != 2*time.Minute {
		t.Fatalf("expected 2m, got %s err=%v", d, err)
	}
}

func TestLoadFileProvidesDefaultsUnderEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "booking.yaml")
	if err := os.WriteFile(path, []byte("slotbook_file_only: from-file\nslotbook_both: from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Setenv("SLOTBOOK_BOTH", "from-env")

	if got := String("SLOTBOOK_FILE_ONLY", ""); got != "from-file" {
		t.Fatalf("expected file value, got %q", got)
	}
	if got := String("SLOTBOOK_BOTH", ""); got != "from-env" {
		t.Fatalf("expected env to win, got %q", got)
	}
}
