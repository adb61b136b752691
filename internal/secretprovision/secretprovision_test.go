package secretprovision

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteSetsMode0600(t *testing.T) {
	home := t.TempDir()
	w, err := New(home)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := w.Write(map[string]string{"api_key": "secret-value"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := filepath.Join(w.Dir(), "api_key")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600, got %v", info.Mode().Perm())
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "secret-value" {
		t.Fatalf("expected secret-value, got %q", got)
	}
}

func TestWriteBacksUpChangedValue(t *testing.T) {
	home := t.TempDir()
	w, err := New(home)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := w.Write(map[string]string{"api_key": "v1"}); err != nil {
		t.Fatalf("Write v1: %v", err)
	}
	if err := w.Write(map[string]string{"api_key": "v2"}); err != nil {
		t.Fatalf("Write v2: %v", err)
	}

	entries, err := os.ReadDir(w.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected a current file plus one backup, got %d entries", len(entries))
	}

	got, err := os.ReadFile(filepath.Join(w.Dir(), "api_key"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "v2" {
		t.Fatalf("expected current value v2, got %q", got)
	}
}

func TestWriteSkipsBackupForIdenticalValue(t *testing.T) {
	home := t.TempDir()
	w, err := New(home)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := w.Write(map[string]string{"api_key": "same"}); err != nil {
		t.Fatalf("Write 1: %v", err)
	}
	if err := w.Write(map[string]string{"api_key": "same"}); err != nil {
		t.Fatalf("Write 2: %v", err)
	}

	entries, err := os.ReadDir(w.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no backup for an unchanged value, got %d entries", len(entries))
	}
}
