package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPutWritesUniqueName(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	h1, err := s.Put("shot.png", []byte("a"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	h2, err := s.Put("shot.png", []byte("b"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected distinct handles, got %q twice", h1)
	}
	if filepath.Ext(h1) != ".png" {
		t.Fatalf("expected .png extension preserved, got %q", h1)
	}
}

func TestMultipartRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data := make([]byte, 25)
	for i := range data {
		data[i] = byte(i)
	}
	partSize := int64(10)

	prepared, tempDir, err := s.PrepareMultipart("blob.bin", int64(len(data)), partSize)
	if err != nil {
		t.Fatalf("PrepareMultipart: %v", err)
	}
	if len(prepared) != 3 {
		t.Fatalf("expected 3 parts for 25 bytes / 10-byte chunks, got %d", len(prepared))
	}

	var parts []Part
	// Write parts out of order to confirm arrival order doesn't matter.
	for _, idx := range []int{2, 0, 1} {
		p := prepared[idx]
		start := int64(p.PartNumber-1) * partSize
		end := start + partSize
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		parts = append(parts, s.PutPart(tempDir, "blob.bin", p.PartNumber, data[start:end]))
	}

	handle, err := s.Combine("blob.bin", parts)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	got, err := os.ReadFile(handle)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != len(data) {
		t.Fatalf("expected %d bytes, got %d", len(data), len(got))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d mismatch: want %d got %d", i, data[i], got[i])
		}
	}
}

func TestPrepareMultipartRejectsZeroPartSize(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, err := s.PrepareMultipart("x", 10, 0); err == nil {
		t.Fatalf("expected error for zero part size")
	}
}
