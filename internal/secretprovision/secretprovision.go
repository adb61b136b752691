// Package secretprovision writes per-key secret files for the sandboxed
// agent's tools to read, backing up the previous value when a key's
// content changes rather than overwriting it silently.
package secretprovision

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Writer places one file per secret key under a fixed directory, mode
// 0600, inside a 0700 parent.
type Writer struct {
	dir string
}

// New ensures home/.secrets exists (0700) and returns a Writer rooted
// there.
func New(home string) (*Writer, error) {
	dir := filepath.Join(home, ".secrets")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("secretprovision: creating %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the secrets directory.
func (w *Writer) Dir() string { return w.dir }

// Write persists one file per key in secrets. An existing file whose
// content differs from the new value is renamed to "<key>.<timestamp>"
// before the new value is written; a file with identical content is left
// untouched (no pointless backup-of-self).
func (w *Writer) Write(secrets map[string]string) error {
	for key, value := range secrets {
		if err := w.writeOne(key, value); err != nil {
			return fmt.Errorf("secretprovision: writing %s: %w", key, err)
		}
	}
	return nil
}

func (w *Writer) writeOne(key, value string) error {
	path := filepath.Join(w.dir, key)

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if string(existing) == value {
			return nil
		}
		backup := fmt.Sprintf("%s.%s", path, time.Now().Format("20060102_150405"))
		if err := os.Rename(path, backup); err != nil {
			return err
		}
	case os.IsNotExist(err):
		// No prior value to back up.
	default:
		return err
	}

	return os.WriteFile(path, []byte(value), 0o600)
}
