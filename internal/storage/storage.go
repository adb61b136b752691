// Package storage is the local-disk stand-in for the large-object store
// the sandbox host's HTTP surface assumes exists somewhere upstream: "put
// bytes under a unique name, return a reference." It backs single-file and
// screenshot uploads and assembles multipart uploads by part number.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Store writes files under root, handing back the resulting absolute path
// as the opaque "handle" callers carry around instead of a remote object
// key — this process has no object store, only a directory.
type Store struct {
	root string
}

// New ensures root exists and returns a Store rooted there.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the directory the store writes under.
func (s *Store) Root() string { return s.root }

// timestampNow is the directory/filename suffix format used throughout:
// second-resolution timestamps collide under rapid uploads, so every unique
// name also carries a short uuid fragment.
func timestampNow() string {
	return time.Now().Format("20060102_150405")
}

// UniqueName appends a timestamp, then a short uuid fragment, before name's
// extension, so repeated uploads of the same logical filename never
// collide on disk.
func UniqueName(name string) string {
	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]
	frag := uuid.NewString()[:8]
	return fmt.Sprintf("%s_%s_%s%s", base, timestampNow(), frag, ext)
}

// Put writes data under a unique derivative of name and returns the
// resulting absolute path as its handle.
func (s *Store) Put(name string, data []byte) (handle string, err error) {
	path := filepath.Join(s.root, UniqueName(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("storage: creating directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: writing %s: %w", path, err)
	}
	return path, nil
}

// PutReader is Put for a streamed source, used by the single-file upload
// endpoint to avoid buffering the whole body twice.
func (s *Store) PutReader(name string, r io.Reader) (handle string, err error) {
	path := filepath.Join(s.root, UniqueName(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("storage: creating directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("storage: creating %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("storage: writing %s: %w", path, err)
	}
	return path, nil
}

// NewTempDir creates a fresh timestamp-named directory under root/tmp to
// hold one multipart upload's in-flight parts.
func (s *Store) NewTempDir() (string, error) {
	dir := filepath.Join(s.root, "tmp", timestampNow()+"_"+uuid.NewString()[:8])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: creating temp dir: %w", err)
	}
	return dir, nil
}

// Part is the outcome of writing one multipart chunk to disk.
type Part struct {
	PartNumber int
	Handle     string
	Success    bool
	Error      string
}

// PutPart writes partData to tempDir as "<name>.part<N>" and returns its
// handle, the part's own path on disk.
func (s *Store) PutPart(tempDir, name string, partNumber int, partData []byte) Part {
	partPath := filepath.Join(tempDir, fmt.Sprintf("%s.part%d", name, partNumber))
	if err := os.WriteFile(partPath, partData, 0o644); err != nil {
		return Part{PartNumber: partNumber, Success: false, Error: err.Error()}
	}
	return Part{PartNumber: partNumber, Success: true, Handle: partPath}
}

// Combine concatenates parts, sorted by PartNumber ascending, into one new
// unique file under root and returns its handle. Arrival order of parts is
// irrelevant; only PartNumber order matters.
func (s *Store) Combine(name string, parts []Part) (handle string, err error) {
	sorted := make([]Part, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	path := filepath.Join(s.root, UniqueName(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("storage: creating directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("storage: creating %s: %w", path, err)
	}
	defer out.Close()

	for _, p := range sorted {
		if !p.Success {
			return "", fmt.Errorf("storage: part %d failed: %s", p.PartNumber, p.Error)
		}
		in, err := os.Open(p.Handle)
		if err != nil {
			return "", fmt.Errorf("storage: opening part %d: %w", p.PartNumber, err)
		}
		_, err = io.Copy(out, in)
		in.Close()
		if err != nil {
			return "", fmt.Errorf("storage: copying part %d: %w", p.PartNumber, err)
		}
	}
	return path, nil
}

// PreparedPart is one part slot handed back to the caller before its bytes
// exist, the local-storage analogue of a presigned URL.
type PreparedPart struct {
	PartNumber int    `json:"part_number"`
	Handle     string `json:"handle"`
}

// PrepareMultipart stages a temp directory and computes the part count for
// size bytes split into partSize-byte chunks via ceiling division,
// returning one PreparedPart (with a pre-assigned handle) per part.
func (s *Store) PrepareMultipart(name string, size, partSize int64) (parts []PreparedPart, tempDir string, err error) {
	if partSize <= 0 {
		return nil, "", fmt.Errorf("storage: part size must be positive")
	}
	tempDir, err = s.NewTempDir()
	if err != nil {
		return nil, "", err
	}
	partCount := (size + partSize - 1) / partSize
	parts = make([]PreparedPart, 0, partCount)
	for n := int64(1); n <= partCount; n++ {
		parts = append(parts, PreparedPart{
			PartNumber: int(n),
			Handle:     filepath.Join(tempDir, fmt.Sprintf("%s.part%d", name, n)),
		})
	}
	return parts, tempDir, nil
}
