package archive

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func seedTree(t *testing.T, root string) {
	t.Helper()
	dirs := []string{
		filepath.Join(root, "src"),
		filepath.Join(root, "node_modules", "dep"),
		filepath.Join(root, ".git"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	files := map[string]string{
		filepath.Join(root, "src", "main.go"):                   "package main",
		filepath.Join(root, "node_modules", "dep", "index.js"):  "module.exports = {}",
		filepath.Join(root, ".git", "HEAD"):                     "ref: refs/heads/main",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

func listZipNames(t *testing.T, path string) map[string]bool {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
	}
	return names
}

func TestZipExcludesVendorDirs(t *testing.T) {
	dir := t.TempDir()
	seedTree(t, dir)

	outPath := filepath.Join(t.TempDir(), "out")
	got, err := Zip(dir, outPath, ProjectBackend)
	if err != nil {
		t.Fatalf("Zip: %v", err)
	}
	if got != outPath+".zip" {
		t.Fatalf("expected .zip suffix appended, got %q", got)
	}

	names := listZipNames(t, got)
	if !names["src/main.go"] {
		t.Fatalf("expected src/main.go present, got %v", names)
	}
	for name := range names {
		if filepath := name; containsExcluded(filepath) {
			t.Fatalf("expected no excluded dirs in archive, found %q", name)
		}
	}
}

func containsExcluded(path string) bool {
	for _, ex := range ExcludedDirs {
		if path == ex || len(path) > len(ex) && path[:len(ex)+1] == ex+"/" {
			return true
		}
	}
	return false
}

func TestZipFrontendWrapsDistIntoPublic(t *testing.T) {
	dir := t.TempDir()
	distDir := filepath.Join(dir, "dist")
	if err := os.MkdirAll(distDir, 0o755); err != nil {
		t.Fatalf("mkdir dist: %v", err)
	}
	if err := os.WriteFile(filepath.Join(distDir, "index.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatalf("write index.html: %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "out.zip")
	got, err := Zip(dir, outPath, ProjectFrontend)
	if err != nil {
		t.Fatalf("Zip: %v", err)
	}

	names := listZipNames(t, got)
	if !names["public/index.html"] {
		t.Fatalf("expected public/index.html, got %v", names)
	}
	if !names["wrangler.toml"] {
		t.Fatalf("expected wrangler.toml, got %v", names)
	}
}

func TestBatchDownloadContinuesPastFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/good" {
			w.Write([]byte("ok"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	destDir := t.TempDir()
	results, err := BatchDownload(context.Background(), []DownloadItem{
		{URL: srv.URL + "/good", Filename: "good.txt"},
		{URL: srv.URL + "/missing", Filename: "missing.txt"},
	}, destDir)
	if err != nil {
		t.Fatalf("BatchDownload: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Success || results[1].Success {
		t.Fatalf("expected first success, second failure, got %+v", results)
	}

	if _, err := os.Stat(filepath.Join(destDir, "good.txt")); err != nil {
		t.Fatalf("expected good.txt written: %v", err)
	}
}
