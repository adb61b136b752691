// Package archive builds project zip archives (excluding vendor/build
// directories at any depth) and batch-downloads remote attachments into
// the local upload tree.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
)

// ProjectType selects the packaging convention applied before zipping.
type ProjectType string

const (
	ProjectFrontend ProjectType = "frontend"
	ProjectBackend  ProjectType = "backend"
	ProjectNextjs   ProjectType = "nextjs"
)

// ExcludedDirs are never descended into while walking a source tree.
var ExcludedDirs = []string{"node_modules", ".next", ".open-next", ".turbo", ".wrangler", ".git"}

func init() {
	// Register klauspost's DEFLATE implementation with archive/zip so project
	// archives compress at flate.BestCompression instead of stdlib's
	// default level — the same compressor lazydocker vendors for its own
	// container-export zips.
	zip.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})
}

// Zip archives sourceDir into outputZip (".zip" appended if missing),
// excluding ExcludedDirs at any depth. For ProjectFrontend, a dist/
// directory is first wrapped into a public/ directory alongside a
// generated wrangler.toml, matching the static-site deploy convention the
// other project types don't need.
func Zip(sourceDir, outputZip string, projectType ProjectType) (string, error) {
	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("archive: directory %q does not exist", sourceDir)
	}
	if !strings.HasSuffix(outputZip, ".zip") {
		outputZip += ".zip"
	}

	root := sourceDir
	if projectType == ProjectFrontend {
		wrapped, cleanup, err := wrapFrontendDist(sourceDir)
		if err != nil {
			return "", fmt.Errorf("archive: wrapping frontend dist: %w", err)
		}
		defer cleanup()
		root = wrapped
	}

	if err := zipDir(root, outputZip); err != nil {
		return "", fmt.Errorf("archive: zipping %s: %w", root, err)
	}
	return outputZip, nil
}

// zipDir walks root and writes every file not under an excluded directory
// into outputZip, preserving root-relative paths.
func zipDir(root, outputZip string) error {
	out, err := os.Create(outputZip)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if d.IsDir() && isExcluded(d.Name()) {
			return fs.SkipDir
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		w, err := zw.Create(rel)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
}

func isExcluded(name string) bool {
	for _, ex := range ExcludedDirs {
		if name == ex {
			return true
		}
	}
	return false
}

// wrapFrontendDist builds a temp directory holding dist/'s contents under
// public/ (the whole of sourceDir when it has no dist/; other files beside
// dist/ are not copied) and a minimal wrangler.toml alongside, for
// deployment targets that expect a Pages-style public/ bucket rather than a
// bare dist/. The caller must invoke the returned cleanup func once done.
func wrapFrontendDist(sourceDir string) (wrapped string, cleanup func(), err error) {
	tmp, err := os.MkdirTemp("", "sandboxhost-zip-*")
	if err != nil {
		return "", nil, err
	}
	cleanup = func() { os.RemoveAll(tmp) }

	distDir := filepath.Join(sourceDir, "dist")
	publicDir := filepath.Join(tmp, "public")
	if _, statErr := os.Stat(distDir); statErr == nil {
		if err := copyTree(distDir, publicDir); err != nil {
			cleanup()
			return "", nil, err
		}
	} else {
		if err := copyTree(sourceDir, publicDir); err != nil {
			cleanup()
			return "", nil, err
		}
	}

	if err := os.WriteFile(filepath.Join(tmp, "wrangler.toml"), []byte(wranglerToml), 0o644); err != nil {
		cleanup()
		return "", nil, err
	}
	return tmp, cleanup, nil
}

const wranglerToml = `name = "sandbox-frontend"
compatibility_date = "2024-09-23"

[site]
bucket = "./public"
`

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			if isExcluded(d.Name()) {
				return fs.SkipDir
			}
			return os.MkdirAll(target, 0o755)
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}
