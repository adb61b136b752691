package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ehrlich-b/sandboxhost/internal/sblog"
)

// DownloadItem is one requested remote file.
type DownloadItem struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// DownloadResult reports one item's outcome.
type DownloadResult struct {
	Filename string `json:"filename"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

var downloadClient = &http.Client{Timeout: 60 * time.Second}

// BatchDownload fetches every item into destDir (created if missing),
// continuing past individual failures so one bad URL doesn't abort the
// batch; the result order matches items.
func BatchDownload(ctx context.Context, items []DownloadItem, destDir string) ([]DownloadResult, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: creating %s: %w", destDir, err)
	}

	results := make([]DownloadResult, 0, len(items))
	for _, item := range items {
		if err := downloadOne(ctx, item, destDir); err != nil {
			sblog.Warn("archive: download failed", "url", item.URL, "error", err)
			results = append(results, DownloadResult{Filename: item.Filename, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, DownloadResult{Filename: item.Filename, Success: true})
	}
	return results, nil
}

func downloadOne(ctx context.Context, item DownloadItem, destDir string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		return err
	}
	resp, err := downloadClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	path := filepath.Join(destDir, item.Filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, resp.Body)
	return err
}
