package httpapi

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ehrlich-b/sandboxhost/internal/browser"
	"github.com/ehrlich-b/sandboxhost/internal/editor"
	"github.com/ehrlich-b/sandboxhost/internal/sbconfig"
	"github.com/ehrlich-b/sandboxhost/internal/sblog"
	"github.com/ehrlich-b/sandboxhost/internal/secretprovision"
	"github.com/ehrlich-b/sandboxhost/internal/storage"
	"github.com/ehrlich-b/sandboxhost/internal/terminal"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	if sblog.Log == nil {
		if err := sblog.Init("error", ""); err != nil {
			t.Fatalf("init logger: %v", err)
		}
	}

	home := t.TempDir()
	cfg := &sbconfig.Config{
		Addr:            ":0",
		Home:            home,
		WorkingDir:      home,
		ShellPath:       "/bin/sh",
		LocalStorageDir: filepath.Join(home, "local_storage"),
		UploadDir:       filepath.Join(home, "upload"),
		SecretsDir:      filepath.Join(home, ".secrets"),
	}

	store, err := storage.New(cfg.LocalStorageDir)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	secrets, err := secretprovision.New(home)
	if err != nil {
		t.Fatalf("secrets: %v", err)
	}

	terminals := terminal.NewRegistry(cfg.ShellPath, cfg.WorkingDir)
	browserMgr := browser.NewManager(browser.Config{Headless: true, WorkingDir: home})
	ed := editor.New(cfg.WorkingDir)

	return NewServer(cfg, store, terminals, browserMgr, ed, secrets), home
}

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Process-Time"); got == "" {
		t.Error("missing X-Process-Time header")
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestTextEditorRoundTrip(t *testing.T) {
	srv, home := testServer(t)
	path := filepath.Join(home, "notes.txt")

	rec := postJSON(t, srv, "/text_editor", textEditorRequest{
		Command:  "create",
		Path:     path,
		FileText: "alpha\nbeta\n",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, srv, "/text_editor", textEditorRequest{Command: "view", Path: path})
	if rec.Code != http.StatusOK {
		t.Fatalf("view status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp textEditorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.Result, "alpha") || !strings.Contains(resp.Result, "beta") {
		t.Errorf("view result missing content: %q", resp.Result)
	}
	if len(resp.Result) > editor.MaxResponseLen {
		t.Errorf("response length %d exceeds cap", len(resp.Result))
	}
}

func TestTextEditorValidation(t *testing.T) {
	srv, home := testServer(t)

	rec := postJSON(t, srv, "/text_editor", textEditorRequest{
		Command: "view",
		Path:    filepath.Join(home, "does-not-exist"),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestMultipartUploadRoundTrip(t *testing.T) {
	srv, home := testServer(t)

	data := make([]byte, 2_500_000)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand: %v", err)
	}
	src := filepath.Join(home, "blob.bin")
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	wantHash := sha256.Sum256(data)

	rec := postJSON(t, srv, "/file/multipart_upload", multipartUploadRequest{
		FilePath: src,
		PartSize: 1_000_000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp multipartUploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SuccessfulParts != 3 || resp.FailedParts != 0 {
		t.Fatalf("parts = %d ok / %d failed, want 3/0", resp.SuccessfulParts, resp.FailedParts)
	}
	for i, p := range resp.PartsResults {
		if p.PartNumber != i+1 {
			t.Errorf("part %d has number %d", i, p.PartNumber)
		}
	}

	combined, err := os.ReadFile(resp.FilePath)
	if err != nil {
		t.Fatalf("read combined: %v", err)
	}
	if sha256.Sum256(combined) != wantHash {
		t.Error("combined bytes differ from source")
	}
}

func TestFileUploadMultipartHint(t *testing.T) {
	srv, home := testServer(t)

	src := filepath.Join(home, "big.bin")
	f, err := os.Create(src)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.Truncate(11 * 1024 * 1024); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	f.Close()

	rec := postJSON(t, srv, "/file/upload", fileUploadRequest{FilePath: src})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp fileUploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.RequiresMultipart {
		t.Error("requires_multipart = false, want true")
	}
	if resp.RecommendedPartSize != multipartThreshold {
		t.Errorf("recommended_part_size = %d, want %d", resp.RecommendedPartSize, multipartThreshold)
	}
	if resp.EstimatedParts != 2 {
		t.Errorf("estimated_parts = %d, want 2", resp.EstimatedParts)
	}
}

func TestInitSandbox(t *testing.T) {
	srv, home := testServer(t)

	rec := postJSON(t, srv, "/init-sandbox", initSandboxRequest{
		Secrets: map[string]string{"API_KEY": "hunter2"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	path := filepath.Join(home, ".secrets", "API_KEY")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read secret: %v", err)
	}
	if string(data) != "hunter2" {
		t.Errorf("secret = %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestTerminalRESTMissingID(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/terminal/nope/view", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestZipFileBadProjectType(t *testing.T) {
	srv, home := testServer(t)

	rec := postJSON(t, srv, "/zip-file", zipFileRequest{Directory: home, ProjectType: "mainframe"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestBrowserStatusNotReady(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/browser/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp browserStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Healthy {
		t.Error("healthy = true before any browser launch")
	}
}
