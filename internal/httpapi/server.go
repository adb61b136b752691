// Package httpapi is the sandbox host's HTTP front door: it routes
// requests to the terminal registry, the browser manager, the text
// editor, and the file/secret helpers, stamping every response with an
// X-Process-Time header.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/ehrlich-b/sandboxhost/internal/browser"
	"github.com/ehrlich-b/sandboxhost/internal/editor"
	"github.com/ehrlich-b/sandboxhost/internal/sbconfig"
	"github.com/ehrlich-b/sandboxhost/internal/sblog"
	"github.com/ehrlich-b/sandboxhost/internal/secretprovision"
	"github.com/ehrlich-b/sandboxhost/internal/storage"
	"github.com/ehrlich-b/sandboxhost/internal/terminal"
	"github.com/ehrlich-b/sandboxhost/internal/termws"
)

// Server wires the process-scoped services into one http.Handler.
type Server struct {
	cfg       *sbconfig.Config
	store     *storage.Store
	terminals *terminal.Registry
	browser   *browser.Manager
	editor    *editor.Editor
	secrets   *secretprovision.Writer
	termWS    *termws.Server
	mux       *http.ServeMux

	warmOnce sync.Once
}

// NewServer builds the front door over the given services.
func NewServer(cfg *sbconfig.Config, store *storage.Store, terminals *terminal.Registry, browserMgr *browser.Manager, ed *editor.Editor, secrets *secretprovision.Writer) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		terminals: terminals,
		browser:   browserMgr,
		editor:    ed,
		secrets:   secrets,
		termWS:    termws.NewServer(terminals),
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /file/upload", s.handleFileUpload)
	s.mux.HandleFunc("POST /file/multipart_upload", s.handleMultipartUpload)
	s.mux.HandleFunc("GET /file", s.handleGetFile)
	s.mux.HandleFunc("POST /request-download-attachments", s.handleDownloadAttachments)

	s.mux.HandleFunc("GET /browser/status", s.handleBrowserStatus)
	s.mux.HandleFunc("POST /browser/action", s.handleBrowserAction)

	s.mux.HandleFunc("POST /text_editor", s.handleTextEditor)

	s.mux.HandleFunc("POST /terminal/{id}/reset", s.handleTerminalReset)
	s.mux.HandleFunc("POST /terminal/reset-all", s.handleTerminalResetAll)
	s.mux.HandleFunc("GET /terminal/{id}/view", s.handleTerminalView)
	s.mux.HandleFunc("POST /terminal/{id}/kill", s.handleTerminalKill)
	s.mux.HandleFunc("POST /terminal/{id}/write", s.handleTerminalWrite)
	s.mux.Handle("GET /terminal", s.termWS)

	s.mux.HandleFunc("POST /init-sandbox", s.handleInitSandbox)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("POST /zip-file", s.handleZipFile)

	return s
}

// ServeHTTP applies the timing middleware, then delegates to the mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(newTimingWriter(w), r)
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		sblog.Warn("httpapi: encoding response failed", "error", err)
	}
}

// errorBody is the generic {status, error} failure shape shared by the
// JSON endpoints that have no richer envelope of their own.
type errorBody struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// writeError writes err with the status the caller chose: below 500 the
// error text is returned as is; at 500 and above it is logged and the
// caller gets a bare "internal error" with no internals attached.
func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		sblog.Error("httpapi: internal error", "error", err)
		writeJSON(w, status, errorBody{Status: "error", Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Status: "error", Error: err.Error()})
}

// decodeBody decodes the request body into v, rejecting unparseable JSON.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}
