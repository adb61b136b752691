package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ehrlich-b/sandboxhost/internal/sblog"
)

type initSandboxRequest struct {
	Secrets map[string]string `json:"secrets"`
}

type initSandboxResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// handleInitSandbox provisions per-key secret files, backing up prior
// values whose content changed.
func (s *Server) handleInitSandbox(w http.ResponseWriter, r *http.Request) {
	var req initSandboxRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Secrets) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("secrets must not be empty"))
		return
	}

	if err := s.secrets.Write(req.Secrets); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, initSandboxResponse{
		Status:  "success",
		Message: fmt.Sprintf("Provisioned %d secrets", len(req.Secrets)),
	})
}

// handleHealthz reports liveness and, on first call, kicks off the
// deferred browser warm start so the first real action doesn't pay the
// Chromium launch cost.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.warmOnce.Do(func() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			if err := s.browser.Initialize(ctx); err != nil {
				sblog.Warn("httpapi: deferred browser warm start failed", "error", err)
			}
		}()
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
