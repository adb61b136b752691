package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/ehrlich-b/sandboxhost/internal/browser"
	"github.com/ehrlich-b/sandboxhost/internal/sblog"
)

// browserActionTimeout bounds one /browser/action request end to end; the
// per-verb timeout inside the manager is shorter, so this only fires when
// initialization or recovery itself wedges.
const browserActionTimeout = 60 * time.Second

type browserStatusResponse struct {
	Healthy bool `json:"healthy"`
	Tabs    int  `json:"tabs"`
}

func (s *Server) handleBrowserStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, browserStatusResponse{
		Healthy: s.browser.HealthCheck(r.Context()),
		Tabs:    s.browser.Tabs(r.Context()),
	})
}

type browserActionResponse struct {
	Status string                `json:"status"`
	Error  string                `json:"error,omitempty"`
	Result *browser.ActionResult `json:"result,omitempty"`
}

// handleBrowserAction decodes one action request and executes it under the
// request-level timeout; a timeout here recreates the page so the next
// action starts clean.
func (s *Server) handleBrowserAction(w http.ResponseWriter, r *http.Request) {
	var req browser.ActionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), browserActionTimeout)
	defer cancel()

	done := make(chan *browser.ActionResult, 1)
	go func() {
		done <- s.browser.ExecuteAction(ctx, req)
	}()

	select {
	case res := <-done:
		resp := browserActionResponse{Status: "success", Result: res}
		if res.Error != "" {
			resp.Status = "error"
			resp.Error = res.Error
		}
		writeJSON(w, http.StatusOK, resp)
	case <-ctx.Done():
		sblog.Warn("httpapi: browser action timed out, recreating page")
		recreateCtx, recreateCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer recreateCancel()
		if err := s.browser.RecreatePage(recreateCtx); err != nil {
			sblog.Error("httpapi: page recreate failed", "error", err)
		}
		writeJSON(w, http.StatusOK, browserActionResponse{Status: "error", Error: "browser action timed out"})
	}
}
