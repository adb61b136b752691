package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ehrlich-b/sandboxhost/internal/terminal"
)

// terminalResponse is the REST envelope for terminal operations; the
// streaming protocol lives on the WebSocket, these endpoints return one
// snapshot each.
type terminalResponse struct {
	Status     string   `json:"status"`
	Error      string   `json:"error,omitempty"`
	Output     []string `json:"output"`
	Result     string   `json:"result"`
	TerminalID string   `json:"terminal_id"`
}

// restTerminal resolves the path's terminal id without creating it: the
// create-on-first-use rule applies to the WebSocket's name-based
// accessors, not to REST operations on an id.
func (s *Server) restTerminal(w http.ResponseWriter, r *http.Request) (*terminal.Session, string, bool) {
	id := r.PathValue("id")
	term, ok := s.terminals.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, terminalResponse{
			Status:     "error",
			Error:      fmt.Sprintf("terminal %s not found", id),
			Output:     []string{},
			TerminalID: id,
		})
		return nil, id, false
	}
	return term, id, true
}

func (s *Server) handleTerminalReset(w http.ResponseWriter, r *http.Request) {
	term, id, ok := s.restTerminal(w, r)
	if !ok {
		return
	}
	if err := term.Reset(); err != nil {
		writeJSON(w, http.StatusInternalServerError, terminalResponse{Status: "error", Error: err.Error(), Output: []string{}, TerminalID: id})
		return
	}
	writeJSON(w, http.StatusOK, terminalResponse{Status: "success", Result: "terminal reset success", Output: []string{}, TerminalID: id})
}

func (s *Server) handleTerminalResetAll(w http.ResponseWriter, r *http.Request) {
	if err := s.terminals.ResetAll(); err != nil {
		writeJSON(w, http.StatusInternalServerError, terminalResponse{Status: "error", Error: err.Error(), Output: []string{}})
		return
	}
	writeJSON(w, http.StatusOK, terminalResponse{Status: "success", Result: "all terminals reset success", Output: []string{}})
}

func (s *Server) handleTerminalView(w http.ResponseWriter, r *http.Request) {
	term, id, ok := s.restTerminal(w, r)
	if !ok {
		return
	}
	full, _ := strconv.ParseBool(r.URL.Query().Get("full"))
	lines, status := term.View(full)
	writeJSON(w, http.StatusOK, terminalResponse{Status: "success", Result: status, Output: lines, TerminalID: id})
}

func (s *Server) handleTerminalKill(w http.ResponseWriter, r *http.Request) {
	term, id, ok := s.restTerminal(w, r)
	if !ok {
		return
	}
	if err := term.Kill(); err != nil {
		writeJSON(w, http.StatusInternalServerError, terminalResponse{Status: "error", Error: err.Error(), Output: []string{}, TerminalID: id})
		return
	}
	lines, _ := term.View(false)
	writeJSON(w, http.StatusOK, terminalResponse{Status: "success", Result: "process killed", Output: lines, TerminalID: id})
}

type terminalWriteRequest struct {
	Text  string `json:"text"`
	Enter bool   `json:"enter,omitempty"`
}

// handleTerminalWrite injects text into the pty without waiting for a
// prompt, the REST twin of the WebSocket's send_line/send_key modes.
func (s *Server) handleTerminalWrite(w http.ResponseWriter, r *http.Request) {
	term, id, ok := s.restTerminal(w, r)
	if !ok {
		return
	}
	var req terminalWriteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var err error
	if req.Enter {
		err = term.SendLine(req.Text)
	} else {
		err = term.SendKey(req.Text)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, terminalResponse{Status: "error", Error: err.Error(), Output: []string{}, TerminalID: id})
		return
	}
	lines, _ := term.View(false)
	writeJSON(w, http.StatusOK, terminalResponse{Status: "success", Result: "text written", Output: lines, TerminalID: id})
}
