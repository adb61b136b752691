package httpapi

import (
	"errors"
	"net/http"

	"github.com/ehrlich-b/sandboxhost/internal/editor"
)

// textEditorRequest is the wire shape of one editor action.
type textEditorRequest struct {
	Command         string `json:"command"`
	Path            string `json:"path"`
	FileText        string `json:"file_text,omitempty"`
	ViewRange       []int  `json:"view_range,omitempty"`
	OldStr          string `json:"old_str,omitempty"`
	NewStr          string `json:"new_str,omitempty"`
	Glob            string `json:"glob,omitempty"`
	Regex           string `json:"regex,omitempty"`
	Append          bool   `json:"append,omitempty"`
	LeadingNewline  bool   `json:"leading_newline,omitempty"`
	TrailingNewline bool   `json:"trailing_newline,omitempty"`
	Sudo            bool   `json:"sudo,omitempty"`
}

type fileInfoBody struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	OldContent string `json:"old_content,omitempty"`
}

type textEditorResponse struct {
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Result   string        `json:"result"`
	FileInfo *fileInfoBody `json:"file_info,omitempty"`
}

func (s *Server) handleTextEditor(w http.ResponseWriter, r *http.Request) {
	var req textEditorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.editor.Execute(editor.Action{
		Command:         editor.Command(req.Command),
		Path:            req.Path,
		FileText:        req.FileText,
		ViewRange:       req.ViewRange,
		OldStr:          req.OldStr,
		NewStr:          req.NewStr,
		Glob:            req.Glob,
		Regex:           req.Regex,
		Append:          req.Append,
		LeadingNewline:  req.LeadingNewline,
		TrailingNewline: req.TrailingNewline,
		Sudo:            req.Sudo,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, editor.ErrValidation) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, textEditorResponse{Status: "error", Error: err.Error()})
		return
	}

	resp := textEditorResponse{Status: "success", Result: res.Output}
	if res.FileInfo != nil {
		resp.FileInfo = &fileInfoBody{
			Path:       res.FileInfo.Path,
			Content:    res.FileInfo.Content,
			OldContent: res.FileInfo.OldContent,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
