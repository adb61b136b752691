package httpapi

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ehrlich-b/sandboxhost/internal/archive"
	"github.com/ehrlich-b/sandboxhost/internal/sblog"
	"github.com/ehrlich-b/sandboxhost/internal/storage"
)

// multipartThreshold is the size past which a single-shot upload is
// refused in favor of the multipart path.
const multipartThreshold = 10 * 1024 * 1024

type fileUploadRequest struct {
	FilePath string `json:"file_path"`
	Filename string `json:"filename,omitempty"`
}

type fileUploadResponse struct {
	Status              string `json:"status"`
	Message             string `json:"message"`
	FileName            string `json:"file_name"`
	FilePath            string `json:"file_path,omitempty"`
	FileSize            int64  `json:"file_size,omitempty"`
	RequiresMultipart   bool   `json:"requires_multipart"`
	RecommendedPartSize int64  `json:"recommended_part_size,omitempty"`
	EstimatedParts      int64  `json:"estimated_parts,omitempty"`
}

// handleFileUpload copies a local file into the store, or reports that the
// file is large enough to need the multipart path instead.
func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	var req fileUploadRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.FilePath == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("file_path is required"))
		return
	}

	info, err := os.Stat(req.FilePath)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("file %s not found", req.FilePath))
		return
	}

	name := req.Filename
	if name == "" {
		name = filepath.Base(req.FilePath)
	}

	if info.Size() > multipartThreshold {
		writeJSON(w, http.StatusOK, fileUploadResponse{
			Status:              "multipart_required",
			Message:             fmt.Sprintf("File size %d exceeds the single-upload limit", info.Size()),
			FileName:            name,
			FileSize:            info.Size(),
			RequiresMultipart:   true,
			RecommendedPartSize: multipartThreshold,
			EstimatedParts:      (info.Size() + multipartThreshold - 1) / multipartThreshold,
		})
		return
	}

	f, err := os.Open(req.FilePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()

	handle, err := s.store.PutReader(name, f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, fileUploadResponse{
		Status:   "success",
		Message:  fmt.Sprintf("Uploaded %s", name),
		FileName: name,
		FilePath: handle,
		FileSize: info.Size(),
	})
}

type multipartUploadRequest struct {
	FilePath string `json:"file_path"`
	PartSize int64  `json:"part_size"`
}

type partResult struct {
	PartNumber int    `json:"part_number"`
	Handle     string `json:"handle,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type multipartUploadResponse struct {
	Status          string       `json:"status"`
	Message         string       `json:"message"`
	FileName        string       `json:"file_name"`
	PartsResults    []partResult `json:"parts_results"`
	SuccessfulParts int          `json:"successful_parts"`
	FailedParts     int          `json:"failed_parts"`
	FilePath        string       `json:"file_path,omitempty"`
}

// handleMultipartUpload slices the named file into part_size-byte chunks,
// stores each part, and concatenates them (by part number) into the final
// stored file.
func (s *Server) handleMultipartUpload(w http.ResponseWriter, r *http.Request) {
	var req multipartUploadRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.FilePath == "" || req.PartSize <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("file_path and a positive part_size are required"))
		return
	}

	f, err := os.Open(req.FilePath)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("file %s not found", req.FilePath))
		return
	}
	defer f.Close()

	name := filepath.Base(req.FilePath)
	tempDir, err := s.store.NewTempDir()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer os.RemoveAll(tempDir)

	var parts []storage.Part
	buf := make([]byte, req.PartSize)
	for partNumber := 1; ; partNumber++ {
		n, readErr := readFull(f, buf)
		if n > 0 {
			parts = append(parts, s.store.PutPart(tempDir, name, partNumber, buf[:n]))
		}
		if readErr != nil {
			break
		}
	}

	results := make([]partResult, 0, len(parts))
	succeeded, failed := 0, 0
	for _, p := range parts {
		results = append(results, partResult{PartNumber: p.PartNumber, Handle: p.Handle, Success: p.Success, Error: p.Error})
		if p.Success {
			succeeded++
		} else {
			failed++
		}
	}

	resp := multipartUploadResponse{
		FileName:        name,
		PartsResults:    results,
		SuccessfulParts: succeeded,
		FailedParts:     failed,
	}

	if failed > 0 {
		resp.Status = "error"
		resp.Message = fmt.Sprintf("%d of %d parts failed", failed, len(parts))
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	final, err := s.store.Combine(name, parts)
	if err != nil {
		resp.Status = "error"
		resp.Message = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	resp.Status = "success"
	resp.Message = fmt.Sprintf("Combined %d parts", len(parts))
	resp.FilePath = final
	writeJSON(w, http.StatusOK, resp)
}

// readFull reads as much of buf as the reader can supply, returning any
// terminal error once the reader is drained.
func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// handleGetFile streams a file back to the caller.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("path query parameter is required"))
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, fmt.Errorf("file %s not found", path))
		return
	}
	http.ServeFile(w, r, path)
}

type downloadRequest struct {
	Files  []archive.DownloadItem `json:"files"`
	Folder string                 `json:"folder,omitempty"`
}

type downloadResponse struct {
	Status  string                   `json:"status"`
	Results []archive.DownloadResult `json:"results"`
}

// handleDownloadAttachments batch-downloads remote files into the upload
// tree, optionally under a caller-chosen subfolder.
func (s *Server) handleDownloadAttachments(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("files must not be empty"))
		return
	}

	dest := s.cfg.UploadDir
	if req.Folder != "" {
		dest = filepath.Join(dest, req.Folder)
	}

	results, err := archive.BatchDownload(r.Context(), req.Files, dest)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, downloadResponse{Status: "success", Results: results})
}

type zipFileRequest struct {
	Directory   string `json:"directory"`
	ProjectType string `json:"project_type"`
}

type zipFileResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Error    string `json:"error,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}

// handleZipFile archives a project directory, applying the frontend
// dist-wrapping convention when asked for.
func (s *Server) handleZipFile(w http.ResponseWriter, r *http.Request) {
	var req zipFileRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	pt := archive.ProjectType(req.ProjectType)
	switch pt {
	case archive.ProjectFrontend, archive.ProjectBackend, archive.ProjectNextjs:
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown project_type %q", req.ProjectType))
		return
	}

	output := filepath.Join(s.store.Root(), storage.UniqueName(filepath.Base(req.Directory)+".zip"))
	path, err := archive.Zip(req.Directory, output, pt)
	if err != nil {
		sblog.Error("httpapi: zip failed", "directory", req.Directory, "error", err)
		writeJSON(w, http.StatusInternalServerError, zipFileResponse{Status: "error", Message: "archiving failed", Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, zipFileResponse{
		Status:   "success",
		Message:  fmt.Sprintf("Created archive of %s", req.Directory),
		FilePath: path,
	})
}
