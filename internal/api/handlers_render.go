package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/emdoc/internal/document"
)

// renderRequest names a document under the content root, or carries the
// source inline. Inline sources still resolve includes and templates
// against the content root, relative to Filename.
type renderRequest struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Source   string `json:"source"`
}

type renderResponse struct {
	*document.Result
	Error string `json:"error,omitempty"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	name := req.Path
	if name == "" {
		name = req.Filename
	}
	if name == "" {
		name = "inline.md"
	}
	if _, err := document.CleanPath(name); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case req.Path != "":
		s.render(w, func() (*document.Result, error) { return s.engine.Render(req.Path) })
	case req.Source != "":
		s.render(w, func() (*document.Result, error) { return s.engine.RenderSource(name, req.Source) })
	default:
		jsonError(w, "path or source is required", http.StatusBadRequest)
	}
}

func (s *Server) handleRenderUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	// The upload is rendered as if it lived in folder, for include resolution.
	name := sanitizeFilename(header.Filename)
	if folder := r.FormValue("folder"); folder != "" {
		name = strings.TrimSuffix(folder, "/") + "/" + name
	}
	if _, err := document.CleanPath(name); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.render(w, func() (*document.Result, error) { return s.engine.RenderSource(name, string(data)) })
}

// render runs fn, records its latency and writes the result. Fatal render
// errors are reported as 422 with the diagnostics collected so far.
func (s *Server) render(w http.ResponseWriter, fn func() (*document.Result, error)) {
	start := time.Now()
	res, err := fn()
	s.orchestrator.Stats().Record(time.Since(start).Milliseconds(), err != nil)

	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		s.log.Warn("render failed", "path", res.Path, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, renderResponse{Result: res, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, renderResponse{Result: res})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed.md"
	}
	return name
}
