package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/emdoc/internal/diag"
	"github.com/dgallion1/emdoc/internal/document"
)

// handleDocumentInfo parses a document without rendering it and reports its
// metadata, includes and parse diagnostics.
func (s *Server) handleDocumentInfo(w http.ResponseWriter, r *http.Request) {
	p := chi.URLParam(r, "*")
	doc, diags, err := s.engine.Load(p)
	switch {
	case errors.Is(err, document.ErrInvalidPath):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, document.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}

	if diags == nil {
		diags = []diag.Diagnostic{}
	}
	body := map[string]any{
		"path":        p,
		"diagnostics": diags,
	}
	if doc != nil {
		body["path"] = doc.Path
		body["title"] = doc.Meta.Title()
		body["metadata"] = doc.Meta.Map()
		if doc.Tree != nil {
			body["includes"] = doc.Includes()
		}
	}
	if err != nil {
		body["error"] = err.Error()
		writeJSON(w, http.StatusUnprocessableEntity, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}
