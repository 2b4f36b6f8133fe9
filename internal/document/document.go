// Package document turns source files of the extended markup dialect into
// HTML. A Document owns the metadata, element tree and position map of one
// file; an Engine loads, parses and renders documents and their includes.
package document

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/dgallion1/emdoc/internal/diag"
	"github.com/dgallion1/emdoc/internal/element"
	"github.com/dgallion1/emdoc/internal/metadata"
	"github.com/dgallion1/emdoc/internal/textmap"
)

// DefaultExt is appended to include targets without an extension.
const DefaultExt = ".md"

var (
	// ErrInvalidPath indicates a document or include path outside the content root.
	ErrInvalidPath = errors.New("invalid document path")
	// ErrNotFound indicates a top-level document missing from the content root.
	ErrNotFound = errors.New("document not found")
)

// Document is one parsed source file.
type Document struct {
	Path   string
	Source string

	// Text is the source after metadata extraction and variable
	// substitution; the tree's offsets refer to it.
	Text string
	Meta *metadata.Manager
	Tree *element.Tree

	positions *textmap.Map
}

// Locate maps an offset in Text back to the source and resolves its line and
// column. The returned offset is diag.NoOffset when offset is.
func (d *Document) Locate(offset int) (orig, line, col int) {
	if offset < 0 {
		return diag.NoOffset, 0, 0
	}
	orig = d.positions.MapOffset(offset)
	line, col = diag.Position(d.Source, orig)
	return orig, line, col
}

// Includes returns the include targets of the document in document order.
func (d *Document) Includes() []string {
	var out []string
	for _, inc := range element.Collect[*element.Include](d.Tree) {
		out = append(out, inc.Target)
	}
	return out
}

// CleanPath normalizes a document path to a slash-separated path relative
// to the content root.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, `\`, "/")
	clean := path.Clean(strings.TrimPrefix(p, "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return clean, nil
}

// ResolveInclude resolves target against the folder of the including
// document. A leading slash makes target relative to the content root.
func ResolveInclude(from, target string) (string, error) {
	t := strings.ReplaceAll(strings.TrimSpace(target), `\`, "/")
	joined := t
	if !strings.HasPrefix(t, "/") {
		joined = path.Join(path.Dir(from), t)
	}
	p, err := CleanPath(joined)
	if err != nil {
		return "", fmt.Errorf("include %q from %s: %w", target, from, err)
	}
	if path.Ext(p) == "" {
		p += DefaultExt
	}
	return p, nil
}
