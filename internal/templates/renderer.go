// Package templates loads named object templates and renders them with a
// set of string bindings.
package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/sync/singleflight"
)

// ObjectsDir is where object templates live, relative to the content root.
const ObjectsDir = "Include/Templates/Objects"

// Loader locates template source by name.
type Loader interface {
	// Load returns the template source and the path it was read from.
	Load(name string) (src, location string, err error)
}

// FSLoader reads "<Dir>/<name>.html" from FS.
type FSLoader struct {
	FS  fs.FS
	Dir string
}

// NewFSLoader returns a loader rooted at the object template directory of fsys.
func NewFSLoader(fsys fs.FS) FSLoader {
	return FSLoader{FS: fsys, Dir: ObjectsDir}
}

func (l FSLoader) Load(name string) (string, string, error) {
	p := path.Join(l.Dir, name+".html")
	if strings.ContainsAny(name, `/\`) || !fs.ValidPath(p) {
		return "", p, &NotFoundError{Name: name, Path: p}
	}
	b, err := fs.ReadFile(l.FS, p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", p, &NotFoundError{Name: name, Path: p, Err: err}
	}
	if err != nil {
		return "", p, &LoadError{Name: name, Path: p, Err: err}
	}
	return string(b), p, nil
}

// Template is a parsed object template.
type Template struct {
	Name     string
	Location string
	tmpl     *template.Template
}

// Execute substitutes bindings. Placeholders without a binding render empty.
func (t *Template) Execute(bindings map[string]string) (string, error) {
	if bindings == nil {
		bindings = map[string]string{}
	}
	var sb strings.Builder
	if err := t.tmpl.Execute(&sb, bindings); err != nil {
		return "", fmt.Errorf("execute template %q: %w", t.Name, err)
	}
	return sb.String(), nil
}

// Renderer caches parsed templates for its own lifetime. It is safe for
// concurrent use; cache hits only take the read lock and the first load of
// a name is performed once.
type Renderer struct {
	loader Loader
	log    *slog.Logger

	mu    sync.RWMutex
	cache map[string]*Template
	group singleflight.Group
}

// NewRenderer creates a renderer backed by loader.
func NewRenderer(loader Loader, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{
		loader: loader,
		log:    log,
		cache:  make(map[string]*Template),
	}
}

// Get returns the cached template for name, loading it on first use.
func (r *Renderer) Get(name string) (*Template, error) {
	r.mu.RLock()
	t, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		r.mu.RLock()
		t, ok := r.cache[name]
		r.mu.RUnlock()
		if ok {
			return t, nil
		}

		t, err := r.load(name)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[name] = t
		r.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Template), nil
}

func (r *Renderer) load(name string) (*Template, error) {
	src, loc, err := r.loader.Load(name)
	if err != nil {
		var nf *NotFoundError
		var le *LoadError
		if errors.As(err, &nf) || errors.As(err, &le) {
			return nil, err
		}
		return nil, &LoadError{Name: name, Path: loc, Err: err}
	}

	tmpl, err := template.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return nil, &LoadError{Name: name, Path: loc, Err: err}
	}
	r.log.Debug("template loaded", "name", name, "path", loc)
	return &Template{Name: name, Location: loc, tmpl: tmpl}, nil
}

// Render loads name and substitutes bindings into it.
func (r *Renderer) Render(name string, bindings map[string]string) (string, error) {
	t, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return t.Execute(bindings)
}

// Len reports the number of cached templates.
func (r *Renderer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}
