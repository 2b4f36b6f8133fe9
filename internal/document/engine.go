package document

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/dgallion1/emdoc/internal/diag"
	"github.com/dgallion1/emdoc/internal/element"
	"github.com/dgallion1/emdoc/internal/markdown"
	"github.com/dgallion1/emdoc/internal/metadata"
	"github.com/dgallion1/emdoc/internal/templates"
	"github.com/dgallion1/emdoc/internal/textmap"
)

// Options configures an Engine. Only FS is usually set; the rest default to
// the goldmark converter, templates under templates.ObjectsDir of FS, English
// messages and no metadata rules.
type Options struct {
	FS        fs.FS // content root; defaults to the working directory
	Templates *templates.Renderer
	Markdown  markdown.Converter
	Messages  *diag.Messages
	Rules     metadata.Rules
	Logger    *slog.Logger
}

// Engine renders documents from a content root. It is safe for concurrent
// use; each Render call owns its documents and include stack.
type Engine struct {
	fs        fs.FS
	templates *templates.Renderer
	md        markdown.Converter
	messages  *diag.Messages
	rules     metadata.Rules
	log       *slog.Logger
}

// NewEngine creates an Engine from opts.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		fs:        opts.FS,
		templates: opts.Templates,
		md:        opts.Markdown,
		messages:  opts.Messages,
		rules:     opts.Rules,
		log:       opts.Logger,
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.fs == nil {
		e.fs = os.DirFS(".")
	}
	if e.templates == nil {
		e.templates = templates.NewRenderer(templates.NewFSLoader(e.fs), e.log)
	}
	if e.md == nil {
		e.md = markdown.NewGoldmark()
	}
	return e
}

// Templates returns the renderer whose cache the engine uses.
func (e *Engine) Templates() *templates.Renderer { return e.templates }

// Result is the outcome of rendering one top-level document.
type Result struct {
	Path        string              `json:"path"`
	HTML        string              `json:"html"`
	Title       string              `json:"title"`
	Crumbs      []string            `json:"crumbs,omitempty"`
	Related     []string            `json:"related,omitempty"`
	Includes    []string            `json:"includes,omitempty"`
	Metadata    map[string][]string `json:"metadata,omitempty"`
	Variables   map[string]string   `json:"-"`
	Diagnostics []diag.Diagnostic   `json:"diagnostics"`
}

// HasErrors reports whether any diagnostic has Error severity.
func (r *Result) HasErrors() bool { return diag.HasErrors(r.Diagnostics) }

// Render reads the document at p from the content root and renders it.
func (e *Engine) Render(p string) (*Result, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return &Result{Path: p}, err
	}
	src, err := e.read(clean)
	if err != nil {
		return &Result{Path: clean}, err
	}
	return e.RenderSource(clean, string(src))
}

// RenderSource renders source as the document at p. Includes and templates
// are still read from the content root. The result is never nil: when a
// fatal error is returned it carries the diagnostics collected so far.
func (e *Engine) RenderSource(p, source string) (*Result, error) {
	res := &Result{Path: p}
	clean, err := CleanPath(p)
	if err != nil {
		return res, err
	}
	res.Path = clean

	r := &run{engine: e}
	doc, err := r.parse(clean, source, true)
	if doc != nil {
		res.fill(doc)
	}
	if err != nil {
		return e.fail(res, r, err)
	}

	stack := &element.IncludeStack{}
	stack.Push(clean)
	var sb strings.Builder
	if err := doc.Tree.Render(&sb, stack, &docContext{run: r, doc: doc}); err != nil {
		return e.fail(res, r, err)
	}

	res.HTML = sb.String()
	if res.Title == "" {
		res.Title = markdown.FirstHeading(res.HTML)
	}
	res.Diagnostics = r.diags.Items()
	e.log.Debug("document rendered",
		"path", clean,
		"bytes", len(res.HTML),
		"diagnostics", len(res.Diagnostics),
	)
	return res, nil
}

// Parse extracts metadata from source and parses it without rendering.
// Missing-metadata checks run as for a top-level document.
func (e *Engine) Parse(p, source string) (*Document, []diag.Diagnostic, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return nil, nil, err
	}
	r := &run{engine: e}
	doc, err := r.parse(clean, source, true)
	return doc, r.diags.Items(), err
}

// Load reads the document at p from the content root and parses it.
func (e *Engine) Load(p string) (*Document, []diag.Diagnostic, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return nil, nil, err
	}
	src, err := e.read(clean)
	if err != nil {
		return nil, nil, err
	}
	return e.Parse(clean, string(src))
}

func (e *Engine) read(clean string) ([]byte, error) {
	src, err := fs.ReadFile(e.fs, clean)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", clean, err)
	}
	return src, nil
}

func (e *Engine) fail(res *Result, r *run, err error) (*Result, error) {
	res.Diagnostics = r.diags.Items()
	e.log.Warn("document render failed", "path", res.Path, "error", err)
	return res, fmt.Errorf("render %s: %w", res.Path, err)
}

func (res *Result) fill(doc *Document) {
	res.Title = doc.Meta.Title()
	res.Crumbs = doc.Meta.Crumbs()
	res.Related = doc.Meta.Related()
	res.Metadata = doc.Meta.Map()
	res.Variables = doc.Meta.Variables()
	if doc.Tree != nil {
		res.Includes = doc.Includes()
	}
}

// run is the state of one top-level render: the diagnostics of every
// document it touches.
type run struct {
	engine *Engine
	diags  diag.List
}

// parse builds a Document. Missing-metadata checks only run when top is set.
// The returned document is non-nil unless the source could not be parsed
// past metadata extraction.
func (r *run) parse(p, source string, top bool) (*Document, error) {
	e := r.engine
	doc := &Document{
		Path:      p,
		Source:    source,
		Meta:      metadata.NewManager(e.rules, e.messages),
		positions: textmap.New(),
	}

	text, ds := doc.Meta.Extract(source, doc.positions, top)
	r.add(doc, ds)
	text, ds = doc.Meta.SubstituteVariables(text, doc.positions)
	r.add(doc, ds)
	doc.Text = text

	tree, err := element.Parse(text, &docContext{run: r, doc: doc})
	if err != nil {
		var pe *element.ParseError
		if errors.As(err, &pe) {
			_, line, col := doc.Locate(pe.Offset)
			return doc, fmt.Errorf("%s:%d:%d: %w", p, line, col, err)
		}
		return doc, err
	}
	doc.Tree = tree
	return doc, nil
}

// add records diagnostics whose offsets already refer to doc.Source.
func (r *run) add(doc *Document, ds []diag.Diagnostic) {
	for _, d := range ds {
		d.Path = doc.Path
		if d.Offset >= 0 {
			d.Line, d.Column = diag.Position(doc.Source, d.Offset)
		}
		r.diags.Add(d)
	}
}

// docContext binds one document to the element parser and renderer.
type docContext struct {
	run *run
	doc *Document
}

func (c *docContext) LoadTemplate(name string) error {
	_, err := c.run.engine.templates.Get(name)
	return err
}

func (c *docContext) Report(sev diag.Severity, key string, offset int, msgKey string, args ...any) {
	orig, line, col := c.doc.Locate(offset)
	c.run.diags.Add(diag.Diagnostic{
		Severity: sev,
		Message:  c.run.engine.messages.Text(msgKey, args...),
		Key:      key,
		Path:     c.doc.Path,
		Offset:   orig,
		Line:     line,
		Column:   col,
	})
}

func (c *docContext) Markdown(src string) (string, error) {
	return c.run.engine.md.Convert(src)
}

func (c *docContext) Template(name string, bindings map[string]string) (string, error) {
	return c.run.engine.templates.Render(name, bindings)
}

func (c *docContext) Variables() map[string]string {
	return c.doc.Meta.Variables()
}

func (c *docContext) ResolveInclude(target string) (string, error) {
	return ResolveInclude(c.doc.Path, target)
}

func (c *docContext) RenderInclude(w *strings.Builder, from *element.Include, p string, stack *element.IncludeStack) error {
	e := c.run.engine
	src, err := fs.ReadFile(e.fs, p)
	if errors.Is(err, fs.ErrNotExist) {
		c.Report(diag.Error, from.Target, from.Origin().Start, diag.MsgIncludeNotFound, p)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read include %s: %w", p, err)
	}

	e.log.Debug("rendering include", "from", c.doc.Path, "path", p, "depth", stack.Depth())
	doc, err := c.run.parse(p, string(src), false)
	if err != nil {
		return err
	}
	return doc.Tree.Render(w, stack, &docContext{run: c.run, doc: doc})
}
