package element

import (
	"slices"
	"strings"

	"github.com/dgallion1/emdoc/internal/diag"
)

// RenderContext supplies the collaborators a tree needs while rendering.
type RenderContext interface {
	// Markdown converts a plain-prose span to HTML.
	Markdown(src string) (string, error)
	// Template renders the named object template with bindings.
	Template(name string, bindings map[string]string) (string, error)
	// Variables are bindings every object template can see.
	Variables() map[string]string
	// ResolveInclude turns an include target into a document path.
	ResolveInclude(target string) (string, error)
	// RenderInclude renders the document at path, already pushed on stack,
	// into w. from is the include node being rendered.
	RenderInclude(w *strings.Builder, from *Include, path string, stack *IncludeStack) error
	// Report records a non-fatal diagnostic at an offset in the parsed text.
	Report(sev diag.Severity, key string, offset int, msgKey string, args ...any)
}

// IncludeStack holds the documents being rendered by one top-level render
// call, outermost first.
type IncludeStack struct {
	paths []string
}

// Push adds path to the top of the stack.
func (s *IncludeStack) Push(path string) { s.paths = append(s.paths, path) }

// Pop removes the top of the stack.
func (s *IncludeStack) Pop() {
	if len(s.paths) > 0 {
		s.paths = s.paths[:len(s.paths)-1]
	}
}

// Contains reports whether path is being rendered.
func (s *IncludeStack) Contains(path string) bool { return slices.Contains(s.paths, path) }

// Paths returns the stack contents, outermost first.
func (s *IncludeStack) Paths() []string { return slices.Clone(s.paths) }

// Depth is the number of documents on the stack.
func (s *IncludeStack) Depth() int { return len(s.paths) }

// Render writes every top-level node to w depth-first.
func (t *Tree) Render(w *strings.Builder, stack *IncludeStack, ctx RenderContext) error {
	return t.renderNodes(t.roots, w, stack, ctx)
}

func (t *Tree) renderNodes(ids []NodeID, w *strings.Builder, stack *IncludeStack, ctx RenderContext) error {
	for _, id := range ids {
		if err := t.nodes[id].render(t, w, stack, ctx); err != nil {
			return err
		}
	}
	return nil
}

// InnerHTML renders the children of id to a string.
func (t *Tree) InnerHTML(id NodeID, stack *IncludeStack, ctx RenderContext) (string, error) {
	n := t.Node(id)
	if n == nil {
		return "", nil
	}
	var sb strings.Builder
	if err := t.renderNodes(n.Children(), &sb, stack, ctx); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (p *Plain) render(_ *Tree, w *strings.Builder, _ *IncludeStack, ctx RenderContext) error {
	out, err := ctx.Markdown(p.Text)
	if err != nil {
		ctx.Report(diag.Error, "", p.origin.Start, diag.MsgMarkdownConversion, err)
		return nil
	}
	w.WriteString(out)
	return nil
}

func (o *Object) render(t *Tree, w *strings.Builder, stack *IncludeStack, ctx RenderContext) error {
	bindings := ctx.Variables()
	if bindings == nil {
		bindings = make(map[string]string)
	}
	for name, v := range o.literals {
		bindings[name] = v
	}
	for _, name := range o.order {
		id, ok := o.params[name]
		if !ok {
			continue
		}
		html, err := t.InnerHTML(id, stack, ctx)
		if err != nil {
			return err
		}
		bindings[name] = html
	}

	out, err := ctx.Template(o.Name, bindings)
	if err != nil {
		return err
	}
	w.WriteString(out)
	return nil
}

func (p *Param) render(t *Tree, w *strings.Builder, stack *IncludeStack, ctx RenderContext) error {
	return t.renderNodes(p.children, w, stack, ctx)
}

func (i *Include) render(_ *Tree, w *strings.Builder, stack *IncludeStack, ctx RenderContext) error {
	path, err := ctx.ResolveInclude(i.Target)
	if err != nil {
		return err
	}
	if stack.Contains(path) {
		return &CyclicIncludeError{Chain: append(stack.Paths(), path)}
	}

	stack.Push(path)
	defer stack.Pop()
	return ctx.RenderInclude(w, i, path, stack)
}
