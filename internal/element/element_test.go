package element

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dgallion1/emdoc/internal/diag"
)

type report struct {
	sev    diag.Severity
	key    string
	offset int
	msgKey string
}

// fakeContext parses and renders documents from an in-memory map. Templates
// render as Name(k=v;...) with keys sorted.
type fakeContext struct {
	docs      map[string]string
	templates map[string]bool
	vars      map[string]string
	reports   []report
	mdErr     error
}

func newFakeContext(templates ...string) *fakeContext {
	f := &fakeContext{docs: map[string]string{}, templates: map[string]bool{}}
	for _, name := range templates {
		f.templates[name] = true
	}
	return f
}

func (f *fakeContext) LoadTemplate(name string) error {
	if !f.templates[name] {
		return fmt.Errorf("template %q not found", name)
	}
	return nil
}

func (f *fakeContext) Report(sev diag.Severity, key string, offset int, msgKey string, _ ...any) {
	f.reports = append(f.reports, report{sev: sev, key: key, offset: offset, msgKey: msgKey})
}

func (f *fakeContext) Markdown(src string) (string, error) {
	if f.mdErr != nil {
		return "", f.mdErr
	}
	return "<p>" + strings.TrimSpace(src) + "</p>", nil
}

func (f *fakeContext) Template(name string, bindings map[string]string) (string, error) {
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + bindings[k]
	}
	return name + "(" + strings.Join(parts, ";") + ")", nil
}

func (f *fakeContext) Variables() map[string]string {
	out := make(map[string]string, len(f.vars))
	for k, v := range f.vars {
		out[k] = v
	}
	return out
}

func (f *fakeContext) ResolveInclude(target string) (string, error) { return target, nil }

func (f *fakeContext) RenderInclude(w *strings.Builder, _ *Include, path string, stack *IncludeStack) error {
	src, ok := f.docs[path]
	if !ok {
		return fmt.Errorf("document %q not found", path)
	}
	tree, err := Parse(src, f)
	if err != nil {
		return err
	}
	return tree.Render(w, stack, f)
}

func mustParse(t *testing.T, text string, ctx *fakeContext) *Tree {
	t.Helper()
	tree, err := Parse(text, ctx)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree
}

func render(t *testing.T, tree *Tree, ctx *fakeContext) string {
	t.Helper()
	var sb strings.Builder
	if err := tree.Render(&sb, &IncludeStack{}, ctx); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return sb.String()
}

func TestParse_LiteralParam(t *testing.T) {
	ctx := newFakeContext("Note")
	tree := mustParse(t, "[OBJECT:Note]\n[PARAMLITERAL:Body]\n    Install the SDK.\n[/PARAMLITERAL]\n[/OBJECT]", ctx)

	objs := Collect[*Object](tree)
	if len(objs) != 1 {
		t.Fatalf("expected 1 object, got %d", len(objs))
	}
	body, ok := objs[0].Literal("Body")
	if !ok {
		t.Fatal("expected Body literal")
	}
	if body != "Install the SDK." {
		t.Errorf("expected %q, got %q", "Install the SDK.", body)
	}
	if got := render(t, tree, ctx); got != "Note(Body=Install the SDK.)" {
		t.Errorf("unexpected render %q", got)
	}
	if len(ctx.reports) != 0 {
		t.Errorf("unexpected reports %v", ctx.reports)
	}
}

func TestParse_IndentedParams(t *testing.T) {
	ctx := newFakeContext("Note")
	text := "[OBJECT:Note]\n" +
		"    [PARAM:Body]\n" +
		"        Some **bold** text.\n" +
		"    [/PARAM]\n" +
		"    [PARAMLITERAL:Code]\n" +
		"        if x {\n" +
		"            y()\n" +
		"        }\n" +
		"\n" +
		"    [/PARAMLITERAL]\n" +
		"[/OBJECT]\n"
	tree := mustParse(t, text, ctx)

	obj := Collect[*Object](tree)[0]
	if diff := cmp.Diff([]string{"Body", "Code"}, obj.ParamNames()); diff != "" {
		t.Errorf("param names mismatch (-want +got):\n%s", diff)
	}
	code, _ := obj.Literal("Code")
	if want := "if x {\n    y()\n}"; code != want {
		t.Errorf("expected literal %q, got %q", want, code)
	}

	plains := Collect[*Plain](tree)
	if len(plains) != 1 {
		t.Fatalf("expected 1 plain node, got %d", len(plains))
	}
	if want := "\nSome **bold** text.\n"; plains[0].Text != want {
		t.Errorf("expected plain %q, got %q", want, plains[0].Text)
	}
	if got := render(t, tree, ctx); got != "Note(Body=<p>Some **bold** text.</p>;Code=if x {\n    y()\n})" {
		t.Errorf("unexpected render %q", got)
	}
}

func TestParse_SameLineTags(t *testing.T) {
	ctx := newFakeContext("Badge")
	tree := mustParse(t, "Before [OBJECT:Badge][PARAMLITERAL:Label] new [/PARAMLITERAL][/OBJECT] after", ctx)

	if got := render(t, tree, ctx); got != "<p>Before</p>Badge(Label=new)<p>after</p>" {
		t.Errorf("unexpected render %q", got)
	}
}

func TestParse_NestedObjects(t *testing.T) {
	ctx := newFakeContext("Outer", "Inner")
	text := "[OBJECT:Outer]\n[PARAM:Body]\nIntro\n[OBJECT:Inner]\n[PARAMLITERAL:Label]x[/PARAMLITERAL]\n[/OBJECT]\n[/PARAM]\n[/OBJECT]"
	tree := mustParse(t, text, ctx)

	if got := render(t, tree, ctx); got != "Outer(Body=<p>Intro</p>Inner(Label=x))" {
		t.Errorf("unexpected render %q", got)
	}

	var trace []string
	tree.Walk(VisitFuncs{
		Pre:  func(e Element) { trace = append(trace, "+"+e.Kind().String()) },
		Post: func(e Element) { trace = append(trace, "-"+e.Kind().String()) },
	})
	want := []string{"+object", "+param", "+plain", "-plain", "+object", "-object", "-param", "-object"}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Errorf("walk order mismatch (-want +got):\n%s", diff)
	}

	inner := Collect[*Object](tree)[1]
	param := tree.ParentOf(inner.ID())
	if param == nil || param.Kind() != KindParam {
		t.Fatalf("expected inner object parent to be a param, got %v", param)
	}
	outer := tree.ParentOf(param.ID())
	if o, ok := outer.(*Object); !ok || o.Name != "Outer" {
		t.Fatalf("expected param parent Outer, got %v", outer)
	}
	if tree.ParentOf(outer.ID()) != nil {
		t.Error("expected top-level object to have no parent")
	}
}

func TestParse_Origins(t *testing.T) {
	ctx := newFakeContext()
	text := "Hello\n[INCLUDE:other.md]\n"
	tree := mustParse(t, text, ctx)

	roots := tree.Roots()
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	inc, ok := tree.Node(roots[1]).(*Include)
	if !ok {
		t.Fatalf("expected include, got %T", tree.Node(roots[1]))
	}
	if inc.Target != "other.md" {
		t.Errorf("expected target other.md, got %q", inc.Target)
	}
	if o := inc.Origin(); o.Start != 6 || text[o.Start:o.End()] != "[INCLUDE:other.md]" {
		t.Errorf("unexpected origin %+v", o)
	}
	if o := tree.Node(roots[0]).Origin(); o.Start != 0 || o.Text != "Hello\n" {
		t.Errorf("unexpected plain origin %+v", o)
	}
}

func TestParse_UnterminatedObject(t *testing.T) {
	ctx := newFakeContext("Note")
	text := "[OBJECT:Note]\nno closing tag"
	tree := mustParse(t, text, ctx)

	if len(ctx.reports) != 1 || ctx.reports[0].msgKey != diag.MsgUnterminatedTag || ctx.reports[0].offset != 0 {
		t.Fatalf("expected one unterminated report at 0, got %v", ctx.reports)
	}
	plains := Collect[*Plain](tree)
	if len(plains) != 1 || plains[0].Text != text {
		t.Errorf("expected tag kept as prose, got %v", plains)
	}
}

func TestParse_UnmatchedClosingTag(t *testing.T) {
	ctx := newFakeContext()
	tree := mustParse(t, "text [/OBJECT] more", ctx)

	if len(ctx.reports) != 1 || ctx.reports[0].msgKey != diag.MsgUnmatchedClosingTag || ctx.reports[0].offset != 5 {
		t.Fatalf("expected one unmatched report at 5, got %v", ctx.reports)
	}
	if got := render(t, tree, ctx); got != "<p>text [/OBJECT] more</p>" {
		t.Errorf("unexpected render %q", got)
	}
}

func TestParse_EmptyInclude(t *testing.T) {
	ctx := newFakeContext()
	tree := mustParse(t, "see [INCLUDE:]", ctx)

	if len(ctx.reports) != 1 || ctx.reports[0].msgKey != diag.MsgEmptyInclude {
		t.Fatalf("expected empty include report, got %v", ctx.reports)
	}
	if n := len(Collect[*Include](tree)); n != 0 {
		t.Errorf("expected no include nodes, got %d", n)
	}
}

func TestParse_DuplicateParam(t *testing.T) {
	ctx := newFakeContext("Note")
	_, err := Parse("[OBJECT:Note][PARAM:A]x[/PARAM][PARAMLITERAL:A]y[/PARAMLITERAL][/OBJECT]", ctx)

	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Name != "A" {
		t.Errorf("expected ParseError for A, got %v", err)
	}
}

func TestParse_MissingTemplate(t *testing.T) {
	ctx := newFakeContext()
	if _, err := Parse("[OBJECT:Missing][/OBJECT]", ctx); err == nil {
		t.Fatal("expected error for missing template")
	}
}

func TestParse_ParamOutsideObject(t *testing.T) {
	ctx := newFakeContext()
	ctx.docs["b"] = "B"
	tree := mustParse(t, "[PARAM:A]x [INCLUDE:b] y[/PARAM]", ctx)

	want := []report{{sev: diag.Warning, key: "A", offset: 0, msgKey: diag.MsgParamOutsideObject}}
	if diff := cmp.Diff(want, ctx.reports, cmp.AllowUnexported(report{})); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}
	if n := len(Collect[*Include](tree)); n != 1 {
		t.Fatalf("expected the include inside the stray param to be parsed, got %d", n)
	}
	if got := render(t, tree, ctx); got != "<p>[PARAM:A]x</p><p>B</p><p>y[/PARAM]</p>" {
		t.Errorf("unexpected render %q", got)
	}
}

func TestParse_TagsOutsideParam(t *testing.T) {
	ctx := newFakeContext("Note")
	text := "[OBJECT:Note]\n" +
		"[OBJECT:Inner]\n" +
		"[PARAM:Body]\n" +
		"lost text\n" +
		"[/PARAM]\n" +
		"[/OBJECT]\n" +
		"[INCLUDE:other]\n" +
		"[PARAMLITERAL:Body]\n" +
		"kept\n" +
		"[/PARAMLITERAL]\n" +
		"[/OBJECT]"
	tree := mustParse(t, text, ctx)

	want := []report{
		{sev: diag.Warning, key: "Inner", offset: 14, msgKey: diag.MsgTagOutsideParam},
		{sev: diag.Warning, key: "other", offset: 71, msgKey: diag.MsgTagOutsideParam},
	}
	if diff := cmp.Diff(want, ctx.reports, cmp.AllowUnexported(report{})); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}
	if got := render(t, tree, ctx); got != "Note(Body=kept)" {
		t.Errorf("unexpected render %q", got)
	}
}

func TestParse_UnterminatedTagsLinear(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		reports int
	}{
		{"unterminated object lines", strings.Repeat("[OBJECT:Note]\n", 64), 64},
		{"unterminated indented objects", strings.Repeat("  [OBJECT:Note]\n[OBJECT:Note]\n", 512), 1024},
		{"stray params on one line", strings.Repeat("[PARAM:x] ", 4096), 4096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newFakeContext("Note")
			start := time.Now()
			mustParse(t, tt.text, ctx)
			if elapsed := time.Since(start); elapsed > 2*time.Second {
				t.Fatalf("parse took %v", elapsed)
			}
			if len(ctx.reports) != tt.reports {
				t.Errorf("expected %d reports, got %d", tt.reports, len(ctx.reports))
			}
		})
	}
}

func TestPairTags(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		close     []int
		multiline []bool
	}{
		{
			name:      "same line nests innermost first",
			text:      "[OBJECT:A][OBJECT:B][/OBJECT][/OBJECT]",
			close:     []int{3, 2, -1, -1},
			multiline: []bool{false, false, false, false},
		},
		{
			name:      "block closes by indentation",
			text:      "[PARAM:A]\n  [PARAM:B]\n  [/PARAM]\n[/PARAM]",
			close:     []int{3, 2, -1, -1},
			multiline: []bool{true, true, false, false},
		},
		{
			name:      "indentation mismatch stays open",
			text:      "  [PARAM:A]\n[/PARAM]",
			close:     []int{-1, -1},
			multiline: []bool{false, false},
		},
		{
			name:      "same line wins over block",
			text:      "[PARAM:A] x [/PARAM]\n[/PARAM]",
			close:     []int{1, -1, -1},
			multiline: []bool{false, false, false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := pairTags(scanTags(tt.text))
			if diff := cmp.Diff(tt.close, pr.close); diff != "" {
				t.Errorf("close mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.multiline, pr.multiline); diff != "" {
				t.Errorf("multiline mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRender_ParamsOverrideVariables(t *testing.T) {
	ctx := newFakeContext("Note")
	ctx.vars = map[string]string{"Body": "from vars", "product": "Widget"}
	tree := mustParse(t, "[OBJECT:Note][PARAMLITERAL:Body]from param[/PARAMLITERAL][/OBJECT]", ctx)

	if got := render(t, tree, ctx); got != "Note(Body=from param;product=Widget)" {
		t.Errorf("unexpected render %q", got)
	}
}

func TestRender_MarkdownFailureReported(t *testing.T) {
	ctx := newFakeContext()
	ctx.mdErr = errors.New("boom")
	tree := mustParse(t, "some text", ctx)

	if got := render(t, tree, ctx); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
	if len(ctx.reports) != 1 || ctx.reports[0].msgKey != diag.MsgMarkdownConversion {
		t.Errorf("expected markdown report, got %v", ctx.reports)
	}
}

func TestRender_Include(t *testing.T) {
	ctx := newFakeContext()
	ctx.docs["b"] = "from b"
	tree := mustParse(t, "a [INCLUDE:b] c", ctx)

	stack := &IncludeStack{}
	stack.Push("a")
	var sb strings.Builder
	if err := tree.Render(&sb, stack, ctx); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := sb.String(); got != "<p>a</p><p>from b</p><p>c</p>" {
		t.Errorf("unexpected render %q", got)
	}
	if stack.Depth() != 1 {
		t.Errorf("expected stack restored to depth 1, got %d", stack.Depth())
	}
}

func TestRender_CyclicInclude(t *testing.T) {
	ctx := newFakeContext()
	ctx.docs["a"] = "[INCLUDE:b]"
	ctx.docs["b"] = "[INCLUDE:a]"
	tree := mustParse(t, ctx.docs["a"], ctx)

	stack := &IncludeStack{}
	stack.Push("a")
	var sb strings.Builder
	err := tree.Render(&sb, stack, ctx)

	if !errors.Is(err, ErrCyclicInclude) {
		t.Fatalf("expected ErrCyclicInclude, got %v", err)
	}
	var ce *CyclicIncludeError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CyclicIncludeError, got %T", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "a"}, ce.Chain); diff != "" {
		t.Errorf("chain mismatch (-want +got):\n%s", diff)
	}
	if stack.Depth() != 1 {
		t.Errorf("expected stack unwound to depth 1, got %d", stack.Depth())
	}
}

func TestDedentLiteral(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		indent    string
		multiline bool
		want      string
	}{
		{"single line", "  x  ", "", false, "x"},
		{"one blank line kept", "\n\n\n  a\n\n\n", "", true, "\na\n"},
		{"tabs", "\n\t\ta\n\t\t\tb\n", "\t", true, "a\n\tb"},
		{"mixed depth", "\n    a\n  b\n", "", true, "  a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dedentLiteral(tt.content, tt.indent, tt.multiline)
			if got != tt.want {
				t.Errorf("dedentLiteral(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
