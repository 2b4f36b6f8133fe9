package element

import (
	"strings"

	"github.com/dgallion1/emdoc/internal/diag"
)

// ParseContext supplies template lookup and diagnostics to the parser.
type ParseContext interface {
	// LoadTemplate fails when no usable template exists for an object name.
	LoadTemplate(name string) error
	// Report records a non-fatal diagnostic at an offset in the parsed text.
	Report(sev diag.Severity, key string, offset int, msgKey string, args ...any)
}

type parser struct {
	text  string
	toks  []token
	pairs pairing
	tree  *Tree
	ctx   ParseContext

	// quiet marks closing tags already accounted for by a diagnostic on
	// their opening tag.
	quiet map[int]bool
}

// Parse builds the element tree of text. Unterminated or stray tags are
// reported and kept as literal content; missing templates and duplicate
// parameter names are fatal.
func Parse(text string, ctx ParseContext) (*Tree, error) {
	toks := scanTags(text)
	p := &parser{
		text:  text,
		toks:  toks,
		pairs: pairTags(toks),
		tree:  &Tree{},
		ctx:   ctx,
		quiet: make(map[int]bool),
	}
	roots, err := p.parseBlock(0, 0, len(text), NoNode, "", false)
	if err != nil {
		return nil, err
	}
	p.tree.roots = roots
	return p.tree, nil
}

// parseBlock turns text[start:end] into nodes. ti is the first token to
// consider. Inside parameters, indent is stripped from plain lines and the
// remaining common indentation is removed.
func (p *parser) parseBlock(ti, start, end int, parent NodeID, indent string, inParam bool) ([]NodeID, error) {
	var ids []NodeID
	cursor := start

	flush := func(to int) {
		if to <= cursor {
			return
		}
		seg := p.text[cursor:to]
		if isBlank(strings.ReplaceAll(seg, "\n", "")) {
			return
		}
		content := seg
		if inParam {
			content = outdent(stripIndent(seg, indent))
		}
		ids = append(ids, p.tree.add(&Plain{
			base: base{parent: parent, origin: Origin{Start: cursor, Text: seg}},
			Text: content,
		}))
	}

	for ti < len(p.toks) && p.toks[ti].start < start {
		ti++
	}
	for ti < len(p.toks) && p.toks[ti].end <= end {
		t := p.toks[ti]
		switch {
		case t.closing:
			if !p.quiet[ti] {
				p.ctx.Report(diag.Warning, t.kind.String(), t.start, diag.MsgUnmatchedClosingTag, t.kind.String())
			}
			ti++

		case t.kind == tagObject:
			m, ok := p.pairs.lookup(p.toks, ti, end)
			if !ok {
				p.ctx.Report(diag.Warning, t.name, t.start, diag.MsgUnterminatedTag, t.kind.String(), t.name)
				ti++
				continue
			}
			flush(t.start)
			id, err := p.parseObject(m, parent)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
			cursor = p.toks[m.close].end
			ti = m.close + 1

		case t.kind == tagInclude:
			if t.name == "" {
				p.ctx.Report(diag.Warning, t.kind.String(), t.start, diag.MsgEmptyInclude)
				ti++
				continue
			}
			flush(t.start)
			ids = append(ids, p.tree.add(&Include{
				base:   base{parent: parent, origin: Origin{Start: t.start, Text: p.text[t.start:t.end]}},
				Target: t.name,
			}))
			cursor = t.end
			ti++

		default:
			// Parameter tags outside an object stay prose; tags inside them
			// are still parsed.
			p.ctx.Report(diag.Warning, t.name, t.start, diag.MsgParamOutsideObject, t.kind.String(), t.name)
			if m, ok := p.pairs.lookup(p.toks, ti, end); ok {
				p.quiet[m.close] = true
			}
			ti++
		}
	}
	flush(end)
	return ids, nil
}

// parseObject builds an Object from a paired OBJECT tag and parses its
// parameters. Text between parameters is ignored.
func (p *parser) parseObject(m match, parent NodeID) (NodeID, error) {
	open, closing := p.toks[m.open], p.toks[m.close]

	if err := p.ctx.LoadTemplate(open.name); err != nil {
		return NoNode, err
	}

	obj := &Object{
		base:     base{parent: parent, origin: Origin{Start: open.start, Text: p.text[open.start:closing.end]}},
		Name:     open.name,
		literals: make(map[string]string),
		params:   make(map[string]NodeID),
	}
	id := p.tree.add(obj)

	limit := m.contentEnd(p.toks)
	for ti := m.open + 1; ti < m.close; {
		t := p.toks[ti]
		switch {
		case t.kind == tagObject && !t.closing:
			// A nested object outside any parameter has nowhere to render.
			p.ctx.Report(diag.Warning, t.name, t.start, diag.MsgTagOutsideParam, t.kind.String(), t.name, obj.Name)
			if nm, ok := p.pairs.lookup(p.toks, ti, limit); ok {
				ti = nm.close + 1
				continue
			}
			ti++

		case t.kind == tagInclude:
			p.ctx.Report(diag.Warning, t.name, t.start, diag.MsgTagOutsideParam, t.kind.String(), t.name, obj.Name)
			ti++

		case (t.kind == tagParam || t.kind == tagParamLiteral) && !t.closing:
			pm, ok := p.pairs.lookup(p.toks, ti, limit)
			if !ok {
				p.ctx.Report(diag.Warning, t.name, t.start, diag.MsgUnterminatedTag, t.kind.String(), t.name)
				ti++
				continue
			}
			if obj.hasParam(t.name) {
				return NoNode, &ParseError{
					Tag:    t.kind.String(),
					Name:   t.name,
					Offset: t.start,
					Reason: "duplicate parameter in object " + obj.Name,
				}
			}
			if err := p.parseParam(obj, id, pm); err != nil {
				return NoNode, err
			}
			ti = pm.close + 1

		default:
			p.ctx.Report(diag.Warning, t.kind.String(), t.start, diag.MsgUnmatchedClosingTag, t.kind.String())
			ti++
		}
	}
	return id, nil
}

func (p *parser) parseParam(obj *Object, objID NodeID, m match) error {
	open, closing := p.toks[m.open], p.toks[m.close]
	start, end := m.contentStart(p.toks), m.contentEnd(p.toks)

	indent := ""
	if m.multiline {
		indent = open.indent
	}

	obj.order = append(obj.order, open.name)
	if open.kind == tagParamLiteral {
		obj.literals[open.name] = dedentLiteral(p.text[start:end], indent, m.multiline)
		return nil
	}

	param := &Param{
		base: base{parent: objID, origin: Origin{Start: open.start, Text: p.text[open.start:closing.end]}},
		Name: open.name,
	}
	pid := p.tree.add(param)
	obj.params[open.name] = pid

	children, err := p.parseBlock(m.open+1, start, end, pid, indent, true)
	if err != nil {
		return err
	}
	param.children = children
	return nil
}
