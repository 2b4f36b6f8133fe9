package element

import (
	"regexp"
	"strings"
)

type tagKind int

const (
	tagObject tagKind = iota
	tagParam
	tagParamLiteral
	tagInclude
)

func (k tagKind) String() string {
	switch k {
	case tagObject:
		return "OBJECT"
	case tagParam:
		return "PARAM"
	case tagParamLiteral:
		return "PARAMLITERAL"
	case tagInclude:
		return "INCLUDE"
	}
	return "?"
}

// token is one tag located by the first scan phase.
type token struct {
	kind    tagKind
	closing bool
	name    string
	start   int
	end     int
	line    int

	// lineStart is set when only spaces or tabs precede the tag on its
	// line; indent holds them.
	lineStart bool
	indent    string
}

var tagPattern = regexp.MustCompile(`(?i)\[(/?)(OBJECT|PARAMLITERAL|PARAM|INCLUDE)(?::([^\]\n]*))?\]`)

// scanTags locates every tag in text. Opening object and parameter tags
// without a name are not tags.
func scanTags(text string) []token {
	var (
		toks      []token
		line      int
		lineBegin int
		last      int
	)
	for n, loc := range tagPattern.FindAllStringSubmatchIndex(text, -1) {
		// A tag after another match on its line never starts that line.
		gap := text[last:loc[0]]
		nl := strings.LastIndexByte(gap, '\n')
		if nl >= 0 {
			line += strings.Count(gap, "\n")
			lineBegin = last + nl + 1
		}
		last = loc[0]
		firstOnLine := nl >= 0 || n == 0

		t := token{
			closing: loc[3] > loc[2],
			start:   loc[0],
			end:     loc[1],
			line:    line,
		}
		switch strings.ToUpper(text[loc[4]:loc[5]]) {
		case "OBJECT":
			t.kind = tagObject
		case "PARAM":
			t.kind = tagParam
		case "PARAMLITERAL":
			t.kind = tagParamLiteral
		case "INCLUDE":
			t.kind = tagInclude
		}
		if loc[6] >= 0 {
			t.name = strings.TrimSpace(text[loc[6]:loc[7]])
		}
		if !t.closing && t.name == "" && t.kind != tagInclude {
			continue
		}
		if t.closing && t.kind == tagInclude {
			continue
		}

		if prefix := text[lineBegin:t.start]; firstOnLine && strings.Trim(prefix, " \t") == "" {
			t.lineStart = true
			t.indent = prefix
		}
		toks = append(toks, t)
	}
	return toks
}

// match is a paired opening and closing tag.
type match struct {
	open, close int // token indexes
	multiline   bool
}

// contentStart and contentEnd bound the text between the tags. For the
// multi-line form the closing line's indentation is not content.
func (m match) contentStart(toks []token) int { return toks[m.open].end }

func (m match) contentEnd(toks []token) int {
	c := toks[m.close]
	if m.multiline {
		return c.start - len(c.indent)
	}
	return c.start
}

// pairing is the second scan phase: the closing tag of every opening tag,
// found in one pass over the tokens.
type pairing struct {
	close     []int // token index of the closing tag, -1 when unterminated
	multiline []bool
}

type indentKey struct {
	kind   tagKind
	indent string
}

// pairTags pairs opening and closing tags of the same kind. A closing tag
// closes the innermost open tag of its kind on its own line; failing that,
// a closing tag that starts its line closes the innermost open tag that
// started a line with the same indentation.
func pairTags(toks []token) pairing {
	pr := pairing{
		close:     make([]int, len(toks)),
		multiline: make([]bool, len(toks)),
	}
	for i := range pr.close {
		pr.close[i] = -1
	}

	var sameLine [tagInclude][]int
	blocks := make(map[indentKey][]int)
	line := -1

	endLine := func() {
		for k := range sameLine {
			for _, i := range sameLine[k] {
				if toks[i].lineStart {
					key := indentKey{toks[i].kind, toks[i].indent}
					blocks[key] = append(blocks[key], i)
				}
			}
			sameLine[k] = sameLine[k][:0]
		}
	}

	for i, t := range toks {
		if t.line != line {
			endLine()
			line = t.line
		}
		if t.kind == tagInclude {
			continue
		}
		if !t.closing {
			sameLine[t.kind] = append(sameLine[t.kind], i)
			continue
		}
		if open := sameLine[t.kind]; len(open) > 0 {
			pr.close[open[len(open)-1]] = i
			sameLine[t.kind] = open[:len(open)-1]
			continue
		}
		if !t.lineStart {
			continue
		}
		key := indentKey{t.kind, t.indent}
		if open := blocks[key]; len(open) > 0 {
			j := open[len(open)-1]
			blocks[key] = open[:len(open)-1]
			pr.close[j] = i
			pr.multiline[j] = true
		}
	}
	return pr
}

// lookup returns the pair opened by toks[i] when its closing tag ends
// before limit.
func (pr pairing) lookup(toks []token, i, limit int) (match, bool) {
	c := pr.close[i]
	if c < 0 || toks[c].end > limit {
		return match{}, false
	}
	return match{open: i, close: c, multiline: pr.multiline[i]}, true
}
