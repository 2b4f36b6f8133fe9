// Package rewrite applies ordered regex find-and-replace rules over text and
// records every substitution as a textmap.Change.
package rewrite

import (
	"regexp"
	"strings"

	"github.com/dgallion1/emdoc/internal/textmap"
)

// Match is one regex match handed to a ReplaceFunc.
type Match struct {
	Text  string // Full matched span.
	Start int    // Offset of the span in the pass input.

	names  []string
	groups []string
}

// Group returns the named sub-capture, or "" if the group did not take part.
func (m Match) Group(name string) string {
	for i, n := range m.names {
		if n == name && n != "" {
			return m.groups[i]
		}
	}
	return ""
}

// Submatch returns the i-th sub-capture.
func (m Match) Submatch(i int) string {
	if i < 0 || i >= len(m.groups) {
		return ""
	}
	return m.groups[i]
}

// ReplaceFunc returns the replacement text for a match. An error abandons the
// substitution for that match only.
type ReplaceFunc func(m Match) (string, error)

// Rule pairs a pattern with its replacement function.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace ReplaceFunc
}

// Failure describes a replacement function that returned an error.
type Failure struct {
	Rule   string
	Match  string
	Offset int // Offset of the match in the original text when a map was supplied.
	Err    error
}

// Result is the outcome of Apply.
type Result struct {
	Text     string
	Passes   [][]textmap.Change
	Failures []Failure
}

// Replace runs one pattern over text left to right, non-overlapping. Failed
// matches are left untouched and reported with their pass-local offset.
func Replace(text string, re *regexp.Regexp, fn ReplaceFunc) (string, []textmap.Change, []Failure) {
	locs := re.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text, nil, nil
	}

	names := re.SubexpNames()
	var (
		sb       strings.Builder
		changes  []textmap.Change
		failures []Failure
		last     int
	)
	sb.Grow(len(text))

	for _, loc := range locs {
		m := Match{
			Text:   text[loc[0]:loc[1]],
			Start:  loc[0],
			names:  names,
			groups: make([]string, len(names)),
		}
		for i := range names {
			if s, e := loc[2*i], loc[2*i+1]; s >= 0 {
				m.groups[i] = text[s:e]
			}
		}

		repl, err := fn(m)
		if err != nil {
			failures = append(failures, Failure{Match: m.Text, Offset: m.Start, Err: err})
			continue
		}

		sb.WriteString(text[last:loc[0]])
		sb.WriteString(repl)
		last = loc[1]
		if repl != m.Text {
			changes = append(changes, textmap.Change{Start: loc[0], Length: loc[1] - loc[0], Replacement: repl})
		}
	}
	sb.WriteString(text[last:])
	return sb.String(), changes, failures
}

// Apply runs each rule once over the current text state. When tm is non-nil
// every pass is folded into it and failure offsets are translated to the
// original text.
func Apply(text string, tm *textmap.Map, rules ...Rule) Result {
	res := Result{Text: text}
	for _, r := range rules {
		out, changes, failures := Replace(res.Text, r.Pattern, r.Replace)
		for _, f := range failures {
			f.Rule = r.Name
			f.Offset = tm.MapOffset(f.Offset)
			res.Failures = append(res.Failures, f)
		}
		if tm != nil {
			tm.ApplyChanges(changes)
		}
		res.Passes = append(res.Passes, changes)
		res.Text = out
	}
	return res
}
