package metadata

import (
	"fmt"
	"regexp"

	"github.com/dgallion1/emdoc/internal/diag"
	"github.com/dgallion1/emdoc/internal/rewrite"
	"github.com/dgallion1/emdoc/internal/textmap"
)

var variablePattern = regexp.MustCompile(`%(?P<name>[A-Za-z][A-Za-z0-9_-]*)%`)

// SubstituteVariables replaces %key% references with the rendered value list
// of that metadata key. Unknown references stay in place and are reported.
func (m *Manager) SubstituteVariables(text string, tm *textmap.Map) (string, []diag.Diagnostic) {
	rule := rewrite.Rule{
		Name:    "variables",
		Pattern: variablePattern,
		Replace: func(match rewrite.Match) (string, error) {
			v, ok := m.Variable(match.Group("name"))
			if !ok {
				return "", fmt.Errorf("unknown variable %q", match.Group("name"))
			}
			return v, nil
		},
	}

	res := rewrite.Apply(text, tm, rule)

	var diags []diag.Diagnostic
	for _, f := range res.Failures {
		name := variablePattern.FindStringSubmatch(f.Match)[1]
		diags = append(diags, diag.Diagnostic{
			Severity: diag.Warning,
			Message:  m.messages.Text(diag.MsgUnknownVariable, name),
			Key:      name,
			Offset:   f.Offset,
		})
	}
	return res.Text, diags
}
