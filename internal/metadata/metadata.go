// Package metadata extracts the leading "key: value" header block from a
// document, validates it and keeps the values for lookup and templating.
package metadata

import (
	"regexp"
	"slices"
	"strings"
	"text/template"

	"github.com/dgallion1/emdoc/internal/diag"
	"github.com/dgallion1/emdoc/internal/rewrite"
	"github.com/dgallion1/emdoc/internal/textmap"
)

const metaRow = `[a-zA-Z0-9][0-9a-zA-Z _-]*[ ]*:[ ]*.*`

var (
	headerPattern = regexp.MustCompile(`\A(?:` + metaRow + `\n?)+(?:\n+|\z)`)
	rowPattern    = regexp.MustCompile(`^(?P<key>[a-zA-Z0-9][0-9a-zA-Z _-]*?)[ ]*:[ ]*(?P<value>.*)$`)
)

// UniqueKeys may appear at most once; later occurrences are discarded.
var UniqueKeys = map[string]bool{
	"title":               true,
	"description":         true,
	"template":            true,
	"force-publish-files": true,
	"forcepublishfiles":   true,
}

var listTemplate = template.Must(template.New("metadata-list").Parse(
	`{{range $i, $v := .}}{{if $i}}, {{end}}{{$v}}{{end}}`))

// Rules names the keys whose absence is reported.
type Rules struct {
	Required      []string `yaml:"required"`
	Informational []string `yaml:"informational"`
}

// Manager holds the metadata of one document. It is populated once by
// Extract and read-only afterwards.
type Manager struct {
	rules    Rules
	messages *diag.Messages

	values    map[string][]string
	order     []string
	variables map[string]string

	title   string
	crumbs  []string
	related []string
}

// NewManager creates an empty manager.
func NewManager(rules Rules, messages *diag.Messages) *Manager {
	return &Manager{
		rules:     rules,
		messages:  messages,
		values:    make(map[string][]string),
		variables: make(map[string]string),
	}
}

// Extract strips the header block from text, records its rows and folds the
// removal into tm. Diagnostic offsets refer to the original text. Missing
// required and informational keys are only reported when checkMissing is set.
func (m *Manager) Extract(text string, tm *textmap.Map, checkMissing bool) (string, []diag.Diagnostic) {
	var diags []diag.Diagnostic

	header := rewrite.Rule{
		Name:    "metadata",
		Pattern: headerPattern,
		Replace: func(match rewrite.Match) (string, error) {
			offset := match.Start
			for _, line := range strings.SplitAfter(match.Text, "\n") {
				row := rowPattern.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
				if row != nil {
					diags = append(diags, m.addRow(row[1], row[2], tm.MapOffset(offset))...)
				}
				offset += len(line)
			}
			return "", nil
		},
	}
	res := rewrite.Apply(text, tm, header)

	if checkMissing {
		for _, key := range m.rules.Required {
			if !m.Contains(key) {
				diags = append(diags, diag.Diagnostic{
					Severity: diag.Error,
					Message:  m.messages.Text(diag.MsgMissingMetadata, key),
					Key:      key,
					Offset:   diag.NoOffset,
				})
			}
		}
		for _, key := range m.rules.Informational {
			if !m.Contains(key) {
				diags = append(diags, diag.Diagnostic{
					Severity: diag.Info,
					Message:  m.messages.Text(diag.MsgMissingMetadata, key),
					Key:      key,
					Offset:   diag.NoOffset,
				})
			}
		}
	}

	for _, key := range m.order {
		var sb strings.Builder
		if err := listTemplate.Execute(&sb, m.values[key]); err == nil {
			m.variables[key] = strings.TrimSpace(sb.String())
		}
	}

	return res.Text, diags
}

func (m *Manager) addRow(key, value string, offset int) []diag.Diagnostic {
	var diags []diag.Diagnostic
	value = strings.TrimRight(value, " \t\r")

	if strings.ContainsAny(key, " \t") {
		diags = append(diags, diag.Diagnostic{
			Severity: diag.Warning,
			Message:  m.messages.Text(diag.MsgMetadataNameSpaces, key),
			Key:      key,
			Offset:   offset,
		})
	}

	lower := strings.ToLower(key)
	_, seen := m.values[lower]

	if UniqueKeys[lower] && seen {
		return append(diags, diag.Diagnostic{
			Severity: diag.Warning,
			Message:  m.messages.Text(diag.MsgDuplicateMetadata, key),
			Key:      key,
			Offset:   offset,
		})
	}

	if strings.TrimSpace(value) != "" {
		switch lower {
		case "title":
			m.title = value
		case "crumbs":
			m.crumbs = append(m.crumbs, value)
		case "related":
			m.related = append(m.related, value)
		}
	}

	if !seen {
		m.order = append(m.order, lower)
	}
	m.values[lower] = append(m.values[lower], value)
	return diags
}

// Contains reports whether key was present. Keys are case-insensitive.
func (m *Manager) Contains(key string) bool {
	_, ok := m.values[strings.ToLower(key)]
	return ok
}

// Get returns the values recorded for key in encounter order.
func (m *Manager) Get(key string) []string {
	return slices.Clone(m.values[strings.ToLower(key)])
}

// Keys returns the lower-cased keys in first-encounter order.
func (m *Manager) Keys() []string {
	return slices.Clone(m.order)
}

// Map returns a copy of the whole store.
func (m *Manager) Map() map[string][]string {
	out := make(map[string][]string, len(m.values))
	for k, v := range m.values {
		out[k] = slices.Clone(v)
	}
	return out
}

// Variables returns the rendered "X, Y, Z" value list per key.
func (m *Manager) Variables() map[string]string {
	out := make(map[string]string, len(m.variables))
	for k, v := range m.variables {
		out[k] = v
	}
	return out
}

// Variable returns the rendered value list for key.
func (m *Manager) Variable(key string) (string, bool) {
	v, ok := m.variables[strings.ToLower(key)]
	return v, ok
}

// Title is the first non-blank title value.
func (m *Manager) Title() string { return m.title }

// Crumbs are the breadcrumb labels in encounter order.
func (m *Manager) Crumbs() []string { return slices.Clone(m.crumbs) }

// Related are the related-link references in encounter order.
func (m *Manager) Related() []string { return slices.Clone(m.related) }
