package element

import "strings"

// stripIndent removes prefix from the start of every line that has it.
func stripIndent(s, prefix string) string {
	if prefix == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimPrefix(l, prefix)
	}
	return strings.Join(lines, "\n")
}

func isBlank(s string) bool { return strings.Trim(s, " \t\r") == "" }

// trimEdges drops the line break that ends the opening tag line and the one
// before the closing tag, then at most one blank line at each end.
func trimEdges(s string) string {
	s = strings.TrimPrefix(s, "\n")
	if i := strings.IndexByte(s, '\n'); i >= 0 && isBlank(s[:i]) {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 && isBlank(s[i+1:]) {
		s = s[:i]
	}
	return s
}

// outdent removes the leading whitespace shared by all non-blank lines.
func outdent(s string) string {
	lines := strings.Split(s, "\n")
	common := -1
	for _, l := range lines {
		if isBlank(l) {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if common < 0 || n < common {
			common = n
		}
	}
	if common <= 0 {
		return s
	}
	for i, l := range lines {
		if len(l) >= common && strings.Trim(l[:common], " \t") == "" {
			lines[i] = l[common:]
		} else {
			lines[i] = strings.TrimLeft(l, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

// dedentLiteral prepares literal parameter content.
func dedentLiteral(content, indent string, multiline bool) string {
	if !multiline {
		return strings.TrimSpace(content)
	}
	return outdent(trimEdges(stripIndent(content, indent)))
}
