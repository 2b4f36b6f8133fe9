package diag

import (
	"encoding/json"
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestPosition(t *testing.T) {
	src := "ab\ncd\n\nef"
	tests := []struct {
		offset int
		line   int
		col    int
	}{
		{0, 1, 1},
		{1, 1, 2},
		{3, 2, 1},
		{4, 2, 2},
		{7, 4, 1},
		{100, 4, 3},
		{NoOffset, 0, 0},
	}
	for _, tt := range tests {
		line, col := Position(src, tt.offset)
		if line != tt.line || col != tt.col {
			t.Errorf("Position(%d) = %d:%d, want %d:%d", tt.offset, line, col, tt.line, tt.col)
		}
	}
}

func TestList_HasErrors(t *testing.T) {
	var l List
	l.Add(Diagnostic{Severity: Info, Message: "a"})
	l.Add(Diagnostic{Severity: Warning, Message: "b"})
	if l.HasErrors() {
		t.Error("expected no errors")
	}
	l.Add(Diagnostic{Severity: Error, Message: "c"})
	if !l.HasErrors() {
		t.Error("expected errors")
	}
	if l.Len() != 3 || l.Items()[2].Message != "c" {
		t.Errorf("unexpected items %v", l.Items())
	}
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{Severity: Warning, Message: "boom", Path: "a/b.md", Line: 3, Column: 4}
	if got := d.String(); got != "a/b.md:3:4: warning: boom" {
		t.Errorf("unexpected string %q", got)
	}
	d = Diagnostic{Severity: Error, Message: "bare"}
	if got := d.String(); got != "error: bare" {
		t.Errorf("unexpected string %q", got)
	}
}

func TestSeverity_JSON(t *testing.T) {
	b, err := json.Marshal(Diagnostic{Severity: Error, Message: "x", Offset: NoOffset})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"severity":"error"`) {
		t.Errorf("expected named severity, got %s", b)
	}
}

func TestMessages_Text(t *testing.T) {
	m := NewMessages(language.English)
	if got := m.Text(MsgMissingMetadata, "title"); got != `Missing metadata "title"` {
		t.Errorf("unexpected message %q", got)
	}

	// Unsupported languages fall back to the English catalog.
	de := NewMessages(language.German)
	if got := de.Text(MsgUnknownVariable, "foo"); got != `Unknown variable "foo"` {
		t.Errorf("unexpected fallback message %q", got)
	}

	var nilMessages *Messages
	if got := nilMessages.Text(MsgEmptyInclude); got != "Include tag has an empty path" {
		t.Errorf("unexpected default message %q", got)
	}
}
