package rewrite

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dgallion1/emdoc/internal/textmap"
)

var varPattern = regexp.MustCompile(`%(?P<name>[a-z]+)%`)

func upperKnown(known ...string) ReplaceFunc {
	return func(m Match) (string, error) {
		name := m.Group("name")
		for _, k := range known {
			if k == name {
				return strings.ToUpper(name), nil
			}
		}
		return "", errors.New("unknown variable " + name)
	}
}

func TestReplace_RecordsChanges(t *testing.T) {
	out, changes, failures := Replace("a %x% b %yy%", varPattern, upperKnown("x", "yy"))

	if out != "a X b YY" {
		t.Errorf("unexpected output %q", out)
	}
	if len(failures) != 0 {
		t.Errorf("expected no failures, got %v", failures)
	}
	want := []textmap.Change{
		{Start: 2, Length: 3, Replacement: "X"},
		{Start: 8, Length: 4, Replacement: "YY"},
	}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestReplace_FailingMatchLeftUntouched(t *testing.T) {
	out, changes, failures := Replace("a %x% b %y% c %x%", varPattern, upperKnown("x"))

	if out != "a X b %y% c X" {
		t.Errorf("unexpected output %q", out)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if failures[0].Match != "%y%" || failures[0].Offset != 8 {
		t.Errorf("unexpected failure %+v", failures[0])
	}
}

func TestReplace_NoMatches(t *testing.T) {
	out, changes, failures := Replace("plain text", varPattern, upperKnown())
	if out != "plain text" || changes != nil || failures != nil {
		t.Errorf("expected untouched text, got %q %v %v", out, changes, failures)
	}
}

func TestReplace_IdentityReplacementRecordsNothing(t *testing.T) {
	same := func(m Match) (string, error) { return m.Text, nil }
	out, changes, _ := Replace("%a% %b%", varPattern, same)
	if out != "%a% %b%" {
		t.Errorf("unexpected output %q", out)
	}
	if len(changes) != 0 {
		t.Errorf("expected no change records, got %v", changes)
	}
}

func TestMatch_Groups(t *testing.T) {
	re := regexp.MustCompile(`(?P<key>\w+):(?P<value>\w*)(?P<opt>!)?`)
	var got Match
	Replace("k:v", re, func(m Match) (string, error) {
		got = m
		return "", nil
	})
	if got.Group("key") != "k" || got.Group("value") != "v" {
		t.Errorf("unexpected groups %q %q", got.Group("key"), got.Group("value"))
	}
	if got.Group("opt") != "" || got.Group("missing") != "" {
		t.Error("expected empty for non-participating or unknown group")
	}
	if got.Submatch(0) != "k:v" || got.Submatch(9) != "" {
		t.Errorf("unexpected submatches")
	}
}

func TestApply_ChainsPassesIntoMap(t *testing.T) {
	original := "--a %x%"
	tm := textmap.New()

	dashes := Rule{
		Name:    "dashes",
		Pattern: regexp.MustCompile(`^--`),
		Replace: func(Match) (string, error) { return "", nil },
	}
	vars := Rule{Name: "vars", Pattern: varPattern, Replace: upperKnown()}

	res := Apply(original, tm, dashes, vars)

	if res.Text != "a %x%" {
		t.Errorf("unexpected text %q", res.Text)
	}
	if len(res.Passes) != 2 {
		t.Fatalf("expected 2 passes, got %d", len(res.Passes))
	}
	if tm.Passes() != 1 {
		t.Errorf("expected only the non-empty pass in the map, got %d", tm.Passes())
	}
	if len(res.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(res.Failures))
	}
	f := res.Failures[0]
	if f.Rule != "vars" {
		t.Errorf("expected failure attributed to vars, got %q", f.Rule)
	}
	if original[f.Offset:f.Offset+3] != "%x%" {
		t.Errorf("failure offset %d does not point at the original match", f.Offset)
	}
	if tm.MapOffset(0) != 2 {
		t.Errorf("expected offset 0 to map to 2, got %d", tm.MapOffset(0))
	}
}
