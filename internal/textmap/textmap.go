// Package textmap tracks how chained text rewrites shift offsets so that a
// position in transformed text can be mapped back to the original source.
package textmap

import (
	"cmp"
	"slices"
)

// Change records one substitution: the span [Start, Start+Length) of the
// pass input was replaced by Replacement.
type Change struct {
	Start       int
	Length      int
	Replacement string
}

// End returns the offset just past the replaced span in the pass input.
func (c Change) End() int { return c.Start + c.Length }

// Delta is the length difference the change introduces.
func (c Change) Delta() int { return len(c.Replacement) - c.Length }

// Map folds batches of changes, one batch per rewrite pass, into an offset
// translation table. The zero value is an identity map.
type Map struct {
	passes [][]Change
}

// New returns an empty map.
func New() *Map { return &Map{} }

// ApplyChanges appends one pass. Changes are expressed in the coordinates of
// the text the pass was run on and must not overlap.
func (m *Map) ApplyChanges(changes []Change) {
	if len(changes) == 0 {
		return
	}
	pass := slices.Clone(changes)
	slices.SortStableFunc(pass, func(a, b Change) int { return cmp.Compare(a.Start, b.Start) })
	m.passes = append(m.passes, pass)
}

// Passes reports how many non-empty passes have been folded in.
func (m *Map) Passes() int { return len(m.passes) }

// MapOffset translates pos in the current text to the original text. A
// position inside a replacement maps to the start of the span it replaced.
func (m *Map) MapOffset(pos int) int {
	if m == nil {
		return pos
	}
	for i := len(m.passes) - 1; i >= 0; i-- {
		pos = mapThrough(m.passes[i], pos)
	}
	return pos
}

func mapThrough(pass []Change, pos int) int {
	delta := 0
	for _, c := range pass {
		outStart := c.Start + delta
		if pos < outStart {
			break
		}
		if pos < outStart+len(c.Replacement) {
			return c.Start
		}
		delta += c.Delta()
	}
	return pos - delta
}
