package element

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse indicates a structural error that cannot be recovered locally.
	ErrParse = errors.New("parse error")
	// ErrCyclicInclude indicates an include chain that revisits a document.
	ErrCyclicInclude = errors.New("cyclic include")
)

// ParseError reports a fatal structural problem in a document.
type ParseError struct {
	Tag    string
	Name   string
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %q at offset %d: %s", e.Tag, e.Name, e.Offset, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// CyclicIncludeError carries the include chain that closed the cycle.
type CyclicIncludeError struct {
	Chain []string
}

func (e *CyclicIncludeError) Error() string {
	return "cyclic include: " + strings.Join(e.Chain, " -> ")
}

func (e *CyclicIncludeError) Unwrap() error { return ErrCyclicInclude }
