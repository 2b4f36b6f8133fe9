package templates

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplateNotFound indicates no template resource exists for a name.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrTemplateLoad indicates a template resource exists but could not be read or parsed.
	ErrTemplateLoad = errors.New("template load failed")
)

// NotFoundError reports a missing template resource.
type NotFoundError struct {
	Name string
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template %q not found at %s", e.Name, e.Path)
}

func (e *NotFoundError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrTemplateNotFound, e.Err}
	}
	return []error{ErrTemplateNotFound}
}

// LoadError reports a template that could not be read or parsed.
type LoadError struct {
	Name string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load template %q from %s: %v", e.Name, e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrTemplateLoad, e.Err}
}
