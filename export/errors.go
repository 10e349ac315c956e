package export

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplate marks an unreadable or corrupt template, or one without a usable layout.
	ErrTemplate = errors.New("invalid presentation template")
	// ErrOutput marks a failure to write the presentation to its destination.
	ErrOutput = errors.New("cannot write presentation")
	// ErrNoLayouts is returned when a template defines fewer layouts than the fallback index needs.
	ErrNoLayouts = errors.New("template has no usable slide layout")
)

// RenderError is the IO failure surfaced by the renderer.
type RenderError struct {
	Op   string
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("render %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("render %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func templateError(path string, err error) error {
	return &RenderError{Op: "template", Path: path, Err: fmt.Errorf("%w: %w", ErrTemplate, err)}
}

func outputError(path string, err error) error {
	return &RenderError{Op: "output", Path: path, Err: fmt.Errorf("%w: %w", ErrOutput, err)}
}
