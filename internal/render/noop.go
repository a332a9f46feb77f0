package render

import (
	"context"
	"errors"
)

// Noop implements Renderer but always returns an error to indicate that
// headless rendering is not available in the current run.
type Noop struct{}

// NewNoop creates a new Noop renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// RenderPDF returns an error since this is a stub implementation.
func (Noop) RenderPDF(context.Context, string) ([]byte, error) {
	return nil, errors.New("renderer not configured")
}

// Close implements the Renderer interface; it performs no action.
func (Noop) Close() {}
