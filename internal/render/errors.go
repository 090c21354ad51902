package render

import "fmt"

// RenderError indicates the chart image could not be produced or written.
// Output written before the failure, such as the text report, stays valid.
type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	if e == nil {
		return "render failed"
	}
	return fmt.Sprintf("render %s: %v", e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
