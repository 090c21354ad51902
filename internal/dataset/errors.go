package dataset

import "fmt"

// DataLoadError indicates the input could not be turned into a Dataset:
// the file is absent or unreadable, malformed, or lacks required columns.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	if e == nil {
		return "data load failed"
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }
