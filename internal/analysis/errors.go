package analysis

import "fmt"

// EmptyDatasetError indicates no valid rows remained after skipping.
type EmptyDatasetError struct {
	Skipped int
}

func (e *EmptyDatasetError) Error() string {
	if e == nil || e.Skipped == 0 {
		return "dataset is empty: no valid rows"
	}
	return fmt.Sprintf("dataset is empty: no valid rows (%d skipped)", e.Skipped)
}

// DegenerateInputError indicates correlation is undefined for the input,
// either because a variable has zero variance or there are too few points.
type DegenerateInputError struct {
	Reason string
}

func (e *DegenerateInputError) Error() string {
	if e == nil || e.Reason == "" {
		return "correlation undefined"
	}
	return fmt.Sprintf("correlation undefined: %s", e.Reason)
}
