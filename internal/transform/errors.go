package transform

import "fmt"

// TransformationError reports a failure while fitting or applying the
// preprocessing pipeline. Step names the sub-step that failed.
type TransformationError struct {
	Step string
	Err  error
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("transformation failed at %s: %v", e.Step, e.Err)
}

func (e *TransformationError) Unwrap() error { return e.Err }

// UnseenLabelError reports a target value that the label encoder never saw
// while fitting.
type UnseenLabelError struct {
	Column string
	Value  string
}

func (e *UnseenLabelError) Error() string {
	return fmt.Sprintf("unseen label %q in column %s", e.Value, e.Column)
}
