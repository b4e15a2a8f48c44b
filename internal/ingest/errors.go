package ingest

import (
	"fmt"

	"github.com/shotbox/shotbox/internal/model"
)

// ValidationError reports bad input shape: caption length, missing or
// near-empty source file, out-of-range image dimensions. User-visible, never
// retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + e.Reason
}

// DuplicateError reports that the caption's normalized key matches recent
// submissions. Recoverable: callers may present the matches as a choice.
type DuplicateError struct {
	Matches []*model.Shot
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate submission: %d recent shot(s) share the same normalized caption", len(e.Matches))
}

// ProcessingError reports a codec or filesystem failure during derivative
// generation. The partial derivative set has been cleaned up; the whole
// submission is safe to retry.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string {
	return "derivative generation failed: " + e.Err.Error()
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// StoreError reports a persistence failure after derivative generation. The
// derivative files have been cleaned up.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return "persisting shot failed: " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }
