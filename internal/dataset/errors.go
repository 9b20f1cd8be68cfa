package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrEmptyDataset indicates an absent or zero-row input.
	ErrEmptyDataset = errors.New("dataset is empty")
)

// ValidationError is a fatal input-contract violation for a stage.
type ValidationError struct {
	Stage  string
	Column string
	Row    int // -1 when the problem is not tied to a record
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := e.Stage + ": " + e.Reason
	if e.Column != "" {
		msg = fmt.Sprintf("%s: column %q: %s", e.Stage, e.Column, e.Reason)
	}
	if e.Row >= 0 {
		msg = fmt.Sprintf("%s (row %d)", msg, e.Row)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate rejects a nil or empty dataset.
func Validate(stage string, d *Dataset) error {
	if d == nil || len(d.Rows) == 0 || len(d.Columns) == 0 {
		return &ValidationError{Stage: stage, Row: -1, Reason: "no records to process", Err: ErrEmptyDataset}
	}
	return nil
}

// Require fails with a ValidationError naming the first absent column.
func Require(stage string, d *Dataset, cols ...string) error {
	if err := Validate(stage, d); err != nil {
		return err
	}
	for _, c := range cols {
		if !d.Has(c) {
			return &ValidationError{Stage: stage, Column: c, Row: -1, Reason: "required column is missing"}
		}
	}
	return nil
}

// Skip records an optional computation that could not run.
type Skip struct {
	Computation string `json:"computation"`
	Reason      string `json:"reason"`
}

// MissingColumn builds the common Skip for an absent source column.
func MissingColumn(computation, col string) Skip {
	return Skip{Computation: computation, Reason: fmt.Sprintf("column %q not present", col)}
}

// Result is either a computed value or the reason it was skipped.
type Result[T any] struct {
	Value   T
	Skipped *Skip
}

// Computed wraps a value.
func Computed[T any](v T) Result[T] { return Result[T]{Value: v} }

// Skipped wraps a skip reason.
func Skipped[T any](s Skip) Result[T] { return Result[T]{Skipped: &s} }

// OK reports whether the value was computed.
func (r Result[T]) OK() bool { return r.Skipped == nil }

// Capability checks that every column a computation reads is present.
func Capability[T any](d *Dataset, computation string, cols []string, fn func() T) Result[T] {
	for _, c := range cols {
		if !d.Has(c) {
			return Skipped[T](MissingColumn(computation, c))
		}
	}
	return Computed(fn())
}
