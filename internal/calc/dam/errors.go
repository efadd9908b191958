package dam

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a design input outside its physical range.
	ErrInvalidInput = errors.New("dam: invalid input")

	// ErrDegenerateGeometry is returned when the base width collapses (B <= Epsilon).
	ErrDegenerateGeometry = errors.New("dam: degenerate geometry")

	// ErrNumericDivergence is returned when the loss or a derived quantity
	// becomes NaN or Inf.
	ErrNumericDivergence = errors.New("dam: numeric divergence")

	// ErrCanceled is returned when the caller's context ends before the budget is spent.
	ErrCanceled = errors.New("dam: optimization canceled")
)

// InputError names the field that failed validation.
type InputError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s=%g outside [%g, %g]", ErrInvalidInput, e.Field, e.Value, e.Min, e.Max)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// DivergenceError carries the partial result assembled from the last finite step.
type DivergenceError struct {
	Epoch  int
	Result *Result
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("%s at epoch %d", ErrNumericDivergence, e.Epoch)
}

func (e *DivergenceError) Unwrap() error {
	return ErrNumericDivergence
}
