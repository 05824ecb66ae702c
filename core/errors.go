package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter marks malformed or out-of-domain inputs.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNumericalInstability marks a singular or ill-conditioned system.
	ErrNumericalInstability = errors.New("numerical instability")
)

// InvalidParameterError reports which input was rejected and why.
type InvalidParameterError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidParameter).
func (e *InvalidParameterError) Unwrap() error { return ErrInvalidParameter }

// NumericalInstabilityError is returned when the normal equations of an
// iteration cannot be solved reliably. It is terminal for the solve call.
type NumericalInstabilityError struct {
	Iteration int
	Condition float64
	Reason    string
}

func (e *NumericalInstabilityError) Error() string {
	if e.Condition > 0 {
		return fmt.Sprintf("numerical instability at iteration %d: %s (condition %.3g)", e.Iteration, e.Reason, e.Condition)
	}
	return fmt.Sprintf("numerical instability at iteration %d: %s", e.Iteration, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrNumericalInstability).
func (e *NumericalInstabilityError) Unwrap() error { return ErrNumericalInstability }

func invalid(field string, value any, reason string) error {
	return &InvalidParameterError{Field: field, Value: value, Reason: reason}
}
