package sim

import (
	"errors"
	"fmt"
)

// ErrDivisionByZero is matched by every *DivisionByZeroError via errors.Is.
var ErrDivisionByZero = errors.New("division by zero")

// ConfigurationError reports a construction parameter that violates the
// model's structural invariants. A simulator is never built from such a config.
type ConfigurationError struct {
	Field  string
	Reason string
}

func newConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// DivisionByZeroError is returned when occupancy probabilities are requested
// for a run whose clock never advanced.
type DivisionByZeroError struct {
	Quantity string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("cannot compute %s: elapsed simulated time is zero", e.Quantity)
}

// Is lets errors.Is(err, ErrDivisionByZero) match.
func (e *DivisionByZeroError) Is(target error) bool {
	return target == ErrDivisionByZero
}
