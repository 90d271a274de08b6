/*
errors.go - Error types for earnings computation

PURPOSE:
  Centralized errors for this package. The payments package defines its own
  allocation errors; both follow the same sentinel + structured-error shape.

USAGE:
  if errors.Is(err, earnings.ErrInvalidRateConfiguration) { ... }
*/
package earnings

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRateConfiguration is returned when an assignment's rate_type
	// does not match which rate field is populated.
	ErrInvalidRateConfiguration = errors.New("invalid rate configuration")

	// ErrDuplicateEarningPeriod is returned when building a record for an
	// (assignment, pay period) pair that already has one. Rebuilding would
	// silently orphan any allocations referencing the existing record.
	ErrDuplicateEarningPeriod = errors.New("earning record already exists for pay period")

	// ErrEarningNotFound is returned when a referenced earning record doesn't exist.
	ErrEarningNotFound = errors.New("earning record not found")

	// ErrAssignmentNotFound is returned when a referenced assignment doesn't exist.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrEarningsMismatch is returned when contractor total + company margin
	// fails to reconcile with the client gross pay.
	ErrEarningsMismatch = errors.New("earnings do not reconcile with client gross")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRateConfigError reports which assignment has a broken rate setup.
type InvalidRateConfigError struct {
	AssignmentID string
	RateType     RateType
	Detail       string
}

func (e *InvalidRateConfigError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid rate configuration for assignment %s (%s): %s",
			e.AssignmentID, e.RateType, e.Detail)
	}
	return fmt.Sprintf("invalid rate configuration for assignment %s: rate_type %q does not match populated rate fields",
		e.AssignmentID, e.RateType)
}

func (e *InvalidRateConfigError) Unwrap() error {
	return ErrInvalidRateConfiguration
}
