/*
errors.go - Error types for payment allocation

ERROR CATEGORIES:
  1. Lookup errors - Missing payees/payments
  2. Validation errors - Manual-allocation total mismatch
  3. Concurrency errors - Two allocation attempts racing on one payee

PROPAGATION:
  Validation errors surface to the caller as user-visible messages.
  Persistence failures roll back entirely; partial allocation state is never
  reported as success.
*/
package payments

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/crewpay/payroll-engine/earnings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPayeeNotFound is returned when the payee has no active assignment.
	ErrPayeeNotFound = errors.New("payee not found")

	// ErrNoPendingEarnings indicates nothing is outstanding for the payee.
	// Returned by FIFO preview as a pre-check; recording a payment anyway
	// is still allowed and leaves it unallocated.
	ErrNoPendingEarnings = errors.New("no pending earnings")

	// ErrAllocationMismatch is returned when manual-allocation targets don't
	// sum to the payment amount.
	ErrAllocationMismatch = errors.New("allocation total does not match payment amount")

	// ErrConcurrentModification is returned when a racing allocation changed
	// a record's balance between read and write. Safe to retry.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrPaymentNotFound is returned when a referenced payment doesn't exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrInvalidAmount is returned for zero or negative payment amounts.
	ErrInvalidAmount = errors.New("payment amount must be positive")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// AllocationMismatchError reports the exact totals that failed to reconcile.
type AllocationMismatchError struct {
	PaymentAmount decimal.Decimal
	TargetTotal   decimal.Decimal
}

func (e *AllocationMismatchError) Error() string {
	return fmt.Sprintf("manual allocation targets total %s but payment amount is %s",
		e.TargetTotal, e.PaymentAmount)
}

func (e *AllocationMismatchError) Unwrap() error {
	return ErrAllocationMismatch
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAllocationMismatch) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, earnings.ErrInvalidRateConfiguration) ||
		errors.Is(err, earnings.ErrDuplicateEarningPeriod) ||
		errors.Is(err, earnings.ErrEarningsMismatch)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPayeeNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, earnings.ErrEarningNotFound) ||
		errors.Is(err, earnings.ErrAssignmentNotFound)
}
