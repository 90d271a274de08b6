/*
ledger.go - Payment ledger persistence contract

PURPOSE:
  The Ledger is the persistence boundary for payments and their allocation
  line items. Earning record balances are never written directly: the ledger
  recomputes each affected record's paid/pending/status by re-summing its
  remaining allocations after every write or delete. Balances stay
  re-derivable from allocation rows alone.

CRITICAL INVARIANTS:
  1. ATOMIC: Payment + N allocations commit as one transaction or not at all
  2. IMMUTABLE: Payments are never edited; corrections delete the payment,
     which cascades to its allocations and re-derives affected balances
  3. SERIALIZED: Two allocation transactions against the same payee must not
     interleave; the store serializes writes so concurrent applies cannot
     both consume the same pending balance

SEE ALSO:
  - allocator.go: The sole producer of payments and allocations
  - store/sqlite: Production implementation
  - store/memory: In-memory implementation for tests
*/
package payments

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crewpay/payroll-engine/earnings"
)

// =============================================================================
// PAYMENT & ALLOCATION - Ledger rows
// =============================================================================

type PaymentMethod string

const (
	MethodDirectDeposit PaymentMethod = "direct_deposit"
	MethodCheck         PaymentMethod = "check"
	MethodCash          PaymentMethod = "cash"
	MethodWireTransfer  PaymentMethod = "wire_transfer"
	MethodOther         PaymentMethod = "other"
)

// Payment is one payee disbursement event. Immutable once created:
// delete-only, no edit, to preserve ledger integrity.
type Payment struct {
	ID                   string
	Payee                earnings.PayeeRef
	Amount               decimal.Decimal
	Method               PaymentMethod
	Date                 time.Time
	TransactionReference string
	Notes                string
	RecordedBy           string
	CreatedAt            time.Time
}

// Allocation records how much of a payment was applied to an earning record.
//
// INVARIANTS:
//   - Sum of AmountApplied per payment <= Payment.Amount
//   - Sum of AmountApplied per earning record == that record's AmountPaid
type Allocation struct {
	ID            string
	PaymentID     string
	EarningID     string
	AmountApplied decimal.Decimal
	CreatedAt     time.Time
}

// Meta carries the caller-supplied payment attributes common to all modes.
type Meta struct {
	Method               PaymentMethod
	Date                 time.Time
	TransactionReference string
	Notes                string
	RecordedBy           string
}

// =============================================================================
// LEDGER - Persistence boundary
// =============================================================================

// Ledger persists payments and allocations atomically and keeps earning
// record balances consistent with the allocation rows.
type Ledger interface {
	// RecordPayment writes the payment and its allocations as one
	// transaction, then recomputes each touched earning record's
	// paid/pending/status from the full allocation set.
	RecordPayment(ctx context.Context, p Payment, allocs []Allocation) (*Payment, error)

	// DeletePayment removes the payment, cascades to its allocations, and
	// recomputes every affected earning record from the remaining rows.
	DeletePayment(ctx context.Context, id string) error

	GetPayment(ctx context.Context, id string) (*Payment, error)
	ListPayments(ctx context.Context, payee earnings.PayeeRef, limit int) ([]*Payment, error)
	AllocationsForPayment(ctx context.Context, paymentID string) ([]Allocation, error)
}

// =============================================================================
// EARNINGS SUMMARY - Aggregate view per payee
// =============================================================================

// Summary aggregates a payee's earnings and payment state.
type Summary struct {
	TotalEarned      decimal.Decimal
	TotalPaid        decimal.Decimal
	TotalPending     decimal.Decimal
	EarningsCount    int
	OldestUnpaidDate *time.Time
}
