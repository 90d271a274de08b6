/*
record.go - Earning record builder

PURPOSE:
  Combines the rate calculator and bonus splitter into one immutable earning
  record per (assignment, pay period), with the initial paid/pending balance
  the payment allocator will operate on.

RECONCILIATION INVARIANT:
  contractor_total_earnings + company_margin == client_gross_pay
  amount_paid + amount_pending == contractor_total_earnings

IDEMPOTENCY:
  The builder itself is pure; the store enforces one record per
  (assignment, pay period). Rebuilding an existing record is rejected there,
  so allocations can never be orphaned by a recomputation.

SEE ALSO:
  - rate.go, bonus.go: The two calculations combined here
  - payments/allocator.go: The only mutator of paid/pending
*/
package earnings

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// reconcileTolerance allows for per-line rounding when checking that
// contractor total + margin matches client gross.
var reconcileTolerance = MustDecimal("0.02")

// BuildRecord computes a new earning record from an assignment and paystub.
// Lines are normalized first, so paystubs whose parser supplies no bonus
// flags or multipliers still compute correctly (see NormalizeLines).
//
// The record's AmountPaid starts at zero and AmountPending at the full total.
// A zero-dollar record starts as paid (see StatusFor).
func BuildRecord(a Assignment, p Paystub) (*Record, error) {
	lines := NormalizeLines(p.Lines)

	regular, err := ComputeRegular(a, lines)
	if err != nil {
		return nil, err
	}
	bonus := SplitBonus(lines, a.BonusSplitPercentage)

	total := regular.Total.Add(bonus.ContractorShare)
	margin := p.ClientGrossPay.Sub(total)

	rec := &Record{
		AssignmentID:     a.ID,
		Payee:            a.Payee,
		PayPeriodBegin:   p.PayPeriodBegin,
		PayPeriodEnd:     p.PayPeriodEnd,
		ClientGrossPay:   RoundCents(p.ClientGrossPay),
		ClientTotalHours: regular.TotalHours,
		RegularEarnings:  regular.Total,
		BonusShare:       bonus.ContractorShare,
		TotalEarnings:    total,
		CompanyMargin:    RoundCents(margin),
		AmountPaid:       decimal.Zero,
		AmountPending:    total,
		Status:           StatusFor(total, decimal.Zero),
		RegularBreakdown: regular,
		CreatedAt:        time.Now().UTC(),
	}
	if !bonus.Empty() {
		rec.BonusBreakdown = &bonus
	}
	return rec, nil
}

// ValidateRecord sanity-checks a computed record against the client gross.
// Allows a 2 cent tolerance for per-line rounding.
func ValidateRecord(r *Record) error {
	check := r.TotalEarnings.Add(r.CompanyMargin)
	if check.Sub(r.ClientGrossPay).Abs().GreaterThan(reconcileTolerance) {
		return ErrEarningsMismatch
	}
	return nil
}

// =============================================================================
// STORE CONTRACTS
// =============================================================================

// AssignmentStore persists assignments.
type AssignmentStore interface {
	// SaveAssignment inserts or updates the assignment. A missing ID is
	// generated and written back to a.
	SaveAssignment(ctx context.Context, a *Assignment) error
	GetAssignment(ctx context.Context, id string) (*Assignment, error)

	// GetActiveAssignments returns the payee's active assignments.
	// Empty result means the payee is unknown or fully ended.
	GetActiveAssignments(ctx context.Context, payee PayeeRef) ([]Assignment, error)

	// EndAssignment closes an assignment in place.
	EndAssignment(ctx context.Context, id string, date time.Time, reason string) error
}

// RecordStore persists earning records.
//
// SaveRecord enforces uniqueness on (assignment, pay period begin, end) and
// returns ErrDuplicateEarningPeriod on conflict. Paid/pending/status are
// written only by the payment ledger's recomputation, never directly.
type RecordStore interface {
	SaveRecord(ctx context.Context, r *Record) error
	GetRecordByID(ctx context.Context, id string) (*Record, error)
	GetRecordsByIDs(ctx context.Context, ids []string) ([]*Record, error)

	// PendingRecords returns records with amount_pending > 0 for the payee,
	// sorted oldest first by pay period begin, ties broken by pay period end
	// then record ID. This IS the FIFO order; no caller re-sorts.
	PendingRecords(ctx context.Context, payee PayeeRef) ([]*Record, error)

	// ListRecords returns all records for the payee, newest period first.
	ListRecords(ctx context.Context, payee PayeeRef) ([]*Record, error)

	// ListAllRecords returns records across all payees, newest period first,
	// optionally filtered by payment status ("" means no filter).
	ListAllRecords(ctx context.Context, status PaymentStatus) ([]*Record, error)
}
