/*
allocator.go - FIFO and manual payment allocation

PURPOSE:
  Distributes an incoming payment across a payee's outstanding earning
  records. Two modes:

  FIFO:   Oldest pay period first. Never overpays a record; any excess beyond
          the total pending balance stays unallocated (the Payment row still
          records the full disbursed amount).
  Manual: Caller names exact (earning, amount) targets. Targets must sum to
          the payment amount. Manual mode may overpay a record, which drives
          it to overpaid status with a negative pending balance.

DETERMINISM:
  Preview and apply share one pure allocation walk over one sorted record
  list (pay period begin, then end, then record ID), so a preview is always
  exactly what apply would persist given unchanged state.

CORRECTIONS:
  There is no "unpay". Deleting a payment cascades to its allocations and
  the ledger re-derives every affected record's balance from what remains.

SEE ALSO:
  - ledger.go: Persistence contract and row types
  - earnings/record.go: RecordStore's FIFO ordering guarantee
*/
package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crewpay/payroll-engine/earnings"
)

// =============================================================================
// PREVIEW ITEM - One row of an allocation projection
// =============================================================================

// PreviewItem shows how a payment would land on one earning record.
type PreviewItem struct {
	EarningID      string
	PayPeriodBegin time.Time
	PayPeriodEnd   time.Time
	CurrentPending decimal.Decimal
	WillAllocate   decimal.Decimal
	NewPending     decimal.Decimal
	FullyPaid      bool
}

// ManualTarget is one caller-chosen (earning record, amount) pair.
type ManualTarget struct {
	EarningID string
	Amount    decimal.Decimal
}

// =============================================================================
// ALLOCATOR
// =============================================================================

// Allocator applies payments to earning records. All persistence goes through
// the injected stores; the allocator holds no state of its own.
type Allocator struct {
	Assignments earnings.AssignmentStore
	Records     earnings.RecordStore
	Ledger      Ledger
}

func NewAllocator(assignments earnings.AssignmentStore, records earnings.RecordStore, ledger Ledger) *Allocator {
	return &Allocator{Assignments: assignments, Records: records, Ledger: ledger}
}

// verifyPayee confirms the payee has at least one active assignment.
func (al *Allocator) verifyPayee(ctx context.Context, payee earnings.PayeeRef) error {
	active, err := al.Assignments.GetActiveAssignments(ctx, payee)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return ErrPayeeNotFound
	}
	return nil
}

// =============================================================================
// PURE CORE - Shared by preview and apply
// =============================================================================

// allocateFIFO walks pending records oldest-first, allocating up to each
// record's pending balance. Every record gets a row; once the amount is
// exhausted the remaining rows carry a zero allocation (preview keeps them
// for visibility, apply drops them).
func allocateFIFO(amount decimal.Decimal, records []*earnings.Record) []PreviewItem {
	items := make([]PreviewItem, 0, len(records))
	remaining := amount

	for _, r := range records {
		pending := r.AmountPending
		if !pending.IsPositive() {
			continue
		}

		will := decimal.Min(remaining, pending)
		if will.IsNegative() {
			will = decimal.Zero
		}
		newPending := pending.Sub(will)

		items = append(items, PreviewItem{
			EarningID:      r.ID,
			PayPeriodBegin: r.PayPeriodBegin,
			PayPeriodEnd:   r.PayPeriodEnd,
			CurrentPending: pending,
			WillAllocate:   will,
			NewPending:     newPending,
			FullyPaid:      newPending.IsZero(),
		})
		remaining = remaining.Sub(will)
	}
	return items
}

// =============================================================================
// FIFO MODE
// =============================================================================

// PreviewFIFO projects how a payment would be allocated, without side effects.
// Calling it repeatedly with unchanged state yields identical results.
// A payee with nothing outstanding gets ErrNoPendingEarnings, so callers can
// pre-check before disbursing.
func (al *Allocator) PreviewFIFO(ctx context.Context, payee earnings.PayeeRef, amount decimal.Decimal) ([]PreviewItem, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := al.verifyPayee(ctx, payee); err != nil {
		return nil, err
	}

	records, err := al.Records.PendingRecords(ctx, payee)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoPendingEarnings
	}
	return allocateFIFO(amount, records), nil
}

// ApplyFIFO records a payment and allocates it oldest-first.
//
// The Payment row always carries the full disbursed amount; the allocation
// sum may be less when the payee's pending balance is exhausted. With nothing
// outstanding the payment is still recorded, with an empty allocation set.
func (al *Allocator) ApplyFIFO(ctx context.Context, payee earnings.PayeeRef, amount decimal.Decimal, meta Meta) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := al.verifyPayee(ctx, payee); err != nil {
		return nil, err
	}

	records, err := al.Records.PendingRecords(ctx, payee)
	if err != nil {
		return nil, err
	}

	payment := newPayment(payee, amount, meta)

	var allocs []Allocation
	for _, item := range allocateFIFO(amount, records) {
		if item.WillAllocate.IsZero() {
			continue
		}
		allocs = append(allocs, newAllocation(payment.ID, item.EarningID, item.WillAllocate))
	}

	return al.Ledger.RecordPayment(ctx, payment, allocs)
}

// =============================================================================
// MANUAL MODE
// =============================================================================

// ApplyManual records a payment allocated exactly as the caller specifies.
//
// Targets must sum to the payment amount; a mismatch is rejected rather than
// silently recorded. Manual targets may exceed a record's pending balance,
// leaving it overpaid with negative pending.
func (al *Allocator) ApplyManual(ctx context.Context, payee earnings.PayeeRef, amount decimal.Decimal, targets []ManualTarget, meta Meta) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := al.verifyPayee(ctx, payee); err != nil {
		return nil, err
	}
	if err := al.checkTargets(ctx, payee, targets); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, t := range targets {
		total = total.Add(t.Amount)
	}
	if !total.Equal(amount) {
		return nil, &AllocationMismatchError{PaymentAmount: amount, TargetTotal: total}
	}

	payment := newPayment(payee, amount, meta)
	allocs := make([]Allocation, 0, len(targets))
	for _, t := range targets {
		allocs = append(allocs, newAllocation(payment.ID, t.EarningID, t.Amount))
	}

	return al.Ledger.RecordPayment(ctx, payment, allocs)
}

// ApplyIndividual records one payment per target, each with its own amount.
// Used for "mark these records paid with separate checks" flows where every
// earning record gets its own Payment row and reference.
func (al *Allocator) ApplyIndividual(ctx context.Context, payee earnings.PayeeRef, targets []ManualTarget, meta Meta) ([]*Payment, error) {
	if err := al.verifyPayee(ctx, payee); err != nil {
		return nil, err
	}
	if err := al.checkTargets(ctx, payee, targets); err != nil {
		return nil, err
	}

	results := make([]*Payment, 0, len(targets))
	for _, t := range targets {
		payment := newPayment(payee, t.Amount, meta)
		saved, err := al.Ledger.RecordPayment(ctx, payment,
			[]Allocation{newAllocation(payment.ID, t.EarningID, t.Amount)})
		if err != nil {
			return results, err
		}
		results = append(results, saved)
	}
	return results, nil
}

// checkTargets validates that every target names a positive amount and an
// existing record belonging to the payee.
func (al *Allocator) checkTargets(ctx context.Context, payee earnings.PayeeRef, targets []ManualTarget) error {
	if len(targets) == 0 {
		return ErrInvalidAmount
	}
	ids := make([]string, 0, len(targets))
	for _, t := range targets {
		if !t.Amount.IsPositive() {
			return ErrInvalidAmount
		}
		ids = append(ids, t.EarningID)
	}

	records, err := al.Records.GetRecordsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]*earnings.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	for _, id := range ids {
		r, ok := byID[id]
		if !ok || r.Payee != payee {
			return earnings.ErrEarningNotFound
		}
	}
	return nil
}

// =============================================================================
// DELETION & SUMMARY
// =============================================================================

// DeletePayment removes a payment, cascading to its allocations. Affected
// earning records return to exactly their pre-payment balances.
func (al *Allocator) DeletePayment(ctx context.Context, id string) error {
	return al.Ledger.DeletePayment(ctx, id)
}

// GetSummary aggregates a payee's earned/paid/pending totals.
func (al *Allocator) GetSummary(ctx context.Context, payee earnings.PayeeRef) (*Summary, error) {
	records, err := al.Records.ListRecords(ctx, payee)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		TotalEarned:  decimal.Zero,
		TotalPaid:    decimal.Zero,
		TotalPending: decimal.Zero,
	}
	for _, r := range records {
		s.TotalEarned = s.TotalEarned.Add(r.TotalEarnings)
		s.TotalPaid = s.TotalPaid.Add(r.AmountPaid)
		s.TotalPending = s.TotalPending.Add(r.AmountPending)
		s.EarningsCount++

		if r.Status == earnings.StatusUnpaid || r.Status == earnings.StatusPartiallyPaid {
			begin := r.PayPeriodBegin
			if s.OldestUnpaidDate == nil || begin.Before(*s.OldestUnpaidDate) {
				s.OldestUnpaidDate = &begin
			}
		}
	}
	return s, nil
}

// =============================================================================
// ROW CONSTRUCTORS
// =============================================================================

func newPayment(payee earnings.PayeeRef, amount decimal.Decimal, meta Meta) Payment {
	return Payment{
		ID:                   uuid.NewString(),
		Payee:                payee,
		Amount:               earnings.RoundCents(amount),
		Method:               meta.Method,
		Date:                 meta.Date,
		TransactionReference: meta.TransactionReference,
		Notes:                meta.Notes,
		RecordedBy:           meta.RecordedBy,
		CreatedAt:            time.Now().UTC(),
	}
}

func newAllocation(paymentID, earningID string, amount decimal.Decimal) Allocation {
	return Allocation{
		ID:            uuid.NewString(),
		PaymentID:     paymentID,
		EarningID:     earningID,
		AmountApplied: earnings.RoundCents(amount),
		CreatedAt:     time.Now().UTC(),
	}
}
