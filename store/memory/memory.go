// Package memory provides in-memory store implementations (tests/dev).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crewpay/payroll-engine/earnings"
	"github.com/crewpay/payroll-engine/payments"
)

// =============================================================================
// MEMORY STORE - Implements all store interfaces behind one mutex
// =============================================================================

// Store holds assignments, earning records, payments, and allocations in
// maps. One mutex serializes every write, which also satisfies the ledger's
// per-payee serialization requirement for free.
type Store struct {
	mu          sync.RWMutex
	assignments map[string]earnings.Assignment
	records     map[string]*earnings.Record
	pays        map[string]payments.Payment
	allocs      map[string][]payments.Allocation // keyed by payment ID
}

func New() *Store {
	return &Store{
		assignments: make(map[string]earnings.Assignment),
		records:     make(map[string]*earnings.Record),
		pays:        make(map[string]payments.Payment),
		allocs:      make(map[string][]payments.Allocation),
	}
}

// =============================================================================
// ASSIGNMENT STORE (earnings.AssignmentStore)
// =============================================================================

func (s *Store) SaveAssignment(_ context.Context, a *earnings.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.assignments[a.ID] = *a
	return nil
}

func (s *Store) GetAssignment(_ context.Context, id string) (*earnings.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[id]
	if !ok {
		return nil, earnings.ErrAssignmentNotFound
	}
	return &a, nil
}

func (s *Store) GetActiveAssignments(_ context.Context, payee earnings.PayeeRef) ([]earnings.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []earnings.Assignment
	for _, a := range s.assignments {
		if a.Payee == payee && a.IsActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) EndAssignment(_ context.Context, id string, date time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return earnings.ErrAssignmentNotFound
	}
	a.End(date, reason)
	s.assignments[id] = a
	return nil
}

// =============================================================================
// RECORD STORE (earnings.RecordStore)
// =============================================================================

func (s *Store) SaveRecord(_ context.Context, r *earnings.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.AssignmentID == r.AssignmentID &&
			existing.PayPeriodBegin.Equal(r.PayPeriodBegin) &&
			existing.PayPeriodEnd.Equal(r.PayPeriodEnd) {
			return earnings.ErrDuplicateEarningPeriod
		}
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	clone := *r
	s.records[r.ID] = &clone
	return nil
}

func (s *Store) GetRecordByID(_ context.Context, id string) (*earnings.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, earnings.ErrEarningNotFound
	}
	clone := *r
	return &clone, nil
}

func (s *Store) GetRecordsByIDs(_ context.Context, ids []string) ([]*earnings.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*earnings.Record
	for _, id := range ids {
		if r, ok := s.records[id]; ok {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *Store) PendingRecords(_ context.Context, payee earnings.PayeeRef) ([]*earnings.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*earnings.Record
	for _, r := range s.records {
		if r.Payee == payee && r.AmountPending.IsPositive() {
			clone := *r
			out = append(out, &clone)
		}
	}
	sortFIFO(out)
	return out, nil
}

func (s *Store) ListRecords(_ context.Context, payee earnings.PayeeRef) ([]*earnings.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*earnings.Record
	for _, r := range s.records {
		if r.Payee == payee {
			clone := *r
			out = append(out, &clone)
		}
	}
	// Newest period first for listing.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PayPeriodBegin.Equal(out[j].PayPeriodBegin) {
			return out[i].PayPeriodBegin.After(out[j].PayPeriodBegin)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListAllRecords(_ context.Context, status earnings.PaymentStatus) ([]*earnings.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*earnings.Record
	for _, r := range s.records {
		if status != "" && r.Status != status {
			continue
		}
		clone := *r
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PayPeriodBegin.Equal(out[j].PayPeriodBegin) {
			return out[i].PayPeriodBegin.After(out[j].PayPeriodBegin)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// sortFIFO orders oldest pay period first, ties broken by period end then ID.
func sortFIFO(records []*earnings.Record) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.PayPeriodBegin.Equal(b.PayPeriodBegin) {
			return a.PayPeriodBegin.Before(b.PayPeriodBegin)
		}
		if !a.PayPeriodEnd.Equal(b.PayPeriodEnd) {
			return a.PayPeriodEnd.Before(b.PayPeriodEnd)
		}
		return a.ID < b.ID
	})
}

// =============================================================================
// LEDGER (payments.Ledger)
// =============================================================================

func (s *Store) RecordPayment(_ context.Context, p payments.Payment, allocs []payments.Allocation) (*payments.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// All referenced earning records must exist before anything is written.
	touched := make(map[string]bool)
	for _, a := range allocs {
		if _, ok := s.records[a.EarningID]; !ok {
			return nil, earnings.ErrEarningNotFound
		}
		touched[a.EarningID] = true
	}

	s.pays[p.ID] = p
	s.allocs[p.ID] = append([]payments.Allocation(nil), allocs...)

	for id := range touched {
		s.recomputeLocked(id)
	}
	saved := p
	return &saved, nil
}

func (s *Store) DeletePayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pays[id]; !ok {
		return payments.ErrPaymentNotFound
	}

	touched := make(map[string]bool)
	for _, a := range s.allocs[id] {
		touched[a.EarningID] = true
	}

	delete(s.pays, id)
	delete(s.allocs, id)

	for earningID := range touched {
		s.recomputeLocked(earningID)
	}
	return nil
}

func (s *Store) GetPayment(_ context.Context, id string) (*payments.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pays[id]
	if !ok {
		return nil, payments.ErrPaymentNotFound
	}
	return &p, nil
}

func (s *Store) ListPayments(_ context.Context, payee earnings.PayeeRef, limit int) ([]*payments.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*payments.Payment
	for _, p := range s.pays {
		if payee.IsZero() || p.Payee == payee {
			clone := p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AllocationsForPayment(_ context.Context, paymentID string) ([]payments.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]payments.Allocation(nil), s.allocs[paymentID]...), nil
}

// recomputeLocked re-derives one earning record's balance from all remaining
// allocation rows. Never trusts a stored running total.
func (s *Store) recomputeLocked(earningID string) {
	r, ok := s.records[earningID]
	if !ok {
		return
	}
	paid := decimal.Zero
	for _, allocs := range s.allocs {
		for _, a := range allocs {
			if a.EarningID == earningID {
				paid = paid.Add(a.AmountApplied)
			}
		}
	}
	r.AmountPaid = paid
	r.AmountPending = r.TotalEarnings.Sub(paid)
	r.Status = earnings.StatusFor(r.TotalEarnings, paid)
}
