/*
Package earnings computes contractor and manager earnings from paystub data.

PURPOSE:
  This package contains the types and algorithms that turn an assignment's
  rate configuration plus a pay period's paystub lines into an immutable
  earning record: regular pay, bonus share, company margin, and the
  paid/pending balance the payment allocator operates on.

KEY CONCEPTS IN THIS FILE (types.go):
  - PayeeRef: Tagged contractor-or-manager identity, dispatched once
  - Assignment: Rate configuration linking a payee to a client
  - PayLine/Paystub: Source pay-period data from the client company
  - Record: One computed earning record per (assignment, pay period)
  - PaymentStatus: unpaid -> partially_paid -> paid -> overpaid

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift
  2. Derivability: AmountPaid/AmountPending are re-derivable from allocations
  3. Immutability: Computed earning figures are never edited after creation;
     only the paid/pending balance moves, and only via allocations

SEE ALSO:
  - rate.go: Regular earnings calculation (fixed, percentage, manager flat)
  - bonus.go: Bonus line splitting
  - record.go: Record builder and validation
*/
package earnings

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY HELPERS
// =============================================================================

// RoundCents rounds a currency amount to 2 decimal places, half up.
// Applied at the point amounts are persisted or reported, not mid-calculation.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MustDecimal parses a decimal string, returning zero on failure.
// Intended for constants and store scanning where the input is trusted.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var oneHundred = decimal.NewFromInt(100)

// =============================================================================
// PAYEE - Contractor or manager, dispatched once
// =============================================================================

type PayeeKind string

const (
	PayeeContractor PayeeKind = "contractor"
	PayeeManager    PayeeKind = "manager"
)

// PayeeRef identifies who is entitled to earnings and payments.
// It replaces the "fetch both, use one" pattern: callers resolve the kind
// exactly once and every downstream query is keyed on the pair.
type PayeeRef struct {
	Kind PayeeKind
	ID   string
}

func Contractor(id string) PayeeRef { return PayeeRef{Kind: PayeeContractor, ID: id} }
func Manager(id string) PayeeRef    { return PayeeRef{Kind: PayeeManager, ID: id} }

func (p PayeeRef) IsZero() bool { return p.ID == "" }

// =============================================================================
// ASSIGNMENT - Rate configuration linking a payee to a client
// =============================================================================

type RateType string

const (
	RateFixed      RateType = "fixed"      // hours x multiplier x fixed hourly rate
	RatePercentage RateType = "percentage" // percentage of client gross (non-bonus)
)

// Assignment links a payee to a payer context with its rate terms.
// Exactly one of FixedHourlyRate/PercentageRate is set, matching RateType.
type Assignment struct {
	ID       string
	Payee    PayeeRef
	ClientID string

	RateType             RateType
	FixedHourlyRate      *decimal.Decimal
	PercentageRate       *decimal.Decimal
	BonusSplitPercentage decimal.Decimal // [0, 100]

	StartDate time.Time
	EndDate   *time.Time
	EndReason string
	IsActive  bool

	CreatedAt time.Time
}

// Validate checks the rate-field/rate-type invariant.
func (a Assignment) Validate() error {
	switch a.RateType {
	case RateFixed:
		if a.FixedHourlyRate == nil || a.PercentageRate != nil {
			return &InvalidRateConfigError{AssignmentID: a.ID, RateType: a.RateType}
		}
	case RatePercentage:
		if a.PercentageRate == nil || a.FixedHourlyRate != nil {
			return &InvalidRateConfigError{AssignmentID: a.ID, RateType: a.RateType}
		}
	default:
		return &InvalidRateConfigError{AssignmentID: a.ID, RateType: a.RateType}
	}
	if a.BonusSplitPercentage.IsNegative() || a.BonusSplitPercentage.GreaterThan(oneHundred) {
		return &InvalidRateConfigError{AssignmentID: a.ID, RateType: a.RateType,
			Detail: "bonus split percentage outside [0,100]"}
	}
	return nil
}

// End closes the assignment. Assignments are ended, never deleted.
func (a *Assignment) End(date time.Time, reason string) {
	a.IsActive = false
	a.EndDate = &date
	a.EndReason = reason
}

// =============================================================================
// PAYSTUB - Source pay-period data
// =============================================================================

// PayLine is one row of a source paystub.
type PayLine struct {
	Description  string
	Hours        decimal.Decimal
	Multiplier   decimal.Decimal // 1.0 regular, 1.5 overtime, 2.0 double time
	ClientRate   decimal.Decimal // client company's pay rate for this line
	IsBonus      bool
	ClientAmount decimal.Decimal
}

// Paystub is a parsed pay-period statement already matched to an assignment.
type Paystub struct {
	AssignmentID   string
	PayPeriodBegin time.Time
	PayPeriodEnd   time.Time
	ClientGrossPay decimal.Decimal
	Lines          []PayLine
}

// =============================================================================
// PAYMENT STATUS - Derived solely from (total, paid)
// =============================================================================

type PaymentStatus string

const (
	StatusUnpaid        PaymentStatus = "unpaid"
	StatusPartiallyPaid PaymentStatus = "partially_paid"
	StatusPaid          PaymentStatus = "paid"
	StatusOverpaid      PaymentStatus = "overpaid"
)

// StatusFor derives the payment status from total earnings and amount paid.
// A zero-dollar record is paid by definition: there is nothing to disburse,
// so it must not sit in the unpaid queue forever.
func StatusFor(total, paid decimal.Decimal) PaymentStatus {
	pending := total.Sub(paid)
	switch {
	case pending.IsNegative():
		return StatusOverpaid
	case paid.IsZero() && total.IsZero():
		return StatusPaid
	case paid.IsZero():
		return StatusUnpaid
	case pending.IsZero():
		return StatusPaid
	default:
		return StatusPartiallyPaid
	}
}

// =============================================================================
// EARNING RECORD - One per (assignment, pay period)
// =============================================================================

// BreakdownLine is one audit row of the regular-earnings calculation.
type BreakdownLine struct {
	Description    string          `json:"description"`
	Hours          decimal.Decimal `json:"hours"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	ContractorRate decimal.Decimal `json:"contractor_rate"`
	Amount         decimal.Decimal `json:"amount"`
}

// RegularBreakdown is the line-by-line regular earnings result.
type RegularBreakdown struct {
	Lines      []BreakdownLine `json:"lines"`
	TotalHours decimal.Decimal `json:"total_hours"`
	Total      decimal.Decimal `json:"total"`
}

// BonusItem is the contractor's share of a single bonus line.
type BonusItem struct {
	Description  string          `json:"description"`
	ClientAmount decimal.Decimal `json:"client_amount"`
	Share        decimal.Decimal `json:"share"`
}

// BonusBreakdown aggregates bonus lines and the contractor's share of them.
type BonusBreakdown struct {
	Items           []BonusItem     `json:"items"`
	BonusTotal      decimal.Decimal `json:"bonus_total"`
	ContractorShare decimal.Decimal `json:"contractor_share"`
	SplitPercentage decimal.Decimal `json:"split_percentage"`
}

// Empty reports whether there were no bonus lines at all. Empty breakdowns
// are considered absent downstream and are not rendered.
func (b BonusBreakdown) Empty() bool { return len(b.Items) == 0 }

// Record is one earning record per (assignment, pay period).
//
// INVARIANT: AmountPaid + AmountPending == TotalEarnings at all times.
// AmountPaid/AmountPending/Status are the only fields mutated post-creation,
// and only by the payment allocator via allocation inserts/deletes.
type Record struct {
	ID           string
	AssignmentID string
	Payee        PayeeRef

	PayPeriodBegin time.Time
	PayPeriodEnd   time.Time

	ClientGrossPay   decimal.Decimal
	ClientTotalHours decimal.Decimal
	RegularEarnings  decimal.Decimal
	BonusShare       decimal.Decimal
	TotalEarnings    decimal.Decimal
	CompanyMargin    decimal.Decimal

	AmountPaid    decimal.Decimal
	AmountPending decimal.Decimal
	Status        PaymentStatus

	// Audit detail for display; not used by the allocator.
	RegularBreakdown RegularBreakdown
	BonusBreakdown   *BonusBreakdown

	CreatedAt time.Time
}
