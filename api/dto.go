/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY FORMAT:
  All amounts travel as JSON strings ("1234.56"), never floats. Dates are
  RFC 3339. Both directions.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - earnings/types.go: Domain model these map from
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/crewpay/payroll-engine/earnings"
	"github.com/crewpay/payroll-engine/payments"
)

// =============================================================================
// ASSIGNMENT TYPES
// =============================================================================

// CreateAssignmentRequest is the request to create a payee assignment.
type CreateAssignmentRequest struct {
	PayeeKind            string `json:"payee_kind"`
	PayeeID              string `json:"payee_id"`
	ClientID             string `json:"client_id"`
	RateType             string `json:"rate_type"`
	FixedHourlyRate      string `json:"fixed_hourly_rate,omitempty"`
	PercentageRate       string `json:"percentage_rate,omitempty"`
	BonusSplitPercentage string `json:"bonus_split_percentage"`
	StartDate            string `json:"start_date"`
}

// EndAssignmentRequest ends an active assignment.
type EndAssignmentRequest struct {
	EndDate string `json:"end_date"`
	Reason  string `json:"reason,omitempty"`
}

// AssignmentDTO represents an assignment in API responses.
type AssignmentDTO struct {
	ID                   string `json:"id"`
	PayeeKind            string `json:"payee_kind"`
	PayeeID              string `json:"payee_id"`
	ClientID             string `json:"client_id"`
	RateType             string `json:"rate_type"`
	FixedHourlyRate      string `json:"fixed_hourly_rate,omitempty"`
	PercentageRate       string `json:"percentage_rate,omitempty"`
	BonusSplitPercentage string `json:"bonus_split_percentage"`
	StartDate            string `json:"start_date"`
	EndDate              string `json:"end_date,omitempty"`
	EndReason            string `json:"end_reason,omitempty"`
	IsActive             bool   `json:"is_active"`
}

// =============================================================================
// PAYSTUB / EARNING TYPES
// =============================================================================

// PayLineDTO is one line item on an ingested paystub.
type PayLineDTO struct {
	Description  string `json:"description"`
	Hours        string `json:"hours,omitempty"`
	Multiplier   string `json:"multiplier,omitempty"`
	ClientRate   string `json:"client_rate,omitempty"`
	IsBonus      bool   `json:"is_bonus,omitempty"`
	ClientAmount string `json:"client_amount,omitempty"`
}

// IngestPaystubRequest submits a parsed pay-period statement for earnings
// computation.
type IngestPaystubRequest struct {
	AssignmentID   string       `json:"assignment_id"`
	PayPeriodBegin string       `json:"pay_period_begin"`
	PayPeriodEnd   string       `json:"pay_period_end"`
	ClientGrossPay string       `json:"client_gross_pay"`
	Lines          []PayLineDTO `json:"lines"`
}

// BreakdownLineDTO is one computed regular-earnings line.
type BreakdownLineDTO struct {
	Description    string `json:"description"`
	Hours          string `json:"hours"`
	Multiplier     string `json:"multiplier"`
	ContractorRate string `json:"contractor_rate"`
	Amount         string `json:"amount"`
}

// RegularBreakdownDTO is the full regular-earnings calculation detail.
type RegularBreakdownDTO struct {
	Lines      []BreakdownLineDTO `json:"lines"`
	TotalHours string             `json:"total_hours"`
	Total      string             `json:"total"`
}

// BonusItemDTO is one bonus line and the payee's share of it.
type BonusItemDTO struct {
	Description  string `json:"description"`
	ClientAmount string `json:"client_amount"`
	Share        string `json:"share"`
}

// BonusBreakdownDTO is the bonus split detail. Omitted entirely when the
// paystub had no bonus lines.
type BonusBreakdownDTO struct {
	Items           []BonusItemDTO `json:"items"`
	BonusTotal      string         `json:"bonus_total"`
	ContractorShare string         `json:"contractor_share"`
	SplitPercentage string         `json:"split_percentage"`
}

// EarningDTO represents an earning record in API responses.
type EarningDTO struct {
	ID               string               `json:"id"`
	AssignmentID     string               `json:"assignment_id"`
	PayeeKind        string               `json:"payee_kind"`
	PayeeID          string               `json:"payee_id"`
	PayPeriodBegin   string               `json:"pay_period_begin"`
	PayPeriodEnd     string               `json:"pay_period_end"`
	ClientGrossPay   string               `json:"client_gross_pay"`
	ClientTotalHours string               `json:"client_total_hours"`
	RegularEarnings  string               `json:"regular_earnings"`
	BonusShare       string               `json:"bonus_share"`
	TotalEarnings    string               `json:"total_earnings"`
	CompanyMargin    string               `json:"company_margin"`
	AmountPaid       string               `json:"amount_paid"`
	AmountPending    string               `json:"amount_pending"`
	PaymentStatus    string               `json:"payment_status"`
	RegularBreakdown *RegularBreakdownDTO `json:"regular_breakdown,omitempty"`
	BonusBreakdown   *BonusBreakdownDTO   `json:"bonus_breakdown,omitempty"`
	CreatedAt        string               `json:"created_at,omitempty"`
}

// =============================================================================
// PAYMENT TYPES
// =============================================================================

// AllocationTargetDTO names an earning record and the amount to apply to it.
type AllocationTargetDTO struct {
	EarningID string `json:"earning_id"`
	Amount    string `json:"amount"`
}

// RecordPaymentRequest records a payment. Allocation mode is inferred:
//   - allocate_to_earnings present: manual allocation (amounts must sum to
//     the payment amount)
//   - individual true: one payment per target
//   - otherwise: automatic FIFO allocation
type RecordPaymentRequest struct {
	PayeeKind            string                `json:"payee_kind"`
	PayeeID              string                `json:"payee_id"`
	Amount               string                `json:"amount"`
	PaymentMethod        string                `json:"payment_method"`
	PaymentDate          string                `json:"payment_date"`
	TransactionReference string                `json:"transaction_reference,omitempty"`
	Notes                string                `json:"notes,omitempty"`
	RecordedBy           string                `json:"recorded_by,omitempty"`
	AllocateToEarnings   []AllocationTargetDTO `json:"allocate_to_earnings,omitempty"`
	Individual           bool                  `json:"individual,omitempty"`
}

// AllocationDTO is one payment-to-earning application.
type AllocationDTO struct {
	ID            string `json:"id"`
	PaymentID     string `json:"payment_id"`
	EarningID     string `json:"earning_id"`
	AmountApplied string `json:"amount_applied"`
}

// PaymentDTO represents a payment in API responses.
type PaymentDTO struct {
	ID                   string          `json:"id"`
	PayeeKind            string          `json:"payee_kind"`
	PayeeID              string          `json:"payee_id"`
	Amount               string          `json:"amount"`
	PaymentMethod        string          `json:"payment_method"`
	PaymentDate          string          `json:"payment_date"`
	TransactionReference string          `json:"transaction_reference,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	RecordedBy           string          `json:"recorded_by,omitempty"`
	Allocations          []AllocationDTO `json:"allocations,omitempty"`
	CreatedAt            string          `json:"created_at,omitempty"`
}

// PreviewItemDTO is one row of a FIFO allocation preview.
type PreviewItemDTO struct {
	EarningID      string `json:"earning_id"`
	PayPeriodBegin string `json:"pay_period_begin"`
	PayPeriodEnd   string `json:"pay_period_end"`
	CurrentPending string `json:"current_pending"`
	WillAllocate   string `json:"will_allocate"`
	NewPending     string `json:"new_pending"`
	FullyPaid      bool   `json:"fully_paid"`
}

// PreviewResponse wraps an allocation preview.
type PreviewResponse struct {
	PayeeKind   string           `json:"payee_kind"`
	PayeeID     string           `json:"payee_id"`
	Amount      string           `json:"amount"`
	Items       []PreviewItemDTO `json:"items"`
	Unallocated string           `json:"unallocated"`
}

// SummaryDTO aggregates a payee's earnings and payment state.
type SummaryDTO struct {
	PayeeKind        string `json:"payee_kind"`
	PayeeID          string `json:"payee_id"`
	TotalEarned      string `json:"total_earned"`
	TotalPaid        string `json:"total_paid"`
	TotalPending     string `json:"total_pending"`
	EarningsCount    int    `json:"earnings_count"`
	OldestUnpaidDate string `json:"oldest_unpaid_date,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toAssignmentDTO(a earnings.Assignment) AssignmentDTO {
	dto := AssignmentDTO{
		ID:                   a.ID,
		PayeeKind:            string(a.Payee.Kind),
		PayeeID:              a.Payee.ID,
		ClientID:             a.ClientID,
		RateType:             string(a.RateType),
		BonusSplitPercentage: a.BonusSplitPercentage.String(),
		StartDate:            a.StartDate.Format(time.RFC3339),
		EndReason:            a.EndReason,
		IsActive:             a.IsActive,
	}
	if a.FixedHourlyRate != nil {
		dto.FixedHourlyRate = a.FixedHourlyRate.String()
	}
	if a.PercentageRate != nil {
		dto.PercentageRate = a.PercentageRate.String()
	}
	if a.EndDate != nil {
		dto.EndDate = a.EndDate.Format(time.RFC3339)
	}
	return dto
}

func toEarningDTO(r *earnings.Record) EarningDTO {
	dto := EarningDTO{
		ID:               r.ID,
		AssignmentID:     r.AssignmentID,
		PayeeKind:        string(r.Payee.Kind),
		PayeeID:          r.Payee.ID,
		PayPeriodBegin:   r.PayPeriodBegin.Format(time.RFC3339),
		PayPeriodEnd:     r.PayPeriodEnd.Format(time.RFC3339),
		ClientGrossPay:   r.ClientGrossPay.String(),
		ClientTotalHours: r.ClientTotalHours.String(),
		RegularEarnings:  r.RegularEarnings.String(),
		BonusShare:       r.BonusShare.String(),
		TotalEarnings:    r.TotalEarnings.String(),
		CompanyMargin:    r.CompanyMargin.String(),
		AmountPaid:       r.AmountPaid.String(),
		AmountPending:    r.AmountPending.String(),
		PaymentStatus:    string(r.Status),
	}
	if !r.CreatedAt.IsZero() {
		dto.CreatedAt = r.CreatedAt.Format(time.RFC3339)
	}
	if len(r.RegularBreakdown.Lines) > 0 {
		rb := RegularBreakdownDTO{
			TotalHours: r.RegularBreakdown.TotalHours.String(),
			Total:      r.RegularBreakdown.Total.String(),
		}
		for _, l := range r.RegularBreakdown.Lines {
			rb.Lines = append(rb.Lines, BreakdownLineDTO{
				Description:    l.Description,
				Hours:          l.Hours.String(),
				Multiplier:     l.Multiplier.String(),
				ContractorRate: l.ContractorRate.String(),
				Amount:         l.Amount.String(),
			})
		}
		dto.RegularBreakdown = &rb
	}
	if r.BonusBreakdown != nil {
		bb := BonusBreakdownDTO{
			BonusTotal:      r.BonusBreakdown.BonusTotal.String(),
			ContractorShare: r.BonusBreakdown.ContractorShare.String(),
			SplitPercentage: r.BonusBreakdown.SplitPercentage.String(),
		}
		for _, it := range r.BonusBreakdown.Items {
			bb.Items = append(bb.Items, BonusItemDTO{
				Description:  it.Description,
				ClientAmount: it.ClientAmount.String(),
				Share:        it.Share.String(),
			})
		}
		dto.BonusBreakdown = &bb
	}
	return dto
}

func toPaymentDTO(p *payments.Payment, allocs []payments.Allocation) PaymentDTO {
	dto := PaymentDTO{
		ID:                   p.ID,
		PayeeKind:            string(p.Payee.Kind),
		PayeeID:              p.Payee.ID,
		Amount:               p.Amount.String(),
		PaymentMethod:        string(p.Method),
		PaymentDate:          p.Date.Format(time.RFC3339),
		TransactionReference: p.TransactionReference,
		Notes:                p.Notes,
		RecordedBy:           p.RecordedBy,
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	for _, a := range allocs {
		dto.Allocations = append(dto.Allocations, AllocationDTO{
			ID:            a.ID,
			PaymentID:     a.PaymentID,
			EarningID:     a.EarningID,
			AmountApplied: a.AmountApplied.String(),
		})
	}
	return dto
}

func toPreviewResponse(payee earnings.PayeeRef, amount decimal.Decimal, items []payments.PreviewItem) PreviewResponse {
	resp := PreviewResponse{
		PayeeKind: string(payee.Kind),
		PayeeID:   payee.ID,
		Amount:    amount.String(),
	}
	allocated := decimal.Zero
	for _, it := range items {
		allocated = allocated.Add(it.WillAllocate)
		resp.Items = append(resp.Items, PreviewItemDTO{
			EarningID:      it.EarningID,
			PayPeriodBegin: it.PayPeriodBegin.Format(time.RFC3339),
			PayPeriodEnd:   it.PayPeriodEnd.Format(time.RFC3339),
			CurrentPending: it.CurrentPending.String(),
			WillAllocate:   it.WillAllocate.String(),
			NewPending:     it.NewPending.String(),
			FullyPaid:      it.FullyPaid,
		})
	}
	resp.Unallocated = amount.Sub(allocated).String()
	return resp
}

func toSummaryDTO(payee earnings.PayeeRef, s *payments.Summary) SummaryDTO {
	dto := SummaryDTO{
		PayeeKind:     string(payee.Kind),
		PayeeID:       payee.ID,
		TotalEarned:   s.TotalEarned.String(),
		TotalPaid:     s.TotalPaid.String(),
		TotalPending:  s.TotalPending.String(),
		EarningsCount: s.EarningsCount,
	}
	if s.OldestUnpaidDate != nil {
		dto.OldestUnpaidDate = s.OldestUnpaidDate.Format(time.RFC3339)
	}
	return dto
}
