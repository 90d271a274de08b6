/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the earnings and payment engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Assignments:
    POST   /api/assignments            Create payee assignment
    GET    /api/assignments/{id}       Get assignment
    POST   /api/assignments/{id}/end   End an active assignment

  Paystubs:
    POST   /api/paystubs               Ingest a paystub, build earning record

  Earnings:
    GET    /api/earnings               List earning records (status filter)
    GET    /api/earnings/{id}          Get one record with breakdowns

  Payments:
    GET    /api/payments/preview-allocation  Dry-run FIFO allocation
    POST   /api/payments                     Record payment (FIFO/manual/individual)
    GET    /api/payments                     List payments
    GET    /api/payments/{id}                Get payment with allocations
    DELETE /api/payments/{id}                Delete payment, restore balances

  Payees:
    GET    /api/payees/{kind}/{id}/summary   Earnings summary
    GET    /api/payees/{kind}/{id}/earnings  Records for one payee

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (builder, allocator, ledger)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, allocation mismatch
  - 404: Payee, earning, or payment not found
  - 409: Duplicate pay period, concurrent modification
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/crewpay/payroll-engine/earnings"
	"github.com/crewpay/payroll-engine/payments"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Assignments earnings.AssignmentStore
	Records     earnings.RecordStore
	Allocator   *payments.Allocator
}

// NewHandler creates a new handler over the given stores and ledger.
func NewHandler(assignments earnings.AssignmentStore, records earnings.RecordStore, ledger payments.Ledger) *Handler {
	return &Handler{
		Assignments: assignments,
		Records:     records,
		Allocator:   payments.NewAllocator(assignments, records, ledger),
	}
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

// CreateAssignment creates a payee rate assignment.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	payee, err := parsePayee(req.PayeeKind, req.PayeeID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payee", err)
		return
	}

	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date, expected RFC 3339", err)
		return
	}

	bonusSplit, err := parseDecimal(req.BonusSplitPercentage, "bonus_split_percentage")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	a := earnings.Assignment{
		Payee:                payee,
		ClientID:             req.ClientID,
		RateType:             earnings.RateType(req.RateType),
		BonusSplitPercentage: bonusSplit,
		StartDate:            startDate,
		IsActive:             true,
	}
	if req.FixedHourlyRate != "" {
		d, err := parseDecimal(req.FixedHourlyRate, "fixed_hourly_rate")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		a.FixedHourlyRate = &d
	}
	if req.PercentageRate != "" {
		d, err := parseDecimal(req.PercentageRate, "percentage_rate")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		a.PercentageRate = &d
	}

	if err := h.Assignments.SaveAssignment(r.Context(), &a); err != nil {
		writeDomainError(w, "Failed to create assignment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAssignmentDTO(a))
}

// GetAssignment returns one assignment by ID.
func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := h.Assignments.GetAssignment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get assignment", err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(*a))
}

// EndAssignment deactivates an assignment. Historical earning records and
// their balances are untouched.
func (h *Handler) EndAssignment(w http.ResponseWriter, r *http.Request) {
	var req EndAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	endDate, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date, expected RFC 3339", err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Assignments.EndAssignment(r.Context(), id, endDate, req.Reason); err != nil {
		writeDomainError(w, "Failed to end assignment", err)
		return
	}

	a, err := h.Assignments.GetAssignment(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to load assignment", err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(*a))
}

// =============================================================================
// PAYSTUB / EARNING HANDLERS
// =============================================================================

// IngestPaystub computes earnings from a parsed paystub and persists the
// resulting earning record.
func (h *Handler) IngestPaystub(w http.ResponseWriter, r *http.Request) {
	var req IngestPaystubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	stub, err := toPaystub(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	a, err := h.Assignments.GetAssignment(r.Context(), req.AssignmentID)
	if err != nil {
		writeDomainError(w, "Failed to load assignment", err)
		return
	}

	record, err := earnings.BuildRecord(*a, stub)
	if err != nil {
		writeDomainError(w, "Failed to compute earnings", err)
		return
	}
	if err := earnings.ValidateRecord(record); err != nil {
		writeDomainError(w, "Computed earnings do not reconcile with client gross", err)
		return
	}

	if err := h.Records.SaveRecord(r.Context(), record); err != nil {
		writeDomainError(w, "Failed to save earning record", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEarningDTO(record))
}

func toPaystub(req IngestPaystubRequest) (earnings.Paystub, error) {
	begin, err := time.Parse(time.RFC3339, req.PayPeriodBegin)
	if err != nil {
		return earnings.Paystub{}, fmt.Errorf("invalid pay_period_begin, expected RFC 3339")
	}
	end, err := time.Parse(time.RFC3339, req.PayPeriodEnd)
	if err != nil {
		return earnings.Paystub{}, fmt.Errorf("invalid pay_period_end, expected RFC 3339")
	}
	if end.Before(begin) {
		return earnings.Paystub{}, fmt.Errorf("pay_period_end precedes pay_period_begin")
	}
	gross, err := parseDecimal(req.ClientGrossPay, "client_gross_pay")
	if err != nil {
		return earnings.Paystub{}, err
	}

	stub := earnings.Paystub{
		AssignmentID:   req.AssignmentID,
		PayPeriodBegin: begin,
		PayPeriodEnd:   end,
		ClientGrossPay: gross,
	}
	for i, l := range req.Lines {
		line := earnings.PayLine{Description: l.Description, IsBonus: l.IsBonus}
		if l.Hours != "" {
			d, err := parseDecimal(l.Hours, fmt.Sprintf("lines[%d].hours", i))
			if err != nil {
				return earnings.Paystub{}, err
			}
			line.Hours = d
		}
		if l.Multiplier != "" {
			d, err := parseDecimal(l.Multiplier, fmt.Sprintf("lines[%d].multiplier", i))
			if err != nil {
				return earnings.Paystub{}, err
			}
			line.Multiplier = d
		}
		if l.ClientRate != "" {
			d, err := parseDecimal(l.ClientRate, fmt.Sprintf("lines[%d].client_rate", i))
			if err != nil {
				return earnings.Paystub{}, err
			}
			line.ClientRate = d
		}
		if l.ClientAmount != "" {
			d, err := parseDecimal(l.ClientAmount, fmt.Sprintf("lines[%d].client_amount", i))
			if err != nil {
				return earnings.Paystub{}, err
			}
			line.ClientAmount = d
		}
		stub.Lines = append(stub.Lines, line)
	}
	return stub, nil
}

// ListEarnings returns earning records, optionally filtered by payee
// and payment status.
func (h *Handler) ListEarnings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := earnings.PaymentStatus(q.Get("status"))

	var records []*earnings.Record
	var err error
	if kind, id := q.Get("payee_kind"), q.Get("payee_id"); kind != "" || id != "" {
		payee, perr := parsePayee(kind, id)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "Invalid payee", perr)
			return
		}
		records, err = h.Records.ListRecords(r.Context(), payee)
	} else {
		records, err = h.Records.ListAllRecords(r.Context(), status)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list earnings", err)
		return
	}

	dtos := make([]EarningDTO, 0, len(records))
	for _, rec := range records {
		if status != "" && rec.Status != status {
			continue
		}
		dtos = append(dtos, toEarningDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEarning returns one earning record with its calculation breakdowns.
func (h *Handler) GetEarning(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Records.GetRecordByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get earning record", err)
		return
	}
	writeJSON(w, http.StatusOK, toEarningDTO(rec))
}

// ListPayeeEarnings returns all records for one payee, newest first.
func (h *Handler) ListPayeeEarnings(w http.ResponseWriter, r *http.Request) {
	payee, err := parsePayee(chi.URLParam(r, "kind"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payee", err)
		return
	}

	records, err := h.Records.ListRecords(r.Context(), payee)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list earnings", err)
		return
	}

	dtos := make([]EarningDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, toEarningDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// PreviewAllocation dry-runs a FIFO allocation. Nothing is written; calling
// it twice returns identical results.
// GET /api/payments/preview-allocation?payee_kind=contractor&payee_id=X&amount=120.00
func (h *Handler) PreviewAllocation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payee, err := parsePayee(q.Get("payee_kind"), q.Get("payee_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payee", err)
		return
	}
	amount, err := parseDecimal(q.Get("amount"), "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	items, err := h.Allocator.PreviewFIFO(r.Context(), payee, amount)
	if err != nil {
		writeDomainError(w, "Failed to preview allocation", err)
		return
	}

	writeJSON(w, http.StatusOK, toPreviewResponse(payee, amount, items))
}

// RecordPayment records a payment in one of three allocation modes:
// FIFO (default), manual (allocate_to_earnings), or individual.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	payee, err := parsePayee(req.PayeeKind, req.PayeeID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payee", err)
		return
	}

	meta, err := parseMeta(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	targets := make([]payments.ManualTarget, 0, len(req.AllocateToEarnings))
	for _, t := range req.AllocateToEarnings {
		amount, err := parseDecimal(t.Amount, "allocate_to_earnings amount")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		targets = append(targets, payments.ManualTarget{EarningID: t.EarningID, Amount: amount})
	}

	ctx := r.Context()
	switch {
	case req.Individual:
		if len(targets) == 0 {
			writeError(w, http.StatusBadRequest, "individual mode requires allocate_to_earnings", nil)
			return
		}
		paid, err := h.Allocator.ApplyIndividual(ctx, payee, targets, meta)
		if err != nil {
			writeDomainError(w, "Failed to record payments", err)
			return
		}
		dtos := make([]PaymentDTO, 0, len(paid))
		for _, p := range paid {
			allocs, err := h.Allocator.Ledger.AllocationsForPayment(ctx, p.ID)
			if err != nil {
				writeDomainError(w, "Failed to load allocations", err)
				return
			}
			dtos = append(dtos, toPaymentDTO(p, allocs))
		}
		writeJSON(w, http.StatusCreated, dtos)

	case len(targets) > 0:
		amount, err := parseDecimal(req.Amount, "amount")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		p, err := h.Allocator.ApplyManual(ctx, payee, amount, targets, meta)
		if err != nil {
			writeDomainError(w, "Failed to record payment", err)
			return
		}
		allocs, err := h.Allocator.Ledger.AllocationsForPayment(ctx, p.ID)
		if err != nil {
			writeDomainError(w, "Failed to load allocations", err)
			return
		}
		writeJSON(w, http.StatusCreated, toPaymentDTO(p, allocs))

	default:
		amount, err := parseDecimal(req.Amount, "amount")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		p, err := h.Allocator.ApplyFIFO(ctx, payee, amount, meta)
		if err != nil {
			writeDomainError(w, "Failed to record payment", err)
			return
		}
		allocs, err := h.Allocator.Ledger.AllocationsForPayment(ctx, p.ID)
		if err != nil {
			writeDomainError(w, "Failed to load allocations", err)
			return
		}
		writeJSON(w, http.StatusCreated, toPaymentDTO(p, allocs))
	}
}

func parseMeta(req RecordPaymentRequest) (payments.Meta, error) {
	date, err := time.Parse(time.RFC3339, req.PaymentDate)
	if err != nil {
		return payments.Meta{}, fmt.Errorf("invalid payment_date, expected RFC 3339")
	}
	method := payments.PaymentMethod(req.PaymentMethod)
	switch method {
	case payments.MethodDirectDeposit, payments.MethodCheck, payments.MethodCash,
		payments.MethodWireTransfer, payments.MethodOther:
	default:
		return payments.Meta{}, fmt.Errorf("invalid payment_method %q", req.PaymentMethod)
	}
	return payments.Meta{
		Method:               method,
		Date:                 date,
		TransactionReference: req.TransactionReference,
		Notes:                req.Notes,
		RecordedBy:           req.RecordedBy,
	}, nil
}

// ListPayments returns payments, optionally filtered by payee.
// GET /api/payments?payee_kind=contractor&payee_id=X&limit=50
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var payee earnings.PayeeRef
	if q.Get("payee_id") != "" {
		p, err := parsePayee(q.Get("payee_kind"), q.Get("payee_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid payee", err)
			return
		}
		payee = p
	}

	limit := 0
	if s := q.Get("limit"); s != "" {
		if _, err := fmt.Sscanf(s, "%d", &limit); err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", nil)
			return
		}
	}

	list, err := h.Allocator.Ledger.ListPayments(r.Context(), payee, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, 0, len(list))
	for _, p := range list {
		dtos = append(dtos, toPaymentDTO(p, nil))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPayment returns one payment with its allocations.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.Allocator.Ledger.GetPayment(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get payment", err)
		return
	}
	allocs, err := h.Allocator.Ledger.AllocationsForPayment(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load allocations", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(p, allocs))
}

// DeletePayment removes a payment and restores the affected earning
// balances, as if the payment had never been recorded.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := h.Allocator.DeletePayment(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete payment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// SUMMARY HANDLERS
// =============================================================================

// GetSummary returns the payee's aggregate earnings and payment state.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	payee, err := parsePayee(chi.URLParam(r, "kind"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payee", err)
		return
	}

	s, err := h.Allocator.GetSummary(r.Context(), payee)
	if err != nil {
		writeDomainError(w, "Failed to get summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(payee, s))
}

// =============================================================================
// HELPERS
// =============================================================================

func parsePayee(kind, id string) (earnings.PayeeRef, error) {
	if id == "" {
		return earnings.PayeeRef{}, fmt.Errorf("payee_id is required")
	}
	switch earnings.PayeeKind(kind) {
	case earnings.PayeeContractor:
		return earnings.Contractor(id), nil
	case earnings.PayeeManager:
		return earnings.Manager(id), nil
	default:
		return earnings.PayeeRef{}, fmt.Errorf("unknown payee kind %q", kind)
	}
}

func parseDecimal(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%s is required", field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: %q", field, s)
	}
	return d, nil
}

// writeDomainError maps domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case payments.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, earnings.ErrDuplicateEarningPeriod) || payments.IsRetryable(err):
		writeError(w, http.StatusConflict, message, err)
	case payments.IsClientError(err) || errors.Is(err, payments.ErrNoPendingEarnings):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
