/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements persistence for assignments, earning records, payments, and
  allocations. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  earnings.AssignmentStore: Assignment lifecycle
  earnings.RecordStore:     Earning records with FIFO-ordered pending queries
  payments.Ledger:          Atomic payment + allocation writes, cascade delete

BALANCE DERIVATION:
  amount_paid/amount_pending/payment_status on earnings rows are CACHED
  projections of the allocations table. Every ledger write and delete
  recomputes them inside the same transaction by re-summing allocation rows,
  so a crash can never leave a stored total that disagrees with the ledger.

KEY TABLES:
  assignments:  Rate configuration per payee/client pair
  earnings:     One row per (assignment, pay period); UNIQUE on that triple
  payments:     Immutable disbursement events (delete-only)
  allocations:  (payment, earning, amount) line items; FK cascade on payment

INDEXES:
  - idx_earnings_assignment_period: Duplicate-period rejection (UNIQUE)
  - idx_earnings_payee_pending:     FIFO pending-balance queries (hot path)
  - idx_allocations_earning:        Balance recompute per earning

CONCURRENCY:
  Uses sync.RWMutex for thread-safety plus WAL mode. The write mutex
  serializes allocation transactions, so two concurrent applies for the
  same payee cannot both read a stale pending balance.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payments/ledger.go: Ledger contract and invariants
  - store/memory: In-memory implementation used by unit tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/crewpay/payroll-engine/earnings"
	"github.com/crewpay/payroll-engine/payments"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database (useful for testing).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A pooled second connection to ":memory:" would see a separate empty
	// database; SQLite allows one writer anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		payee_kind TEXT NOT NULL,
		payee_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		rate_type TEXT NOT NULL,
		fixed_hourly_rate TEXT,
		percentage_rate TEXT,
		bonus_split_percentage TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		end_reason TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_payee
		ON assignments(payee_kind, payee_id, is_active);

	CREATE TABLE IF NOT EXISTS earnings (
		id TEXT PRIMARY KEY,
		assignment_id TEXT NOT NULL REFERENCES assignments(id),
		payee_kind TEXT NOT NULL,
		payee_id TEXT NOT NULL,
		pay_period_begin TEXT NOT NULL,
		pay_period_end TEXT NOT NULL,
		client_gross_pay TEXT NOT NULL,
		client_total_hours TEXT NOT NULL,
		regular_earnings TEXT NOT NULL,
		bonus_share TEXT NOT NULL,
		total_earnings TEXT NOT NULL,
		company_margin TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		amount_pending TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		regular_breakdown_json TEXT,
		bonus_breakdown_json TEXT,
		created_at TEXT NOT NULL
	);

	-- One earning record per (assignment, pay period): re-ingesting an
	-- already processed period must fail rather than double-count it.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_earnings_assignment_period
		ON earnings(assignment_id, pay_period_begin, pay_period_end);

	CREATE INDEX IF NOT EXISTS idx_earnings_payee_pending
		ON earnings(payee_kind, payee_id, pay_period_begin);
	CREATE INDEX IF NOT EXISTS idx_earnings_payee_status
		ON earnings(payee_kind, payee_id, payment_status);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		payee_kind TEXT NOT NULL,
		payee_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		transaction_reference TEXT,
		notes TEXT,
		recorded_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_payee
		ON payments(payee_kind, payee_id, payment_date DESC);

	CREATE TABLE IF NOT EXISTS allocations (
		id TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL REFERENCES payments(id) ON DELETE CASCADE,
		earning_id TEXT NOT NULL REFERENCES earnings(id),
		amount_applied TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_allocations_payment
		ON allocations(payment_id);
	CREATE INDEX IF NOT EXISTS idx_allocations_earning
		ON allocations(earning_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ASSIGNMENT STORE (earnings.AssignmentStore)
// =============================================================================

func (s *Store) SaveAssignment(ctx context.Context, a *earnings.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO assignments
		(id, payee_kind, payee_id, client_id, rate_type, fixed_hourly_rate,
		 percentage_rate, bonus_split_percentage, start_date, end_date,
		 end_reason, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rate_type = excluded.rate_type,
			fixed_hourly_rate = excluded.fixed_hourly_rate,
			percentage_rate = excluded.percentage_rate,
			bonus_split_percentage = excluded.bonus_split_percentage,
			end_date = excluded.end_date,
			end_reason = excluded.end_reason,
			is_active = excluded.is_active
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID,
		a.Payee.Kind,
		a.Payee.ID,
		a.ClientID,
		a.RateType,
		nullDecimal(a.FixedHourlyRate),
		nullDecimal(a.PercentageRate),
		a.BonusSplitPercentage.String(),
		a.StartDate.UTC().Format(time.RFC3339),
		nullTime(a.EndDate),
		nullString(a.EndReason),
		a.IsActive,
		a.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}
	return nil
}

func (s *Store) GetAssignment(ctx context.Context, id string) (*earnings.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, assignmentSelect+" WHERE id = ?", id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, earnings.ErrAssignmentNotFound
	}
	return a, err
}

func (s *Store) GetActiveAssignments(ctx context.Context, payee earnings.PayeeRef) ([]earnings.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		assignmentSelect+` WHERE payee_kind = ? AND payee_id = ? AND is_active = TRUE
		ORDER BY start_date ASC, id ASC`,
		payee.Kind, payee.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []earnings.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) EndAssignment(ctx context.Context, id string, date time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE assignments SET is_active = FALSE, end_date = ?, end_reason = ? WHERE id = ?`,
		date.UTC().Format(time.RFC3339), reason, id)
	if err != nil {
		return fmt.Errorf("failed to end assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return earnings.ErrAssignmentNotFound
	}
	return nil
}

const assignmentSelect = `
	SELECT id, payee_kind, payee_id, client_id, rate_type, fixed_hourly_rate,
	       percentage_rate, bonus_split_percentage, start_date, end_date,
	       end_reason, is_active, created_at
	FROM assignments`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*earnings.Assignment, error) {
	var (
		a          earnings.Assignment
		kind       string
		fixedRate  sql.NullString
		pctRate    sql.NullString
		bonusSplit string
		startDate  string
		endDate    sql.NullString
		endReason  sql.NullString
		createdAt  string
	)

	err := row.Scan(&a.ID, &kind, &a.Payee.ID, &a.ClientID, &a.RateType,
		&fixedRate, &pctRate, &bonusSplit, &startDate, &endDate, &endReason,
		&a.IsActive, &createdAt)
	if err != nil {
		return nil, err
	}

	a.Payee.Kind = earnings.PayeeKind(kind)
	a.BonusSplitPercentage = earnings.MustDecimal(bonusSplit)
	a.StartDate, _ = time.Parse(time.RFC3339, startDate)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if fixedRate.Valid {
		d := earnings.MustDecimal(fixedRate.String)
		a.FixedHourlyRate = &d
	}
	if pctRate.Valid {
		d := earnings.MustDecimal(pctRate.String)
		a.PercentageRate = &d
	}
	if endDate.Valid {
		t, _ := time.Parse(time.RFC3339, endDate.String)
		a.EndDate = &t
	}
	a.EndReason = endReason.String
	return &a, nil
}

// =============================================================================
// RECORD STORE (earnings.RecordStore)
// =============================================================================

func (s *Store) SaveRecord(ctx context.Context, r *earnings.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	regularJSON, err := json.Marshal(r.RegularBreakdown)
	if err != nil {
		return fmt.Errorf("failed to encode regular breakdown: %w", err)
	}
	var bonusJSON sql.NullString
	if r.BonusBreakdown != nil {
		b, err := json.Marshal(r.BonusBreakdown)
		if err != nil {
			return fmt.Errorf("failed to encode bonus breakdown: %w", err)
		}
		bonusJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := `
		INSERT INTO earnings
		(id, assignment_id, payee_kind, payee_id, pay_period_begin, pay_period_end,
		 client_gross_pay, client_total_hours, regular_earnings, bonus_share,
		 total_earnings, company_margin, amount_paid, amount_pending,
		 payment_status, regular_breakdown_json, bonus_breakdown_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		r.ID,
		r.AssignmentID,
		r.Payee.Kind,
		r.Payee.ID,
		r.PayPeriodBegin.UTC().Format(time.RFC3339),
		r.PayPeriodEnd.UTC().Format(time.RFC3339),
		r.ClientGrossPay.String(),
		r.ClientTotalHours.String(),
		r.RegularEarnings.String(),
		r.BonusShare.String(),
		r.TotalEarnings.String(),
		r.CompanyMargin.String(),
		r.AmountPaid.String(),
		r.AmountPending.String(),
		r.Status,
		string(regularJSON),
		bonusJSON,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return earnings.ErrDuplicateEarningPeriod
		}
		return fmt.Errorf("failed to save earning record: %w", err)
	}
	return nil
}

func (s *Store) GetRecordByID(ctx context.Context, id string) (*earnings.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, earningSelect+" WHERE id = ?", id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, earnings.ErrEarningNotFound
	}
	return r, err
}

func (s *Store) GetRecordsByIDs(ctx context.Context, ids []string) ([]*earnings.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryRecords(ctx, earningSelect+" WHERE id IN ("+placeholders+")", args...)
}

func (s *Store) PendingRecords(ctx context.Context, payee earnings.PayeeRef) ([]*earnings.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// FIFO order: oldest pay period first, deterministic tie-break on id.
	query := earningSelect + `
		WHERE payee_kind = ? AND payee_id = ? AND CAST(amount_pending AS REAL) > 0
		ORDER BY pay_period_begin ASC, pay_period_end ASC, id ASC`
	return s.queryRecords(ctx, query, payee.Kind, payee.ID)
}

func (s *Store) ListRecords(ctx context.Context, payee earnings.PayeeRef) ([]*earnings.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := earningSelect + `
		WHERE payee_kind = ? AND payee_id = ?
		ORDER BY pay_period_begin DESC, id ASC`
	return s.queryRecords(ctx, query, payee.Kind, payee.ID)
}

// ListAllRecords returns earning records across all payees, optionally
// filtered by status. Backs the admin earnings listing endpoint.
func (s *Store) ListAllRecords(ctx context.Context, status earnings.PaymentStatus) ([]*earnings.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := earningSelect
	var args []any
	if status != "" {
		query += " WHERE payment_status = ?"
		args = append(args, status)
	}
	query += " ORDER BY pay_period_begin DESC, id ASC"
	return s.queryRecords(ctx, query, args...)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]*earnings.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query earnings: %w", err)
	}
	defer rows.Close()

	var out []*earnings.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const earningSelect = `
	SELECT id, assignment_id, payee_kind, payee_id, pay_period_begin,
	       pay_period_end, client_gross_pay, client_total_hours,
	       regular_earnings, bonus_share, total_earnings, company_margin,
	       amount_paid, amount_pending, payment_status,
	       regular_breakdown_json, bonus_breakdown_json, created_at
	FROM earnings`

func scanRecord(row rowScanner) (*earnings.Record, error) {
	var (
		r           earnings.Record
		kind        string
		periodBegin string
		periodEnd   string
		gross       string
		hours       string
		regular     string
		bonus       string
		total       string
		margin      string
		paid        string
		pending     string
		regularJSON sql.NullString
		bonusJSON   sql.NullString
		createdAt   string
	)

	err := row.Scan(&r.ID, &r.AssignmentID, &kind, &r.Payee.ID, &periodBegin,
		&periodEnd, &gross, &hours, &regular, &bonus, &total, &margin,
		&paid, &pending, &r.Status, &regularJSON, &bonusJSON, &createdAt)
	if err != nil {
		return nil, err
	}

	r.Payee.Kind = earnings.PayeeKind(kind)
	r.PayPeriodBegin, _ = time.Parse(time.RFC3339, periodBegin)
	r.PayPeriodEnd, _ = time.Parse(time.RFC3339, periodEnd)
	r.ClientGrossPay = earnings.MustDecimal(gross)
	r.ClientTotalHours = earnings.MustDecimal(hours)
	r.RegularEarnings = earnings.MustDecimal(regular)
	r.BonusShare = earnings.MustDecimal(bonus)
	r.TotalEarnings = earnings.MustDecimal(total)
	r.CompanyMargin = earnings.MustDecimal(margin)
	r.AmountPaid = earnings.MustDecimal(paid)
	r.AmountPending = earnings.MustDecimal(pending)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	if regularJSON.Valid && regularJSON.String != "" {
		if err := json.Unmarshal([]byte(regularJSON.String), &r.RegularBreakdown); err != nil {
			return nil, fmt.Errorf("failed to decode regular breakdown for %s: %w", r.ID, err)
		}
	}
	if bonusJSON.Valid && bonusJSON.String != "" {
		var bd earnings.BonusBreakdown
		if err := json.Unmarshal([]byte(bonusJSON.String), &bd); err != nil {
			return nil, fmt.Errorf("failed to decode bonus breakdown for %s: %w", r.ID, err)
		}
		r.BonusBreakdown = &bd
	}
	return &r, nil
}

// =============================================================================
// LEDGER (payments.Ledger)
// =============================================================================

// RecordPayment writes the payment and its allocations in one transaction,
// then recomputes each touched earning record inside the same transaction.
// Either everything commits or nothing does.
func (s *Store) RecordPayment(ctx context.Context, p payments.Payment, allocs []payments.Allocation) (*payments.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments
		(id, payee_kind, payee_id, amount, payment_method, payment_date,
		 transaction_reference, notes, recorded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Payee.Kind,
		p.Payee.ID,
		p.Amount.String(),
		p.Method,
		p.Date.UTC().Format(time.RFC3339),
		nullString(p.TransactionReference),
		nullString(p.Notes),
		nullString(p.RecordedBy),
		p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	touched := make(map[string]bool)
	for _, a := range allocs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO allocations (id, payment_id, earning_id, amount_applied, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			a.ID, a.PaymentID, a.EarningID, a.AmountApplied.String(),
			a.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return nil, fmt.Errorf("failed to insert allocation: %w", err)
		}
		touched[a.EarningID] = true
	}

	for earningID := range touched {
		if err := recomputeEarning(ctx, tx, earningID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	saved := p
	return &saved, nil
}

// DeletePayment removes the payment, cascades to its allocations, and
// re-derives every affected earning record from the remaining rows.
func (s *Store) DeletePayment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Collect affected earnings before the cascade wipes the rows.
	rows, err := tx.QueryContext(ctx,
		"SELECT DISTINCT earning_id FROM allocations WHERE payment_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to query allocations: %w", err)
	}
	var affected []string
	for rows.Next() {
		var earningID string
		if err := rows.Scan(&earningID); err != nil {
			rows.Close()
			return err
		}
		affected = append(affected, earningID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	res, err := tx.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payments.ErrPaymentNotFound
	}

	for _, earningID := range affected {
		if err := recomputeEarning(ctx, tx, earningID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// recomputeEarning re-derives one record's paid/pending/status by summing
// its allocation rows. Amounts are stored as TEXT precisely so the database
// never does currency arithmetic; the sum happens in decimal here.
func recomputeEarning(ctx context.Context, tx *sql.Tx, earningID string) error {
	var total string
	err := tx.QueryRowContext(ctx,
		"SELECT total_earnings FROM earnings WHERE id = ?", earningID).Scan(&total)
	if err == sql.ErrNoRows {
		return earnings.ErrEarningNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load earning %s: %w", earningID, err)
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT amount_applied FROM allocations WHERE earning_id = ?", earningID)
	if err != nil {
		return fmt.Errorf("failed to query allocations for %s: %w", earningID, err)
	}
	paid := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			rows.Close()
			return err
		}
		paid = paid.Add(earnings.MustDecimal(amount))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	totalD := earnings.MustDecimal(total)
	pending := totalD.Sub(paid)

	res, err := tx.ExecContext(ctx, `
		UPDATE earnings SET amount_paid = ?, amount_pending = ?, payment_status = ?
		WHERE id = ?`,
		paid.String(), pending.String(), earnings.StatusFor(totalD, paid), earningID)
	if err != nil {
		return fmt.Errorf("failed to update earning %s: %w", earningID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payments.ErrConcurrentModification
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, id string) (*payments.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, paymentSelect+" WHERE id = ?", id)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, payments.ErrPaymentNotFound
	}
	return p, err
}

func (s *Store) ListPayments(ctx context.Context, payee earnings.PayeeRef, limit int) ([]*payments.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := paymentSelect
	var args []any
	if !payee.IsZero() {
		query += " WHERE payee_kind = ? AND payee_id = ?"
		args = append(args, payee.Kind, payee.ID)
	}
	query += " ORDER BY payment_date DESC, created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []*payments.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) AllocationsForPayment(ctx context.Context, paymentID string) ([]payments.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payment_id, earning_id, amount_applied, created_at
		FROM allocations WHERE payment_id = ? ORDER BY created_at ASC, id ASC`,
		paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var out []payments.Allocation
	for rows.Next() {
		var (
			a         payments.Allocation
			amount    string
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.EarningID, &amount, &createdAt); err != nil {
			return nil, err
		}
		a.AmountApplied = earnings.MustDecimal(amount)
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

const paymentSelect = `
	SELECT id, payee_kind, payee_id, amount, payment_method, payment_date,
	       transaction_reference, notes, recorded_by, created_at
	FROM payments`

func scanPayment(row rowScanner) (*payments.Payment, error) {
	var (
		p         payments.Payment
		kind      string
		amount    string
		date      string
		txRef     sql.NullString
		notes     sql.NullString
		recorded  sql.NullString
		createdAt string
	)

	err := row.Scan(&p.ID, &kind, &p.Payee.ID, &amount, &p.Method, &date,
		&txRef, &notes, &recorded, &createdAt)
	if err != nil {
		return nil, err
	}

	p.Payee.Kind = earnings.PayeeKind(kind)
	p.Amount = earnings.MustDecimal(amount)
	p.Date, _ = time.Parse(time.RFC3339, date)
	p.TransactionReference = txRef.String
	p.Notes = notes.String
	p.RecordedBy = recorded.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
