/*
Package sqlite provides a SQLite-backed implementation of leave persistence.

PURPOSE:
  Persists employees, leave requests, per-work-year balance records, and
  recalculation run history using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

DERIVED-VALUE DISCIPLINE:
  The carried_forward and remaining columns of leave_balances hold values
  computed by the engine package and nothing else. The store never does
  balance arithmetic; it persists what RecalculateChain produced.
  ReplaceBalances swaps an employee's full chain atomically so readers
  never observe a half-recalculated chain.

KEY TABLES:
  employees:      Identity + hire date (anchors work-year arithmetic)
  leave_requests: Request lifecycle (pending/approved/rejected/cancelled)
  leave_balances: One row per employee/category/work year
  recalc_runs:    Audit trail of chain recalculations

INDEXES:
  - idx_balances_employee: Balance summary lookups (hot path)
  - idx_balances_unique: One row per employee/category/work year
  - idx_requests_employee, idx_requests_status: Request listings

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/chain.go: Produces the balances this store persists
  - leave/types.go: Request and Employee definitions
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

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/engine"
	"github.com/warp/leave-engine/leave"
)

// Store implements leave persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		hire_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Leave requests (lifecycle: pending/approved/rejected/cancelled)
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		category TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total_days TEXT NOT NULL,
		work_year INTEGER NOT NULL,
		leave_year INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reason TEXT,
		decided_by TEXT,
		decided_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON leave_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON leave_requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_employee_dates
		ON leave_requests(employee_id, start_date, end_date);

	-- Balance records: one row per employee/category/work year.
	-- carried_forward and remaining are engine outputs, never edited here.
	CREATE TABLE IF NOT EXISTS leave_balances (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		category TEXT NOT NULL,
		work_year INTEGER NOT NULL,
		leave_year INTEGER NOT NULL,
		allocated TEXT NOT NULL,
		carried_forward TEXT NOT NULL,
		used TEXT NOT NULL,
		remaining TEXT NOT NULL,
		overdrawn BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_balances_employee
		ON leave_balances(employee_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_balances_unique
		ON leave_balances(employee_id, category, work_year);

	-- Recalculation runs (audit trail for admin + scheduler)
	CREATE TABLE IF NOT EXISTS recalc_runs (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		trigger_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		balances_written INTEGER DEFAULT 0,
		skipped_json TEXT,
		error TEXT,
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_recalc_runs_employee
		ON recalc_runs(employee_id);
	CREATE INDEX IF NOT EXISTS idx_recalc_runs_status
		ON recalc_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SaveEmployee inserts or updates an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, email, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			hire_date = excluded.hire_date
	`

	createdAt := emp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		string(emp.ID), emp.Name, emp.Email,
		emp.HireDate.Format(time.RFC3339),
		createdAt.Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee by ID. Returns nil when absent.
func (s *Store) GetEmployee(ctx context.Context, id engine.EmployeeID) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var emp leave.Employee
	var empID, hireDate, createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, hire_date, created_at FROM employees WHERE id = ?",
		string(id),
	).Scan(&empID, &emp.Name, &emp.Email, &hireDate, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	emp.ID = engine.EmployeeID(empID)
	emp.HireDate, _ = time.Parse(time.RFC3339, hireDate)
	emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &emp, nil
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, hire_date, created_at FROM employees ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		var emp leave.Employee
		var empID, hireDate, createdAt string
		if err := rows.Scan(&empID, &emp.Name, &emp.Email, &hireDate, &createdAt); err != nil {
			return nil, err
		}
		emp.ID = engine.EmployeeID(empID)
		emp.HireDate, _ = time.Parse(time.RFC3339, hireDate)
		emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// DeleteEmployee removes an employee along with their requests and balances.
func (s *Store) DeleteEmployee(ctx context.Context, id engine.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM leave_balances WHERE employee_id = ?",
		"DELETE FROM leave_requests WHERE employee_id = ?",
		"DELETE FROM employees WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, string(id)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// =============================================================================
// REQUEST STORE
// =============================================================================

// SaveRequest inserts or updates a leave request.
func (s *Store) SaveRequest(ctx context.Context, r leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_requests (id, employee_id, category, start_date, end_date,
			total_days, work_year, leave_year, status, reason, decided_by, decided_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			decided_by = excluded.decided_by,
			decided_at = excluded.decided_at
	`

	var decidedAt *string
	if r.DecidedAt != nil {
		v := r.DecidedAt.Format(time.RFC3339)
		decidedAt = &v
	}

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, string(r.EmployeeID), string(r.Category),
		r.StartDate.Format(time.RFC3339), r.EndDate.Format(time.RFC3339),
		r.TotalDays.String(), r.WorkYear, r.LeaveYear,
		string(r.Status), r.Reason, r.DecidedBy, decidedAt,
		createdAt.Format(time.RFC3339),
	)
	return err
}

// GetRequest retrieves a request by ID. Returns nil when absent.
func (s *Store) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := requestSelect + " WHERE id = ?"
	requests, err := s.queryRequests(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}
	return &requests[0], nil
}

// ListRequestsByEmployee returns all requests for an employee, newest first.
func (s *Store) ListRequestsByEmployee(ctx context.Context, employeeID engine.EmployeeID) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := requestSelect + " WHERE employee_id = ? ORDER BY start_date DESC"
	return s.queryRequests(ctx, query, string(employeeID))
}

// ListRequestsByStatus returns all requests with a given status, oldest first
// so approval queues process in submission order.
func (s *Store) ListRequestsByStatus(ctx context.Context, status leave.RequestStatus) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := requestSelect + " WHERE status = ? ORDER BY created_at ASC"
	return s.queryRequests(ctx, query, string(status))
}

const requestSelect = `
	SELECT id, employee_id, category, start_date, end_date, total_days,
	       work_year, leave_year, status, reason, decided_by, decided_at, created_at
	FROM leave_requests`

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]leave.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.Request
	for rows.Next() {
		var (
			r          leave.Request
			employeeID string
			category   string
			startDate  string
			endDate    string
			totalDays  string
			status     string
			reason     sql.NullString
			decidedBy  sql.NullString
			decidedAt  sql.NullString
			createdAt  string
		)

		if err := rows.Scan(&r.ID, &employeeID, &category, &startDate, &endDate,
			&totalDays, &r.WorkYear, &r.LeaveYear, &status, &reason,
			&decidedBy, &decidedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}

		r.EmployeeID = engine.EmployeeID(employeeID)
		r.Category = engine.Category(category)
		r.StartDate, _ = time.Parse(time.RFC3339, startDate)
		r.EndDate, _ = time.Parse(time.RFC3339, endDate)
		r.TotalDays = parseDays(totalDays)
		r.Status = leave.RequestStatus(status)
		r.Reason = reason.String
		r.DecidedBy = decidedBy.String
		if decidedAt.Valid {
			t, _ := time.Parse(time.RFC3339, decidedAt.String)
			r.DecidedAt = &t
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		requests = append(requests, r)
	}

	return requests, rows.Err()
}

// =============================================================================
// BALANCE STORE
// =============================================================================

// SaveBalance upserts a single balance record.
func (s *Store) SaveBalance(ctx context.Context, b engine.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveBalanceTx(ctx, s.db, b)
}

func (s *Store) saveBalanceTx(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, b engine.Balance) error {
	query := `
		INSERT INTO leave_balances (id, employee_id, category, work_year, leave_year,
			allocated, carried_forward, used, remaining, overdrawn, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, category, work_year) DO UPDATE SET
			leave_year = excluded.leave_year,
			allocated = excluded.allocated,
			carried_forward = excluded.carried_forward,
			used = excluded.used,
			remaining = excluded.remaining,
			overdrawn = excluded.overdrawn,
			updated_at = excluded.updated_at
	`

	_, err := db.ExecContext(ctx, query,
		balanceKey(b), string(b.EmployeeID), string(b.Category),
		b.WorkYear, b.LeaveYear,
		b.Allocated.String(), b.CarriedForward.String(),
		b.Used.String(), b.Remaining.String(), b.Overdrawn,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

// ReplaceBalances atomically swaps an employee's entire balance set for the
// engine's freshly recalculated chain. Readers never see a partial chain.
func (s *Store) ReplaceBalances(ctx context.Context, employeeID engine.EmployeeID, balances []engine.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM leave_balances WHERE employee_id = ?", string(employeeID)); err != nil {
		return err
	}

	for _, b := range balances {
		if err := s.saveBalanceTx(ctx, tx, b); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetBalances returns all balance records for an employee, ordered by
// category then work year so chains come out in recalculation order.
func (s *Store) GetBalances(ctx context.Context, employeeID engine.EmployeeID) ([]engine.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := balanceSelect + " WHERE employee_id = ? ORDER BY category, work_year"
	return s.queryBalances(ctx, query, string(employeeID))
}

// GetBalance returns one employee/category/work-year record, nil when absent.
func (s *Store) GetBalance(ctx context.Context, employeeID engine.EmployeeID, category engine.Category, workYear int) (*engine.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := balanceSelect + " WHERE employee_id = ? AND category = ? AND work_year = ?"
	balances, err := s.queryBalances(ctx, query, string(employeeID), string(category), workYear)
	if err != nil {
		return nil, err
	}
	if len(balances) == 0 {
		return nil, nil
	}
	return &balances[0], nil
}

// ListOverdrawn returns every balance currently flagged overdrawn, for
// admin reporting.
func (s *Store) ListOverdrawn(ctx context.Context) ([]engine.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := balanceSelect + " WHERE overdrawn = TRUE ORDER BY employee_id, category, work_year"
	return s.queryBalances(ctx, query)
}

const balanceSelect = `
	SELECT employee_id, category, work_year, leave_year,
	       allocated, carried_forward, used, remaining, overdrawn
	FROM leave_balances`

func (s *Store) queryBalances(ctx context.Context, query string, args ...any) ([]engine.Balance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var balances []engine.Balance
	for rows.Next() {
		var (
			b              engine.Balance
			employeeID     string
			category       string
			allocated      string
			carriedForward string
			used           string
			remaining      string
		)

		if err := rows.Scan(&employeeID, &category, &b.WorkYear, &b.LeaveYear,
			&allocated, &carriedForward, &used, &remaining, &b.Overdrawn); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}

		b.EmployeeID = engine.EmployeeID(employeeID)
		b.Category = engine.Category(category)
		b.Allocated = parseDays(allocated)
		b.CarriedForward = parseDays(carriedForward)
		b.Used = parseDays(used)
		b.Remaining = parseDays(remaining)

		balances = append(balances, b)
	}

	return balances, rows.Err()
}

// =============================================================================
// RECALCULATION RUNS
// =============================================================================

// RecalcRun is one chain recalculation, recorded for auditing. Triggers are
// "anniversary" (scheduler), "request" (approval/cancellation), and "manual"
// (admin endpoint).
type RecalcRun struct {
	ID              string
	EmployeeID      engine.EmployeeID
	Trigger         string
	Status          string // pending, running, completed, failed
	BalancesWritten int
	Skipped         []string
	Error           string
	StartedAt       *time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
}

// SaveRecalcRun inserts or updates a recalculation run record.
func (s *Store) SaveRecalcRun(ctx context.Context, r RecalcRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO recalc_runs (id, employee_id, trigger_type, status,
			balances_written, skipped_json, error, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			balances_written = excluded.balances_written,
			skipped_json = excluded.skipped_json,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	var startedAt, completedAt *string
	if r.StartedAt != nil {
		v := r.StartedAt.Format(time.RFC3339)
		startedAt = &v
	}
	if r.CompletedAt != nil {
		v := r.CompletedAt.Format(time.RFC3339)
		completedAt = &v
	}

	skippedJSON, _ := json.Marshal(r.Skipped)

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, string(r.EmployeeID), r.Trigger, r.Status,
		r.BalancesWritten, string(skippedJSON), r.Error,
		startedAt, completedAt, createdAt.Format(time.RFC3339),
	)
	return err
}

// ListRecalcRuns returns recalculation runs, optionally filtered by status,
// newest first.
func (s *Store) ListRecalcRuns(ctx context.Context, status string) ([]RecalcRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, trigger_type, status, balances_written,
		       skipped_json, error, started_at, completed_at, created_at
		FROM recalc_runs`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RecalcRun
	for rows.Next() {
		var (
			r           RecalcRun
			employeeID  string
			skippedJSON sql.NullString
			errMsg      sql.NullString
			startedAt   sql.NullString
			completedAt sql.NullString
			createdAt   string
		)

		if err := rows.Scan(&r.ID, &employeeID, &r.Trigger, &r.Status,
			&r.BalancesWritten, &skippedJSON, &errMsg,
			&startedAt, &completedAt, &createdAt); err != nil {
			return nil, err
		}

		r.EmployeeID = engine.EmployeeID(employeeID)
		r.Error = errMsg.String
		if skippedJSON.Valid && skippedJSON.String != "" {
			json.Unmarshal([]byte(skippedJSON.String), &r.Skipped)
		}
		if startedAt.Valid {
			t, _ := time.Parse(time.RFC3339, startedAt.String)
			r.StartedAt = &t
		}
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			r.CompletedAt = &t
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"leave_balances", "leave_requests", "recalc_runs", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

// balanceKey builds the stable primary key for a balance row.
func balanceKey(b engine.Balance) string {
	return fmt.Sprintf("%s:%s:%d", b.EmployeeID, b.Category, b.WorkYear)
}

func parseDays(value string) engine.Days {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return engine.ZeroDays()
	}
	return engine.Days{Value: d}
}
