// Package sqlite is the default storage backend: a single-file database
// through the pure-Go modernc.org/sqlite driver, migrated on open.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"unibudget/internal/core"
	"unibudget/internal/storage"
)

// Amounts live in TEXT columns as decimal strings so no precision is lost
// between capture and aggregation.
const (
	expenseColumns = "id, year, month, day, category, description, amount"
	incomeColumns  = "id, year, month, day, source, amount"
)

type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open creates the database file if needed, runs migrations and returns the
// ready store.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreateExpense(ctx context.Context, rec core.ExpenseRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (year, month, day, category, description, amount) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Year, rec.Month, rec.Day, rec.Category, rec.Description, rec.Amount.String())
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"date", rec.Date(),
		"category", rec.Category,
		"amount", rec.Amount.String())
	return id, nil
}

func (s *Store) CreateIncome(ctx context.Context, rec core.IncomeRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO income (year, month, day, source, amount) VALUES (?, ?, ?, ?, ?)`,
		rec.Year, rec.Month, rec.Day, rec.Source, rec.Amount.String())
	if err != nil {
		return 0, fmt.Errorf("create income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("income insert id: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", id,
		"date", rec.Date(),
		"source", rec.Source,
		"amount", rec.Amount.String())
	return id, nil
}

func (s *Store) Expenses(ctx context.Context, filter core.MonthFilter) ([]core.ExpenseRecord, error) {
	return queryExpenses(ctx, s.db, filter)
}

func (s *Store) Income(ctx context.Context, filter core.MonthFilter) ([]core.IncomeRecord, error) {
	return queryIncome(ctx, s.db, filter)
}

// Acquire hands one export an exclusively owned connection.
func (s *Store) Acquire(ctx context.Context) (storage.ReportConn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire report connection: %w", err)
	}
	return &reportConn{conn: conn}, nil
}

type reportConn struct {
	conn *sql.Conn
}

func (c *reportConn) Expenses(ctx context.Context, filter core.MonthFilter) ([]core.ExpenseRecord, error) {
	return queryExpenses(ctx, c.conn, filter)
}

func (c *reportConn) Income(ctx context.Context, filter core.MonthFilter) ([]core.IncomeRecord, error) {
	return queryIncome(ctx, c.conn, filter)
}

func (c *reportConn) Release() error {
	return c.conn.Close()
}

// querier is satisfied by both *sql.DB and *sql.Conn.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryExpenses(ctx context.Context, q querier, filter core.MonthFilter) ([]core.ExpenseRecord, error) {
	query := "SELECT " + expenseColumns + " FROM expenses"
	var args []any
	if filter.Active() {
		query += " WHERE year = ? AND month = ?"
		args = append(args, filter.Year, filter.Month)
	}
	query += " ORDER BY year DESC, month DESC, day DESC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()
	return scanExpenseRows(rows)
}

func queryIncome(ctx context.Context, q querier, filter core.MonthFilter) ([]core.IncomeRecord, error) {
	query := "SELECT " + incomeColumns + " FROM income"
	var args []any
	if filter.Active() {
		query += " WHERE year = ? AND month = ?"
		args = append(args, filter.Year, filter.Month)
	}
	query += " ORDER BY year DESC, month DESC, day DESC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query income: %w", err)
	}
	defer rows.Close()
	return scanIncomeRows(rows)
}

func (s *Store) ExpenseByID(ctx context.Context, id int64) (core.ExpenseRecord, error) {
	query := "SELECT " + expenseColumns + " FROM expenses WHERE id = ?"
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("query expense by id: %w", err)
	}
	defer rows.Close()
	recs, err := scanExpenseRows(rows)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	if len(recs) == 0 {
		return core.ExpenseRecord{}, fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
	}
	return recs[0], nil
}

func (s *Store) IncomeByID(ctx context.Context, id int64) (core.IncomeRecord, error) {
	query := "SELECT " + incomeColumns + " FROM income WHERE id = ?"
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return core.IncomeRecord{}, fmt.Errorf("query income by id: %w", err)
	}
	defer rows.Close()
	recs, err := scanIncomeRows(rows)
	if err != nil {
		return core.IncomeRecord{}, err
	}
	if len(recs) == 0 {
		return core.IncomeRecord{}, fmt.Errorf("income %d: %w", id, storage.ErrNotFound)
	}
	return recs[0], nil
}

func (s *Store) PendingExpenses(ctx context.Context, limit int) ([]core.ExpenseRecord, error) {
	query := "SELECT " + expenseColumns + " FROM expenses WHERE sync_status = 'pending' ORDER BY id LIMIT ?"
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending expenses: %w", err)
	}
	defer rows.Close()
	return scanExpenseRows(rows)
}

func (s *Store) PendingIncome(ctx context.Context, limit int) ([]core.IncomeRecord, error) {
	query := "SELECT " + incomeColumns + " FROM income WHERE sync_status = 'pending' ORDER BY id LIMIT ?"
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending income: %w", err)
	}
	defer rows.Close()
	return scanIncomeRows(rows)
}

func (s *Store) MarkExpenseSynced(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = 'synced', sync_error = '', synced_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	return nil
}

func (s *Store) MarkIncomeSynced(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE income SET sync_status = 'synced', sync_error = '', synced_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark income synced: %w", err)
	}
	return nil
}

func (s *Store) MarkExpenseSyncError(ctx context.Context, id int64, msg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = 'error', sync_error = ? WHERE id = ?`, msg, id)
	if err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	return nil
}

func (s *Store) MarkIncomeSyncError(ctx context.Context, id int64, msg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE income SET sync_status = 'error', sync_error = ? WHERE id = ?`, msg, id)
	if err != nil {
		return fmt.Errorf("mark income sync error: %w", err)
	}
	return nil
}

func scanExpenseRows(rows *sql.Rows) ([]core.ExpenseRecord, error) {
	var out []core.ExpenseRecord
	for rows.Next() {
		var rec core.ExpenseRecord
		var amount string
		if err := rows.Scan(&rec.ID, &rec.Year, &rec.Month, &rec.Day, &rec.Category, &rec.Description, &amount); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		var err error
		rec.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse expense amount %q: %w", amount, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func scanIncomeRows(rows *sql.Rows) ([]core.IncomeRecord, error) {
	var out []core.IncomeRecord
	for rows.Next() {
		var rec core.IncomeRecord
		var amount string
		if err := rows.Scan(&rec.ID, &rec.Year, &rec.Month, &rec.Day, &rec.Source, &amount); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		var err error
		rec.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse income amount %q: %w", amount, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate income: %w", err)
	}
	return out, nil
}
