// Package postgres is the pgx-backed storage backend for shared deployments.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"unibudget/internal/core"
	"unibudget/internal/storage"
)

// Amounts are NUMERIC(12,2) in the schema and selected as text so they reach
// the decimal type without a float round-trip.
const (
	expenseColumns = "id, year, month, day, category, description, amount::text"
	incomeColumns  = "id, year, month, day, source, amount::text"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// Open migrates the schema, then connects a pool against the database URL.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) CreateExpense(ctx context.Context, rec core.ExpenseRecord) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO expenses (year, month, day, category, description, amount) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		rec.Year, rec.Month, rec.Day, rec.Category, rec.Description, rec.Amount.String()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"date", rec.Date(),
		"category", rec.Category,
		"amount", rec.Amount.String())
	return id, nil
}

func (s *Store) CreateIncome(ctx context.Context, rec core.IncomeRecord) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO income (year, month, day, source, amount) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		rec.Year, rec.Month, rec.Day, rec.Source, rec.Amount.String()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create income: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", id,
		"date", rec.Date(),
		"source", rec.Source,
		"amount", rec.Amount.String())
	return id, nil
}

func (s *Store) Expenses(ctx context.Context, filter core.MonthFilter) ([]core.ExpenseRecord, error) {
	return queryExpenses(ctx, s.pool, filter)
}

func (s *Store) Income(ctx context.Context, filter core.MonthFilter) ([]core.IncomeRecord, error) {
	return queryIncome(ctx, s.pool, filter)
}

// Acquire checks one pool connection out for the duration of an export.
func (s *Store) Acquire(ctx context.Context) (storage.ReportConn, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire report connection: %w", err)
	}
	return &reportConn{conn: conn}, nil
}

type reportConn struct {
	conn *pgxpool.Conn
}

func (c *reportConn) Expenses(ctx context.Context, filter core.MonthFilter) ([]core.ExpenseRecord, error) {
	return queryExpenses(ctx, c.conn, filter)
}

func (c *reportConn) Income(ctx context.Context, filter core.MonthFilter) ([]core.IncomeRecord, error) {
	return queryIncome(ctx, c.conn, filter)
}

func (c *reportConn) Release() error {
	c.conn.Release()
	return nil
}

// querier is satisfied by *pgxpool.Pool and *pgxpool.Conn.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryExpenses(ctx context.Context, q querier, filter core.MonthFilter) ([]core.ExpenseRecord, error) {
	query := "SELECT " + expenseColumns + " FROM expenses"
	var args []any
	if filter.Active() {
		query += " WHERE year = $1 AND month = $2"
		args = append(args, filter.Year, filter.Month)
	}
	query += " ORDER BY year DESC, month DESC, day DESC"

	rows, err := q.Query(ctx, query, args...)
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
		query += " WHERE year = $1 AND month = $2"
		args = append(args, filter.Year, filter.Month)
	}
	query += " ORDER BY year DESC, month DESC, day DESC"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query income: %w", err)
	}
	defer rows.Close()
	return scanIncomeRows(rows)
}

func (s *Store) ExpenseByID(ctx context.Context, id int64) (core.ExpenseRecord, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = $1", id)
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
	rows, err := s.pool.Query(ctx, "SELECT "+incomeColumns+" FROM income WHERE id = $1", id)
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
	rows, err := s.pool.Query(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE sync_status = 'pending' ORDER BY id LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("query pending expenses: %w", err)
	}
	defer rows.Close()
	return scanExpenseRows(rows)
}

func (s *Store) PendingIncome(ctx context.Context, limit int) ([]core.IncomeRecord, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+incomeColumns+" FROM income WHERE sync_status = 'pending' ORDER BY id LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("query pending income: %w", err)
	}
	defer rows.Close()
	return scanIncomeRows(rows)
}

func (s *Store) MarkExpenseSynced(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE expenses SET sync_status = 'synced', sync_error = '', synced_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	return nil
}

func (s *Store) MarkIncomeSynced(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE income SET sync_status = 'synced', sync_error = '', synced_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark income synced: %w", err)
	}
	return nil
}

func (s *Store) MarkExpenseSyncError(ctx context.Context, id int64, msg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE expenses SET sync_status = 'error', sync_error = $1 WHERE id = $2`, msg, id)
	if err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	return nil
}

func (s *Store) MarkIncomeSyncError(ctx context.Context, id int64, msg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE income SET sync_status = 'error', sync_error = $1 WHERE id = $2`, msg, id)
	if err != nil {
		return fmt.Errorf("mark income sync error: %w", err)
	}
	return nil
}

func scanExpenseRows(rows pgx.Rows) ([]core.ExpenseRecord, error) {
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

func scanIncomeRows(rows pgx.Rows) ([]core.IncomeRecord, error) {
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
