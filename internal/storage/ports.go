package storage

import (
	"context"
	"errors"

	"unibudget/internal/core"
)

// ErrNotFound is returned by the by-ID getters when no row matches.
var ErrNotFound = errors.New("record not found")

// Ports every storage backend provides. The SQL backends query fixed,
// compile-time-known table and column identifiers; filter values are always
// bound as typed parameters, never spliced into the statement text.
type (
	// RecordWriter persists captured records. New records start in sync
	// state "pending" so the mirror worker picks them up.
	RecordWriter interface {
		CreateExpense(ctx context.Context, rec core.ExpenseRecord) (int64, error)
		CreateIncome(ctx context.Context, rec core.IncomeRecord) (int64, error)
	}

	// RecordReader fetches records ordered by year DESC, month DESC, day DESC,
	// optionally restricted to one year+month. All rows are materialized; the
	// expected personal-finance volumes make pagination pointless.
	RecordReader interface {
		Expenses(ctx context.Context, filter core.MonthFilter) ([]core.ExpenseRecord, error)
		Income(ctx context.Context, filter core.MonthFilter) ([]core.IncomeRecord, error)
		ExpenseByID(ctx context.Context, id int64) (core.ExpenseRecord, error)
		IncomeByID(ctx context.Context, id int64) (core.IncomeRecord, error)
	}

	// ReportConn is a database connection exclusively owned by a single
	// export. Callers must Release it on every exit path.
	ReportConn interface {
		Expenses(ctx context.Context, filter core.MonthFilter) ([]core.ExpenseRecord, error)
		Income(ctx context.Context, filter core.MonthFilter) ([]core.IncomeRecord, error)
		Release() error
	}

	// ReportSource hands out per-export connections.
	ReportSource interface {
		Acquire(ctx context.Context) (ReportConn, error)
	}

	// SyncQueue drives the mirror worker over records not yet copied out.
	SyncQueue interface {
		PendingExpenses(ctx context.Context, limit int) ([]core.ExpenseRecord, error)
		PendingIncome(ctx context.Context, limit int) ([]core.IncomeRecord, error)
		MarkExpenseSynced(ctx context.Context, id int64) error
		MarkIncomeSynced(ctx context.Context, id int64) error
		MarkExpenseSyncError(ctx context.Context, id int64, msg string) error
		MarkIncomeSyncError(ctx context.Context, id int64, msg string) error
	}

	// Pinger reports whether the backend is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Store is the full backend surface the factory wires together.
	Store interface {
		RecordWriter
		RecordReader
		ReportSource
		SyncQueue
		Pinger
		Close() error
	}
)
