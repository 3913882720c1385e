// Package memory is an in-memory storage backend used by tests and throwaway
// runs. It implements the same ports as the SQL backends, including the
// fetch ordering contract.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"unibudget/internal/core"
	"unibudget/internal/storage"
)

type Store struct {
	mu          sync.Mutex
	expenses    []core.ExpenseRecord
	income      []core.IncomeRecord
	expenseSync map[int64]string
	incomeSync  map[int64]string
	nextID      int64
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		expenseSync: make(map[int64]string),
		incomeSync:  make(map[int64]string),
		nextID:      1,
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) CreateExpense(_ context.Context, rec core.ExpenseRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	s.expenses = append(s.expenses, rec)
	s.expenseSync[rec.ID] = "pending"
	return rec.ID, nil
}

func (s *Store) CreateIncome(_ context.Context, rec core.IncomeRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	s.income = append(s.income, rec)
	s.incomeSync[rec.ID] = "pending"
	return rec.ID, nil
}

func (s *Store) Expenses(_ context.Context, filter core.MonthFilter) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.ExpenseRecord
	for _, r := range s.expenses {
		if filter.Active() && (r.Year != filter.Year || r.Month != filter.Month) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		if out[i].Month != out[j].Month {
			return out[i].Month > out[j].Month
		}
		return out[i].Day > out[j].Day
	})
	return out, nil
}

func (s *Store) Income(_ context.Context, filter core.MonthFilter) ([]core.IncomeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.IncomeRecord
	for _, r := range s.income {
		if filter.Active() && (r.Year != filter.Year || r.Month != filter.Month) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		if out[i].Month != out[j].Month {
			return out[i].Month > out[j].Month
		}
		return out[i].Day > out[j].Day
	})
	return out, nil
}

func (s *Store) ExpenseByID(_ context.Context, id int64) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.expenses {
		if r.ID == id {
			return r, nil
		}
	}
	return core.ExpenseRecord{}, fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
}

func (s *Store) IncomeByID(_ context.Context, id int64) (core.IncomeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.income {
		if r.ID == id {
			return r, nil
		}
	}
	return core.IncomeRecord{}, fmt.Errorf("income %d: %w", id, storage.ErrNotFound)
}

// Acquire returns a view over the store; Release is a no-op.
func (s *Store) Acquire(_ context.Context) (storage.ReportConn, error) {
	return &reportConn{store: s}, nil
}

type reportConn struct {
	store *Store
}

func (c *reportConn) Expenses(ctx context.Context, filter core.MonthFilter) ([]core.ExpenseRecord, error) {
	return c.store.Expenses(ctx, filter)
}

func (c *reportConn) Income(ctx context.Context, filter core.MonthFilter) ([]core.IncomeRecord, error) {
	return c.store.Income(ctx, filter)
}

func (c *reportConn) Release() error { return nil }

func (s *Store) PendingExpenses(_ context.Context, limit int) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.ExpenseRecord
	for _, r := range s.expenses {
		if s.expenseSync[r.ID] != "pending" {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) PendingIncome(_ context.Context, limit int) ([]core.IncomeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.IncomeRecord
	for _, r := range s.income {
		if s.incomeSync[r.ID] != "pending" {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkExpenseSynced(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenseSync[id] = "synced"
	return nil
}

func (s *Store) MarkIncomeSynced(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomeSync[id] = "synced"
	return nil
}

func (s *Store) MarkExpenseSyncError(_ context.Context, id int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenseSync[id] = "error"
	return nil
}

func (s *Store) MarkIncomeSyncError(_ context.Context, id int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomeSync[id] = "error"
	return nil
}

// ExpenseSyncStatus exposes sync state for assertions in tests.
func (s *Store) ExpenseSyncStatus(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenseSync[id]
}

// IncomeSyncStatus exposes sync state for assertions in tests.
func (s *Store) IncomeSyncStatus(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incomeSync[id]
}
