package memory

import (
	"context"
	"fmt"
	"sync"

	"unibudget/internal/core"
	ports "unibudget/internal/mirror"
)

// Store is an in-memory record appender used in tests and local development.
type Store struct {
	mu       sync.Mutex
	expenses []core.ExpenseRecord
	income   []core.IncomeRecord
}

var _ ports.RecordAppender = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// AppendExpense stores the record and returns a synthetic row reference.
func (s *Store) AppendExpense(_ context.Context, e core.ExpenseRecord) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, e)
	return fmt.Sprintf("mem:expenses:%d", len(s.expenses)), nil
}

// AppendIncome stores the record and returns a synthetic row reference.
func (s *Store) AppendIncome(_ context.Context, in core.IncomeRecord) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.income = append(s.income, in)
	return fmt.Sprintf("mem:income:%d", len(s.income)), nil
}

// Expenses returns a copy of the appended expense records.
func (s *Store) Expenses() []core.ExpenseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ExpenseRecord(nil), s.expenses...)
}

// Income returns a copy of the appended income records.
func (s *Store) Income() []core.IncomeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.IncomeRecord(nil), s.income...)
}
