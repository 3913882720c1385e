package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"unibudget/internal/core"
)

func seed(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	rows := []core.ExpenseRecord{
		{Year: 2024, Month: 1, Day: 5, Category: "Uber", Description: "ride", Amount: decimal.RequireFromString("10.00")},
		{Year: 2024, Month: 2, Day: 1, Category: "Misc", Description: "x", Amount: decimal.RequireFromString("3.00")},
		{Year: 2024, Month: 1, Day: 9, Category: "Food", Description: "lunch", Amount: decimal.RequireFromString("5.50")},
	}
	for _, r := range rows {
		if _, err := s.CreateExpense(ctx, r); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}
	if _, err := s.CreateIncome(ctx, core.IncomeRecord{
		Year: 2024, Month: 1, Day: 1, Source: "Bursary", Amount: decimal.RequireFromString("100.00"),
	}); err != nil {
		t.Fatalf("create income: %v", err)
	}
	return s
}

func TestExpensesOrderedDescending(t *testing.T) {
	s := seed(t)
	got, err := s.Expenses(context.Background(), core.MonthFilter{})
	if err != nil {
		t.Fatalf("expenses: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	if got[0].Month != 2 || got[1].Day != 9 || got[2].Day != 5 {
		t.Fatalf("rows out of order: %+v", got)
	}
}

func TestExpensesMonthFilter(t *testing.T) {
	s := seed(t)
	got, err := s.Expenses(context.Background(), core.NewMonthFilter(2024, 1))
	if err != nil {
		t.Fatalf("expenses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows for 2024-01, got %d", len(got))
	}
	for _, r := range got {
		if r.Year != 2024 || r.Month != 1 {
			t.Fatalf("row outside filter: %+v", r)
		}
	}
}

func TestPendingAndMarking(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	pending, err := s.PendingExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("pending expenses: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending, got %d", len(pending))
	}

	if err := s.MarkExpenseSynced(ctx, pending[0].ID); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := s.MarkExpenseSyncError(ctx, pending[1].ID, "boom"); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	pending, err = s.PendingExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("pending expenses: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending after marking, got %d", len(pending))
	}

	pi, err := s.PendingIncome(ctx, 10)
	if err != nil {
		t.Fatalf("pending income: %v", err)
	}
	if len(pi) != 1 {
		t.Fatalf("expected 1 pending income, got %d", len(pi))
	}
}

func TestAcquireReleases(t *testing.T) {
	s := seed(t)
	conn, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer conn.Release()

	rows, err := conn.Expenses(context.Background(), core.MonthFilter{})
	if err != nil {
		t.Fatalf("expenses: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
}
