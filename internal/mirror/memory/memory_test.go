package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"unibudget/internal/core"
)

func TestMemoryStoreAppend(t *testing.T) {
	s := New()

	ref, err := s.AppendExpense(context.Background(), core.ExpenseRecord{
		Year: 2024, Month: 1, Day: 5,
		Category:    "food",
		Description: "groceries",
		Amount:      decimal.RequireFromString("12.50"),
	})
	if err != nil || ref != "mem:expenses:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	ref, err = s.AppendIncome(context.Background(), core.IncomeRecord{
		Year: 2024, Month: 1, Day: 10,
		Source: "stipend",
		Amount: decimal.RequireFromString("100.00"),
	})
	if err != nil || ref != "mem:income:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	if got := s.Expenses(); len(got) != 1 || got[0].Description != "groceries" {
		t.Fatalf("unexpected expenses: %v", got)
	}
	if got := s.Income(); len(got) != 1 || got[0].Source != "stipend" {
		t.Fatalf("unexpected income: %v", got)
	}
}

func TestMemoryStoreAppendRejectsInvalid(t *testing.T) {
	s := New()

	_, err := s.AppendExpense(context.Background(), core.ExpenseRecord{
		Year: 2024, Month: 13, Day: 1,
		Category: "food",
		Amount:   decimal.RequireFromString("1.00"),
	})
	if err == nil {
		t.Fatal("expected validation error for month 13")
	}

	_, err = s.AppendIncome(context.Background(), core.IncomeRecord{
		Year: 2024, Month: 1, Day: 1,
		Source: "x",
		Amount: decimal.Zero,
	})
	if err == nil {
		t.Fatal("expected validation error for zero amount")
	}
}
