package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"unibudget/internal/amqp"
	"unibudget/internal/core"
	mirrormem "unibudget/internal/mirror/memory"
	storagemem "unibudget/internal/storage/memory"
)

func seedExpense(t *testing.T, store *storagemem.Store, amount string) int64 {
	t.Helper()
	id, err := store.CreateExpense(context.Background(), core.ExpenseRecord{
		Year: 2024, Month: 1, Day: 5,
		Category:    "food",
		Description: "groceries",
		Amount:      decimal.RequireFromString(amount),
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	return id
}

func seedIncome(t *testing.T, store *storagemem.Store, amount string) int64 {
	t.Helper()
	id, err := store.CreateIncome(context.Background(), core.IncomeRecord{
		Year: 2024, Month: 1, Day: 10,
		Source: "stipend",
		Amount: decimal.RequireFromString(amount),
	})
	if err != nil {
		t.Fatalf("CreateIncome: %v", err)
	}
	return id
}

func TestHandleSyncMessage_Expense(t *testing.T) {
	store := storagemem.New()
	appender := mirrormem.New()
	w := NewSyncWorker(store, appender, 10)

	id := seedExpense(t, store, "12.50")

	err := w.HandleSyncMessage(context.Background(), amqp.NewRecordSyncMessage(amqp.KindExpense, id))
	if err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}

	if got := appender.Expenses(); len(got) != 1 || got[0].ID != id {
		t.Fatalf("unexpected mirrored expenses: %v", got)
	}
	if status := store.ExpenseSyncStatus(id); status != "synced" {
		t.Errorf("sync status = %q, want synced", status)
	}
}

func TestHandleSyncMessage_Income(t *testing.T) {
	store := storagemem.New()
	appender := mirrormem.New()
	w := NewSyncWorker(store, appender, 10)

	id := seedIncome(t, store, "100.00")

	err := w.HandleSyncMessage(context.Background(), amqp.NewRecordSyncMessage(amqp.KindIncome, id))
	if err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}

	if got := appender.Income(); len(got) != 1 || got[0].ID != id {
		t.Fatalf("unexpected mirrored income: %v", got)
	}
	if status := store.IncomeSyncStatus(id); status != "synced" {
		t.Errorf("sync status = %q, want synced", status)
	}
}

func TestHandleSyncMessage_VanishedRecordIsDropped(t *testing.T) {
	store := storagemem.New()
	appender := mirrormem.New()
	w := NewSyncWorker(store, appender, 10)

	// No record with this ID exists; the message must be dropped, not requeued.
	err := w.HandleSyncMessage(context.Background(), amqp.NewRecordSyncMessage(amqp.KindExpense, 999))
	if err != nil {
		t.Fatalf("expected nil error for vanished record, got %v", err)
	}
	if got := appender.Expenses(); len(got) != 0 {
		t.Fatalf("nothing should be mirrored, got %v", got)
	}
}

func TestHandleSyncMessage_UnknownKindIsDropped(t *testing.T) {
	store := storagemem.New()
	w := NewSyncWorker(store, mirrormem.New(), 10)

	msg := &amqp.RecordSyncMessage{Kind: "transfer", ID: 1}
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("expected nil error for unknown kind, got %v", err)
	}
}

// failingAppender rejects every append.
type failingAppender struct{}

func (failingAppender) AppendExpense(context.Context, core.ExpenseRecord) (string, error) {
	return "", errors.New("mirror unavailable")
}

func (failingAppender) AppendIncome(context.Context, core.IncomeRecord) (string, error) {
	return "", errors.New("mirror unavailable")
}

func TestHandleSyncMessage_AppendFailureMarksError(t *testing.T) {
	store := storagemem.New()
	w := NewSyncWorker(store, failingAppender{}, 10)

	id := seedExpense(t, store, "12.50")

	err := w.HandleSyncMessage(context.Background(), amqp.NewRecordSyncMessage(amqp.KindExpense, id))
	if err == nil {
		t.Fatal("expected append error")
	}
	if !strings.Contains(err.Error(), "mirror unavailable") {
		t.Errorf("unexpected error: %v", err)
	}
	if status := store.ExpenseSyncStatus(id); status != "error" {
		t.Errorf("sync status = %q, want error", status)
	}
}

func TestProcessPending_SyncsBothKinds(t *testing.T) {
	store := storagemem.New()
	appender := mirrormem.New()
	w := NewSyncWorker(store, appender, 10)

	expenseID := seedExpense(t, store, "5.00")
	incomeID := seedIncome(t, store, "50.00")

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}

	if got := appender.Expenses(); len(got) != 1 {
		t.Fatalf("expected 1 mirrored expense, got %d", len(got))
	}
	if got := appender.Income(); len(got) != 1 {
		t.Fatalf("expected 1 mirrored income, got %d", len(got))
	}
	if store.ExpenseSyncStatus(expenseID) != "synced" || store.IncomeSyncStatus(incomeID) != "synced" {
		t.Error("expected both records marked synced")
	}

	// A second pass has nothing left to do.
	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending (second pass): %v", err)
	}
	if got := appender.Expenses(); len(got) != 1 {
		t.Errorf("expected no duplicate mirroring, got %d expenses", len(got))
	}
}

func TestStartupSyncCheck(t *testing.T) {
	store := storagemem.New()
	appender := mirrormem.New()
	w := NewSyncWorker(store, appender, 2)

	for i := 0; i < 3; i++ {
		seedExpense(t, store, "1.00")
	}
	seedIncome(t, store, "10.00")

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}

	// Startup uses a 5x batch, so all four records fit in one pass.
	if got := appender.Expenses(); len(got) != 3 {
		t.Errorf("expected 3 mirrored expenses, got %d", len(got))
	}
	if got := appender.Income(); len(got) != 1 {
		t.Errorf("expected 1 mirrored income, got %d", len(got))
	}
}
