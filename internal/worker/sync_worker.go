package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"unibudget/internal/amqp"
	"unibudget/internal/core"
	"unibudget/internal/mirror"
	"unibudget/internal/storage"
)

const defaultBatchSize = 50

// SyncStore is the slice of the storage surface the worker needs.
type SyncStore interface {
	ExpenseByID(ctx context.Context, id int64) (core.ExpenseRecord, error)
	IncomeByID(ctx context.Context, id int64) (core.IncomeRecord, error)
	storage.SyncQueue
}

// SyncWorker copies ledger records from the database to the spreadsheet
// mirror, driven by AMQP messages with a pending-scan as backup.
type SyncWorker struct {
	store     SyncStore
	mirror    mirror.RecordAppender
	batchSize int
}

func NewSyncWorker(store SyncStore, appender mirror.RecordAppender, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &SyncWorker{
		store:     store,
		mirror:    appender,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single record sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"kind", msg.Kind,
		"id", msg.ID)

	switch msg.Kind {
	case amqp.KindExpense:
		rec, err := w.store.ExpenseByID(ctx, msg.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// The record is gone; requeueing would loop forever.
				slog.WarnContext(ctx, "Expense vanished before sync, dropping message", "id", msg.ID)
				return nil
			}
			return fmt.Errorf("get expense from storage: %w", err)
		}
		return w.syncExpense(ctx, rec)

	case amqp.KindIncome:
		rec, err := w.store.IncomeByID(ctx, msg.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				slog.WarnContext(ctx, "Income vanished before sync, dropping message", "id", msg.ID)
				return nil
			}
			return fmt.Errorf("get income from storage: %w", err)
		}
		return w.syncIncome(ctx, rec)

	default:
		slog.WarnContext(ctx, "Dropping sync message with unknown kind", "kind", msg.Kind, "id", msg.ID)
		return nil
	}
}

// ProcessPending mirrors any records that haven't been synced yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	expenses, err := w.store.PendingExpenses(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}
	income, err := w.store.PendingIncome(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending income: %w", err)
	}

	if len(expenses) == 0 && len(income) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending records",
		"expenses", len(expenses),
		"income", len(income))

	for _, rec := range expenses {
		if err := w.syncExpense(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to sync expense", "id", rec.ID, "error", err)
		}
	}
	for _, rec := range income {
		if err := w.syncIncome(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to sync income", "id", rec.ID, "error", err)
		}
	}

	return nil
}

// StartupSyncCheck mirrors pending records left over from missed AMQP
// messages or worker downtime. Runs with a larger batch than the periodic
// backup scan.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	expenses, err := w.store.PendingExpenses(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending expenses for startup check: %w", err)
	}
	income, err := w.store.PendingIncome(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending income for startup check: %w", err)
	}

	total := len(expenses) + len(income)
	if total == 0 {
		slog.InfoContext(ctx, "No pending records found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending records on startup, processing...",
		"expenses", len(expenses),
		"income", len(income))

	successCount := 0
	errorCount := 0

	for _, rec := range expenses {
		if err := w.syncExpense(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to sync expense during startup", "id", rec.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}
	for _, rec := range income {
		if err := w.syncIncome(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to sync income during startup", "id", rec.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", total,
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) syncExpense(ctx context.Context, rec core.ExpenseRecord) error {
	ref, err := w.mirror.AppendExpense(ctx, rec)
	if err != nil {
		if markErr := w.store.MarkExpenseSyncError(ctx, rec.ID, err.Error()); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("append expense to mirror: %w", err)
	}

	if err := w.store.MarkExpenseSynced(ctx, rec.ID); err != nil {
		// The append itself worked; surface the bookkeeping failure in the log only.
		slog.ErrorContext(ctx, "Failed to mark expense as synced", "id", rec.ID, "error", err)
	}

	slog.InfoContext(ctx, "Synced expense to mirror",
		"id", rec.ID,
		"ref", ref,
		"date", rec.Date(),
		"amount", core.FormatAmount(rec.Amount))
	return nil
}

func (w *SyncWorker) syncIncome(ctx context.Context, rec core.IncomeRecord) error {
	ref, err := w.mirror.AppendIncome(ctx, rec)
	if err != nil {
		if markErr := w.store.MarkIncomeSyncError(ctx, rec.ID, err.Error()); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("append income to mirror: %w", err)
	}

	if err := w.store.MarkIncomeSynced(ctx, rec.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark income as synced", "id", rec.ID, "error", err)
	}

	slog.InfoContext(ctx, "Synced income to mirror",
		"id", rec.ID,
		"ref", ref,
		"date", rec.Date(),
		"amount", core.FormatAmount(rec.Amount))
	return nil
}
