// Package services orchestrates record capture across storage and the sync
// event stream. The HTTP layer goes through here for writes so persistence,
// event publishing and cache invalidation stay in one place.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"unibudget/internal/amqp"
	"unibudget/internal/core"
	"unibudget/internal/storage"
)

// ErrValidation wraps record validation failures so transport layers can map
// them to a client error instead of a server error.
var ErrValidation = errors.New("invalid record")

// Publisher is the slice of the AMQP client the service needs.
type Publisher interface {
	PublishRecordSync(ctx context.Context, kind amqp.RecordKind, id int64) error
	Close() error
}

// RecordService captures expense and income records: validate, persist,
// publish a sync event. Publishing is best-effort; a failed publish leaves
// the record pending for the worker's catch-up sweep.
type RecordService struct {
	store     storage.Store
	publisher Publisher
	onCapture func()
}

// NewRecordService wires the service. publisher may be nil when AMQP is not
// configured; captures then rely on the pending sweep alone.
func NewRecordService(store storage.Store, publisher Publisher) *RecordService {
	return &RecordService{
		store:     store,
		publisher: publisher,
	}
}

// SetCaptureHook registers fn to run after every successful capture. The
// HTTP layer uses it to drop cached summaries.
func (s *RecordService) SetCaptureHook(fn func()) {
	s.onCapture = fn
}

// CreateExpense validates and persists an expense, then publishes a sync
// event. Returns the stored record with its assigned ID.
func (s *RecordService) CreateExpense(ctx context.Context, rec core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := rec.Validate(); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	id, err := s.store.CreateExpense(ctx, rec)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("save expense: %w", err)
	}
	rec.ID = id

	s.publishSync(ctx, amqp.KindExpense, id)
	s.notifyCapture()

	return rec, nil
}

// CreateIncome validates and persists an income record, then publishes a
// sync event. Returns the stored record with its assigned ID.
func (s *RecordService) CreateIncome(ctx context.Context, rec core.IncomeRecord) (core.IncomeRecord, error) {
	if err := rec.Validate(); err != nil {
		return core.IncomeRecord{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	id, err := s.store.CreateIncome(ctx, rec)
	if err != nil {
		return core.IncomeRecord{}, fmt.Errorf("save income: %w", err)
	}
	rec.ID = id

	s.publishSync(ctx, amqp.KindIncome, id)
	s.notifyCapture()

	return rec, nil
}

func (s *RecordService) publishSync(ctx context.Context, kind amqp.RecordKind, id int64) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Sync publisher not available, skipping sync event",
			"kind", kind, "id", id)
		return
	}

	// The record is saved either way; it stays pending until the worker
	// picks it up, so a failed publish only delays the mirror copy.
	if err := s.publisher.PublishRecordSync(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync event",
			"kind", kind, "id", id, "error", err)
	}
}

func (s *RecordService) notifyCapture() {
	if s.onCapture != nil {
		s.onCapture()
	}
}

// Close releases the sync publisher. The storage backend belongs to the
// caller and is closed through its own cleanup.
func (s *RecordService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close sync publisher: %w", err)
	}
	return nil
}
