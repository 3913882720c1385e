package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go"
	"github.com/robfig/cron/v3"

	"unibudget/internal/core"
	"unibudget/internal/report"
)

const (
	snapshotAttempts   = 3
	defaultRetryDelay  = 2 * time.Second
	snapshotTimeFormat = "20060102-150405"
)

// Scheduler fires the snapshot job on its cron spec. Each run renders the
// workbook and writes it into the archive directory with a timestamped name.
type Scheduler struct {
	cron       *cron.Cron
	builder    *report.Builder
	cfg        SnapshotConfig
	logger     *slog.Logger
	now        func() time.Time
	retryDelay time.Duration
}

// NewScheduler registers the snapshot job. It fails when the cron spec does
// not parse.
func NewScheduler(cfg SnapshotConfig, builder *report.Builder, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:       cron.New(),
		builder:    builder,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		retryDelay: defaultRetryDelay,
	}

	if _, err := s.cron.AddFunc(cfg.Schedule, func() {
		if _, err := s.Run(context.Background()); err != nil {
			s.logger.Error("Snapshot run failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("register snapshot schedule %q: %w", cfg.Schedule, err)
	}

	return s, nil
}

// WithClock overrides the time source.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start begins firing on the schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Snapshot scheduler started",
		"schedule", s.cfg.Schedule,
		"dir", s.cfg.Dir,
		"month", s.cfg.Month)
}

// Stop halts the schedule and waits for an in-flight run, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run renders one snapshot immediately and returns the archived file path.
// Generation is retried a few times, but only when the store is unreachable;
// query failures are not transient.
func (s *Scheduler) Run(ctx context.Context) (string, error) {
	filter := s.snapshotFilter()

	var data []byte
	err := retry.Do(
		func() error {
			var genErr error
			data, genErr = s.builder.Generate(ctx, filter)
			return genErr
		},
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, report.ErrConnection)
		}),
		retry.Attempts(snapshotAttempts),
		retry.Delay(s.retryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("generate snapshot: %w", err)
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	name := fmt.Sprintf("university_expenses-%s.xlsx", s.now().Format(snapshotTimeFormat))
	path := filepath.Join(s.cfg.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	s.logger.InfoContext(ctx, "Snapshot archived",
		"path", path,
		"bytes", len(data),
		"month", s.cfg.Month)
	return path, nil
}

// snapshotFilter maps the configured month mode onto a fetch filter.
func (s *Scheduler) snapshotFilter() core.MonthFilter {
	now := s.now()
	switch s.cfg.Month {
	case MonthModeAll:
		return core.MonthFilter{}
	case MonthModeCurrent:
		return core.NewMonthFilter(now.Year(), int(now.Month()))
	default:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		prev := first.AddDate(0, -1, 0)
		return core.NewMonthFilter(prev.Year(), int(prev.Month()))
	}
}
