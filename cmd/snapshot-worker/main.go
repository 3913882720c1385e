package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unibudget/internal/cli"
	"unibudget/internal/jobs"
	"unibudget/internal/report"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("snapshot", os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	jobsCfg, err := jobs.LoadConfig(cfg.JobsConfigPath)
	if err != nil {
		logger.Error("Failed to load jobs config", "error", err, "path", cfg.JobsConfigPath)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup := cli.OpenStore(ctx, logger, cfg)
	defer func() {
		if err := cleanup(); err != nil {
			logger.Error("Storage cleanup failed", "error", err)
		}
	}()

	builder := report.NewBuilder(store, logger.Logger)
	scheduler, err := jobs.NewScheduler(jobsCfg.Snapshot, builder, logger.Logger)
	if err != nil {
		logger.Error("Failed to set up snapshot scheduler", "error", err)
		os.Exit(1)
	}

	scheduler.Start()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Error("Scheduler stop error", "error", err)
	}
	logger.Info("Snapshot worker stopped gracefully")
}
