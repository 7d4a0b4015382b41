package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kursadbilgin/index-notifier/internal/app"
	"github.com/kursadbilgin/index-notifier/internal/config"
	"github.com/kursadbilgin/index-notifier/internal/observability"
	"go.uber.org/zap"
)

// notifier runs one batch and exits. Exit status is 1 on configuration errors and fatal run errors only.
func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("configuration error: %v", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.LogLevel, "notifier", zap.String("ledgerBackend", cfg.LedgerBackend))
	if err != nil {
		log.Printf("failed to initialize logger: %v", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("initialization failed", zap.Error(err))
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close resources", zap.Error(err))
		}
	}()

	result, runErr := a.Runner.Run(ctx)

	if err := a.Metrics.Push(cfg.PushgatewayURL); err != nil {
		logger.Warn("metrics push failed", zap.Error(err))
	}

	if runErr != nil {
		logger.Error("batch run failed", zap.Error(runErr))
		return 1
	}

	logger.Info("batch run completed",
		zap.String("runId", result.RunID),
		zap.String("classification", result.Report.Classification().String()),
		zap.Int("successCount", result.Report.SuccessCount),
		zap.Int("failureCount", result.Report.FailureCount),
	)
	return 0
}
