package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/index-notifier/internal/domain"
	"github.com/kursadbilgin/index-notifier/internal/observability"
	"github.com/kursadbilgin/index-notifier/internal/runlock"
	"github.com/kursadbilgin/index-notifier/internal/source"
	"go.uber.org/zap"
)

const (
	runResultFatal        = "fatal"
	runResultAllSucceeded = "all_succeeded"
	runResultHasFailures  = "has_failures"
)

// ReportSender delivers a finished run report to the operator.
type ReportSender interface {
	SendReport(ctx context.Context, report domain.RunReport) error
}

// RunResult is everything one execution produced.
type RunResult struct {
	RunID      string
	Discovered int
	Reconcile  ReconcileResult
	Report     domain.RunReport
	// MailError is set when the report could not be delivered. It never fails the run.
	MailError error
}

// RunService executes one fetch -> reconcile -> select -> notify -> report cycle.
type RunService struct {
	source     source.URLSource
	reconciler *Reconciler
	selector   *BatchSelector
	driver     *NotificationDriver
	mailer     ReportSender
	locker     runlock.Locker
	logger     *zap.Logger
	metrics    *observability.Metrics
	newRunID   func() string
	now        func() time.Time
}

func NewRunService(
	urlSource source.URLSource,
	reconciler *Reconciler,
	selector *BatchSelector,
	driver *NotificationDriver,
	mailer ReportSender,
	locker runlock.Locker,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*RunService, error) {
	if urlSource == nil {
		return nil, fmt.Errorf("url source is required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("reconciler is required")
	}
	if selector == nil {
		return nil, fmt.Errorf("batch selector is required")
	}
	if driver == nil {
		return nil, fmt.Errorf("notification driver is required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("report sender is required")
	}
	if locker == nil {
		locker = runlock.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RunService{
		source:     urlSource,
		reconciler: reconciler,
		selector:   selector,
		driver:     driver,
		mailer:     mailer,
		locker:     locker,
		logger:     logger,
		metrics:    metrics,
		newRunID:   uuid.NewString,
		now:        time.Now,
	}, nil
}

// Run executes one batch. Errors returned are fatal for the run: lock contention, source fetch and
// ledger reads. Per-URL failures live in the report and a mail failure only sets MailError.
func (s *RunService) Run(ctx context.Context) (*RunResult, error) {
	release, err := s.locker.Acquire(ctx)
	if err != nil {
		s.logger.Warn("batch run rejected, lock not acquired", zap.Error(err))
		return nil, err
	}
	defer release()

	result := &RunResult{RunID: s.newRunID()}
	ctx = observability.WithRunID(ctx, result.RunID)
	log := observability.WithContextLogger(s.logger, ctx)
	log.Info("batch run started")

	urls, err := s.source.FetchAll(ctx)
	if err != nil {
		s.metrics.ObserveRun(runResultFatal, s.now())
		log.Error("failed to fetch source urls", zap.Error(err))
		return nil, fmt.Errorf("failed to fetch source urls: %w", err)
	}
	result.Discovered = len(urls)
	log.Info("source urls fetched", zap.Int("count", len(urls)))

	result.Reconcile, err = s.reconciler.Reconcile(ctx, urls)
	if err != nil {
		s.metrics.ObserveRun(runResultFatal, s.now())
		log.Error("reconciliation failed", zap.Error(err))
		return nil, fmt.Errorf("reconcile ledger: %w", err)
	}
	log.Info("ledger reconciled",
		zap.Int("created", len(result.Reconcile.Created)),
		zap.Int("failed", len(result.Reconcile.Failed)),
	)

	items, err := s.selector.Select(ctx)
	if err != nil {
		s.metrics.ObserveRun(runResultFatal, s.now())
		log.Error("batch selection failed", zap.Error(err))
		return nil, fmt.Errorf("select batch: %w", err)
	}
	log.Info("batch selected", zap.Int("size", len(items)))

	processed := s.driver.Drive(ctx, items)
	result.Report = BuildReport(processed)

	if err := s.mailer.SendReport(ctx, result.Report); err != nil {
		result.MailError = err
		log.Error("failed to send run report", zap.Error(err))
	} else {
		log.Info("run report sent")
	}

	runLabel := runResultAllSucceeded
	if result.Report.Classification() == domain.ClassificationHasFailures {
		runLabel = runResultHasFailures
	}
	s.metrics.ObserveRun(runLabel, s.now())

	log.Info("batch run finished",
		zap.String("classification", result.Report.Classification().String()),
		zap.Int("successCount", result.Report.SuccessCount),
		zap.Int("failureCount", result.Report.FailureCount),
	)
	return result, nil
}
