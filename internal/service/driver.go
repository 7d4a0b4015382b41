package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/index-notifier/internal/domain"
	"github.com/kursadbilgin/index-notifier/internal/observability"
	"github.com/kursadbilgin/index-notifier/internal/provider"
	"github.com/kursadbilgin/index-notifier/internal/ratelimit"
	"github.com/kursadbilgin/index-notifier/internal/repository"
	"go.uber.org/zap"
)

// NotificationDriver notifies a batch one URL at a time.
type NotificationDriver struct {
	notifier provider.Notifier
	ledger   repository.LedgerRepository
	pacer    ratelimit.Pacer
	limiter  ratelimit.Pacer
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewNotificationDriver builds a driver. pacer runs between items; limiter, when set, runs
// before every notification including the first.
func NewNotificationDriver(
	notifier provider.Notifier,
	ledger repository.LedgerRepository,
	pacer ratelimit.Pacer,
	limiter ratelimit.Pacer,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*NotificationDriver, error) {
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger repository is required")
	}
	if pacer == nil {
		pacer = ratelimit.NewFixedDelay(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NotificationDriver{
		notifier: notifier,
		ledger:   ledger,
		pacer:    pacer,
		limiter:  limiter,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}, nil
}

// Drive processes items strictly in order with exactly one attempt per URL. A successful
// notification moves the ledger timestamp before the next item starts; a failure only marks the
// item. The pacer runs between items and the limiter before each call. Cancellation stops the loop before the next item and the
// returned slice holds only processed items.
func (d *NotificationDriver) Drive(ctx context.Context, items []domain.BatchItem) []domain.BatchItem {
	log := observability.WithContextLogger(d.logger, ctx)
	processed := make([]domain.BatchItem, 0, len(items))

	for i := range items {
		if i > 0 {
			if err := d.pacer.Wait(ctx); err != nil {
				log.Warn("batch interrupted while pacing",
					zap.Int("processed", len(processed)),
					zap.Int("remaining", len(items)-len(processed)),
					zap.Error(err),
				)
				break
			}
		}
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				log.Warn("batch interrupted while waiting for notification quota",
					zap.Int("processed", len(processed)),
					zap.Int("remaining", len(items)-len(processed)),
					zap.Error(err),
				)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			log.Warn("batch interrupted",
				zap.Int("processed", len(processed)),
				zap.Int("remaining", len(items)-len(processed)),
				zap.Error(err),
			)
			break
		}

		item := items[i]
		d.process(ctx, log, &item)
		processed = append(processed, item)
	}

	return processed
}

func (d *NotificationDriver) process(ctx context.Context, log *zap.Logger, item *domain.BatchItem) {
	start := d.now()
	resp, err := d.notifier.Notify(ctx, item.URL)
	d.metrics.ObserveNotificationSendDuration(d.now().Sub(start))

	if err != nil {
		item.MarkFailed(provider.StatusCode(err), err.Error())
		d.metrics.IncNotificationFailed(string(provider.Kind(err)))
		log.Warn("url notification failed",
			zap.String("url", item.URL),
			zap.Int("statusCode", item.HTTPStatus),
			zap.String("reason", string(provider.Kind(err))),
			zap.Error(err),
		)
		return
	}

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	item.MarkSucceeded(statusCode)
	d.metrics.IncNotificationSent()

	if err := d.ledger.UpdateTimestamp(ctx, item.URL, d.now().UTC()); err != nil {
		item.LedgerError = err.Error()
		d.metrics.IncLedgerWriteFailure("update")
		log.Error("failed to update ledger timestamp after notification",
			zap.String("url", item.URL),
			zap.Error(err),
		)
		return
	}

	log.Info("url notified",
		zap.String("url", item.URL),
		zap.Int("statusCode", statusCode),
	)
}
