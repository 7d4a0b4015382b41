package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/index-notifier/internal/domain"
	"github.com/kursadbilgin/index-notifier/internal/observability"
	"github.com/kursadbilgin/index-notifier/internal/repository"
	"go.uber.org/zap"
)

// ReconcileResult reports what one reconciliation pass wrote.
type ReconcileResult struct {
	Created []string
	// Skipped counts URLs another writer created between GetAll and Create.
	Skipped int
	Failed  []string
}

// Reconciler inserts ledger records for source URLs the ledger has never seen.
type Reconciler struct {
	ledger  repository.LedgerRepository
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewReconciler(
	ledger repository.LedgerRepository,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*Reconciler, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reconciler{
		ledger:  ledger,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

// Reconcile creates a record for every url absent from the ledger, all stamped with the same time.
// Existing records are never touched. A failed write is logged and the pass continues.
func (r *Reconciler) Reconcile(ctx context.Context, urls []string) (ReconcileResult, error) {
	log := observability.WithContextLogger(r.logger, ctx)

	existing, err := r.ledger.GetAll(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("failed to load ledger: %w", err)
	}

	missing := missingURLs(urls, existing)
	result := ReconcileResult{
		Created: make([]string, 0, len(missing)),
	}
	if len(missing) == 0 {
		return result, nil
	}

	ts := r.now().UTC()
	for _, url := range missing {
		if err := r.ledger.Create(ctx, url, ts); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				log.Debug("ledger record appeared concurrently, skipping", zap.String("url", url))
				result.Skipped++
				continue
			}

			log.Error("failed to create ledger record",
				zap.String("url", url),
				zap.Error(err),
			)
			r.metrics.IncLedgerWriteFailure("create")
			result.Failed = append(result.Failed, url)
			continue
		}

		log.Info("ledger record created", zap.String("url", url))
		result.Created = append(result.Created, url)
	}

	r.metrics.AddURLsDiscovered(len(result.Created))
	return result, nil
}

// missingURLs returns the source URLs whose key is not in existing, in source order, without duplicates.
func missingURLs(urls []string, existing map[string]domain.URLRecord) []string {
	seen := make(map[string]struct{}, len(urls))
	missing := make([]string, 0)

	for _, raw := range urls {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		key := domain.EncodeKey(url)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if _, ok := existing[key]; ok {
			continue
		}
		missing = append(missing, url)
	}

	return missing
}
