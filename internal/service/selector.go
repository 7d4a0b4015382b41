package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kursadbilgin/index-notifier/internal/domain"
	"github.com/kursadbilgin/index-notifier/internal/observability"
	"github.com/kursadbilgin/index-notifier/internal/repository"
	"go.uber.org/zap"
)

// BatchSelector picks the stalest ledger records.
type BatchSelector struct {
	ledger    repository.LedgerRepository
	batchSize int
	logger    *zap.Logger
}

func NewBatchSelector(ledger repository.LedgerRepository, batchSize int, logger *zap.Logger) (*BatchSelector, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger repository is required")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", domain.ErrValidation, batchSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchSelector{
		ledger:    ledger,
		batchSize: batchSize,
		logger:    logger,
	}, nil
}

// Select returns at most batchSize pending items ordered by last_notified_at, then url, ascending.
func (s *BatchSelector) Select(ctx context.Context) ([]domain.BatchItem, error) {
	records, err := s.ledger.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	log := observability.WithContextLogger(s.logger, ctx)
	candidates := make([]domain.URLRecord, 0, len(records))
	for key, record := range records {
		if strings.TrimSpace(record.URL) == "" {
			url, err := domain.DecodeKey(key)
			if err != nil || strings.TrimSpace(url) == "" {
				log.Warn("ledger record without url, skipping", zap.String("key", key))
				continue
			}
			record.URL = url
		}
		candidates = append(candidates, record)
	}

	sortByStaleness(candidates)

	limit := s.batchSize
	if len(candidates) < limit {
		limit = len(candidates)
	}

	items := make([]domain.BatchItem, 0, limit)
	for _, record := range candidates[:limit] {
		items = append(items, domain.NewBatchItem(record))
	}
	return items, nil
}

func sortByStaleness(records []domain.URLRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.LastNotifiedAt.Equal(b.LastNotifiedAt) {
			return a.LastNotifiedAt.Before(b.LastNotifiedAt)
		}
		return a.URL < b.URL
	})
}
