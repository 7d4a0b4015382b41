package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gfirestore "cloud.google.com/go/firestore"
	"github.com/kursadbilgin/index-notifier/internal/domain"
	"github.com/kursadbilgin/index-notifier/internal/repository"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultCollection = "url_notifications"

	fieldURL            = "url"
	fieldLastNotifiedAt = "last_notified_at"
)

// ledgerDocument is the stored document shape. LastSent is the field name written by
// earlier deployments and is only read as a fallback.
type ledgerDocument struct {
	URL            string    `firestore:"url"`
	LastNotifiedAt time.Time `firestore:"last_notified_at,omitempty"`
	LastSent       time.Time `firestore:"last_sent,omitempty"`
}

// LedgerRepo stores one document per URL, keyed by domain.EncodeKey.
type LedgerRepo struct {
	client     *gfirestore.Client
	collection string
}

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

func NewClient(ctx context.Context, projectID string) (*gfirestore.Client, error) {
	client, err := gfirestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}

func NewLedgerRepo(client *gfirestore.Client, collection string) (*LedgerRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = defaultCollection
	}
	return &LedgerRepo{client: client, collection: collection}, nil
}

func (r *LedgerRepo) GetAll(ctx context.Context) (map[string]domain.URLRecord, error) {
	iter := r.client.Collection(r.collection).Documents(ctx)
	defer iter.Stop()

	records := make(map[string]domain.URLRecord)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list ledger documents: %w", err)
		}

		var doc ledgerDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode ledger document %s: %w", snap.Ref.ID, err)
		}

		records[snap.Ref.ID] = recordFromDocument(snap.Ref.ID, doc)
	}

	return records, nil
}

func (r *LedgerRepo) Create(ctx context.Context, url string, ts time.Time) error {
	key := domain.EncodeKey(url)
	_, err := r.client.Collection(r.collection).Doc(key).Create(ctx, map[string]any{
		fieldURL:            url,
		fieldLastNotifiedAt: ts,
	})
	if status.Code(err) == codes.AlreadyExists {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create ledger document: %w", err)
	}
	return nil
}

func (r *LedgerRepo) UpdateTimestamp(ctx context.Context, url string, ts time.Time) error {
	key := domain.EncodeKey(url)
	_, err := r.client.Collection(r.collection).Doc(key).Update(ctx, []gfirestore.Update{
		{Path: fieldLastNotifiedAt, Value: ts},
	})
	if status.Code(err) == codes.NotFound {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update ledger document: %w", err)
	}
	return nil
}

// recordFromDocument recovers the URL from the key when the url field is missing.
func recordFromDocument(key string, doc ledgerDocument) domain.URLRecord {
	url := strings.TrimSpace(doc.URL)
	if url == "" {
		if decoded, err := domain.DecodeKey(key); err == nil {
			url = decoded
		}
	}

	lastNotifiedAt := doc.LastNotifiedAt
	if lastNotifiedAt.IsZero() {
		lastNotifiedAt = doc.LastSent
	}

	return domain.URLRecord{
		Key:            key,
		URL:            url,
		LastNotifiedAt: lastNotifiedAt,
	}
}
