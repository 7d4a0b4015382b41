package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/index-notifier/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository is the durable per-URL notification ledger.
type LedgerRepository interface {
	// GetAll returns every record keyed by its storage key.
	GetAll(ctx context.Context) (map[string]domain.URLRecord, error)
	// Create inserts a record for url. Returns domain.ErrAlreadyExists if the key is taken.
	Create(ctx context.Context, url string, ts time.Time) error
	// UpdateTimestamp moves last_notified_at of an existing record. Returns domain.ErrNotFound if absent.
	UpdateTimestamp(ctx context.Context, url string, ts time.Time) error
}

type GormLedgerRepo struct {
	db    *gorm.DB
	table string
}

var _ LedgerRepository = (*GormLedgerRepo)(nil)

func NewGormLedgerRepo(db *gorm.DB) *GormLedgerRepo {
	return &GormLedgerRepo{db: db, table: DefaultTableName}
}

// NewGormLedgerRepoWithTable stores records in table instead of DefaultTableName.
func NewGormLedgerRepoWithTable(db *gorm.DB, table string) *GormLedgerRepo {
	table = strings.TrimSpace(table)
	if table == "" {
		table = DefaultTableName
	}
	return &GormLedgerRepo{db: db, table: table}
}

func (r *GormLedgerRepo) GetAll(ctx context.Context) (map[string]domain.URLRecord, error) {
	var models []URLRecordModel
	if err := r.scoped(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list ledger records: %w", err)
	}

	records := make(map[string]domain.URLRecord, len(models))
	for i := range models {
		record := urlRecordModelToDomain(&models[i])
		records[record.Key] = *record
	}

	return records, nil
}

func (r *GormLedgerRepo) Create(ctx context.Context, url string, ts time.Time) error {
	record := domain.NewURLRecord(url, ts)
	model := urlRecordModelFromDomain(&record)

	result := r.scoped(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model)
	if result.Error != nil {
		return fmt.Errorf("failed to create ledger record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *GormLedgerRepo) UpdateTimestamp(ctx context.Context, url string, ts time.Time) error {
	result := r.scoped(ctx).
		Model(&URLRecordModel{}).
		Where("doc_key = ?", domain.EncodeKey(url)).
		Updates(map[string]any{
			"last_notified_at": ts,
			"updated_at":       ts,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update ledger timestamp: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Ping checks connectivity of the underlying database.
func (r *GormLedgerRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormLedgerRepo) scoped(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}
