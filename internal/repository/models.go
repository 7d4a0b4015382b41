package repository

import (
	"time"

	"github.com/kursadbilgin/index-notifier/internal/domain"
)

// DefaultTableName matches the collection name used by the document store backend.
const DefaultTableName = "url_notifications"

// URLRecordModel is the persistence model for the url_notifications table.
type URLRecordModel struct {
	Key            string    `gorm:"column:doc_key;type:varchar(2048);primaryKey"`
	URL            string    `gorm:"column:url;type:text;not null"`
	LastNotifiedAt time.Time `gorm:"column:last_notified_at;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (URLRecordModel) TableName() string {
	return DefaultTableName
}

func urlRecordModelFromDomain(r *domain.URLRecord) *URLRecordModel {
	if r == nil {
		return nil
	}

	return &URLRecordModel{
		Key:            r.Key,
		URL:            r.URL,
		LastNotifiedAt: r.LastNotifiedAt,
	}
}

func urlRecordModelToDomain(m *URLRecordModel) *domain.URLRecord {
	if m == nil {
		return nil
	}

	return &domain.URLRecord{
		Key:            m.Key,
		URL:            m.URL,
		LastNotifiedAt: m.LastNotifiedAt,
	}
}
