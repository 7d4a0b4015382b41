package migrations

import (
	"fmt"
	"strings"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/index-notifier/internal/repository"
	"gorm.io/gorm"
)

// Migrate creates the ledger table (named table, or the default) and its staleness index.
func Migrate(db *gorm.DB, table string) error {
	table = strings.TrimSpace(table)
	if table == "" {
		table = repository.DefaultTableName
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createLedgerTable(table),
	})

	return m.Migrate()
}

func createLedgerTable(table string) *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_" + table,
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Table(table).AutoMigrate(&repository.URLRecordModel{}); err != nil {
				return err
			}
			index := fmt.Sprintf(
				`CREATE INDEX IF NOT EXISTS idx_%s_staleness ON %s (last_notified_at, url)`,
				table, table,
			)
			return tx.Exec(index).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(table)
		},
	}
}
