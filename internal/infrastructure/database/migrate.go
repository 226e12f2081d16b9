package database

import (
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates the ledger tables
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&model.SyncRecord{},
		&model.TranslationLink{},
		&model.TranslationJob{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if db.Dialector.Name() == "postgres" {
		if err := createCustomIndexes(db); err != nil {
			logger.Error("Failed to create custom indexes", zap.Error(err))
			return err
		}
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates partial indexes GORM tags cannot express
func createCustomIndexes(db *gorm.DB) error {
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_translation_jobs_unfinished ON translation_jobs (created_at) WHERE status IN ('pending', 'processing')`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_sync_records_errors ON sync_records (connection_id, updated_at) WHERE resolution_status = 'Error'`).Error
}
