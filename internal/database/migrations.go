package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillLegacyImageURLs = "2026-07-14_backfill_legacy_image_urls"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillLegacyImageURLs, apply: backfillLegacyImageURLs},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := migration.apply(db); err != nil {
			return err
		}

		record = migrationRecord{
			Name:             migration.name,
			AppliedAtSeconds: time.Now().Unix(),
		}
		if err := db.Create(&record).Error; err != nil {
			return err
		}

		if logger != nil {
			logger.Info("migration applied", zap.String("name", migration.name))
		}
	}

	return nil
}

// backfillLegacyImageURLs converges the thumbnail_url/image_url pair for rows
// written by older clients that only filled one side.
func backfillLegacyImageURLs(db *gorm.DB) error {
	fillImage := "UPDATE apps SET image_url = thumbnail_url WHERE (image_url IS NULL OR image_url = '') AND thumbnail_url IS NOT NULL AND thumbnail_url <> '';"
	if err := db.Exec(fillImage).Error; err != nil {
		return err
	}
	fillThumbnail := "UPDATE apps SET thumbnail_url = image_url WHERE (thumbnail_url IS NULL OR thumbnail_url = '') AND image_url IS NOT NULL AND image_url <> '';"
	return db.Exec(fillThumbnail).Error
}
