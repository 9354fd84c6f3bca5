package database

import (
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/models"
)

// MigrateModels runs GORM AutoMigrate for all models
func (db *DB) MigrateModels() error {
	log := logger.New("database").Function("MigrateModels")
	log.Info("Starting database migration")

	modelsToMigrate := []any{
		&models.Track{},
		&models.PlayRecord{},
		&models.SyncRun{},
	}

	for _, model := range modelsToMigrate {
		if err := db.SQL.AutoMigrate(model); err != nil {
			return log.Err("Failed to migrate model", err, "model", model)
		}
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CreateIndexes creates the indexes GORM tags cannot express. The trigram
// index serves the substring search on titles; without pg_trgm it is skipped
// and search falls back to a sequential scan.
func (db *DB) CreateIndexes() error {
	log := logger.New("database").Function("CreateIndexes")
	log.Info("Creating additional database indexes")

	indexes := []string{
		"CREATE EXTENSION IF NOT EXISTS pg_trgm",
		"DROP INDEX IF EXISTS idx_tracks_title_lower",
		"CREATE INDEX IF NOT EXISTS idx_tracks_title_trgm ON tracks USING gin (title gin_trgm_ops)",
		"CREATE INDEX IF NOT EXISTS idx_tracks_updated_at ON tracks (updated_at DESC NULLS LAST)",
		"CREATE INDEX IF NOT EXISTS idx_play_records_track_played_at ON play_records (track_id, played_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sync_runs_finished_at ON sync_runs (finished_at DESC)",
	}

	for _, indexSQL := range indexes {
		if err := db.SQL.Exec(indexSQL).Error; err != nil {
			log.Warn("Failed to create index", "sql", indexSQL, "error", err)
		}
	}

	log.Info("Additional database indexes created")
	return nil
}
