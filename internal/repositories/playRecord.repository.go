package repositories

import (
	"context"

	contextutil "github.com/Larry-Schultz/FFTBViewerV3/internal/context"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/database"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	. "github.com/Larry-Schultz/FFTBViewerV3/internal/models"

	"gorm.io/gorm"
)

// PlayRecordRepository is append-only: records are never updated or deleted
// here. They disappear only through the cascade when their track is removed.
type PlayRecordRepository interface {
	Create(ctx context.Context, record *PlayRecord) error
	Recent(ctx context.Context, limit int) ([]*PlayRecord, error)
	CountByTrack(ctx context.Context, trackID int) (int64, error)
}

type playRecordRepository struct {
	db  database.DB
	log logger.Logger
}

func NewPlayRecordRepository(db database.DB) PlayRecordRepository {
	return &playRecordRepository{
		db:  db,
		log: logger.New("playRecordRepository"),
	}
}

func (r *playRecordRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextutil.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *playRecordRepository) Create(ctx context.Context, record *PlayRecord) error {
	if err := r.getDB(ctx).Create(record).Error; err != nil {
		return r.log.Function("Create").Err("failed to create play record", err, "trackID", record.TrackID)
	}
	return nil
}

func (r *playRecordRepository) Recent(ctx context.Context, limit int) ([]*PlayRecord, error) {
	records := []*PlayRecord{}
	err := r.getDB(ctx).
		Preload("Track").
		Order("played_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, r.log.Function("Recent").Err("failed to load recent plays", err, "limit", limit)
	}
	return records, nil
}

func (r *playRecordRepository) CountByTrack(ctx context.Context, trackID int) (int64, error) {
	var count int64
	err := r.getDB(ctx).Model(&PlayRecord{}).Where("track_id = ?", trackID).Count(&count).Error
	if err != nil {
		return 0, r.log.Function("CountByTrack").Err("failed to count plays", err, "trackID", trackID)
	}
	return count, nil
}
