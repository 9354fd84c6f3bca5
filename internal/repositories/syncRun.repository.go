package repositories

import (
	"context"
	"errors"

	contextutil "github.com/Larry-Schultz/FFTBViewerV3/internal/context"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/database"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/models"

	"gorm.io/gorm"
)

const changedRunCondition = "(stats->>'added')::int > 0 OR (stats->>'removed')::int > 0 OR (stats->>'durationsRepaired')::int > 0"

type SyncRunRepository interface {
	Create(ctx context.Context, run *models.SyncRun) error
	Update(ctx context.Context, run *models.SyncRun) error
	GetLatest(ctx context.Context) (*models.SyncRun, error)
	GetLatestChanged(ctx context.Context) (*models.SyncRun, error)
}

type syncRunRepository struct {
	db  database.DB
	log logger.Logger
}

func NewSyncRunRepository(db database.DB) SyncRunRepository {
	return &syncRunRepository{
		db:  db,
		log: logger.New("syncRunRepository"),
	}
}

func (r *syncRunRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextutil.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *syncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	if err := r.getDB(ctx).Create(run).Error; err != nil {
		return r.log.Function("Create").Err("failed to create sync run", err, "trigger", run.Trigger)
	}
	return nil
}

func (r *syncRunRepository) Update(ctx context.Context, run *models.SyncRun) error {
	if err := r.getDB(ctx).Save(run).Error; err != nil {
		return r.log.Function("Update").Err("failed to update sync run", err, "id", run.ID)
	}
	return nil
}

func (r *syncRunRepository) first(db *gorm.DB) (*models.SyncRun, error) {
	var run models.SyncRun
	if err := db.First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// GetLatest returns the most recently started run, finished or not.
func (r *syncRunRepository) GetLatest(ctx context.Context) (*models.SyncRun, error) {
	run, err := r.first(r.getDB(ctx).Order("started_at DESC"))
	if err != nil {
		return nil, r.log.Function("GetLatest").Err("failed to load latest sync run", err)
	}
	return run, nil
}

// GetLatestChanged returns the most recent completed run that changed the catalog.
func (r *syncRunRepository) GetLatestChanged(ctx context.Context) (*models.SyncRun, error) {
	run, err := r.first(r.getDB(ctx).
		Where("status = ?", models.SyncStatusCompleted).
		Where(changedRunCondition).
		Order("finished_at DESC"))
	if err != nil {
		return nil, r.log.Function("GetLatestChanged").Err("failed to load latest changed sync run", err)
	}
	return run, nil
}
