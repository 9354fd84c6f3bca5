package repositories

import (
	"github.com/Larry-Schultz/FFTBViewerV3/internal/database"
)

type Repository struct {
	Track      TrackRepository
	PlayRecord PlayRecordRepository
	SyncRun    SyncRunRepository
}

func New(db database.DB) Repository {
	return Repository{
		Track:      NewTrackRepository(db),
		PlayRecord: NewPlayRecordRepository(db),
		SyncRun:    NewSyncRunRepository(db),
	}
}
