package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusSkipped   SyncStatus = "skipped"
	SyncStatusFailed    SyncStatus = "failed"
)

type SyncTrigger string

const (
	SyncTriggerScheduled SyncTrigger = "scheduled"
	SyncTriggerManual    SyncTrigger = "manual"
)

// SyncStats are the counters collected by one reconciliation run.
type SyncStats struct {
	FeedTracks            int   `json:"feedTracks"`
	UniqueTitles          int   `json:"uniqueTitles"`
	Existing              int   `json:"existing"`
	Added                 int   `json:"added"`
	Removed               int   `json:"removed"`
	RemovalFailures       int   `json:"removalFailures"`
	DurationDiscrepancies int   `json:"durationDiscrepancies"`
	DurationsRepaired     int   `json:"durationsRepaired"`
	DuplicatesSkipped     int   `json:"duplicatesSkipped"`
	CatalogSize           int64 `json:"catalogSize"`
}

// Changed reports whether the run mutated the catalog.
func (s SyncStats) Changed() bool {
	return s.Added > 0 || s.Removed > 0 || s.DurationsRepaired > 0
}

// SyncRun is the audit row for one reconciliation attempt.
type SyncRun struct {
	BaseUUIDModel
	Trigger      SyncTrigger                   `gorm:"type:text;not null"                            json:"trigger"`
	Status       SyncStatus                    `gorm:"type:text;not null;index:idx_sync_runs_status" json:"status"`
	StartedAt    time.Time                     `gorm:"not null;index:idx_sync_runs_started_at"       json:"startedAt"`
	FinishedAt   *time.Time                    `gorm:"type:timestamptz"                              json:"finishedAt,omitempty"`
	Stats        datatypes.JSONType[SyncStats] `gorm:"type:jsonb"                                    json:"stats"`
	ErrorMessage *string                       `gorm:"type:text"                                     json:"errorMessage,omitempty"`
	RequestedBy  *string                       `gorm:"type:text"                                     json:"requestedBy,omitempty"`
}

func (sr *SyncRun) BeforeCreate(tx *gorm.DB) (err error) {
	if sr.Trigger == "" {
		return gorm.ErrInvalidValue
	}
	if sr.Status == "" {
		sr.Status = SyncStatusRunning
	}
	if sr.StartedAt.IsZero() {
		sr.StartedAt = time.Now().UTC()
	}
	return sr.BaseUUIDModel.BeforeCreate(tx)
}

func (sr *SyncRun) finish(status SyncStatus, stats SyncStats) {
	now := time.Now().UTC()
	sr.Status = status
	sr.FinishedAt = &now
	sr.Stats = datatypes.NewJSONType(stats)
}

func (sr *SyncRun) MarkAsCompleted(stats SyncStats) {
	sr.finish(SyncStatusCompleted, stats)
}

func (sr *SyncRun) MarkAsSkipped(stats SyncStats) {
	sr.finish(SyncStatusSkipped, stats)
}

func (sr *SyncRun) MarkAsFailed(stats SyncStats, err error) {
	sr.finish(SyncStatusFailed, stats)
	if err != nil {
		msg := err.Error()
		sr.ErrorMessage = &msg
	}
}

// Duration returns how long the run took, or zero while it is still running.
func (sr *SyncRun) Duration() time.Duration {
	if sr.FinishedAt == nil {
		return 0
	}
	return sr.FinishedAt.Sub(sr.StartedAt)
}
