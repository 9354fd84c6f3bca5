package models

import (
	"time"

	"gorm.io/gorm"
)

// PlayRecord is an append-only history entry for one detected play.
type PlayRecord struct {
	BaseUUIDModel
	TrackID  int       `gorm:"type:int;not null;index:idx_play_records_track" json:"trackId"`
	Track    *Track    `gorm:"foreignKey:TrackID;constraint:OnDelete:CASCADE" json:"track,omitempty"`
	PlayedAt time.Time `gorm:"not null;index:idx_play_records_played_at"      json:"playedAt"`
}

func (p *PlayRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if p.TrackID <= 0 {
		return gorm.ErrInvalidValue
	}
	if p.PlayedAt.IsZero() {
		p.PlayedAt = time.Now().UTC()
	}
	return p.BaseUUIDModel.BeforeCreate(tx)
}
