package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	DefaultDuration = "0:00"
	badDurationMark = "-1"
)

// Track is a catalog row mirrored from the playlist feed. Rows are hard
// deleted when the feed stops listing them so a title can come back later.
type Track struct {
	ID         int        `gorm:"type:int;primaryKey;autoIncrement"                       json:"id"`
	Title      string     `gorm:"type:text;not null;uniqueIndex:idx_tracks_title"         json:"title"`
	Creator    *string    `gorm:"type:text"                                               json:"creator,omitempty"`
	Album      *string    `gorm:"type:text"                                               json:"album,omitempty"`
	Duration   string     `gorm:"type:text;not null;default:'0:00'"                       json:"duration"`
	Occurrence int        `gorm:"type:int;not null;default:0;index:idx_tracks_occurrence" json:"occurrence"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index:idx_tracks_created_at"              json:"createdAt"`
	UpdatedAt  *time.Time `gorm:"autoUpdateTime:false"                                    json:"updatedAt"`
}

func (t *Track) BeforeCreate(tx *gorm.DB) (err error) {
	if strings.TrimSpace(t.Title) == "" {
		return gorm.ErrInvalidValue
	}
	if t.Duration == "" || strings.Contains(t.Duration, badDurationMark) {
		t.Duration = DefaultDuration
	}
	if t.Occurrence < 0 {
		t.Occurrence = 0
	}
	return nil
}

// HasBadDuration reports whether the stored duration is a known placeholder.
func (t *Track) HasBadDuration() bool {
	return IsBadDuration(t.Duration)
}

// IsBadDuration reports whether d is one of the placeholder values left by
// earlier imports: "0:00" or anything carrying a "-1".
func IsBadDuration(d string) bool {
	return d == DefaultDuration || strings.Contains(d, badDurationMark)
}

// FormatDuration renders seconds as M:SS, or H:MM:SS from one hour up.
// Negative input renders as 0:00.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return DefaultDuration
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
