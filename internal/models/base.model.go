package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseUUIDModel is embedded by append-only records keyed by a time-ordered UUID.
type BaseUUIDModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime"       json:"createdAt"`
}

func (m *BaseUUIDModel) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID != uuid.Nil {
		return nil
	}
	m.ID, err = uuid.NewV7()
	return err
}
