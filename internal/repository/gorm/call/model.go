package callgorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallModel is the GORM persistence model for calls.
// It maps directly to the "calls" table in Postgres.
type CallModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ExternalID   string    `gorm:"size:64;not null;uniqueIndex"`
	CallerNumber string    `gorm:"size:20;not null;index"`
	Language     string    `gorm:"size:5;not null"`
	Status       string    `gorm:"size:20;not null;index"`
	CurrentStep  string    `gorm:"size:40;not null"`
	RetryCount   int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time
}

// TableName overrides the default table name used by GORM.
func (CallModel) TableName() string {
	return "calls"
}

// BeforeCreate ensures a UUID is set before inserting a new record.
func (m *CallModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
