package conversationgorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntryModel is the GORM persistence model for conversation log entries.
type EntryModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	CallID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Step           string    `gorm:"size:50;not null"`
	RawInput       string    `gorm:"type:text"`
	SystemResponse string    `gorm:"type:text"`
	Timestamp      time.Time `gorm:"not null;index"`
}

// TableName overrides the default table name used by GORM.
func (EntryModel) TableName() string {
	return "conversations"
}

// BeforeCreate ensures a UUID is set before inserting a new record.
func (m *EntryModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
