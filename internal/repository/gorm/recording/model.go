package recordinggorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordingModel is the GORM persistence model for voice message recordings.
// (call_id, recording_sid) is unique: duplicate provider callbacks update
// the existing row.
type RecordingModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	CallID           uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_recordings_call_sid,priority:1"`
	RecordingSID     string    `gorm:"size:64;not null;uniqueIndex:idx_recordings_call_sid,priority:2"`
	URL              string    `gorm:"size:512"`
	DurationSeconds  int       `gorm:"not null;default:0"`
	TranscriptText   string    `gorm:"type:text"`
	TranscriptStatus string    `gorm:"size:20;not null"`
	Notified         bool      `gorm:"not null;default:false;index"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time
}

// TableName overrides the default table name used by GORM.
func (RecordingModel) TableName() string {
	return "recordings"
}

// BeforeCreate ensures a UUID is set before inserting a new record.
func (m *RecordingModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
