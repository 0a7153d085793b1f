package recordinggorm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voicedesk/callflow/internal/db"
	"github.com/voicedesk/callflow/internal/domain/recording"
)

// Repository is a GORM-backed implementation of recording.Repository.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a recording repository using the given DB adapter.
func NewRepository(d db.DB) *Repository {
	return &Repository{
		db: d.Conn().(*gorm.DB),
	}
}

// Save inserts a new recording row.
func (r *Repository) Save(ctx context.Context, rec *recording.Recording) error {
	return r.db.WithContext(ctx).Create(fromDomain(rec)).Error
}

// GetByCallAndSID loads the row for (call_id, recording_sid), or nil if the
// pair was never seen.
func (r *Repository) GetByCallAndSID(ctx context.Context, callID uuid.UUID, recordingSID string) (*recording.Recording, error) {
	var m RecordingModel

	err := r.db.WithContext(ctx).
		Where("call_id = ? AND recording_sid = ?", callID, recordingSID).
		First(&m).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return toDomain(&m), nil
}

// ListByCall returns all recordings of a call.
func (r *Repository) ListByCall(ctx context.Context, callID uuid.UUID) ([]*recording.Recording, error) {
	var models []RecordingModel

	err := r.db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("created_at ASC").
		Find(&models).Error

	if err != nil {
		return nil, err
	}

	return toDomainMany(models), nil
}

// Update persists the merged recording fields and the notified flag.
func (r *Repository) Update(ctx context.Context, rec *recording.Recording) error {
	updates := map[string]interface{}{
		"url":               rec.URL,
		"duration_seconds":  rec.DurationSeconds,
		"transcript_text":   rec.TranscriptText,
		"transcript_status": string(rec.TranscriptStatus),
		"notified":          rec.Notified,
	}

	return r.db.WithContext(ctx).
		Model(&RecordingModel{}).
		Where("id = ?", rec.ID).
		Updates(updates).Error
}

// GetUnnotified returns up to limit recordings pending operator notification,
// oldest first. Dedup against concurrent senders happens under the per-call
// lock in the notification service, not here.
func (r *Repository) GetUnnotified(ctx context.Context, updatedBefore time.Time, limit int) ([]*recording.Recording, error) {
	var models []RecordingModel

	err := r.db.WithContext(ctx).
		Where("notified = ? AND updated_at < ?", false, updatedBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error

	if err != nil {
		return nil, err
	}

	return toDomainMany(models), nil
}

// toDomain maps a GORM RecordingModel to a domain-level Recording.
func toDomain(m *RecordingModel) *recording.Recording {
	return &recording.Recording{
		ID:               m.ID,
		CallID:           m.CallID,
		RecordingSID:     m.RecordingSID,
		URL:              m.URL,
		DurationSeconds:  m.DurationSeconds,
		TranscriptText:   m.TranscriptText,
		TranscriptStatus: recording.TranscriptStatus(m.TranscriptStatus),
		Notified:         m.Notified,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// toDomainMany maps a slice of RecordingModel to domain Recordings.
func toDomainMany(models []RecordingModel) []*recording.Recording {
	out := make([]*recording.Recording, len(models))
	for i := range models {
		out[i] = toDomain(&models[i])
	}
	return out
}

// fromDomain maps a domain-level Recording to a GORM RecordingModel.
func fromDomain(d *recording.Recording) *RecordingModel {
	return &RecordingModel{
		ID:               d.ID,
		CallID:           d.CallID,
		RecordingSID:     d.RecordingSID,
		URL:              d.URL,
		DurationSeconds:  d.DurationSeconds,
		TranscriptText:   d.TranscriptText,
		TranscriptStatus: string(d.TranscriptStatus),
		Notified:         d.Notified,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// compile-time interface check
var _ recording.Repository = (*Repository)(nil)
