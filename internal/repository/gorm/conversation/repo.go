package conversationgorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voicedesk/callflow/internal/db"
	"github.com/voicedesk/callflow/internal/domain/conversation"
)

// Repository is a GORM-backed implementation of conversation.Repository.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a conversation repository using the given DB adapter.
func NewRepository(d db.DB) *Repository {
	return &Repository{
		db: d.Conn().(*gorm.DB),
	}
}

// Append inserts a new log entry. The table is insert-only; there is no
// update path on purpose.
func (r *Repository) Append(ctx context.Context, e *conversation.Entry) error {
	return r.db.WithContext(ctx).Create(fromDomain(e)).Error
}

// ListByCall returns all entries of a call in chronological order.
func (r *Repository) ListByCall(ctx context.Context, callID uuid.UUID) ([]*conversation.Entry, error) {
	var models []EntryModel

	err := r.db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("timestamp ASC").
		Find(&models).Error

	if err != nil {
		return nil, err
	}

	return toDomainMany(models), nil
}

// toDomain maps a GORM EntryModel to a domain-level Entry.
func toDomain(m *EntryModel) *conversation.Entry {
	return &conversation.Entry{
		ID:             m.ID,
		CallID:         m.CallID,
		Step:           m.Step,
		RawInput:       m.RawInput,
		SystemResponse: m.SystemResponse,
		Timestamp:      m.Timestamp,
	}
}

// toDomainMany maps a slice of EntryModel to domain Entries.
func toDomainMany(models []EntryModel) []*conversation.Entry {
	out := make([]*conversation.Entry, len(models))
	for i := range models {
		out[i] = toDomain(&models[i])
	}
	return out
}

// fromDomain maps a domain-level Entry to a GORM EntryModel.
func fromDomain(d *conversation.Entry) *EntryModel {
	return &EntryModel{
		ID:             d.ID,
		CallID:         d.CallID,
		Step:           d.Step,
		RawInput:       d.RawInput,
		SystemResponse: d.SystemResponse,
		Timestamp:      d.Timestamp,
	}
}

// compile-time interface check
var _ conversation.Repository = (*Repository)(nil)
