package callgorm

import (
	"github.com/voicedesk/callflow/internal/domain/call"
)

// toDomain maps a GORM CallModel to a domain-level Call.
func toDomain(m *CallModel) *call.Call {
	return &call.Call{
		ID:           m.ID,
		ExternalID:   m.ExternalID,
		CallerNumber: m.CallerNumber,
		Language:     call.Language(m.Language),
		Status:       call.Status(m.Status),
		CurrentStep:  call.Step(m.CurrentStep),
		RetryCount:   m.RetryCount,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// toDomainMany maps a slice of CallModel to a slice of domain Calls.
func toDomainMany(models []CallModel) []*call.Call {
	out := make([]*call.Call, len(models))
	for i := range models {
		out[i] = toDomain(&models[i])
	}
	return out
}

// fromDomain maps a domain-level Call to a GORM CallModel.
func fromDomain(d *call.Call) *CallModel {
	return &CallModel{
		ID:           d.ID,
		ExternalID:   d.ExternalID,
		CallerNumber: d.CallerNumber,
		Language:     string(d.Language),
		Status:       string(d.Status),
		CurrentStep:  string(d.CurrentStep),
		RetryCount:   d.RetryCount,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
