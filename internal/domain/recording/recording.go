// Package recording reconciles the two asynchronous webhook kinds that
// describe one voice message: recording-completed and transcription-completed.
// They arrive in either order, possibly duplicated, possibly never.
package recording

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TranscriptStatus string

const (
	TranscriptPending   TranscriptStatus = "PENDING"
	TranscriptCompleted TranscriptStatus = "COMPLETED"
	TranscriptFailed    TranscriptStatus = "FAILED"
)

// Recording is the merged record of one recording attempt, uniquely
// identified by (call_id, recording_sid). A second event for the same sid
// updates this row, never duplicates it.
type Recording struct {
	ID               uuid.UUID
	CallID           uuid.UUID
	RecordingSID     string
	URL              string
	DurationSeconds  int
	TranscriptText   string
	TranscriptStatus TranscriptStatus
	// Notified reports whether the operator has been told about the
	// current transcript content. Any merge that changes the content
	// clears it again.
	Notified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New constructs a recording row in the transcript-pending state.
func New(callID uuid.UUID, recordingSID string) *Recording {
	return &Recording{
		ID:               uuid.New(),
		CallID:           callID,
		RecordingSID:     strings.TrimSpace(recordingSID),
		TranscriptStatus: TranscriptPending,
		CreatedAt:        time.Now(),
	}
}

// ApplyRecorded merges a recording-completed event. The inline transcript is
// applied under the same never-erase rule as ApplyTranscript.
func (r *Recording) ApplyRecorded(url string, durationSeconds int, inlineTranscript string) (changed bool) {
	if url != "" && url != r.URL {
		r.URL = url
		changed = true
	}
	if durationSeconds > 0 && durationSeconds != r.DurationSeconds {
		r.DurationSeconds = durationSeconds
		changed = true
	}
	if r.mergeTranscript(inlineTranscript) {
		changed = true
	}
	return changed
}

// ApplyTranscript merges a transcription-completed (or failed) event.
// Non-empty text replaces what is stored; empty text never erases a
// previously stored transcript. Returns whether the transcript content
// changed, which is what decides a (re-)notification.
func (r *Recording) ApplyTranscript(text string, status TranscriptStatus) (changed bool) {
	changed = r.mergeTranscript(text)

	switch status {
	case TranscriptCompleted:
		r.TranscriptStatus = TranscriptCompleted
	case TranscriptFailed:
		// Recorded for visibility; a recording-only notification still goes out.
		if r.TranscriptStatus != TranscriptCompleted {
			r.TranscriptStatus = TranscriptFailed
		}
	}
	return changed
}

func (r *Recording) mergeTranscript(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || text == r.TranscriptText {
		return false
	}
	r.TranscriptText = text
	r.Notified = false
	return true
}

// HasTranscript reports whether a non-empty transcript is stored.
func (r *Recording) HasTranscript() bool {
	return strings.TrimSpace(r.TranscriptText) != ""
}

// MarkNotified records that the current content state has been reported.
func (r *Recording) MarkNotified() { r.Notified = true }

// Repository defines persistence for recordings.
type Repository interface {
	// Save persists a new recording row.
	Save(ctx context.Context, r *Recording) error

	// GetByCallAndSID loads the row for (call_id, recording_sid), or nil
	// if the pair was never seen.
	GetByCallAndSID(ctx context.Context, callID uuid.UUID, recordingSID string) (*Recording, error)

	// ListByCall returns all recordings of a call.
	ListByCall(ctx context.Context, callID uuid.UUID) ([]*Recording, error)

	// Update persists merged fields and the notified flag.
	Update(ctx context.Context, r *Recording) error

	// GetUnnotified returns up to limit recordings whose current content
	// state has not reached the operator yet and which have been idle
	// since updatedBefore, oldest first. The idle cutoff keeps the retry
	// loop from racing a transcription that is still in flight.
	GetUnnotified(ctx context.Context, updatedBefore time.Time, limit int) ([]*Recording, error)
}
