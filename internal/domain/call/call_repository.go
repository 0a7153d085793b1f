package call

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrCallNotFound is returned when a webhook references an unknown call.
var ErrCallNotFound = errors.New("call record not found")

// ListFilter narrows admin call listings. Zero values mean "no filter".
type ListFilter struct {
	Status   Status
	Language Language
	Phone    string
}

// Repository defines the persistence operations for Call aggregates.
//
// It is implemented by infrastructure layers (e.g. GORM) while the domain
// and service layers depend only on this interface.
type Repository interface {
	// Save persists a new call.
	Save(ctx context.Context, c *Call) error

	// GetByExternalID loads the call owning the given provider call id.
	// Returns ErrCallNotFound if no such call exists.
	GetByExternalID(ctx context.Context, externalID string) (*Call, error)

	// GetByID loads a call by its internal id.
	GetByID(ctx context.Context, id uuid.UUID) (*Call, error)

	// Update persists the current step, status and retry counter.
	Update(ctx context.Context, c *Call) error

	// List returns a page of calls matching the filter plus the total count.
	List(ctx context.Context, f ListFilter, page, limit int) ([]*Call, int64, error)

	// CountByStatus returns call counts keyed by status.
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}
