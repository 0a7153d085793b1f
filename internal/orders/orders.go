// Package orders exposes a minimal interface for looking up orders in the
// external order system. The flow layer treats it as a black box that either
// returns a normalized record or reports not-found.
package orders

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the order system has no record for the number.
// Transport failures are returned as distinct errors so callers can log them
// separately, even though the dialogue treats both the same way.
var ErrNotFound = errors.New("order not found")

// Record is the normalized view of an external order. Every field beyond the
// number is optional; the upstream payload never guarantees presence.
type Record struct {
	OrderNumber   string
	InvoiceNumber string
	OrderDate     *time.Time
	CountryCode   string
	FirstName     string
	LastName      string
	AlreadyPaid   string
	FullAmount    string
	Memo          string
}

// Client is the contract for an order system implementation.
type Client interface {
	// GetOrder looks up one order by its number.
	// Returns ErrNotFound if the system has no such order.
	GetOrder(ctx context.Context, orderNumber string) (*Record, error)

	// Health checks whether the order system is reachable.
	Health(ctx context.Context) error
}
