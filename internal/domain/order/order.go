// Package order holds the order rows created during a call and the
// overdue-delivery business rule.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrOrderNotFound is returned when an order id does not exist.
var ErrOrderNotFound = errors.New("order record not found")

// StatusOverdue is the marker written when the promised delivery date has
// passed and the call is handed off to a manager.
const StatusOverdue = "Overdue Delivery"

// Common lookup outcome statuses.
const (
	StatusFound    = "Found"
	StatusNotFound = "Not Found"
)

// Order tracks one order number checked during a call. The same number may be
// looked up several times before the caller confirms it; rows are upserted by
// (call_id, order_number).
type Order struct {
	ID                   uuid.UUID
	CallID               uuid.UUID
	OrderNumber          string
	Status               string
	Notes                string
	PromisedDeliveryDate *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// New constructs an order row for the given call.
func New(callID uuid.UUID, orderNumber, status, notes string) *Order {
	return &Order{
		ID:          uuid.New(),
		CallID:      callID,
		OrderNumber: orderNumber,
		Status:      status,
		Notes:       notes,
		CreatedAt:   time.Now(),
	}
}

// IsOverdue reports whether a promised delivery date is strictly in the past.
// A missing date is never overdue, and neither is today: same-day delivery
// still counts as on schedule.
func IsOverdue(promised *time.Time, today time.Time) bool {
	if promised == nil {
		return false
	}
	py, pm, pd := promised.Date()
	ty, tm, td := today.Date()
	p := time.Date(py, pm, pd, 0, 0, 0, 0, time.UTC)
	t := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return p.Before(t)
}

// Overdue applies IsOverdue to this order's promised date.
func (o *Order) Overdue(today time.Time) bool {
	return IsOverdue(o.PromisedDeliveryDate, today)
}

// MarkOverdue sets the overdue marker status.
func (o *Order) MarkOverdue() { o.Status = StatusOverdue }

// ListFilter narrows admin order listings. Zero values mean "no filter".
type ListFilter struct {
	Status      string
	OrderNumber string
	Phone       string
}

// Repository defines persistence for order rows.
type Repository interface {
	// Upsert creates the row for (call_id, order_number) or updates it in
	// place if a previous lookup already created one.
	Upsert(ctx context.Context, o *Order) error

	// GetByID loads an order by its internal id.
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// GetLatestByCall returns the most recently updated order of a call,
	// or nil if the call never reached the order step.
	GetLatestByCall(ctx context.Context, callID uuid.UUID) (*Order, error)

	// ListByCall returns all orders of a call.
	ListByCall(ctx context.Context, callID uuid.UUID) ([]*Order, error)

	// Update persists status, notes and promised delivery date.
	Update(ctx context.Context, o *Order) error

	// List returns a page of orders matching the filter plus the total count.
	List(ctx context.Context, f ListFilter, page, limit int) ([]*Order, int64, error)
}
