package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/voicedesk/callflow/internal/domain/call"
	"github.com/voicedesk/callflow/internal/domain/conversation"
	"github.com/voicedesk/callflow/internal/domain/order"
	"github.com/voicedesk/callflow/internal/domain/recording"
)

// ErrInvalidStatus is returned when an admin status update names an unknown
// or empty status.
var ErrInvalidStatus = errors.New("invalid status")

// CallDetail is a call with its full dialogue history.
type CallDetail struct {
	Call          *call.Call
	Conversations []*conversation.Entry
	Orders        []*order.Order
	Recordings    []*recording.Recording
}

// Stats summarizes the call volume per status.
type Stats struct {
	TotalCalls int64
	ByStatus   map[call.Status]int64
}

// AdminService backs the operator-facing JSON endpoints.
type AdminService interface {
	ListCalls(ctx context.Context, f call.ListFilter, page, limit int) ([]*call.Call, int64, error)
	GetCall(ctx context.Context, id uuid.UUID) (*CallDetail, error)
	UpdateCallStatus(ctx context.Context, id uuid.UUID, status call.Status) (*call.Call, error)
	ListOrders(ctx context.Context, f order.ListFilter, page, limit int) ([]*order.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status, notes string) (*order.Order, error)
	GetStats(ctx context.Context) (*Stats, error)
}

type adminService struct {
	calls      call.Repository
	convs      conversation.Repository
	orders     order.Repository
	recordings recording.Repository
}

// NewAdminService creates the admin service.
func NewAdminService(
	calls call.Repository,
	convs conversation.Repository,
	orders order.Repository,
	recordings recording.Repository,
) AdminService {
	return &adminService{
		calls:      calls,
		convs:      convs,
		orders:     orders,
		recordings: recordings,
	}
}

var _ AdminService = (*adminService)(nil)

func (s *adminService) ListCalls(ctx context.Context, f call.ListFilter, page, limit int) ([]*call.Call, int64, error) {
	return s.calls.List(ctx, f, page, limit)
}

func (s *adminService) GetCall(ctx context.Context, id uuid.UUID) (*CallDetail, error) {
	c, err := s.calls.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	convs, err := s.convs.ListByCall(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list conversations for %s: %w", id, err)
	}
	orders, err := s.orders.ListByCall(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", id, err)
	}
	recordings, err := s.recordings.ListByCall(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list recordings for %s: %w", id, err)
	}

	return &CallDetail{
		Call:          c,
		Conversations: convs,
		Orders:        orders,
		Recordings:    recordings,
	}, nil
}

func (s *adminService) UpdateCallStatus(ctx context.Context, id uuid.UUID, status call.Status) (*call.Call, error) {
	if !call.ValidStatus(status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	c, err := s.calls.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Status = status
	if err := s.calls.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update call %s: %w", id, err)
	}
	return c, nil
}

func (s *adminService) ListOrders(ctx context.Context, f order.ListFilter, page, limit int) ([]*order.Order, int64, error) {
	return s.orders.List(ctx, f, page, limit)
}

func (s *adminService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status, notes string) (*order.Order, error) {
	if strings.TrimSpace(status) == "" {
		return nil, fmt.Errorf("%w: empty order status", ErrInvalidStatus)
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	o.Status = status
	if notes != "" {
		o.Notes = notes
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("update order %s: %w", id, err)
	}
	return o, nil
}

func (s *adminService) GetStats(ctx context.Context) (*Stats, error) {
	counts, err := s.calls.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count calls: %w", err)
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return &Stats{TotalCalls: total, ByStatus: counts}, nil
}
