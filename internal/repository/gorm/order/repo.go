package ordergorm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voicedesk/callflow/internal/db"
	"github.com/voicedesk/callflow/internal/domain/order"
)

// Repository is a GORM-backed implementation of the order.Repository interface.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an order repository using the given DB adapter.
func NewRepository(d db.DB) *Repository {
	return &Repository{
		db: d.Conn().(*gorm.DB),
	}
}

// Upsert creates the row for (call_id, order_number) or refreshes the
// existing one. Repeated lookups of the same number never duplicate rows.
func (r *Repository) Upsert(ctx context.Context, o *order.Order) error {
	m := fromDomain(o)

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "call_id"}, {Name: "order_number"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "notes", "promised_delivery_date", "updated_at",
			}),
		}).
		Create(m).Error
}

// GetByID loads an order by its internal id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var m OrderModel

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&m).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	return toDomain(&m), nil
}

// GetLatestByCall returns the most recently updated order of a call, or nil.
func (r *Repository) GetLatestByCall(ctx context.Context, callID uuid.UUID) (*order.Order, error) {
	var m OrderModel

	err := r.db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("updated_at DESC").
		First(&m).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return toDomain(&m), nil
}

// ListByCall returns all orders of a call.
func (r *Repository) ListByCall(ctx context.Context, callID uuid.UUID) ([]*order.Order, error) {
	var models []OrderModel

	err := r.db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("created_at ASC").
		Find(&models).Error

	if err != nil {
		return nil, err
	}

	return toDomainMany(models), nil
}

// Update persists status, notes and the promised delivery date.
func (r *Repository) Update(ctx context.Context, o *order.Order) error {
	updates := map[string]interface{}{
		"status":                 o.Status,
		"notes":                  o.Notes,
		"promised_delivery_date": o.PromisedDeliveryDate,
	}

	return r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ?", o.ID).
		Updates(updates).Error
}

// List returns a page of orders matching the filter and the total count.
// The phone filter joins through the owning call.
func (r *Repository) List(ctx context.Context, f order.ListFilter, page, limit int) ([]*order.Order, int64, error) {
	var models []OrderModel
	var total int64

	query := r.db.WithContext(ctx).Model(&OrderModel{})

	if f.Status != "" {
		query = query.Where("orders.status = ?", f.Status)
	}
	if f.OrderNumber != "" {
		query = query.Where("orders.order_number LIKE ?", "%"+f.OrderNumber+"%")
	}
	if f.Phone != "" {
		query = query.
			Joins("JOIN calls ON calls.id = orders.call_id").
			Where("calls.caller_number LIKE ?", "%"+f.Phone+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit

	err := query.
		Order("orders.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error

	if err != nil {
		return nil, 0, err
	}

	return toDomainMany(models), total, nil
}

// toDomain maps a GORM OrderModel to a domain-level Order.
func toDomain(m *OrderModel) *order.Order {
	return &order.Order{
		ID:                   m.ID,
		CallID:               m.CallID,
		OrderNumber:          m.OrderNumber,
		Status:               m.Status,
		Notes:                m.Notes,
		PromisedDeliveryDate: m.PromisedDeliveryDate,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// toDomainMany maps a slice of OrderModel to domain Orders.
func toDomainMany(models []OrderModel) []*order.Order {
	out := make([]*order.Order, len(models))
	for i := range models {
		out[i] = toDomain(&models[i])
	}
	return out
}

// fromDomain maps a domain-level Order to a GORM OrderModel.
func fromDomain(d *order.Order) *OrderModel {
	return &OrderModel{
		ID:                   d.ID,
		CallID:               d.CallID,
		OrderNumber:          d.OrderNumber,
		Status:               d.Status,
		Notes:                d.Notes,
		PromisedDeliveryDate: d.PromisedDeliveryDate,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

// compile-time interface check
var _ order.Repository = (*Repository)(nil)
