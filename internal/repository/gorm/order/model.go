package ordergorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderModel is the GORM persistence model for orders checked during calls.
type OrderModel struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CallID               uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_orders_call_number,priority:1"`
	OrderNumber          string     `gorm:"size:50;not null;index;uniqueIndex:idx_orders_call_number,priority:2"`
	Status               string     `gorm:"size:100;not null"`
	Notes                string     `gorm:"type:text"`
	PromisedDeliveryDate *time.Time `gorm:"type:date"`
	CreatedAt            time.Time  `gorm:"not null;index"`
	UpdatedAt            time.Time
}

// TableName overrides the default table name used by GORM.
func (OrderModel) TableName() string {
	return "orders"
}

// BeforeCreate ensures a UUID is set before inserting a new record.
func (m *OrderModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
