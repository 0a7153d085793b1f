package callgorm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voicedesk/callflow/internal/db"
	"github.com/voicedesk/callflow/internal/domain/call"
)

// Repository is a GORM-backed implementation of the call.Repository interface.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a call repository using the given DB adapter.
func NewRepository(d db.DB) *Repository {
	return &Repository{
		db: d.Conn().(*gorm.DB),
	}
}

// Save inserts a new call record into the database.
func (r *Repository) Save(ctx context.Context, c *call.Call) error {
	return r.db.WithContext(ctx).Create(fromDomain(c)).Error
}

// GetByExternalID loads the call owning the given provider call id.
func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*call.Call, error) {
	var m CallModel

	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&m).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, call.ErrCallNotFound
	}
	if err != nil {
		return nil, err
	}

	return toDomain(&m), nil
}

// GetByID loads a call by its internal id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*call.Call, error) {
	var m CallModel

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&m).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, call.ErrCallNotFound
	}
	if err != nil {
		return nil, err
	}

	return toDomain(&m), nil
}

// Update persists the mutable portion of the call record.
func (r *Repository) Update(ctx context.Context, c *call.Call) error {
	updates := map[string]interface{}{
		"status":       string(c.Status),
		"current_step": string(c.CurrentStep),
		"retry_count":  c.RetryCount,
	}

	return r.db.WithContext(ctx).
		Model(&CallModel{}).
		Where("id = ?", c.ID).
		Updates(updates).Error
}

// List returns a page of calls matching the filter and the total count.
func (r *Repository) List(ctx context.Context, f call.ListFilter, page, limit int) ([]*call.Call, int64, error) {
	var models []CallModel
	var total int64

	query := r.db.WithContext(ctx).Model(&CallModel{})

	if f.Status != "" {
		query = query.Where("status = ?", string(f.Status))
	}
	if f.Language != "" {
		query = query.Where("language = ?", string(f.Language))
	}
	if f.Phone != "" {
		query = query.Where("caller_number LIKE ?", "%"+f.Phone+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error

	if err != nil {
		return nil, 0, err
	}

	return toDomainMany(models), total, nil
}

// CountByStatus returns call counts grouped by status.
func (r *Repository) CountByStatus(ctx context.Context) (map[call.Status]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&CallModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&rows).Error

	if err != nil {
		return nil, err
	}

	out := make(map[call.Status]int64, len(rows))
	for _, v := range rows {
		out[call.Status(v.Status)] = v.Count
	}
	return out, nil
}

// compile-time interface check
var _ call.Repository = (*Repository)(nil)
