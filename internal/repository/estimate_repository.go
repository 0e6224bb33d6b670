package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nurpe/drillstock/internal/model"
)

func (r *Repository) CreateEstimate(ctx context.Context, e *model.Estimate) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *Repository) GetEstimate(ctx context.Context, id uuid.UUID) (*model.Estimate, error) {
	var e model.Estimate
	err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		First(&e, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) LockEstimate(ctx context.Context, id uuid.UUID) (*model.Estimate, error) {
	var e model.Estimate
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&e).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("estimate_id = ?", id).Scopes(orderItems).Find(&e.Items).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// UpdateEstimate saves header and status columns; items are managed separately.
func (r *Repository) UpdateEstimate(ctx context.Context, e *model.Estimate) error {
	return r.db.WithContext(ctx).Model(&model.Estimate{}).
		Where("id = ?", e.ID).
		Updates(map[string]any{
			"estimate_number": e.Number,
			"client_name":     e.ClientName,
			"location":        e.Location,
			"status":          e.Status,
			"worker_id":       e.WorkerID,
			"shipped_at":      e.ShippedAt,
		}).Error
}

func (r *Repository) DeleteEstimate(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("estimate_id = ?", id).Delete(&model.EstimateItem{}).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Delete(&model.Estimate{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) ListEstimates(ctx context.Context, filter EstimateFilter) ([]model.Estimate, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Estimate{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := likePattern(s)
		q = q.Where("estimate_number ILIKE ? OR client_name ILIKE ?", pattern, pattern)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var estimates []model.Estimate
	if err := q.Preload("Items", orderItems).Order("created_at DESC").Find(&estimates).Error; err != nil {
		return nil, 0, err
	}
	return estimates, total, nil
}

func (r *Repository) AddEstimateItems(ctx context.Context, items []model.EstimateItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *Repository) UpdateEstimateItem(ctx context.Context, item *model.EstimateItem) error {
	return r.db.WithContext(ctx).Model(&model.EstimateItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{"quantity": item.Quantity, "unit_price": item.UnitPrice}).Error
}

func (r *Repository) DeleteEstimateItem(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.EstimateItem{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) ReplaceEstimateItems(ctx context.Context, estimateID uuid.UUID, items []model.EstimateItem) error {
	if err := r.db.WithContext(ctx).Where("estimate_id = ?", estimateID).Delete(&model.EstimateItem{}).Error; err != nil {
		return err
	}
	return r.AddEstimateItems(ctx, items)
}
