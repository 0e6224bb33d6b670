package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nurpe/drillstock/internal/model"
)

func (r *Repository) CreateContract(ctx context.Context, c *model.Contract) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var c model.Contract
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) LockContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var c model.Contract
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) LockContractsByStatus(ctx context.Context, status model.ContractStatus) ([]model.Contract, error) {
	var contracts []model.Contract
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ?", status).
		Order("id ASC").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *Repository) UpdateContract(ctx context.Context, c *model.Contract) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *Repository) DeleteContract(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Contract{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) ListContracts(ctx context.Context, filter ContractFilter) ([]model.Contract, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Contract{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := likePattern(s)
		q = q.Where("contract_number ILIKE ? OR client_name ILIKE ? OR location ILIKE ?", pattern, pattern, pattern)
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
	var contracts []model.Contract
	if err := q.Order("contract_date DESC, created_at DESC").Find(&contracts).Error; err != nil {
		return nil, 0, err
	}
	return contracts, total, nil
}
