package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/drillstock/internal/model"
)

func (r *Repository) GetWorker(ctx context.Context, id uuid.UUID) (*model.Worker, error) {
	var w model.Worker
	if err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) CreateWorker(ctx context.Context, w *model.Worker) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *Repository) UpdateWorker(ctx context.Context, w *model.Worker) error {
	res := r.db.WithContext(ctx).Model(&model.Worker{}).Where("id = ?", w.ID).Update("name", w.Name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) ListWorkers(ctx context.Context) ([]model.Worker, error) {
	var workers []model.Worker
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&workers).Error; err != nil {
		return nil, err
	}
	return workers, nil
}

func (r *Repository) DeleteWorker(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Worker{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
