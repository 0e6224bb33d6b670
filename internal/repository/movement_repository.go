package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/drillstock/internal/model"
)

func (r *Repository) InsertMovement(ctx context.Context, m *model.Movement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repository) GetMovement(ctx context.Context, id uuid.UUID) (*model.Movement, error) {
	var m model.Movement
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) ReversalOf(ctx context.Context, id uuid.UUID) (*model.Movement, error) {
	var m model.Movement
	if err := r.db.WithContext(ctx).Where("reverses_movement_id = ?", id).Take(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) SumQuantity(ctx context.Context, filter SumFilter) (float64, error) {
	q := r.db.WithContext(ctx).Model(&model.Movement{}).Where("product_id = ?", filter.ProductID)
	if filter.WorkerID != nil {
		q = q.Where("worker_id = ?", *filter.WorkerID)
	}
	if len(filter.Types) > 0 {
		q = q.Where(typeCondition(r.db, filter.Types))
	}
	var sum float64
	if err := q.Select("COALESCE(SUM(quantity), 0)").Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}

func typeCondition(db *gorm.DB, types []model.MovementType) *gorm.DB {
	cond := db.Session(&gorm.Session{NewDB: true})
	for i, t := range types {
		if i == 0 {
			cond = cond.Where("kind = ? AND reversed_kind = ?", t.Kind, t.Reverses)
			continue
		}
		cond = cond.Or("kind = ? AND reversed_kind = ?", t.Kind, t.Reverses)
	}
	return cond
}

func (r *Repository) SumByProduct(ctx context.Context, workerID uuid.UUID) ([]model.ProductSum, error) {
	var rows []model.ProductSum
	err := r.db.WithContext(ctx).Raw(`
		SELECT product_id, COALESCE(SUM(quantity), 0) AS quantity
		FROM stock_movements
		WHERE worker_id = ?
		GROUP BY product_id
	`, workerID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) EstimateCustody(ctx context.Context, estimateID, workerID uuid.UUID) ([]model.ProductSum, error) {
	var rows []model.ProductSum
	err := r.db.WithContext(ctx).Raw(`
		SELECT product_id, COALESCE(SUM(quantity), 0) AS quantity
		FROM stock_movements
		WHERE estimate_id = ? AND worker_id = ?
		GROUP BY product_id
	`, estimateID, workerID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) movementQuery(ctx context.Context, filter MovementFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Table("stock_movements m").
		Joins("JOIN products p ON p.id = m.product_id").
		Joins("LEFT JOIN workers w ON w.id = m.worker_id")
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := likePattern(s)
		q = q.Where("p.name ILIKE ? OR p.internal_sku ILIKE ? OR w.name ILIKE ?", pattern, pattern, pattern)
	}
	if filter.ProductID != nil {
		q = q.Where("m.product_id = ?", *filter.ProductID)
	}
	if filter.WorkerID != nil {
		q = q.Where("m.worker_id = ?", *filter.WorkerID)
	}
	if filter.Kind != nil {
		q = q.Where("m.kind = ?", *filter.Kind)
	}
	if filter.From != nil {
		q = q.Where("m.occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("m.occurred_at <= ?", *filter.To)
	}
	return q
}

func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]model.MovementView, int64, error) {
	var total int64
	if err := r.movementQuery(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.movementQuery(ctx, filter).
		Select("m.*, p.name AS product_name, COALESCE(w.name, '') AS worker_name").
		Order("m.occurred_at DESC, m.id DESC")
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []model.MovementView
	if err := q.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repository) CountMovements(ctx context.Context, filter MovementFilter) (int64, error) {
	var total int64
	if err := r.movementQuery(ctx, filter).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *Repository) ListEstimateMovements(ctx context.Context, estimateID uuid.UUID, t model.MovementType) ([]model.Movement, error) {
	var rows []model.Movement
	err := r.db.WithContext(ctx).
		Where("estimate_id = ? AND kind = ? AND reversed_kind = ?", estimateID, t.Kind, t.Reverses).
		Order("occurred_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) NonFiniteMovements(ctx context.Context) ([]model.Movement, error) {
	var rows []model.Movement
	err := r.db.WithContext(ctx).Raw(`
		SELECT *
		FROM stock_movements
		WHERE quantity IN ('NaN', 'Infinity', '-Infinity')
			OR stock_after IN ('NaN', 'Infinity', '-Infinity')
		ORDER BY occurred_at
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) UpdateMovementNumbers(ctx context.Context, id uuid.UUID, quantity, stockAfter float64) error {
	res := r.db.WithContext(ctx).Model(&model.Movement{}).
		Where("id = ?", id).
		Updates(map[string]any{"quantity": quantity, "stock_after": stockAfter})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
