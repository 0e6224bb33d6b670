package repository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nurpe/drillstock/internal/model"
)

func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	ordered := sortedUnique(ids)
	result := make(map[uuid.UUID]*model.Product, len(ordered))
	for _, id := range ordered {
		var p model.Product
		err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result[id] = &p
	}
	return result, nil
}

func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (r *Repository) CreateProduct(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repository) UpdateProduct(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *Repository) SetProductStock(ctx context.Context, id uuid.UUID, quantity float64) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{"stock_quantity": quantity, "updated_at": gorm.Expr("NOW()")})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FindProductBySKU(ctx context.Context, sku string) (*model.Product, error) {
	return r.firstProduct(ctx, "internal_sku = ?", sku)
}

func (r *Repository) FindProductBySKUPattern(ctx context.Context, fragment string) (*model.Product, error) {
	return r.firstProduct(ctx, "internal_sku ILIKE ?", likePattern(fragment))
}

func (r *Repository) FindProductByName(ctx context.Context, fragment string) (*model.Product, error) {
	return r.firstProduct(ctx, "name ILIKE ?", likePattern(fragment))
}

func (r *Repository) firstProduct(ctx context.Context, cond string, arg any) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Where("is_deleted = FALSE").
		Where(cond, arg).
		Order("internal_sku ASC").
		Take(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	q := r.db.WithContext(ctx).Model(&model.Product{})
	if !filter.IncludeDeleted {
		q = q.Where("is_deleted = FALSE")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := likePattern(s)
		q = q.Where("name ILIKE ? OR internal_sku ILIKE ? OR supplier_sku ILIKE ?", pattern, pattern, pattern)
	}
	if filter.LowStockOnly {
		q = q.Where("min_stock_level > 0 AND stock_quantity <= min_stock_level")
	}
	var products []model.Product
	if err := q.Order("is_favorite DESC, name ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Postgres compares NaN equal to itself, so IN works for all three values.
func (r *Repository) NonFiniteProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Raw(`
		SELECT *
		FROM products
		WHERE stock_quantity IN ('NaN', 'Infinity', '-Infinity')
			OR purchase_price IN ('NaN', 'Infinity', '-Infinity')
			OR retail_price IN ('NaN', 'Infinity', '-Infinity')
			OR min_stock_level IN ('NaN', 'Infinity', '-Infinity')
		ORDER BY internal_sku
	`).Scan(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func likePattern(fragment string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(fragment))
	return "%" + escaped + "%"
}
