package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/repository"
)

// Catalog manages products and workers. Stock only changes through the ledger.
type Catalog struct {
	store  repository.Store
	ledger *Ledger
	log    zerolog.Logger
}

func NewCatalog(store repository.Store, ledger *Ledger, log zerolog.Logger) *Catalog {
	return &Catalog{store: store, ledger: ledger, log: log.With().Str("component", "catalog").Logger()}
}

type ProductInput struct {
	InternalSKU   string
	SupplierSKU   *string
	Name          string
	Unit          model.Unit
	PurchasePrice float64
	RetailPrice   float64
	InitialStock  float64
	MinStockLevel float64
	IsFavorite    bool
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.InternalSKU) == "" {
		return fmt.Errorf("%w: internal_sku is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !in.Unit.Valid() {
		return fmt.Errorf("%w: unknown unit %q", ErrInvalidInput, in.Unit)
	}
	for name, v := range map[string]float64{
		"purchase_price":  in.PurchasePrice,
		"retail_price":    in.RetailPrice,
		"stock_quantity":  in.InitialStock,
		"min_stock_level": in.MinStockLevel,
	} {
		if err := validateNonNegative(name, v); err != nil {
			return err
		}
	}
	return nil
}

// CreateProduct adds a catalog entry and books any initial stock as Income.
func (c *Catalog) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &model.Product{
		ID:            uuid.New(),
		InternalSKU:   strings.TrimSpace(in.InternalSKU),
		SupplierSKU:   in.SupplierSKU,
		Name:          strings.TrimSpace(in.Name),
		Unit:          in.Unit,
		PurchasePrice: in.PurchasePrice,
		RetailPrice:   in.RetailPrice,
		MinStockLevel: in.MinStockLevel,
		IsFavorite:    in.IsFavorite,
	}
	err := c.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.CreateProduct(ctx, p); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: internal_sku %q already exists", ErrInvalidInput, p.InternalSKU)
			}
			return err
		}
		if in.InitialStock == 0 {
			return nil
		}
		locked, err := c.ledger.lockProduct(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if _, err := c.ledger.post(ctx, tx, posting{product: locked, typ: model.Plain(model.KindIncome), quantity: in.InitialStock}); err != nil {
			return err
		}
		p.StockQuantity = locked.StockQuantity
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("product_id", p.ID.String()).Str("sku", p.InternalSKU).Msg("product created")
	return p, nil
}

func (c *Catalog) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := c.store.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product %s", id)
	}
	c.ledger.sanitizeProduct(p)
	return p, nil
}

func (c *Catalog) ListProducts(ctx context.Context, search string) ([]model.Product, error) {
	return c.listProducts(ctx, repository.ProductFilter{Search: search})
}

// LowStock lists live products at or below their reorder threshold.
func (c *Catalog) LowStock(ctx context.Context) ([]model.Product, error) {
	return c.listProducts(ctx, repository.ProductFilter{LowStockOnly: true})
}

func (c *Catalog) listProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	products, err := c.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range products {
		c.ledger.sanitizeProduct(&products[i])
	}
	return products, nil
}

// ProductUpdate changes descriptive fields. Stock is not editable here.
type ProductUpdate struct {
	Name          *string
	SupplierSKU   *string
	PurchasePrice *float64
	RetailPrice   *float64
	MinStockLevel *float64
	IsFavorite    *bool
}

func (c *Catalog) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductUpdate) (*model.Product, error) {
	for name, v := range map[string]*float64{
		"purchase_price":  in.PurchasePrice,
		"retail_price":    in.RetailPrice,
		"min_stock_level": in.MinStockLevel,
	} {
		if v == nil {
			continue
		}
		if err := validateNonNegative(name, *v); err != nil {
			return nil, err
		}
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}

	var updated *model.Product
	err := c.store.InTx(ctx, func(tx repository.Store) error {
		p, err := c.ledger.lockProduct(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.SupplierSKU != nil {
			p.SupplierSKU = in.SupplierSKU
		}
		if in.PurchasePrice != nil {
			p.PurchasePrice = *in.PurchasePrice
		}
		if in.RetailPrice != nil {
			p.RetailPrice = *in.RetailPrice
		}
		if in.MinStockLevel != nil {
			p.MinStockLevel = *in.MinStockLevel
		}
		if in.IsFavorite != nil {
			p.IsFavorite = *in.IsFavorite
		}
		updated = p
		return tx.UpdateProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SoftDeleteProduct hides a product; its ledger history stays intact.
func (c *Catalog) SoftDeleteProduct(ctx context.Context, id uuid.UUID) error {
	return c.setDeleted(ctx, id, true)
}

func (c *Catalog) RestoreProduct(ctx context.Context, id uuid.UUID) error {
	return c.setDeleted(ctx, id, false)
}

func (c *Catalog) setDeleted(ctx context.Context, id uuid.UUID, deleted bool) error {
	return c.store.InTx(ctx, func(tx repository.Store) error {
		locked, err := tx.LockProducts(ctx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		p, ok := locked[id]
		if !ok {
			return fmt.Errorf("%w: product %s", ErrNotFound, id)
		}
		if p.IsDeleted == deleted {
			return nil
		}
		p.IsDeleted = deleted
		return tx.UpdateProduct(ctx, p)
	})
}

func (c *Catalog) CreateWorker(ctx context.Context, name string) (*model.Worker, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: worker name is required", ErrInvalidInput)
	}
	w := &model.Worker{ID: uuid.New(), Name: name, CreatedAt: c.ledger.now().UTC()}
	if err := c.store.CreateWorker(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// RenameWorker changes a worker's display name. Ledger entries keep pointing
// at the same worker.
func (c *Catalog) RenameWorker(ctx context.Context, id uuid.UUID, name string) (*model.Worker, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: worker name is required", ErrInvalidInput)
	}
	var renamed *model.Worker
	err := c.store.InTx(ctx, func(tx repository.Store) error {
		w, err := c.ledger.getWorker(ctx, tx, id)
		if err != nil {
			return err
		}
		w.Name = name
		renamed = w
		return notFound(tx.UpdateWorker(ctx, w), "worker %s", id)
	})
	if err != nil {
		return nil, err
	}
	return renamed, nil
}

func (c *Catalog) ListWorkers(ctx context.Context) ([]model.Worker, error) {
	return c.store.ListWorkers(ctx)
}

// DeleteWorker removes a worker who never appeared in the ledger.
func (c *Catalog) DeleteWorker(ctx context.Context, id uuid.UUID) error {
	return c.store.InTx(ctx, func(tx repository.Store) error {
		w, err := c.ledger.getWorker(ctx, tx, id)
		if err != nil {
			return err
		}
		n, err := tx.CountMovements(ctx, repository.MovementFilter{WorkerID: &id})
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: worker %q has %d ledger entries and cannot be deleted", ErrInvalidState, w.Name, n)
		}
		return notFound(tx.DeleteWorker(ctx, id), "worker %s", id)
	})
}
