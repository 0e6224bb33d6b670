package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/nurpe/drillstock/internal/config"
	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/repository"
)

// ProductStrategy looks a product up one way. A nil product with a nil
// error means no match.
type ProductStrategy interface {
	Find(ctx context.Context, store repository.Store) (*model.Product, error)
	String() string
}

type bySKU string

func (s bySKU) Find(ctx context.Context, store repository.Store) (*model.Product, error) {
	return noMatchOnMissing(store.FindProductBySKU(ctx, string(s)))
}

func (s bySKU) String() string { return "sku=" + string(s) }

type bySKUPattern string

func (s bySKUPattern) Find(ctx context.Context, store repository.Store) (*model.Product, error) {
	return noMatchOnMissing(store.FindProductBySKUPattern(ctx, string(s)))
}

func (s bySKUPattern) String() string { return "sku~" + string(s) }

type byName string

func (s byName) Find(ctx context.Context, store repository.Store) (*model.Product, error) {
	return noMatchOnMissing(store.FindProductByName(ctx, string(s)))
}

func (s byName) String() string { return "name~" + string(s) }

func noMatchOnMissing(p *model.Product, err error) (*model.Product, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return p, err
}

// Resolver tries its strategies in order and stops at the first match.
type Resolver struct {
	strategies []ProductStrategy
}

func NewResolver(strategies ...ProductStrategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// PipeResolver builds the exact SKU, SKU pattern, name chain for one pipe
// type. A non-empty skuOverride replaces the configured SKU.
func PipeResolver(cfg config.PipeConfig, skuOverride string) *Resolver {
	sku := cfg.SKU
	if o := strings.TrimSpace(skuOverride); o != "" {
		sku = o
	}
	var chain []ProductStrategy
	if sku != "" {
		chain = append(chain, bySKU(sku))
	}
	if cfg.SKUPattern != "" {
		chain = append(chain, bySKUPattern(cfg.SKUPattern))
	}
	if cfg.NameHint != "" {
		chain = append(chain, byName(cfg.NameHint))
	}
	return NewResolver(chain...)
}

// Resolve returns nil, nil when no strategy matches.
func (r *Resolver) Resolve(ctx context.Context, store repository.Store) (*model.Product, error) {
	for _, s := range r.strategies {
		p, err := s.Find(ctx, store)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, nil
}

func (r *Resolver) String() string {
	parts := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, " -> ")
}
