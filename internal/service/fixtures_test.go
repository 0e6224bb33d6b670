package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/drillstock/internal/config"
	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/repository"
)

type fixture struct {
	ctx       context.Context
	store     *memStore
	ledger    *Ledger
	catalog   *Catalog
	estimates *Estimates
	contracts *Contracts
}

func testLedgerConfig() config.LedgerConfig {
	return config.LedgerConfig{
		MinWellCost: 75000,
		SteelPipe:   config.PipeConfig{SKU: "PIPE_STEEL_133_ST20", SKUPattern: "STEEL", NameHint: "сталь"},
		PlasticPipe: config.PipeConfig{SKU: "PIPE_PLASTIC_110_6_1", SKUPattern: "PLASTIC", NameHint: "пластик"},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	log := zerolog.Nop()
	ledger := NewLedger(store, log)
	return &fixture{
		ctx:       context.Background(),
		store:     store,
		ledger:    ledger,
		catalog:   NewCatalog(store, ledger, log),
		estimates: NewEstimates(store, ledger, log),
		contracts: NewContracts(store, ledger, testLedgerConfig(), log),
	}
}

func (f *fixture) product(t *testing.T, sku, name string, stock float64) *model.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(f.ctx, ProductInput{
		InternalSKU:   sku,
		Name:          name,
		Unit:          model.UnitPiece,
		PurchasePrice: 10,
		RetailPrice:   15,
		InitialStock:  stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) worker(t *testing.T, name string) *model.Worker {
	t.Helper()
	w, err := f.catalog.CreateWorker(f.ctx, name)
	require.NoError(t, err)
	return w
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) float64 {
	t.Helper()
	v, err := f.ledger.GlobalBalance(f.ctx, id)
	require.NoError(t, err)
	return v
}

func (f *fixture) custody(t *testing.T, workerID, productID uuid.UUID) float64 {
	t.Helper()
	v, err := f.ledger.CustodyBalance(f.ctx, workerID, productID)
	require.NoError(t, err)
	return v
}

// requireConsistent checks that every product's cache equals its ledger sum.
func (f *fixture) requireConsistent(t *testing.T) {
	t.Helper()
	products, err := f.store.ListProducts(f.ctx, repository.ProductFilter{IncludeDeleted: true})
	require.NoError(t, err)
	for _, p := range products {
		ledger, err := f.ledger.RecomputeBalance(f.ctx, p.ID)
		require.NoError(t, err)
		require.InDelta(t, p.StockQuantity, ledger, 1e-9, "product %s", p.Name)
	}
}

func (f *fixture) movements(kind model.MovementKind) []model.Movement {
	var out []model.Movement
	for _, m := range f.store.data.movements {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
