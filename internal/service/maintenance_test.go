package service

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairNonFinite(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", "Anchor", 12)
	healthy := f.product(t, "B", "Bracket", 3)

	corrupt := f.store.data.products[p.ID]
	corrupt.StockQuantity = math.NaN()
	corrupt.RetailPrice = math.Inf(1)
	f.store.data.products[p.ID] = corrupt
	f.store.data.movements[0].Quantity = math.Inf(-1)

	m := NewMaintenance(f.store, zerolog.Nop())

	report, err := m.RepairNonFinite(f.ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Products())
	assert.Equal(t, 1, report.Movements())
	assert.True(t, math.IsNaN(f.store.data.products[p.ID].StockQuantity), "dry run writes nothing")

	report, err = m.RepairNonFinite(f.ctx, false)
	require.NoError(t, err)
	assert.Len(t, report.Repairs, 3)
	assert.Zero(t, f.store.data.products[p.ID].StockQuantity)
	assert.Zero(t, f.store.data.products[p.ID].RetailPrice)
	assert.Zero(t, f.store.data.movements[0].Quantity)
	assert.Equal(t, 3.0, f.store.data.products[healthy.ID].StockQuantity)

	report, err = m.RepairNonFinite(f.ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.Repairs)
}
