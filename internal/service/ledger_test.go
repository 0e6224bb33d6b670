package service

import (
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/drillstock/internal/model"
)

func TestCustodyFromSum(t *testing.T) {
	assert.Equal(t, 30.0, custodyFromSum(-30))
	assert.Zero(t, custodyFromSum(0))
	assert.Zero(t, custodyFromSum(12), "over-returned balance is never negative")
	assert.Zero(t, custodyFromSum(-0.0004), "noise below epsilon")
	assert.Equal(t, 0.002, custodyFromSum(-0.002))
}

func TestIssueAndReturn(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "CABLE-1", "Cable", 50)
	w := f.worker(t, "Ivan")

	m, err := f.ledger.Issue(f.ctx, p.ID, w.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, -20.0, m.Quantity)
	assert.Equal(t, 30.0, m.StockAfter)
	assert.Equal(t, 30.0, f.stock(t, p.ID))
	assert.Equal(t, 20.0, f.custody(t, w.ID, p.ID))

	_, err = f.ledger.Return(f.ctx, p.ID, w.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 35.0, f.stock(t, p.ID))
	assert.Equal(t, 15.0, f.custody(t, w.ID, p.ID))

	_, err = f.ledger.Return(f.ctx, p.ID, w.ID, 16)
	var shortage *ShortageError
	require.ErrorAs(t, err, &shortage)
	assert.ErrorIs(t, err, ErrInsufficientCustody)
	assert.Equal(t, 15.0, shortage.Available)
	assert.Equal(t, 16.0, shortage.Required)

	f.requireConsistent(t)
}

func TestIssue_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "PUMP-1", "Pump", 2)
	w := f.worker(t, "Ivan")

	_, err := f.ledger.Issue(f.ctx, p.ID, w.ID, 3)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Pump")
	assert.Equal(t, 2.0, f.stock(t, p.ID))
}

func TestIssue_ValidatesInput(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "PUMP-1", "Pump", 2)
	w := f.worker(t, "Ivan")

	for _, qty := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := f.ledger.Issue(f.ctx, p.ID, w.ID, qty)
		require.ErrorIs(t, err, ErrInvalidInput, "qty=%v", qty)
	}
	_, err := f.ledger.Issue(f.ctx, uuid.New(), w.ID, 1)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.ledger.Issue(f.ctx, p.ID, uuid.New(), 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIssue_ConcurrentCallsCannotOversell(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "PIPE-X", "Pipe", 10)
	w := f.worker(t, "Ivan")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.Issue(f.ctx, p.ID, w.ID, 7)
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrInsufficientStock)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 3.0, f.stock(t, p.ID))
	f.requireConsistent(t)
}

func TestAdjust(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "BOLT", "Bolt", 10)

	_, err := f.ledger.Adjust(f.ctx, p.ID, -4)
	require.NoError(t, err)
	assert.Equal(t, 6.0, f.stock(t, p.ID))

	_, err = f.ledger.Adjust(f.ctx, p.ID, -7)
	require.ErrorIs(t, err, ErrInsufficientStock)

	_, err = f.ledger.Adjust(f.ctx, p.ID, 0)
	require.ErrorIs(t, err, ErrInvalidInput)
	f.requireConsistent(t)
}

func TestPostStockMovement_RejectsCustodyKinds(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "BOLT", "Bolt", 10)

	_, err := f.ledger.PostStockMovement(f.ctx, p.ID, model.KindIssueToWorker, -1)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.ledger.PostStockMovement(f.ctx, p.ID, model.KindWriteOffWorker, 1)
	require.ErrorIs(t, err, ErrInvalidInput)

	m, err := f.ledger.PostStockMovement(f.ctx, p.ID, model.KindIncome, 5)
	require.NoError(t, err)
	assert.Equal(t, 15.0, m.StockAfter)
}

func TestPostCustodyMovement_NonStockTypeKeepsStockAfter(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "BOLT", "Bolt", 10)
	w := f.worker(t, "Ivan")
	_, err := f.ledger.Issue(f.ctx, p.ID, w.ID, 4)
	require.NoError(t, err)

	m, err := f.ledger.PostCustodyMovement(f.ctx, p.ID, w.ID, model.KindWriteOffWorker, 1)
	require.NoError(t, err)
	assert.Equal(t, 6.0, m.StockAfter)
	assert.Equal(t, 6.0, f.stock(t, p.ID))
	assert.Equal(t, 3.0, f.custody(t, w.ID, p.ID))
}

func TestWriteOffFromWorker_ExactBalanceThenEmpty(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "ROPE", "Rope", 20)
	w := f.worker(t, "Ivan")
	_, err := f.ledger.Issue(f.ctx, p.ID, w.ID, 5)
	require.NoError(t, err)

	m, err := f.ledger.WriteOffFromWorker(f.ctx, w.ID, p.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, m.Quantity, "stored positive regardless of sign")
	assert.Zero(t, f.custody(t, w.ID, p.ID))
	assert.Equal(t, 15.0, f.stock(t, p.ID))

	_, err = f.ledger.WriteOffFromWorker(f.ctx, w.ID, p.ID, 5)
	var shortage *ShortageError
	require.ErrorAs(t, err, &shortage)
	assert.ErrorIs(t, err, ErrInsufficientCustody)
	assert.Zero(t, shortage.Available)
	assert.Equal(t, 5.0, shortage.Required)
	f.requireConsistent(t)
}

func TestWorkerStock_ListsOnlyHeldProducts(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", "Anchor", 10)
	b := f.product(t, "B", "Bracket", 10)
	w := f.worker(t, "Ivan")
	_, err := f.ledger.Issue(f.ctx, a.ID, w.ID, 2.12345)
	require.NoError(t, err)
	_, err = f.ledger.Issue(f.ctx, b.ID, w.ID, 1)
	require.NoError(t, err)
	_, err = f.ledger.Return(f.ctx, b.ID, w.ID, 0.9995)
	require.NoError(t, err)

	_, lines, err := f.ledger.WorkerStock(f.ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Anchor", lines[0].ProductName)
	assert.Equal(t, 2.123, lines[0].OnHand)
}

func TestHistory_FiltersAndPages(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", "Anchor", 10)
	w := f.worker(t, "Ivan")
	for i := 0; i < 3; i++ {
		_, err := f.ledger.Issue(f.ctx, p.ID, w.ID, 1)
		require.NoError(t, err)
	}

	kind := model.KindIssueToWorker
	page, err := f.ledger.History(f.ctx, HistoryQuery{Kind: &kind, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Ivan", page.Items[0].WorkerName)

	all, err := f.ledger.History(f.ctx, HistoryQuery{Limit: 10000})
	require.NoError(t, err)
	assert.Equal(t, maxHistoryLimit, all.Limit)
	assert.Equal(t, model.KindIssueToWorker, all.Items[0].Kind, "newest first")
	assert.Equal(t, model.KindIncome, all.Items[len(all.Items)-1].Kind)
}

func TestReconcile_RepairsDrift(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", "Anchor", 10)
	require.NoError(t, f.store.SetProductStock(f.ctx, p.ID, 13))

	drifts, err := f.ledger.Reconcile(f.ctx, true)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, 13.0, drifts[0].Cached)
	assert.Equal(t, 10.0, drifts[0].Ledger)
	assert.Equal(t, 13.0, f.stock(t, p.ID), "dry run writes nothing")

	_, err = f.ledger.Reconcile(f.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 10.0, f.stock(t, p.ID))
	f.requireConsistent(t)
}

func TestGlobalBalance_SanitizesNonFinite(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", "Anchor", 10)
	require.NoError(t, f.store.SetProductStock(f.ctx, p.ID, math.NaN()))

	v, err := f.ledger.GlobalBalance(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, v)
}
