//go:build integration

package repository_test

// Run with: go test -tags integration ./internal/repository/...

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"github.com/nurpe/drillstock/internal/config"
	"github.com/nurpe/drillstock/internal/db"
	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/repository"
	"github.com/nurpe/drillstock/internal/service"
)

func setupStore(t *testing.T) (*repository.Repository, *gorm.DB) {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("drillstock_test"),
		tcPostgres.WithUsername("drillstock"),
		tcPostgres.WithPassword("drillstock"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := &config.Config{
		Environment: "test",
		DB: config.DBConfig{
			DSN:             dsn,
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Minute,
		},
	}
	database, err := db.New(cfg, zerolog.Nop())
	require.NoError(t, err)

	// Migrations are idempotent.
	require.NoError(t, db.Migrate(database))

	return repository.NewRepository(database), database
}

func newProduct(t *testing.T, store repository.Store, sku, name string) *model.Product {
	t.Helper()
	p := &model.Product{
		ID:            uuid.New(),
		InternalSKU:   sku,
		Name:          name,
		Unit:          model.UnitMeter,
		PurchasePrice: 100,
		RetailPrice:   150,
	}
	require.NoError(t, store.CreateProduct(context.Background(), p))
	return p
}

func TestRepository(t *testing.T) {
	store, database := setupStore(t)
	ctx := context.Background()
	log := zerolog.Nop()
	ledger := service.NewLedger(store, log)

	t.Run("duplicate sku is translated", func(t *testing.T) {
		newProduct(t, store, "DUP-1", "First")
		err := store.CreateProduct(ctx, &model.Product{ID: uuid.New(), InternalSKU: "DUP-1", Name: "Second", Unit: model.UnitPiece})
		assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	})

	t.Run("missing rows", func(t *testing.T) {
		_, err := store.GetProduct(ctx, uuid.New())
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

		locked, err := store.LockProducts(ctx, []uuid.UUID{uuid.New()})
		require.NoError(t, err)
		assert.Empty(t, locked)
	})

	t.Run("ledger round trip", func(t *testing.T) {
		p := newProduct(t, store, "PIPE_STEEL_133_ST20", "Steel casing pipe")
		w := &model.Worker{ID: uuid.New(), Name: "Ivanov"}
		require.NoError(t, store.CreateWorker(ctx, w))

		_, err := ledger.Receive(ctx, p.ID, 10)
		require.NoError(t, err)
		issued, err := ledger.Issue(ctx, p.ID, w.ID, 4)
		require.NoError(t, err)

		custody, err := ledger.CustodyBalance(ctx, w.ID, p.ID)
		require.NoError(t, err)
		assert.InDelta(t, 4, custody, 1e-9)

		reversal, err := ledger.CancelMovement(ctx, issued.ID)
		require.NoError(t, err)
		assert.True(t, reversal.IsCancellation())
		assert.Equal(t, model.KindIssueToWorker, reversal.Reverses)

		found, err := store.ReversalOf(ctx, issued.ID)
		require.NoError(t, err)
		assert.Equal(t, reversal.ID, found.ID)

		_, err = ledger.CancelMovement(ctx, issued.ID)
		assert.ErrorIs(t, err, service.ErrInvalidState)

		stock, err := ledger.GlobalBalance(ctx, p.ID)
		require.NoError(t, err)
		recomputed, err := ledger.RecomputeBalance(ctx, p.ID)
		require.NoError(t, err)
		assert.InDelta(t, 10, stock, 1e-9)
		assert.InDelta(t, stock, recomputed, 1e-9)

		page, total, err := store.ListMovements(ctx, repository.MovementFilter{ProductID: &p.ID, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, page, 3)
		assert.Equal(t, reversal.ID, page[0].ID, "newest first")
		assert.Equal(t, "Steel casing pipe", page[0].ProductName)
		assert.Equal(t, "Ivanov", page[0].WorkerName)

		kind := model.KindCancellation
		count, err := store.CountMovements(ctx, repository.MovementFilter{Kind: &kind, ProductID: &p.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		sums, err := store.SumByProduct(ctx, w.ID)
		require.NoError(t, err)
		require.Len(t, sums, 1)
		assert.InDelta(t, 0, sums[0].Quantity, 1e-9)
	})

	t.Run("second reversal row is rejected by the index", func(t *testing.T) {
		p := newProduct(t, store, "IDX-1", "Index check")
		m, err := ledger.Receive(ctx, p.ID, 5)
		require.NoError(t, err)

		insert := func() error {
			return store.InsertMovement(ctx, &model.Movement{
				ID:           uuid.New(),
				ProductID:    p.ID,
				Quantity:     -5,
				MovementType: model.Cancellation(model.KindIncome),
				ReversesID:   &m.ID,
				Timestamp:    time.Now().UTC(),
			})
		}
		require.NoError(t, insert())
		assert.ErrorIs(t, insert(), gorm.ErrDuplicatedKey)
	})

	t.Run("cancellation shape is enforced", func(t *testing.T) {
		p := newProduct(t, store, "CHK-1", "Check constraint")
		err := store.InsertMovement(ctx, &model.Movement{
			ID:           uuid.New(),
			ProductID:    p.ID,
			Quantity:     1,
			MovementType: model.MovementType{Kind: model.KindIncome, Reverses: model.KindIncome},
			Timestamp:    time.Now().UTC(),
		})
		assert.Error(t, err)
	})

	t.Run("transaction rolls back", func(t *testing.T) {
		p := newProduct(t, store, "TX-1", "Rollback")
		boom := errors.New("boom")
		err := store.InTx(ctx, func(tx repository.Store) error {
			if err := tx.SetProductStock(ctx, p.ID, 99); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Zero(t, got.StockQuantity)
	})

	t.Run("concurrent issues never oversell", func(t *testing.T) {
		p := newProduct(t, store, "RACE-1", "Contended")
		w := &model.Worker{ID: uuid.New(), Name: "Petrov"}
		require.NoError(t, store.CreateWorker(ctx, w))
		_, err := ledger.Receive(ctx, p.ID, 5)
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := ledger.Issue(ctx, p.ID, w.ID, 1)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var ok, short int
		for err := range results {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, service.ErrInsufficientStock):
				short++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 5, ok)
		assert.Equal(t, 5, short)

		stock, err := ledger.GlobalBalance(ctx, p.ID)
		require.NoError(t, err)
		assert.InDelta(t, 0, stock, 1e-9)
	})

	t.Run("estimates keep item order", func(t *testing.T) {
		a := newProduct(t, store, "EST-A", "Cable")
		b := newProduct(t, store, "EST-B", "Coupling")
		e := &model.Estimate{
			ID:         uuid.New(),
			Number:     "E-1",
			ClientName: "Smith",
			Status:     model.EstimateDraft,
			CreatedAt:  time.Now().UTC(),
		}
		require.NoError(t, store.CreateEstimate(ctx, e))
		require.NoError(t, store.AddEstimateItems(ctx, []model.EstimateItem{
			{ID: uuid.New(), EstimateID: e.ID, ProductID: b.ID, Position: 2, Quantity: 1, UnitPrice: 10},
			{ID: uuid.New(), EstimateID: e.ID, ProductID: a.ID, Position: 1, Quantity: 3, UnitPrice: 5},
		}))

		got, err := store.GetEstimate(ctx, e.ID)
		require.NoError(t, err)
		require.Len(t, got.Items, 2)
		assert.Equal(t, a.ID, got.Items[0].ProductID)

		require.NoError(t, store.DeleteEstimate(ctx, e.ID))
		var left int64
		require.NoError(t, database.Model(&model.EstimateItem{}).Where("estimate_id = ?", e.ID).Count(&left).Error)
		assert.Zero(t, left)
	})

	t.Run("estimate custody follows linked movements", func(t *testing.T) {
		p := newProduct(t, store, "EST-C", "Pump")
		w := &model.Worker{ID: uuid.New(), Name: "Sidorov"}
		require.NoError(t, store.CreateWorker(ctx, w))
		w.Name = "Sidorov A."
		require.NoError(t, store.UpdateWorker(ctx, w))
		renamed, err := store.GetWorker(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, "Sidorov A.", renamed.Name)
		assert.ErrorIs(t, store.UpdateWorker(ctx, &model.Worker{ID: uuid.New(), Name: "x"}), gorm.ErrRecordNotFound)

		e := &model.Estimate{ID: uuid.New(), Number: "E-2", ClientName: "Smith", Status: model.EstimateInProgress, WorkerID: &w.ID, CreatedAt: time.Now().UTC()}
		require.NoError(t, store.CreateEstimate(ctx, e))
		for _, m := range []model.Movement{
			{ID: uuid.New(), ProductID: p.ID, WorkerID: &w.ID, EstimateID: &e.ID, Quantity: -8, MovementType: model.Plain(model.KindIssueToWorker), Timestamp: time.Now().UTC()},
			{ID: uuid.New(), ProductID: p.ID, WorkerID: &w.ID, EstimateID: &e.ID, Quantity: 3, MovementType: model.Plain(model.KindReturnFromWorker), Timestamp: time.Now().UTC()},
			{ID: uuid.New(), ProductID: p.ID, WorkerID: &w.ID, Quantity: -4, MovementType: model.Plain(model.KindIssueToWorker), Timestamp: time.Now().UTC()},
		} {
			require.NoError(t, store.InsertMovement(ctx, &m))
		}

		sums, err := store.EstimateCustody(ctx, e.ID, w.ID)
		require.NoError(t, err)
		require.Len(t, sums, 1)
		assert.Equal(t, p.ID, sums[0].ProductID)
		assert.InDelta(t, -5.0, sums[0].Quantity, 1e-9)
	})

	t.Run("contracts filter by status", func(t *testing.T) {
		for i, status := range []model.ContractStatus{model.ContractPlanned, model.ContractInProgress, model.ContractInProgress} {
			require.NoError(t, store.CreateContract(ctx, &model.Contract{
				ID:           uuid.New(),
				Number:       "C-" + string(rune('A'+i)),
				ContractDate: time.Now().UTC(),
				Type:         model.ContractDrilling,
				ClientName:   "Client",
				Location:     "Field",
				Status:       status,
			}))
		}
		status := model.ContractInProgress
		rows, total, err := store.ListContracts(ctx, repository.ContractFilter{Status: &status, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, rows, 2)

		err = store.InTx(ctx, func(tx repository.Store) error {
			locked, err := tx.LockContractsByStatus(ctx, model.ContractInProgress)
			if err != nil {
				return err
			}
			assert.Len(t, locked, 2)
			return nil
		})
		require.NoError(t, err)
	})
}
