package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/repository"
)

const (
	// custodyEpsilon hides floating noise in custody balances.
	custodyEpsilon = 1e-3
	// issuanceEpsilon absorbs float error in quantity comparisons.
	issuanceEpsilon = 1e-9
	driftTolerance  = 1e-6
)

// Ledger owns the movement log and is the only writer of product stock.
type Ledger struct {
	store repository.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewLedger(store repository.Store, log zerolog.Logger) *Ledger {
	return &Ledger{
		store: store,
		log:   log.With().Str("component", "ledger").Logger(),
		now:   time.Now,
	}
}

// posting is a single ledger write against an already locked product.
type posting struct {
	product    *model.Product
	workerID   *uuid.UUID
	typ        model.MovementType
	quantity   float64
	reverses   *uuid.UUID
	estimateID *uuid.UUID
	contractID *uuid.UUID
}

// post appends one movement and, for stock-affecting types, moves the cached stock.
// The caller must hold the product lock.
func (l *Ledger) post(ctx context.Context, tx repository.Store, p posting) (*model.Movement, error) {
	if !model.IsFinite(p.quantity) {
		return nil, fmt.Errorf("%w: quantity must be finite", ErrInvalidInput)
	}
	stockAfter := p.product.StockQuantity
	if p.typ.AffectsStock() {
		next := p.product.StockQuantity + p.quantity
		if !model.IsFinite(next) {
			return nil, fmt.Errorf("%w: stock of %q would become non-finite", ErrInvalidInput, p.product.Name)
		}
		if err := tx.SetProductStock(ctx, p.product.ID, next); err != nil {
			return nil, err
		}
		p.product.StockQuantity = next
		stockAfter = next
	}

	m := &model.Movement{
		ID:           uuid.New(),
		ProductID:    p.product.ID,
		WorkerID:     p.workerID,
		Quantity:     p.quantity,
		MovementType: p.typ,
		StockAfter:   stockAfter,
		ReversesID:   p.reverses,
		EstimateID:   p.estimateID,
		ContractID:   p.contractID,
		Timestamp:    l.now().UTC(),
	}
	if err := tx.InsertMovement(ctx, m); err != nil {
		return nil, err
	}
	l.log.Debug().
		Str("product_id", p.product.ID.String()).
		Str("type", p.typ.String()).
		Float64("quantity", p.quantity).
		Float64("stock_after", stockAfter).
		Msg("movement posted")
	return m, nil
}

// lockProducts locks ids in ascending order and fails with ErrNotFound if any
// product is missing or soft-deleted.
func (l *Ledger) lockProducts(ctx context.Context, tx repository.Store, ids ...uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	locked, err := tx.LockProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		p, ok := locked[id]
		if !ok || p.IsDeleted {
			return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
		}
		l.sanitizeProduct(p)
	}
	return locked, nil
}

func (l *Ledger) lockProduct(ctx context.Context, tx repository.Store, id uuid.UUID) (*model.Product, error) {
	locked, err := l.lockProducts(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return locked[id], nil
}

func (l *Ledger) sanitizeProduct(p *model.Product) {
	for _, fix := range p.Sanitize() {
		l.log.Warn().
			Str("product_id", p.ID.String()).
			Str("field", fix.Field).
			Str("was", fmt.Sprint(fix.Was)).
			Msg("non-finite value read from storage, treated as 0")
	}
}

func (l *Ledger) sanitizeMovement(m *model.Movement) {
	for _, fix := range m.Sanitize() {
		l.log.Warn().
			Str("movement_id", m.ID.String()).
			Str("field", fix.Field).
			Str("was", fmt.Sprint(fix.Was)).
			Msg("non-finite value read from storage, treated as 0")
	}
}

func (l *Ledger) sanitizeSum(what string, id uuid.UUID, v float64) float64 {
	if model.IsFinite(v) {
		return v
	}
	l.log.Warn().Str(what, id.String()).Str("was", fmt.Sprint(v)).Msg("non-finite ledger sum, treated as 0")
	return 0
}

func (l *Ledger) getWorker(ctx context.Context, tx repository.Store, id uuid.UUID) (*model.Worker, error) {
	w, err := tx.GetWorker(ctx, id)
	if err != nil {
		return nil, notFound(err, "worker %s", id)
	}
	return w, nil
}

func validatePositive(name string, v float64) error {
	if !model.IsFinite(v) {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalidInput, name)
	}
	if v <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidInput, name, v)
	}
	return nil
}

func validateNonNegative(name string, v float64) error {
	if !model.IsFinite(v) {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalidInput, name)
	}
	if v < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %v", ErrInvalidInput, name, v)
	}
	return nil
}

// PostStockMovement appends a warehouse-level entry (no worker) and applies
// it to the product's stock.
func (l *Ledger) PostStockMovement(ctx context.Context, productID uuid.UUID, kind model.MovementKind, quantity float64) (*model.Movement, error) {
	typ := model.Plain(kind)
	if !typ.AffectsStock() || kind == model.KindIssueToWorker || kind == model.KindReturnFromWorker {
		return nil, fmt.Errorf("%w: %s is not a warehouse movement", ErrInvalidInput, kind)
	}
	if !model.IsFinite(quantity) || quantity == 0 {
		return nil, fmt.Errorf("%w: quantity must be a non-zero finite number", ErrInvalidInput)
	}

	var movement *model.Movement
	err := l.store.InTx(ctx, func(tx repository.Store) error {
		p, err := l.lockProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		movement, err = l.post(ctx, tx, posting{product: p, typ: typ, quantity: quantity})
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// PostCustodyMovement appends an entry stamped with a worker. Types that do
// not affect global stock leave the product untouched.
func (l *Ledger) PostCustodyMovement(ctx context.Context, productID, workerID uuid.UUID, kind model.MovementKind, quantity float64) (*model.Movement, error) {
	switch kind {
	case model.KindIssueToWorker, model.KindReturnFromWorker, model.KindWriteOffWorker, model.KindWriteOffEstimate:
	default:
		return nil, fmt.Errorf("%w: %s is not a custody movement", ErrInvalidInput, kind)
	}
	if !model.IsFinite(quantity) || quantity == 0 {
		return nil, fmt.Errorf("%w: quantity must be a non-zero finite number", ErrInvalidInput)
	}

	var movement *model.Movement
	err := l.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := l.getWorker(ctx, tx, workerID); err != nil {
			return err
		}
		p, err := l.lockProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		movement, err = l.post(ctx, tx, posting{product: p, workerID: &workerID, typ: model.Plain(kind), quantity: quantity})
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// CustodyBalance is the quantity of a product currently held by a worker.
// Balances below custodyEpsilon are reported as 0.
func (l *Ledger) CustodyBalance(ctx context.Context, workerID, productID uuid.UUID) (float64, error) {
	return l.custodyBalance(ctx, l.store, workerID, productID)
}

func (l *Ledger) custodyBalance(ctx context.Context, tx repository.Store, workerID, productID uuid.UUID) (float64, error) {
	sum, err := tx.SumQuantity(ctx, repository.SumFilter{ProductID: productID, WorkerID: &workerID})
	if err != nil {
		return 0, err
	}
	return custodyFromSum(l.sanitizeSum("product_id", productID, sum)), nil
}

func custodyFromSum(sum float64) float64 {
	balance := -sum
	if balance < custodyEpsilon {
		return 0
	}
	return balance
}

// GlobalBalance returns the cached warehouse stock of a product.
func (l *Ledger) GlobalBalance(ctx context.Context, productID uuid.UUID) (float64, error) {
	p, err := l.store.GetProduct(ctx, productID)
	if err != nil {
		return 0, notFound(err, "product %s", productID)
	}
	l.sanitizeProduct(p)
	return p.StockQuantity, nil
}

// RecomputeBalance derives stock from the ledger alone.
func (l *Ledger) RecomputeBalance(ctx context.Context, productID uuid.UUID) (float64, error) {
	return l.recompute(ctx, l.store, productID)
}

func (l *Ledger) recompute(ctx context.Context, tx repository.Store, productID uuid.UUID) (float64, error) {
	sum, err := tx.SumQuantity(ctx, repository.SumFilter{ProductID: productID, Types: model.StockAffectingTypes()})
	if err != nil {
		return 0, err
	}
	return l.sanitizeSum("product_id", productID, sum), nil
}

// StockDrift is a product whose cached stock disagrees with its ledger.
type StockDrift struct {
	ProductID   uuid.UUID
	InternalSKU string
	Name        string
	Cached      float64
	Ledger      float64
}

// Reconcile compares every product's cache with the ledger and, unless
// dryRun is set, overwrites the cache with the ledger value.
func (l *Ledger) Reconcile(ctx context.Context, dryRun bool) ([]StockDrift, error) {
	products, err := l.store.ListProducts(ctx, repository.ProductFilter{IncludeDeleted: true})
	if err != nil {
		return nil, err
	}

	var drifts []StockDrift
	for _, candidate := range products {
		err := l.store.InTx(ctx, func(tx repository.Store) error {
			locked, err := tx.LockProducts(ctx, []uuid.UUID{candidate.ID})
			if err != nil {
				return err
			}
			p, ok := locked[candidate.ID]
			if !ok {
				return nil
			}
			ledger, err := l.recompute(ctx, tx, p.ID)
			if err != nil {
				return err
			}
			if math.Abs(p.StockQuantity-ledger) <= driftTolerance {
				return nil
			}
			drifts = append(drifts, StockDrift{
				ProductID:   p.ID,
				InternalSKU: p.InternalSKU,
				Name:        p.Name,
				Cached:      p.StockQuantity,
				Ledger:      ledger,
			})
			if dryRun {
				return nil
			}
			l.log.Warn().
				Str("product_id", p.ID.String()).
				Str("cached", fmt.Sprint(p.StockQuantity)).
				Float64("ledger", ledger).
				Msg("stock cache overwritten from ledger")
			return tx.SetProductStock(ctx, p.ID, ledger)
		})
		if err != nil {
			return drifts, fmt.Errorf("reconcile product %s: %w", candidate.ID, err)
		}
	}
	return drifts, nil
}

// shiftCacheOnly moves cached stock without a ledger entry. The product and
// its ledger disagree afterwards until Reconcile runs.
func (l *Ledger) shiftCacheOnly(ctx context.Context, tx repository.Store, p *model.Product, delta float64) error {
	next := p.StockQuantity + delta
	if !model.IsFinite(next) {
		return fmt.Errorf("%w: stock of %q would become non-finite", ErrInvalidInput, p.Name)
	}
	if err := tx.SetProductStock(ctx, p.ID, next); err != nil {
		return err
	}
	p.StockQuantity = next
	l.log.Warn().
		Str("product_id", p.ID.String()).
		Float64("delta", delta).
		Msg("stock changed without a ledger entry")
	return nil
}
