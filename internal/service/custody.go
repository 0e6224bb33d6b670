package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/repository"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Receive books incoming goods into the warehouse.
func (l *Ledger) Receive(ctx context.Context, productID uuid.UUID, quantity float64) (*model.Movement, error) {
	if err := validatePositive("quantity", quantity); err != nil {
		return nil, err
	}
	return l.PostStockMovement(ctx, productID, model.KindIncome, quantity)
}

// Issue hands stock to a worker.
func (l *Ledger) Issue(ctx context.Context, productID, workerID uuid.UUID, quantity float64) (*model.Movement, error) {
	if err := validatePositive("quantity", quantity); err != nil {
		return nil, err
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
		if p.StockQuantity+issuanceEpsilon < quantity {
			return &ShortageError{Kind: ErrInsufficientStock, Product: p.Name, Available: p.StockQuantity, Required: quantity}
		}
		movement, err = l.post(ctx, tx, posting{product: p, workerID: &workerID, typ: model.Plain(model.KindIssueToWorker), quantity: -quantity})
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// Return brings goods from a worker's custody back to the warehouse.
func (l *Ledger) Return(ctx context.Context, productID, workerID uuid.UUID, quantity float64) (*model.Movement, error) {
	return l.fromCustody(ctx, productID, workerID, quantity, model.KindReturnFromWorker)
}

// WriteOffFromWorker removes goods the worker used up or lost. Global stock is untouched.
func (l *Ledger) WriteOffFromWorker(ctx context.Context, workerID, productID uuid.UUID, quantity float64) (*model.Movement, error) {
	return l.fromCustody(ctx, productID, workerID, math.Abs(quantity), model.KindWriteOffWorker)
}

func (l *Ledger) fromCustody(ctx context.Context, productID, workerID uuid.UUID, quantity float64, kind model.MovementKind) (*model.Movement, error) {
	if err := validatePositive("quantity", quantity); err != nil {
		return nil, err
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
		held, err := l.custodyBalance(ctx, tx, workerID, p.ID)
		if err != nil {
			return err
		}
		if held+issuanceEpsilon < quantity {
			return &ShortageError{Kind: ErrInsufficientCustody, Product: p.Name, Available: held, Required: quantity}
		}
		movement, err = l.post(ctx, tx, posting{product: p, workerID: &workerID, typ: model.Plain(kind), quantity: quantity})
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// Adjust corrects warehouse stock by a signed delta after a stock count.
func (l *Ledger) Adjust(ctx context.Context, productID uuid.UUID, delta float64) (*model.Movement, error) {
	if !model.IsFinite(delta) || delta == 0 {
		return nil, fmt.Errorf("%w: adjustment must be a non-zero finite number", ErrInvalidInput)
	}

	var movement *model.Movement
	err := l.store.InTx(ctx, func(tx repository.Store) error {
		p, err := l.lockProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if p.StockQuantity+delta < 0 {
			return &ShortageError{Kind: ErrInsufficientStock, Product: p.Name, Available: p.StockQuantity, Required: -delta}
		}
		movement, err = l.post(ctx, tx, posting{product: p, typ: model.Plain(model.KindAdjustment), quantity: delta})
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// WorkerStock lists what a worker currently holds, rounded to 3 decimals.
func (l *Ledger) WorkerStock(ctx context.Context, workerID uuid.UUID) (*model.Worker, []model.CustodyLine, error) {
	w, err := l.getWorker(ctx, l.store, workerID)
	if err != nil {
		return nil, nil, err
	}
	sums, err := l.store.SumByProduct(ctx, workerID)
	if err != nil {
		return nil, nil, err
	}

	lines := make([]model.CustodyLine, 0, len(sums))
	for _, s := range sums {
		held := custodyFromSum(l.sanitizeSum("product_id", s.ProductID, s.Quantity))
		if held == 0 {
			continue
		}
		p, err := l.store.GetProduct(ctx, s.ProductID)
		if err != nil {
			return nil, nil, notFound(err, "product %s", s.ProductID)
		}
		lines = append(lines, model.CustodyLine{
			ProductID:   p.ID,
			ProductName: p.Name,
			Unit:        p.Unit,
			OnHand:      math.Round(held*1000) / 1000,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductName < lines[j].ProductName })
	return w, lines, nil
}

// HistoryQuery selects a page of the movement log. Page is 1-based.
type HistoryQuery struct {
	Search    string
	ProductID *uuid.UUID
	WorkerID  *uuid.UUID
	Kind      *model.MovementKind
	From      *time.Time
	To        *time.Time
	Page      int
	Limit     int
}

type HistoryPage struct {
	Items []model.MovementView `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// History returns ledger entries newest first.
func (l *Ledger) History(ctx context.Context, q HistoryQuery) (*HistoryPage, error) {
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, fmt.Errorf("%w: date_from must not be after date_to", ErrInvalidInput)
	}
	page, limit := normalizePage(q.Page, q.Limit)
	rows, total, err := l.store.ListMovements(ctx, repository.MovementFilter{
		Search:    q.Search,
		ProductID: q.ProductID,
		WorkerID:  q.WorkerID,
		Kind:      q.Kind,
		From:      q.From,
		To:        q.To,
		Offset:    (page - 1) * limit,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	for i := range rows {
		l.sanitizeMovement(&rows[i].Movement)
	}
	return &HistoryPage{Items: rows, Total: total, Page: page, Limit: limit}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return page, limit
}
