package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/repository"
)

// Estimates drives the estimate state machine and its ledger effects.
type Estimates struct {
	store  repository.Store
	ledger *Ledger
	log    zerolog.Logger
}

func NewEstimates(store repository.Store, ledger *Ledger, log zerolog.Logger) *Estimates {
	return &Estimates{store: store, ledger: ledger, log: log.With().Str("component", "estimates").Logger()}
}

// ItemInput is a requested estimate line. A nil UnitPrice takes the
// product's current retail price.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  float64
	UnitPrice *float64
}

type EstimateInput struct {
	Number     string
	ClientName string
	Location   *string
	Items      []ItemInput
}

type EstimateUpdate struct {
	Number     *string
	ClientName *string
	Location   *string
	Items      *[]ItemInput
}

type EstimateQuery struct {
	Search string
	Status *model.EstimateStatus
	Page   int
	Limit  int
}

type EstimatePage struct {
	Items []model.EstimateView `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

func (s *Estimates) Create(ctx context.Context, in EstimateInput) (*model.EstimateView, error) {
	number := strings.TrimSpace(in.Number)
	client := strings.TrimSpace(in.ClientName)
	if number == "" || client == "" {
		return nil, fmt.Errorf("%w: estimate_number and client_name are required", ErrInvalidInput)
	}

	e := &model.Estimate{
		ID:         uuid.New(),
		Number:     number,
		ClientName: client,
		Location:   in.Location,
		Status:     model.EstimateDraft,
		CreatedAt:  s.ledger.now().UTC(),
	}
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		items, err := s.buildItems(ctx, tx, e.ID, 0, in.Items)
		if err != nil {
			return err
		}
		e.Items = items
		return tx.CreateEstimate(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, s.store, e)
}

// buildItems validates inputs and freezes unit prices.
func (s *Estimates) buildItems(ctx context.Context, tx repository.Store, estimateID uuid.UUID, position int, inputs []ItemInput) ([]model.EstimateItem, error) {
	items := make([]model.EstimateItem, 0, len(inputs))
	for _, in := range inputs {
		if err := validatePositive("quantity", in.Quantity); err != nil {
			return nil, err
		}
		p, err := tx.GetProduct(ctx, in.ProductID)
		if err != nil {
			return nil, notFound(err, "product %s", in.ProductID)
		}
		if p.IsDeleted {
			return nil, fmt.Errorf("%w: product %q is deleted", ErrNotFound, p.Name)
		}
		s.ledger.sanitizeProduct(p)
		price := p.RetailPrice
		if in.UnitPrice != nil {
			if err := validateNonNegative("unit_price", *in.UnitPrice); err != nil {
				return nil, err
			}
			price = *in.UnitPrice
		}
		position++
		items = append(items, model.EstimateItem{
			ID:         uuid.New(),
			EstimateID: estimateID,
			ProductID:  p.ID,
			Position:   position,
			Quantity:   in.Quantity,
			UnitPrice:  price,
		})
	}
	return items, nil
}

func (s *Estimates) Get(ctx context.Context, id uuid.UUID) (*model.EstimateView, error) {
	e, err := s.store.GetEstimate(ctx, id)
	if err != nil {
		return nil, notFound(err, "estimate %s", id)
	}
	return s.view(ctx, s.store, e)
}

func (s *Estimates) List(ctx context.Context, q EstimateQuery) (*EstimatePage, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	estimates, total, err := s.store.ListEstimates(ctx, repository.EstimateFilter{
		Search: q.Search,
		Status: q.Status,
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	views := make([]model.EstimateView, 0, len(estimates))
	for i := range estimates {
		v, err := s.view(ctx, s.store, &estimates[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return &EstimatePage{Items: views, Total: total, Page: page, Limit: limit}, nil
}

func (s *Estimates) view(ctx context.Context, tx repository.Store, e *model.Estimate) (*model.EstimateView, error) {
	v := &model.EstimateView{
		ID:         e.ID,
		Number:     e.Number,
		ClientName: e.ClientName,
		Location:   e.Location,
		Status:     e.Status,
		WorkerID:   e.WorkerID,
		ShippedAt:  e.ShippedAt,
		CreatedAt:  e.CreatedAt,
		Items:      make([]model.EstimateLineView, 0, len(e.Items)),
	}
	for _, item := range e.Items {
		name := "deleted product"
		p, err := tx.GetProduct(ctx, item.ProductID)
		switch {
		case err == nil && !p.IsDeleted:
			name = p.Name
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
		qty, price := s.cleanItem(item)
		sum := qty * price
		v.Items = append(v.Items, model.EstimateLineView{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: name,
			Quantity:    qty,
			UnitPrice:   price,
			Sum:         math.Round(sum*100) / 100,
		})
		v.TotalSum += sum
	}
	if !model.IsFinite(v.TotalSum) {
		v.TotalSum = 0
	}
	v.TotalSum = math.Round(v.TotalSum*100) / 100
	return v, nil
}

func (s *Estimates) cleanItem(item model.EstimateItem) (float64, float64) {
	qty, price := item.Quantity, item.UnitPrice
	if !model.IsFinite(qty) || !model.IsFinite(price) {
		s.log.Warn().Str("item_id", item.ID.String()).Msg("non-finite estimate item value, treated as 0")
		if !model.IsFinite(qty) {
			qty = 0
		}
		if !model.IsFinite(price) {
			price = 0
		}
	}
	return qty, price
}

// mutate locks the estimate row, runs fn and persists the header.
func (s *Estimates) mutate(ctx context.Context, id uuid.UUID, fn func(tx repository.Store, e *model.Estimate) error) (*model.EstimateView, error) {
	var view *model.EstimateView
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		e, err := tx.LockEstimate(ctx, id)
		if err != nil {
			return notFound(err, "estimate %s", id)
		}
		if err := fn(tx, e); err != nil {
			return err
		}
		if err := tx.UpdateEstimate(ctx, e); err != nil {
			return err
		}
		view, err = s.view(ctx, tx, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func requireStatus(e *model.Estimate, op string, allowed ...model.EstimateStatus) error {
	for _, st := range allowed {
		if e.Status == st {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot %s estimate %s in status %s", ErrInvalidState, op, e.Number, e.Status)
}

func requireWorker(e *model.Estimate, op string) error {
	if !e.IsShipped() {
		return fmt.Errorf("%w: cannot %s estimate %s: it was never shipped to a worker", ErrInvalidState, op, e.Number)
	}
	return nil
}

// Approve moves a draft to Approved.
func (s *Estimates) Approve(ctx context.Context, id uuid.UUID) (*model.EstimateView, error) {
	return s.mutate(ctx, id, func(_ repository.Store, e *model.Estimate) error {
		if err := requireStatus(e, "approve", model.EstimateDraft); err != nil {
			return err
		}
		e.Status = model.EstimateApproved
		return nil
	})
}

// UpdateHeader edits descriptive fields and, outside InProgress, replaces items.
func (s *Estimates) UpdateHeader(ctx context.Context, id uuid.UUID, in EstimateUpdate) (*model.EstimateView, error) {
	return s.mutate(ctx, id, func(tx repository.Store, e *model.Estimate) error {
		if err := requireStatus(e, "edit", model.EstimateDraft, model.EstimateApproved, model.EstimateInProgress, model.EstimateCancelled); err != nil {
			return err
		}
		if in.Number != nil {
			if strings.TrimSpace(*in.Number) == "" {
				return fmt.Errorf("%w: estimate_number must not be empty", ErrInvalidInput)
			}
			e.Number = strings.TrimSpace(*in.Number)
		}
		if in.ClientName != nil {
			if strings.TrimSpace(*in.ClientName) == "" {
				return fmt.Errorf("%w: client_name must not be empty", ErrInvalidInput)
			}
			e.ClientName = strings.TrimSpace(*in.ClientName)
		}
		if in.Location != nil {
			e.Location = in.Location
		}
		if in.Items == nil {
			return nil
		}
		if e.Status == model.EstimateInProgress {
			return fmt.Errorf("%w: items of in-progress estimate %s can only grow through additional issuance", ErrInvalidState, e.Number)
		}
		items, err := s.buildItems(ctx, tx, e.ID, 0, *in.Items)
		if err != nil {
			return err
		}
		if err := tx.ReplaceEstimateItems(ctx, e.ID, items); err != nil {
			return err
		}
		e.Items = items
		return nil
	})
}

// requiredByProduct sums item quantities per product, keeping first-seen order.
func requiredByProduct(items []model.EstimateItem) ([]uuid.UUID, map[uuid.UUID]float64) {
	var order []uuid.UUID
	required := make(map[uuid.UUID]float64, len(items))
	for _, item := range items {
		if _, ok := required[item.ProductID]; !ok {
			order = append(order, item.ProductID)
		}
		required[item.ProductID] += item.Quantity
	}
	return order, required
}

// issueItems locks every product, checks all stock first, then posts one
// IssueToWorker per item.
func (s *Estimates) issueItems(ctx context.Context, tx repository.Store, e *model.Estimate, items []model.EstimateItem, workerID uuid.UUID) error {
	ids, _ := requiredByProduct(items)
	products, err := s.ledger.lockProducts(ctx, tx, ids...)
	if err != nil {
		return err
	}
	return s.issueLocked(ctx, tx, e, items, workerID, products)
}

func (s *Estimates) issueLocked(ctx context.Context, tx repository.Store, e *model.Estimate, items []model.EstimateItem, workerID uuid.UUID, products map[uuid.UUID]*model.Product) error {
	ids, required := requiredByProduct(items)
	for _, id := range ids {
		p := products[id]
		if p.StockQuantity+issuanceEpsilon < required[id] {
			return &ShortageError{Kind: ErrInsufficientStock, Product: p.Name, Available: p.StockQuantity, Required: required[id]}
		}
	}
	for _, item := range items {
		_, err := s.ledger.post(ctx, tx, posting{
			product:    products[item.ProductID],
			workerID:   &workerID,
			typ:        model.Plain(model.KindIssueToWorker),
			quantity:   -item.Quantity,
			estimateID: &e.ID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Ship issues every item to the worker and starts the work.
func (s *Estimates) Ship(ctx context.Context, id, workerID uuid.UUID) (*model.EstimateView, error) {
	return s.mutate(ctx, id, func(tx repository.Store, e *model.Estimate) error {
		if err := requireStatus(e, "ship", model.EstimateDraft, model.EstimateApproved); err != nil {
			return err
		}
		return s.handOver(ctx, tx, e, workerID)
	})
}

// Reopen re-issues a cancelled estimate, possibly to a different worker.
func (s *Estimates) Reopen(ctx context.Context, id, workerID uuid.UUID) (*model.EstimateView, error) {
	return s.mutate(ctx, id, func(tx repository.Store, e *model.Estimate) error {
		if err := requireStatus(e, "reopen", model.EstimateCancelled); err != nil {
			return err
		}
		return s.handOver(ctx, tx, e, workerID)
	})
}

// handOver first takes back whatever the estimate still has with its previous
// worker, then issues every item to workerID.
func (s *Estimates) handOver(ctx context.Context, tx repository.Store, e *model.Estimate, workerID uuid.UUID) error {
	if len(e.Items) == 0 {
		return fmt.Errorf("%w: estimate %s has no items to issue", ErrInvalidState, e.Number)
	}
	if _, err := s.ledger.getWorker(ctx, tx, workerID); err != nil {
		return err
	}
	field, err := s.inField(ctx, tx, e)
	if err != nil {
		return err
	}
	itemIDs, _ := requiredByProduct(e.Items)
	products, err := s.ledger.lockProducts(ctx, tx, union(itemIDs, field)...)
	if err != nil {
		return err
	}
	if err := s.returnInField(ctx, tx, e, products, field); err != nil {
		return err
	}
	if err := s.issueLocked(ctx, tx, e, e.Items, workerID, products); err != nil {
		return err
	}
	now := s.ledger.now().UTC()
	e.Status = model.EstimateInProgress
	e.WorkerID = &workerID
	e.ShippedAt = &now
	s.log.Info().Str("estimate_id", e.ID.String()).Str("worker_id", workerID.String()).Msg("estimate issued to worker")
	return nil
}

// IssueAdditional appends items and issues them to the estimate's worker.
func (s *Estimates) IssueAdditional(ctx context.Context, id uuid.UUID, inputs []ItemInput) (*model.EstimateView, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}
	return s.mutate(ctx, id, func(tx repository.Store, e *model.Estimate) error {
		if err := requireWorker(e, "issue additional items for"); err != nil {
			return err
		}
		if e.Status == model.EstimateCompleted {
			return fmt.Errorf("%w: estimate %s is completed", ErrInvalidState, e.Number)
		}
		items, err := s.buildItems(ctx, tx, e.ID, lastPosition(e.Items), inputs)
		if err != nil {
			return err
		}
		if err := s.issueItems(ctx, tx, e, items, *e.WorkerID); err != nil {
			return err
		}
		if err := tx.AddEstimateItems(ctx, items); err != nil {
			return err
		}
		e.Items = append(e.Items, items...)
		return nil
	})
}

func lastPosition(items []model.EstimateItem) int {
	last := 0
	for _, item := range items {
		if item.Position > last {
			last = item.Position
		}
	}
	return last
}

// Complete writes off the quoted quantities from the worker's custody after
// verifying they were actually issued.
func (s *Estimates) Complete(ctx context.Context, id uuid.UUID) (*model.EstimateView, error) {
	return s.mutate(ctx, id, func(tx repository.Store, e *model.Estimate) error {
		if err := requireStatus(e, "complete", model.EstimateInProgress); err != nil {
			return err
		}
		if err := requireWorker(e, "complete"); err != nil {
			return err
		}
		workerID := *e.WorkerID
		ids, required := requiredByProduct(e.Items)
		products, err := s.ledger.lockProducts(ctx, tx, ids...)
		if err != nil {
			return err
		}
		for _, pid := range ids {
			p := products[pid]
			sum, err := tx.SumQuantity(ctx, repository.SumFilter{
				ProductID: pid,
				WorkerID:  &workerID,
				Types:     []model.MovementType{model.Plain(model.KindIssueToWorker)},
			})
			if err != nil {
				return err
			}
			issued := -s.ledger.sanitizeSum("product_id", pid, sum)
			if issued+issuanceEpsilon < required[pid] {
				return &ShortageError{Kind: ErrInsufficientIssuance, Product: p.Name, Available: issued, Required: required[pid]}
			}
			held, err := s.ledger.custodyBalance(ctx, tx, workerID, pid)
			if err != nil {
				return err
			}
			if held+issuanceEpsilon < required[pid] {
				return &ShortageError{Kind: ErrInsufficientCustody, Product: p.Name, Available: held, Required: required[pid]}
			}
		}
		for _, item := range e.Items {
			_, err := s.ledger.post(ctx, tx, posting{
				product:    products[item.ProductID],
				workerID:   &workerID,
				typ:        model.Plain(model.KindWriteOffEstimate),
				quantity:   item.Quantity,
				estimateID: &e.ID,
			})
			if err != nil {
				return err
			}
		}
		e.Status = model.EstimateCompleted
		return nil
	})
}

// CancelCompletion reverses the completion write-offs and returns the goods
// to the warehouse. The estimate goes back to InProgress.
func (s *Estimates) CancelCompletion(ctx context.Context, id uuid.UUID) (*model.EstimateView, error) {
	return s.mutate(ctx, id, func(tx repository.Store, e *model.Estimate) error {
		if err := requireStatus(e, "cancel completion of", model.EstimateCompleted); err != nil {
			return err
		}
		if err := requireWorker(e, "cancel completion of"); err != nil {
			return err
		}
		before, err := s.inField(ctx, tx, e)
		if err != nil {
			return err
		}
		ids, _ := requiredByProduct(e.Items)
		products, err := s.ledger.lockProducts(ctx, tx, union(ids, before)...)
		if err != nil {
			return err
		}
		writeOffs, err := tx.ListEstimateMovements(ctx, e.ID, model.Plain(model.KindWriteOffEstimate))
		if err != nil {
			return err
		}
		for i := range writeOffs {
			m := &writeOffs[i]
			_, err := tx.ReversalOf(ctx, m.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			p, ok := products[m.ProductID]
			if !ok {
				continue
			}
			s.ledger.sanitizeMovement(m)
			_, err = s.ledger.post(ctx, tx, posting{
				product:    p,
				workerID:   m.WorkerID,
				typ:        model.Cancellation(m.Kind),
				quantity:   -m.Quantity,
				reverses:   &m.ID,
				estimateID: &e.ID,
			})
			if err != nil {
				return err
			}
		}
		field, err := s.inField(ctx, tx, e)
		if err != nil {
			return err
		}
		if err := s.returnInField(ctx, tx, e, products, field); err != nil {
			return err
		}
		e.Status = model.EstimateInProgress
		return nil
	})
}

// Cancel returns what the estimate still has with its worker to the
// warehouse. Goods already brought back by CancelCompletion are not returned twice.
func (s *Estimates) Cancel(ctx context.Context, id uuid.UUID) (*model.EstimateView, error) {
	return s.mutate(ctx, id, func(tx repository.Store, e *model.Estimate) error {
		if err := requireStatus(e, "cancel", model.EstimateInProgress); err != nil {
			return err
		}
		if err := requireWorker(e, "cancel"); err != nil {
			return err
		}
		field, err := s.inField(ctx, tx, e)
		if err != nil {
			return err
		}
		if len(field) > 0 {
			products, err := s.ledger.lockProducts(ctx, tx, union(nil, field)...)
			if err != nil {
				return err
			}
			if err := s.returnInField(ctx, tx, e, products, field); err != nil {
				return err
			}
		}
		e.Status = model.EstimateCancelled
		return nil
	})
}

// inField is the quantity per product the estimate's own movements left with
// its current worker. Products with nothing outstanding are absent.
func (s *Estimates) inField(ctx context.Context, tx repository.Store, e *model.Estimate) (map[uuid.UUID]float64, error) {
	field := map[uuid.UUID]float64{}
	if !e.IsShipped() {
		return field, nil
	}
	sums, err := tx.EstimateCustody(ctx, e.ID, *e.WorkerID)
	if err != nil {
		return nil, err
	}
	for _, sum := range sums {
		if held := custodyFromSum(s.ledger.sanitizeSum("product_id", sum.ProductID, sum.Quantity)); held > 0 {
			field[sum.ProductID] = held
		}
	}
	return field, nil
}

// union returns ids followed by the remaining keys of field in id order.
func union(ids []uuid.UUID, field map[uuid.UUID]float64) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	var extra []uuid.UUID
	for id := range field {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].String() < extra[j].String() })
	return append(out, extra...)
}

// returnInField posts ReturnFromWorker for everything in field after checking
// the worker still holds it. Returns follow item order; quantities left over
// once items are covered go back as one entry per product.
func (s *Estimates) returnInField(ctx context.Context, tx repository.Store, e *model.Estimate, products map[uuid.UUID]*model.Product, field map[uuid.UUID]float64) error {
	if len(field) == 0 {
		return nil
	}
	workerID := *e.WorkerID
	itemIDs, _ := requiredByProduct(e.Items)
	order := union(itemIDs, field)
	for _, pid := range order {
		want, ok := field[pid]
		if !ok {
			continue
		}
		held, err := s.ledger.custodyBalance(ctx, tx, workerID, pid)
		if err != nil {
			return err
		}
		if held+issuanceEpsilon < want {
			return &ShortageError{Kind: ErrInsufficientCustody, Product: products[pid].Name, Available: held, Required: want}
		}
	}

	remaining := make(map[uuid.UUID]float64, len(field))
	for pid, qty := range field {
		remaining[pid] = qty
	}
	give := func(pid uuid.UUID, qty float64) error {
		if qty <= issuanceEpsilon {
			return nil
		}
		remaining[pid] -= qty
		_, err := s.ledger.post(ctx, tx, posting{
			product:    products[pid],
			workerID:   &workerID,
			typ:        model.Plain(model.KindReturnFromWorker),
			quantity:   qty,
			estimateID: &e.ID,
		})
		return err
	}
	for _, item := range e.Items {
		if err := give(item.ProductID, math.Min(item.Quantity, remaining[item.ProductID])); err != nil {
			return err
		}
	}
	for _, pid := range order {
		if err := give(pid, remaining[pid]); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an estimate that holds no stock in the field.
func (s *Estimates) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		e, err := tx.LockEstimate(ctx, id)
		if err != nil {
			return notFound(err, "estimate %s", id)
		}
		if err := requireStatus(e, "delete", model.EstimateDraft, model.EstimateApproved, model.EstimateCancelled); err != nil {
			return err
		}
		field, err := s.inField(ctx, tx, e)
		if err != nil {
			return err
		}
		if len(field) > 0 {
			return fmt.Errorf("%w: estimate %s still has goods of %d products with its worker, reopen and cancel it first", ErrInvalidState, e.Number, len(field))
		}
		return tx.DeleteEstimate(ctx, id)
	})
}

// ItemUpdate edits quoted figures only. It never moves stock.
type ItemUpdate struct {
	Quantity  *float64
	UnitPrice *float64
}

func (s *Estimates) UpdateItem(ctx context.Context, estimateID, itemID uuid.UUID, in ItemUpdate) (*model.EstimateView, error) {
	if in.Quantity != nil {
		if err := validatePositive("quantity", *in.Quantity); err != nil {
			return nil, err
		}
	}
	if in.UnitPrice != nil {
		if err := validateNonNegative("unit_price", *in.UnitPrice); err != nil {
			return nil, err
		}
	}
	return s.mutate(ctx, estimateID, func(tx repository.Store, e *model.Estimate) error {
		if e.Status == model.EstimateCompleted {
			return fmt.Errorf("%w: estimate %s is completed", ErrInvalidState, e.Number)
		}
		item := findItem(e, itemID)
		if item == nil {
			return fmt.Errorf("%w: item %s in estimate %s", ErrNotFound, itemID, e.Number)
		}
		if in.Quantity != nil {
			item.Quantity = *in.Quantity
		}
		if in.UnitPrice != nil {
			item.UnitPrice = *in.UnitPrice
		}
		return tx.UpdateEstimateItem(ctx, item)
	})
}

// DeleteItem removes a line. Shipped work can not lose items.
func (s *Estimates) DeleteItem(ctx context.Context, estimateID, itemID uuid.UUID) (*model.EstimateView, error) {
	return s.mutate(ctx, estimateID, func(tx repository.Store, e *model.Estimate) error {
		if err := requireStatus(e, "remove items from", model.EstimateDraft, model.EstimateApproved, model.EstimateCancelled); err != nil {
			return err
		}
		if findItem(e, itemID) == nil {
			return fmt.Errorf("%w: item %s in estimate %s", ErrNotFound, itemID, e.Number)
		}
		if err := tx.DeleteEstimateItem(ctx, itemID); err != nil {
			return err
		}
		kept := e.Items[:0]
		for _, item := range e.Items {
			if item.ID != itemID {
				kept = append(kept, item)
			}
		}
		e.Items = kept
		return nil
	})
}

func findItem(e *model.Estimate, id uuid.UUID) *model.EstimateItem {
	for i := range e.Items {
		if e.Items[i].ID == id {
			return &e.Items[i]
		}
	}
	return nil
}
