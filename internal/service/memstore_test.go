package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/repository"
)

type memData struct {
	products  map[uuid.UUID]model.Product
	workers   map[uuid.UUID]model.Worker
	movements []model.Movement
	estimates map[uuid.UUID]model.Estimate
	items     []model.EstimateItem
	contracts map[uuid.UUID]model.Contract
}

func (d *memData) clone() memData {
	c := memData{
		products:  make(map[uuid.UUID]model.Product, len(d.products)),
		workers:   make(map[uuid.UUID]model.Worker, len(d.workers)),
		movements: append([]model.Movement(nil), d.movements...),
		estimates: make(map[uuid.UUID]model.Estimate, len(d.estimates)),
		items:     append([]model.EstimateItem(nil), d.items...),
		contracts: make(map[uuid.UUID]model.Contract, len(d.contracts)),
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.workers {
		c.workers[k] = v
	}
	for k, v := range d.estimates {
		c.estimates[k] = v
	}
	for k, v := range d.contracts {
		c.contracts[k] = v
	}
	return c
}

// memStore is an in-memory repository.Store. Transactions are serialised
// by one mutex and rolled back by restoring a snapshot.
type memStore struct {
	mu     *sync.Mutex
	data   *memData
	nested bool
}

var _ repository.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		mu: &sync.Mutex{},
		data: &memData{
			products:  map[uuid.UUID]model.Product{},
			workers:   map[uuid.UUID]model.Worker{},
			estimates: map[uuid.UUID]model.Estimate{},
			contracts: map[uuid.UUID]model.Contract{},
		},
	}
}

func (s *memStore) lock() func() {
	if s.nested {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.nested {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(&memStore{mu: s.mu, data: s.data, nested: true}); err != nil {
		*s.data = snapshot
		return err
	}
	return nil
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

func isNonFinite(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }

// products

func (s *memStore) GetProduct(_ context.Context, id uuid.UUID) (*model.Product, error) {
	defer s.lock()()
	p, ok := s.data.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (s *memStore) LockProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	defer s.lock()()
	out := map[uuid.UUID]*model.Product{}
	for _, id := range ids {
		if p, ok := s.data.products[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (s *memStore) CreateProduct(_ context.Context, p *model.Product) error {
	defer s.lock()()
	for _, existing := range s.data.products {
		if existing.InternalSKU == p.InternalSKU {
			return gorm.ErrDuplicatedKey
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.data.products[p.ID] = *p
	return nil
}

func (s *memStore) UpdateProduct(_ context.Context, p *model.Product) error {
	defer s.lock()()
	if _, ok := s.data.products[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.data.products[p.ID] = *p
	return nil
}

func (s *memStore) SetProductStock(_ context.Context, id uuid.UUID, quantity float64) error {
	defer s.lock()()
	p, ok := s.data.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.StockQuantity = quantity
	s.data.products[id] = p
	return nil
}

func (s *memStore) findProduct(match func(model.Product) bool) (*model.Product, error) {
	defer s.lock()()
	var found []model.Product
	for _, p := range s.data.products {
		if !p.IsDeleted && match(p) {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	sort.Slice(found, func(i, j int) bool { return found[i].InternalSKU < found[j].InternalSKU })
	return &found[0], nil
}

func (s *memStore) FindProductBySKU(_ context.Context, sku string) (*model.Product, error) {
	return s.findProduct(func(p model.Product) bool { return p.InternalSKU == sku })
}

func (s *memStore) FindProductBySKUPattern(_ context.Context, fragment string) (*model.Product, error) {
	return s.findProduct(func(p model.Product) bool { return contains(p.InternalSKU, fragment) })
}

func (s *memStore) FindProductByName(_ context.Context, fragment string) (*model.Product, error) {
	return s.findProduct(func(p model.Product) bool { return contains(p.Name, fragment) })
}

func (s *memStore) ListProducts(_ context.Context, f repository.ProductFilter) ([]model.Product, error) {
	defer s.lock()()
	var out []model.Product
	for _, p := range s.data.products {
		if p.IsDeleted && !f.IncludeDeleted {
			continue
		}
		if f.Search != "" && !contains(p.Name, f.Search) && !contains(p.InternalSKU, f.Search) {
			continue
		}
		if f.LowStockOnly && !(p.MinStockLevel > 0 && p.StockQuantity <= p.MinStockLevel) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) NonFiniteProducts(_ context.Context) ([]model.Product, error) {
	defer s.lock()()
	var out []model.Product
	for _, p := range s.data.products {
		if isNonFinite(p.StockQuantity) || isNonFinite(p.PurchasePrice) || isNonFinite(p.RetailPrice) || isNonFinite(p.MinStockLevel) {
			out = append(out, p)
		}
	}
	return out, nil
}

// workers

func (s *memStore) GetWorker(_ context.Context, id uuid.UUID) (*model.Worker, error) {
	defer s.lock()()
	w, ok := s.data.workers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &w, nil
}

func (s *memStore) CreateWorker(_ context.Context, w *model.Worker) error {
	defer s.lock()()
	s.data.workers[w.ID] = *w
	return nil
}

func (s *memStore) UpdateWorker(_ context.Context, w *model.Worker) error {
	defer s.lock()()
	if _, ok := s.data.workers[w.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.data.workers[w.ID] = *w
	return nil
}

func (s *memStore) ListWorkers(_ context.Context) ([]model.Worker, error) {
	defer s.lock()()
	var out []model.Worker
	for _, w := range s.data.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) DeleteWorker(_ context.Context, id uuid.UUID) error {
	defer s.lock()()
	if _, ok := s.data.workers[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.data.workers, id)
	return nil
}

// movements

func (s *memStore) InsertMovement(_ context.Context, m *model.Movement) error {
	defer s.lock()()
	if m.ReversesID != nil {
		for _, existing := range s.data.movements {
			if existing.ReversesID != nil && *existing.ReversesID == *m.ReversesID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	s.data.movements = append(s.data.movements, *m)
	return nil
}

func (s *memStore) GetMovement(_ context.Context, id uuid.UUID) (*model.Movement, error) {
	defer s.lock()()
	for _, m := range s.data.movements {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) ReversalOf(_ context.Context, id uuid.UUID) (*model.Movement, error) {
	defer s.lock()()
	for _, m := range s.data.movements {
		if m.ReversesID != nil && *m.ReversesID == id {
			return &m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func typeIn(t model.MovementType, types []model.MovementType) bool {
	if len(types) == 0 {
		return true
	}
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func (s *memStore) SumQuantity(_ context.Context, f repository.SumFilter) (float64, error) {
	defer s.lock()()
	var sum float64
	for _, m := range s.data.movements {
		if m.ProductID != f.ProductID || !typeIn(m.MovementType, f.Types) {
			continue
		}
		if f.WorkerID != nil && (m.WorkerID == nil || *m.WorkerID != *f.WorkerID) {
			continue
		}
		sum += m.Quantity
	}
	return sum, nil
}

func (s *memStore) SumByProduct(_ context.Context, workerID uuid.UUID) ([]model.ProductSum, error) {
	defer s.lock()()
	return s.sumByProduct(func(m model.Movement) bool {
		return m.WorkerID != nil && *m.WorkerID == workerID
	}), nil
}

func (s *memStore) EstimateCustody(_ context.Context, estimateID, workerID uuid.UUID) ([]model.ProductSum, error) {
	defer s.lock()()
	return s.sumByProduct(func(m model.Movement) bool {
		return m.WorkerID != nil && *m.WorkerID == workerID && m.EstimateID != nil && *m.EstimateID == estimateID
	}), nil
}

func (s *memStore) sumByProduct(match func(model.Movement) bool) []model.ProductSum {
	sums := map[uuid.UUID]float64{}
	var order []uuid.UUID
	for _, m := range s.data.movements {
		if !match(m) {
			continue
		}
		if _, ok := sums[m.ProductID]; !ok {
			order = append(order, m.ProductID)
		}
		sums[m.ProductID] += m.Quantity
	}
	out := make([]model.ProductSum, 0, len(order))
	for _, id := range order {
		out = append(out, model.ProductSum{ProductID: id, Quantity: sums[id]})
	}
	return out
}

func (s *memStore) matchMovements(f repository.MovementFilter) []model.MovementView {
	var out []model.MovementView
	for i := len(s.data.movements) - 1; i >= 0; i-- {
		m := s.data.movements[i]
		p := s.data.products[m.ProductID]
		view := model.MovementView{Movement: m, ProductName: p.Name}
		if m.WorkerID != nil {
			view.WorkerName = s.data.workers[*m.WorkerID].Name
		}
		switch {
		case f.ProductID != nil && m.ProductID != *f.ProductID,
			f.WorkerID != nil && (m.WorkerID == nil || *m.WorkerID != *f.WorkerID),
			f.Kind != nil && m.Kind != *f.Kind,
			f.From != nil && m.Timestamp.Before(*f.From),
			f.To != nil && m.Timestamp.After(*f.To),
			f.Search != "" && !contains(view.ProductName, f.Search) && !contains(view.WorkerName, f.Search):
			continue
		}
		out = append(out, view)
	}
	return out
}

func (s *memStore) ListMovements(_ context.Context, f repository.MovementFilter) ([]model.MovementView, int64, error) {
	defer s.lock()()
	all := s.matchMovements(f)
	total := int64(len(all))
	if f.Offset >= len(all) {
		return nil, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (s *memStore) CountMovements(_ context.Context, f repository.MovementFilter) (int64, error) {
	defer s.lock()()
	return int64(len(s.matchMovements(f))), nil
}

func (s *memStore) ListEstimateMovements(_ context.Context, estimateID uuid.UUID, t model.MovementType) ([]model.Movement, error) {
	defer s.lock()()
	var out []model.Movement
	for _, m := range s.data.movements {
		if m.EstimateID != nil && *m.EstimateID == estimateID && m.MovementType == t {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) NonFiniteMovements(_ context.Context) ([]model.Movement, error) {
	defer s.lock()()
	var out []model.Movement
	for _, m := range s.data.movements {
		if isNonFinite(m.Quantity) || isNonFinite(m.StockAfter) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) UpdateMovementNumbers(_ context.Context, id uuid.UUID, quantity, stockAfter float64) error {
	defer s.lock()()
	for i := range s.data.movements {
		if s.data.movements[i].ID == id {
			s.data.movements[i].Quantity = quantity
			s.data.movements[i].StockAfter = stockAfter
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// estimates

func (s *memStore) withItems(e model.Estimate) *model.Estimate {
	e.Items = nil
	for _, item := range s.data.items {
		if item.EstimateID == e.ID {
			e.Items = append(e.Items, item)
		}
	}
	sort.SliceStable(e.Items, func(i, j int) bool { return e.Items[i].Position < e.Items[j].Position })
	return &e
}

func (s *memStore) CreateEstimate(_ context.Context, e *model.Estimate) error {
	defer s.lock()()
	header := *e
	header.Items = nil
	s.data.estimates[e.ID] = header
	s.data.items = append(s.data.items, e.Items...)
	return nil
}

func (s *memStore) GetEstimate(_ context.Context, id uuid.UUID) (*model.Estimate, error) {
	defer s.lock()()
	e, ok := s.data.estimates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s.withItems(e), nil
}

func (s *memStore) LockEstimate(ctx context.Context, id uuid.UUID) (*model.Estimate, error) {
	return s.GetEstimate(ctx, id)
}

func (s *memStore) UpdateEstimate(_ context.Context, e *model.Estimate) error {
	defer s.lock()()
	if _, ok := s.data.estimates[e.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	header := *e
	header.Items = nil
	s.data.estimates[e.ID] = header
	return nil
}

func (s *memStore) removeItems(keep func(model.EstimateItem) bool) {
	kept := s.data.items[:0:0]
	for _, item := range s.data.items {
		if keep(item) {
			kept = append(kept, item)
		}
	}
	s.data.items = kept
}

func (s *memStore) DeleteEstimate(_ context.Context, id uuid.UUID) error {
	defer s.lock()()
	if _, ok := s.data.estimates[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.removeItems(func(item model.EstimateItem) bool { return item.EstimateID != id })
	delete(s.data.estimates, id)
	return nil
}

func (s *memStore) ListEstimates(_ context.Context, f repository.EstimateFilter) ([]model.Estimate, int64, error) {
	defer s.lock()()
	var out []model.Estimate
	for _, e := range s.data.estimates {
		if f.Search != "" && !contains(e.Number, f.Search) && !contains(e.ClientName, f.Search) {
			continue
		}
		if f.Status != nil && e.Status != *f.Status {
			continue
		}
		out = append(out, *s.withItems(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	total := int64(len(out))
	if f.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (s *memStore) AddEstimateItems(_ context.Context, items []model.EstimateItem) error {
	defer s.lock()()
	s.data.items = append(s.data.items, items...)
	return nil
}

func (s *memStore) UpdateEstimateItem(_ context.Context, item *model.EstimateItem) error {
	defer s.lock()()
	for i := range s.data.items {
		if s.data.items[i].ID == item.ID {
			s.data.items[i].Quantity = item.Quantity
			s.data.items[i].UnitPrice = item.UnitPrice
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *memStore) DeleteEstimateItem(_ context.Context, id uuid.UUID) error {
	defer s.lock()()
	before := len(s.data.items)
	s.removeItems(func(item model.EstimateItem) bool { return item.ID != id })
	if len(s.data.items) == before {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *memStore) ReplaceEstimateItems(_ context.Context, estimateID uuid.UUID, items []model.EstimateItem) error {
	defer s.lock()()
	s.removeItems(func(item model.EstimateItem) bool { return item.EstimateID != estimateID })
	s.data.items = append(s.data.items, items...)
	return nil
}

// contracts

func (s *memStore) CreateContract(_ context.Context, c *model.Contract) error {
	defer s.lock()()
	s.data.contracts[c.ID] = *c
	return nil
}

func (s *memStore) GetContract(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	defer s.lock()()
	c, ok := s.data.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (s *memStore) LockContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	return s.GetContract(ctx, id)
}

func (s *memStore) LockContractsByStatus(_ context.Context, status model.ContractStatus) ([]model.Contract, error) {
	defer s.lock()()
	var out []model.Contract
	for _, c := range s.data.contracts {
		if c.Status == status {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *memStore) UpdateContract(_ context.Context, c *model.Contract) error {
	defer s.lock()()
	s.data.contracts[c.ID] = *c
	return nil
}

func (s *memStore) DeleteContract(_ context.Context, id uuid.UUID) error {
	defer s.lock()()
	if _, ok := s.data.contracts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.data.contracts, id)
	return nil
}

func (s *memStore) ListContracts(_ context.Context, f repository.ContractFilter) ([]model.Contract, int64, error) {
	defer s.lock()()
	var out []model.Contract
	for _, c := range s.data.contracts {
		if f.Search != "" && !contains(c.Number, f.Search) && !contains(c.ClientName, f.Search) {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	total := int64(len(out))
	if f.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}
