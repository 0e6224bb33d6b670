package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/drillstock/internal/model"
)

// Store is the persistence port of the ledger and lifecycle services.
// Lookups of a single missing row return gorm.ErrRecordNotFound.
type Store interface {
	// InTx runs fn inside one database transaction. fn receives a Store
	// bound to that transaction; returning an error rolls everything back.
	InTx(ctx context.Context, fn func(tx Store) error) error

	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// LockProducts takes FOR UPDATE locks in ascending id order and returns
	// the rows found. Missing ids are absent from the map.
	LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	SetProductStock(ctx context.Context, id uuid.UUID, quantity float64) error
	FindProductBySKU(ctx context.Context, sku string) (*model.Product, error)
	FindProductBySKUPattern(ctx context.Context, fragment string) (*model.Product, error)
	FindProductByName(ctx context.Context, fragment string) (*model.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	NonFiniteProducts(ctx context.Context) ([]model.Product, error)

	GetWorker(ctx context.Context, id uuid.UUID) (*model.Worker, error)
	CreateWorker(ctx context.Context, w *model.Worker) error
	UpdateWorker(ctx context.Context, w *model.Worker) error
	ListWorkers(ctx context.Context) ([]model.Worker, error)
	DeleteWorker(ctx context.Context, id uuid.UUID) error

	InsertMovement(ctx context.Context, m *model.Movement) error
	GetMovement(ctx context.Context, id uuid.UUID) (*model.Movement, error)
	// ReversalOf returns the cancellation entry pointing at id.
	ReversalOf(ctx context.Context, id uuid.UUID) (*model.Movement, error)
	SumQuantity(ctx context.Context, filter SumFilter) (float64, error)
	SumByProduct(ctx context.Context, workerID uuid.UUID) ([]model.ProductSum, error)
	// EstimateCustody sums, per product, the worker movements linked to one
	// estimate. The negated sum is what that estimate still has in the field.
	EstimateCustody(ctx context.Context, estimateID, workerID uuid.UUID) ([]model.ProductSum, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]model.MovementView, int64, error)
	CountMovements(ctx context.Context, filter MovementFilter) (int64, error)
	ListEstimateMovements(ctx context.Context, estimateID uuid.UUID, t model.MovementType) ([]model.Movement, error)
	NonFiniteMovements(ctx context.Context) ([]model.Movement, error)
	UpdateMovementNumbers(ctx context.Context, id uuid.UUID, quantity, stockAfter float64) error

	CreateEstimate(ctx context.Context, e *model.Estimate) error
	GetEstimate(ctx context.Context, id uuid.UUID) (*model.Estimate, error)
	LockEstimate(ctx context.Context, id uuid.UUID) (*model.Estimate, error)
	UpdateEstimate(ctx context.Context, e *model.Estimate) error
	DeleteEstimate(ctx context.Context, id uuid.UUID) error
	ListEstimates(ctx context.Context, filter EstimateFilter) ([]model.Estimate, int64, error)
	AddEstimateItems(ctx context.Context, items []model.EstimateItem) error
	UpdateEstimateItem(ctx context.Context, item *model.EstimateItem) error
	DeleteEstimateItem(ctx context.Context, id uuid.UUID) error
	ReplaceEstimateItems(ctx context.Context, estimateID uuid.UUID, items []model.EstimateItem) error

	CreateContract(ctx context.Context, c *model.Contract) error
	GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	LockContract(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	LockContractsByStatus(ctx context.Context, status model.ContractStatus) ([]model.Contract, error)
	UpdateContract(ctx context.Context, c *model.Contract) error
	DeleteContract(ctx context.Context, id uuid.UUID) error
	ListContracts(ctx context.Context, filter ContractFilter) ([]model.Contract, int64, error)
}

type ProductFilter struct {
	Search         string
	LowStockOnly   bool
	IncludeDeleted bool
}

// SumFilter selects ledger entries to add up. Empty Types means every type.
type SumFilter struct {
	ProductID uuid.UUID
	WorkerID  *uuid.UUID
	Types     []model.MovementType
}

type MovementFilter struct {
	Search    string
	ProductID *uuid.UUID
	WorkerID  *uuid.UUID
	Kind      *model.MovementKind
	From      *time.Time
	To        *time.Time
	Offset    int
	Limit     int
}

type EstimateFilter struct {
	Search string
	Status *model.EstimateStatus
	Offset int
	Limit  int
}

type ContractFilter struct {
	Search string
	Status *model.ContractStatus
	Offset int
	Limit  int
}

// Repository implements Store on top of gorm.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

func (r *Repository) InTx(ctx context.Context, fn func(tx Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}
