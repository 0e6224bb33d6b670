package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/drillstock/internal/config"
	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/repository"
	"github.com/nurpe/drillstock/internal/revenue"
)

// Contracts drives the contract state machine, pipe write-off and billing.
type Contracts struct {
	store  repository.Store
	ledger *Ledger
	cfg    config.LedgerConfig
	log    zerolog.Logger
}

func NewContracts(store repository.Store, ledger *Ledger, cfg config.LedgerConfig, log zerolog.Logger) *Contracts {
	return &Contracts{store: store, ledger: ledger, cfg: cfg, log: log.With().Str("component", "contracts").Logger()}
}

type ContractInput struct {
	Number            string
	Date              time.Time
	Type              model.ContractType
	ClientName        string
	Location          string
	Identity          model.ClientIdentity
	EstimatedDepth    *float64
	PricePerMeterSoil *float64
	PricePerMeterRock *float64
	MinPrice          *float64
}

// ContractUpdate is a partial update. Status moves only through Start and Cancel.
type ContractUpdate struct {
	Number            *string
	Date              *time.Time
	ClientName        *string
	Location          *string
	Identity          *model.ClientIdentity
	EstimatedDepth    *float64
	PricePerMeterSoil *float64
	PricePerMeterRock *float64
	ActualDepthSoil   *float64
	ActualDepthRock   *float64
	PipeSteelUsed     *float64
	PipePlasticUsed   *float64
	MinPrice          *float64
}

type ContractQuery struct {
	Search string
	Status *model.ContractStatus
	Page   int
	Limit  int
}

type ContractPage struct {
	Items []model.Contract `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

func validateOptional(values map[string]*float64) error {
	for name, v := range values {
		if v == nil {
			continue
		}
		if err := validateNonNegative(name, *v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Contracts) Create(ctx context.Context, in ContractInput) (*model.Contract, error) {
	if strings.TrimSpace(in.Number) == "" || strings.TrimSpace(in.ClientName) == "" {
		return nil, fmt.Errorf("%w: contract_number and client_name are required", ErrInvalidInput)
	}
	if in.Type == "" {
		in.Type = model.ContractDrilling
	}
	if in.Type != model.ContractDrilling && in.Type != model.ContractPumpInstallation {
		return nil, fmt.Errorf("%w: unknown contract type %q", ErrInvalidInput, in.Type)
	}
	if err := validateOptional(map[string]*float64{
		"estimated_depth":      in.EstimatedDepth,
		"price_per_meter_soil": in.PricePerMeterSoil,
		"price_per_meter_rock": in.PricePerMeterRock,
		"min_price":            in.MinPrice,
	}); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		in.Date = s.ledger.now().UTC()
	}

	c := &model.Contract{
		ID:                uuid.New(),
		Number:            strings.TrimSpace(in.Number),
		ContractDate:      in.Date,
		Type:              in.Type,
		ClientName:        strings.TrimSpace(in.ClientName),
		Location:          strings.TrimSpace(in.Location),
		ClientIdentity:    in.Identity,
		EstimatedDepth:    in.EstimatedDepth,
		PricePerMeterSoil: in.PricePerMeterSoil,
		PricePerMeterRock: in.PricePerMeterRock,
		MinPrice:          in.MinPrice,
		Status:            model.ContractPlanned,
	}
	if err := s.store.CreateContract(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Contracts) Get(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	c, err := s.store.GetContract(ctx, id)
	if err != nil {
		return nil, notFound(err, "contract %s", id)
	}
	return c, nil
}

func (s *Contracts) List(ctx context.Context, q ContractQuery) (*ContractPage, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	items, total, err := s.store.ListContracts(ctx, repository.ContractFilter{
		Search: q.Search,
		Status: q.Status,
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	return &ContractPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *Contracts) mutate(ctx context.Context, id uuid.UUID, fn func(tx repository.Store, c *model.Contract) error) (*model.Contract, error) {
	var out *model.Contract
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		c, err := tx.LockContract(ctx, id)
		if err != nil {
			return notFound(err, "contract %s", id)
		}
		if err := fn(tx, c); err != nil {
			return err
		}
		out = c
		return tx.UpdateContract(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Contracts) Update(ctx context.Context, id uuid.UUID, in ContractUpdate) (*model.Contract, error) {
	if err := validateOptional(map[string]*float64{
		"estimated_depth":      in.EstimatedDepth,
		"price_per_meter_soil": in.PricePerMeterSoil,
		"price_per_meter_rock": in.PricePerMeterRock,
		"actual_depth_soil":    in.ActualDepthSoil,
		"actual_depth_rock":    in.ActualDepthRock,
		"pipe_steel_used":      in.PipeSteelUsed,
		"pipe_plastic_used":    in.PipePlasticUsed,
		"min_price":            in.MinPrice,
	}); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(_ repository.Store, c *model.Contract) error {
		if c.Status == model.ContractCompleted && (in.PipeSteelUsed != nil || in.PipePlasticUsed != nil) {
			return fmt.Errorf("%w: pipes of contract %s were already written off", ErrInvalidState, c.Number)
		}
		if in.Number != nil {
			if strings.TrimSpace(*in.Number) == "" {
				return fmt.Errorf("%w: contract_number must not be empty", ErrInvalidInput)
			}
			c.Number = strings.TrimSpace(*in.Number)
		}
		if in.ClientName != nil {
			if strings.TrimSpace(*in.ClientName) == "" {
				return fmt.Errorf("%w: client_name must not be empty", ErrInvalidInput)
			}
			c.ClientName = strings.TrimSpace(*in.ClientName)
		}
		if in.Date != nil {
			c.ContractDate = *in.Date
		}
		if in.Location != nil {
			c.Location = strings.TrimSpace(*in.Location)
		}
		if in.Identity != nil {
			c.ClientIdentity = *in.Identity
		}
		setIfPresent(&c.EstimatedDepth, in.EstimatedDepth)
		setIfPresent(&c.PricePerMeterSoil, in.PricePerMeterSoil)
		setIfPresent(&c.PricePerMeterRock, in.PricePerMeterRock)
		setIfPresent(&c.ActualDepthSoil, in.ActualDepthSoil)
		setIfPresent(&c.ActualDepthRock, in.ActualDepthRock)
		setIfPresent(&c.PipeSteelUsed, in.PipeSteelUsed)
		setIfPresent(&c.PipePlasticUsed, in.PipePlasticUsed)
		setIfPresent(&c.MinPrice, in.MinPrice)
		return nil
	})
}

func setIfPresent(dst **float64, v *float64) {
	if v != nil {
		val := *v
		*dst = &val
	}
}

// Start moves a planned contract to InProgress.
func (s *Contracts) Start(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	return s.mutate(ctx, id, func(_ repository.Store, c *model.Contract) error {
		if c.Status != model.ContractPlanned {
			return fmt.Errorf("%w: cannot start contract %s in status %s", ErrInvalidState, c.Number, c.Status)
		}
		c.Status = model.ContractInProgress
		return nil
	})
}

func (s *Contracts) Cancel(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	return s.mutate(ctx, id, func(_ repository.Store, c *model.Contract) error {
		if c.Status.IsTerminal() {
			return fmt.Errorf("%w: cannot cancel contract %s in status %s", ErrInvalidState, c.Number, c.Status)
		}
		c.Status = model.ContractCancelled
		return nil
	})
}

// Delete removes a contract that never consumed stock.
func (s *Contracts) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		c, err := tx.LockContract(ctx, id)
		if err != nil {
			return notFound(err, "contract %s", id)
		}
		if c.Status == model.ContractCompleted {
			return fmt.Errorf("%w: contract %s is completed", ErrInvalidState, c.Number)
		}
		return tx.DeleteContract(ctx, id)
	})
}

type pipeKind struct {
	label string
	cfg   config.PipeConfig
}

func (s *Contracts) pipes() [2]pipeKind {
	return [2]pipeKind{
		{label: "steel", cfg: s.cfg.SteelPipe},
		{label: "plastic", cfg: s.cfg.PlasticPipe},
	}
}

// resolvePipe finds and locks the pipe product, failing with ErrNotFound
// when no strategy matches.
func (s *Contracts) resolvePipe(ctx context.Context, tx repository.Store, kind pipeKind) (*model.Product, error) {
	r := PipeResolver(kind.cfg, "")
	found, err := r.Resolve(ctx, tx)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: no %s pipe product matches %s", ErrNotFound, kind.label, r)
	}
	return s.ledger.lockProduct(ctx, tx, found.ID)
}

// PipeWriteOff reports one pipe deduction.
type PipeWriteOff struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Deducted    float64   `json:"deducted"`
	StockAfter  float64   `json:"stock_after"`
}

type WriteOffResult struct {
	Contract *model.Contract `json:"contract"`
	Pipes    []PipeWriteOff  `json:"pipes"`
}

// WriteOffPipes deducts the pipes a contract used from warehouse stock and
// completes it.
func (s *Contracts) WriteOffPipes(ctx context.Context, id uuid.UUID) (*WriteOffResult, error) {
	result := &WriteOffResult{}
	c, err := s.mutate(ctx, id, func(tx repository.Store, c *model.Contract) error {
		if c.Status.IsTerminal() {
			return fmt.Errorf("%w: cannot write off pipes for contract %s in status %s", ErrInvalidState, c.Number, c.Status)
		}
		steel, plastic := c.PipeUsage()
		used := [2]float64{steel, plastic}
		for i, kind := range s.pipes() {
			if err := validateNonNegative("pipe_"+kind.label+"_used", used[i]); err != nil {
				return err
			}
			if used[i] <= 0 {
				continue
			}
			p, err := s.resolvePipe(ctx, tx, kind)
			if err != nil {
				return err
			}
			if _, err := s.ledger.post(ctx, tx, posting{
				product:    p,
				typ:        model.Plain(model.KindWriteOffContract),
				quantity:   -used[i],
				contractID: &c.ID,
			}); err != nil {
				return err
			}
			s.warnIfNegative(p)
			result.Pipes = append(result.Pipes, PipeWriteOff{ProductID: p.ID, ProductName: p.Name, Deducted: used[i], StockAfter: p.StockQuantity})
		}
		c.Status = model.ContractCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Contract = c
	return result, nil
}

func (s *Contracts) warnIfNegative(p *model.Product) {
	if p.StockQuantity < 0 {
		s.log.Warn().Str("product_id", p.ID.String()).Float64("stock", p.StockQuantity).Msg("pipe stock went negative")
	}
}

type BatchWriteOffResult struct {
	ContractsProcessed int            `json:"contracts_processed"`
	Pipes              []PipeWriteOff `json:"pipes"`
	HistoryRecorded    bool           `json:"history_recorded"`
}

// WriteOffAllPipes deducts the summed pipe usage of every in-progress
// contract with one movement per pipe type and completes them all. With
// noHistory the stock moves but no ledger entry is written.
func (s *Contracts) WriteOffAllPipes(ctx context.Context, noHistory bool) (*BatchWriteOffResult, error) {
	result := &BatchWriteOffResult{HistoryRecorded: !noHistory}
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		contracts, err := tx.LockContractsByStatus(ctx, model.ContractInProgress)
		if err != nil {
			return err
		}
		var totals [2]float64
		for _, c := range contracts {
			steel, plastic := c.PipeUsage()
			for i, v := range [2]float64{steel, plastic} {
				if !model.IsFinite(v) || v < 0 {
					s.log.Warn().Str("contract_id", c.ID.String()).Msg("invalid pipe usage skipped")
					continue
				}
				totals[i] += v
			}
		}

		for i, kind := range s.pipes() {
			if totals[i] <= 0 {
				continue
			}
			p, err := s.resolvePipe(ctx, tx, kind)
			if err != nil {
				return err
			}
			if noHistory {
				err = s.ledger.shiftCacheOnly(ctx, tx, p, -totals[i])
			} else {
				_, err = s.ledger.post(ctx, tx, posting{product: p, typ: model.Plain(model.KindWriteOffContract), quantity: -totals[i]})
			}
			if err != nil {
				return err
			}
			s.warnIfNegative(p)
			result.Pipes = append(result.Pipes, PipeWriteOff{ProductID: p.ID, ProductName: p.Name, Deducted: totals[i], StockAfter: p.StockQuantity})
		}

		for i := range contracts {
			contracts[i].Status = model.ContractCompleted
			if err := tx.UpdateContract(ctx, &contracts[i]); err != nil {
				return err
			}
		}
		result.ContractsProcessed = len(contracts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("contracts", result.ContractsProcessed).Bool("history", !noHistory).Msg("batch pipe write-off done")
	return result, nil
}

// RevenueRequest overrides the figures taken from the contract. Nil fields
// fall back to the contract's recorded values.
type RevenueRequest struct {
	MetersSoil           *float64
	MetersRock           *float64
	SteelPipeMeters      *float64
	SteelPricePerMeter   *float64
	PlasticPipeMeters    *float64
	PlasticPricePerMeter *float64
	MinPrice             *float64
	SteelSKU             string
	PlasticSKU           string
}

// CalculateRevenue prices a contract. The floor comes from the request,
// then the contract, then configuration.
func (s *Contracts) CalculateRevenue(ctx context.Context, id uuid.UUID, req RevenueRequest) (*model.RevenueBreakdown, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateOptional(map[string]*float64{
		"meters_soil":                  req.MetersSoil,
		"meters_rock":                  req.MetersRock,
		"steel_pipe_meters":            req.SteelPipeMeters,
		"steel_pipe_price_per_meter":   req.SteelPricePerMeter,
		"plastic_pipe_meters":          req.PlasticPipeMeters,
		"plastic_pipe_price_per_meter": req.PlasticPricePerMeter,
		"min_price":                    req.MinPrice,
	}); err != nil {
		return nil, err
	}

	steelUsed, plasticUsed := c.PipeUsage()
	steel, err := s.pipePrice(ctx, s.cfg.SteelPipe, req.SteelSKU, firstOf(req.SteelPipeMeters, steelUsed), req.SteelPricePerMeter)
	if err != nil {
		return nil, err
	}
	plastic, err := s.pipePrice(ctx, s.cfg.PlasticPipe, req.PlasticSKU, firstOf(req.PlasticPipeMeters, plasticUsed), req.PlasticPricePerMeter)
	if err != nil {
		return nil, err
	}

	floor := s.cfg.MinWellCost
	switch {
	case req.MinPrice != nil:
		floor = *req.MinPrice
	case c.MinPrice != nil:
		floor = *c.MinPrice
	}

	out, err := revenue.Calculate(revenue.Input{
		ContractID:        c.ID,
		PricePerMeterSoil: c.PricePerMeterSoil,
		PricePerMeterRock: c.PricePerMeterRock,
		MetersSoil:        firstOf(req.MetersSoil, derefOr(c.ActualDepthSoil)),
		MetersRock:        firstOf(req.MetersRock, derefOr(c.ActualDepthRock)),
		Steel:             steel,
		Plastic:           plastic,
		MinPrice:          floor,
	})
	if errors.Is(err, revenue.ErrMissingPricing) || errors.Is(err, revenue.ErrNonFinite) {
		return nil, fmt.Errorf("%w: contract %s: %w", ErrInvalidInput, c.Number, err)
	}
	return out, err
}

// pipePrice reads unit prices from the resolved product. An explicit
// per-meter price replaces both purchase and retail. Unresolved pipes price at 0.
func (s *Contracts) pipePrice(ctx context.Context, cfg config.PipeConfig, sku string, meters float64, override *float64) (revenue.Pipe, error) {
	pipe := revenue.Pipe{Label: cfg.SKU, Meters: meters}
	if strings.TrimSpace(sku) != "" {
		pipe.Label = strings.TrimSpace(sku)
	}
	p, err := PipeResolver(cfg, sku).Resolve(ctx, s.store)
	if err != nil {
		return pipe, err
	}
	if p != nil {
		s.ledger.sanitizeProduct(p)
		pipe.Label = p.InternalSKU
		pipe.Purchase = p.PurchasePrice
		pipe.Retail = p.RetailPrice
	}
	if override != nil {
		pipe.Purchase = *override
		pipe.Retail = *override
	}
	return pipe, nil
}

func firstOf(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

func derefOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
