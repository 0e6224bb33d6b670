package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/repository"
)

// Maintenance hosts operator repair passes over stored data.
type Maintenance struct {
	store repository.Store
	log   zerolog.Logger
}

func NewMaintenance(store repository.Store, log zerolog.Logger) *Maintenance {
	return &Maintenance{store: store, log: log.With().Str("component", "maintenance").Logger()}
}

// NumericRepair is one non-finite field found in storage.
type NumericRepair struct {
	Entity string
	ID     uuid.UUID
	Label  string
	Field  string
	Was    float64
}

type RepairReport struct {
	DryRun  bool
	Repairs []NumericRepair
}

func (r *RepairReport) Products() int  { return r.count("product") }
func (r *RepairReport) Movements() int { return r.count("movement") }

func (r *RepairReport) count(entity string) int {
	n := 0
	for _, fix := range r.Repairs {
		if fix.Entity == entity {
			n++
		}
	}
	return n
}

// RepairNonFinite rewrites NaN and infinite numbers on products and
// movements to 0. With dryRun nothing is written.
func (m *Maintenance) RepairNonFinite(ctx context.Context, dryRun bool) (*RepairReport, error) {
	report := &RepairReport{DryRun: dryRun}
	err := m.store.InTx(ctx, func(tx repository.Store) error {
		products, err := tx.NonFiniteProducts(ctx)
		if err != nil {
			return err
		}
		for i := range products {
			p := &products[i]
			fixes := p.Sanitize()
			if len(fixes) == 0 {
				continue
			}
			report.Repairs = append(report.Repairs, repairs("product", p.ID, p.InternalSKU, fixes)...)
			if dryRun {
				continue
			}
			if err := tx.UpdateProduct(ctx, p); err != nil {
				return err
			}
		}

		movements, err := tx.NonFiniteMovements(ctx)
		if err != nil {
			return err
		}
		for i := range movements {
			mv := &movements[i]
			fixes := mv.Sanitize()
			if len(fixes) == 0 {
				continue
			}
			report.Repairs = append(report.Repairs, repairs("movement", mv.ID, mv.MovementType.String(), fixes)...)
			if dryRun {
				continue
			}
			if err := tx.UpdateMovementNumbers(ctx, mv.ID, mv.Quantity, mv.StockAfter); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info().
		Bool("dry_run", dryRun).
		Int("products", report.Products()).
		Int("movements", report.Movements()).
		Msg("non-finite repair finished")
	return report, nil
}

func repairs(entity string, id uuid.UUID, label string, fixes []model.NumericFix) []NumericRepair {
	out := make([]NumericRepair, 0, len(fixes))
	for _, f := range fixes {
		out = append(out, NumericRepair{Entity: entity, ID: id, Label: label, Field: f.Field, Was: f.Was})
	}
	return out
}
