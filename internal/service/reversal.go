package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/drillstock/internal/model"
	"github.com/nurpe/drillstock/internal/repository"
)

// CancelMovement appends a compensating entry for movementID. The original
// entry stays in the ledger.
func (l *Ledger) CancelMovement(ctx context.Context, movementID uuid.UUID) (*model.Movement, error) {
	var reversal *model.Movement
	err := l.store.InTx(ctx, func(tx repository.Store) error {
		original, err := tx.GetMovement(ctx, movementID)
		if err != nil {
			return notFound(err, "movement %s", movementID)
		}
		if original.IsCancellation() {
			return fmt.Errorf("%w: movement %s is itself a cancellation", ErrInvalidState, original.ID)
		}
		if !model.IsFinite(original.Quantity) {
			return fmt.Errorf("%w: movement %s carries a non-finite quantity, repair the ledger first", ErrInvalidState, original.ID)
		}

		p, err := l.lockProduct(ctx, tx, original.ProductID)
		if err != nil {
			return err
		}

		// Checked under the product lock so two concurrent cancels serialise here.
		existing, err := tx.ReversalOf(ctx, original.ID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: movement %s was already cancelled by %s", ErrInvalidState, original.ID, existing.ID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		correction := -original.Quantity
		if original.GuardsNegativeStock() && p.StockQuantity+correction < 0 {
			return fmt.Errorf("%w: cancelling %s of %q would drive stock negative (stock %.3f, correction %.3f)",
				ErrConflict, original.MovementType, p.Name, p.StockQuantity, correction)
		}

		// A reversal that takes goods back from a worker needs them to still be there.
		if original.WorkerID != nil && correction > 0 {
			held, err := l.custodyBalance(ctx, tx, *original.WorkerID, p.ID)
			if err != nil {
				return err
			}
			if held+issuanceEpsilon < correction {
				return &ShortageError{Kind: ErrInsufficientCustody, Product: p.Name, Available: held, Required: correction}
			}
		}

		reversal, err = l.post(ctx, tx, posting{
			product:    p,
			workerID:   original.WorkerID,
			typ:        model.Cancellation(original.Kind),
			quantity:   correction,
			reverses:   &original.ID,
			estimateID: original.EstimateID,
			contractID: original.ContractID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	l.log.Info().
		Str("movement_id", movementID.String()).
		Str("reversal_id", reversal.ID.String()).
		Msg("movement cancelled")
	return reversal, nil
}
