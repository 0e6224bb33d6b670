// Package revenue computes the billing breakdown of a drilling contract.
package revenue

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/drillstock/internal/model"
)

var (
	ErrMissingPricing = errors.New("contract has no per-meter drilling prices")
	ErrNonFinite      = errors.New("non-finite revenue input")
)

const (
	unitMeter = "m"
	unitPiece = "pcs"
)

// Pipe is one pipe type on the bill. Label is shown in the line name.
type Pipe struct {
	Label    string
	Meters   float64
	Purchase float64
	Retail   float64
}

func (p Pipe) purchaseCost() float64 { return p.Purchase * p.Meters }
func (p Pipe) retailCost() float64   { return p.Retail * p.Meters }

// Input carries everything the calculation needs. MinPrice is the already
// resolved floor for the drilling portion.
type Input struct {
	ContractID        uuid.UUID
	PricePerMeterSoil *float64
	PricePerMeterRock *float64
	MetersSoil        float64
	MetersRock        float64
	Steel             Pipe
	Plastic           Pipe
	MinPrice          float64
}

func (in Input) validate() error {
	if in.PricePerMeterSoil == nil || in.PricePerMeterRock == nil {
		return ErrMissingPricing
	}
	values := map[string]float64{
		"price_per_meter_soil":  *in.PricePerMeterSoil,
		"price_per_meter_rock":  *in.PricePerMeterRock,
		"meters_soil":           in.MetersSoil,
		"meters_rock":           in.MetersRock,
		"steel_pipe_meters":     in.Steel.Meters,
		"steel_pipe_purchase":   in.Steel.Purchase,
		"steel_pipe_retail":     in.Steel.Retail,
		"plastic_pipe_meters":   in.Plastic.Meters,
		"plastic_pipe_purchase": in.Plastic.Purchase,
		"plastic_pipe_retail":   in.Plastic.Retail,
		"min_price":             in.MinPrice,
	}
	for name, v := range values {
		if !model.IsFinite(v) {
			return fmt.Errorf("%w: %s", ErrNonFinite, name)
		}
	}
	return nil
}

// Calculate bills drilling per meter plus pipes at retail. The floor lifts
// only the drilling portion and is itemized as its own line when it applies.
// Amounts stay unrounded until the result is assembled.
func Calculate(in Input) (*model.RevenueBreakdown, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	soil := *in.PricePerMeterSoil * in.MetersSoil
	rock := *in.PricePerMeterRock * in.MetersRock
	drillingRaw := soil + rock

	pipePurchase := in.Steel.purchaseCost() + in.Plastic.purchaseCost()
	pipeRetail := in.Steel.retailCost() + in.Plastic.retailCost()

	billed := drillingRaw
	minApplied := in.MinPrice > drillingRaw
	if minApplied {
		billed = in.MinPrice
	}
	total := billed + pipeRetail

	lines := []model.RevenueLine{
		drillingLine("Drilling to bedrock", *in.PricePerMeterSoil, in.MetersSoil, soil),
		drillingLine("Drilling through rock", *in.PricePerMeterRock, in.MetersRock, rock),
		pipeLine("Steel casing pipe", in.Steel),
		pipeLine("Plastic pipe", in.Plastic),
	}
	if minApplied {
		lines = append(lines, model.RevenueLine{
			Name:        "Minimum drilling cost applied",
			Price:       round2(in.MinPrice),
			Quantity:    1,
			Unit:        unitPiece,
			Sum:         amount(in.MinPrice),
			MinimumLine: true,
		})
	}

	return &model.RevenueBreakdown{
		ContractID:       in.ContractID,
		Lines:            lines,
		DrillingRaw:      round2(drillingRaw),
		DrillingBilled:   round2(billed),
		PipeCostPurchase: round2(pipePurchase),
		PipeCostRetail:   round2(pipeRetail),
		Subtotal:         round2(total),
		AppliedMinPrice:  round2(in.MinPrice),
		MinApplied:       minApplied,
		Total:            round2(total),
		NetProfit:        round2(total - pipePurchase),
	}, nil
}

func drillingLine(name string, price, meters, sum float64) model.RevenueLine {
	return model.RevenueLine{
		Name:     name,
		Price:    price,
		Quantity: meters,
		Unit:     unitMeter,
		Sum:      amount(sum),
	}
}

func pipeLine(name string, p Pipe) model.RevenueLine {
	line := model.RevenueLine{
		Name:     name,
		Price:    p.Retail,
		Quantity: p.Meters,
		Unit:     unitMeter,
	}
	if p.Label != "" {
		line.Name = name + " " + p.Label
	}
	if p.Meters != 0 {
		line.Sum = amount(p.retailCost())
		line.PurchaseSum = amount(p.purchaseCost())
	}
	return line
}

func amount(v float64) *float64 {
	r := round2(v)
	return &r
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
