package model

import "github.com/google/uuid"

// RevenueLine is one row of a billing itemization. Sum and PurchaseSum are
// nil for rows that carry no amount of that kind.
type RevenueLine struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Quantity    float64  `json:"quantity"`
	Unit        string   `json:"unit"`
	Sum         *float64 `json:"sum,omitempty"`
	PurchaseSum *float64 `json:"purchase_sum,omitempty"`
	MinimumLine bool     `json:"minimum_applied,omitempty"`
}

// RevenueBreakdown is the billing result for a drilling contract. All
// monetary fields are rounded to 2 decimals.
type RevenueBreakdown struct {
	ContractID       uuid.UUID     `json:"contract_id"`
	Lines            []RevenueLine `json:"items"`
	DrillingRaw      float64       `json:"drilling_raw"`
	DrillingBilled   float64       `json:"drilling_only"`
	PipeCostPurchase float64       `json:"pipe_cost_purchase"`
	PipeCostRetail   float64       `json:"pipe_cost_retail"`
	Subtotal         float64       `json:"subtotal"`
	AppliedMinPrice  float64       `json:"applied_min_price"`
	MinApplied       bool          `json:"min_applied"`
	Total            float64       `json:"total"`
	NetProfit        float64       `json:"net_profit"`
}
