package model

import (
	"time"

	"github.com/google/uuid"
)

type EstimateStatus string

const (
	EstimateDraft      EstimateStatus = "DRAFT"
	EstimateApproved   EstimateStatus = "APPROVED"
	EstimateInProgress EstimateStatus = "IN_PROGRESS"
	EstimateCompleted  EstimateStatus = "COMPLETED"
	EstimateCancelled  EstimateStatus = "CANCELLED"
)

// Estimate is a customer work order whose items are issued to one worker.
type Estimate struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Number     string         `gorm:"column:estimate_number;not null" json:"estimate_number"`
	ClientName string         `gorm:"not null" json:"client_name"`
	Location   *string        `json:"location,omitempty"`
	Status     EstimateStatus `gorm:"not null" json:"status"`
	WorkerID   *uuid.UUID     `gorm:"type:uuid" json:"worker_id,omitempty"`
	ShippedAt  *time.Time     `json:"shipped_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Items      []EstimateItem `gorm:"foreignKey:EstimateID" json:"items"`
}

func (Estimate) TableName() string { return "estimates" }

// IsShipped reports whether the estimate was handed to a worker at least once.
func (e Estimate) IsShipped() bool {
	return e.WorkerID != nil
}

// EstimateItem is one line; UnitPrice is frozen when the line is added.
type EstimateItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	EstimateID uuid.UUID `gorm:"type:uuid;not null" json:"estimate_id"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	Position   int       `gorm:"not null" json:"position"`
	Quantity   float64   `gorm:"not null" json:"quantity"`
	UnitPrice  float64   `gorm:"not null" json:"unit_price"`
}

func (EstimateItem) TableName() string { return "estimate_items" }

type EstimateLineView struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    float64   `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	Sum         float64   `json:"sum"`
}

// EstimateView is the read model returned to estimate consumers.
type EstimateView struct {
	ID         uuid.UUID          `json:"id"`
	Number     string             `json:"estimate_number"`
	ClientName string             `json:"client_name"`
	Location   *string            `json:"location,omitempty"`
	Status     EstimateStatus     `json:"status"`
	WorkerID   *uuid.UUID         `json:"worker_id,omitempty"`
	ShippedAt  *time.Time         `json:"shipped_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	Items      []EstimateLineView `json:"items"`
	TotalSum   float64            `json:"total_sum"`
}
