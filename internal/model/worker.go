package model

import (
	"time"

	"github.com/google/uuid"
)

type Worker struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Worker) TableName() string { return "workers" }

// CustodyLine is the quantity of one product currently in a worker's hands.
type CustodyLine struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Unit        Unit      `json:"unit"`
	OnHand      float64   `json:"quantity_on_hand"`
}

// ProductSum is an aggregated ledger quantity for one product.
type ProductSum struct {
	ProductID uuid.UUID
	Quantity  float64
}
