package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Unit string

const (
	UnitPiece       Unit = "pcs"
	UnitMeter       Unit = "m"
	UnitLiter       Unit = "l"
	UnitKilogram    Unit = "kg"
	UnitSquareMeter Unit = "m2"
	UnitCubicMeter  Unit = "m3"
)

func (u Unit) Valid() bool {
	switch u {
	case UnitPiece, UnitMeter, UnitLiter, UnitKilogram, UnitSquareMeter, UnitCubicMeter:
		return true
	}
	return false
}

// Product is a catalog entry. StockQuantity is a cache of the ledger and is
// only ever written through ledger postings.
type Product struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	InternalSKU   string    `gorm:"column:internal_sku;not null" json:"internal_sku"`
	SupplierSKU   *string   `gorm:"column:supplier_sku" json:"supplier_sku,omitempty"`
	Name          string    `gorm:"not null" json:"name"`
	Unit          Unit      `gorm:"not null" json:"unit"`
	PurchasePrice float64   `gorm:"not null" json:"purchase_price"`
	RetailPrice   float64   `gorm:"not null" json:"retail_price"`
	StockQuantity float64   `gorm:"not null" json:"stock_quantity"`
	MinStockLevel float64   `gorm:"not null" json:"min_stock_level"`
	IsFavorite    bool      `gorm:"not null" json:"is_favorite"`
	IsDeleted     bool      `gorm:"not null" json:"is_deleted"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// IsLowStock reports whether a reorder threshold is configured and reached.
func (p Product) IsLowStock() bool {
	return p.MinStockLevel > 0 && p.StockQuantity <= p.MinStockLevel
}

// NumericFix records one non-finite field that was rewritten to zero.
type NumericFix struct {
	Field string
	Was   float64
}

// Sanitize rewrites every non-finite numeric field to 0 and returns what it changed.
func (p *Product) Sanitize() []NumericFix {
	var fixes []NumericFix
	fixes = zeroIfNonFinite(fixes, "stock_quantity", &p.StockQuantity)
	fixes = zeroIfNonFinite(fixes, "purchase_price", &p.PurchasePrice)
	fixes = zeroIfNonFinite(fixes, "retail_price", &p.RetailPrice)
	fixes = zeroIfNonFinite(fixes, "min_stock_level", &p.MinStockLevel)
	return fixes
}

func zeroIfNonFinite(fixes []NumericFix, field string, v *float64) []NumericFix {
	if IsFinite(*v) {
		return fixes
	}
	fixes = append(fixes, NumericFix{Field: field, Was: *v})
	*v = 0
	return fixes
}

func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
