package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MovementKind string

const (
	KindIncome           MovementKind = "INCOME"
	KindIssueToWorker    MovementKind = "ISSUE_TO_WORKER"
	KindReturnFromWorker MovementKind = "RETURN_FROM_WORKER"
	KindWriteOffEstimate MovementKind = "WRITE_OFF_ESTIMATE"
	KindWriteOffContract MovementKind = "WRITE_OFF_CONTRACT"
	KindAdjustment       MovementKind = "ADJUSTMENT"
	KindWriteOffWorker   MovementKind = "WRITE_OFF_WORKER"
	KindCancellation     MovementKind = "CANCELLATION"
)

var primaryKinds = []MovementKind{
	KindIncome,
	KindIssueToWorker,
	KindReturnFromWorker,
	KindWriteOffEstimate,
	KindWriteOffContract,
	KindAdjustment,
	KindWriteOffWorker,
}

func ParseMovementKind(raw string) (MovementKind, bool) {
	kind := MovementKind(strings.ToUpper(strings.TrimSpace(raw)))
	if kind == KindCancellation {
		return kind, true
	}
	for _, k := range primaryKinds {
		if k == kind {
			return k, true
		}
	}
	return "", false
}

// increasesStock lists the kinds whose reversal takes stock away and is
// therefore subject to the negative-stock guard.
func (k MovementKind) increasesStock() bool {
	switch k {
	case KindIncome, KindReturnFromWorker, KindAdjustment:
		return true
	}
	return false
}

// restoredOnReversal lists the kinds whose cancellation moves global stock back.
func (k MovementKind) restoredOnReversal() bool {
	switch k {
	case KindIncome, KindReturnFromWorker, KindIssueToWorker, KindAdjustment:
		return true
	}
	return false
}

// MovementType is the kind of a ledger entry. A cancellation carries the kind
// of the entry it reverses as data.
type MovementType struct {
	Kind     MovementKind `gorm:"column:kind;not null" json:"kind"`
	Reverses MovementKind `gorm:"column:reversed_kind;not null;default:''" json:"reversed_kind,omitempty"`
}

func Plain(kind MovementKind) MovementType {
	return MovementType{Kind: kind}
}

func Cancellation(of MovementKind) MovementType {
	return MovementType{Kind: KindCancellation, Reverses: of}
}

func (t MovementType) IsCancellation() bool {
	return t.Kind == KindCancellation
}

// AffectsStock reports whether an entry of this type moves Product.StockQuantity.
func (t MovementType) AffectsStock() bool {
	switch t.Kind {
	case KindIncome, KindIssueToWorker, KindReturnFromWorker, KindAdjustment, KindWriteOffContract:
		return true
	case KindCancellation:
		return t.Reverses.restoredOnReversal()
	}
	return false
}

// GuardsNegativeStock reports whether reversing an entry of this type must
// be refused when it would leave stock below zero.
func (t MovementType) GuardsNegativeStock() bool {
	return !t.IsCancellation() && t.Kind.increasesStock()
}

func (t MovementType) String() string {
	if t.IsCancellation() {
		return fmt.Sprintf("Cancellation(%s)", t.Reverses)
	}
	return string(t.Kind)
}

// StockAffectingTypes enumerates every type whose quantities sum to the
// global stock of a product.
func StockAffectingTypes() []MovementType {
	var types []MovementType
	for _, k := range primaryKinds {
		if t := Plain(k); t.AffectsStock() {
			types = append(types, t)
		}
		if t := Cancellation(k); t.AffectsStock() {
			types = append(types, t)
		}
	}
	return types
}

// Movement is one append-only ledger entry. Positive quantity increases the
// referenced balance.
type Movement struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProductID    uuid.UUID  `gorm:"type:uuid;not null" json:"product_id"`
	WorkerID     *uuid.UUID `gorm:"type:uuid" json:"worker_id,omitempty"`
	Quantity     float64    `gorm:"not null" json:"quantity"`
	MovementType `gorm:"embedded"`
	StockAfter   float64    `gorm:"not null" json:"stock_after"`
	ReversesID   *uuid.UUID `gorm:"column:reverses_movement_id;type:uuid" json:"reverses_movement_id,omitempty"`
	EstimateID   *uuid.UUID `gorm:"type:uuid" json:"estimate_id,omitempty"`
	ContractID   *uuid.UUID `gorm:"type:uuid" json:"contract_id,omitempty"`
	Timestamp    time.Time  `gorm:"column:occurred_at;not null" json:"timestamp"`
}

func (Movement) TableName() string { return "stock_movements" }

func (m *Movement) Sanitize() []NumericFix {
	var fixes []NumericFix
	fixes = zeroIfNonFinite(fixes, "quantity", &m.Quantity)
	fixes = zeroIfNonFinite(fixes, "stock_after", &m.StockAfter)
	return fixes
}

// MovementView is a history row joined with the names operators read.
type MovementView struct {
	Movement
	ProductName string `json:"product_name"`
	WorkerName  string `json:"worker_name,omitempty"`
}
