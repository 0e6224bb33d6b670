package model

import (
	"time"

	"github.com/google/uuid"
)

type ContractType string

const (
	ContractDrilling         ContractType = "DRILLING"
	ContractPumpInstallation ContractType = "PUMP_INSTALLATION"
)

type ContractStatus string

const (
	ContractPlanned    ContractStatus = "PLANNED"
	ContractInProgress ContractStatus = "IN_PROGRESS"
	ContractCompleted  ContractStatus = "COMPLETED"
	ContractCancelled  ContractStatus = "CANCELLED"
)

func (s ContractStatus) IsTerminal() bool {
	return s == ContractCompleted || s == ContractCancelled
}

// ClientIdentity holds free-text identification of the client.
type ClientIdentity struct {
	PassportSeriesNumber *string `json:"passport_series_number,omitempty"`
	PassportIssuedBy     *string `json:"passport_issued_by,omitempty"`
	PassportIssueDate    *string `json:"passport_issue_date,omitempty"`
	PassportDepCode      *string `json:"passport_dep_code,omitempty"`
	PassportAddress      *string `json:"passport_address,omitempty"`
}

// Contract is a drilling or pump installation job.
type Contract struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Number         string         `gorm:"column:contract_number;not null" json:"contract_number"`
	ContractDate   time.Time      `gorm:"not null" json:"contract_date"`
	Type           ContractType   `gorm:"column:contract_type;not null" json:"contract_type"`
	ClientName     string         `gorm:"not null" json:"client_name"`
	Location       string         `gorm:"not null" json:"location"`
	ClientIdentity `gorm:"embedded"`

	EstimatedDepth    *float64 `json:"estimated_depth,omitempty"`
	PricePerMeterSoil *float64 `json:"price_per_meter_soil,omitempty"`
	PricePerMeterRock *float64 `json:"price_per_meter_rock,omitempty"`

	ActualDepthSoil *float64 `json:"actual_depth_soil,omitempty"`
	ActualDepthRock *float64 `json:"actual_depth_rock,omitempty"`
	PipeSteelUsed   *float64 `json:"pipe_steel_used,omitempty"`
	PipePlasticUsed *float64 `json:"pipe_plastic_used,omitempty"`

	MinPrice *float64       `json:"min_price,omitempty"`
	Status   ContractStatus `gorm:"not null" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Contract) TableName() string { return "contracts" }

// PipeUsage returns the recorded steel and plastic meters, zero when unset.
func (c Contract) PipeUsage() (steel, plastic float64) {
	return valueOrZero(c.PipeSteelUsed), valueOrZero(c.PipePlasticUsed)
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
