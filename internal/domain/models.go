// Package domain defines the core data model shared across services.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents a registered user identity with an optional primary phone.
type Account struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DeviceEventType classifies a recorded device identity change.
type DeviceEventType string

const (
	DeviceEventNewSIM     DeviceEventType = "new_sim"
	DeviceEventIMEIChange DeviceEventType = "imei_change"
)

// DeviceEvent is an append-only record of an account's SIM/IMEI change.
// The most recent event's NewIMEI is the account's current device identity.
type DeviceEvent struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	AccountID uuid.UUID       `json:"account_id" db:"account_id"`
	EventType DeviceEventType `json:"event_type" db:"event_type"`
	OldIMEI   *string         `json:"old_imei,omitempty" db:"old_imei"`
	NewIMEI   string          `json:"new_imei" db:"new_imei"`
	Location  string          `json:"location" db:"location"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Transaction represents a payment attempt under analysis.
type Transaction struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	AccountID uuid.UUID       `json:"account_id" db:"account_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Channel   string          `json:"channel" db:"channel"`
	Status    string          `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Transaction channels and statuses observed by the pipeline.
const (
	ChannelNetbanking = "NETBANKING"
	ChannelOther      = "OTHER"

	TransactionStatusInitiated = "initiated"
)

// Prediction is the persisted output of one rule-engine run over a transaction.
type Prediction struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	TransactionID uuid.UUID    `json:"transaction_id" db:"transaction_id"`
	RiskScore     float64      `json:"risk_score" db:"risk_score"`
	RiskLevel     RiskLevel    `json:"risk_level" db:"risk_level"`
	Decision      Decision     `json:"decision" db:"decision"`
	Features      Metadata     `json:"features" db:"features"`
	Reasons       ReasonList   `json:"reasons" db:"reasons"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// RiskLevel is the qualitative severity of a verdict.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// AlertWorthy reports whether the level is severe enough to open an alert.
func (l RiskLevel) AlertWorthy() bool {
	return l == RiskLevelHigh || l == RiskLevelCritical
}

// Decision is the action the pipeline takes on a transaction.
type Decision string

const (
	DecisionAllow  Decision = "ALLOW"
	DecisionStepUp Decision = "STEP_UP"
	DecisionBlock  Decision = "BLOCK"
)

// AlertStatus tracks the review lifecycle of an alert.
type AlertStatus string

const (
	AlertStatusOpen     AlertStatus = "open"
	AlertStatusInReview AlertStatus = "in_review"
	AlertStatusClosed   AlertStatus = "closed"
)

// Alert is raised for HIGH/CRITICAL predictions and reviewed by admins.
type Alert struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	PredictionID uuid.UUID   `json:"prediction_id" db:"prediction_id"`
	Severity     RiskLevel   `json:"severity" db:"severity"`
	Status       AlertStatus `json:"status" db:"status"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// Metadata is a JSON-compatible map stored in a jsonb column.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, &m)
}

// ReasonList is an ordered list of human-readable rule-match reasons,
// stored as jsonb.
type ReasonList []string

func (r ReasonList) Value() (driver.Value, error) {
	if r == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(r)
}

func (r *ReasonList) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, r)
}
