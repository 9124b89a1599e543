package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertFeedItem is an alert joined with its prediction and account, shaped
// for the recent-alerts feed.
type AlertFeedItem struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Severity  RiskLevel  `json:"severity" db:"severity"`
	RiskScore float64    `json:"risk_score" db:"risk_score"`
	Reasons   ReasonList `json:"reasons" db:"reasons"`
	Phone     *string    `json:"phone,omitempty" db:"phone"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Incident is an alert joined across prediction, transaction, and account,
// shaped for the admin incident list.
type Incident struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	AccountID   uuid.UUID   `json:"account_id" db:"account_id"`
	AccountName string      `json:"account_name" db:"account_name"`
	Severity    RiskLevel   `json:"severity" db:"severity"`
	Status      AlertStatus `json:"status" db:"status"`
	Decision    Decision    `json:"decision" db:"decision"`
	RiskScore   float64     `json:"risk_score" db:"risk_score"`
	OccurredAt  time.Time   `json:"occurred_at" db:"occurred_at"`
}

// SystemStats backs the dashboard counters.
type SystemStats struct {
	TotalAccounts       int `json:"total_accounts" db:"total_accounts"`
	ThreatsBlockedToday int `json:"threats_blocked_today" db:"threats_blocked_today"`
	ActiveThreats       int `json:"active_threats" db:"active_threats"`
}
