package budget

import "time"

// Budget is a spending limit over a recurring period and scope.
type Budget struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PeriodType string    `json:"period_type"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Scope      string    `json:"scope"`
	ScopeID    string    `json:"scope_id,omitempty"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Alert belongs to exactly one Budget and is re-evaluated every cycle.
type Alert struct {
	ID                  string     `json:"id"`
	BudgetID            string     `json:"budget_id"`
	AlertType           string     `json:"alert_type"`
	ThresholdPercentage float64    `json:"threshold_percentage"`
	CurrentAmount       float64    `json:"current_amount"`
	PercentageUsed      float64    `json:"percentage_used"`
	Status              string     `json:"status"`
	TriggerCount        int        `json:"trigger_count"`
	LastTriggered       *time.Time `json:"last_triggered,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at,omitempty"`
}

// Period types
const (
	PeriodDaily     = "daily"
	PeriodWeekly    = "weekly"
	PeriodMonthly   = "monthly"
	PeriodQuarterly = "quarterly"
	PeriodYearly    = "yearly"
)

// Scopes
const (
	ScopeGlobal       = "global"
	ScopeWorkspace    = "workspace"
	ScopeTeam         = "team"
	ScopeUser         = "user"
	ScopeResourceType = "resource_type"
)

// Budget status
const (
	StatusActive  = "active"
	StatusPaused  = "paused"
	StatusExpired = "expired"
	StatusDeleted = "deleted"
)

// Alert types
const (
	AlertTypeThreshold = "threshold"
	AlertTypeForecast  = "forecast"
	AlertTypeAnomaly   = "anomaly"
	AlertTypeVariance  = "variance"
)

// Alert status. Snoozed is set externally and never advanced by the
// evaluation engine.
const (
	AlertActive    = "active"
	AlertTriggered = "triggered"
	AlertResolved  = "resolved"
	AlertSnoozed   = "snoozed"
)

// CreateSpec is the validated input for creating a budget with its
// initial alerts.
type CreateSpec struct {
	Name                 string    `json:"name" validate:"required,min=1,max=200"`
	PeriodType           string    `json:"period_type" validate:"required,oneof=daily weekly monthly quarterly yearly"`
	Amount               float64   `json:"amount" validate:"required,gt=0"`
	Currency             string    `json:"currency" validate:"omitempty,len=3"`
	Scope                string    `json:"scope" validate:"required,oneof=global workspace team user resource_type"`
	ScopeID              string    `json:"scope_id" validate:"required_unless=Scope global"`
	StartDate            time.Time `json:"start_date"`
	EndDate              time.Time `json:"end_date"`
	ThresholdPercentages []float64 `json:"threshold_percentages" validate:"omitempty,dive,gt=0,lte=200"`
}

// Filter narrows budget and alert listings.
type Filter struct {
	Scope   string
	ScopeID string
	Status  string
}
