package anomaly

import "time"

// Anomaly is a statistically detected cost deviation for one
// (resource_type, region) group.
type Anomaly struct {
	ID               string    `json:"id"`
	Algorithm        string    `json:"algorithm"`
	AnomalyType      string    `json:"anomaly_type"`
	Severity         string    `json:"severity"`
	ResourceType     string    `json:"resource_type"`
	Region           string    `json:"region,omitempty"`
	BaselineCost     float64   `json:"baseline_cost"`
	ActualCost       float64   `json:"actual_cost"`
	DeviationPct     float64   `json:"deviation_pct"`
	ConfidenceScore  float64   `json:"confidence_score"`
	RootCause        string    `json:"root_cause,omitempty"`
	SuggestedActions []string  `json:"suggested_actions,omitempty"`
	Status           string    `json:"status"`
	DetectedAt       time.Time `json:"detected_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// Anomaly types
const (
	TypeSpike          = "spike"
	TypeUnusualPattern = "unusual_pattern"
	TypeUnexpectedCost = "unexpected_cost"
)

// Severity levels
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Status. Resolution happens in an external investigation workflow.
const (
	StatusOpen          = "open"
	StatusInvestigating = "investigating"
	StatusResolved      = "resolved"
	StatusFalsePositive = "false_positive"
)

// Filter narrows anomaly listings.
type Filter struct {
	Severity     string
	Status       string
	ResourceType string
}
