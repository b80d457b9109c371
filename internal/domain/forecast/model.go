package forecast

import "time"

// Prediction is an immutable forecast snapshot keyed by (algorithm,
// period); each generation replaces the previous row for that key.
type Prediction struct {
	ID                  string     `json:"id"`
	HorizonClass        string     `json:"horizon_class"`
	Period              string     `json:"period"`
	Algorithm           string     `json:"algorithm"`
	PredictedCost       float64    `json:"predicted_cost"`
	LowerBound          float64    `json:"lower_bound"`
	UpperBound          float64    `json:"upper_bound"`
	IntervalConfidence  float64    `json:"interval_confidence"`
	ConfidenceScore     float64    `json:"confidence_score"`
	Trend               string     `json:"trend"`
	ContributingFactors []string   `json:"contributing_factors,omitempty"`
	Scenarios           []Scenario `json:"scenarios,omitempty"`
	GeneratedAt         time.Time  `json:"generated_at"`
	ValidUntil          time.Time  `json:"valid_until"`
}

// Scenario is one weighted alternative outcome shown alongside the
// point forecast.
type Scenario struct {
	Name          string  `json:"name"`
	PredictedCost float64 `json:"predicted_cost"`
	Probability   float64 `json:"probability"`
}

// Horizon classes
const (
	HorizonShortTerm  = "short_term"
	HorizonMediumTerm = "medium_term"
	HorizonLongTerm   = "long_term"
)

// Trend classifications
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Algorithm labels. All labels currently share one trend-extrapolation
// computation; the label records which caller asked (ensemble fallback).
const (
	AlgorithmLinear   = "linear"
	AlgorithmSeasonal = "seasonal"
	AlgorithmEnsemble = "ensemble"
)

// Periods accepted by Generate, with their day multipliers.
var PeriodMultipliers = map[string]float64{
	"daily":     1,
	"weekly":    7,
	"monthly":   30,
	"quarterly": 90,
	"yearly":    365,
}

// HorizonFor maps a forecast period to its horizon class.
func HorizonFor(period string) string {
	switch period {
	case "daily", "weekly":
		return HorizonShortTerm
	case "monthly":
		return HorizonMediumTerm
	default:
		return HorizonLongTerm
	}
}
