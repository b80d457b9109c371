package cost

import "time"

// Record is a single immutable cost record written by the ingestion
// pipeline. The monitoring engine only ever reads these.
type Record struct {
	ID           string            `json:"id"`
	ResourceID   string            `json:"resource_id"`
	ResourceType string            `json:"resource_type"`
	Provider     string            `json:"provider"`
	Region       string            `json:"region,omitempty"`
	ServiceName  string            `json:"service_name"`
	ModelName    string            `json:"model_name,omitempty"`
	Cost         float64           `json:"cost"`
	UsageAmount  float64           `json:"usage_amount"`
	UsageUnit    string            `json:"usage_unit,omitempty"`
	Success      bool              `json:"success"`
	PeriodStart  time.Time         `json:"period_start"`
	PeriodEnd    time.Time         `json:"period_end"`
	WorkspaceID  string            `json:"workspace_id,omitempty"`
	TeamID       string            `json:"team_id,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Filter narrows aggregate cost queries. Zero fields are ignored.
type Filter struct {
	ResourceID   string
	ResourceType string
	Provider     string
	Region       string
	ServiceName  string
	WorkspaceID  string
	TeamID       string
}

// Window is a half-open [Start, End) time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Breakdown is one row of a group-by cost aggregate.
type Breakdown struct {
	Key  string  `json:"key"`
	Cost float64 `json:"cost"`
}

// DailyPoint is one day's summed cost.
type DailyPoint struct {
	Date time.Time `json:"date"`
	Cost float64   `json:"cost"`
}

// HourlyPoint is the average cost observed for one hour of day (0-23)
// across the query window.
type HourlyPoint struct {
	Hour    int     `json:"hour"`
	AvgCost float64 `json:"avg_cost"`
}

// GroupSeries is the daily cost series for one (resource_type, region)
// group, the unit the anomaly detector works on.
type GroupSeries struct {
	ResourceType string       `json:"resource_type"`
	Region       string       `json:"region"`
	Points       []DailyPoint `json:"points"`
}

// ResourceUsage aggregates a single resource's utilization and spend
// over a window.
type ResourceUsage struct {
	ResourceID   string  `json:"resource_id"`
	ResourceType string  `json:"resource_type"`
	AvgUsage     float64 `json:"avg_usage"`
	TotalCost    float64 `json:"total_cost"`
}

// ModelStats aggregates execution count, cost and success rate per model.
type ModelStats struct {
	ModelName      string  `json:"model_name"`
	ExecutionCount int64   `json:"execution_count"`
	AvgCost        float64 `json:"avg_cost"`
	TotalCost      float64 `json:"total_cost"`
	SuccessRate    float64 `json:"success_rate"`
}

// Group-by dimensions accepted by Repository.BreakdownBy.
const (
	GroupByService = "service"
	GroupByRegion  = "region"
	GroupByTeam    = "team"
)
