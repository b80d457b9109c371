package telemetry

import (
	"context"
	"time"

	"costwatch/internal/domain/cost"
	"costwatch/internal/domain/optimization"
)

// RealTimeMetrics is the ephemeral derived snapshot recomputed each
// refresh cycle. It is never persisted.
type RealTimeMetrics struct {
	CurrentSpendRate     float64             `json:"current_spend_rate"`
	ProjectedDailyCost   float64             `json:"projected_daily_cost"`
	ProjectedMonthlyCost float64             `json:"projected_monthly_cost"`
	CostVelocity         float64             `json:"cost_velocity"`
	ActiveResources      int64               `json:"active_resources"`
	CostByService        []cost.Breakdown    `json:"cost_by_service"`
	CostByRegion         []cost.Breakdown    `json:"cost_by_region"`
	CostByTeam           []cost.Breakdown    `json:"cost_by_team"`
	OpenAnomalies        int64               `json:"open_anomalies"`
	BudgetUtilization    []BudgetUtilization `json:"budget_utilization"`
	LastUpdated          time.Time           `json:"last_updated"`
}

// BudgetUtilization is one budget's spend against its limit.
type BudgetUtilization struct {
	BudgetID       string  `json:"budget_id"`
	BudgetName     string  `json:"budget_name"`
	Amount         float64 `json:"amount"`
	CurrentSpend   float64 `json:"current_spend"`
	PercentageUsed float64 `json:"percentage_used"`
}

// UsageAnalyticsReport summarizes usage and cost over an arbitrary
// window, with breakdowns, the daily trend and fresh recommendations.
type UsageAnalyticsReport struct {
	Window          cost.Window                    `json:"window"`
	TotalCost       float64                        `json:"total_cost"`
	TotalUsage      float64                        `json:"total_usage"`
	RecordCount     int64                          `json:"record_count"`
	SuccessRate     float64                        `json:"success_rate"`
	ByService       []cost.Breakdown               `json:"by_service"`
	ByRegion        []cost.Breakdown               `json:"by_region"`
	ByTeam          []cost.Breakdown               `json:"by_team"`
	DailyTrend      []cost.DailyPoint              `json:"daily_trend"`
	Recommendations []*optimization.Recommendation `json:"recommendations,omitempty"`
	GeneratedAt     time.Time                      `json:"generated_at"`
}

// Service exposes the read-side telemetry operations.
type Service interface {
	// RealTimeMetrics returns the last computed snapshot without blocking
	// on store I/O.
	RealTimeMetrics() *RealTimeMetrics

	// UsageAnalytics builds a usage report for the window, optionally
	// scoped to a workspace and/or team.
	UsageAnalytics(ctx context.Context, start, end time.Time, workspaceID, teamID string) (*UsageAnalyticsReport, error)
}
