package cost

import (
	"context"
	"time"
)

// Repository defines the aggregate read surface the monitoring engine
// needs from the cost record store. Inserts are owned by the ingestion
// pipeline and are exposed here only for tests and backfills.
type Repository interface {
	// Create inserts a cost record.
	Create(ctx context.Context, r *Record) error

	// SumCost returns the total cost matching filter within the window.
	SumCost(ctx context.Context, filter Filter, w Window) (float64, error)

	// SumUsage returns the total usage amount matching filter within the window.
	SumUsage(ctx context.Context, filter Filter, w Window) (float64, error)

	// CountRecords returns the number of records matching filter within the window.
	CountRecords(ctx context.Context, filter Filter, w Window) (int64, error)

	// CountDistinctResources returns how many distinct resources produced
	// cost within the window.
	CountDistinctResources(ctx context.Context, filter Filter, w Window) (int64, error)

	// BreakdownBy groups cost by the given dimension (service/region/team)
	// within the window, highest cost first.
	BreakdownBy(ctx context.Context, dimension string, filter Filter, w Window) ([]Breakdown, error)

	// DailyTotals returns one summed point per day with cost in the window,
	// in ascending date order.
	DailyTotals(ctx context.Context, filter Filter, w Window) ([]DailyPoint, error)

	// GroupedDailyTotals returns the per-day series for every
	// (resource_type, region) group seen in the window.
	GroupedDailyTotals(ctx context.Context, w Window) ([]GroupSeries, error)

	// HourlyAverages returns the average cost per hour of day across the window.
	HourlyAverages(ctx context.Context, filter Filter, w Window) ([]HourlyPoint, error)

	// ResourceUsageStats returns per-resource average usage and total cost
	// over the window.
	ResourceUsageStats(ctx context.Context, filter Filter, w Window) ([]ResourceUsage, error)

	// ModelExecutionStats returns per-model execution counts, costs and
	// success rates over the window.
	ModelExecutionStats(ctx context.Context, filter Filter, w Window) ([]ModelStats, error)

	// SuccessRate returns the fraction of successful records in the window.
	SuccessRate(ctx context.Context, filter Filter, w Window) (float64, error)
}

// LastDays is a convenience for the common "last N days ending now" window.
func LastDays(now time.Time, days int) Window {
	return Window{Start: now.AddDate(0, 0, -days), End: now}
}
