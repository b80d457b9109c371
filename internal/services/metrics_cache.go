package services

import (
	"context"
	"sync/atomic"
	"time"

	"costwatch/internal/domain/anomaly"
	"costwatch/internal/domain/budget"
	"costwatch/internal/domain/cost"
	"costwatch/internal/domain/telemetry"
	"costwatch/internal/pkg/logger"
	"costwatch/internal/pkg/metrics"
)

// Clock supplies the current time so tests can step it manually.
type Clock func() time.Time

// MetricsCache recomputes the real-time cost snapshot on a freshness
// interval and serves it lock-free to concurrent readers.
type MetricsCache struct {
	costs     cost.Repository
	anomalies anomaly.Repository
	budgets   budget.Repository
	log       *logger.Logger
	interval  time.Duration
	now       Clock

	snapshot atomic.Pointer[telemetry.RealTimeMetrics]
}

// NewMetricsCache creates a metrics cache with the given freshness
// interval.
func NewMetricsCache(costs cost.Repository, anomalies anomaly.Repository, budgets budget.Repository, log *logger.Logger, interval time.Duration, now Clock) *MetricsCache {
	if now == nil {
		now = time.Now
	}
	return &MetricsCache{
		costs:     costs,
		anomalies: anomalies,
		budgets:   budgets,
		log:       log,
		interval:  interval,
		now:       now,
	}
}

// Snapshot returns the last computed snapshot without touching the
// store. Nil until the first successful Refresh.
func (c *MetricsCache) Snapshot() *telemetry.RealTimeMetrics {
	return c.snapshot.Load()
}

// Refresh recomputes the snapshot if the cached one is older than the
// freshness interval, otherwise it is a no-op. Individual sub-query
// failures are logged and leave the corresponding field zero for the
// cycle rather than failing the refresh.
func (c *MetricsCache) Refresh(ctx context.Context) error {
	now := c.now()
	if prev := c.snapshot.Load(); prev != nil {
		age := now.Sub(prev.LastUpdated)
		metrics.SetSnapshotAge(age)
		if age <= c.interval {
			metrics.RecordRefresh("skipped")
			return nil
		}
	}

	snap := c.compute(ctx, now)
	c.snapshot.Store(snap)
	metrics.SetSnapshotAge(0)
	metrics.RecordRefresh("computed")
	return nil
}

func (c *MetricsCache) compute(ctx context.Context, now time.Time) *telemetry.RealTimeMetrics {
	snap := &telemetry.RealTimeMetrics{LastUpdated: now}

	lastHour := cost.Window{Start: now.Add(-time.Hour), End: now}
	priorHour := cost.Window{Start: now.Add(-2 * time.Hour), End: now.Add(-time.Hour)}
	last24h := cost.Window{Start: now.Add(-24 * time.Hour), End: now}

	lastHourSpend, err := c.costs.SumCost(ctx, cost.Filter{}, lastHour)
	if err != nil {
		c.logSubQuery("last_hour_spend", err)
	}
	priorHourSpend, err := c.costs.SumCost(ctx, cost.Filter{}, priorHour)
	if err != nil {
		c.logSubQuery("prior_hour_spend", err)
	}

	snap.CurrentSpendRate = lastHourSpend
	snap.CostVelocity = lastHourSpend - priorHourSpend
	snap.ProjectedDailyCost = lastHourSpend * 24
	snap.ProjectedMonthlyCost = snap.ProjectedDailyCost * 30

	if n, err := c.costs.CountDistinctResources(ctx, cost.Filter{}, last24h); err != nil {
		c.logSubQuery("active_resources", err)
	} else {
		snap.ActiveResources = n
	}

	for _, group := range []struct {
		dimension string
		dest      *[]cost.Breakdown
	}{
		{cost.GroupByService, &snap.CostByService},
		{cost.GroupByRegion, &snap.CostByRegion},
		{cost.GroupByTeam, &snap.CostByTeam},
	} {
		rows, err := c.costs.BreakdownBy(ctx, group.dimension, cost.Filter{}, last24h)
		if err != nil {
			c.logSubQuery("breakdown_"+group.dimension, err)
			continue
		}
		*group.dest = rows
	}

	if n, err := c.anomalies.CountOpenSince(ctx, now.Add(-24*time.Hour)); err != nil {
		c.logSubQuery("open_anomalies", err)
	} else {
		snap.OpenAnomalies = n
	}

	snap.BudgetUtilization = c.budgetUtilization(ctx, now)

	return snap
}

func (c *MetricsCache) budgetUtilization(ctx context.Context, now time.Time) []telemetry.BudgetUtilization {
	budgets, err := c.budgets.List(ctx, budget.Filter{Status: budget.StatusActive})
	if err != nil {
		c.logSubQuery("budget_list", err)
		return nil
	}

	var out []telemetry.BudgetUtilization
	for _, b := range budgets {
		if b.Amount <= 0 {
			continue
		}
		spend, err := c.costs.SumCost(ctx, scopeFilter(b), budgetWindow(b, now))
		if err != nil {
			c.logSubQuery("budget_spend", err)
			continue
		}
		out = append(out, telemetry.BudgetUtilization{
			BudgetID:       b.ID,
			BudgetName:     b.Name,
			Amount:         b.Amount,
			CurrentSpend:   spend,
			PercentageUsed: spend / b.Amount * 100,
		})
	}
	return out
}

func (c *MetricsCache) logSubQuery(name string, err error) {
	c.log.WithFields(map[string]interface{}{"query": name}).ErrorWithErr(err, "metrics snapshot sub-query failed")
}
