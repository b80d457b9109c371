package services

import (
	"context"
	"time"

	"costwatch/internal/domain/cost"
	"costwatch/internal/domain/optimization"
	"costwatch/internal/domain/telemetry"
	apperrors "costwatch/internal/pkg/errors"
	"costwatch/internal/pkg/logger"
)

// AnalyticsService implements telemetry.Service: the real-time snapshot
// comes from the metrics cache, usage reports are built on demand.
type AnalyticsService struct {
	cache   *MetricsCache
	costs   cost.Repository
	advisor optimization.Service
	log     *logger.Logger
	now     Clock
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(cache *MetricsCache, costs cost.Repository, advisor optimization.Service, log *logger.Logger, now Clock) *AnalyticsService {
	if now == nil {
		now = time.Now
	}
	return &AnalyticsService{
		cache:   cache,
		costs:   costs,
		advisor: advisor,
		log:     log,
		now:     now,
	}
}

// RealTimeMetrics returns the last computed snapshot without blocking
// on store I/O. Nil until the first refresh has run.
func (s *AnalyticsService) RealTimeMetrics() *telemetry.RealTimeMetrics {
	return s.cache.Snapshot()
}

// UsageAnalytics builds a usage report for the window, optionally
// scoped to a workspace and/or team. Breakdown failures degrade the
// report instead of failing it; only the headline totals are required.
func (s *AnalyticsService) UsageAnalytics(ctx context.Context, start, end time.Time, workspaceID, teamID string) (*telemetry.UsageAnalyticsReport, error) {
	if !end.After(start) {
		return nil, apperrors.ValidationError("end must be after start", nil)
	}

	filter := cost.Filter{WorkspaceID: workspaceID, TeamID: teamID}
	w := cost.Window{Start: start, End: end}
	report := &telemetry.UsageAnalyticsReport{Window: w, GeneratedAt: s.now()}

	var err error
	if report.TotalCost, err = s.costs.SumCost(ctx, filter, w); err != nil {
		return nil, apperrors.StoreError("failed to sum cost", err)
	}
	if report.TotalUsage, err = s.costs.SumUsage(ctx, filter, w); err != nil {
		return nil, apperrors.StoreError("failed to sum usage", err)
	}
	if report.RecordCount, err = s.costs.CountRecords(ctx, filter, w); err != nil {
		return nil, apperrors.StoreError("failed to count records", err)
	}
	if report.SuccessRate, err = s.costs.SuccessRate(ctx, filter, w); err != nil {
		return nil, apperrors.StoreError("failed to compute success rate", err)
	}

	for _, group := range []struct {
		dimension string
		dest      *[]cost.Breakdown
	}{
		{cost.GroupByService, &report.ByService},
		{cost.GroupByRegion, &report.ByRegion},
		{cost.GroupByTeam, &report.ByTeam},
	} {
		rows, err := s.costs.BreakdownBy(ctx, group.dimension, filter, w)
		if err != nil {
			s.log.WithFields(map[string]interface{}{"dimension": group.dimension}).
				ErrorWithErr(err, "report breakdown failed")
			continue
		}
		*group.dest = rows
	}

	if report.DailyTrend, err = s.costs.DailyTotals(ctx, filter, w); err != nil {
		s.log.ErrorWithErr(err, "report daily trend failed")
	}

	recs, err := s.advisor.Generate(ctx, workspaceID, teamID)
	if err != nil {
		s.log.ErrorWithErr(err, "report recommendations failed")
	} else {
		report.Recommendations = recs
	}

	return report, nil
}
