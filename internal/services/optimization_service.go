package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"costwatch/internal/domain/cost"
	"costwatch/internal/domain/optimization"
	apperrors "costwatch/internal/pkg/errors"
	"costwatch/internal/pkg/logger"
)

const (
	utilizationWindowDays = 7
	patternWindowDays     = 30

	underutilizedThreshold = 0.5
	rightsizingSavingsRate = 0.4
	highPriorityWeeklyCost = 100.0

	offPeakHourMinimum   = 8
	offPeakCostFraction  = 0.3
	schedulingSavingRate = 0.25

	minModelExecutions   = 10
	successRateTolerance = 0.9
)

// OptimizationService implements optimization.Service by running three
// independent analyses (utilization, scheduling, model efficiency) and
// concatenating their output into one ranked list.
type OptimizationService struct {
	costs           cost.Repository
	recommendations optimization.Repository
	log             *logger.Logger
	now             Clock
}

// NewOptimizationService creates a new optimization service
func NewOptimizationService(costs cost.Repository, recommendations optimization.Repository, log *logger.Logger, now Clock) *OptimizationService {
	if now == nil {
		now = time.Now
	}
	return &OptimizationService{
		costs:           costs,
		recommendations: recommendations,
		log:             log,
		now:             now,
	}
}

// Generate synthesizes recommendations scoped to the optional workspace
// and team, persists each one and returns them ranked by estimated
// savings. A failed analysis is logged and skipped, the others still
// run.
func (s *OptimizationService) Generate(ctx context.Context, workspaceID, teamID string) ([]*optimization.Recommendation, error) {
	now := s.now()
	filter := cost.Filter{WorkspaceID: workspaceID, TeamID: teamID}

	var out []*optimization.Recommendation

	recs, err := s.analyzeUtilization(ctx, filter, now)
	if err != nil {
		s.log.ErrorWithErr(err, "utilization analysis failed")
	} else {
		out = append(out, recs...)
	}

	recs, err = s.analyzeScheduling(ctx, filter, now)
	if err != nil {
		s.log.ErrorWithErr(err, "scheduling analysis failed")
	} else {
		out = append(out, recs...)
	}

	recs, err = s.analyzeModelEfficiency(ctx, filter, now)
	if err != nil {
		s.log.ErrorWithErr(err, "model efficiency analysis failed")
	} else {
		out = append(out, recs...)
	}

	for _, rec := range out {
		if err := s.recommendations.Upsert(ctx, rec); err != nil {
			s.log.WithFields(map[string]interface{}{"recommendation_id": rec.ID}).
				ErrorWithErr(err, "failed to persist recommendation")
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].EstimatedSavings > out[j].EstimatedSavings
	})
	return out, nil
}

// analyzeUtilization flags resources whose 7-day average usage is below
// 50% for rightsizing.
func (s *OptimizationService) analyzeUtilization(ctx context.Context, filter cost.Filter, now time.Time) ([]*optimization.Recommendation, error) {
	stats, err := s.costs.ResourceUsageStats(ctx, filter, cost.LastDays(now, utilizationWindowDays))
	if err != nil {
		return nil, apperrors.StoreError("failed to load resource usage stats", err)
	}

	var out []*optimization.Recommendation
	for _, u := range stats {
		if u.AvgUsage >= underutilizedThreshold || u.TotalCost <= 0 {
			continue
		}

		priority := optimization.PriorityMedium
		if u.TotalCost > highPriorityWeeklyCost {
			priority = optimization.PriorityHigh
		}

		out = append(out, &optimization.Recommendation{
			ID:       "rightsizing-" + u.ResourceID,
			Type:     optimization.TypeRightsizing,
			Category: optimization.CategoryCompute,
			Title:    fmt.Sprintf("Rightsize underutilized resource %s", u.ResourceID),
			Description: fmt.Sprintf("Resource %s averaged %.0f%% utilization over the last %d days while costing %.2f. A smaller size should serve the same workload.",
				u.ResourceID, u.AvgUsage*100, utilizationWindowDays, u.TotalCost),
			EstimatedSavings:  u.TotalCost * rightsizingSavingsRate,
			SavingsPercent:    rightsizingSavingsRate * 100,
			ConfidenceScore:   math.Min((1-u.AvgUsage)*100, 95),
			Priority:          priority,
			Impact:            priority,
			Effort:            optimization.LevelLow,
			ImplementationSteps: []string{
				"Confirm utilization with the resource owner",
				"Select the next smaller instance size",
				"Resize during the next maintenance window and monitor",
			},
			AffectedResources: []string{u.ResourceID},
			Status:            optimization.StatusPending,
			CreatedAt:         now,
		})
	}
	return out, nil
}

// analyzeScheduling looks for a large off-peak trough in the hour-of-day
// cost profile and recommends scheduled scaling when one exists.
func (s *OptimizationService) analyzeScheduling(ctx context.Context, filter cost.Filter, now time.Time) ([]*optimization.Recommendation, error) {
	hours, err := s.costs.HourlyAverages(ctx, filter, cost.LastDays(now, patternWindowDays))
	if err != nil {
		return nil, apperrors.StoreError("failed to load hourly cost profile", err)
	}
	if len(hours) == 0 {
		return nil, nil
	}

	var total float64
	for _, h := range hours {
		total += h.AvgCost
	}
	overallAvg := total / float64(len(hours))
	if overallAvg <= 0 {
		return nil, nil
	}

	var offPeak []int
	for _, h := range hours {
		if h.AvgCost < overallAvg*offPeakCostFraction {
			offPeak = append(offPeak, h.Hour)
		}
	}
	if len(offPeak) < offPeakHourMinimum {
		return nil, nil
	}

	return []*optimization.Recommendation{{
		ID:       "scheduled-scaling",
		Type:     optimization.TypeScheduledScaling,
		Category: optimization.CategoryScheduling,
		Title:    "Scale down during off-peak hours",
		Description: fmt.Sprintf("%d hours of the day average under %.0f%% of the overall hourly cost. Scheduled scaling during those hours cuts idle spend.",
			len(offPeak), offPeakCostFraction*100),
		EstimatedSavings:  overallAvg * 24 * 30 * schedulingSavingRate,
		SavingsPercent:    schedulingSavingRate * 100,
		ConfidenceScore:   80,
		Priority:          optimization.PriorityMedium,
		Impact:            optimization.LevelMedium,
		Effort:            optimization.LevelLow,
		ImplementationSteps: []string{
			"Define a scale-down schedule covering the off-peak hours",
			"Apply the schedule to non-critical workloads first",
			"Review the cost profile after two weeks",
		},
		AutoImplementable: true,
		Status:            optimization.StatusPending,
		CreatedAt:         now,
	}}, nil
}

// analyzeModelEfficiency compares the most expensive model against the
// most cost-efficient one and recommends migration when the expensive
// model is not buying reliability.
func (s *OptimizationService) analyzeModelEfficiency(ctx context.Context, filter cost.Filter, now time.Time) ([]*optimization.Recommendation, error) {
	stats, err := s.costs.ModelExecutionStats(ctx, filter, cost.LastDays(now, patternWindowDays))
	if err != nil {
		return nil, apperrors.StoreError("failed to load model execution stats", err)
	}

	var models []cost.ModelStats
	for _, m := range stats {
		if m.ExecutionCount > minModelExecutions && m.AvgCost > 0 {
			models = append(models, m)
		}
	}
	if len(models) < 2 {
		return nil, nil
	}

	efficient := models[0]
	expensive := models[0]
	for _, m := range models[1:] {
		if m.SuccessRate/m.AvgCost > efficient.SuccessRate/efficient.AvgCost {
			efficient = m
		}
		if m.AvgCost > expensive.AvgCost {
			expensive = m
		}
	}
	if expensive.ModelName == efficient.ModelName {
		return nil, nil
	}
	if expensive.SuccessRate >= efficient.SuccessRate*successRateTolerance {
		return nil, nil
	}

	savings := (expensive.AvgCost - efficient.AvgCost) * float64(expensive.ExecutionCount)
	if savings <= 0 {
		return nil, nil
	}

	priority := optimization.PriorityMedium
	if savings > highPriorityWeeklyCost {
		priority = optimization.PriorityHigh
	}
	savingsPercent := 0.0
	if expensive.TotalCost > 0 {
		savingsPercent = savings / expensive.TotalCost * 100
	}

	return []*optimization.Recommendation{{
		ID:       fmt.Sprintf("model-migration-%s-%s", expensive.ModelName, efficient.ModelName),
		Type:     optimization.TypeModelMigration,
		Category: optimization.CategoryModel,
		Title:    fmt.Sprintf("Migrate workloads from %s to %s", expensive.ModelName, efficient.ModelName),
		Description: fmt.Sprintf("%s costs %.4f per execution with a %.0f%% success rate; %s costs %.4f at %.0f%%. The cheaper model is also the more reliable one.",
			expensive.ModelName, expensive.AvgCost, expensive.SuccessRate*100,
			efficient.ModelName, efficient.AvgCost, efficient.SuccessRate*100),
		EstimatedSavings: savings,
		SavingsPercent:   savingsPercent,
		ConfidenceScore:  75,
		Priority:         priority,
		Impact:           optimization.LevelMedium,
		Effort:           optimization.LevelMedium,
		ImplementationSteps: []string{
			fmt.Sprintf("Benchmark representative workloads on %s", efficient.ModelName),
			"Migrate a small share of traffic and compare quality",
			"Shift the remaining traffic once parity is confirmed",
		},
		AffectedResources: []string{expensive.ModelName},
		Status:            optimization.StatusPending,
		CreatedAt:         now,
	}}, nil
}
