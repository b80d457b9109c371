package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"costwatch/internal/domain/anomaly"
	"costwatch/internal/domain/cost"
	apperrors "costwatch/internal/pkg/errors"
	"costwatch/internal/pkg/logger"
	"costwatch/internal/pkg/metrics"
)

const (
	detectionWindowDays = 30
	recentDays          = 3
	minDailyPoints      = 7

	anomalyThreshold  = 2.0
	highThreshold     = 2.5
	criticalThreshold = 3.0

	algorithmZScore = "zscore"
)

// AnomalyDetector applies z-score outlier detection to grouped daily
// cost series and persists discovered anomalies.
type AnomalyDetector struct {
	costs     cost.Repository
	anomalies anomaly.Repository
	log       *logger.Logger
	now       Clock

	// SkipOpenDuplicates suppresses a new anomaly for a group that
	// already has an open one, so an ongoing incident produces a single
	// row instead of one per detection cycle.
	skipOpenDuplicates bool
}

// NewAnomalyDetector creates a new anomaly detector
func NewAnomalyDetector(costs cost.Repository, anomalies anomaly.Repository, log *logger.Logger, skipOpenDuplicates bool, now Clock) *AnomalyDetector {
	if now == nil {
		now = time.Now
	}
	return &AnomalyDetector{
		costs:              costs,
		anomalies:          anomalies,
		log:                log,
		now:                now,
		skipOpenDuplicates: skipOpenDuplicates,
	}
}

// Detect evaluates the last 30 days of cost grouped by
// (resource_type, region) and persists one anomaly per group whose
// recent average deviates more than two standard deviations from its
// history. Groups with insufficient or degenerate history are skipped,
// not errors.
func (d *AnomalyDetector) Detect(ctx context.Context) ([]*anomaly.Anomaly, error) {
	now := d.now()
	groups, err := d.costs.GroupedDailyTotals(ctx, cost.LastDays(now, detectionWindowDays))
	if err != nil {
		return nil, apperrors.StoreError("failed to load grouped cost series", err)
	}

	var found []*anomaly.Anomaly
	for _, g := range groups {
		a := d.evaluateGroup(g, now)
		if a == nil {
			continue
		}

		if d.skipOpenDuplicates {
			open, err := d.anomalies.HasOpenForGroup(ctx, a.ResourceType, a.Region)
			if err != nil {
				d.log.WithFields(map[string]interface{}{
					"resource_type": a.ResourceType,
					"region":        a.Region,
				}).ErrorWithErr(err, "open anomaly lookup failed")
				continue
			}
			if open {
				continue
			}
		}

		if err := d.anomalies.Create(ctx, a); err != nil {
			d.log.WithFields(map[string]interface{}{
				"resource_type": a.ResourceType,
				"region":        a.Region,
			}).ErrorWithErr(err, "failed to persist anomaly")
			continue
		}
		metrics.RecordAnomaly(a.Severity, a.AnomalyType)
		found = append(found, a)
	}
	return found, nil
}

// evaluateGroup runs the z-score test for one group's daily series.
// Returns nil when no anomaly is raised.
func (d *AnomalyDetector) evaluateGroup(g cost.GroupSeries, now time.Time) *anomaly.Anomaly {
	if len(g.Points) < minDailyPoints {
		return nil
	}

	cutoff := now.AddDate(0, 0, -recentDays)
	var recent, historical []float64
	for _, p := range g.Points {
		if p.Date.After(cutoff) {
			recent = append(recent, p.Cost)
		} else {
			historical = append(historical, p.Cost)
		}
	}
	if len(recent) == 0 || len(historical) == 0 {
		return nil
	}

	recentAvg := mean(recent)
	historicalAvg := mean(historical)
	stdDev := math.Sqrt(populationVariance(historical, historicalAvg))
	if stdDev == 0 {
		// Flat history gives no scale to measure deviation against.
		return nil
	}

	zScore := math.Abs(recentAvg-historicalAvg) / stdDev
	if zScore <= anomalyThreshold {
		return nil
	}

	severity := anomaly.SeverityMedium
	switch {
	case zScore > criticalThreshold:
		severity = anomaly.SeverityCritical
	case zScore > highThreshold:
		severity = anomaly.SeverityHigh
	}

	anomalyType := anomaly.TypeUnusualPattern
	if recentAvg > historicalAvg {
		anomalyType = anomaly.TypeSpike
	}

	var deviationPct float64
	if historicalAvg != 0 {
		deviationPct = (recentAvg - historicalAvg) / historicalAvg * 100
	}

	return &anomaly.Anomaly{
		ID:              uuid.New().String(),
		Algorithm:       algorithmZScore,
		AnomalyType:     anomalyType,
		Severity:        severity,
		ResourceType:    g.ResourceType,
		Region:          g.Region,
		BaselineCost:    historicalAvg,
		ActualCost:      recentAvg,
		DeviationPct:    deviationPct,
		ConfidenceScore: math.Min(zScore/criticalThreshold*100, 100),
		RootCause: fmt.Sprintf("recent 3-day average cost %.2f deviates %.1f standard deviations from the 30-day baseline %.2f",
			recentAvg, zScore, historicalAvg),
		SuggestedActions: suggestedActions(anomalyType, g.ResourceType),
		Status:           anomaly.StatusOpen,
		DetectedAt:       now,
	}
}

func suggestedActions(anomalyType, resourceType string) []string {
	actions := []string{
		"Review recent deployments and configuration changes",
		"Check for unexpected traffic or workload growth",
		"Verify billing records for the affected region",
	}
	if anomalyType == anomaly.TypeSpike {
		actions = append(actions, "Inspect the highest-cost resources for runaway usage")
	}
	if resourceType == "compute" {
		actions = append(actions, "Check for orphaned or oversized compute instances")
	}
	return actions
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func populationVariance(xs []float64, avg float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		d := x - avg
		sum += d * d
	}
	return sum / float64(len(xs))
}
