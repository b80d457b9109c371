package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"costwatch/internal/domain/cost"
	"costwatch/internal/domain/forecast"
	apperrors "costwatch/internal/pkg/errors"
	"costwatch/internal/pkg/logger"
)

const (
	forecastHistoryDays = 90
	forecastValidity    = 24 * time.Hour
	trendSampleDays     = 7
)

// ForecastService implements forecast.Service with a trend-extrapolation
// model over the last 90 days of daily cost.
type ForecastService struct {
	costs       cost.Repository
	predictions forecast.Repository
	log         *logger.Logger
	now         Clock
}

// NewForecastService creates a new forecast service
func NewForecastService(costs cost.Repository, predictions forecast.Repository, log *logger.Logger, now Clock) *ForecastService {
	if now == nil {
		now = time.Now
	}
	return &ForecastService{
		costs:       costs,
		predictions: predictions,
		log:         log,
		now:         now,
	}
}

// Generate produces a prediction for the period, reusing the stored one
// while it is still valid. The algorithm parameter is a label recorded
// on the result; every label currently shares the same computation.
func (s *ForecastService) Generate(ctx context.Context, period, algorithm string) (*forecast.Prediction, error) {
	multiplier, ok := forecast.PeriodMultipliers[period]
	if !ok {
		return nil, apperrors.ValidationError(fmt.Sprintf("unknown forecast period: %s", period), nil)
	}
	if algorithm == "" {
		algorithm = forecast.AlgorithmEnsemble
	}

	if existing, err := s.predictions.Get(ctx, algorithm, period); err != nil {
		s.log.ErrorWithErr(err, "stored prediction lookup failed")
	} else if existing != nil && s.now().Before(existing.ValidUntil) {
		return existing, nil
	}

	return s.compute(ctx, period, algorithm, multiplier)
}

// Refresh recomputes the prediction even when a stored one is still
// valid, so scheduled regeneration never serves a row near the end of
// its validity window.
func (s *ForecastService) Refresh(ctx context.Context, period, algorithm string) (*forecast.Prediction, error) {
	multiplier, ok := forecast.PeriodMultipliers[period]
	if !ok {
		return nil, apperrors.ValidationError(fmt.Sprintf("unknown forecast period: %s", period), nil)
	}
	if algorithm == "" {
		algorithm = forecast.AlgorithmEnsemble
	}
	return s.compute(ctx, period, algorithm, multiplier)
}

func (s *ForecastService) compute(ctx context.Context, period, algorithm string, multiplier float64) (*forecast.Prediction, error) {
	now := s.now()
	points, err := s.costs.DailyTotals(ctx, cost.Filter{}, cost.LastDays(now, forecastHistoryDays))
	if err != nil {
		return nil, apperrors.StoreError("failed to load daily cost history", err)
	}
	if len(points) == 0 {
		return nil, apperrors.InsufficientData("no cost history to forecast from")
	}

	costs := make([]float64, len(points))
	for i, p := range points {
		costs[i] = p.Cost
	}
	avgCost := mean(costs)
	variance := populationVariance(costs, avgCost)

	confidence := 0.0
	if avgCost > 0 {
		confidence = clamp((1-variance/avgCost)*100, 0, 100)
	}

	predicted := avgCost * multiplier

	p := &forecast.Prediction{
		ID:                 uuid.New().String(),
		HorizonClass:       forecast.HorizonFor(period),
		Period:             period,
		Algorithm:          algorithm,
		PredictedCost:      predicted,
		LowerBound:         predicted * 0.8,
		UpperBound:         predicted * 1.2,
		IntervalConfidence: 0.80,
		ConfidenceScore:    confidence,
		Trend:              classifyTrend(costs),
		Scenarios: []forecast.Scenario{
			{Name: "conservative", PredictedCost: predicted * 0.9, Probability: 0.4},
			{Name: "expected", PredictedCost: predicted, Probability: 0.4},
			{Name: "aggressive", PredictedCost: predicted * 1.2, Probability: 0.2},
		},
		GeneratedAt: now,
		ValidUntil:  now.Add(forecastValidity),
	}
	p.ContributingFactors = contributingFactors(p.Trend, len(points))

	if err := s.predictions.Upsert(ctx, p); err != nil {
		return nil, apperrors.StoreError("failed to store prediction", err)
	}
	return p, nil
}

// classifyTrend compares the average of the most recent seven daily
// points against the earliest seven.
func classifyTrend(costs []float64) string {
	if len(costs) < 2*trendSampleDays {
		return forecast.TrendStable
	}
	first := mean(costs[:trendSampleDays])
	last := mean(costs[len(costs)-trendSampleDays:])
	switch {
	case last > first*1.1:
		return forecast.TrendIncreasing
	case last < first*0.9:
		return forecast.TrendDecreasing
	default:
		return forecast.TrendStable
	}
}

func contributingFactors(trend string, sampleDays int) []string {
	factors := []string{fmt.Sprintf("based on %d days of daily cost history", sampleDays)}
	switch trend {
	case forecast.TrendIncreasing:
		factors = append(factors, "recent spend is trending upward against the earlier baseline")
	case forecast.TrendDecreasing:
		factors = append(factors, "recent spend is trending downward against the earlier baseline")
	default:
		factors = append(factors, "spend has been stable over the sample window")
	}
	return factors
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
