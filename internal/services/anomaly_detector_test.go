package services

import (
	"context"
	"testing"
	"time"

	"costwatch/internal/domain/anomaly"
	"costwatch/internal/domain/cost"
	"costwatch/internal/pkg/logger"
	"costwatch/internal/testutil"
)

var detectorNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func addDailyCost(repo *testutil.MockCostRepository, resourceType, region string, date time.Time, amount float64) {
	repo.Add(&cost.Record{
		ResourceID:   resourceType + "-1",
		ResourceType: resourceType,
		Provider:     "aws",
		Region:       region,
		ServiceName:  "svc",
		Cost:         amount,
		PeriodStart:  date,
		PeriodEnd:    date.Add(24 * time.Hour),
	})
}

// seedSeries writes an alternating 90/110 baseline over 24 days (mean
// 100, population stddev 10) plus three recent days at recentCost, so
// zScore == |recentCost-100|/10.
func seedSeries(repo *testutil.MockCostRepository, resourceType, region string, recentCost float64) {
	for i := 0; i < 24; i++ {
		day := time.Date(2025, 6, 3+i, 6, 0, 0, 0, time.UTC)
		amount := 90.0
		if i%2 == 1 {
			amount = 110.0
		}
		addDailyCost(repo, resourceType, region, day, amount)
	}
	for _, d := range []int{28, 29, 30} {
		addDailyCost(repo, resourceType, region, time.Date(2025, 6, d, 6, 0, 0, 0, time.UTC), recentCost)
	}
}

func TestAnomalyDetector_SeverityBoundaries(t *testing.T) {
	tests := []struct {
		name         string
		recentCost   float64 // zScore = |recentCost-100|/10
		wantAnomaly  bool
		wantSeverity string
	}{
		{name: "below trigger threshold", recentCost: 119, wantAnomaly: false},
		{name: "exactly at trigger threshold", recentCost: 120, wantAnomaly: false},
		{name: "just above trigger threshold", recentCost: 121, wantAnomaly: true, wantSeverity: anomaly.SeverityMedium},
		{name: "exactly at high boundary", recentCost: 125, wantAnomaly: true, wantSeverity: anomaly.SeverityMedium},
		{name: "just above high boundary", recentCost: 126, wantAnomaly: true, wantSeverity: anomaly.SeverityHigh},
		{name: "exactly at critical boundary", recentCost: 130, wantAnomaly: true, wantSeverity: anomaly.SeverityHigh},
		{name: "just above critical boundary", recentCost: 131, wantAnomaly: true, wantSeverity: anomaly.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			costs := testutil.NewMockCostRepository()
			anomalies := testutil.NewMockAnomalyRepository()
			seedSeries(costs, "compute", "us-east-1", tt.recentCost)

			detector := NewAnomalyDetector(costs, anomalies, testLogger(), false, func() time.Time { return detectorNow })
			found, err := detector.Detect(context.Background())
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}

			if !tt.wantAnomaly {
				if len(found) != 0 {
					t.Fatalf("Detect() = %d anomalies, want 0", len(found))
				}
				return
			}
			if len(found) != 1 {
				t.Fatalf("Detect() = %d anomalies, want 1", len(found))
			}
			if found[0].Severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", found[0].Severity, tt.wantSeverity)
			}
			if len(anomalies.Anomalies) != 1 {
				t.Errorf("persisted %d anomalies, want 1", len(anomalies.Anomalies))
			}
		})
	}
}

func TestAnomalyDetector_SpikeVsUnusualPattern(t *testing.T) {
	tests := []struct {
		name       string
		recentCost float64
		wantType   string
	}{
		{name: "spend above baseline is a spike", recentCost: 131, wantType: anomaly.TypeSpike},
		{name: "spend below baseline is an unusual pattern", recentCost: 69, wantType: anomaly.TypeUnusualPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			costs := testutil.NewMockCostRepository()
			anomalies := testutil.NewMockAnomalyRepository()
			seedSeries(costs, "compute", "us-east-1", tt.recentCost)

			detector := NewAnomalyDetector(costs, anomalies, testLogger(), false, func() time.Time { return detectorNow })
			found, err := detector.Detect(context.Background())
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if len(found) != 1 {
				t.Fatalf("Detect() = %d anomalies, want 1", len(found))
			}
			if found[0].AnomalyType != tt.wantType {
				t.Errorf("anomaly type = %s, want %s", found[0].AnomalyType, tt.wantType)
			}
		})
	}
}

func TestAnomalyDetector_FlatHistoryIsDegenerate(t *testing.T) {
	costs := testutil.NewMockCostRepository()
	anomalies := testutil.NewMockAnomalyRepository()

	// historical=[10 x7], recent=[30 x3]: stddev is zero, so no scale to
	// measure against. Must not divide by zero and must not raise.
	for _, d := range []int{20, 21, 22, 23, 24, 25, 26} {
		addDailyCost(costs, "compute", "us-east-1", time.Date(2025, 6, d, 6, 0, 0, 0, time.UTC), 10)
	}
	for _, d := range []int{28, 29, 30} {
		addDailyCost(costs, "compute", "us-east-1", time.Date(2025, 6, d, 6, 0, 0, 0, time.UTC), 30)
	}

	detector := NewAnomalyDetector(costs, anomalies, testLogger(), false, func() time.Time { return detectorNow })
	found, err := detector.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Detect() = %d anomalies, want 0 for flat history", len(found))
	}
}

func TestAnomalyDetector_InsufficientHistorySkipped(t *testing.T) {
	costs := testutil.NewMockCostRepository()
	anomalies := testutil.NewMockAnomalyRepository()

	// Six daily points is below the minimum history requirement.
	for _, d := range []int{25, 26, 27, 28, 29, 30} {
		addDailyCost(costs, "compute", "us-east-1", time.Date(2025, 6, d, 6, 0, 0, 0, time.UTC), 500)
	}

	detector := NewAnomalyDetector(costs, anomalies, testLogger(), false, func() time.Time { return detectorNow })
	found, err := detector.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Detect() = %d anomalies, want 0 for short history", len(found))
	}
}

func TestAnomalyDetector_ConfidenceClampedTo100(t *testing.T) {
	costs := testutil.NewMockCostRepository()
	anomalies := testutil.NewMockAnomalyRepository()
	seedSeries(costs, "compute", "us-east-1", 500) // zScore = 40

	detector := NewAnomalyDetector(costs, anomalies, testLogger(), false, func() time.Time { return detectorNow })
	found, err := detector.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("Detect() = %d anomalies, want 1", len(found))
	}
	if found[0].ConfidenceScore != 100 {
		t.Errorf("confidence = %f, want 100", found[0].ConfidenceScore)
	}
}

func TestAnomalyDetector_DuplicatePolicy(t *testing.T) {
	tests := []struct {
		name               string
		skipOpenDuplicates bool
		wantPersisted      int
	}{
		{name: "default policy records every cycle", skipOpenDuplicates: false, wantPersisted: 2},
		{name: "dedup policy suppresses open groups", skipOpenDuplicates: true, wantPersisted: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			costs := testutil.NewMockCostRepository()
			anomalies := testutil.NewMockAnomalyRepository()
			seedSeries(costs, "compute", "us-east-1", 140)

			// An earlier cycle already raised an open anomaly for this group.
			anomalies.Anomalies = append(anomalies.Anomalies, &anomaly.Anomaly{
				ID:           "existing",
				ResourceType: "compute",
				Region:       "us-east-1",
				Status:       anomaly.StatusOpen,
				DetectedAt:   detectorNow.Add(-time.Hour),
			})

			detector := NewAnomalyDetector(costs, anomalies, testLogger(), tt.skipOpenDuplicates, func() time.Time { return detectorNow })
			if _, err := detector.Detect(context.Background()); err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if len(anomalies.Anomalies) != tt.wantPersisted {
				t.Errorf("persisted %d anomalies, want %d", len(anomalies.Anomalies), tt.wantPersisted)
			}
		})
	}
}
