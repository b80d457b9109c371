package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"costwatch/internal/domain/anomaly"
	"costwatch/internal/domain/budget"
	"costwatch/internal/domain/cost"
	"costwatch/internal/testutil"
)

func newCache(costs *testutil.MockCostRepository, anomalies *testutil.MockAnomalyRepository, budgets *testutil.MockBudgetRepository, clock *testutil.FakeClock) *MetricsCache {
	return NewMetricsCache(costs, anomalies, budgets, testLogger(), 5*time.Minute, clock.Now)
}

func TestMetricsCache_RefreshComputesSnapshot(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := testutil.NewFakeClock(now)
	costs := testutil.NewMockCostRepository()
	anomalies := testutil.NewMockAnomalyRepository()
	budgets := testutil.NewMockBudgetRepository()

	// 5.0 spent in the last hour, 3.0 the hour before.
	costs.Add(&cost.Record{ResourceID: "r-1", ServiceName: "api", Region: "us-east-1", TeamID: "core", Cost: 5, PeriodStart: now.Add(-30 * time.Minute)})
	costs.Add(&cost.Record{ResourceID: "r-2", ServiceName: "db", Region: "eu-west-1", TeamID: "data", Cost: 3, PeriodStart: now.Add(-90 * time.Minute)})

	anomalies.Anomalies = append(anomalies.Anomalies, &anomaly.Anomaly{
		ID: "an-1", Status: anomaly.StatusOpen, DetectedAt: now.Add(-2 * time.Hour),
	})

	budgets.Budgets["b-1"] = &budget.Budget{
		ID: "b-1", Name: "monthly", PeriodType: budget.PeriodMonthly,
		Amount: 100, Scope: budget.ScopeGlobal, Status: budget.StatusActive,
	}

	cache := newCache(costs, anomalies, budgets, clock)
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	snap := cache.Snapshot()
	if snap == nil {
		t.Fatal("Snapshot() = nil after refresh")
	}
	if snap.CurrentSpendRate != 5 {
		t.Errorf("spend rate = %f, want 5", snap.CurrentSpendRate)
	}
	if snap.CostVelocity != 2 {
		t.Errorf("velocity = %f, want 2 (5 - 3)", snap.CostVelocity)
	}
	if snap.ProjectedDailyCost != 120 {
		t.Errorf("daily projection = %f, want 120", snap.ProjectedDailyCost)
	}
	if snap.ProjectedMonthlyCost != 3600 {
		t.Errorf("monthly projection = %f, want 3600", snap.ProjectedMonthlyCost)
	}
	if snap.ActiveResources != 2 {
		t.Errorf("active resources = %d, want 2", snap.ActiveResources)
	}
	if snap.OpenAnomalies != 1 {
		t.Errorf("open anomalies = %d, want 1", snap.OpenAnomalies)
	}
	if len(snap.CostByService) != 2 || snap.CostByService[0].Key != "api" {
		t.Errorf("service breakdown = %+v", snap.CostByService)
	}

	if len(snap.BudgetUtilization) != 1 {
		t.Fatalf("budget utilization rows = %d, want 1", len(snap.BudgetUtilization))
	}
	u := snap.BudgetUtilization[0]
	if math.Abs(u.PercentageUsed-u.CurrentSpend/u.Amount*100) > 1e-9 {
		t.Errorf("percentage_used = %f with spend %f of %f: invariant broken", u.PercentageUsed, u.CurrentSpend, u.Amount)
	}
	if u.CurrentSpend != 8 {
		t.Errorf("current spend = %f, want 8", u.CurrentSpend)
	}
}

func TestMetricsCache_FreshSnapshotIsReused(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	costs := testutil.NewMockCostRepository()
	cache := newCache(costs, testutil.NewMockAnomalyRepository(), testutil.NewMockBudgetRepository(), clock)

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	first := cache.Snapshot()

	// Within the interval: refresh is a no-op, readers see the identical
	// snapshot.
	clock.Advance(2 * time.Minute)
	costs.Add(&cost.Record{ResourceID: "r-1", ServiceName: "api", Cost: 99, PeriodStart: clock.Now().Add(-time.Minute)})
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if cache.Snapshot() != first {
		t.Error("snapshot replaced within the freshness interval")
	}

	// Past the interval: a new snapshot is computed.
	clock.Advance(4 * time.Minute)
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	second := cache.Snapshot()
	if second == first {
		t.Fatal("snapshot not recomputed after the interval elapsed")
	}
	if second.LastUpdated.Before(first.LastUpdated) {
		t.Error("last_updated went backwards")
	}
	if second.CurrentSpendRate != 99 {
		t.Errorf("spend rate = %f, want 99 after recompute", second.CurrentSpendRate)
	}
}

func TestMetricsCache_SubQueryFailureDegrades(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	costs := testutil.NewMockCostRepository()
	costs.SumError = errors.New("store down")
	costs.QueryError = errors.New("store down")

	cache := newCache(costs, testutil.NewMockAnomalyRepository(), testutil.NewMockBudgetRepository(), clock)

	// Refresh must survive failing sub-queries and still publish a
	// snapshot with zero values.
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v, sub-query failures must not propagate", err)
	}
	snap := cache.Snapshot()
	if snap == nil {
		t.Fatal("Snapshot() = nil, want degraded snapshot")
	}
	if snap.CurrentSpendRate != 0 || snap.ActiveResources != 0 {
		t.Errorf("degraded snapshot carries stale values: %+v", snap)
	}
	if !snap.LastUpdated.Equal(clock.Now()) {
		t.Errorf("last updated = %v, want %v", snap.LastUpdated, clock.Now())
	}
}
