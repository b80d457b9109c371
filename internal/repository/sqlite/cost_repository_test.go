package sqlite

import (
	"context"
	"testing"
	"time"

	"costwatch/internal/domain/cost"
)

var baseDay = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func mustCreate(t *testing.T, repo *CostRepository, rec *cost.Record) {
	t.Helper()
	if rec.ResourceType == "" {
		rec.ResourceType = "compute"
	}
	if rec.Provider == "" {
		rec.Provider = "aws"
	}
	if rec.PeriodEnd.IsZero() {
		rec.PeriodEnd = rec.PeriodStart.Add(time.Hour)
	}
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestCostRepository_WindowedAggregates(t *testing.T) {
	repo := NewCostRepository(openTestDB(t))
	ctx := context.Background()

	mustCreate(t, repo, &cost.Record{
		ResourceID: "r-1", ServiceName: "api", Region: "us-east-1", TeamID: "core",
		Cost: 10, UsageAmount: 2, Success: true, PeriodStart: baseDay,
	})
	mustCreate(t, repo, &cost.Record{
		ResourceID: "r-2", ResourceType: "database", ServiceName: "db", Region: "eu-west-1", TeamID: "data",
		Cost: 30, UsageAmount: 4, Success: false, PeriodStart: baseDay.Add(2 * time.Hour),
	})
	// Both sit outside the half-open window.
	mustCreate(t, repo, &cost.Record{
		ResourceID: "r-3", ServiceName: "api", Cost: 99, Success: true,
		PeriodStart: baseDay.Add(24 * time.Hour),
	})
	mustCreate(t, repo, &cost.Record{
		ResourceID: "r-3", ServiceName: "api", Cost: 99, Success: true,
		PeriodStart: baseDay.Add(-time.Second),
	})

	w := cost.Window{Start: baseDay, End: baseDay.Add(24 * time.Hour)}

	if got, err := repo.SumCost(ctx, cost.Filter{}, w); err != nil || got != 40 {
		t.Errorf("SumCost() = %f, %v, want 40", got, err)
	}
	if got, err := repo.SumUsage(ctx, cost.Filter{}, w); err != nil || got != 6 {
		t.Errorf("SumUsage() = %f, %v, want 6", got, err)
	}
	if got, err := repo.CountRecords(ctx, cost.Filter{}, w); err != nil || got != 2 {
		t.Errorf("CountRecords() = %d, %v, want 2", got, err)
	}
	if got, err := repo.CountDistinctResources(ctx, cost.Filter{}, w); err != nil || got != 2 {
		t.Errorf("CountDistinctResources() = %d, %v, want 2", got, err)
	}
	if got, err := repo.SuccessRate(ctx, cost.Filter{}, w); err != nil || got != 0.5 {
		t.Errorf("SuccessRate() = %f, %v, want 0.5", got, err)
	}
	if got, err := repo.SumCost(ctx, cost.Filter{TeamID: "core"}, w); err != nil || got != 10 {
		t.Errorf("SumCost(team=core) = %f, %v, want 10", got, err)
	}

	byService, err := repo.BreakdownBy(ctx, cost.GroupByService, cost.Filter{}, w)
	if err != nil {
		t.Fatalf("BreakdownBy() error = %v", err)
	}
	if len(byService) != 2 || byService[0].Key != "db" || byService[0].Cost != 30 {
		t.Errorf("BreakdownBy(service) = %+v, want db=30 first", byService)
	}
}

func TestCostRepository_SuccessRateDefaultsToOne(t *testing.T) {
	repo := NewCostRepository(openTestDB(t))

	got, err := repo.SuccessRate(context.Background(), cost.Filter{}, cost.Window{Start: baseDay, End: baseDay.Add(time.Hour)})
	if err != nil {
		t.Fatalf("SuccessRate() error = %v", err)
	}
	if got != 1.0 {
		t.Errorf("SuccessRate() on empty window = %f, want 1.0", got)
	}
}

func TestCostRepository_DailyAndHourlySeries(t *testing.T) {
	repo := NewCostRepository(openTestDB(t))
	ctx := context.Background()

	mustCreate(t, repo, &cost.Record{ResourceID: "r-1", ServiceName: "api", Cost: 5, PeriodStart: baseDay.Add(3 * time.Hour)})
	mustCreate(t, repo, &cost.Record{ResourceID: "r-1", ServiceName: "api", Cost: 5, PeriodStart: baseDay.Add(9 * time.Hour)})
	mustCreate(t, repo, &cost.Record{ResourceID: "r-1", ServiceName: "api", Cost: 20, PeriodStart: baseDay.AddDate(0, 0, 1).Add(3 * time.Hour)})

	w := cost.Window{Start: baseDay, End: baseDay.AddDate(0, 0, 2)}

	days, err := repo.DailyTotals(ctx, cost.Filter{}, w)
	if err != nil {
		t.Fatalf("DailyTotals() error = %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("daily points = %d, want 2", len(days))
	}
	if !days[0].Date.Equal(baseDay) || days[0].Cost != 10 {
		t.Errorf("day[0] = %+v, want %s cost 10", days[0], baseDay.Format("2006-01-02"))
	}
	if days[1].Cost != 20 {
		t.Errorf("day[1].Cost = %f, want 20", days[1].Cost)
	}

	hours, err := repo.HourlyAverages(ctx, cost.Filter{}, w)
	if err != nil {
		t.Fatalf("HourlyAverages() error = %v", err)
	}
	if len(hours) != 2 {
		t.Fatalf("hourly points = %d, want 2", len(hours))
	}
	// Hour 3 saw costs 5 and 20, hour 9 only 5.
	if hours[0].Hour != 3 || hours[0].AvgCost != 12.5 {
		t.Errorf("hour[0] = %+v, want hour 3 avg 12.5", hours[0])
	}
	if hours[1].Hour != 9 || hours[1].AvgCost != 5 {
		t.Errorf("hour[1] = %+v, want hour 9 avg 5", hours[1])
	}
}

func TestCostRepository_GroupedDailyTotals(t *testing.T) {
	repo := NewCostRepository(openTestDB(t))

	mustCreate(t, repo, &cost.Record{ResourceID: "r-1", ServiceName: "api", Region: "us-east-1", Cost: 10, PeriodStart: baseDay})
	mustCreate(t, repo, &cost.Record{ResourceID: "r-1", ServiceName: "api", Region: "us-east-1", Cost: 20, PeriodStart: baseDay.AddDate(0, 0, 1)})
	mustCreate(t, repo, &cost.Record{ResourceID: "r-2", ResourceType: "database", ServiceName: "db", Region: "eu-west-1", Cost: 5, PeriodStart: baseDay})

	groups, err := repo.GroupedDailyTotals(context.Background(), cost.Window{Start: baseDay, End: baseDay.AddDate(0, 0, 2)})
	if err != nil {
		t.Fatalf("GroupedDailyTotals() error = %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[0].ResourceType != "compute" || groups[0].Region != "us-east-1" || len(groups[0].Points) != 2 {
		t.Errorf("group[0] = %+v, want compute/us-east-1 with 2 points", groups[0])
	}
	if groups[0].Points[0].Cost != 10 || groups[0].Points[1].Cost != 20 {
		t.Errorf("group[0] points = %+v, want costs 10 then 20", groups[0].Points)
	}
	if groups[1].ResourceType != "database" || len(groups[1].Points) != 1 {
		t.Errorf("group[1] = %+v, want database/eu-west-1 with 1 point", groups[1])
	}
}

func TestCostRepository_ResourceAndModelStats(t *testing.T) {
	repo := NewCostRepository(openTestDB(t))
	ctx := context.Background()

	mustCreate(t, repo, &cost.Record{ResourceID: "r-1", ServiceName: "api", Cost: 10, UsageAmount: 0.2, Success: true, PeriodStart: baseDay})
	mustCreate(t, repo, &cost.Record{ResourceID: "r-1", ServiceName: "api", Cost: 30, UsageAmount: 0.4, Success: true, PeriodStart: baseDay.Add(time.Hour)})
	mustCreate(t, repo, &cost.Record{ResourceID: "m-1", ServiceName: "llm", ModelName: "atlas-xl", Cost: 2, Success: true, PeriodStart: baseDay})
	mustCreate(t, repo, &cost.Record{ResourceID: "m-1", ServiceName: "llm", ModelName: "atlas-xl", Cost: 2, Success: true, PeriodStart: baseDay.Add(time.Hour)})
	mustCreate(t, repo, &cost.Record{ResourceID: "m-1", ServiceName: "llm", ModelName: "atlas-xl", Cost: 2, Success: false, PeriodStart: baseDay.Add(2 * time.Hour)})

	w := cost.Window{Start: baseDay, End: baseDay.AddDate(0, 0, 1)}

	usage, err := repo.ResourceUsageStats(ctx, cost.Filter{ServiceName: "api"}, w)
	if err != nil {
		t.Fatalf("ResourceUsageStats() error = %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("usage rows = %d, want 1", len(usage))
	}
	if usage[0].ResourceID != "r-1" || usage[0].TotalCost != 40 {
		t.Errorf("usage[0] = %+v, want r-1 total 40", usage[0])
	}
	if diff := usage[0].AvgUsage - 0.3; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("usage[0].AvgUsage = %f, want 0.3", usage[0].AvgUsage)
	}

	models, err := repo.ModelExecutionStats(ctx, cost.Filter{}, w)
	if err != nil {
		t.Fatalf("ModelExecutionStats() error = %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("model rows = %d, want 1 (records without a model name are skipped)", len(models))
	}
	m := models[0]
	if m.ModelName != "atlas-xl" || m.ExecutionCount != 3 || m.AvgCost != 2 || m.TotalCost != 6 {
		t.Errorf("model stats = %+v, want atlas-xl count 3 avg 2 total 6", m)
	}
	if diff := m.SuccessRate - 2.0/3.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("model success rate = %f, want 2/3", m.SuccessRate)
	}
}
