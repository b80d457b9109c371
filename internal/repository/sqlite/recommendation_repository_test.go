package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"costwatch/internal/domain/optimization"
)

func sampleRecommendation(id string, savings float64) *optimization.Recommendation {
	return &optimization.Recommendation{
		ID:                  id,
		Type:                optimization.TypeRightsizing,
		Category:            optimization.CategoryCompute,
		Title:               "Rightsize underutilized resources",
		Description:         "Average utilization is below 50%",
		EstimatedSavings:    savings,
		SavingsPercent:      40,
		ConfidenceScore:     75,
		Priority:            optimization.PriorityMedium,
		Impact:              optimization.LevelMedium,
		Effort:              optimization.LevelMedium,
		ImplementationSteps: []string{"review instance sizes", "apply smaller tier"},
		AffectedResources:   []string{"r-1", "r-2"},
		Status:              optimization.StatusPending,
	}
}

func TestRecommendationRepository_UpsertAndList(t *testing.T) {
	repo := NewRecommendationRepository(openTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, sampleRecommendation("rightsizing-r-1", 80)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	big := sampleRecommendation("scheduled-scaling", 1260)
	big.Type = optimization.TypeScheduledScaling
	big.AutoImplementable = true
	if err := repo.Upsert(ctx, big); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	// Re-upserting the same id refreshes the row instead of duplicating it.
	refreshed := sampleRecommendation("rightsizing-r-1", 95)
	if err := repo.Upsert(ctx, refreshed); err != nil {
		t.Fatalf("Upsert() refresh error = %v", err)
	}

	rows, total, err := repo.List(ctx, "", 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("List() = %d rows, total %d, want 2 and 2", len(rows), total)
	}
	if rows[0].ID != "scheduled-scaling" || rows[1].EstimatedSavings != 95 {
		t.Errorf("List() order = %s then %f, want scheduled-scaling first and refreshed savings 95", rows[0].ID, rows[1].EstimatedSavings)
	}
	if !rows[0].AutoImplementable {
		t.Error("auto_implementable lost on round trip")
	}
	if len(rows[1].ImplementationSteps) != 2 || len(rows[1].AffectedResources) != 2 {
		t.Errorf("steps/resources = %v / %v, lost on round trip", rows[1].ImplementationSteps, rows[1].AffectedResources)
	}
}

func TestRecommendationRepository_StatusLifecycle(t *testing.T) {
	repo := NewRecommendationRepository(openTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, sampleRecommendation("rightsizing-r-1", 80)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(ctx, sampleRecommendation("rightsizing-r-2", 120)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if total, err := repo.TotalPendingSavings(ctx); err != nil || total != 200 {
		t.Errorf("TotalPendingSavings() = %f, %v, want 200", total, err)
	}

	if err := repo.UpdateStatus(ctx, "rightsizing-r-1", optimization.StatusRejected); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if total, err := repo.TotalPendingSavings(ctx); err != nil || total != 120 {
		t.Errorf("TotalPendingSavings() after rejection = %f, %v, want 120", total, err)
	}

	pending, total, err := repo.List(ctx, optimization.StatusPending, 0, 0)
	if err != nil {
		t.Fatalf("List(pending) error = %v", err)
	}
	if total != 1 || len(pending) != 1 || pending[0].ID != "rightsizing-r-2" {
		t.Errorf("List(pending) = %+v (total %d), want just rightsizing-r-2", pending, total)
	}

	if err := repo.UpdateStatus(ctx, "missing", optimization.StatusApproved); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("UpdateStatus(missing) error = %v, want sql.ErrNoRows", err)
	}
}
