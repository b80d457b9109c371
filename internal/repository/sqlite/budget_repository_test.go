package sqlite

import (
	"context"
	"testing"
	"time"

	"costwatch/internal/domain/budget"
)

func createBudget(t *testing.T, repo *BudgetRepository, b *budget.Budget) *budget.Budget {
	t.Helper()
	if b.PeriodType == "" {
		b.PeriodType = budget.PeriodMonthly
	}
	if b.Scope == "" {
		b.Scope = budget.ScopeGlobal
	}
	if b.Status == "" {
		b.Status = budget.StatusActive
	}
	if b.StartDate.IsZero() {
		b.StartDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	}
	if err := repo.Create(context.Background(), b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return b
}

func TestBudgetRepository_CreateGetList(t *testing.T) {
	repo := NewBudgetRepository(openTestDB(t))
	ctx := context.Background()

	b := createBudget(t, repo, &budget.Budget{Name: "monthly ai spend", Amount: 1000, Currency: "USD"})
	createBudget(t, repo, &budget.Budget{Name: "team data", Amount: 500, Currency: "USD", Scope: budget.ScopeTeam, ScopeID: "data"})

	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got == nil || got.Name != "monthly ai spend" || got.Amount != 1000 {
		t.Errorf("GetByID() = %+v, want monthly ai spend / 1000", got)
	}
	if !got.StartDate.Equal(b.StartDate) {
		t.Errorf("StartDate = %v, want %v", got.StartDate, b.StartDate)
	}

	if missing, err := repo.GetByID(ctx, "nope"); err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %+v, %v, want nil, nil", missing, err)
	}

	all, err := repo.List(ctx, budget.Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List() returned %d budgets, want 2", len(all))
	}

	teams, err := repo.List(ctx, budget.Filter{Scope: budget.ScopeTeam, ScopeID: "data"})
	if err != nil {
		t.Fatalf("List(scoped) error = %v", err)
	}
	if len(teams) != 1 || teams[0].Name != "team data" {
		t.Errorf("List(scoped) = %+v, want just team data", teams)
	}
}

func TestBudgetRepository_EvaluableAlerts(t *testing.T) {
	repo := NewBudgetRepository(openTestDB(t))
	ctx := context.Background()

	active := createBudget(t, repo, &budget.Budget{Name: "active", Amount: 1000})
	paused := createBudget(t, repo, &budget.Budget{Name: "paused", Amount: 1000, Status: budget.StatusPaused})

	mkAlert := func(budgetID, status string, threshold float64) *budget.Alert {
		a := &budget.Alert{
			BudgetID:            budgetID,
			AlertType:           budget.AlertTypeThreshold,
			ThresholdPercentage: threshold,
			Status:              status,
		}
		if err := repo.CreateAlert(ctx, a); err != nil {
			t.Fatalf("CreateAlert() error = %v", err)
		}
		return a
	}

	tracked := mkAlert(active.ID, budget.AlertActive, 80)
	mkAlert(active.ID, budget.AlertTriggered, 50)
	mkAlert(active.ID, budget.AlertSnoozed, 100)
	mkAlert(paused.ID, budget.AlertActive, 80)

	evaluable, err := repo.ListEvaluableAlerts(ctx)
	if err != nil {
		t.Fatalf("ListEvaluableAlerts() error = %v", err)
	}
	// Snoozed alerts and alerts on non-active budgets are skipped.
	if len(evaluable) != 2 {
		t.Fatalf("evaluable alerts = %d, want 2", len(evaluable))
	}
	for _, ea := range evaluable {
		if ea.Budget.ID != active.ID {
			t.Errorf("evaluable alert joined to budget %s, want %s", ea.Budget.ID, active.ID)
		}
	}

	// Persist a trigger transition and confirm the join reflects it.
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tracked.Status = budget.AlertTriggered
	tracked.CurrentAmount = 850
	tracked.PercentageUsed = 85
	tracked.TriggerCount = 1
	tracked.LastTriggered = &now
	if err := repo.UpdateAlertState(ctx, tracked); err != nil {
		t.Fatalf("UpdateAlertState() error = %v", err)
	}

	evaluable, err = repo.ListEvaluableAlerts(ctx)
	if err != nil {
		t.Fatalf("ListEvaluableAlerts() after update error = %v", err)
	}
	var found *budget.Alert
	for _, ea := range evaluable {
		if ea.Alert.ID == tracked.ID {
			found = ea.Alert
		}
	}
	if found == nil {
		t.Fatal("triggered alert dropped out of the evaluable set")
	}
	if found.Status != budget.AlertTriggered || found.TriggerCount != 1 || found.CurrentAmount != 850 {
		t.Errorf("persisted alert = %+v, want triggered / count 1 / amount 850", found)
	}
	if found.LastTriggered == nil || !found.LastTriggered.Equal(now) {
		t.Errorf("LastTriggered = %v, want %v", found.LastTriggered, now)
	}
}

func TestBudgetRepository_UpdateBudget(t *testing.T) {
	repo := NewBudgetRepository(openTestDB(t))
	ctx := context.Background()

	b := createBudget(t, repo, &budget.Budget{Name: "before", Amount: 100})
	b.Name = "after"
	b.Amount = 250
	b.Status = budget.StatusPaused
	if err := repo.Update(ctx, b); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "after" || got.Amount != 250 || got.Status != budget.StatusPaused {
		t.Errorf("updated budget = %+v, want after / 250 / paused", got)
	}
}
