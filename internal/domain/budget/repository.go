package budget

import "context"

// Repository persists budgets and their alerts.
type Repository interface {
	Create(ctx context.Context, b *Budget) error
	GetByID(ctx context.Context, id string) (*Budget, error)
	List(ctx context.Context, filter Filter) ([]*Budget, error)
	Update(ctx context.Context, b *Budget) error

	CreateAlert(ctx context.Context, a *Alert) error
	// ListEvaluableAlerts returns alerts whose parent budget is active and
	// whose own status is active or triggered, joined with their budget.
	ListEvaluableAlerts(ctx context.Context) ([]*EvaluableAlert, error)
	UpdateAlertState(ctx context.Context, a *Alert) error
}

// EvaluableAlert pairs an alert with the budget it is evaluated against.
type EvaluableAlert struct {
	Alert  *Alert
	Budget *Budget
}
