package budget

import "context"

// Service defines the budget operations exposed to callers.
type Service interface {
	// Create validates the spec and persists a budget with one threshold
	// alert per requested percentage (defaults apply when none given).
	Create(ctx context.Context, spec CreateSpec) (*Budget, error)

	// Get retrieves a budget by ID.
	Get(ctx context.Context, id string) (*Budget, error)

	// List retrieves budgets matching the filter.
	List(ctx context.Context, filter Filter) ([]*Budget, error)

	// CheckAlerts evaluates every evaluable alert against current spend and
	// drives the alert state machine. Called from the orchestrator tick.
	CheckAlerts(ctx context.Context) error
}
