package forecast

import "context"

// Repository persists predictions with insert-or-replace semantics on
// the (algorithm, period) key.
type Repository interface {
	Upsert(ctx context.Context, p *Prediction) error
	Get(ctx context.Context, algorithm, period string) (*Prediction, error)
	List(ctx context.Context) ([]*Prediction, error)
}

// Service produces cost predictions on demand.
type Service interface {
	// Generate returns the prediction for the period, reusing the stored
	// one while it is still valid.
	Generate(ctx context.Context, period, algorithm string) (*Prediction, error)

	// Refresh recomputes the prediction unconditionally, replacing any
	// stored one. Scheduled regeneration goes through this path.
	Refresh(ctx context.Context, period, algorithm string) (*Prediction, error)
}
