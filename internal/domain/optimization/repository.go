package optimization

import "context"

// Repository persists recommendations with insert-or-replace by id.
type Repository interface {
	Upsert(ctx context.Context, r *Recommendation) error
	List(ctx context.Context, status string, limit, offset int) ([]*Recommendation, int64, error)
	UpdateStatus(ctx context.Context, id, status string) error
	TotalPendingSavings(ctx context.Context) (float64, error)
}

// Service synthesizes ranked recommendations on demand.
type Service interface {
	Generate(ctx context.Context, workspaceID, teamID string) ([]*Recommendation, error)
}
