package anomaly

import (
	"context"
	"time"
)

// Repository persists detected anomalies.
type Repository interface {
	Create(ctx context.Context, a *Anomaly) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Anomaly, int64, error)
	// CountOpenSince counts open anomalies detected after the cutoff.
	CountOpenSince(ctx context.Context, cutoff time.Time) (int64, error)
	// HasOpenForGroup reports whether an open anomaly already exists for a
	// (resource_type, region) group. Used by the dedup policy.
	HasOpenForGroup(ctx context.Context, resourceType, region string) (bool, error)
	UpdateStatus(ctx context.Context, id, status string) error
}
