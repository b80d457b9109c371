package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"costwatch/internal/domain/anomaly"
)

// AnomalyRepository implements anomaly.Repository on SQLite.
type AnomalyRepository struct {
	db *sql.DB
}

// NewAnomalyRepository creates a new anomaly repository
func NewAnomalyRepository(db *sql.DB) *AnomalyRepository {
	return &AnomalyRepository{db: db}
}

// Create inserts an anomaly
func (r *AnomalyRepository) Create(ctx context.Context, a *anomaly.Anomaly) error {
	defer track("anomaly_create")()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	actions, err := json.Marshal(a.SuggestedActions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO cost_anomalies (id, algorithm, anomaly_type, severity, resource_type, region, baseline_cost, actual_cost, deviation_pct, confidence_score, root_cause, suggested_actions, status, detected_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.Algorithm, a.AnomalyType, a.Severity, a.ResourceType, a.Region,
		a.BaselineCost, a.ActualCost, a.DeviationPct, a.ConfidenceScore,
		a.RootCause, string(actions), a.Status,
		formatTime(a.DetectedAt), formatTime(a.CreatedAt),
	)
	return err
}

// List retrieves anomalies matching the filter with the total count for
// pagination, newest first
func (r *AnomalyRepository) List(ctx context.Context, filter anomaly.Filter, limit, offset int) ([]*anomaly.Anomaly, int64, error) {
	defer track("anomaly_list")()

	where := ` WHERE 1=1`
	var args []interface{}
	if filter.Severity != "" {
		where += " AND severity = ?"
		args = append(args, filter.Severity)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.ResourceType != "" {
		where += " AND resource_type = ?"
		args = append(args, filter.ResourceType)
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM cost_anomalies`+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, algorithm, anomaly_type, severity, resource_type, region, baseline_cost, actual_cost, deviation_pct, confidence_score, root_cause, suggested_actions, status, detected_at, created_at
		FROM cost_anomalies` + where + ` ORDER BY detected_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*anomaly.Anomaly
	for rows.Next() {
		a := &anomaly.Anomaly{}
		var actions, detected, created string
		err := rows.Scan(
			&a.ID, &a.Algorithm, &a.AnomalyType, &a.Severity, &a.ResourceType, &a.Region,
			&a.BaselineCost, &a.ActualCost, &a.DeviationPct, &a.ConfidenceScore,
			&a.RootCause, &actions, &a.Status, &detected, &created,
		)
		if err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(actions), &a.SuggestedActions)
		a.DetectedAt, a.CreatedAt = parseTime(detected), parseTime(created)
		out = append(out, a)
	}
	return out, count, rows.Err()
}

// CountOpenSince counts open anomalies detected after the cutoff
func (r *AnomalyRepository) CountOpenSince(ctx context.Context, cutoff time.Time) (int64, error) {
	defer track("anomaly_count_open")()

	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM cost_anomalies WHERE status = ? AND detected_at >= ?`,
		anomaly.StatusOpen, formatTime(cutoff),
	).Scan(&count)
	return count, err
}

// HasOpenForGroup reports whether an open anomaly already exists for a
// (resource_type, region) group
func (r *AnomalyRepository) HasOpenForGroup(ctx context.Context, resourceType, region string) (bool, error) {
	defer track("anomaly_has_open")()

	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM cost_anomalies WHERE status = ? AND resource_type = ? AND region = ?`,
		anomaly.StatusOpen, resourceType, region,
	).Scan(&count)
	return count > 0, err
}

// UpdateStatus sets an anomaly's status
func (r *AnomalyRepository) UpdateStatus(ctx context.Context, id, status string) error {
	defer track("anomaly_update_status")()

	res, err := r.db.ExecContext(ctx, `UPDATE cost_anomalies SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
