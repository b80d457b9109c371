package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"costwatch/internal/domain/optimization"
)

// RecommendationRepository implements optimization.Repository on SQLite.
type RecommendationRepository struct {
	db *sql.DB
}

// NewRecommendationRepository creates a new recommendation repository
func NewRecommendationRepository(db *sql.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Upsert inserts or replaces a recommendation by id
func (r *RecommendationRepository) Upsert(ctx context.Context, rec *optimization.Recommendation) error {
	defer track("recommendation_upsert")()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	steps, err := json.Marshal(rec.ImplementationSteps)
	if err != nil {
		return err
	}
	resources, err := json.Marshal(rec.AffectedResources)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO optimization_recommendations (id, type, category, title, description, estimated_savings, savings_percent, confidence_score, priority, impact, effort, implementation_steps, affected_resources, auto_implementable, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  type=excluded.type,
		  category=excluded.category,
		  title=excluded.title,
		  description=excluded.description,
		  estimated_savings=excluded.estimated_savings,
		  savings_percent=excluded.savings_percent,
		  confidence_score=excluded.confidence_score,
		  priority=excluded.priority,
		  impact=excluded.impact,
		  effort=excluded.effort,
		  implementation_steps=excluded.implementation_steps,
		  affected_resources=excluded.affected_resources,
		  auto_implementable=excluded.auto_implementable,
		  status=excluded.status,
		  updated_at=excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.Type, rec.Category, rec.Title, rec.Description,
		rec.EstimatedSavings, rec.SavingsPercent, rec.ConfidenceScore,
		rec.Priority, rec.Impact, rec.Effort,
		string(steps), string(resources), boolToInt(rec.AutoImplementable), rec.Status,
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	return err
}

// List retrieves recommendations with the total count, highest savings
// first
func (r *RecommendationRepository) List(ctx context.Context, status string, limit, offset int) ([]*optimization.Recommendation, int64, error) {
	defer track("recommendation_list")()

	where := ` WHERE 1=1`
	var args []interface{}
	if status != "" {
		where += " AND status = ?"
		args = append(args, status)
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM optimization_recommendations`+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, type, category, title, description, estimated_savings, savings_percent, confidence_score, priority, impact, effort, implementation_steps, affected_resources, auto_implementable, status, created_at, updated_at
		FROM optimization_recommendations` + where + ` ORDER BY estimated_savings DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*optimization.Recommendation
	for rows.Next() {
		rec := &optimization.Recommendation{}
		var steps, resources, created, updated string
		var auto int
		err := rows.Scan(
			&rec.ID, &rec.Type, &rec.Category, &rec.Title, &rec.Description,
			&rec.EstimatedSavings, &rec.SavingsPercent, &rec.ConfidenceScore,
			&rec.Priority, &rec.Impact, &rec.Effort,
			&steps, &resources, &auto, &rec.Status, &created, &updated,
		)
		if err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(steps), &rec.ImplementationSteps)
		_ = json.Unmarshal([]byte(resources), &rec.AffectedResources)
		rec.AutoImplementable = auto == 1
		rec.CreatedAt, rec.UpdatedAt = parseTime(created), parseTime(updated)
		out = append(out, rec)
	}
	return out, count, rows.Err()
}

// UpdateStatus sets a recommendation's status
func (r *RecommendationRepository) UpdateStatus(ctx context.Context, id, status string) error {
	defer track("recommendation_update_status")()

	res, err := r.db.ExecContext(ctx,
		`UPDATE optimization_recommendations SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(time.Now()), id,
	)
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

// TotalPendingSavings sums the estimated savings of pending
// recommendations
func (r *RecommendationRepository) TotalPendingSavings(ctx context.Context) (float64, error) {
	defer track("recommendation_pending_savings")()

	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(estimated_savings), 0) FROM optimization_recommendations WHERE status = ?`,
		optimization.StatusPending,
	).Scan(&total)
	return total, err
}
