package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"costwatch/internal/domain/cost"
)

// CostRepository implements cost.Repository on SQLite.
type CostRepository struct {
	db *sql.DB
}

// NewCostRepository creates a new cost repository
func NewCostRepository(db *sql.DB) *CostRepository {
	return &CostRepository{db: db}
}

// Create inserts a cost record
func (r *CostRepository) Create(ctx context.Context, rec *cost.Record) error {
	defer track("cost_create")()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO cost_records (id, resource_id, resource_type, provider, region, service_name, model_name, cost, usage_amount, usage_unit, success, period_start, period_end, workspace_id, team_id, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.ResourceID, rec.ResourceType, rec.Provider, rec.Region, rec.ServiceName, rec.ModelName,
		rec.Cost, rec.UsageAmount, rec.UsageUnit, boolToInt(rec.Success),
		formatTime(rec.PeriodStart), formatTime(rec.PeriodEnd),
		rec.WorkspaceID, rec.TeamID, string(tags), formatTime(rec.CreatedAt),
	)
	return err
}

// SumCost returns the total cost matching filter within the window
func (r *CostRepository) SumCost(ctx context.Context, filter cost.Filter, w cost.Window) (float64, error) {
	defer track("cost_sum")()

	query := `SELECT COALESCE(SUM(cost), 0) FROM cost_records WHERE period_start >= ? AND period_start < ?`
	query, args := applyFilter(query, windowArgs(w), filter)

	var total float64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&total)
	return total, err
}

// SumUsage returns the total usage amount matching filter within the window
func (r *CostRepository) SumUsage(ctx context.Context, filter cost.Filter, w cost.Window) (float64, error) {
	defer track("usage_sum")()

	query := `SELECT COALESCE(SUM(usage_amount), 0) FROM cost_records WHERE period_start >= ? AND period_start < ?`
	query, args := applyFilter(query, windowArgs(w), filter)

	var total float64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&total)
	return total, err
}

// CountRecords returns the number of records matching filter within the window
func (r *CostRepository) CountRecords(ctx context.Context, filter cost.Filter, w cost.Window) (int64, error) {
	defer track("cost_count")()

	query := `SELECT COUNT(1) FROM cost_records WHERE period_start >= ? AND period_start < ?`
	query, args := applyFilter(query, windowArgs(w), filter)

	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// CountDistinctResources returns how many distinct resources produced
// cost within the window
func (r *CostRepository) CountDistinctResources(ctx context.Context, filter cost.Filter, w cost.Window) (int64, error) {
	defer track("resource_count")()

	query := `SELECT COUNT(DISTINCT resource_id) FROM cost_records WHERE period_start >= ? AND period_start < ?`
	query, args := applyFilter(query, windowArgs(w), filter)

	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// BreakdownBy groups cost by the given dimension within the window
func (r *CostRepository) BreakdownBy(ctx context.Context, dimension string, filter cost.Filter, w cost.Window) ([]cost.Breakdown, error) {
	defer track("cost_breakdown")()

	var column string
	switch dimension {
	case cost.GroupByService:
		column = "service_name"
	case cost.GroupByRegion:
		column = "region"
	case cost.GroupByTeam:
		column = "team_id"
	default:
		column = "service_name"
	}

	query := `SELECT ` + column + `, COALESCE(SUM(cost), 0) AS total FROM cost_records WHERE period_start >= ? AND period_start < ?`
	query, args := applyFilter(query, windowArgs(w), filter)
	query += ` GROUP BY ` + column + ` ORDER BY total DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cost.Breakdown
	for rows.Next() {
		var b cost.Breakdown
		if err := rows.Scan(&b.Key, &b.Cost); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DailyTotals returns one summed point per day in ascending date order
func (r *CostRepository) DailyTotals(ctx context.Context, filter cost.Filter, w cost.Window) ([]cost.DailyPoint, error) {
	defer track("daily_totals")()

	query := `SELECT date(period_start) AS day, COALESCE(SUM(cost), 0) FROM cost_records WHERE period_start >= ? AND period_start < ?`
	query, args := applyFilter(query, windowArgs(w), filter)
	query += ` GROUP BY day ORDER BY day ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cost.DailyPoint
	for rows.Next() {
		var day string
		var p cost.DailyPoint
		if err := rows.Scan(&day, &p.Cost); err != nil {
			return nil, err
		}
		p.Date, _ = time.Parse("2006-01-02", day)
		out = append(out, p)
	}
	return out, rows.Err()
}

// GroupedDailyTotals returns the per-day series for every
// (resource_type, region) group seen in the window
func (r *CostRepository) GroupedDailyTotals(ctx context.Context, w cost.Window) ([]cost.GroupSeries, error) {
	defer track("grouped_daily_totals")()

	query := `
		SELECT resource_type, region, date(period_start) AS day, COALESCE(SUM(cost), 0)
		FROM cost_records
		WHERE period_start >= ? AND period_start < ?
		GROUP BY resource_type, region, day
		ORDER BY resource_type, region, day ASC
	`
	rows, err := r.db.QueryContext(ctx, query, formatTime(w.Start), formatTime(w.End))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cost.GroupSeries
	var cur *cost.GroupSeries
	for rows.Next() {
		var rt, region, day string
		var c float64
		if err := rows.Scan(&rt, &region, &day, &c); err != nil {
			return nil, err
		}
		if cur == nil || cur.ResourceType != rt || cur.Region != region {
			out = append(out, cost.GroupSeries{ResourceType: rt, Region: region})
			cur = &out[len(out)-1]
		}
		date, _ := time.Parse("2006-01-02", day)
		cur.Points = append(cur.Points, cost.DailyPoint{Date: date, Cost: c})
	}
	return out, rows.Err()
}

// HourlyAverages returns the average cost per hour of day across the window
func (r *CostRepository) HourlyAverages(ctx context.Context, filter cost.Filter, w cost.Window) ([]cost.HourlyPoint, error) {
	defer track("hourly_averages")()

	query := `SELECT CAST(strftime('%H', period_start) AS INTEGER) AS hour, COALESCE(AVG(cost), 0) FROM cost_records WHERE period_start >= ? AND period_start < ?`
	query, args := applyFilter(query, windowArgs(w), filter)
	query += ` GROUP BY hour ORDER BY hour ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cost.HourlyPoint
	for rows.Next() {
		var p cost.HourlyPoint
		if err := rows.Scan(&p.Hour, &p.AvgCost); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ResourceUsageStats returns per-resource average usage and total cost
func (r *CostRepository) ResourceUsageStats(ctx context.Context, filter cost.Filter, w cost.Window) ([]cost.ResourceUsage, error) {
	defer track("resource_usage_stats")()

	query := `SELECT resource_id, resource_type, COALESCE(AVG(usage_amount), 0), COALESCE(SUM(cost), 0) FROM cost_records WHERE period_start >= ? AND period_start < ?`
	query, args := applyFilter(query, windowArgs(w), filter)
	query += ` GROUP BY resource_id, resource_type ORDER BY resource_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cost.ResourceUsage
	for rows.Next() {
		var u cost.ResourceUsage
		if err := rows.Scan(&u.ResourceID, &u.ResourceType, &u.AvgUsage, &u.TotalCost); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ModelExecutionStats returns per-model execution counts, costs and
// success rates, ignoring records that carry no model name
func (r *CostRepository) ModelExecutionStats(ctx context.Context, filter cost.Filter, w cost.Window) ([]cost.ModelStats, error) {
	defer track("model_execution_stats")()

	query := `
		SELECT model_name, COUNT(1), COALESCE(AVG(cost), 0), COALESCE(SUM(cost), 0), COALESCE(AVG(success), 0)
		FROM cost_records
		WHERE period_start >= ? AND period_start < ? AND model_name != ''
	`
	query, args := applyFilter(query, windowArgs(w), filter)
	query += ` GROUP BY model_name ORDER BY model_name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cost.ModelStats
	for rows.Next() {
		var s cost.ModelStats
		if err := rows.Scan(&s.ModelName, &s.ExecutionCount, &s.AvgCost, &s.TotalCost, &s.SuccessRate); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SuccessRate returns the fraction of successful records in the window.
// With no records at all it reports 1.0.
func (r *CostRepository) SuccessRate(ctx context.Context, filter cost.Filter, w cost.Window) (float64, error) {
	defer track("success_rate")()

	query := `SELECT COALESCE(AVG(success), 1.0) FROM cost_records WHERE period_start >= ? AND period_start < ?`
	query, args := applyFilter(query, windowArgs(w), filter)

	var rate float64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&rate)
	return rate, err
}

func windowArgs(w cost.Window) []interface{} {
	return []interface{}{formatTime(w.Start), formatTime(w.End)}
}

// applyFilter appends AND clauses for every non-zero filter field.
func applyFilter(query string, args []interface{}, f cost.Filter) (string, []interface{}) {
	if f.ResourceID != "" {
		query += " AND resource_id = ?"
		args = append(args, f.ResourceID)
	}
	if f.ResourceType != "" {
		query += " AND resource_type = ?"
		args = append(args, f.ResourceType)
	}
	if f.Provider != "" {
		query += " AND provider = ?"
		args = append(args, f.Provider)
	}
	if f.Region != "" {
		query += " AND region = ?"
		args = append(args, f.Region)
	}
	if f.ServiceName != "" {
		query += " AND service_name = ?"
		args = append(args, f.ServiceName)
	}
	if f.WorkspaceID != "" {
		query += " AND workspace_id = ?"
		args = append(args, f.WorkspaceID)
	}
	if f.TeamID != "" {
		query += " AND team_id = ?"
		args = append(args, f.TeamID)
	}
	return query, args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
