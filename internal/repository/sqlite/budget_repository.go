package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"costwatch/internal/domain/budget"
)

// BudgetRepository implements budget.Repository on SQLite.
type BudgetRepository struct {
	db *sql.DB
}

// NewBudgetRepository creates a new budget repository
func NewBudgetRepository(db *sql.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// Create inserts a budget
func (r *BudgetRepository) Create(ctx context.Context, b *budget.Budget) error {
	defer track("budget_create")()

	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	query := `
		INSERT INTO budgets (id, name, period_type, amount, currency, scope, scope_id, start_date, end_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.Name, b.PeriodType, b.Amount, b.Currency, b.Scope, b.ScopeID,
		formatTime(b.StartDate), formatTime(b.EndDate), b.Status,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	return err
}

// GetByID retrieves a budget by ID
func (r *BudgetRepository) GetByID(ctx context.Context, id string) (*budget.Budget, error) {
	defer track("budget_get")()

	query := `
		SELECT id, name, period_type, amount, currency, scope, scope_id, start_date, end_date, status, created_at, updated_at
		FROM budgets WHERE id = ?
	`
	b, err := scanBudget(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

// List retrieves budgets matching the filter
func (r *BudgetRepository) List(ctx context.Context, filter budget.Filter) ([]*budget.Budget, error) {
	defer track("budget_list")()

	query := `
		SELECT id, name, period_type, amount, currency, scope, scope_id, start_date, end_date, status, created_at, updated_at
		FROM budgets WHERE 1=1
	`
	var args []interface{}
	if filter.Scope != "" {
		query += " AND scope = ?"
		args = append(args, filter.Scope)
	}
	if filter.ScopeID != "" {
		query += " AND scope_id = ?"
		args = append(args, filter.ScopeID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*budget.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Update persists budget field changes
func (r *BudgetRepository) Update(ctx context.Context, b *budget.Budget) error {
	defer track("budget_update")()

	b.UpdatedAt = time.Now()
	query := `
		UPDATE budgets SET name = ?, period_type = ?, amount = ?, currency = ?, scope = ?, scope_id = ?, start_date = ?, end_date = ?, status = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		b.Name, b.PeriodType, b.Amount, b.Currency, b.Scope, b.ScopeID,
		formatTime(b.StartDate), formatTime(b.EndDate), b.Status,
		formatTime(b.UpdatedAt), b.ID,
	)
	return err
}

// CreateAlert inserts a budget alert
func (r *BudgetRepository) CreateAlert(ctx context.Context, a *budget.Alert) error {
	defer track("alert_create")()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	query := `
		INSERT INTO budget_alerts (id, budget_id, alert_type, threshold_percentage, current_amount, percentage_used, status, trigger_count, last_triggered, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.BudgetID, a.AlertType, a.ThresholdPercentage, a.CurrentAmount, a.PercentageUsed,
		a.Status, a.TriggerCount, nullableTime(a.LastTriggered),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	return err
}

// ListEvaluableAlerts returns alerts whose parent budget is active and
// whose own status is active or triggered, joined with their budget
func (r *BudgetRepository) ListEvaluableAlerts(ctx context.Context) ([]*budget.EvaluableAlert, error) {
	defer track("alert_list_evaluable")()

	query := `
		SELECT a.id, a.budget_id, a.alert_type, a.threshold_percentage, a.current_amount, a.percentage_used, a.status, a.trigger_count, a.last_triggered, a.created_at, a.updated_at,
		       b.id, b.name, b.period_type, b.amount, b.currency, b.scope, b.scope_id, b.start_date, b.end_date, b.status, b.created_at, b.updated_at
		FROM budget_alerts a
		JOIN budgets b ON b.id = a.budget_id
		WHERE b.status = ? AND a.status IN (?, ?)
		ORDER BY a.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, budget.StatusActive, budget.AlertActive, budget.AlertTriggered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*budget.EvaluableAlert
	for rows.Next() {
		a := &budget.Alert{}
		b := &budget.Budget{}
		var lastTriggered sql.NullString
		var aCreated, aUpdated, bStart, bEnd, bCreated, bUpdated string
		err := rows.Scan(
			&a.ID, &a.BudgetID, &a.AlertType, &a.ThresholdPercentage, &a.CurrentAmount, &a.PercentageUsed,
			&a.Status, &a.TriggerCount, &lastTriggered, &aCreated, &aUpdated,
			&b.ID, &b.Name, &b.PeriodType, &b.Amount, &b.Currency, &b.Scope, &b.ScopeID,
			&bStart, &bEnd, &b.Status, &bCreated, &bUpdated,
		)
		if err != nil {
			return nil, err
		}
		if lastTriggered.Valid {
			t := parseTime(lastTriggered.String)
			a.LastTriggered = &t
		}
		a.CreatedAt, a.UpdatedAt = parseTime(aCreated), parseTime(aUpdated)
		b.StartDate, b.EndDate = parseTime(bStart), parseTime(bEnd)
		b.CreatedAt, b.UpdatedAt = parseTime(bCreated), parseTime(bUpdated)
		out = append(out, &budget.EvaluableAlert{Alert: a, Budget: b})
	}
	return out, rows.Err()
}

// UpdateAlertState persists the evaluated alert fields
func (r *BudgetRepository) UpdateAlertState(ctx context.Context, a *budget.Alert) error {
	defer track("alert_update_state")()

	a.UpdatedAt = time.Now()
	query := `
		UPDATE budget_alerts SET current_amount = ?, percentage_used = ?, status = ?, trigger_count = ?, last_triggered = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		a.CurrentAmount, a.PercentageUsed, a.Status, a.TriggerCount,
		nullableTime(a.LastTriggered), formatTime(a.UpdatedAt), a.ID,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBudget(row rowScanner) (*budget.Budget, error) {
	b := &budget.Budget{}
	var start, end, created, updated string
	err := row.Scan(
		&b.ID, &b.Name, &b.PeriodType, &b.Amount, &b.Currency, &b.Scope, &b.ScopeID,
		&start, &end, &b.Status, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	b.StartDate, b.EndDate = parseTime(start), parseTime(end)
	b.CreatedAt, b.UpdatedAt = parseTime(created), parseTime(updated)
	return b, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
