package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"costwatch/internal/domain/budget"
	"costwatch/internal/domain/cost"
	"costwatch/internal/domain/notification"
	apperrors "costwatch/internal/pkg/errors"
	"costwatch/internal/pkg/logger"
	"costwatch/internal/pkg/metrics"
	"costwatch/internal/pkg/validator"
)

// Default threshold percentages applied when a budget is created
// without any.
var defaultThresholds = []float64{50, 80, 100}

// BudgetService implements budget.Service.
type BudgetService struct {
	budgets  budget.Repository
	costs    cost.Repository
	notifier notification.Notifier
	validate *validator.Validator
	log      *logger.Logger
	now      Clock

	// Serializes alert evaluation so concurrent CheckAlerts calls
	// cannot double-count a transition.
	evalMu sync.Mutex
}

// NewBudgetService creates a new budget service
func NewBudgetService(budgets budget.Repository, costs cost.Repository, notifier notification.Notifier, log *logger.Logger, now Clock) *BudgetService {
	if now == nil {
		now = time.Now
	}
	return &BudgetService{
		budgets:  budgets,
		costs:    costs,
		notifier: notifier,
		validate: validator.New(),
		log:      log,
		now:      now,
	}
}

// Create validates the spec and persists a budget with one threshold
// alert per requested percentage.
func (s *BudgetService) Create(ctx context.Context, spec budget.CreateSpec) (*budget.Budget, error) {
	if verrs := s.validate.Validate(spec); len(verrs) > 0 {
		return nil, apperrors.ValidationError("invalid budget spec", verrs)
	}

	now := s.now()
	b := &budget.Budget{
		ID:         uuid.New().String(),
		Name:       spec.Name,
		PeriodType: spec.PeriodType,
		Amount:     spec.Amount,
		Currency:   spec.Currency,
		Scope:      spec.Scope,
		ScopeID:    spec.ScopeID,
		StartDate:  spec.StartDate,
		EndDate:    spec.EndDate,
		Status:     budget.StatusActive,
		CreatedAt:  now,
	}
	if b.Currency == "" {
		b.Currency = "USD"
	}
	if b.StartDate.IsZero() {
		b.StartDate = now
	}

	if err := s.budgets.Create(ctx, b); err != nil {
		return nil, apperrors.StoreError("failed to create budget", err)
	}

	thresholds := spec.ThresholdPercentages
	if len(thresholds) == 0 {
		thresholds = defaultThresholds
	}
	for _, pct := range thresholds {
		alert := &budget.Alert{
			ID:                  uuid.New().String(),
			BudgetID:            b.ID,
			AlertType:           budget.AlertTypeThreshold,
			ThresholdPercentage: pct,
			Status:              budget.AlertActive,
			CreatedAt:           now,
		}
		if err := s.budgets.CreateAlert(ctx, alert); err != nil {
			return nil, apperrors.StoreError("failed to create budget alert", err)
		}
	}

	s.log.WithFields(map[string]interface{}{
		"budget_id": b.ID,
		"scope":     b.Scope,
		"amount":    b.Amount,
	}).Info("budget created")
	return b, nil
}

// Get retrieves a budget by ID
func (s *BudgetService) Get(ctx context.Context, id string) (*budget.Budget, error) {
	b, err := s.budgets.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.StoreError("failed to get budget", err)
	}
	if b == nil {
		return nil, apperrors.NotFound("budget")
	}
	return b, nil
}

// List retrieves budgets matching the filter
func (s *BudgetService) List(ctx context.Context, filter budget.Filter) ([]*budget.Budget, error) {
	out, err := s.budgets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.StoreError("failed to list budgets", err)
	}
	return out, nil
}

// CheckAlerts evaluates every evaluable alert against current spend and
// drives the alert state machine. Notification failures are logged and
// never roll back a state transition.
func (s *BudgetService) CheckAlerts(ctx context.Context) error {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()

	alerts, err := s.budgets.ListEvaluableAlerts(ctx)
	if err != nil {
		return apperrors.StoreError("failed to list evaluable alerts", err)
	}

	now := s.now()
	for _, ea := range alerts {
		if err := s.evaluateAlert(ctx, ea, now); err != nil {
			s.log.WithFields(map[string]interface{}{
				"alert_id":  ea.Alert.ID,
				"budget_id": ea.Budget.ID,
			}).ErrorWithErr(err, "alert evaluation failed")
		}
	}
	return nil
}

func (s *BudgetService) evaluateAlert(ctx context.Context, ea *budget.EvaluableAlert, now time.Time) error {
	a, b := ea.Alert, ea.Budget
	if b.Amount <= 0 {
		// Degenerate budget, cannot compute utilization.
		return nil
	}

	spend, err := s.costs.SumCost(ctx, scopeFilter(b), budgetWindow(b, now))
	if err != nil {
		return apperrors.StoreError("failed to compute current spend", err)
	}

	a.CurrentAmount = spend
	a.PercentageUsed = spend / b.Amount * 100

	switch {
	case a.Status == budget.AlertActive && a.PercentageUsed >= a.ThresholdPercentage:
		a.Status = budget.AlertTriggered
		a.TriggerCount++
		t := now
		a.LastTriggered = &t
		metrics.RecordAlertTriggered()

		severity := notification.SeverityForAlertType(a.AlertType)
		if err := s.notifier.Notify(ctx, b.Name, a.PercentageUsed, severity); err != nil {
			s.log.WithFields(map[string]interface{}{
				"alert_id": a.ID,
				"budget":   b.Name,
			}).ErrorWithErr(apperrors.NotifierError(err), "alert notification failed")
		}

	case a.Status == budget.AlertTriggered && a.PercentageUsed < a.ThresholdPercentage:
		a.Status = budget.AlertResolved
		metrics.RecordAlertResolved()
	}

	if err := s.budgets.UpdateAlertState(ctx, a); err != nil {
		return apperrors.StoreError("failed to persist alert state", err)
	}
	return nil
}

// budgetWindow returns the current evaluation window for a budget: the
// start of its running period through now.
func budgetWindow(b *budget.Budget, now time.Time) cost.Window {
	var start time.Time
	y, m, d := now.UTC().Date()
	switch b.PeriodType {
	case budget.PeriodDaily:
		start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case budget.PeriodWeekly:
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // Monday start
		start = day.AddDate(0, 0, -offset)
	case budget.PeriodMonthly:
		start = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case budget.PeriodQuarterly:
		qm := time.Month((int(m)-1)/3*3 + 1)
		start = time.Date(y, qm, 1, 0, 0, 0, 0, time.UTC)
	case budget.PeriodYearly:
		start = time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		start = b.StartDate
	}
	if !b.StartDate.IsZero() && b.StartDate.After(start) {
		start = b.StartDate
	}
	return cost.Window{Start: start, End: now}
}

// scopeFilter maps a budget's scope to a cost filter. User-level
// attribution is not present on cost records yet, so user-scoped
// budgets evaluate globally.
func scopeFilter(b *budget.Budget) cost.Filter {
	switch b.Scope {
	case budget.ScopeWorkspace:
		return cost.Filter{WorkspaceID: b.ScopeID}
	case budget.ScopeTeam:
		return cost.Filter{TeamID: b.ScopeID}
	case budget.ScopeResourceType:
		return cost.Filter{ResourceType: b.ScopeID}
	default:
		return cost.Filter{}
	}
}
