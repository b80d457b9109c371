package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"costwatch/internal/domain/anomaly"
	"costwatch/internal/domain/budget"
	"costwatch/internal/domain/cost"
	"costwatch/internal/domain/forecast"
	"costwatch/internal/domain/optimization"
)

// FakeClock is a manually steppable clock for deterministic tests.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockCostRepository is an in-memory implementation of cost.Repository
// that computes every aggregate from the raw records.
type MockCostRepository struct {
	Records []*cost.Record

	SumError   error
	QueryError error
}

func NewMockCostRepository() *MockCostRepository {
	return &MockCostRepository{}
}

// Add appends records without going through Create.
func (m *MockCostRepository) Add(records ...*cost.Record) {
	m.Records = append(m.Records, records...)
}

func (m *MockCostRepository) Create(ctx context.Context, r *cost.Record) error {
	m.Records = append(m.Records, r)
	return nil
}

func (m *MockCostRepository) matching(f cost.Filter, w cost.Window) []*cost.Record {
	var out []*cost.Record
	for _, r := range m.Records {
		if r.PeriodStart.Before(w.Start) || !r.PeriodStart.Before(w.End) {
			continue
		}
		if f.ResourceID != "" && r.ResourceID != f.ResourceID {
			continue
		}
		if f.ResourceType != "" && r.ResourceType != f.ResourceType {
			continue
		}
		if f.Provider != "" && r.Provider != f.Provider {
			continue
		}
		if f.Region != "" && r.Region != f.Region {
			continue
		}
		if f.ServiceName != "" && r.ServiceName != f.ServiceName {
			continue
		}
		if f.WorkspaceID != "" && r.WorkspaceID != f.WorkspaceID {
			continue
		}
		if f.TeamID != "" && r.TeamID != f.TeamID {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (m *MockCostRepository) SumCost(ctx context.Context, f cost.Filter, w cost.Window) (float64, error) {
	if m.SumError != nil {
		return 0, m.SumError
	}
	var total float64
	for _, r := range m.matching(f, w) {
		total += r.Cost
	}
	return total, nil
}

func (m *MockCostRepository) SumUsage(ctx context.Context, f cost.Filter, w cost.Window) (float64, error) {
	if m.QueryError != nil {
		return 0, m.QueryError
	}
	var total float64
	for _, r := range m.matching(f, w) {
		total += r.UsageAmount
	}
	return total, nil
}

func (m *MockCostRepository) CountRecords(ctx context.Context, f cost.Filter, w cost.Window) (int64, error) {
	if m.QueryError != nil {
		return 0, m.QueryError
	}
	return int64(len(m.matching(f, w))), nil
}

func (m *MockCostRepository) CountDistinctResources(ctx context.Context, f cost.Filter, w cost.Window) (int64, error) {
	if m.QueryError != nil {
		return 0, m.QueryError
	}
	seen := map[string]bool{}
	for _, r := range m.matching(f, w) {
		seen[r.ResourceID] = true
	}
	return int64(len(seen)), nil
}

func (m *MockCostRepository) BreakdownBy(ctx context.Context, dimension string, f cost.Filter, w cost.Window) ([]cost.Breakdown, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	totals := map[string]float64{}
	for _, r := range m.matching(f, w) {
		var key string
		switch dimension {
		case cost.GroupByRegion:
			key = r.Region
		case cost.GroupByTeam:
			key = r.TeamID
		default:
			key = r.ServiceName
		}
		totals[key] += r.Cost
	}
	var out []cost.Breakdown
	for k, v := range totals {
		out = append(out, cost.Breakdown{Key: k, Cost: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cost > out[j].Cost })
	return out, nil
}

func (m *MockCostRepository) DailyTotals(ctx context.Context, f cost.Filter, w cost.Window) ([]cost.DailyPoint, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	totals := map[string]float64{}
	for _, r := range m.matching(f, w) {
		totals[r.PeriodStart.UTC().Format("2006-01-02")] += r.Cost
	}
	return sortedDailyPoints(totals), nil
}

func (m *MockCostRepository) GroupedDailyTotals(ctx context.Context, w cost.Window) ([]cost.GroupSeries, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	type groupKey struct{ rt, region string }
	grouped := map[groupKey]map[string]float64{}
	for _, r := range m.matching(cost.Filter{}, w) {
		k := groupKey{r.ResourceType, r.Region}
		if grouped[k] == nil {
			grouped[k] = map[string]float64{}
		}
		grouped[k][r.PeriodStart.UTC().Format("2006-01-02")] += r.Cost
	}
	var keys []groupKey
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].rt != keys[j].rt {
			return keys[i].rt < keys[j].rt
		}
		return keys[i].region < keys[j].region
	})
	var out []cost.GroupSeries
	for _, k := range keys {
		out = append(out, cost.GroupSeries{
			ResourceType: k.rt,
			Region:       k.region,
			Points:       sortedDailyPoints(grouped[k]),
		})
	}
	return out, nil
}

func (m *MockCostRepository) HourlyAverages(ctx context.Context, f cost.Filter, w cost.Window) ([]cost.HourlyPoint, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	sums := map[int]float64{}
	counts := map[int]int{}
	for _, r := range m.matching(f, w) {
		h := r.PeriodStart.UTC().Hour()
		sums[h] += r.Cost
		counts[h]++
	}
	var out []cost.HourlyPoint
	for h := 0; h < 24; h++ {
		if counts[h] == 0 {
			continue
		}
		out = append(out, cost.HourlyPoint{Hour: h, AvgCost: sums[h] / float64(counts[h])})
	}
	return out, nil
}

func (m *MockCostRepository) ResourceUsageStats(ctx context.Context, f cost.Filter, w cost.Window) ([]cost.ResourceUsage, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	type agg struct {
		rt    string
		usage float64
		cost  float64
		n     int
	}
	aggs := map[string]*agg{}
	for _, r := range m.matching(f, w) {
		a := aggs[r.ResourceID]
		if a == nil {
			a = &agg{rt: r.ResourceType}
			aggs[r.ResourceID] = a
		}
		a.usage += r.UsageAmount
		a.cost += r.Cost
		a.n++
	}
	var ids []string
	for id := range aggs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []cost.ResourceUsage
	for _, id := range ids {
		a := aggs[id]
		out = append(out, cost.ResourceUsage{
			ResourceID:   id,
			ResourceType: a.rt,
			AvgUsage:     a.usage / float64(a.n),
			TotalCost:    a.cost,
		})
	}
	return out, nil
}

func (m *MockCostRepository) ModelExecutionStats(ctx context.Context, f cost.Filter, w cost.Window) ([]cost.ModelStats, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	type agg struct {
		n       int64
		cost    float64
		success int64
	}
	aggs := map[string]*agg{}
	for _, r := range m.matching(f, w) {
		if r.ModelName == "" {
			continue
		}
		a := aggs[r.ModelName]
		if a == nil {
			a = &agg{}
			aggs[r.ModelName] = a
		}
		a.n++
		a.cost += r.Cost
		if r.Success {
			a.success++
		}
	}
	var names []string
	for name := range aggs {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []cost.ModelStats
	for _, name := range names {
		a := aggs[name]
		out = append(out, cost.ModelStats{
			ModelName:      name,
			ExecutionCount: a.n,
			AvgCost:        a.cost / float64(a.n),
			TotalCost:      a.cost,
			SuccessRate:    float64(a.success) / float64(a.n),
		})
	}
	return out, nil
}

func (m *MockCostRepository) SuccessRate(ctx context.Context, f cost.Filter, w cost.Window) (float64, error) {
	if m.QueryError != nil {
		return 0, m.QueryError
	}
	records := m.matching(f, w)
	if len(records) == 0 {
		return 1, nil
	}
	var success int
	for _, r := range records {
		if r.Success {
			success++
		}
	}
	return float64(success) / float64(len(records)), nil
}

func sortedDailyPoints(totals map[string]float64) []cost.DailyPoint {
	var days []string
	for d := range totals {
		days = append(days, d)
	}
	sort.Strings(days)
	var out []cost.DailyPoint
	for _, d := range days {
		date, _ := time.Parse("2006-01-02", d)
		out = append(out, cost.DailyPoint{Date: date, Cost: totals[d]})
	}
	return out
}

// MockBudgetRepository is an in-memory implementation of budget.Repository.
type MockBudgetRepository struct {
	Budgets map[string]*budget.Budget
	Alerts  map[string]*budget.Alert

	ListError   error
	UpdateError error
}

func NewMockBudgetRepository() *MockBudgetRepository {
	return &MockBudgetRepository{
		Budgets: make(map[string]*budget.Budget),
		Alerts:  make(map[string]*budget.Alert),
	}
}

func (m *MockBudgetRepository) Create(ctx context.Context, b *budget.Budget) error {
	m.Budgets[b.ID] = b
	return nil
}

func (m *MockBudgetRepository) GetByID(ctx context.Context, id string) (*budget.Budget, error) {
	return m.Budgets[id], nil
}

func (m *MockBudgetRepository) List(ctx context.Context, filter budget.Filter) ([]*budget.Budget, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	var ids []string
	for id := range m.Budgets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []*budget.Budget
	for _, id := range ids {
		b := m.Budgets[id]
		if filter.Scope != "" && b.Scope != filter.Scope {
			continue
		}
		if filter.ScopeID != "" && b.ScopeID != filter.ScopeID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *MockBudgetRepository) Update(ctx context.Context, b *budget.Budget) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.Budgets[b.ID] = b
	return nil
}

func (m *MockBudgetRepository) CreateAlert(ctx context.Context, a *budget.Alert) error {
	m.Alerts[a.ID] = a
	return nil
}

func (m *MockBudgetRepository) ListEvaluableAlerts(ctx context.Context) ([]*budget.EvaluableAlert, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	var ids []string
	for id := range m.Alerts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []*budget.EvaluableAlert
	for _, id := range ids {
		a := m.Alerts[id]
		b := m.Budgets[a.BudgetID]
		if b == nil || b.Status != budget.StatusActive {
			continue
		}
		if a.Status != budget.AlertActive && a.Status != budget.AlertTriggered {
			continue
		}
		out = append(out, &budget.EvaluableAlert{Alert: a, Budget: b})
	}
	return out, nil
}

func (m *MockBudgetRepository) UpdateAlertState(ctx context.Context, a *budget.Alert) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.Alerts[a.ID] = a
	return nil
}

// MockAnomalyRepository is an in-memory implementation of anomaly.Repository.
type MockAnomalyRepository struct {
	Anomalies []*anomaly.Anomaly

	CreateError error
	LookupError error
}

func NewMockAnomalyRepository() *MockAnomalyRepository {
	return &MockAnomalyRepository{}
}

func (m *MockAnomalyRepository) Create(ctx context.Context, a *anomaly.Anomaly) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.Anomalies = append(m.Anomalies, a)
	return nil
}

func (m *MockAnomalyRepository) List(ctx context.Context, filter anomaly.Filter, limit, offset int) ([]*anomaly.Anomaly, int64, error) {
	var out []*anomaly.Anomaly
	for _, a := range m.Anomalies {
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.ResourceType != "" && a.ResourceType != filter.ResourceType {
			continue
		}
		out = append(out, a)
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *MockAnomalyRepository) CountOpenSince(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.LookupError != nil {
		return 0, m.LookupError
	}
	var n int64
	for _, a := range m.Anomalies {
		if a.Status == anomaly.StatusOpen && !a.DetectedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (m *MockAnomalyRepository) HasOpenForGroup(ctx context.Context, resourceType, region string) (bool, error) {
	if m.LookupError != nil {
		return false, m.LookupError
	}
	for _, a := range m.Anomalies {
		if a.Status == anomaly.StatusOpen && a.ResourceType == resourceType && a.Region == region {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockAnomalyRepository) UpdateStatus(ctx context.Context, id, status string) error {
	for _, a := range m.Anomalies {
		if a.ID == id {
			a.Status = status
			return nil
		}
	}
	return fmt.Errorf("anomaly not found")
}

// MockPredictionRepository is an in-memory implementation of forecast.Repository.
type MockPredictionRepository struct {
	Predictions map[string]*forecast.Prediction

	UpsertError error
}

func NewMockPredictionRepository() *MockPredictionRepository {
	return &MockPredictionRepository{Predictions: make(map[string]*forecast.Prediction)}
}

func predictionKey(algorithm, period string) string {
	return algorithm + "/" + period
}

func (m *MockPredictionRepository) Upsert(ctx context.Context, p *forecast.Prediction) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.Predictions[predictionKey(p.Algorithm, p.Period)] = p
	return nil
}

func (m *MockPredictionRepository) Get(ctx context.Context, algorithm, period string) (*forecast.Prediction, error) {
	return m.Predictions[predictionKey(algorithm, period)], nil
}

func (m *MockPredictionRepository) List(ctx context.Context) ([]*forecast.Prediction, error) {
	var keys []string
	for k := range m.Predictions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []*forecast.Prediction
	for _, k := range keys {
		out = append(out, m.Predictions[k])
	}
	return out, nil
}

// MockRecommendationRepository is an in-memory implementation of
// optimization.Repository.
type MockRecommendationRepository struct {
	Recommendations map[string]*optimization.Recommendation

	UpsertError error
}

func NewMockRecommendationRepository() *MockRecommendationRepository {
	return &MockRecommendationRepository{Recommendations: make(map[string]*optimization.Recommendation)}
}

func (m *MockRecommendationRepository) Upsert(ctx context.Context, r *optimization.Recommendation) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.Recommendations[r.ID] = r
	return nil
}

func (m *MockRecommendationRepository) List(ctx context.Context, status string, limit, offset int) ([]*optimization.Recommendation, int64, error) {
	var out []*optimization.Recommendation
	for _, r := range m.Recommendations {
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EstimatedSavings > out[j].EstimatedSavings })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *MockRecommendationRepository) UpdateStatus(ctx context.Context, id, status string) error {
	r, ok := m.Recommendations[id]
	if !ok {
		return fmt.Errorf("recommendation not found")
	}
	r.Status = status
	return nil
}

func (m *MockRecommendationRepository) TotalPendingSavings(ctx context.Context) (float64, error) {
	var total float64
	for _, r := range m.Recommendations {
		if r.Status == optimization.StatusPending {
			total += r.EstimatedSavings
		}
	}
	return total, nil
}

// RecordingNotifier captures notifications for assertions.
type RecordingNotifier struct {
	mu    sync.Mutex
	Calls []NotifyCall

	Err error
}

// NotifyCall is one captured notification.
type NotifyCall struct {
	AlertName      string
	PercentageUsed float64
	Severity       string
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Notify(ctx context.Context, alertName string, percentageUsed float64, severity string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Calls = append(n.Calls, NotifyCall{AlertName: alertName, PercentageUsed: percentageUsed, Severity: severity})
	return n.Err
}
