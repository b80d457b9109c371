package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"costwatch/internal/domain/forecast"
)

// PredictionRepository implements forecast.Repository on SQLite.
type PredictionRepository struct {
	db *sql.DB
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Upsert replaces the stored prediction for the (algorithm, period) key
func (r *PredictionRepository) Upsert(ctx context.Context, p *forecast.Prediction) error {
	defer track("prediction_upsert")()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	factors, err := json.Marshal(p.ContributingFactors)
	if err != nil {
		return err
	}
	scenarios, err := json.Marshal(p.Scenarios)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO cost_predictions (id, horizon_class, period, algorithm, predicted_cost, lower_bound, upper_bound, interval_confidence, confidence_score, trend, contributing_factors, scenarios, generated_at, valid_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(algorithm, period) DO UPDATE SET
		  id=excluded.id,
		  horizon_class=excluded.horizon_class,
		  predicted_cost=excluded.predicted_cost,
		  lower_bound=excluded.lower_bound,
		  upper_bound=excluded.upper_bound,
		  interval_confidence=excluded.interval_confidence,
		  confidence_score=excluded.confidence_score,
		  trend=excluded.trend,
		  contributing_factors=excluded.contributing_factors,
		  scenarios=excluded.scenarios,
		  generated_at=excluded.generated_at,
		  valid_until=excluded.valid_until
	`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.HorizonClass, p.Period, p.Algorithm,
		p.PredictedCost, p.LowerBound, p.UpperBound, p.IntervalConfidence, p.ConfidenceScore,
		p.Trend, string(factors), string(scenarios),
		formatTime(p.GeneratedAt), formatTime(p.ValidUntil),
	)
	return err
}

// Get retrieves the stored prediction for the (algorithm, period) key,
// or nil when none has been generated yet
func (r *PredictionRepository) Get(ctx context.Context, algorithm, period string) (*forecast.Prediction, error) {
	defer track("prediction_get")()

	query := `
		SELECT id, horizon_class, period, algorithm, predicted_cost, lower_bound, upper_bound, interval_confidence, confidence_score, trend, contributing_factors, scenarios, generated_at, valid_until
		FROM cost_predictions WHERE algorithm = ? AND period = ?
	`
	p, err := scanPrediction(r.db.QueryRowContext(ctx, query, algorithm, period))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// List retrieves all stored predictions
func (r *PredictionRepository) List(ctx context.Context) ([]*forecast.Prediction, error) {
	defer track("prediction_list")()

	query := `
		SELECT id, horizon_class, period, algorithm, predicted_cost, lower_bound, upper_bound, interval_confidence, confidence_score, trend, contributing_factors, scenarios, generated_at, valid_until
		FROM cost_predictions ORDER BY generated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*forecast.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPrediction(row rowScanner) (*forecast.Prediction, error) {
	p := &forecast.Prediction{}
	var factors, scenarios, generated, valid string
	err := row.Scan(
		&p.ID, &p.HorizonClass, &p.Period, &p.Algorithm,
		&p.PredictedCost, &p.LowerBound, &p.UpperBound, &p.IntervalConfidence, &p.ConfidenceScore,
		&p.Trend, &factors, &scenarios, &generated, &valid,
	)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(factors), &p.ContributingFactors)
	_ = json.Unmarshal([]byte(scenarios), &p.Scenarios)
	p.GeneratedAt, p.ValidUntil = parseTime(generated), parseTime(valid)
	return p, nil
}
