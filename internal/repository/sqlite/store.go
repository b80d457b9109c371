package sqlite

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"costwatch/internal/config"
	"costwatch/internal/pkg/metrics"
)

// Open opens (or creates) the database at cfg.Path, enables WAL and
// bootstraps the schema. Bootstrap is idempotent.
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := bootstrap(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func bootstrap(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS cost_records (
    id TEXT PRIMARY KEY,
    resource_id TEXT NOT NULL,
    resource_type TEXT NOT NULL,
    provider TEXT NOT NULL,
    region TEXT NOT NULL DEFAULT '',
    service_name TEXT NOT NULL,
    model_name TEXT NOT NULL DEFAULT '',
    cost REAL NOT NULL,
    usage_amount REAL NOT NULL DEFAULT 0,
    usage_unit TEXT NOT NULL DEFAULT '',
    success INTEGER NOT NULL DEFAULT 1,
    period_start TEXT NOT NULL,
    period_end TEXT NOT NULL,
    workspace_id TEXT NOT NULL DEFAULT '',
    team_id TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cost_records_period_start ON cost_records(period_start);
CREATE INDEX IF NOT EXISTS idx_cost_records_group ON cost_records(resource_type, region, period_start);
CREATE INDEX IF NOT EXISTS idx_cost_records_resource ON cost_records(resource_id, period_start);
CREATE INDEX IF NOT EXISTS idx_cost_records_model ON cost_records(model_name, period_start);
CREATE INDEX IF NOT EXISTS idx_cost_records_provider ON cost_records(provider, period_start);
CREATE INDEX IF NOT EXISTS idx_cost_records_workspace ON cost_records(workspace_id, period_start);
CREATE INDEX IF NOT EXISTS idx_cost_records_team ON cost_records(team_id, period_start);

CREATE TABLE IF NOT EXISTS budgets (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    period_type TEXT NOT NULL,
    amount REAL NOT NULL,
    currency TEXT NOT NULL DEFAULT 'USD',
    scope TEXT NOT NULL,
    scope_id TEXT NOT NULL DEFAULT '',
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_budgets_status ON budgets(status);

CREATE TABLE IF NOT EXISTS budget_alerts (
    id TEXT PRIMARY KEY,
    budget_id TEXT NOT NULL REFERENCES budgets(id),
    alert_type TEXT NOT NULL,
    threshold_percentage REAL NOT NULL,
    current_amount REAL NOT NULL DEFAULT 0,
    percentage_used REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'active',
    trigger_count INTEGER NOT NULL DEFAULT 0,
    last_triggered TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_budget_alerts_budget ON budget_alerts(budget_id);
CREATE INDEX IF NOT EXISTS idx_budget_alerts_status ON budget_alerts(status);

CREATE TABLE IF NOT EXISTS cost_anomalies (
    id TEXT PRIMARY KEY,
    algorithm TEXT NOT NULL,
    anomaly_type TEXT NOT NULL,
    severity TEXT NOT NULL,
    resource_type TEXT NOT NULL,
    region TEXT NOT NULL DEFAULT '',
    baseline_cost REAL NOT NULL,
    actual_cost REAL NOT NULL,
    deviation_pct REAL NOT NULL,
    confidence_score REAL NOT NULL,
    root_cause TEXT NOT NULL DEFAULT '',
    suggested_actions TEXT NOT NULL DEFAULT '[]',
    status TEXT NOT NULL DEFAULT 'open',
    detected_at TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cost_anomalies_status ON cost_anomalies(status, detected_at);
CREATE INDEX IF NOT EXISTS idx_cost_anomalies_group ON cost_anomalies(resource_type, region, status);
CREATE INDEX IF NOT EXISTS idx_cost_anomalies_severity ON cost_anomalies(severity, detected_at);

CREATE TABLE IF NOT EXISTS cost_predictions (
    id TEXT PRIMARY KEY,
    horizon_class TEXT NOT NULL,
    period TEXT NOT NULL,
    algorithm TEXT NOT NULL,
    predicted_cost REAL NOT NULL,
    lower_bound REAL NOT NULL,
    upper_bound REAL NOT NULL,
    interval_confidence REAL NOT NULL,
    confidence_score REAL NOT NULL,
    trend TEXT NOT NULL,
    contributing_factors TEXT NOT NULL DEFAULT '[]',
    scenarios TEXT NOT NULL DEFAULT '[]',
    generated_at TEXT NOT NULL,
    valid_until TEXT NOT NULL,
    UNIQUE(algorithm, period)
);

CREATE TABLE IF NOT EXISTS optimization_recommendations (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    category TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    estimated_savings REAL NOT NULL,
    savings_percent REAL NOT NULL DEFAULT 0,
    confidence_score REAL NOT NULL DEFAULT 0,
    priority TEXT NOT NULL,
    impact TEXT NOT NULL DEFAULT 'medium',
    effort TEXT NOT NULL DEFAULT 'medium',
    implementation_steps TEXT NOT NULL DEFAULT '[]',
    affected_resources TEXT NOT NULL DEFAULT '[]',
    auto_implementable INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recommendations_status ON optimization_recommendations(status, estimated_savings);
`)
	return err
}

// timeLayout is the canonical storage format for timestamps. RFC 3339
// at second precision in UTC sorts lexicographically, which the window
// queries rely on, and SQLite's date functions parse it natively.
const timeLayout = time.RFC3339

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// track times a store query for the Prometheus histogram.
func track(query string) func() {
	start := time.Now()
	return func() {
		metrics.RecordStoreQuery(query, time.Since(start))
	}
}
