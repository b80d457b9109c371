package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"costwatch/internal/config"
	"costwatch/internal/domain/cost"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(config.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "costwatch_test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenBootstrapIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "costwatch_test.db")
	cfg := config.DatabaseConfig{Path: path, MaxOpenConns: 1, MaxIdleConns: 1}

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}

	repo := NewCostRepository(db)
	rec := &cost.Record{
		ResourceID:   "r-1",
		ResourceType: "compute",
		Provider:     "aws",
		ServiceName:  "api",
		Cost:         10,
		PeriodStart:  time.Date(2025, 6, 30, 10, 0, 0, 0, time.UTC),
		PeriodEnd:    time.Date(2025, 6, 30, 11, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_ = db.Close()

	// Reopening the same file re-runs bootstrap without clobbering data.
	db, err = Open(cfg)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer db.Close()

	n, err := NewCostRepository(db).CountRecords(context.Background(), cost.Filter{}, cost.Window{
		Start: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CountRecords() error = %v", err)
	}
	if n != 1 {
		t.Errorf("records after reopen = %d, want 1", n)
	}
}

func TestBootstrapCreatesFilterIndexes(t *testing.T) {
	db := openTestDB(t)

	indexed := func(table, column string) bool {
		rows, err := db.Query(
			`SELECT sql FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND sql IS NOT NULL`, table)
		if err != nil {
			t.Fatalf("querying sqlite_master: %v", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ddl string
			if err := rows.Scan(&ddl); err != nil {
				t.Fatalf("scanning index ddl: %v", err)
			}
			if strings.Contains(ddl, column) {
				return true
			}
		}
		return false
	}

	// Every column the repositories filter on needs a covering index.
	for _, tc := range []struct{ table, column string }{
		{"cost_records", "period_start"},
		{"cost_records", "resource_id"},
		{"cost_records", "resource_type"},
		{"cost_records", "model_name"},
		{"cost_records", "provider"},
		{"cost_records", "workspace_id"},
		{"cost_records", "team_id"},
		{"cost_anomalies", "severity"},
		{"cost_anomalies", "status"},
		{"budget_alerts", "status"},
	} {
		if !indexed(tc.table, tc.column) {
			t.Errorf("no index covers %s.%s", tc.table, tc.column)
		}
	}
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2025, 6, 30, 10, 30, 45, 123456789, time.UTC)
	out := parseTime(formatTime(in))
	if !out.Equal(in.Truncate(time.Second)) {
		t.Errorf("round trip = %v, want %v", out, in.Truncate(time.Second))
	}
	if !parseTime("").IsZero() {
		t.Error("parseTime(\"\") should be zero")
	}
}
