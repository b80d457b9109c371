package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "./costwatch.db" {
		t.Errorf("Database.Path = %s, want ./costwatch.db", cfg.Database.Path)
	}
	if cfg.Monitor.Interval != 5*time.Minute {
		t.Errorf("Monitor.Interval = %s, want 5m", cfg.Monitor.Interval)
	}
	if cfg.Monitor.TickTimeout != 2*time.Minute {
		t.Errorf("Monitor.TickTimeout = %s, want 2m", cfg.Monitor.TickTimeout)
	}
	if cfg.Anomaly.SkipOpenDuplicates {
		t.Error("Anomaly.SkipOpenDuplicates should default to false")
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.ListenAddr != ":9090" {
		t.Errorf("Metrics = %+v, want enabled on :9090", cfg.Metrics)
	}
	if cfg.Jobs.ForecastRefreshSpec != "0 2 * * *" {
		t.Errorf("Jobs.ForecastRefreshSpec = %s, want 0 2 * * *", cfg.Jobs.ForecastRefreshSpec)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_PATH", "/var/lib/costwatch/data.db")
	t.Setenv("MONITOR_INTERVAL", "1m")
	t.Setenv("ANOMALY_SKIP_OPEN_DUPLICATES", "true")
	t.Setenv("PROM_METRICS_ENABLED", "false")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/var/lib/costwatch/data.db" {
		t.Errorf("Database.Path = %s", cfg.Database.Path)
	}
	if cfg.Monitor.Interval != time.Minute {
		t.Errorf("Monitor.Interval = %s, want 1m", cfg.Monitor.Interval)
	}
	if !cfg.Anomaly.SkipOpenDuplicates {
		t.Error("Anomaly.SkipOpenDuplicates = false, want true")
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
	// Unparseable values fall back to defaults.
	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("Database.MaxOpenConns = %d, want default 10", cfg.Database.MaxOpenConns)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, true},
		{"zero monitor interval", func(c *Config) { c.Monitor.Interval = 0 }, true},
		{"zero cache interval", func(c *Config) { c.Monitor.CacheInterval = 0 }, true},
		{"metrics enabled without addr", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.ListenAddr = ""
		}, true},
		{"metrics disabled without addr", func(c *Config) {
			c.Metrics.Enabled = false
			c.Metrics.ListenAddr = ""
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Database: DatabaseConfig{Path: "./costwatch.db"},
				Monitor:  MonitorConfig{Interval: 5 * time.Minute, CacheInterval: 5 * time.Minute},
				Metrics:  MetricsConfig{Enabled: true, ListenAddr: ":9090"},
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
