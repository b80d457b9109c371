package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"costwatch/internal/config"
	"costwatch/internal/domain/forecast"
	"costwatch/internal/domain/optimization"
	"costwatch/internal/pkg/logger"
)

// forecastRefreshPeriods are regenerated by the nightly job so the
// stored predictions never serve stale past their validity window.
var forecastRefreshPeriods = []string{"daily", "weekly", "monthly", "quarterly", "yearly"}

// JobScheduler runs the slow background jobs on cron schedules: the
// nightly forecast refresh and the weekly optimization scan.
type JobScheduler struct {
	forecasts forecast.Service
	advisor   optimization.Service
	cfg       config.JobsConfig
	log       *logger.Logger
	cron      *cron.Cron
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(forecasts forecast.Service, advisor optimization.Service, cfg config.JobsConfig, log *logger.Logger) *JobScheduler {
	return &JobScheduler{
		forecasts: forecasts,
		advisor:   advisor,
		cfg:       cfg,
		log:       log,
		cron:      cron.New(),
	}
}

// Start registers the jobs and starts the scheduler.
func (s *JobScheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.ForecastRefreshSpec, func() { s.refreshForecasts(ctx) }); err != nil {
		return fmt.Errorf("registering forecast refresh job: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.OptimizationScanSpec, func() { s.scanOptimizations(ctx) }); err != nil {
		return fmt.Errorf("registering optimization scan job: %w", err)
	}

	s.cron.Start()
	s.log.WithFields(map[string]interface{}{
		"forecast_spec":     s.cfg.ForecastRefreshSpec,
		"optimization_spec": s.cfg.OptimizationScanSpec,
	}).Info("job scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *JobScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("job scheduler stopped")
}

func (s *JobScheduler) refreshForecasts(ctx context.Context) {
	for _, period := range forecastRefreshPeriods {
		if _, err := s.forecasts.Refresh(ctx, period, forecast.AlgorithmEnsemble); err != nil {
			s.log.WithFields(map[string]interface{}{"period": period}).
				ErrorWithErr(err, "forecast refresh failed")
		}
	}
	s.log.Info("forecast refresh complete")
}

func (s *JobScheduler) scanOptimizations(ctx context.Context) {
	recs, err := s.advisor.Generate(ctx, "", "")
	if err != nil {
		s.log.ErrorWithErr(err, "optimization scan failed")
		return
	}
	s.log.WithFields(map[string]interface{}{"count": len(recs)}).Info("optimization scan complete")
}
