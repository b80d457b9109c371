package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"costwatch/internal/config"
	"costwatch/internal/pkg/logger"
	"costwatch/internal/pkg/metrics"
	"costwatch/internal/repository/sqlite"
	"costwatch/internal/services"
	"costwatch/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	db, err := sqlite.Open(cfg.Database)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	costRepo := sqlite.NewCostRepository(db)
	budgetRepo := sqlite.NewBudgetRepository(db)
	anomalyRepo := sqlite.NewAnomalyRepository(db)
	predictionRepo := sqlite.NewPredictionRepository(db)
	recommendationRepo := sqlite.NewRecommendationRepository(db)

	notifier := services.NewLogNotifier(log)
	cache := services.NewMetricsCache(costRepo, anomalyRepo, budgetRepo, log, cfg.Monitor.CacheInterval, nil)
	detector := services.NewAnomalyDetector(costRepo, anomalyRepo, log, cfg.Anomaly.SkipOpenDuplicates, nil)
	budgetSvc := services.NewBudgetService(budgetRepo, costRepo, notifier, log, nil)
	forecastSvc := services.NewForecastService(costRepo, predictionRepo, log, nil)
	advisor := services.NewOptimizationService(costRepo, recommendationRepo, log, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := worker.NewMonitor(cache, detector, budgetSvc, log, cfg.Monitor.Interval, cfg.Monitor.TickTimeout)
	monitor.Start(ctx)

	jobs := worker.NewJobScheduler(forecastSvc, advisor, cfg.Jobs, log)
	if err := jobs.Start(ctx); err != nil {
		log.Fatalf("failed to start job scheduler: %v", err)
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}
		go func() {
			log.WithFields(map[string]interface{}{"addr": cfg.Metrics.ListenAddr}).Info("metrics listener started")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.ErrorWithErr(err, "metrics listener failed")
			}
		}()
	}

	log.Info("costwatch monitor running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()
	monitor.Stop()
	jobs.Stop()
	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	log.Info("shutdown complete")
}
