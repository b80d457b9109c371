package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"costwatch/internal/config"
	"costwatch/internal/domain/budget"
	"costwatch/internal/domain/forecast"
	"costwatch/internal/domain/optimization"
	"costwatch/internal/domain/telemetry"
	"costwatch/internal/pkg/logger"
	"costwatch/internal/repository/sqlite"
	"costwatch/internal/services"
)

var (
	cfgFile      string
	outputFormat string
	dbPath       string
)

var rootCmd = &cobra.Command{
	Use:   "costwatch",
	Short: "CostWatch CLI - cost telemetry monitoring engine",
	Long: `CostWatch CLI provides command-line access to the cost monitoring
engine: real-time spend metrics, budget management, anomaly
detection, cost forecasting and optimization recommendations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.costwatch/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("db_path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(newMetricsCmd())
	rootCmd.AddCommand(newBudgetCmd())
	rootCmd.AddCommand(newAnomalyCmd())
	rootCmd.AddCommand(newForecastCmd())
	rootCmd.AddCommand(newRecommendCmd())
	rootCmd.AddCommand(newReportCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return
		}
		configDir := home + "/.costwatch"
		_ = os.MkdirAll(configDir, 0700)
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("COSTWATCH")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// engine bundles the wired services the commands operate on. The CLI
// runs against the local store directly; there is no server round trip.
type engine struct {
	db        *sql.DB
	cache     *services.MetricsCache
	detector  *services.AnomalyDetector
	budgets   budget.Service
	forecasts forecast.Service
	advisor   optimization.Service
	analytics telemetry.Service
	anomalies *sqlite.AnomalyRepository
}

func newEngine() (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if p := viper.GetString("db_path"); p != "" {
		cfg.Database.Path = p
	}

	log := logger.New(logger.Config{Level: "warn", Format: "console"})

	db, err := sqlite.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	costRepo := sqlite.NewCostRepository(db)
	budgetRepo := sqlite.NewBudgetRepository(db)
	anomalyRepo := sqlite.NewAnomalyRepository(db)
	predictionRepo := sqlite.NewPredictionRepository(db)
	recommendationRepo := sqlite.NewRecommendationRepository(db)

	cache := services.NewMetricsCache(costRepo, anomalyRepo, budgetRepo, log, cfg.Monitor.CacheInterval, nil)
	advisor := services.NewOptimizationService(costRepo, recommendationRepo, log, nil)

	return &engine{
		db:        db,
		cache:     cache,
		detector:  services.NewAnomalyDetector(costRepo, anomalyRepo, log, cfg.Anomaly.SkipOpenDuplicates, nil),
		budgets:   services.NewBudgetService(budgetRepo, costRepo, services.NewLogNotifier(log), log, nil),
		forecasts: services.NewForecastService(costRepo, predictionRepo, log, nil),
		advisor:   advisor,
		analytics: services.NewAnalyticsService(cache, costRepo, advisor, log, nil),
		anomalies: anomalyRepo,
	}, nil
}

func (e *engine) Close() {
	_ = e.db.Close()
}
