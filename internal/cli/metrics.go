package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show real-time cost metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := context.Background()
			if err := e.cache.Refresh(ctx); err != nil {
				return fmt.Errorf("failed to refresh metrics: %w", err)
			}
			snap := e.analytics.RealTimeMetrics()
			if snap == nil {
				return fmt.Errorf("no metrics snapshot available")
			}

			if !wantsTable() {
				return printOutput(snap)
			}

			t := NewTable("METRIC", "VALUE")
			t.AddRow("Current spend rate (hourly)", fmt.Sprintf("%.2f", snap.CurrentSpendRate))
			t.AddRow("Cost velocity", fmt.Sprintf("%+.2f", snap.CostVelocity))
			t.AddRow("Projected daily cost", fmt.Sprintf("%.2f", snap.ProjectedDailyCost))
			t.AddRow("Projected monthly cost", fmt.Sprintf("%.2f", snap.ProjectedMonthlyCost))
			t.AddRow("Active resources", fmt.Sprintf("%d", snap.ActiveResources))
			t.AddRow("Open anomalies (24h)", fmt.Sprintf("%d", snap.OpenAnomalies))
			t.AddRow("Last updated", snap.LastUpdated.Format("2006-01-02 15:04:05"))
			t.Render()

			if len(snap.BudgetUtilization) > 0 {
				fmt.Println()
				bt := NewTable("BUDGET", "AMOUNT", "SPEND", "USED")
				for _, u := range snap.BudgetUtilization {
					bt.AddRow(u.BudgetName,
						fmt.Sprintf("%.2f", u.Amount),
						fmt.Sprintf("%.2f", u.CurrentSpend),
						fmt.Sprintf("%.1f%%", u.PercentageUsed))
				}
				bt.Render()
			}
			return nil
		},
	}
}
