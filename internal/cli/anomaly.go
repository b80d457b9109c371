package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"costwatch/internal/domain/anomaly"
)

func newAnomalyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "Cost anomaly detection",
	}

	cmd.AddCommand(newAnomalyListCmd())
	cmd.AddCommand(newAnomalyDetectCmd())

	return cmd
}

func newAnomalyListCmd() *cobra.Command {
	var severity, status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List detected anomalies",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			anomalies, total, err := e.anomalies.List(context.Background(), anomaly.Filter{
				Severity: severity,
				Status:   status,
			}, limit, 0)
			if err != nil {
				return fmt.Errorf("failed to list anomalies: %w", err)
			}

			if !wantsTable() {
				return printOutput(anomalies)
			}

			t := NewTable("DETECTED", "GROUP", "TYPE", "SEVERITY", "BASELINE", "ACTUAL", "DEVIATION", "STATUS")
			for _, a := range anomalies {
				group := a.ResourceType
				if a.Region != "" {
					group += "/" + a.Region
				}
				t.AddRow(
					a.DetectedAt.Format("2006-01-02 15:04"),
					group, a.AnomalyType, a.Severity,
					fmt.Sprintf("%.2f", a.BaselineCost),
					fmt.Sprintf("%.2f", a.ActualCost),
					fmt.Sprintf("%+.1f%%", a.DeviationPct),
					a.Status,
				)
			}
			t.Render()
			fmt.Printf("\n%d of %d anomalies\n", len(anomalies), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")

	return cmd
}

func newAnomalyDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Run anomaly detection now",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			found, err := e.detector.Detect(context.Background())
			if err != nil {
				return fmt.Errorf("detection failed: %w", err)
			}
			if len(found) == 0 {
				fmt.Println("No anomalies detected")
				return nil
			}
			return printOutput(found)
		},
	}
}
