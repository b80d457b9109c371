package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var startStr, endStr, workspaceID, teamID string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a usage analytics report",
		RunE: func(cmd *cobra.Command, args []string) error {
			end := time.Now()
			start := end.AddDate(0, 0, -30)
			var err error
			if startStr != "" {
				if start, err = time.Parse("2006-01-02", startStr); err != nil {
					return fmt.Errorf("invalid --start date: %w", err)
				}
			}
			if endStr != "" {
				if end, err = time.Parse("2006-01-02", endStr); err != nil {
					return fmt.Errorf("invalid --end date: %w", err)
				}
			}

			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			report, err := e.analytics.UsageAnalytics(context.Background(), start, end, workspaceID, teamID)
			if err != nil {
				return fmt.Errorf("failed to build report: %w", err)
			}

			if !wantsTable() {
				return printOutput(report)
			}

			t := NewTable("FIELD", "VALUE")
			t.AddRow("Window", fmt.Sprintf("%s to %s", report.Window.Start.Format("2006-01-02"), report.Window.End.Format("2006-01-02")))
			t.AddRow("Total cost", fmt.Sprintf("%.2f", report.TotalCost))
			t.AddRow("Total usage", fmt.Sprintf("%.2f", report.TotalUsage))
			t.AddRow("Records", fmt.Sprintf("%d", report.RecordCount))
			t.AddRow("Success rate", fmt.Sprintf("%.1f%%", report.SuccessRate*100))
			t.Render()

			if len(report.ByService) > 0 {
				fmt.Println()
				st := NewTable("SERVICE", "COST")
				for _, b := range report.ByService {
					st.AddRow(b.Key, fmt.Sprintf("%.2f", b.Cost))
				}
				st.Render()
			}

			if len(report.Recommendations) > 0 {
				fmt.Println()
				rt := NewTable("RECOMMENDATION", "SAVINGS", "PRIORITY")
				for _, r := range report.Recommendations {
					rt.AddRow(r.Title, fmt.Sprintf("%.2f", r.EstimatedSavings), r.Priority)
				}
				rt.Render()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "window start date (YYYY-MM-DD, default 30 days ago)")
	cmd.Flags().StringVar(&endStr, "end", "", "window end date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&workspaceID, "workspace", "", "scope to a workspace")
	cmd.Flags().StringVar(&teamID, "team", "", "scope to a team")

	return cmd
}
