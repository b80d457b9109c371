package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newForecastCmd() *cobra.Command {
	var algorithm string
	var refresh bool

	cmd := &cobra.Command{
		Use:   "forecast [period]",
		Short: "Generate a cost forecast",
		Long:  "Generates a cost forecast for the given period (daily, weekly, monthly, quarterly, yearly). Defaults to monthly.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period := "monthly"
			if len(args) == 1 {
				period = args[0]
			}

			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			generate := e.forecasts.Generate
			if refresh {
				generate = e.forecasts.Refresh
			}
			p, err := generate(context.Background(), period, algorithm)
			if err != nil {
				return fmt.Errorf("failed to generate forecast: %w", err)
			}

			if !wantsTable() {
				return printOutput(p)
			}

			t := NewTable("FIELD", "VALUE")
			t.AddRow("Period", p.Period)
			t.AddRow("Predicted cost", fmt.Sprintf("%.2f", p.PredictedCost))
			t.AddRow("Interval", fmt.Sprintf("[%.2f, %.2f] at %.0f%%", p.LowerBound, p.UpperBound, p.IntervalConfidence*100))
			t.AddRow("Confidence", fmt.Sprintf("%.1f", p.ConfidenceScore))
			t.AddRow("Trend", p.Trend)
			t.AddRow("Valid until", p.ValidUntil.Format("2006-01-02 15:04"))
			t.Render()

			fmt.Println()
			st := NewTable("SCENARIO", "PREDICTED", "PROBABILITY")
			for _, sc := range p.Scenarios {
				st.AddRow(sc.Name, fmt.Sprintf("%.2f", sc.PredictedCost), fmt.Sprintf("%.0f%%", sc.Probability*100))
			}
			st.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", "", "algorithm label: linear, seasonal, ensemble")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even if a stored forecast is still valid")

	return cmd
}
