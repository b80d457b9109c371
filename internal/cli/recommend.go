package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRecommendCmd() *cobra.Command {
	var workspaceID, teamID string

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Generate optimization recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			recs, err := e.advisor.Generate(context.Background(), workspaceID, teamID)
			if err != nil {
				return fmt.Errorf("failed to generate recommendations: %w", err)
			}
			if len(recs) == 0 {
				fmt.Println("No recommendations at this time")
				return nil
			}

			if !wantsTable() {
				return printOutput(recs)
			}

			t := NewTable("TYPE", "TITLE", "SAVINGS", "PRIORITY", "EFFORT", "AUTO")
			for _, r := range recs {
				auto := ""
				if r.AutoImplementable {
					auto = "yes"
				}
				t.AddRow(r.Type, r.Title, fmt.Sprintf("%.2f", r.EstimatedSavings), r.Priority, r.Effort, auto)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "scope to a workspace")
	cmd.Flags().StringVar(&teamID, "team", "", "scope to a team")

	return cmd
}
