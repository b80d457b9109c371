package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"costwatch/internal/domain/budget"
)

func newBudgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage budgets and alerts",
	}

	cmd.AddCommand(newBudgetCreateCmd())
	cmd.AddCommand(newBudgetListCmd())
	cmd.AddCommand(newBudgetGetCmd())
	cmd.AddCommand(newBudgetCheckCmd())

	return cmd
}

func newBudgetCreateCmd() *cobra.Command {
	var (
		name       string
		periodType string
		amount     float64
		currency   string
		scope      string
		scopeID    string
		thresholds []float64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a budget with threshold alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			b, err := e.budgets.Create(context.Background(), budget.CreateSpec{
				Name:                 name,
				PeriodType:           periodType,
				Amount:               amount,
				Currency:             currency,
				Scope:                scope,
				ScopeID:              scopeID,
				ThresholdPercentages: thresholds,
			})
			if err != nil {
				return fmt.Errorf("failed to create budget: %w", err)
			}
			return printOutput(b)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "budget name (required)")
	cmd.Flags().StringVar(&periodType, "period", "monthly", "period type: daily, weekly, monthly, quarterly, yearly")
	cmd.Flags().Float64Var(&amount, "amount", 0, "budget amount (required)")
	cmd.Flags().StringVar(&currency, "currency", "USD", "currency code")
	cmd.Flags().StringVar(&scope, "scope", "global", "scope: global, workspace, team, user, resource_type")
	cmd.Flags().StringVar(&scopeID, "scope-id", "", "scope identifier (required for non-global scopes)")
	cmd.Flags().Float64SliceVar(&thresholds, "thresholds", nil, "alert threshold percentages (default 50,80,100)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newBudgetListCmd() *cobra.Command {
	var scope, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			budgets, err := e.budgets.List(context.Background(), budget.Filter{Scope: scope, Status: status})
			if err != nil {
				return fmt.Errorf("failed to list budgets: %w", err)
			}

			if !wantsTable() {
				return printOutput(budgets)
			}

			t := NewTable("ID", "NAME", "PERIOD", "AMOUNT", "SCOPE", "STATUS")
			for _, b := range budgets {
				t.AddRow(b.ID, b.Name, b.PeriodType, fmt.Sprintf("%.2f %s", b.Amount, b.Currency), b.Scope, b.Status)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "filter by scope")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")

	return cmd
}

func newBudgetGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			b, err := e.budgets.Get(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get budget: %w", err)
			}
			return printOutput(b)
		},
	}
}

func newBudgetCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Evaluate all budget alerts now",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.budgets.CheckAlerts(context.Background()); err != nil {
				return fmt.Errorf("alert evaluation failed: %w", err)
			}
			fmt.Println("Alert evaluation complete")
			return nil
		},
	}
}
