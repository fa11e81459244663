package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"familybudget/internal/core"
)

func newGoalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Show and manage the family savings goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showGoal(cmd, app)
		},
	}
	cmd.AddCommand(
		newGoalSetCmd(app),
		newGoalUpdateCmd(app),
		newGoalHistoryCmd(app),
	)
	return cmd
}

func showGoal(cmd *cobra.Command, app *App) error {
	familyID, err := app.family()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	p, err := app.Goals.Progress(cmd.Context(), familyID, app.now())
	if err != nil {
		return err
	}
	if p == nil {
		fmt.Fprintln(out, "No savings goal set.")
		return nil
	}
	fmt.Fprintf(out, "Goal:     %s [%s]\n", p.Goal.Amount, p.Goal.ID)
	fmt.Fprintf(out, "Income:   %s\n", p.Income)
	fmt.Fprintf(out, "Expenses: %s\n", p.Expenses)
	fmt.Fprintf(out, "Savings:  %s (%.0f%%)\n", p.MonthSavings, p.Percent)
	if p.Achieved {
		fmt.Fprintln(out, "Goal reached this month.")
	}
	return nil
}

func newGoalSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <amount>",
		Short: "Replace the savings goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			familyID, err := app.family()
			if err != nil {
				return err
			}
			amount, err := core.ParseMoney(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			g, err := app.Goals.SetGoal(cmd.Context(), familyID, amount, app.ActorID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Savings goal set to %s [%s]\n", g.Amount, g.ID)
			return nil
		},
	}
}

func newGoalUpdateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "update <amount>",
		Short: "Change the amount of the current goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			familyID, err := app.family()
			if err != nil {
				return err
			}
			amount, err := core.ParseMoney(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			cur, err := app.Goals.GetCurrentGoal(cmd.Context(), familyID)
			if err != nil {
				return err
			}
			if cur == nil {
				return fmt.Errorf("no savings goal set; use 'goal set'")
			}
			g, err := app.Goals.UpdateGoalAmount(cmd.Context(), cur.ID, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Savings goal updated to %s\n", g.Amount)
			return nil
		},
	}
}

func newGoalHistoryCmd(app *App) *cobra.Command {
	var months int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Monthly savings of the last months",
		RunE: func(cmd *cobra.Command, args []string) error {
			familyID, err := app.family()
			if err != nil {
				return err
			}
			history, err := app.Goals.SavingsHistory(cmd.Context(), familyID, app.now(), months)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range history {
				fmt.Fprintf(out, "%04d-%02d  %s\n", m.Year, m.Month, m.Savings)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&months, "months", 6, "Number of months")
	return cmd
}
