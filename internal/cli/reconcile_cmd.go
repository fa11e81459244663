package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"familybudget/internal/core"
	"familybudget/internal/services"
)

func newReconcileCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Write the entries of every obligation that is due",
		RunE: func(cmd *cobra.Command, args []string) error {
			familyID, err := app.family()
			if err != nil {
				return err
			}
			now, err := reconcileTime(date, app.now())
			if err != nil {
				return err
			}
			n, err := app.Reconciler.Reconcile(cmd.Context(), familyID, now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reconciled %d entries as of %s\n", n, now.Format(core.DateLayout))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Reconcile as of the end of this day YYYY-MM-DD (default now)")
	return cmd
}

// reconcileTime returns now, or the last instant of the given day.
func reconcileTime(date string, now time.Time) (time.Time, error) {
	if date == "" {
		return now, nil
	}
	d, err := parseDate(date, now)
	if err != nil {
		return time.Time{}, err
	}
	return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}

func newAlertsCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Check this month's spending against the thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			familyID, err := app.family()
			if err != nil {
				return err
			}
			now, err := reconcileTime(date, app.now())
			if err != nil {
				return err
			}
			thresholds, err := app.Settings.Thresholds(cmd.Context(), familyID)
			if err != nil {
				return err
			}
			from, to := core.MonthBounds(now)
			entries, err := app.Ledger.List(cmd.Context(), familyID, core.KindExpense, from, to)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			alerts := services.Evaluate(now, entries, thresholds, services.NewDedupState())
			if len(alerts) == 0 {
				fmt.Fprintln(out, "No alerts.")
				return nil
			}
			for _, a := range alerts {
				fmt.Fprintf(out, "[%s] %s\n", a.Kind, a.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Evaluate as of this day YYYY-MM-DD (default today)")
	return cmd
}
