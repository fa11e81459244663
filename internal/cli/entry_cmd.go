package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"familybudget/internal/core"
	"familybudget/internal/services"
)

func newEntryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Record and inspect income and expenses",
	}
	cmd.AddCommand(
		newEntryAddCmd(app),
		newEntryListCmd(app),
		newEntryUpdateCmd(app),
		newEntryRemoveCmd(app),
		newEntryOverviewCmd(app),
	)
	return cmd
}

func newEntryAddCmd(app *App) *cobra.Command {
	var kind, name, amount, category, date, frequency string
	var recurring bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an income or expense",
		RunE: func(cmd *cobra.Command, args []string) error {
			familyID, err := app.family()
			if err != nil {
				return err
			}
			money, err := core.ParseMoney(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			d, err := parseDate(date, app.now())
			if err != nil {
				return err
			}

			entry, obligation, err := app.Ledger.Create(cmd.Context(), services.EntryInput{
				FamilyID:  familyID,
				ActorID:   app.ActorID,
				Kind:      core.Kind(kind),
				Name:      name,
				Amount:    money,
				Category:  category,
				Date:      d,
				Recurring: recurring,
				Frequency: core.Frequency(frequency),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added %s %s %s on %s [%s]\n", entry.Kind, entry.Name, entry.Amount, entry.Date, entry.ID)
			if obligation != nil {
				fmt.Fprintf(out, "Repeats %s on day %d [%s]\n", obligation.Frequency, obligation.TriggerDay, obligation.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(core.KindExpense), "expense or income")
	cmd.Flags().StringVar(&name, "name", "", "Description")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 12.50")
	cmd.Flags().StringVar(&category, "category", "", "Category (expenses only)")
	cmd.Flags().StringVar(&date, "date", "", "Date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&recurring, "recurring", false, "Also register a recurring obligation")
	cmd.Flags().StringVar(&frequency, "frequency", string(core.Monthly), "monthly or annual, with --recurring")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newEntryListCmd(app *App) *cobra.Command {
	var kind, month string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries of a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			familyID, err := app.family()
			if err != nil {
				return err
			}
			t, err := parseMonth(month, app.now())
			if err != nil {
				return err
			}
			from, to := core.MonthBounds(t)
			entries, err := app.Ledger.List(cmd.Context(), familyID, core.Kind(kind), from, to)
			if err != nil {
				return err
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "expense or income (default both)")
	cmd.Flags().StringVar(&month, "month", "", "Month YYYY-MM (default current)")
	return cmd
}

func printEntries(out io.Writer, entries []core.LedgerEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No entries.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tKIND\tNAME\tCATEGORY\tAMOUNT\tID")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", e.Date, e.Kind, e.Name, e.Category, e.Amount, e.ID)
	}
	w.Flush()
}

func newEntryUpdateCmd(app *App) *cobra.Command {
	var name, amount, category, date string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := app.Ledger.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("name") {
				cur.Name = name
			}
			if cmd.Flags().Changed("amount") {
				if cur.Amount, err = core.ParseMoney(amount); err != nil {
					return fmt.Errorf("invalid amount %q: %w", amount, err)
				}
			}
			if cmd.Flags().Changed("category") {
				cur.Category = category
			}
			if cmd.Flags().Changed("date") {
				if cur.Date, err = parseDate(date, app.now()); err != nil {
					return err
				}
			}
			updated, err := app.Ledger.Update(cmd.Context(), cur)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s on %s\n", updated.Name, updated.Amount, updated.Date)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Description")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	cmd.Flags().StringVar(&date, "date", "", "Date YYYY-MM-DD")
	return cmd
}

func newEntryRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Ledger.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %s\n", args[0])
			return nil
		},
	}
}

func newEntryOverviewCmd(app *App) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Income, expenses and spending by category for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			familyID, err := app.family()
			if err != nil {
				return err
			}
			t, err := parseMonth(month, app.now())
			if err != nil {
				return err
			}
			o, err := app.Ledger.MonthOverview(cmd.Context(), familyID, t)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%04d-%02d\n", o.Year, o.Month)
			fmt.Fprintf(out, "Income:   %s\n", o.Income)
			fmt.Fprintf(out, "Expenses: %s\n", o.Expenses)
			fmt.Fprintf(out, "Savings:  %s\n", o.Income.Sub(o.Expenses))
			for _, c := range o.ByCategory {
				fmt.Fprintf(out, "  %-12s %s\n", c.Name, c.Amount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month YYYY-MM (default current)")
	return cmd
}
