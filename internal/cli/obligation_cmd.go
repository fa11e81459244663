package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"familybudget/internal/core"
)

func newObligationCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "obligation",
		Aliases: []string{"recurring"},
		Short:   "Manage recurring income and expenses",
	}
	cmd.AddCommand(
		newObligationAddCmd(app),
		newObligationListCmd(app),
		newObligationUpdateCmd(app),
		newObligationRemoveCmd(app),
	)
	return cmd
}

func newObligationAddCmd(app *App) *cobra.Command {
	var kind, name, amount, category, frequency string
	var day, month int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a recurring income or expense",
		RunE: func(cmd *cobra.Command, args []string) error {
			familyID, err := app.family()
			if err != nil {
				return err
			}
			money, err := core.ParseMoney(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			o, err := app.Obligations.Create(cmd.Context(), core.Obligation{
				FamilyID:   familyID,
				Kind:       core.Kind(kind),
				Name:       name,
				Amount:     money,
				Category:   category,
				TriggerDay: day,
				Month:      month,
				Frequency:  core.Frequency(frequency),
				CreatedBy:  app.ActorID,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s %s %s %s on day %d [%s]\n",
				o.Frequency, o.Kind, o.Name, o.Amount, o.TriggerDay, o.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(core.KindExpense), "expense or income")
	cmd.Flags().StringVar(&name, "name", "", "Description")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 1500")
	cmd.Flags().StringVar(&category, "category", "", "Category (expenses only)")
	cmd.Flags().IntVar(&day, "day", 1, "Day of month 1-31, clamped to short months")
	cmd.Flags().IntVar(&month, "month", 0, "Month 1-12 (annual only)")
	cmd.Flags().StringVar(&frequency, "frequency", string(core.Monthly), "monthly or annual")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newObligationListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active obligations",
		RunE: func(cmd *cobra.Command, args []string) error {
			familyID, err := app.family()
			if err != nil {
				return err
			}
			list, err := app.Obligations.ListActive(cmd.Context(), familyID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No active obligations.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tNAME\tAMOUNT\tSCHEDULE\tLAST\tID")
			for _, o := range list {
				schedule := fmt.Sprintf("monthly day %d", o.TriggerDay)
				if o.Frequency == core.Annual {
					schedule = fmt.Sprintf("annual %s %d", o.TriggerMonth(), o.TriggerDay)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", o.Kind, o.Name, o.Amount, schedule, o.LastProcessedPeriod, o.ID)
			}
			w.Flush()
			return nil
		},
	}
}

func newObligationUpdateCmd(app *App) *cobra.Command {
	var name, amount, category string
	var day, month int

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit an obligation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := app.Obligations.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				cur.Name = name
			}
			if flags.Changed("amount") {
				if cur.Amount, err = core.ParseMoney(amount); err != nil {
					return fmt.Errorf("invalid amount %q: %w", amount, err)
				}
			}
			if flags.Changed("category") {
				cur.Category = category
			}
			if flags.Changed("day") {
				cur.TriggerDay = day
			}
			if flags.Changed("month") {
				cur.Month = month
			}
			updated, err := app.Obligations.Update(cmd.Context(), cur)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s on day %d\n", updated.Name, updated.Amount, updated.TriggerDay)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Description")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	cmd.Flags().IntVar(&day, "day", 0, "Day of month 1-31")
	cmd.Flags().IntVar(&month, "month", 0, "Month 1-12 (annual only)")
	return cmd
}

func newObligationRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Stop an obligation; its past entries stay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Obligations.Deactivate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deactivated obligation %s\n", args[0])
			return nil
		},
	}
}
