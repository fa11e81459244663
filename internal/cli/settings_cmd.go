package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"familybudget/internal/core"
)

func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change the alert thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			familyID, err := app.family()
			if err != nil {
				return err
			}
			t, err := app.Settings.Thresholds(cmd.Context(), familyID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Monthly limit: %s\n", limitString(t.MonthlyLimit))
			fmt.Fprintf(out, "Daily limit:   %s\n", limitString(t.DailyLimit))
			fmt.Fprintf(out, "Single limit:  %s\n", limitString(t.SingleExpenseLimit))
			names := make([]string, 0, len(t.CategoryLimits))
			for name := range t.CategoryLimits {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "  %-12s %s\n", name, limitString(t.CategoryLimits[name]))
			}
			return nil
		},
	}
	cmd.AddCommand(newSettingsSetCmd(app))
	return cmd
}

func limitString(m core.Money) string {
	if m.Cents == 0 {
		return "off"
	}
	return m.String()
}

func newSettingsSetCmd(app *App) *cobra.Command {
	var monthly, daily, single string
	var categories map[string]string
	var clearCategories bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change thresholds; 0 disables a rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			familyID, err := app.family()
			if err != nil {
				return err
			}
			t, err := app.Settings.Thresholds(cmd.Context(), familyID)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			for _, f := range []struct {
				name  string
				value string
				dst   *core.Money
			}{
				{"monthly", monthly, &t.MonthlyLimit},
				{"daily", daily, &t.DailyLimit},
				{"single", single, &t.SingleExpenseLimit},
			} {
				if !flags.Changed(f.name) {
					continue
				}
				if *f.dst, err = parseLimit(f.value); err != nil {
					return fmt.Errorf("invalid %s limit %q: %w", f.name, f.value, err)
				}
			}

			limits := make(map[string]core.Money, len(t.CategoryLimits)+len(categories))
			if !clearCategories {
				for name, m := range t.CategoryLimits {
					limits[name] = m
				}
			}
			for name, value := range categories {
				m, err := parseLimit(value)
				if err != nil {
					return fmt.Errorf("invalid limit for %s %q: %w", name, value, err)
				}
				for existing := range limits {
					if core.CategoryKey(existing) == core.CategoryKey(name) {
						delete(limits, existing)
					}
				}
				if m.Cents > 0 {
					limits[name] = m
				}
			}
			t.CategoryLimits = limits

			if err := app.Settings.SaveThresholds(cmd.Context(), familyID, t); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Thresholds saved.")
			return nil
		},
	}
	cmd.Flags().StringVar(&monthly, "monthly", "", "Monthly spending limit")
	cmd.Flags().StringVar(&daily, "daily", "", "Daily spending limit")
	cmd.Flags().StringVar(&single, "single", "", "Single expense limit")
	cmd.Flags().StringToStringVar(&categories, "category", nil, "Category limits, e.g. Food=400,Leisure=0")
	cmd.Flags().BoolVar(&clearCategories, "clear-categories", false, "Drop existing category limits first")
	return cmd
}

func newCategoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage expense categories",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List default and custom categories",
			RunE: func(cmd *cobra.Command, args []string) error {
				familyID, err := app.family()
				if err != nil {
					return err
				}
				custom, err := app.Settings.CustomCategories(cmd.Context(), familyID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, name := range core.DefaultCategories {
					fmt.Fprintln(out, name)
				}
				sort.Slice(custom, func(i, j int) bool { return custom[i].Name < custom[j].Name })
				for _, c := range custom {
					fmt.Fprintf(out, "%s [%s]\n", c.Name, c.ID)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <name>",
			Short: "Add a custom category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				familyID, err := app.family()
				if err != nil {
					return err
				}
				c, err := app.Settings.AddCategory(cmd.Context(), familyID, args[0], app.ActorID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added category %s [%s]\n", c.Name, c.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Delete a custom category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				familyID, err := app.family()
				if err != nil {
					return err
				}
				if err := app.Settings.DeleteCategory(cmd.Context(), familyID, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
