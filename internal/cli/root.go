package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"familybudget/internal/core"
	"familybudget/internal/services"
)

// App holds the services and identity used by CLI commands.
type App struct {
	FamilyID string
	ActorID  string

	Ledger      *services.LedgerService
	Obligations *services.ObligationService
	Goals       *services.GoalService
	Reconciler  *services.RecurringProcessor
	Settings    *services.SettingsService

	// Now is the clock used for reconciliation and reports.
	Now func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) family() (string, error) {
	if strings.TrimSpace(a.FamilyID) == "" {
		return "", fmt.Errorf("family is required (--family or FAMILY_ID)")
	}
	return a.FamilyID, nil
}

// NewRootCmd creates the top-level "famctl" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "famctl",
		Short:         "Family budget: ledger, obligations, savings goal and alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&app.FamilyID, "family", app.FamilyID, "Family ID (defaults to FAMILY_ID)")
	root.PersistentFlags().StringVar(&app.ActorID, "actor", app.ActorID, "Acting member ID (defaults to ACTOR_ID)")

	root.AddCommand(
		newEntryCmd(app),
		newObligationCmd(app),
		newGoalCmd(app),
		newReconcileCmd(app),
		newAlertsCmd(app),
		newSettingsCmd(app),
		newCategoryCmd(app),
	)
	return root
}

func parseDate(s string, now time.Time) (core.Date, error) {
	if s == "" {
		return core.DateOf(now), nil
	}
	t, err := time.ParseInLocation(core.DateLayout, s, now.Location())
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}

// parseMonth accepts YYYY-MM and returns a time inside that month.
func parseMonth(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	t, err := time.ParseInLocation("2006-01", s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return t, nil
}

// parseLimit parses a threshold. Empty and zero disable the rule.
func parseLimit(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return core.Money{}, nil
	}
	return core.ParseMoney(s)
}
