package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"familybudget/internal/core"
	"familybudget/internal/gateway"
	applog "familybudget/internal/log"
)

// GoalService keeps a single active savings goal per family and migrates
// records written before the active flag existed.
type GoalService struct {
	goals     gateway.GoalStore
	ledger    gateway.LedgerStore
	publisher gateway.ChangePublisher
	logger    *applog.Logger
	now       func() time.Time

	migrations singleflight.Group
	mu         sync.Mutex
	migrated   map[string]bool
}

// NewGoalService creates a goal service. publisher may be nil.
func NewGoalService(goals gateway.GoalStore, ledger gateway.LedgerStore, publisher gateway.ChangePublisher) *GoalService {
	return &GoalService{
		goals:     goals,
		ledger:    ledger,
		publisher: publisher,
		logger:    applog.Default(applog.ComponentGoals),
		now:       time.Now,
		migrated:  map[string]bool{},
	}
}

// WithLogger replaces the service's logger.
func (s *GoalService) WithLogger(l *applog.Logger) *GoalService {
	s.logger = l.WithComponent(applog.ComponentGoals)
	return s
}

// GetCurrentGoal returns the family's active goal, or nil when the family
// never set one. Several active goals converge to the most recent one; no
// active goal with existing records triggers the migration.
func (s *GoalService) GetCurrentGoal(ctx context.Context, familyID string) (*core.Goal, error) {
	if strings.TrimSpace(familyID) == "" {
		return nil, core.ErrEmptyFamily
	}

	active, err := s.goals.ListActiveGoals(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list active goals: %w", err)
	}

	switch len(active) {
	case 0:
		records, err := s.goals.ListGoals(ctx, familyID)
		if err != nil {
			return nil, fmt.Errorf("list goals: %w", err)
		}
		if len(records) == 0 {
			return nil, nil
		}
		canonical, err := s.migrate(ctx, familyID, nil)
		if canonical == nil {
			return nil, err
		}
		if err != nil {
			s.logger.WarnContext(ctx, "Goal migration incomplete, will retry",
				applog.FieldFamilyID, familyID,
				applog.FieldError, err)
		}
		return canonical, nil

	case 1:
		current := active[0].ToGoal()
		if !s.isMigrated(familyID) {
			// Records from before the active flag may still be unflagged.
			if _, err := s.migrate(ctx, familyID, &active[0]); err != nil {
				s.logger.WarnContext(ctx, "Goal cleanup incomplete, will retry",
					applog.FieldFamilyID, familyID,
					applog.FieldError, err)
			}
		}
		return &current, nil

	default:
		canonical, _ := core.CanonicalGoal(active)
		s.logger.WarnContext(ctx, "Multiple active goals found, converging",
			applog.FieldFamilyID, familyID,
			applog.FieldGoalID, canonical.ID,
			applog.FieldCount, len(active))
		if _, err := s.migrate(ctx, familyID, &canonical); err != nil {
			s.logger.WarnContext(ctx, "Goal convergence incomplete, will retry",
				applog.FieldFamilyID, familyID,
				applog.FieldError, err)
		}
		g := canonical.ToGoal()
		g.Active = true
		return &g, nil
	}
}

func (s *GoalService) isMigrated(familyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.migrated[familyID]
}

// migrate brings every record of the family to the current schema: the
// canonical record is active, all the others are inactive. With keep nil
// the canonical record is the most recently created one. Every write is
// attempted; failures are joined. The returned goal is non-nil once the
// canonical record is active.
func (s *GoalService) migrate(ctx context.Context, familyID string, keep *core.GoalRecord) (*core.Goal, error) {
	v, err, _ := s.migrations.Do(familyID, func() (any, error) {
		records, err := s.goals.ListGoals(ctx, familyID)
		if err != nil {
			return nil, fmt.Errorf("list goals: %w", err)
		}

		canonical, ok := core.CanonicalGoal(records)
		if keep != nil {
			canonical, ok = *keep, true
		}
		if !ok {
			return nil, nil
		}

		var errs []error
		changed := 0
		// Deactivate first so no two records are ever observably active.
		for _, r := range records {
			if r.ID == canonical.ID || r.IsInactive() {
				continue
			}
			if err := s.goals.SetGoalActive(ctx, r.ID, false); err != nil {
				errs = append(errs, fmt.Errorf("deactivate goal %s: %w", r.ID, err))
				continue
			}
			changed++
			s.logger.DebugContext(ctx, "Goal deactivated",
				applog.FieldGoalID, r.ID,
				"schema", r.Schema().String())
		}

		activated := canonical.IsActive()
		if !activated {
			if err := s.goals.SetGoalActive(ctx, canonical.ID, true); err != nil {
				errs = append(errs, fmt.Errorf("activate goal %s: %w", canonical.ID, err))
			} else {
				activated = true
				changed++
			}
		}

		if err := errors.Join(errs...); err != nil {
			var goal *core.Goal
			if activated {
				g := canonical.ToGoal()
				g.Active = true
				goal = &g
			}
			return goal, err
		}

		s.mu.Lock()
		s.migrated[familyID] = true
		s.mu.Unlock()

		if changed > 0 {
			s.logger.InfoContext(ctx, "Goals migrated",
				applog.FieldFamilyID, familyID,
				applog.FieldGoalID, canonical.ID,
				applog.FieldOperation, applog.OpMigrate,
				applog.FieldCount, changed)
			s.publish(ctx, gateway.NewChangeEvent(familyID, gateway.CollectionGoals, canonical.ID, gateway.OpUpdate))
		}

		g := canonical.ToGoal()
		g.Active = true
		return &g, nil
	})

	goal, _ := v.(*core.Goal)
	return goal, err
}

// SetGoal deactivates every active goal of the family, then creates a new
// active goal. A failed deactivation aborts before the new goal exists.
func (s *GoalService) SetGoal(ctx context.Context, familyID string, amount core.Money, actorID string) (core.Goal, error) {
	if strings.TrimSpace(familyID) == "" {
		return core.Goal{}, core.ErrEmptyFamily
	}
	if err := amount.Validate(); err != nil {
		return core.Goal{}, err
	}

	active, err := s.goals.ListActiveGoals(ctx, familyID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("list active goals: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range active {
		id := r.ID
		g.Go(func() error {
			if err := s.goals.SetGoalActive(gctx, id, false); err != nil {
				return fmt.Errorf("deactivate goal %s: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Goal{}, err
	}

	created, err := s.goals.CreateGoal(ctx, core.GoalRecord{
		FamilyID:  familyID,
		Amount:    amount,
		Active:    core.Bool(true),
		CreatedBy: actorID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}

	s.logger.InfoContext(ctx, "Savings goal set",
		applog.FieldFamilyID, familyID,
		applog.FieldGoalID, created.ID,
		applog.FieldActorID, actorID,
		applog.FieldAmountCents, amount.Cents,
		"deactivated", len(active))
	s.publish(ctx, gateway.NewChangeEvent(familyID, gateway.CollectionGoals, created.ID, gateway.OpCreate))

	return created.ToGoal(), nil
}

// UpdateGoalAmount edits a goal in place.
func (s *GoalService) UpdateGoalAmount(ctx context.Context, goalID string, amount core.Money) (core.Goal, error) {
	if err := amount.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := s.goals.UpdateGoalAmount(ctx, goalID, amount); err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	r, err := s.goals.GetGoal(ctx, goalID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	s.publish(ctx, gateway.NewChangeEvent(r.FamilyID, gateway.CollectionGoals, r.ID, gateway.OpUpdate))
	return r.ToGoal(), nil
}

// Progress compares the savings of now's month with the current goal. It
// returns nil when the family has no goal.
func (s *GoalService) Progress(ctx context.Context, familyID string, now time.Time) (*core.GoalProgress, error) {
	goal, err := s.GetCurrentGoal(ctx, familyID)
	if err != nil || goal == nil {
		return nil, err
	}

	from, to := core.MonthBounds(now)
	var income, expenses []core.LedgerEntry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = s.ledger.ListEntries(gctx, gateway.LedgerQuery{FamilyID: familyID, Kind: core.KindIncome, From: from, To: to})
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.ledger.ListEntries(gctx, gateway.LedgerQuery{FamilyID: familyID, Kind: core.KindExpense, From: from, To: to})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load month entries: %w", err)
	}

	p := core.ComputeProgress(*goal, core.Total(income), core.Total(expenses))
	return &p, nil
}

// SavingsHistory returns income minus expenses for each of the last months
// months up to now's month, oldest first.
func (s *GoalService) SavingsHistory(ctx context.Context, familyID string, now time.Time, months int) ([]core.MonthSavings, error) {
	if months < 1 {
		months = 1
	}
	first, end := core.MonthBounds(now)
	first = first.AddDate(0, -(months - 1), 0)

	entries, err := s.ledger.ListEntries(ctx, gateway.LedgerQuery{FamilyID: familyID, From: first, To: end})
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}

	history := make([]core.MonthSavings, months)
	index := make(map[core.PeriodKey]int, months)
	for i := range history {
		m := first.AddDate(0, i, 0)
		history[i] = core.MonthSavings{Year: m.Year(), Month: int(m.Month())}
		index[core.MonthKey(m)] = i
	}
	for _, e := range entries {
		i, ok := index[core.MonthKey(e.Date.Time)]
		if !ok {
			continue
		}
		switch e.Kind {
		case core.KindIncome:
			history[i].Savings = history[i].Savings.Add(e.Amount)
		case core.KindExpense:
			history[i].Savings = history[i].Savings.Sub(e.Amount)
		}
	}
	return history, nil
}

func (s *GoalService) publish(ctx context.Context, ev gateway.ChangeEvent) {
	publishChange(ctx, s.publisher, s.logger, ev)
}
