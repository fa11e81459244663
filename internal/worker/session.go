// Package worker runs the per-family session loop: it reconciles
// obligations, keeps the current savings goal loaded and evaluates
// spending alerts whenever the family's data changes.
package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"familybudget/internal/core"
	"familybudget/internal/gateway"
	applog "familybudget/internal/log"
	"familybudget/internal/services"
)

// Dependencies are the services a session drives.
type Dependencies struct {
	Reconciler *services.RecurringProcessor
	Goals      *services.GoalService
	Ledger     *services.LedgerService
	Settings   *services.SettingsService

	// Feed is optional. Without it the session only reacts to the ticker.
	Feed  gateway.ChangeFeed
	Sinks []AlertSink
}

// Session is one family member's live view. Reconcile and Evaluate never
// run concurrently within a session: everything happens on the Run
// goroutine.
type Session struct {
	familyID string
	interval time.Duration
	deps     Dependencies
	dedup    *services.DedupState
	logger   *applog.Logger
	now      func() time.Time

	// evaluatedDay is the day of the last evaluation; owned by Run.
	evaluatedDay core.Date

	mu     sync.Mutex
	goal   *core.Goal
	alerts []core.Alert
}

// NewSession creates a session for familyID reconciling every interval.
func NewSession(familyID string, interval time.Duration, deps Dependencies) (*Session, error) {
	if strings.TrimSpace(familyID) == "" {
		return nil, core.ErrEmptyFamily
	}
	if deps.Reconciler == nil || deps.Goals == nil || deps.Ledger == nil || deps.Settings == nil {
		return nil, fmt.Errorf("session dependencies incomplete")
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Session{
		familyID: familyID,
		interval: interval,
		deps:     deps,
		dedup:    services.NewDedupState(),
		logger:   applog.Default(applog.ComponentWorker).WithFamily(familyID),
		now:      time.Now,
	}, nil
}

// WithClock replaces the session's time source.
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// Run subscribes to the family's changes, performs the startup pass and
// then serves events and ticks until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	ctx = applog.NewContext(ctx, s.logger)

	var events <-chan gateway.ChangeEvent
	if s.deps.Feed != nil {
		ch, err := s.deps.Feed.Subscribe(ctx, s.familyID)
		if err != nil {
			return fmt.Errorf("subscribe to changes: %w", err)
		}
		events = ch
	}

	s.logger.InfoContext(ctx, "Session started",
		applog.FieldOperation, applog.OpStartup,
		"interval", s.interval,
		"change_feed", events != nil)
	s.startup(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Session stopped", applog.FieldOperation, applog.OpShutdown)
			return nil
		case ev, ok := <-events:
			if !ok {
				s.logger.WarnContext(ctx, "Change feed closed, continuing on ticker only")
				events = nil
				continue
			}
			s.handle(ctx, ev)
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Session) startup(ctx context.Context) {
	s.reconcile(ctx)
	s.refreshGoal(ctx)
	s.evaluate(ctx)
}

// tick reconciles and re-evaluates when entries were written or the day
// changed since the last evaluation, so entries dated ahead still raise
// their daily and monthly alerts once their day comes.
func (s *Session) tick(ctx context.Context) {
	created := s.reconcile(ctx)
	if created > 0 || !s.evaluatedDay.SameDay(s.now()) {
		s.evaluate(ctx)
	}
}

func (s *Session) handle(ctx context.Context, ev gateway.ChangeEvent) {
	if ev.FamilyID != s.familyID {
		return
	}
	s.logger.DebugContext(ctx, "Change received",
		applog.FieldCollection, string(ev.Collection),
		"doc_id", ev.DocID,
		"op", string(ev.Op))

	switch ev.Collection {
	case gateway.CollectionLedger:
		s.evaluate(ctx)
	case gateway.CollectionSettings:
		s.deps.Settings.Invalidate(s.familyID)
		s.evaluate(ctx)
	case gateway.CollectionObligations:
		if s.reconcile(ctx) > 0 {
			s.evaluate(ctx)
		}
	case gateway.CollectionGoals:
		s.refreshGoal(ctx)
	}
}

func (s *Session) reconcile(ctx context.Context) int {
	n, err := s.deps.Reconciler.Reconcile(ctx, s.familyID, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "Reconcile failed",
			applog.FieldOperation, applog.OpReconcile,
			applog.FieldError, err)
	}
	return n
}

func (s *Session) refreshGoal(ctx context.Context) {
	goal, err := s.deps.Goals.GetCurrentGoal(ctx, s.familyID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load current goal", applog.FieldError, err)
		return
	}
	s.mu.Lock()
	s.goal = goal
	s.mu.Unlock()
}

// evaluate checks this month's expenses against the thresholds and
// delivers the alerts not raised before in this session.
func (s *Session) evaluate(ctx context.Context) {
	now := s.now()
	thresholds, err := s.deps.Settings.Thresholds(ctx, s.familyID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load thresholds", applog.FieldError, err)
		return
	}
	from, to := core.MonthBounds(now)
	entries, err := s.deps.Ledger.List(ctx, s.familyID, core.KindExpense, from, to)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load ledger", applog.FieldError, err)
		return
	}
	s.evaluatedDay = core.DateOf(now)

	alerts := services.Evaluate(now, entries, thresholds, s.dedup)
	if len(alerts) == 0 {
		return
	}
	for i := range alerts {
		alerts[i].FamilyID = s.familyID
	}

	s.mu.Lock()
	s.alerts = append(s.alerts, alerts...)
	s.mu.Unlock()

	for _, a := range alerts {
		for _, sink := range s.deps.Sinks {
			if err := sink.Deliver(ctx, a); err != nil {
				s.logger.WarnContext(ctx, "Alert delivery failed",
					applog.NewFields().WithAlert(string(a.Kind), a.Key).WithError(err).ToSlice()...)
			}
		}
	}
	s.logger.InfoContext(ctx, "Alerts raised",
		applog.FieldOperation, applog.OpEvaluate,
		applog.FieldCount, len(alerts))
}

// Goal returns the goal loaded by the last refresh, nil when the family
// has none.
func (s *Session) Goal() *core.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.goal == nil {
		return nil
	}
	g := *s.goal
	return &g
}

// Alerts returns every alert raised during the session, oldest first.
func (s *Session) Alerts() []core.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Alert(nil), s.alerts...)
}
