package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"familybudget/internal/core"
	"familybudget/internal/gateway/memory"
	"familybudget/internal/services"
)

type sessionFixture struct {
	store    *memory.Store
	ledger   *services.LedgerService
	goals    *services.GoalService
	settings *services.SettingsService
	deps     Dependencies
}

func newSessionFixture(sinks ...AlertSink) *sessionFixture {
	store := memory.New()
	obligations := services.NewObligationService(store, nil)
	f := &sessionFixture{
		store:    store,
		ledger:   services.NewLedgerService(store, obligations, nil),
		goals:    services.NewGoalService(store, store, nil),
		settings: services.NewSettingsService(store, store, nil, 8, time.Hour),
	}
	f.deps = Dependencies{
		Reconciler: services.NewRecurringProcessor(store, store, nil),
		Goals:      f.goals,
		Ledger:     f.ledger,
		Settings:   f.settings,
		Feed:       store,
		Sinks:      sinks,
	}
	return f
}

func waitAlert(t *testing.T, ch <-chan core.Alert) core.Alert {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for alert")
		return core.Alert{}
	}
}

func TestSession_ReactsToChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan core.Alert, 16)
	f := newSessionFixture(SinkFunc(func(_ context.Context, a core.Alert) error {
		received <- a
		return nil
	}))

	now := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	if _, err := f.store.CreateObligation(ctx, core.Obligation{
		FamilyID: "fam", Kind: core.KindExpense, Name: "Rent", Amount: core.Money{Cents: 150000},
		Category: "Housing", TriggerDay: 31, Frequency: core.Monthly, Active: true,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.settings.SaveThresholds(ctx, "fam", core.Thresholds{
		MonthlyLimit:       core.Money{Cents: 100000},
		SingleExpenseLimit: core.Money{Cents: 160000},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.goals.SetGoal(ctx, "fam", core.Money{Cents: 50000}, "robin"); err != nil {
		t.Fatal(err)
	}

	s, err := NewSession("fam", time.Hour, f.deps)
	if err != nil {
		t.Fatal(err)
	}
	s.WithClock(func() time.Time { return now })

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Startup reconciles the rent into February and trips the monthly limit.
	first := waitAlert(t, received)
	if first.Kind != core.AlertMonthly || first.Key != "monthly:2024-02" || first.FamilyID != "fam" {
		t.Fatalf("unexpected first alert: %+v", first)
	}
	if g := s.Goal(); g == nil || g.Amount.Cents != 50000 {
		t.Errorf("goal not loaded at startup: %+v", g)
	}

	tv, _, err := f.ledger.Create(ctx, services.EntryInput{
		FamilyID: "fam", ActorID: "robin", Kind: core.KindExpense, Name: "TV",
		Amount: core.Money{Cents: 170000}, Category: "Electronics", Date: core.NewDate(2024, 2, 29),
	})
	if err != nil {
		t.Fatal(err)
	}
	single := waitAlert(t, received)
	if single.Kind != core.AlertSingle || single.EntryID != tv.ID {
		t.Fatalf("expected single alert for the new entry, got %+v", single)
	}

	// A write that bypasses the settings service must still be picked up.
	if err := f.store.SaveThresholds(ctx, "fam", core.Thresholds{
		MonthlyLimit:       core.Money{Cents: 100000},
		SingleExpenseLimit: core.Money{Cents: 160000},
		CategoryLimits:     map[string]core.Money{"housing": {Cents: 100000}},
	}); err != nil {
		t.Fatal(err)
	}
	category := waitAlert(t, received)
	if category.Kind != core.AlertCategory || category.Key != "category:housing:2024-02" {
		t.Fatalf("expected category alert, got %+v", category)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}

	select {
	case a := <-received:
		t.Errorf("unexpected extra alert: %+v", a)
	default:
	}
	if got := len(s.Alerts()); got != 3 {
		t.Errorf("Alerts() = %d, want 3", got)
	}
	entries, _ := f.ledger.List(context.Background(), "fam", core.KindExpense, time.Time{}, time.Time{})
	if len(entries) != 2 {
		t.Errorf("expected rent and TV entries, got %d", len(entries))
	}
}

func TestSession_WithoutFeedRunsStartup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan core.Alert, 4)
	failing := SinkFunc(func(context.Context, core.Alert) error { return errors.New("broker down") })
	f := newSessionFixture(failing, SinkFunc(func(_ context.Context, a core.Alert) error {
		received <- a
		return nil
	}))
	f.deps.Feed = nil

	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	if err := f.settings.SaveThresholds(ctx, "fam", core.Thresholds{DailyLimit: core.Money{Cents: 1000}}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.ledger.Create(ctx, services.EntryInput{
		FamilyID: "fam", Kind: core.KindExpense, Name: "Dinner", Amount: core.Money{Cents: 4500},
		Category: "Food", Date: core.NewDate(2024, 5, 10),
	}); err != nil {
		t.Fatal(err)
	}

	s, err := NewSession("fam", time.Hour, f.deps)
	if err != nil {
		t.Fatal(err)
	}
	s.WithClock(func() time.Time { return now })
	go s.Run(ctx)

	a := waitAlert(t, received)
	if a.Kind != core.AlertDaily || a.Key != "daily:2024-05-10" {
		t.Errorf("unexpected alert: %+v", a)
	}
	if s.Goal() != nil {
		t.Error("family without goals should have no current goal")
	}
}

func TestSession_TickEvaluatesOnNewDay(t *testing.T) {
	ctx := context.Background()
	var raised []core.Alert
	f := newSessionFixture(SinkFunc(func(_ context.Context, a core.Alert) error {
		raised = append(raised, a)
		return nil
	}))
	f.deps.Feed = nil

	if err := f.settings.SaveThresholds(ctx, "fam", core.Thresholds{DailyLimit: core.Money{Cents: 1000}}); err != nil {
		t.Fatal(err)
	}
	// Entered a day ahead of its date.
	if _, _, err := f.ledger.Create(ctx, services.EntryInput{
		FamilyID: "fam", Kind: core.KindExpense, Name: "Concert", Amount: core.Money{Cents: 6000},
		Category: "Leisure", Date: core.NewDate(2024, 5, 11),
	}); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC)
	s, err := NewSession("fam", time.Hour, f.deps)
	if err != nil {
		t.Fatal(err)
	}
	s.WithClock(func() time.Time { return now })

	s.startup(ctx)
	s.tick(ctx)
	if len(raised) != 0 {
		t.Fatalf("no alert expected before the entry's day, got %+v", raised)
	}

	now = time.Date(2024, 5, 11, 0, 30, 0, 0, time.UTC)
	s.tick(ctx)
	if len(raised) != 1 || raised[0].Key != "daily:2024-05-11" {
		t.Fatalf("expected the daily alert on the new day, got %+v", raised)
	}

	s.tick(ctx)
	if len(raised) != 1 {
		t.Errorf("same-day tick raised again: %+v", raised)
	}
}

func TestNewSession_Validates(t *testing.T) {
	f := newSessionFixture()
	if _, err := NewSession(" ", time.Minute, f.deps); !errors.Is(err, core.ErrEmptyFamily) {
		t.Errorf("expected ErrEmptyFamily, got %v", err)
	}
	if _, err := NewSession("fam", time.Minute, Dependencies{}); err == nil {
		t.Error("expected error for missing dependencies")
	}
}
