package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"familybudget/internal/core"
	"familybudget/internal/gateway"
	applog "familybudget/internal/log"
)

// EntryInput is a user-submitted income or expense.
type EntryInput struct {
	FamilyID string
	ActorID  string
	Kind     core.Kind
	Name     string
	Amount   core.Money
	Category string
	Date     core.Date

	// Recurring also registers an obligation repeating the entry on the
	// same day of every month (or of the same month every year).
	Recurring bool
	Frequency core.Frequency
}

// LedgerService orchestrates ledger writes and the change events they produce.
type LedgerService struct {
	ledger      gateway.LedgerStore
	obligations *ObligationService
	publisher   gateway.ChangePublisher
	logger      *applog.Logger
	now         func() time.Time
}

// NewLedgerService creates a ledger service. publisher may be nil.
func NewLedgerService(ledger gateway.LedgerStore, obligations *ObligationService, publisher gateway.ChangePublisher) *LedgerService {
	return &LedgerService{
		ledger:      ledger,
		obligations: obligations,
		publisher:   publisher,
		logger:      applog.Default(applog.ComponentLedger),
		now:         time.Now,
	}
}

// Create validates and stores an entry. With in.Recurring set it also
// registers the matching obligation, already marked processed for the
// entry's own period. Nothing is written when validation fails.
func (s *LedgerService) Create(ctx context.Context, in EntryInput) (core.LedgerEntry, *core.Obligation, error) {
	e := core.LedgerEntry{
		FamilyID:  strings.TrimSpace(in.FamilyID),
		Kind:      in.Kind,
		Name:      strings.TrimSpace(in.Name),
		Amount:    in.Amount,
		Category:  strings.TrimSpace(in.Category),
		Date:      in.Date,
		AddedBy:   in.ActorID,
		CreatedAt: s.now(),
	}
	if e.Kind == core.KindIncome {
		e.Category = ""
	}
	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, nil, err
	}

	var template *core.Obligation
	if in.Recurring {
		if s.obligations == nil {
			return core.LedgerEntry{}, nil, fmt.Errorf("recurring entries need an obligation registry")
		}
		o := obligationFromEntry(e, in.Frequency)
		if err := o.Validate(); err != nil {
			return core.LedgerEntry{}, nil, err
		}
		template = &o
	}

	saved, err := s.ledger.CreateEntry(ctx, e)
	if err != nil {
		return core.LedgerEntry{}, nil, fmt.Errorf("save entry: %w", err)
	}
	s.logger.InfoContext(ctx, "Ledger entry created",
		applog.NewFields().
			WithFamily(saved.FamilyID).
			WithEntry(saved.ID, string(saved.Kind), saved.Amount.Cents, saved.Category).
			WithOperation(applog.OpCreate).
			ToSlice()...)
	s.publish(ctx, gateway.NewChangeEvent(saved.FamilyID, gateway.CollectionLedger, saved.ID, gateway.OpCreate))

	if template == nil {
		return saved, nil, nil
	}
	created, err := s.obligations.Create(ctx, *template)
	if err != nil {
		// The entry stays; the caller may register the obligation again.
		return saved, nil, fmt.Errorf("register recurring obligation: %w", err)
	}
	return saved, &created, nil
}

func obligationFromEntry(e core.LedgerEntry, frequency core.Frequency) core.Obligation {
	if frequency == "" {
		frequency = core.Monthly
	}
	o := core.Obligation{
		FamilyID:   e.FamilyID,
		Kind:       e.Kind,
		Name:       e.Name,
		Amount:     e.Amount,
		Category:   e.Category,
		TriggerDay: e.Date.Day(),
		Frequency:  frequency,
		Active:     true,
		CreatedBy:  e.AddedBy,
	}
	switch frequency {
	case core.Annual:
		o.Month = e.Date.Month()
		o.LastProcessedPeriod = core.YearKey(e.Date.Time)
	default:
		o.LastProcessedPeriod = core.MonthKey(e.Date.Time)
	}
	return o
}

// Get returns one entry.
func (s *LedgerService) Get(ctx context.Context, id string) (core.LedgerEntry, error) {
	return s.ledger.GetEntry(ctx, id)
}

// Update edits the name, amount, category and date of an entry.
func (s *LedgerService) Update(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	cur, err := s.ledger.GetEntry(ctx, e.ID)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	cur.Name = strings.TrimSpace(e.Name)
	cur.Amount = e.Amount
	cur.Date = e.Date
	if cur.Kind == core.KindExpense {
		cur.Category = strings.TrimSpace(e.Category)
	}
	if err := cur.Validate(); err != nil {
		return core.LedgerEntry{}, err
	}
	if err := s.ledger.UpdateEntry(ctx, cur); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("update entry: %w", err)
	}
	s.publish(ctx, gateway.NewChangeEvent(cur.FamilyID, gateway.CollectionLedger, cur.ID, gateway.OpUpdate))
	return cur, nil
}

// Delete removes an entry.
func (s *LedgerService) Delete(ctx context.Context, id string) error {
	cur, err := s.ledger.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	s.logger.InfoContext(ctx, "Ledger entry deleted",
		applog.FieldFamilyID, cur.FamilyID,
		applog.FieldEntryID, id)
	s.publish(ctx, gateway.NewChangeEvent(cur.FamilyID, gateway.CollectionLedger, id, gateway.OpDelete))
	return nil
}

// List returns the family's entries of kind (empty for both) dated in
// [from, to). Zero bounds are open.
func (s *LedgerService) List(ctx context.Context, familyID string, kind core.Kind, from, to time.Time) ([]core.LedgerEntry, error) {
	if kind != "" {
		if err := kind.Validate(); err != nil {
			return nil, err
		}
	}
	entries, err := s.ledger.ListEntries(ctx, gateway.LedgerQuery{FamilyID: familyID, Kind: kind, From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// MonthOverview summarizes t's month.
func (s *LedgerService) MonthOverview(ctx context.Context, familyID string, t time.Time) (core.MonthOverview, error) {
	from, to := core.MonthBounds(t)
	entries, err := s.List(ctx, familyID, "", from, to)
	if err != nil {
		return core.MonthOverview{}, err
	}
	return core.Overview(t, entries), nil
}

func (s *LedgerService) publish(ctx context.Context, ev gateway.ChangeEvent) {
	publishChange(ctx, s.publisher, s.logger, ev)
}
