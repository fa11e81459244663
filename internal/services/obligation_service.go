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

// ObligationService is the registry of recurring income and expense templates.
type ObligationService struct {
	store     gateway.ObligationStore
	publisher gateway.ChangePublisher
	logger    *applog.Logger
	now       func() time.Time
}

// NewObligationService creates the registry. publisher may be nil.
func NewObligationService(store gateway.ObligationStore, publisher gateway.ChangePublisher) *ObligationService {
	return &ObligationService{
		store:     store,
		publisher: publisher,
		logger:    applog.Default(applog.ComponentObligations),
		now:       time.Now,
	}
}

// Create validates and stores a new active obligation.
func (s *ObligationService) Create(ctx context.Context, o core.Obligation) (core.Obligation, error) {
	o.Name = strings.TrimSpace(o.Name)
	o.Category = strings.TrimSpace(o.Category)
	if o.Kind == core.KindIncome {
		o.Category = ""
	}
	if o.Frequency == core.Monthly {
		o.Month = 0
	}
	o.Active = true
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now()
	}
	if err := o.Validate(); err != nil {
		return core.Obligation{}, err
	}

	created, err := s.store.CreateObligation(ctx, o)
	if err != nil {
		return core.Obligation{}, fmt.Errorf("save obligation: %w", err)
	}
	s.logger.InfoContext(ctx, "Obligation registered",
		applog.NewFields().
			WithFamily(created.FamilyID).
			WithObligation(created.ID, string(created.Frequency), string(created.LastProcessedPeriod)).
			WithOperation(applog.OpCreate).
			ToSlice()...)
	s.publish(ctx, gateway.NewChangeEvent(created.FamilyID, gateway.CollectionObligations, created.ID, gateway.OpCreate))
	return created, nil
}

// Get returns one obligation.
func (s *ObligationService) Get(ctx context.Context, id string) (core.Obligation, error) {
	return s.store.GetObligation(ctx, id)
}

// ListActive returns the family's active obligations of both kinds.
func (s *ObligationService) ListActive(ctx context.Context, familyID string) ([]core.Obligation, error) {
	return s.store.ListActiveObligations(ctx, familyID)
}

// Update edits the name, amount, category, trigger day and month of an
// obligation. Kind, frequency and period bookkeeping never change.
func (s *ObligationService) Update(ctx context.Context, o core.Obligation) (core.Obligation, error) {
	cur, err := s.store.GetObligation(ctx, o.ID)
	if err != nil {
		return core.Obligation{}, err
	}
	cur.Name = strings.TrimSpace(o.Name)
	cur.Amount = o.Amount
	cur.TriggerDay = o.TriggerDay
	if cur.Kind == core.KindExpense {
		cur.Category = strings.TrimSpace(o.Category)
	}
	if cur.Frequency == core.Annual {
		cur.Month = o.Month
	}
	if err := cur.Validate(); err != nil {
		return core.Obligation{}, err
	}
	if err := s.store.UpdateObligation(ctx, cur); err != nil {
		return core.Obligation{}, fmt.Errorf("update obligation: %w", err)
	}
	s.publish(ctx, gateway.NewChangeEvent(cur.FamilyID, gateway.CollectionObligations, cur.ID, gateway.OpUpdate))
	return cur, nil
}

// Deactivate soft-deletes an obligation. Entries it produced stay.
func (s *ObligationService) Deactivate(ctx context.Context, id string) error {
	cur, err := s.store.GetObligation(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeactivateObligation(ctx, id); err != nil {
		return fmt.Errorf("deactivate obligation: %w", err)
	}
	s.logger.InfoContext(ctx, "Obligation deactivated",
		applog.FieldFamilyID, cur.FamilyID,
		applog.FieldObligationID, id)
	s.publish(ctx, gateway.NewChangeEvent(cur.FamilyID, gateway.CollectionObligations, id, gateway.OpUpdate))
	return nil
}

func (s *ObligationService) publish(ctx context.Context, ev gateway.ChangeEvent) {
	publishChange(ctx, s.publisher, s.logger, ev)
}
