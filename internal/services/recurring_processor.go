package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"familybudget/internal/core"
	"familybudget/internal/gateway"
	applog "familybudget/internal/log"
)

// RecurringProcessor materializes ledger entries from active obligations,
// at most once per obligation and period.
type RecurringProcessor struct {
	obligations gateway.ObligationStore
	ledger      gateway.LedgerStore
	publisher   gateway.ChangePublisher
	inflight    singleflight.Group
	logger      *applog.Logger
}

// NewRecurringProcessor creates a new reconciliation engine. publisher may be nil.
func NewRecurringProcessor(obligations gateway.ObligationStore, ledger gateway.LedgerStore, publisher gateway.ChangePublisher) *RecurringProcessor {
	return &RecurringProcessor{
		obligations: obligations,
		ledger:      ledger,
		publisher:   publisher,
		logger:      applog.Default(applog.ComponentReconciler),
	}
}

// WithLogger replaces the processor's logger.
func (p *RecurringProcessor) WithLogger(l *applog.Logger) *RecurringProcessor {
	p.logger = l.WithComponent(applog.ComponentReconciler)
	return p
}

// Reconcile processes every active obligation of the family and returns
// the number of entries it wrote. Failures of single obligations are
// logged and left for the next pass.
func (p *RecurringProcessor) Reconcile(ctx context.Context, familyID string, now time.Time) (int, error) {
	if p.obligations == nil || p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	obligations, err := p.obligations.ListActiveObligations(ctx, familyID)
	if err != nil {
		return 0, fmt.Errorf("list active obligations: %w", err)
	}

	logger := p.logger.WithFamily(familyID)
	logger.DebugContext(ctx, "Reconciling obligations",
		"total_active", len(obligations),
		"processing_date", now.Format(core.DateLayout))

	processed := 0
	for _, o := range obligations {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		// Passes for the same obligation never overlap inside one process.
		v, err, _ := p.inflight.Do(o.ID, func() (any, error) {
			return p.reconcileOne(ctx, logger, o, now)
		})
		if err != nil {
			logger.ErrorContext(ctx, "Failed to reconcile obligation",
				applog.NewFields().
					WithObligation(o.ID, string(o.Frequency), "").
					WithOperation(applog.OpReconcile).
					WithError(err).
					ToSlice()...)
			continue
		}
		if v.(bool) {
			processed++
		}
	}

	if processed > 0 {
		logger.InfoContext(ctx, "Reconcile pass complete",
			applog.FieldCount, processed,
			"total_checked", len(obligations))
	}
	return processed, nil
}

// reconcileOne reports whether it wrote a new ledger entry.
func (p *RecurringProcessor) reconcileOne(ctx context.Context, logger *applog.Logger, snapshot core.Obligation, now time.Time) (bool, error) {
	// Re-read so a pass queued behind another one sees its marker.
	o, err := p.obligations.GetObligation(ctx, snapshot.ID)
	if err != nil {
		return false, fmt.Errorf("get obligation: %w", err)
	}
	if !o.Active {
		return false, nil
	}

	key, trigger, due, err := Due(o, now)
	if err != nil || !due {
		return false, err
	}

	entry := core.LedgerEntry{
		FamilyID:       o.FamilyID,
		Kind:           o.Kind,
		Name:           o.Name,
		Amount:         o.Amount,
		Category:       o.Category,
		Date:           core.DateOf(trigger),
		AddedBy:        o.CreatedBy,
		ObligationID:   o.ID,
		IdempotencyKey: o.IdempotencyKey(key),
	}
	if o.Kind == core.KindIncome {
		entry.Category = ""
	}

	// The entry goes first: the period must never be marked without it.
	created := true
	saved, err := p.ledger.CreateEntry(ctx, entry)
	switch {
	case errors.Is(err, gateway.ErrDuplicate):
		created = false
		existing, ferr := p.ledger.FindEntryByIdempotencyKey(ctx, entry.IdempotencyKey)
		if ferr != nil {
			logger.WarnContext(ctx, "Materialized entry not readable, repairing marker anyway",
				applog.FieldObligationID, o.ID,
				applog.FieldPeriod, string(key),
				applog.FieldError, ferr)
			break
		}
		logger.InfoContext(ctx, "Entry already materialized, repairing marker",
			applog.FieldObligationID, o.ID,
			applog.FieldPeriod, string(key),
			applog.FieldEntryID, existing.ID)
	case err != nil:
		return false, fmt.Errorf("create ledger entry: %w", err)
	default:
		p.publish(ctx, gateway.NewChangeEvent(o.FamilyID, gateway.CollectionLedger, saved.ID, gateway.OpCreate))
	}

	advanced, err := p.obligations.AdvanceProcessedPeriod(ctx, o.ID, o.LastProcessedPeriod, key)
	if err != nil {
		return created, fmt.Errorf("mark period %s processed: %w", key, err)
	}
	if !advanced {
		logger.InfoContext(ctx, "Processed period changed concurrently",
			applog.FieldObligationID, o.ID,
			applog.FieldPeriod, string(key))
		return created, nil
	}
	p.publish(ctx, gateway.NewChangeEvent(o.FamilyID, gateway.CollectionObligations, o.ID, gateway.OpUpdate))

	if created {
		logger.InfoContext(ctx, "Created entry from obligation",
			applog.NewFields().
				WithObligation(o.ID, string(o.Frequency), string(key)).
				WithEntry(saved.ID, string(o.Kind), o.Amount.Cents, o.Category).
				ToSlice()...)
	}
	return created, nil
}

func (p *RecurringProcessor) publish(ctx context.Context, ev gateway.ChangeEvent) {
	publishChange(ctx, p.publisher, p.logger, ev)
}
