// Package gateway defines the persistence ports the engine is written
// against. Implementations live in gateway/memory and storage.
package gateway

import (
	"context"
	"errors"
	"time"

	"familybudget/internal/core"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate reports a ledger entry whose idempotency key already exists.
	ErrDuplicate = errors.New("duplicate idempotency key")
)

// Ports for outbound adapters.
type (
	ObligationStore interface {
		CreateObligation(ctx context.Context, o core.Obligation) (core.Obligation, error)
		GetObligation(ctx context.Context, id string) (core.Obligation, error)
		ListActiveObligations(ctx context.Context, familyID string) ([]core.Obligation, error)
		// UpdateObligation writes the user-editable fields (name, amount,
		// category, trigger day, month). Period bookkeeping is untouched.
		UpdateObligation(ctx context.Context, o core.Obligation) error
		DeactivateObligation(ctx context.Context, id string) error
		// AdvanceProcessedPeriod sets last_processed_period to next only if
		// the stored value still equals prev. It reports whether the write
		// happened.
		AdvanceProcessedPeriod(ctx context.Context, id string, prev, next core.PeriodKey) (bool, error)
	}

	LedgerStore interface {
		// CreateEntry returns ErrDuplicate when e.IdempotencyKey is set and
		// already used by another entry.
		CreateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error)
		GetEntry(ctx context.Context, id string) (core.LedgerEntry, error)
		FindEntryByIdempotencyKey(ctx context.Context, key string) (core.LedgerEntry, error)
		ListEntries(ctx context.Context, q LedgerQuery) ([]core.LedgerEntry, error)
		UpdateEntry(ctx context.Context, e core.LedgerEntry) error
		DeleteEntry(ctx context.Context, id string) error
	}

	GoalStore interface {
		CreateGoal(ctx context.Context, g core.GoalRecord) (core.GoalRecord, error)
		GetGoal(ctx context.Context, id string) (core.GoalRecord, error)
		ListGoals(ctx context.Context, familyID string) ([]core.GoalRecord, error)
		ListActiveGoals(ctx context.Context, familyID string) ([]core.GoalRecord, error)
		SetGoalActive(ctx context.Context, id string, active bool) error
		UpdateGoalAmount(ctx context.Context, id string, amount core.Money) error
	}

	SettingsStore interface {
		// GetThresholds returns zero thresholds when none were saved.
		GetThresholds(ctx context.Context, familyID string) (core.Thresholds, error)
		SaveThresholds(ctx context.Context, familyID string, t core.Thresholds) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context, familyID string) ([]core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, id string) error
	}

	// Gateway is the full document store.
	Gateway interface {
		ObligationStore
		LedgerStore
		GoalStore
		SettingsStore
		CategoryStore
	}

	// ChangeFeed delivers change events for one family until ctx is done.
	ChangeFeed interface {
		Subscribe(ctx context.Context, familyID string) (<-chan ChangeEvent, error)
	}

	ChangePublisher interface {
		PublishChange(ctx context.Context, ev ChangeEvent) error
	}
)

// LedgerQuery filters entries by family, optional kind and an optional
// [From, To) date range. Results are ordered by date, then creation time.
type LedgerQuery struct {
	FamilyID string
	Kind     core.Kind // empty = both
	From     time.Time // zero = unbounded
	To       time.Time // zero = unbounded
}

// Matches reports whether e satisfies the query.
func (q LedgerQuery) Matches(e core.LedgerEntry) bool {
	if e.FamilyID != q.FamilyID {
		return false
	}
	if q.Kind != "" && e.Kind != q.Kind {
		return false
	}
	day := e.Date.Format(core.DateLayout)
	if !q.From.IsZero() && day < q.From.Format(core.DateLayout) {
		return false
	}
	if !q.To.IsZero() && day >= q.To.Format(core.DateLayout) {
		return false
	}
	return true
}
