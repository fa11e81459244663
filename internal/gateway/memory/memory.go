// Package memory is an in-process document store implementing every
// gateway port, including the subscribe-for-changes primitive.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"familybudget/internal/core"
	"familybudget/internal/gateway"
)

const subscriberBuffer = 64

var (
	_ gateway.Gateway    = (*Store)(nil)
	_ gateway.ChangeFeed = (*Store)(nil)
)

type Store struct {
	mu          sync.Mutex
	obligations map[string]core.Obligation
	entries     map[string]core.LedgerEntry
	byIdemKey   map[string]string
	goals       map[string]core.GoalRecord
	thresholds  map[string]core.Thresholds
	categories  map[string]core.Category
	subs        map[string][]chan gateway.ChangeEvent
	now         func() time.Time
}

func New() *Store {
	return &Store{
		obligations: map[string]core.Obligation{},
		entries:     map[string]core.LedgerEntry{},
		byIdemKey:   map[string]string{},
		goals:       map[string]core.GoalRecord{},
		thresholds:  map[string]core.Thresholds{},
		categories:  map[string]core.Category{},
		subs:        map[string][]chan gateway.ChangeEvent{},
		now:         time.Now,
	}
}

// Obligations

func (s *Store) CreateObligation(_ context.Context, o core.Obligation) (core.Obligation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now()
	}
	s.obligations[o.ID] = o
	s.notifyLocked(o.FamilyID, gateway.CollectionObligations, o.ID, gateway.OpCreate)
	return o, nil
}

func (s *Store) GetObligation(_ context.Context, id string) (core.Obligation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.obligations[id]
	if !ok {
		return core.Obligation{}, fmt.Errorf("obligation %s: %w", id, gateway.ErrNotFound)
	}
	return o, nil
}

func (s *Store) ListActiveObligations(_ context.Context, familyID string) ([]core.Obligation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Obligation
	for _, o := range s.obligations {
		if o.FamilyID == familyID && o.Active {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateObligation(_ context.Context, o core.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.obligations[o.ID]
	if !ok {
		return fmt.Errorf("obligation %s: %w", o.ID, gateway.ErrNotFound)
	}
	cur.Name = o.Name
	cur.Amount = o.Amount
	cur.Category = o.Category
	cur.TriggerDay = o.TriggerDay
	cur.Month = o.Month
	s.obligations[o.ID] = cur
	s.notifyLocked(cur.FamilyID, gateway.CollectionObligations, cur.ID, gateway.OpUpdate)
	return nil
}

func (s *Store) DeactivateObligation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.obligations[id]
	if !ok {
		return fmt.Errorf("obligation %s: %w", id, gateway.ErrNotFound)
	}
	cur.Active = false
	s.obligations[id] = cur
	s.notifyLocked(cur.FamilyID, gateway.CollectionObligations, id, gateway.OpUpdate)
	return nil
}

func (s *Store) AdvanceProcessedPeriod(_ context.Context, id string, prev, next core.PeriodKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.obligations[id]
	if !ok {
		return false, fmt.Errorf("obligation %s: %w", id, gateway.ErrNotFound)
	}
	if cur.LastProcessedPeriod != prev {
		return false, nil
	}
	cur.LastProcessedPeriod = next
	s.obligations[id] = cur
	s.notifyLocked(cur.FamilyID, gateway.CollectionObligations, id, gateway.OpUpdate)
	return true, nil
}

// Ledger

func (s *Store) CreateEntry(_ context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.IdempotencyKey != "" {
		if _, exists := s.byIdemKey[e.IdempotencyKey]; exists {
			return core.LedgerEntry{}, fmt.Errorf("entry %s: %w", e.IdempotencyKey, gateway.ErrDuplicate)
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.entries[e.ID] = e
	if e.IdempotencyKey != "" {
		s.byIdemKey[e.IdempotencyKey] = e.ID
	}
	s.notifyLocked(e.FamilyID, gateway.CollectionLedger, e.ID, gateway.OpCreate)
	return e, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return core.LedgerEntry{}, fmt.Errorf("entry %s: %w", id, gateway.ErrNotFound)
	}
	return e, nil
}

func (s *Store) FindEntryByIdempotencyKey(_ context.Context, key string) (core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byIdemKey[key]
	if !ok {
		return core.LedgerEntry{}, fmt.Errorf("entry %s: %w", key, gateway.ErrNotFound)
	}
	return s.entries[id], nil
}

func (s *Store) ListEntries(_ context.Context, q gateway.LedgerQuery) ([]core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.LedgerEntry
	for _, e := range s.entries {
		if q.Matches(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateEntry(_ context.Context, e core.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[e.ID]
	if !ok {
		return fmt.Errorf("entry %s: %w", e.ID, gateway.ErrNotFound)
	}
	cur.Name = e.Name
	cur.Amount = e.Amount
	cur.Category = e.Category
	cur.Date = e.Date
	s.entries[e.ID] = cur
	s.notifyLocked(cur.FamilyID, gateway.CollectionLedger, cur.ID, gateway.OpUpdate)
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("entry %s: %w", id, gateway.ErrNotFound)
	}
	delete(s.entries, id)
	if cur.IdempotencyKey != "" {
		delete(s.byIdemKey, cur.IdempotencyKey)
	}
	s.notifyLocked(cur.FamilyID, gateway.CollectionLedger, id, gateway.OpDelete)
	return nil
}

// Goals

func (s *Store) CreateGoal(_ context.Context, g core.GoalRecord) (core.GoalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	s.goals[g.ID] = cloneGoal(g)
	s.notifyLocked(g.FamilyID, gateway.CollectionGoals, g.ID, gateway.OpCreate)
	return cloneGoal(g), nil
}

func (s *Store) GetGoal(_ context.Context, id string) (core.GoalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return core.GoalRecord{}, fmt.Errorf("goal %s: %w", id, gateway.ErrNotFound)
	}
	return cloneGoal(g), nil
}

func (s *Store) ListGoals(_ context.Context, familyID string) ([]core.GoalRecord, error) {
	return s.listGoals(familyID, func(core.GoalRecord) bool { return true }), nil
}

func (s *Store) ListActiveGoals(_ context.Context, familyID string) ([]core.GoalRecord, error) {
	return s.listGoals(familyID, core.GoalRecord.IsActive), nil
}

func (s *Store) listGoals(familyID string, keep func(core.GoalRecord) bool) []core.GoalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.GoalRecord
	for _, g := range s.goals {
		if g.FamilyID == familyID && keep(g) {
			out = append(out, cloneGoal(g))
		}
	}
	core.SortGoalsNewestFirst(out)
	return out
}

func (s *Store) SetGoalActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return fmt.Errorf("goal %s: %w", id, gateway.ErrNotFound)
	}
	g.Active = core.Bool(active)
	s.goals[id] = g
	s.notifyLocked(g.FamilyID, gateway.CollectionGoals, id, gateway.OpUpdate)
	return nil
}

func (s *Store) UpdateGoalAmount(_ context.Context, id string, amount core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return fmt.Errorf("goal %s: %w", id, gateway.ErrNotFound)
	}
	g.Amount = amount
	s.goals[id] = g
	s.notifyLocked(g.FamilyID, gateway.CollectionGoals, id, gateway.OpUpdate)
	return nil
}

func cloneGoal(g core.GoalRecord) core.GoalRecord {
	if g.Active != nil {
		g.Active = core.Bool(*g.Active)
	}
	return g
}

// Settings

func (s *Store) GetThresholds(_ context.Context, familyID string) (core.Thresholds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneThresholds(s.thresholds[familyID]), nil
}

func (s *Store) SaveThresholds(_ context.Context, familyID string, t core.Thresholds) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds[familyID] = cloneThresholds(t)
	s.notifyLocked(familyID, gateway.CollectionSettings, familyID, gateway.OpUpdate)
	return nil
}

func cloneThresholds(t core.Thresholds) core.Thresholds {
	if t.CategoryLimits != nil {
		limits := make(map[string]core.Money, len(t.CategoryLimits))
		for k, v := range t.CategoryLimits {
			limits[k] = v
		}
		t.CategoryLimits = limits
	}
	return t
}

// Categories

func (s *Store) ListCategories(_ context.Context, familyID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.FamilyID == familyID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.categories[c.ID] = c
	s.notifyLocked(c.FamilyID, gateway.CollectionCategories, c.ID, gateway.OpCreate)
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return fmt.Errorf("category %s: %w", id, gateway.ErrNotFound)
	}
	delete(s.categories, id)
	s.notifyLocked(c.FamilyID, gateway.CollectionCategories, id, gateway.OpDelete)
	return nil
}

// Subscribe registers a change listener for familyID. The channel is
// closed once ctx is done. Events are dropped for a listener whose buffer
// is full; listeners are expected to re-read state on each event anyway.
func (s *Store) Subscribe(ctx context.Context, familyID string) (<-chan gateway.ChangeEvent, error) {
	ch := make(chan gateway.ChangeEvent, subscriberBuffer)
	s.mu.Lock()
	s.subs[familyID] = append(s.subs[familyID], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subs[familyID]
		for i, c := range subs {
			if c == ch {
				s.subs[familyID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (s *Store) notifyLocked(familyID string, c gateway.Collection, docID string, op gateway.Op) {
	ev := gateway.ChangeEvent{FamilyID: familyID, Collection: c, DocID: docID, Op: op, Timestamp: s.now()}
	for _, ch := range s.subs[familyID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
