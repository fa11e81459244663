package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"familybudget/internal/core"
)

// DedupState remembers the alert keys already raised in one session. It is
// never persisted.
type DedupState struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewDedupState() *DedupState {
	return &DedupState{keys: map[string]struct{}{}}
}

// Seen reports whether key was already raised.
func (s *DedupState) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

// mark records key and reports whether it was new.
func (s *DedupState) mark(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// Len returns the number of raised keys.
func (s *DedupState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Evaluate checks the expense entries against the thresholds and returns
// the alerts not yet raised in state, marking them raised. Income entries
// are ignored. Alerts come out monthly first, then daily, then per entry by
// date and id, then per category by name.
func Evaluate(now time.Time, entries []core.LedgerEntry, t core.Thresholds, state *DedupState) []core.Alert {
	if state == nil {
		state = NewDedupState()
	}

	period := core.MonthKey(now)
	var (
		monthTotal, dayTotal core.Money
		byCategory           = map[string]core.Money{}
		expenses             []core.LedgerEntry
	)
	for _, e := range entries {
		if e.Kind != core.KindExpense {
			continue
		}
		expenses = append(expenses, e)
		if e.Date.SameMonth(now) {
			monthTotal = monthTotal.Add(e.Amount)
			name := core.CategoryKey(e.Category)
			byCategory[name] = byCategory[name].Add(e.Amount)
		}
		if e.Date.SameDay(now) {
			dayTotal = dayTotal.Add(e.Amount)
		}
	}

	var alerts []core.Alert
	raise := func(a core.Alert) {
		if state.mark(a.Key) {
			a.RaisedAt = now
			alerts = append(alerts, a)
		}
	}

	if limit := t.MonthlyLimit; limit.Cents > 0 && monthTotal.Cents > limit.Cents {
		raise(core.Alert{
			Kind:    core.AlertMonthly,
			Key:     core.MonthlyAlertKey(period),
			Total:   monthTotal,
			Limit:   limit,
			Message: fmt.Sprintf("Monthly spending %s exceeds the limit of %s", monthTotal, limit),
		})
	}

	if limit := t.DailyLimit; limit.Cents > 0 && dayTotal.Cents > limit.Cents {
		raise(core.Alert{
			Kind:    core.AlertDaily,
			Key:     core.DailyAlertKey(core.DateOf(now)),
			Total:   dayTotal,
			Limit:   limit,
			Message: fmt.Sprintf("Today's spending %s exceeds the daily limit of %s", dayTotal, limit),
		})
	}

	if limit := t.SingleExpenseLimit; limit.Cents > 0 {
		sort.SliceStable(expenses, func(i, j int) bool {
			if !expenses[i].Date.Equal(expenses[j].Date.Time) {
				return expenses[i].Date.Before(expenses[j].Date.Time)
			}
			return expenses[i].ID < expenses[j].ID
		})
		for _, e := range expenses {
			if e.Amount.Cents <= limit.Cents {
				continue
			}
			raise(core.Alert{
				Kind:     core.AlertSingle,
				Key:      core.EntryAlertKey(e.ID),
				Total:    e.Amount,
				Limit:    limit,
				Category: e.Category,
				EntryID:  e.ID,
				Message:  fmt.Sprintf("Expense %q of %s exceeds the single expense limit of %s", e.Name, e.Amount, limit),
			})
		}
	}

	names := make([]string, 0, len(t.CategoryLimits))
	for name := range t.CategoryLimits {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		limit := t.CategoryLimits[name]
		total := byCategory[core.CategoryKey(name)]
		if limit.Cents <= 0 || total.Cents <= limit.Cents {
			continue
		}
		raise(core.Alert{
			Kind:     core.AlertCategory,
			Key:      core.CategoryAlertKey(name, period),
			Total:    total,
			Limit:    limit,
			Category: name,
			Message:  fmt.Sprintf("Spending on %s this month (%s) exceeds the limit of %s", name, total, limit),
		})
	}

	return alerts
}
