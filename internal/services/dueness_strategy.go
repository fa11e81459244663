// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for obligation dueness checking.
// Each frequency (monthly, annual) has its own strategy that decides which
// period the current instant belongs to and when that period's entry fires.

package services

import (
	"fmt"
	"time"

	"familybudget/internal/core"
)

// PeriodStrategy is the strategy interface for locating an obligation's
// current period.
type PeriodStrategy interface {
	// CurrentPeriod returns the period key containing now and the effective
	// trigger date inside it. ok is false when the obligation has no trigger
	// in the period now falls in.
	CurrentPeriod(o core.Obligation, now time.Time) (key core.PeriodKey, trigger time.Time, ok bool)
}

// MonthlyStrategy fires once per calendar month.
type MonthlyStrategy struct{}

func (MonthlyStrategy) CurrentPeriod(o core.Obligation, now time.Time) (core.PeriodKey, time.Time, bool) {
	trigger := core.EffectiveTriggerDate(now.Year(), now.Month(), o.TriggerDay, now.Location())
	return core.MonthKey(now), trigger, true
}

// AnnualStrategy fires once per year, only within the obligation's month.
type AnnualStrategy struct{}

func (AnnualStrategy) CurrentPeriod(o core.Obligation, now time.Time) (core.PeriodKey, time.Time, bool) {
	if now.Month() != o.TriggerMonth() {
		return "", time.Time{}, false
	}
	trigger := core.EffectiveTriggerDate(now.Year(), now.Month(), o.TriggerDay, now.Location())
	return core.YearKey(now), trigger, true
}

// periodStrategies maps frequencies to their strategy.
var periodStrategies = map[core.Frequency]PeriodStrategy{
	core.Monthly: MonthlyStrategy{},
	core.Annual:  AnnualStrategy{},
}

// GetPeriodStrategy returns the strategy for a frequency.
// Returns an error if the frequency is not supported.
func GetPeriodStrategy(frequency core.Frequency) (PeriodStrategy, error) {
	strategy, ok := periodStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, frequency)
	}
	return strategy, nil
}

// RegisterPeriodStrategy registers a strategy for a new frequency.
func RegisterPeriodStrategy(frequency core.Frequency, strategy PeriodStrategy) {
	periodStrategies[frequency] = strategy
}

// Due reports whether o must be materialized at now: the trigger date of
// the current period has been reached and the period is not yet marked
// processed. It also returns the period key and trigger date.
func Due(o core.Obligation, now time.Time) (core.PeriodKey, time.Time, bool, error) {
	strategy, err := GetPeriodStrategy(o.Frequency)
	if err != nil {
		return "", time.Time{}, false, err
	}
	key, trigger, ok := strategy.CurrentPeriod(o, now)
	if !ok {
		return "", time.Time{}, false, nil
	}
	if now.Before(trigger) || o.LastProcessedPeriod == key {
		return key, trigger, false, nil
	}
	return key, trigger, true, nil
}
