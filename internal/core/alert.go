package core

import (
	"fmt"
	"time"
)

// AlertKind names the rule that raised an alert.
type AlertKind string

const (
	AlertMonthly  AlertKind = "monthly"
	AlertDaily    AlertKind = "daily"
	AlertSingle   AlertKind = "single"
	AlertCategory AlertKind = "category"
)

// Thresholds configures the spending alerts of a family. A zero limit
// disables its rule.
type Thresholds struct {
	DailyLimit         Money
	MonthlyLimit       Money
	SingleExpenseLimit Money
	CategoryLimits     map[string]Money
}

func (t Thresholds) Validate() error {
	if t.DailyLimit.Cents < 0 || t.MonthlyLimit.Cents < 0 || t.SingleExpenseLimit.Cents < 0 {
		return ErrInvalidAmount
	}
	seen := make(map[string]string, len(t.CategoryLimits))
	for name, limit := range t.CategoryLimits {
		key := CategoryKey(name)
		if key == "" {
			return ErrEmptyCategory
		}
		if limit.Cents < 0 {
			return fmt.Errorf("category %q: %w", name, ErrInvalidAmount)
		}
		if other, ok := seen[key]; ok {
			return fmt.Errorf("limits for %q and %q: %w", other, name, ErrCategoryExists)
		}
		seen[key] = name
	}
	return nil
}

// Alert is a threshold violation ready for presentation.
type Alert struct {
	Kind     AlertKind
	Key      string // dedup key
	FamilyID string
	Total    Money // observed total (or the entry amount for single alerts)
	Limit    Money
	Category string
	EntryID  string
	Message  string
	RaisedAt time.Time
}

// Dedup keys. Each identifies one alert condition within a session.

func MonthlyAlertKey(p PeriodKey) string {
	return "monthly:" + string(p)
}

func DailyAlertKey(day Date) string {
	return "daily:" + day.String()
}

func EntryAlertKey(entryID string) string {
	return "entry:" + entryID
}

// CategoryAlertKey normalizes category, so differently spelled limits for
// the same category share one key.
func CategoryAlertKey(category string, p PeriodKey) string {
	return "category:" + CategoryKey(category) + ":" + string(p)
}
