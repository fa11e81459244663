package core

import (
	"strconv"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// MonthKey returns the "YYYY-MM" period key of t.
func MonthKey(t time.Time) PeriodKey {
	return PeriodKey(t.Format(MonthLayout))
}

// YearKey returns the "YYYY" period key of t.
func YearKey(t time.Time) PeriodKey {
	return PeriodKey(strconv.Itoa(t.Year()))
}

// DaysInMonth returns the number of days of the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// EffectiveTriggerDate clamps day to the length of the month, so a trigger
// day of 31 lands on the 28th or 29th in February.
func EffectiveTriggerDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// MonthBounds returns the first instant of t's month and of the next one.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}
