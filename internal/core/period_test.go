package core

import (
	"testing"
	"time"
)

func TestEffectiveTriggerDate(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month time.Month
		day   int
		want  string
	}{
		{"day 31 in 28-day February", 2023, time.February, 31, "2023-02-28"},
		{"day 31 in leap February", 2024, time.February, 31, "2024-02-29"},
		{"day 31 in April", 2024, time.April, 31, "2024-04-30"},
		{"day 15 unchanged", 2024, time.April, 15, "2024-04-15"},
		{"day 31 in January", 2024, time.January, 31, "2024-01-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveTriggerDate(tt.year, tt.month, tt.day, time.UTC)
			if got.Format(DateLayout) != tt.want {
				t.Errorf("EffectiveTriggerDate() = %s, want %s", got.Format(DateLayout), tt.want)
			}
		})
	}
}

func TestPeriodKeys(t *testing.T) {
	now := time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC)
	if got := MonthKey(now); got != "2024-02" {
		t.Errorf("MonthKey() = %q", got)
	}
	if got := YearKey(now); got != "2024" {
		t.Errorf("YearKey() = %q", got)
	}
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(time.Date(2024, 12, 17, 8, 0, 0, 0, time.UTC))
	if start.Format(DateLayout) != "2024-12-01" || end.Format(DateLayout) != "2025-01-01" {
		t.Fatalf("MonthBounds() = %s, %s", start, end)
	}
}
