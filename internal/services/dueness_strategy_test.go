package services

import (
	"testing"
	"time"

	"familybudget/internal/core"
)

func TestMonthlyStrategy_CurrentPeriod(t *testing.T) {
	strategy := MonthlyStrategy{}

	tests := []struct {
		name        string
		triggerDay  int
		now         time.Time
		wantKey     core.PeriodKey
		wantTrigger string
	}{
		{
			name:        "day inside month",
			triggerDay:  10,
			now:         time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
			wantKey:     "2024-03",
			wantTrigger: "2024-03-10",
		},
		{
			name:        "day 31 in leap february",
			triggerDay:  31,
			now:         time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC),
			wantKey:     "2024-02",
			wantTrigger: "2024-02-29",
		},
		{
			name:        "day 31 in common february",
			triggerDay:  31,
			now:         time.Date(2023, 2, 28, 9, 0, 0, 0, time.UTC),
			wantKey:     "2023-02",
			wantTrigger: "2023-02-28",
		},
		{
			name:        "day 31 in april",
			triggerDay:  31,
			now:         time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC),
			wantKey:     "2024-04",
			wantTrigger: "2024-04-30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, trigger, ok := strategy.CurrentPeriod(core.Obligation{TriggerDay: tt.triggerDay}, tt.now)
			if !ok {
				t.Fatal("monthly strategy should always have a period")
			}
			if key != tt.wantKey {
				t.Errorf("key = %q, want %q", key, tt.wantKey)
			}
			if got := trigger.Format(core.DateLayout); got != tt.wantTrigger {
				t.Errorf("trigger = %s, want %s", got, tt.wantTrigger)
			}
		})
	}
}

func TestAnnualStrategy_CurrentPeriod(t *testing.T) {
	strategy := AnnualStrategy{}

	tests := []struct {
		name    string
		month   int
		now     time.Time
		wantKey core.PeriodKey
		wantOK  bool
	}{
		{"in trigger month", 6, time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), "2024", true},
		{"before trigger month", 6, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), "", false},
		{"after trigger month", 6, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), "", false},
		{"unset month defaults to january", 0, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), "2025", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, _, ok := strategy.CurrentPeriod(core.Obligation{TriggerDay: 1, Month: tt.month}, tt.now)
			if ok != tt.wantOK || key != tt.wantKey {
				t.Errorf("CurrentPeriod() = (%q, %v), want (%q, %v)", key, ok, tt.wantKey, tt.wantOK)
			}
		})
	}
}

func TestDue(t *testing.T) {
	rent := core.Obligation{TriggerDay: 5, Frequency: core.Monthly}

	tests := []struct {
		name    string
		o       core.Obligation
		lastKey core.PeriodKey
		now     time.Time
		wantDue bool
		wantKey core.PeriodKey
	}{
		{"before trigger", rent, "", time.Date(2024, 3, 4, 23, 59, 0, 0, time.UTC), false, "2024-03"},
		{"at trigger", rent, "", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true, "2024-03"},
		{"previous period processed", rent, "2024-02", time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), true, "2024-03"},
		{"current period processed", rent, "2024-03", time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), false, "2024-03"},
		{
			name:    "annual processed last year",
			o:       core.Obligation{TriggerDay: 1, Month: 3, Frequency: core.Annual},
			lastKey: "2023",
			now:     time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
			wantDue: true,
			wantKey: "2024",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.o
			o.LastProcessedPeriod = tt.lastKey
			key, _, due, err := Due(o, tt.now)
			if err != nil {
				t.Fatalf("Due() error = %v", err)
			}
			if due != tt.wantDue || key != tt.wantKey {
				t.Errorf("Due() = (%q, %v), want (%q, %v)", key, due, tt.wantKey, tt.wantDue)
			}
		})
	}
}

// Every trigger day lands inside the month, for every month of several years.
func TestDue_TriggerAlwaysInsideMonth(t *testing.T) {
	for year := 2023; year <= 2025; year++ {
		for month := time.January; month <= time.December; month++ {
			last := core.DaysInMonth(year, month)
			now := time.Date(year, month, last, 23, 0, 0, 0, time.UTC)
			for day := 1; day <= 31; day++ {
				_, trigger, due, err := Due(core.Obligation{TriggerDay: day, Frequency: core.Monthly}, now)
				if err != nil {
					t.Fatal(err)
				}
				if !due {
					t.Fatalf("%d-%02d day %d: not due on the last day of the month", year, month, day)
				}
				if trigger.Month() != month || trigger.Day() > last {
					t.Fatalf("%d-%02d day %d: trigger %s outside month", year, month, day, trigger.Format(core.DateLayout))
				}
			}
		}
	}
}

func TestGetPeriodStrategy(t *testing.T) {
	tests := []struct {
		name      string
		frequency core.Frequency
		wantErr   bool
	}{
		{"monthly", core.Monthly, false},
		{"annual", core.Annual, false},
		{"unknown", core.Frequency("weekly"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy, err := GetPeriodStrategy(tt.frequency)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetPeriodStrategy() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && strategy == nil {
				t.Error("GetPeriodStrategy() returned nil strategy")
			}
		})
	}
}

func TestRegisterPeriodStrategy(t *testing.T) {
	customFreq := core.Frequency("quarterly")

	RegisterPeriodStrategy(customFreq, MonthlyStrategy{})

	strategy, err := GetPeriodStrategy(customFreq)
	if err != nil {
		t.Errorf("GetPeriodStrategy() after register error = %v", err)
	}
	if strategy == nil {
		t.Error("GetPeriodStrategy() returned nil after registration")
	}

	// Cleanup - remove the custom strategy to avoid affecting other tests
	delete(periodStrategies, customFreq)
}
