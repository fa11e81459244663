package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -5}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestLedgerEntryValidate(t *testing.T) {
	good := LedgerEntry{
		FamilyID: "fam",
		Kind:     KindExpense,
		Date:     NewDate(2025, 1, 1),
		Name:     "rent",
		Amount:   Money{Cents: 100},
		Category: "Housing",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	income := good
	income.Kind = KindIncome
	income.Category = ""
	if err := income.Validate(); err != nil {
		t.Fatalf("income without category should be valid, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*LedgerEntry)
		want   error
	}{
		{"empty family", func(e *LedgerEntry) { e.FamilyID = " " }, ErrEmptyFamily},
		{"bad kind", func(e *LedgerEntry) { e.Kind = "transfer" }, ErrInvalidKind},
		{"empty name", func(e *LedgerEntry) { e.Name = "" }, ErrEmptyName},
		{"zero amount", func(e *LedgerEntry) { e.Amount = Money{} }, ErrInvalidAmount},
		{"expense without category", func(e *LedgerEntry) { e.Category = "" }, ErrEmptyCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := good
			tt.mutate(&e)
			if err := e.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestObligationValidate(t *testing.T) {
	good := Obligation{
		FamilyID:   "fam",
		Kind:       KindExpense,
		Name:       "rent",
		Amount:     Money{Cents: 150000},
		Category:   "Housing",
		TriggerDay: 31,
		Frequency:  Monthly,
		Active:     true,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Obligation)
		want   error
	}{
		{"day zero", func(o *Obligation) { o.TriggerDay = 0 }, ErrInvalidDay},
		{"day 32", func(o *Obligation) { o.TriggerDay = 32 }, ErrInvalidDay},
		{"month 13", func(o *Obligation) { o.Month = 13 }, ErrInvalidMonth},
		{"weekly", func(o *Obligation) { o.Frequency = "weekly" }, ErrInvalidFrequency},
		{"negative amount", func(o *Obligation) { o.Amount = Money{Cents: -1} }, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := good
			tt.mutate(&o)
			if err := o.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestObligationTriggerMonthDefaultsToJanuary(t *testing.T) {
	if got := (Obligation{}).TriggerMonth(); got != time.January {
		t.Fatalf("TriggerMonth() = %v, want January", got)
	}
	if got := (Obligation{Month: 7}).TriggerMonth(); got != time.July {
		t.Fatalf("TriggerMonth() = %v, want July", got)
	}
}

func TestIdempotencyKey(t *testing.T) {
	o := Obligation{ID: "ob1"}
	if got := o.IdempotencyKey("2024-02"); got != "ob1:2024-02" {
		t.Fatalf("IdempotencyKey() = %q", got)
	}
}
