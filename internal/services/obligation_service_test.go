package services

import (
	"context"
	"errors"
	"testing"

	"familybudget/internal/core"
	"familybudget/internal/gateway"
	"familybudget/internal/gateway/memory"
)

func TestObligationService_CreateValidates(t *testing.T) {
	svc := NewObligationService(memory.New(), nil)
	valid := core.Obligation{
		FamilyID:   "fam",
		Kind:       core.KindExpense,
		Name:       "Rent",
		Amount:     core.Money{Cents: 150000},
		Category:   "Housing",
		TriggerDay: 1,
		Frequency:  core.Monthly,
	}

	tests := []struct {
		name    string
		mutate  func(*core.Obligation)
		wantErr error
	}{
		{"valid", func(*core.Obligation) {}, nil},
		{"day zero", func(o *core.Obligation) { o.TriggerDay = 0 }, core.ErrInvalidDay},
		{"day 32", func(o *core.Obligation) { o.TriggerDay = 32 }, core.ErrInvalidDay},
		{"month 13", func(o *core.Obligation) { o.Frequency = core.Annual; o.Month = 13 }, core.ErrInvalidMonth},
		{"no amount", func(o *core.Obligation) { o.Amount = core.Money{} }, core.ErrInvalidAmount},
		{"no category", func(o *core.Obligation) { o.Category = " " }, core.ErrEmptyCategory},
		{"bad frequency", func(o *core.Obligation) { o.Frequency = "daily" }, core.ErrInvalidFrequency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid
			tt.mutate(&o)
			created, err := svc.Create(context.Background(), o)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && (!created.Active || created.ID == "" || created.CreatedAt.IsZero()) {
				t.Errorf("unexpected obligation: %+v", created)
			}
		})
	}
}

func TestObligationService_UpdateKeepsBookkeeping(t *testing.T) {
	store := memory.New()
	svc := NewObligationService(store, nil)
	ctx := context.Background()

	o, err := svc.Create(ctx, core.Obligation{
		FamilyID: "fam", Kind: core.KindExpense, Name: "Insurance", Amount: core.Money{Cents: 1000},
		Category: "Other", TriggerDay: 10, Month: 3, Frequency: core.Annual, LastProcessedPeriod: "2023",
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(ctx, core.Obligation{
		ID: o.ID, Name: "Home insurance", Amount: core.Money{Cents: 1200}, Category: "Housing",
		TriggerDay: 31, Month: 9, Frequency: core.Monthly, LastProcessedPeriod: "",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Home insurance" || updated.Amount.Cents != 1200 || updated.TriggerDay != 31 || updated.Month != 9 {
		t.Errorf("editable fields not applied: %+v", updated)
	}
	if updated.Frequency != core.Annual || updated.LastProcessedPeriod != "2023" {
		t.Errorf("frequency or bookkeeping changed: %+v", updated)
	}

	stored, _ := svc.Get(ctx, o.ID)
	if stored.Name != "Home insurance" || stored.LastProcessedPeriod != "2023" {
		t.Errorf("stored obligation: %+v", stored)
	}

	if _, err := svc.Update(ctx, core.Obligation{ID: o.ID, Name: "x", Amount: core.Money{Cents: 1}, Category: "Other", TriggerDay: 40}); !errors.Is(err, core.ErrInvalidDay) {
		t.Errorf("expected ErrInvalidDay, got %v", err)
	}
}

func TestObligationService_Deactivate(t *testing.T) {
	store := memory.New()
	svc := NewObligationService(store, nil)
	ctx := context.Background()

	o, err := svc.Create(ctx, core.Obligation{
		FamilyID: "fam", Kind: core.KindIncome, Name: "Salary", Amount: core.Money{Cents: 1}, TriggerDay: 27, Frequency: core.Monthly,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Deactivate(ctx, o.ID); err != nil {
		t.Fatal(err)
	}
	active, _ := svc.ListActive(ctx, "fam")
	if len(active) != 0 {
		t.Errorf("expected no active obligations, got %d", len(active))
	}
	stored, err := svc.Get(ctx, o.ID)
	if err != nil || stored.Active {
		t.Errorf("deactivated obligation should remain stored inactive: %+v, %v", stored, err)
	}
	if err := svc.Deactivate(ctx, "missing"); !errors.Is(err, gateway.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
