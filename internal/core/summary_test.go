package core

import (
	"testing"
	"time"
)

func TestOverview(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	entries := []LedgerEntry{
		{Kind: KindIncome, Amount: Money{Cents: 500000}, Date: NewDate(2024, 3, 1)},
		{Kind: KindExpense, Amount: Money{Cents: 150000}, Category: "Housing", Date: NewDate(2024, 3, 5)},
		{Kind: KindExpense, Amount: Money{Cents: 2000}, Category: "Food", Date: NewDate(2024, 3, 6)},
		{Kind: KindExpense, Amount: Money{Cents: 3000}, Category: "Food", Date: NewDate(2024, 3, 7)},
		{Kind: KindExpense, Amount: Money{Cents: 9999}, Category: "Food", Date: NewDate(2024, 2, 7)}, // other month
	}

	o := Overview(now, entries)
	if o.Income.Cents != 500000 || o.Expenses.Cents != 155000 {
		t.Fatalf("unexpected totals: %+v", o)
	}
	if len(o.ByCategory) != 2 || o.ByCategory[0].Name != "Housing" || o.ByCategory[1].Amount.Cents != 5000 {
		t.Fatalf("unexpected categories: %+v", o.ByCategory)
	}
}
