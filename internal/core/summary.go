package core

import (
	"sort"
	"time"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Income     Money
	Expenses   Money
	ByCategory []CategoryAmount
}

// Total sums the amounts of entries.
func Total(entries []LedgerEntry) Money {
	var m Money
	for _, e := range entries {
		m = m.Add(e.Amount)
	}
	return m
}

// FilterKind keeps the entries of one kind.
func FilterKind(entries []LedgerEntry, kind Kind) []LedgerEntry {
	out := make([]LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Overview builds the month summary of t's month from the given entries.
func Overview(t time.Time, entries []LedgerEntry) MonthOverview {
	o := MonthOverview{Year: t.Year(), Month: int(t.Month())}
	byCat := map[string]Money{}
	for _, e := range entries {
		if !e.Date.SameMonth(t) {
			continue
		}
		switch e.Kind {
		case KindIncome:
			o.Income = o.Income.Add(e.Amount)
		case KindExpense:
			o.Expenses = o.Expenses.Add(e.Amount)
			byCat[e.Category] = byCat[e.Category].Add(e.Amount)
		}
	}
	for name, amount := range byCat {
		o.ByCategory = append(o.ByCategory, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(o.ByCategory, func(i, j int) bool {
		if o.ByCategory[i].Amount.Cents != o.ByCategory[j].Amount.Cents {
			return o.ByCategory[i].Amount.Cents > o.ByCategory[j].Amount.Cents
		}
		return o.ByCategory[i].Name < o.ByCategory[j].Name
	})
	return o
}
