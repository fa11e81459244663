package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Monthly Frequency = "monthly"
	Annual  Frequency = "annual"
)

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

type (
	Frequency string

	// Kind distinguishes the two parallel ledgers (and obligation registries).
	Kind string

	// PeriodKey identifies the bucket an obligation was last materialized for:
	// "YYYY-MM" for monthly obligations, "YYYY" for annual ones.
	PeriodKey string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Obligation is a recurring income or expense template.
	Obligation struct {
		ID                  string
		FamilyID            string
		Kind                Kind
		Name                string
		Amount              Money
		Category            string // expenses only
		TriggerDay          int    // 1-31, clamped to the month length
		Month               int    // 1-12, annual only
		Frequency           Frequency
		Active              bool
		LastProcessedPeriod PeriodKey
		CreatedBy           string
		CreatedAt           time.Time
	}

	// LedgerEntry is a concrete dated income or expense.
	LedgerEntry struct {
		ID             string
		FamilyID       string
		Kind           Kind
		Name           string
		Amount         Money
		Category       string // expenses only
		Date           Date
		AddedBy        string
		CreatedAt      time.Time
		ObligationID   string // set when materialized from an obligation
		IdempotencyKey string // obligationID:periodKey for materialized entries
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyFamily      = errors.New("empty family id")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

// SameDay reports whether d falls on the calendar day of t.
func (d Date) SameDay(t time.Time) bool {
	y1, m1, d1 := d.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// SameMonth reports whether d falls in the calendar month of t.
func (d Date) SameMonth(t time.Time) bool {
	return d.Year() == t.Year() && d.Time.Month() == t.Month()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (k Kind) Validate() error {
	switch k {
	case KindExpense, KindIncome:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, k)
	}
}

func (f Frequency) Validate() error {
	switch f {
	case Monthly, Annual:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, f)
	}
}

func validateName(name string) error {
	if len(strings.TrimSpace(name)) == 0 {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(e.FamilyID) == "" {
		return ErrEmptyFamily
	}
	if err := e.Kind.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := validateName(e.Name); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Kind == KindExpense && strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (o Obligation) Validate() error {
	if strings.TrimSpace(o.FamilyID) == "" {
		return ErrEmptyFamily
	}
	if err := o.Kind.Validate(); err != nil {
		return err
	}
	if err := o.Frequency.Validate(); err != nil {
		return err
	}
	if err := validateName(o.Name); err != nil {
		return err
	}
	if err := o.Amount.Validate(); err != nil {
		return err
	}
	if o.Kind == KindExpense && strings.TrimSpace(o.Category) == "" {
		return ErrEmptyCategory
	}
	if o.TriggerDay < 1 || o.TriggerDay > 31 {
		return ErrInvalidDay
	}
	// Month zero means "unset" and defaults to January for annual obligations.
	if o.Month < 0 || o.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// TriggerMonth returns the month an annual obligation fires in.
func (o Obligation) TriggerMonth() time.Month {
	if o.Month < 1 {
		return time.January
	}
	return time.Month(o.Month)
}

// IdempotencyKey derives the deterministic key of the entry materialized
// for period p.
func (o Obligation) IdempotencyKey(p PeriodKey) string {
	return o.ID + ":" + string(p)
}
