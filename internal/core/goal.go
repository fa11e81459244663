package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// GoalSchema tags the shape a stored goal record was written with.
type GoalSchema int

const (
	// SchemaCurrent records carry an explicit active flag.
	SchemaCurrent GoalSchema = iota
	// SchemaUnflagged records predate the active flag.
	SchemaUnflagged
	// SchemaMonthly records are per-calendar-month goals (month, year) without the flag.
	SchemaMonthly
)

func (s GoalSchema) String() string {
	switch s {
	case SchemaCurrent:
		return "current"
	case SchemaUnflagged:
		return "unflagged"
	case SchemaMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

type (
	// GoalRecord is a savings goal as stored, in any of its historical shapes.
	GoalRecord struct {
		ID          string
		FamilyID    string
		Amount      Money
		Active      *bool // nil when the record predates the flag
		LegacyMonth int   // non-zero for per-month goals
		LegacyYear  int
		CreatedBy   string
		CreatedAt   time.Time
	}

	// Goal is the current-schema view of the family's savings target.
	Goal struct {
		ID        string
		FamilyID  string
		Amount    Money
		Active    bool
		CreatedBy string
		CreatedAt time.Time
	}

	// GoalProgress summarizes the current month against the active goal.
	GoalProgress struct {
		Goal         Goal
		Income       Money
		Expenses     Money
		MonthSavings Money // may be negative
		Achieved     bool
		Percent      float64 // always within [0, 100]
	}

	// MonthSavings is one point of the savings history.
	MonthSavings struct {
		Year    int
		Month   int
		Savings Money
	}
)

// Schema classifies the record.
func (g GoalRecord) Schema() GoalSchema {
	switch {
	case g.Active != nil:
		return SchemaCurrent
	case g.LegacyMonth != 0 || g.LegacyYear != 0:
		return SchemaMonthly
	default:
		return SchemaUnflagged
	}
}

// IsActive reports whether the record carries active == true.
func (g GoalRecord) IsActive() bool {
	return g.Active != nil && *g.Active
}

// IsInactive reports whether the record carries active == false.
func (g GoalRecord) IsInactive() bool {
	return g.Active != nil && !*g.Active
}

func (g GoalRecord) ToGoal() Goal {
	return Goal{
		ID:        g.ID,
		FamilyID:  g.FamilyID,
		Amount:    g.Amount,
		Active:    g.IsActive(),
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
	}
}

// Bool returns a pointer to b, for building GoalRecord.Active.
func Bool(b bool) *bool {
	return &b
}

// newerGoal orders records by creation time, then by id, so the selection
// is identical in every session.
func newerGoal(a, b GoalRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// SortGoalsNewestFirst sorts records most recent first.
func SortGoalsNewestFirst(records []GoalRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return newerGoal(records[i], records[j])
	})
}

// CanonicalGoal returns the most recently created record.
func CanonicalGoal(records []GoalRecord) (GoalRecord, bool) {
	if len(records) == 0 {
		return GoalRecord{}, false
	}
	best := records[0]
	for _, r := range records[1:] {
		if newerGoal(r, best) {
			best = r
		}
	}
	return best, true
}

// ComputeProgress compares the month's savings with the goal amount.
// The percentage is clamped to [0, 100] on both ends.
func ComputeProgress(goal Goal, income, expenses Money) GoalProgress {
	savings := income.Sub(expenses)
	p := GoalProgress{
		Goal:         goal,
		Income:       income,
		Expenses:     expenses,
		MonthSavings: savings,
		Achieved:     savings.Cents >= goal.Amount.Cents,
	}
	p.Percent = ProgressPercent(savings, goal.Amount)
	return p
}

// ProgressPercent returns clamp(savings/goal*100, 0, 100). A non-positive
// goal yields 0.
func ProgressPercent(savings, goal Money) float64 {
	if goal.Cents <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(savings.Cents).
		Div(decimal.NewFromInt(goal.Cents)).
		Mul(hundred)
	switch {
	case pct.IsNegative():
		return 0
	case pct.GreaterThan(hundred):
		return 100
	}
	return pct.Round(2).InexactFloat64()
}
