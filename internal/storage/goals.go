package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"familybudget/internal/core"
	"familybudget/internal/gateway"
)

const goalColumns = `id, family_id, amount_cents, active, month, year, created_by, created_at`

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.GoalRecord) (core.GoalRecord, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = r.now()
	}

	var active sql.NullInt64
	if g.Active != nil {
		active = sql.NullInt64{Int64: boolToInt(*g.Active), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO savings_goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.FamilyID, g.Amount.Cents, active, nullableInt(g.LegacyMonth), nullableInt(g.LegacyYear),
		g.CreatedBy, formatTimestamp(g.CreatedAt))
	if err != nil {
		return core.GoalRecord{}, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id string) (core.GoalRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM savings_goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.GoalRecord{}, fmt.Errorf("goal %s: %w", id, gateway.ErrNotFound)
	}
	if err != nil {
		return core.GoalRecord{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, familyID string) ([]core.GoalRecord, error) {
	return r.queryGoals(ctx, `SELECT `+goalColumns+` FROM savings_goals
		WHERE family_id = ? ORDER BY created_at DESC, id DESC`, familyID)
}

func (r *SQLiteRepository) ListActiveGoals(ctx context.Context, familyID string) ([]core.GoalRecord, error) {
	return r.queryGoals(ctx, `SELECT `+goalColumns+` FROM savings_goals
		WHERE family_id = ? AND active = 1 ORDER BY created_at DESC, id DESC`, familyID)
}

func (r *SQLiteRepository) queryGoals(ctx context.Context, query string, args ...any) ([]core.GoalRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.GoalRecord
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SetGoalActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE savings_goals SET active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("set goal active: %w", err)
	}
	return requireOneRow(res, "goal", id)
}

func (r *SQLiteRepository) UpdateGoalAmount(ctx context.Context, id string, amount core.Money) error {
	res, err := r.db.ExecContext(ctx, `UPDATE savings_goals SET amount_cents = ? WHERE id = ?`, amount.Cents, id)
	if err != nil {
		return fmt.Errorf("update goal amount: %w", err)
	}
	return requireOneRow(res, "goal", id)
}

func nullableInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func scanGoal(s rowScanner) (core.GoalRecord, error) {
	var (
		g                   core.GoalRecord
		active, month, year sql.NullInt64
		ts                  string
	)
	if err := s.Scan(&g.ID, &g.FamilyID, &g.Amount.Cents, &active, &month, &year, &g.CreatedBy, &ts); err != nil {
		return core.GoalRecord{}, err
	}
	if active.Valid {
		g.Active = core.Bool(active.Int64 == 1)
	}
	g.LegacyMonth = int(month.Int64)
	g.LegacyYear = int(year.Int64)

	var err error
	if g.CreatedAt, err = parseTimestamp(ts); err != nil {
		return core.GoalRecord{}, err
	}
	return g, nil
}
