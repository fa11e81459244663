package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"familybudget/internal/core"
)

func (r *SQLiteRepository) GetThresholds(ctx context.Context, familyID string) (core.Thresholds, error) {
	var (
		t      core.Thresholds
		limits string
	)
	err := r.db.QueryRowContext(ctx, `SELECT daily_limit_cents, monthly_limit_cents,
		single_expense_limit_cents, category_limits FROM settings WHERE family_id = ?`, familyID).
		Scan(&t.DailyLimit.Cents, &t.MonthlyLimit.Cents, &t.SingleExpenseLimit.Cents, &limits)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Thresholds{}, nil
	}
	if err != nil {
		return core.Thresholds{}, fmt.Errorf("get thresholds: %w", err)
	}

	var cents map[string]int64
	if err := json.Unmarshal([]byte(limits), &cents); err != nil {
		return core.Thresholds{}, fmt.Errorf("decode category limits: %w", err)
	}
	if len(cents) > 0 {
		t.CategoryLimits = make(map[string]core.Money, len(cents))
		for name, c := range cents {
			t.CategoryLimits[name] = core.Money{Cents: c}
		}
	}
	return t, nil
}

func (r *SQLiteRepository) SaveThresholds(ctx context.Context, familyID string, t core.Thresholds) error {
	cents := make(map[string]int64, len(t.CategoryLimits))
	for name, m := range t.CategoryLimits {
		cents[name] = m.Cents
	}
	limits, err := json.Marshal(cents)
	if err != nil {
		return fmt.Errorf("encode category limits: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO settings (family_id, daily_limit_cents,
		monthly_limit_cents, single_expense_limit_cents, category_limits)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(family_id) DO UPDATE SET
			daily_limit_cents = excluded.daily_limit_cents,
			monthly_limit_cents = excluded.monthly_limit_cents,
			single_expense_limit_cents = excluded.single_expense_limit_cents,
			category_limits = excluded.category_limits`,
		familyID, t.DailyLimit.Cents, t.MonthlyLimit.Cents, t.SingleExpenseLimit.Cents, string(limits))
	if err != nil {
		return fmt.Errorf("save thresholds: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, familyID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, family_id, name, created_by, created_at
		FROM categories WHERE family_id = ? ORDER BY name COLLATE NOCASE`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c  core.Category
			ts string
		)
		if err := rows.Scan(&c.ID, &c.FamilyID, &c.Name, &c.CreatedBy, &ts); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if c.CreatedAt, err = parseTimestamp(ts); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO categories (id, family_id, name, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)`, c.ID, c.FamilyID, c.Name, c.CreatedBy, formatTimestamp(c.CreatedAt))
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireOneRow(res, "category", id)
}
