package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"familybudget/internal/core"
	"familybudget/internal/gateway"
)

const obligationColumns = `id, family_id, kind, name, amount_cents, category, trigger_day, month,
	frequency, active, last_processed_period, created_by, created_at`

func (r *SQLiteRepository) CreateObligation(ctx context.Context, o core.Obligation) (core.Obligation, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO obligations (`+obligationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.FamilyID, string(o.Kind), o.Name, o.Amount.Cents, o.Category, o.TriggerDay, o.Month,
		string(o.Frequency), boolToInt(o.Active), string(o.LastProcessedPeriod), o.CreatedBy,
		formatTimestamp(o.CreatedAt))
	if err != nil {
		return core.Obligation{}, fmt.Errorf("insert obligation: %w", err)
	}

	slog.InfoContext(ctx, "Obligation saved to SQLite",
		"id", o.ID,
		"family_id", o.FamilyID,
		"kind", o.Kind,
		"frequency", o.Frequency)

	return o, nil
}

func (r *SQLiteRepository) GetObligation(ctx context.Context, id string) (core.Obligation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+obligationColumns+` FROM obligations WHERE id = ?`, id)
	o, err := scanObligation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Obligation{}, fmt.Errorf("obligation %s: %w", id, gateway.ErrNotFound)
	}
	if err != nil {
		return core.Obligation{}, fmt.Errorf("get obligation: %w", err)
	}
	return o, nil
}

func (r *SQLiteRepository) ListActiveObligations(ctx context.Context, familyID string) ([]core.Obligation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+obligationColumns+` FROM obligations
		WHERE family_id = ? AND active = 1 ORDER BY created_at, id`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list active obligations: %w", err)
	}
	defer rows.Close()

	var out []core.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateObligation(ctx context.Context, o core.Obligation) error {
	res, err := r.db.ExecContext(ctx, `UPDATE obligations
		SET name = ?, amount_cents = ?, category = ?, trigger_day = ?, month = ?
		WHERE id = ?`,
		o.Name, o.Amount.Cents, o.Category, o.TriggerDay, o.Month, o.ID)
	if err != nil {
		return fmt.Errorf("update obligation: %w", err)
	}
	return requireOneRow(res, "obligation", o.ID)
}

func (r *SQLiteRepository) DeactivateObligation(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE obligations SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate obligation: %w", err)
	}
	return requireOneRow(res, "obligation", id)
}

// AdvanceProcessedPeriod is a compare-and-swap on last_processed_period.
func (r *SQLiteRepository) AdvanceProcessedPeriod(ctx context.Context, id string, prev, next core.PeriodKey) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE obligations SET last_processed_period = ?
		WHERE id = ? AND last_processed_period = ?`, string(next), id, string(prev))
	if err != nil {
		return false, fmt.Errorf("advance processed period: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	// Distinguish a lost race from a missing document.
	if _, err := r.GetObligation(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func scanObligation(s rowScanner) (core.Obligation, error) {
	var (
		o                         core.Obligation
		kind, frequency, last, ts string
		active                    int64
	)
	err := s.Scan(&o.ID, &o.FamilyID, &kind, &o.Name, &o.Amount.Cents, &o.Category, &o.TriggerDay,
		&o.Month, &frequency, &active, &last, &o.CreatedBy, &ts)
	if err != nil {
		return core.Obligation{}, err
	}
	o.Kind = core.Kind(kind)
	o.Frequency = core.Frequency(frequency)
	o.Active = active == 1
	o.LastProcessedPeriod = core.PeriodKey(last)
	if o.CreatedAt, err = parseTimestamp(ts); err != nil {
		return core.Obligation{}, err
	}
	return o, nil
}
