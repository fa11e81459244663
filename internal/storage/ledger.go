package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"familybudget/internal/core"
	"familybudget/internal/gateway"
)

const entryColumns = `id, family_id, kind, name, amount_cents, category, date, added_by,
	created_at, obligation_id, idempotency_key`

func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}

	res, err := r.db.ExecContext(ctx, `INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idempotency_key) DO NOTHING`,
		e.ID, e.FamilyID, string(e.Kind), e.Name, e.Amount.Cents, e.Category,
		e.Date.Format(core.DateLayout), e.AddedBy, formatTimestamp(e.CreatedAt),
		nullableString(e.ObligationID), nullableString(e.IdempotencyKey))
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("insert ledger entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.LedgerEntry{}, fmt.Errorf("entry %s: %w", e.IdempotencyKey, gateway.ErrDuplicate)
	}

	slog.DebugContext(ctx, "Ledger entry saved to SQLite",
		"id", e.ID,
		"family_id", e.FamilyID,
		"kind", e.Kind,
		"amount_cents", e.Amount.Cents)

	return e, nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id string) (core.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, fmt.Errorf("entry %s: %w", id, gateway.ErrNotFound)
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) FindEntryByIdempotencyKey(ctx context.Context, key string) (core.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE idempotency_key = ?`, key)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, fmt.Errorf("entry %s: %w", key, gateway.ErrNotFound)
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("find entry by key: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListEntries(ctx context.Context, q gateway.LedgerQuery) ([]core.LedgerEntry, error) {
	var (
		where = []string{"family_id = ?"}
		args  = []any{q.FamilyID}
	)
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if !q.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, q.From.Format(core.DateLayout))
	}
	if !q.To.IsZero() {
		where = append(where, "date < ?")
		args = append(args, q.To.Format(core.DateLayout))
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY date, created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e core.LedgerEntry) error {
	res, err := r.db.ExecContext(ctx, `UPDATE ledger_entries
		SET name = ?, amount_cents = ?, category = ?, date = ?
		WHERE id = ?`,
		e.Name, e.Amount.Cents, e.Category, e.Date.Format(core.DateLayout), e.ID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return requireOneRow(res, "entry", e.ID)
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireOneRow(res, "entry", id)
}

func scanEntry(s rowScanner) (core.LedgerEntry, error) {
	var (
		e              core.LedgerEntry
		kind, date, ts string
		obligationID   sql.NullString
		idempotencyKey sql.NullString
	)
	err := s.Scan(&e.ID, &e.FamilyID, &kind, &e.Name, &e.Amount.Cents, &e.Category, &date,
		&e.AddedBy, &ts, &obligationID, &idempotencyKey)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	e.Kind = core.Kind(kind)
	d, err := time.ParseInLocation(core.DateLayout, date, time.UTC)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	e.Date = core.Date{Time: d}
	if e.CreatedAt, err = parseTimestamp(ts); err != nil {
		return core.LedgerEntry{}, err
	}
	e.ObligationID = obligationID.String
	e.IdempotencyKey = idempotencyKey.String
	return e, nil
}
