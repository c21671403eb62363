package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"waterbot/internal/core"
	"waterbot/internal/log"
)

type entryRow struct {
	ID         int64  `db:"id"`
	UserID     string `db:"user_id"`
	AmountML   int    `db:"amount_ml"`
	RecordedAt int64  `db:"recorded_at"`
}

func (r entryRow) toCore() core.Entry {
	return core.Entry{
		ID:         core.EntryID(r.ID),
		UserID:     core.UserID(r.UserID),
		AmountML:   r.AmountML,
		RecordedAt: fromUnixNano(r.RecordedAt),
	}
}

func toUnixNano(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnixNano(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

// AddEntry records an intake of amountML at now and returns its ID.
func (r *SQLiteRepository) AddEntry(ctx context.Context, user core.UserID, amountML int, now time.Time) (core.EntryID, error) {
	e := core.Entry{UserID: user, AmountML: amountML, RecordedAt: now}
	if err := e.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO entries (user_id, amount_ml, recorded_at) VALUES (?, ?, ?)`,
			string(user), amountML, toUnixNano(now))
		if err != nil {
			return storageErr("insert entry", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return storageErr("read entry id", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.DebugContext(ctx, "Entry saved to SQLite",
		"id", id,
		"user_id", user,
		"amount_ml", amountML)

	return core.EntryID(id), nil
}

// UndoLast deletes the most recent entry of today for user. Entries recorded
// on other days are never touched. found is false when today has no entries.
//
// The lookup and the delete share one immediate transaction, so two racing
// undos delete two different entries (or the second finds nothing).
func (r *SQLiteRepository) UndoLast(ctx context.Context, user core.UserID, today core.Day) (entry core.Entry, found bool, err error) {
	if err := user.Validate(); err != nil {
		return core.Entry{}, false, err
	}

	err = r.withTx(ctx, func(tx *sqlx.Tx) error {
		var row entryRow
		err := tx.GetContext(ctx, &row,
			`SELECT id, user_id, amount_ml, recorded_at FROM entries
			 WHERE user_id = ? AND recorded_at >= ? AND recorded_at < ?
			 ORDER BY recorded_at DESC, id DESC
			 LIMIT 1`,
			string(user), toUnixNano(today.Start()), toUnixNano(today.End()))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return storageErr("select last entry", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, row.ID)
		if err != nil {
			return storageErr("delete entry", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("delete entry", err)
		}
		if n != 1 {
			return storageErr("delete entry", fmt.Errorf("expected 1 row affected, got %d", n))
		}

		entry, found = row.toCore(), true
		return nil
	})
	if err != nil {
		return core.Entry{}, false, err
	}

	if found {
		slog.DebugContext(ctx, "Entry removed from SQLite",
			log.FieldComponent, log.ComponentStorage,
			log.FieldEntryID, entry.ID,
			log.FieldUserID, user,
			log.FieldAmountML, entry.AmountML,
			log.FieldDay, today.String())
	}

	return entry, found, nil
}

// EntriesForDay returns the day's entries ordered by recorded_at ascending,
// ties broken by insertion order.
func (r *SQLiteRepository) EntriesForDay(ctx context.Context, user core.UserID, day core.Day) ([]core.Entry, error) {
	var rows []entryRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, amount_ml, recorded_at FROM entries
		 WHERE user_id = ? AND recorded_at >= ? AND recorded_at < ?
		 ORDER BY recorded_at ASC, id ASC`,
		string(user), toUnixNano(day.Start()), toUnixNano(day.End()))
	if err != nil {
		return nil, storageErr("select entries for day", err)
	}
	return toEntries(rows), nil
}

// DailyTotal sums the day's amounts in SQL. It must agree with
// core.DailyTotal over EntriesForDay.
func (r *SQLiteRepository) DailyTotal(ctx context.Context, user core.UserID, day core.Day) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(amount_ml), 0) FROM entries
		 WHERE user_id = ? AND recorded_at >= ? AND recorded_at < ?`,
		string(user), toUnixNano(day.Start()), toUnixNano(day.End()))
	if err != nil {
		return 0, storageErr("sum entries for day", err)
	}
	return total, nil
}

// Recent returns up to limit entries across all days, most recent first.
func (r *SQLiteRepository) Recent(ctx context.Context, user core.UserID, limit int) ([]core.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []entryRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, amount_ml, recorded_at FROM entries
		 WHERE user_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		string(user), limit)
	if err != nil {
		return nil, storageErr("select recent entries", err)
	}
	return toEntries(rows), nil
}

func toEntries(rows []entryRow) []core.Entry {
	entries := make([]core.Entry, len(rows))
	for i, row := range rows {
		entries[i] = row.toCore()
	}
	return entries
}
