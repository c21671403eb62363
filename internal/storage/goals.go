package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"waterbot/internal/core"
)

// SetGoal overwrites the user's daily goal. No history is kept.
func (r *SQLiteRepository) SetGoal(ctx context.Context, user core.UserID, goalML int, now time.Time) error {
	g := core.GoalSetting{UserID: user, DailyGoalML: goalML}
	if err := g.Validate(); err != nil {
		return err
	}

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO goals (user_id, daily_goal_ml, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
			     daily_goal_ml = excluded.daily_goal_ml,
			     updated_at = excluded.updated_at`,
			string(user), goalML, toUnixNano(now))
		if err != nil {
			return storageErr("upsert goal", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "Goal saved to SQLite", "user_id", user, "daily_goal_ml", goalML)
	return nil
}

// GetGoal returns the stored goal, or defaultML when the user never set one.
func (r *SQLiteRepository) GetGoal(ctx context.Context, user core.UserID, defaultML int) (int, error) {
	var goal int
	err := r.db.GetContext(ctx, &goal, `SELECT daily_goal_ml FROM goals WHERE user_id = ?`, string(user))
	if errors.Is(err, sql.ErrNoRows) {
		return defaultML, nil
	}
	if err != nil {
		return 0, storageErr("select goal", err)
	}
	return goal, nil
}
