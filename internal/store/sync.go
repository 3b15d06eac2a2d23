package store

import (
	"context"
	"database/sql"

	"github.com/vitality-hq/syncserver/types"
)

// SyncRepository handles persistence for habit and habit log records.
// Every query is scoped by user_id; callers pass records that already
// carry the authenticated user's id.
type SyncRepository struct {
	db *sql.DB
}

func NewSyncRepository(db *sql.DB) *SyncRepository {
	return &SyncRepository{db: db}
}

// SaveBatch upserts both collections inside a single transaction, so a
// failure in either leaves no partial writes behind.
func (r *SyncRepository) SaveBatch(ctx context.Context, habits []types.Habit, logs []types.HabitLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, habit := range habits {
		if err := upsertHabit(ctx, tx, habit); err != nil {
			return err
		}
	}
	for _, log := range logs {
		if err := upsertLog(ctx, tx, log); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func upsertHabit(ctx context.Context, tx *sql.Tx, habit types.Habit) error {
	const query = `
		INSERT INTO habits (user_id, local_id, name, description, icon, color, frequency, reminder_time, created_at, is_deleted, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, local_id) DO UPDATE
		SET name = EXCLUDED.name,
			description = EXCLUDED.description,
			icon = EXCLUDED.icon,
			color = EXCLUDED.color,
			frequency = EXCLUDED.frequency,
			reminder_time = EXCLUDED.reminder_time,
			created_at = EXCLUDED.created_at,
			is_deleted = EXCLUDED.is_deleted,
			last_synced_at = EXCLUDED.last_synced_at`
	_, err := tx.ExecContext(
		ctx,
		query,
		habit.UserID,
		habit.LocalID,
		habit.Name,
		habit.Description,
		habit.Icon,
		habit.Color,
		habit.Frequency,
		habit.ReminderTime,
		habit.CreatedAt,
		habit.IsDeleted,
		habit.LastSyncedAt,
	)
	return err
}

func upsertLog(ctx context.Context, tx *sql.Tx, log types.HabitLog) error {
	const query = `
		INSERT INTO habit_logs (user_id, local_id, habit_local_id, date, completed, note, is_deleted, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, local_id) DO UPDATE
		SET habit_local_id = EXCLUDED.habit_local_id,
			date = EXCLUDED.date,
			completed = EXCLUDED.completed,
			note = EXCLUDED.note,
			is_deleted = EXCLUDED.is_deleted,
			synced_at = EXCLUDED.synced_at`
	_, err := tx.ExecContext(
		ctx,
		query,
		log.UserID,
		log.LocalID,
		log.HabitLocalID,
		log.Date,
		log.Completed,
		log.Note,
		log.IsDeleted,
		log.SyncedAt,
	)
	return err
}

// ListHabits returns every non-deleted habit for the user, ordered by
// natural key so clients see a stable order across pulls.
func (r *SyncRepository) ListHabits(ctx context.Context, userID int) ([]types.Habit, error) {
	const query = `
		SELECT local_id, user_id, name, description, icon, color, frequency, reminder_time, created_at, is_deleted, last_synced_at
		FROM habits
		WHERE user_id = $1 AND NOT is_deleted
		ORDER BY local_id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	habits := make([]types.Habit, 0)
	for rows.Next() {
		var habit types.Habit
		if err := rows.Scan(
			&habit.LocalID,
			&habit.UserID,
			&habit.Name,
			&habit.Description,
			&habit.Icon,
			&habit.Color,
			&habit.Frequency,
			&habit.ReminderTime,
			&habit.CreatedAt,
			&habit.IsDeleted,
			&habit.LastSyncedAt,
		); err != nil {
			return nil, err
		}
		habits = append(habits, habit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return habits, nil
}

// ListLogs returns every non-deleted habit log for the user, ordered by
// natural key.
func (r *SyncRepository) ListLogs(ctx context.Context, userID int) ([]types.HabitLog, error) {
	const query = `
		SELECT local_id, habit_local_id, user_id, date, completed, note, is_deleted, synced_at
		FROM habit_logs
		WHERE user_id = $1 AND NOT is_deleted
		ORDER BY local_id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]types.HabitLog, 0)
	for rows.Next() {
		var log types.HabitLog
		if err := rows.Scan(
			&log.LocalID,
			&log.HabitLocalID,
			&log.UserID,
			&log.Date,
			&log.Completed,
			&log.Note,
			&log.IsDeleted,
			&log.SyncedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
