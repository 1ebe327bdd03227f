package scheduler

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playout-hub/scheduler/internal/contracts"
)

const createPlayoutEventsTableSQL = `
CREATE TABLE IF NOT EXISTS playout_events (
  event_id text PRIMARY KEY,
  source_key text NOT NULL,
  day date NOT NULL,
  start_at timestamptz NOT NULL,
  end_at timestamptz NOT NULL,
  color text NOT NULL DEFAULT '',
  updated_at timestamptz NOT NULL DEFAULT now()
)`

const createPlayoutEventsDayIndexSQL = `
CREATE INDEX IF NOT EXISTS playout_events_day_idx ON playout_events (day, start_at)`

const selectDayEventsSQL = `
SELECT event_id, source_key, start_at, end_at, color
FROM playout_events
WHERE day = $1
ORDER BY start_at`

const deleteDayEventsSQL = `
DELETE FROM playout_events WHERE day = $1`

const insertEventSQL = `
INSERT INTO playout_events (event_id, source_key, day, start_at, end_at, color)
VALUES ($1, $2, $3, $4, $5, $6)`

// PostgresRepository is the backing store for day schedules. A save
// replaces the day's rows in one transaction, so a failed save never leaves
// a half-written day behind.
type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, createPlayoutEventsTableSQL); err != nil {
		return err
	}
	if _, err := r.Pool.Exec(ctx, createPlayoutEventsDayIndexSQL); err != nil {
		return err
	}
	return nil
}

func (r *PostgresRepository) LoadDay(ctx context.Context, day time.Time) ([]contracts.StoredEvent, error) {
	rows, err := r.Pool.Query(ctx, selectDayEventsSQL, day.Format(DayKey))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []contracts.StoredEvent
	for rows.Next() {
		var rec contracts.StoredEvent
		if err := rows.Scan(&rec.EventID, &rec.SourceKey, &rec.Start, &rec.End, &rec.Color); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SaveDay(ctx context.Context, day time.Time, events []contracts.StoredEvent) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	dayKey := day.Format(DayKey)
	if _, err := tx.Exec(ctx, deleteDayEventsSQL, dayKey); err != nil {
		return err
	}
	for _, ev := range events {
		if _, err := tx.Exec(ctx, insertEventSQL,
			ev.EventID,
			ev.SourceKey,
			dayKey,
			ev.Start,
			ev.End,
			ev.Color,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
