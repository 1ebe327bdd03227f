package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playout-hub/scheduler/internal/contracts"
)

const createMediaTableSQL = `
CREATE TABLE IF NOT EXISTS media_items (
  media_id text PRIMARY KEY,
  source_key text NOT NULL UNIQUE,
  file_name text NOT NULL,
  duration_seconds bigint NOT NULL,
  uploaded_at timestamptz NOT NULL
)`

const insertMediaSQL = `
INSERT INTO media_items (media_id, source_key, file_name, duration_seconds, uploaded_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (source_key) DO UPDATE
SET file_name = EXCLUDED.file_name,
    duration_seconds = EXCLUDED.duration_seconds,
    uploaded_at = EXCLUDED.uploaded_at`

const listMediaSQL = `
SELECT media_id, source_key, file_name, duration_seconds, uploaded_at
FROM media_items
ORDER BY uploaded_at DESC`

const getMediaSQL = `
SELECT media_id, source_key, file_name, duration_seconds, uploaded_at
FROM media_items
WHERE media_id = $1`

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.Pool.Exec(ctx, createMediaTableSQL)
	return err
}

func (r *PostgresRepository) InsertMedia(ctx context.Context, item contracts.MediaItem) error {
	_, err := r.Pool.Exec(ctx, insertMediaSQL,
		item.MediaID,
		item.SourceKey,
		item.FileName,
		item.DurationSeconds,
		item.UploadedAt,
	)
	return err
}

func (r *PostgresRepository) ListMedia(ctx context.Context) ([]contracts.MediaItem, error) {
	rows, err := r.Pool.Query(ctx, listMediaSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []contracts.MediaItem
	for rows.Next() {
		var item contracts.MediaItem
		if err := rows.Scan(&item.MediaID, &item.SourceKey, &item.FileName, &item.DurationSeconds, &item.UploadedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetMedia(ctx context.Context, mediaID string) (contracts.MediaItem, error) {
	var item contracts.MediaItem
	err := r.Pool.QueryRow(ctx, getMediaSQL, mediaID).Scan(
		&item.MediaID,
		&item.SourceKey,
		&item.FileName,
		&item.DurationSeconds,
		&item.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contracts.MediaItem{}, ErrMediaNotFound
		}
		return contracts.MediaItem{}, err
	}
	return item, nil
}
