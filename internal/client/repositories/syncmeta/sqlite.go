package syncmeta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
)

type SQLiteRepository struct{}

func NewSQLiteRepository() *SQLiteRepository {
	return &SQLiteRepository{}
}

func (r *SQLiteRepository) Get(ctx context.Context, q dbx.DBTX, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM sync_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync_meta[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, q dbx.DBTX, key string, value []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set sync_meta[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, q dbx.DBTX, key string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM sync_meta WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete sync_meta[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context, q dbx.DBTX) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM sync_meta`); err != nil {
		return fmt.Errorf("failed to clear sync_meta: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetLastSyncTime(ctx context.Context, q dbx.DBTX) (time.Time, error) {
	raw, err := r.Get(ctx, q, KeyLastSyncTime)
	if err != nil {
		return time.Time{}, err
	}
	if raw == nil {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last sync time %q: %w", raw, err)
	}
	return ts, nil
}

func (r *SQLiteRepository) SetLastSyncTime(ctx context.Context, q dbx.DBTX, t time.Time) error {
	return r.Set(ctx, q, KeyLastSyncTime, []byte(t.UTC().Format(time.RFC3339Nano)))
}

var _ Repository = (*SQLiteRepository)(nil)
