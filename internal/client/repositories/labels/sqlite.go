package labels

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	"github.com/whisper-money/whisper-money-sub001/internal/common"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
)

type SQLiteRepository struct{}

func NewSQLiteRepository() *SQLiteRepository {
	return &SQLiteRepository{}
}

func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, q dbx.DBTX, l *models.Label) error {
	query := `INSERT INTO labels (id, name_ct, name_iv, color, deleted, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name_ct = excluded.name_ct,
			name_iv = excluded.name_iv,
			color = excluded.color,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at`

	_, err := q.ExecContext(ctx, query,
		l.Id, l.Name.Ciphertext, l.Name.IV, l.Color, l.Deleted,
		l.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert label: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, q dbx.DBTX) ([]models.Label, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name_ct, name_iv, color, deleted, updated_at FROM labels WHERE deleted=0`)
	if err != nil {
		return nil, fmt.Errorf("failed to select labels: %w", err)
	}
	defer rows.Close()

	var result []models.Label
	for rows.Next() {
		item, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, q dbx.DBTX, id string) (*models.Label, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name_ct, name_iv, color, deleted, updated_at FROM labels WHERE deleted=0 AND id=?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select label: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, common.ErrorNotFound
	}
	return scanLabel(rows)
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, q dbx.DBTX, id string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE labels SET deleted=1, updated_at=? WHERE id=? AND deleted=0`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to delete label: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) ApplyRemote(ctx context.Context, q dbx.DBTX, payload json.RawMessage) error {
	var l models.Label
	if err := json.Unmarshal(payload, &l); err != nil {
		return fmt.Errorf("unmarshal remote label: %w", err)
	}
	return r.CreateOrUpdate(ctx, q, &l)
}

func (r *SQLiteRepository) Count(ctx context.Context, q dbx.DBTX) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM labels WHERE deleted=0`).Scan(&n)
	return n, err
}

func scanLabel(rows *sql.Rows) (*models.Label, error) {
	var (
		l         models.Label
		updatedAt string
	)
	if err := rows.Scan(&l.Id, &l.Name.Ciphertext, &l.Name.IV, &l.Color, &l.Deleted, &updatedAt); err != nil {
		return nil, fmt.Errorf("label row scan failed: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse time %q: %w", updatedAt, err)
	}
	l.UpdatedAt = ts
	return &l, nil
}

var _ Repository = (*SQLiteRepository)(nil)
