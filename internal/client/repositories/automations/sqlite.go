package automations

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

func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, q dbx.DBTX, rule *models.Rule) error {
	query := `INSERT INTO rules (id, priority, definition_ct, definition_iv, deleted, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			priority = excluded.priority,
			definition_ct = excluded.definition_ct,
			definition_iv = excluded.definition_iv,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at`

	_, err := q.ExecContext(ctx, query,
		rule.Id, rule.Priority, rule.Definition.Ciphertext, rule.Definition.IV,
		rule.Deleted, rule.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert rule: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, q dbx.DBTX) ([]models.Rule, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, priority, definition_ct, definition_iv, deleted, updated_at
		 FROM rules WHERE deleted=0 ORDER BY priority ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select rules: %w", err)
	}
	defer rows.Close()

	var result []models.Rule
	for rows.Next() {
		item, err := scanRule(rows)
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

func (r *SQLiteRepository) GetByID(ctx context.Context, q dbx.DBTX, id string) (*models.Rule, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, priority, definition_ct, definition_iv, deleted, updated_at
		 FROM rules WHERE deleted=0 AND id=?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select rule: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, common.ErrorNotFound
	}
	return scanRule(rows)
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, q dbx.DBTX, id string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE rules SET deleted=1, updated_at=? WHERE id=? AND deleted=0`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
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
	var rule models.Rule
	if err := json.Unmarshal(payload, &rule); err != nil {
		return fmt.Errorf("unmarshal remote rule: %w", err)
	}
	return r.CreateOrUpdate(ctx, q, &rule)
}

func (r *SQLiteRepository) Count(ctx context.Context, q dbx.DBTX) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM rules WHERE deleted=0`).Scan(&n)
	return n, err
}

func scanRule(rows *sql.Rows) (*models.Rule, error) {
	var (
		rule      models.Rule
		updatedAt string
	)
	if err := rows.Scan(&rule.Id, &rule.Priority, &rule.Definition.Ciphertext,
		&rule.Definition.IV, &rule.Deleted, &updatedAt); err != nil {
		return nil, fmt.Errorf("rule row scan failed: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse time %q: %w", updatedAt, err)
	}
	rule.UpdatedAt = ts
	return &rule, nil
}

var _ Repository = (*SQLiteRepository)(nil)
