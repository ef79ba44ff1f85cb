package transactions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	"github.com/whisper-money/whisper-money-sub001/internal/common"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
)

// SQLiteRepository implements Repository over the on-device database.
type SQLiteRepository struct{}

func NewSQLiteRepository() *SQLiteRepository {
	return &SQLiteRepository{}
}

const txColumns = `id, account_id, category_id, label_ids, amount, date,
	description_ct, description_iv, note_ct, note_iv, deleted, updated_at`

func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, q dbx.DBTX, t *models.Transaction) error {
	labels, err := json.Marshal(t.LabelIds)
	if err != nil {
		return fmt.Errorf("marshal label ids: %w", err)
	}

	query := `INSERT INTO transactions (` + txColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			category_id = excluded.category_id,
			label_ids = excluded.label_ids,
			amount = excluded.amount,
			date = excluded.date,
			description_ct = excluded.description_ct,
			description_iv = excluded.description_iv,
			note_ct = excluded.note_ct,
			note_iv = excluded.note_iv,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at`

	_, err = q.ExecContext(ctx, query,
		t.Id, t.AccountId, t.CategoryId, string(labels), t.Amount.String(),
		t.Date.UTC().Format(time.RFC3339Nano),
		t.Description.Ciphertext, t.Description.IV,
		t.Note.Ciphertext, t.Note.IV,
		t.Deleted, t.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, q dbx.DBTX) ([]models.Transaction, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE deleted=0 ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select transactions: %w", err)
	}
	defer rows.Close()

	var result []models.Transaction
	for rows.Next() {
		item, err := scanTransaction(rows)
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

func (r *SQLiteRepository) GetByID(ctx context.Context, q dbx.DBTX, id string) (*models.Transaction, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE deleted=0 AND id=?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select transaction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, common.ErrorNotFound
	}
	return scanTransaction(rows)
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, q dbx.DBTX, id string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE transactions SET deleted=1, updated_at=? WHERE id=? AND deleted=0`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
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
	var t models.Transaction
	if err := json.Unmarshal(payload, &t); err != nil {
		return fmt.Errorf("unmarshal remote transaction: %w", err)
	}
	return r.CreateOrUpdate(ctx, q, &t)
}

func (r *SQLiteRepository) Count(ctx context.Context, q dbx.DBTX) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE deleted=0`).Scan(&n)
	return n, err
}

func scanTransaction(rows *sql.Rows) (*models.Transaction, error) {
	var (
		t          models.Transaction
		categoryId sql.NullString
		labels     string
		amount     string
		date       string
		updatedAt  string
	)
	if err := rows.Scan(&t.Id, &t.AccountId, &categoryId, &labels, &amount, &date,
		&t.Description.Ciphertext, &t.Description.IV,
		&t.Note.Ciphertext, &t.Note.IV, &t.Deleted, &updatedAt); err != nil {
		return nil, fmt.Errorf("transaction row scan failed: %w", err)
	}

	if categoryId.Valid {
		t.CategoryId = &categoryId.String
	}
	if err := json.Unmarshal([]byte(labels), &t.LabelIds); err != nil {
		return nil, fmt.Errorf("unmarshal label ids: %w", err)
	}

	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if t.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func parseTime(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return ts, nil
}

var _ Repository = (*SQLiteRepository)(nil)
