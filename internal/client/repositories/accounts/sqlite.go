package accounts

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

func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, q dbx.DBTX, a *models.Account) error {
	query := `INSERT INTO accounts (id, name_ct, name_iv, bank_name_ct, bank_name_iv, currency, deleted, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name_ct = excluded.name_ct,
			name_iv = excluded.name_iv,
			bank_name_ct = excluded.bank_name_ct,
			bank_name_iv = excluded.bank_name_iv,
			currency = excluded.currency,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at`

	_, err := q.ExecContext(ctx, query,
		a.Id, a.Name.Ciphertext, a.Name.IV, a.BankName.Ciphertext, a.BankName.IV,
		a.Currency, a.Deleted, a.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, q dbx.DBTX) ([]models.Account, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name_ct, name_iv, bank_name_ct, bank_name_iv, currency, deleted, updated_at
		 FROM accounts WHERE deleted=0`)
	if err != nil {
		return nil, fmt.Errorf("failed to select accounts: %w", err)
	}
	defer rows.Close()

	var result []models.Account
	for rows.Next() {
		item, err := scanAccount(rows)
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

func (r *SQLiteRepository) GetByID(ctx context.Context, q dbx.DBTX, id string) (*models.Account, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name_ct, name_iv, bank_name_ct, bank_name_iv, currency, deleted, updated_at
		 FROM accounts WHERE deleted=0 AND id=?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select account: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, common.ErrorNotFound
	}
	return scanAccount(rows)
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, q dbx.DBTX, id string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE accounts SET deleted=1, updated_at=? WHERE id=? AND deleted=0`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
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
	var a models.Account
	if err := json.Unmarshal(payload, &a); err != nil {
		return fmt.Errorf("unmarshal remote account: %w", err)
	}
	return r.CreateOrUpdate(ctx, q, &a)
}

func (r *SQLiteRepository) Count(ctx context.Context, q dbx.DBTX) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE deleted=0`).Scan(&n)
	return n, err
}

func scanAccount(rows *sql.Rows) (*models.Account, error) {
	var (
		a         models.Account
		updatedAt string
	)
	if err := rows.Scan(&a.Id, &a.Name.Ciphertext, &a.Name.IV,
		&a.BankName.Ciphertext, &a.BankName.IV, &a.Currency, &a.Deleted, &updatedAt); err != nil {
		return nil, fmt.Errorf("account row scan failed: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse time %q: %w", updatedAt, err)
	}
	a.UpdatedAt = ts
	return &a, nil
}

var _ Repository = (*SQLiteRepository)(nil)
