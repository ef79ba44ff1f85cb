package budgets

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

type SQLiteRepository struct{}

func NewSQLiteRepository() *SQLiteRepository {
	return &SQLiteRepository{}
}

const budgetColumns = `id, category_id, name_ct, name_iv, amount, period, start_date, deleted, updated_at`

func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, q dbx.DBTX, b *models.Budget) error {
	query := `INSERT INTO budgets (` + budgetColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_id = excluded.category_id,
			name_ct = excluded.name_ct,
			name_iv = excluded.name_iv,
			amount = excluded.amount,
			period = excluded.period,
			start_date = excluded.start_date,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at`

	_, err := q.ExecContext(ctx, query,
		b.Id, b.CategoryId, b.Name.Ciphertext, b.Name.IV, b.Amount.String(), b.Period,
		b.StartDate.UTC().Format(time.RFC3339Nano), b.Deleted,
		b.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, q dbx.DBTX) ([]models.Budget, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE deleted=0`)
	if err != nil {
		return nil, fmt.Errorf("failed to select budgets: %w", err)
	}
	defer rows.Close()

	var result []models.Budget
	for rows.Next() {
		item, err := scanBudget(rows)
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

func (r *SQLiteRepository) GetByID(ctx context.Context, q dbx.DBTX, id string) (*models.Budget, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE deleted=0 AND id=?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select budget: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, common.ErrorNotFound
	}
	return scanBudget(rows)
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, q dbx.DBTX, id string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE budgets SET deleted=1, updated_at=? WHERE id=? AND deleted=0`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
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
	var b models.Budget
	if err := json.Unmarshal(payload, &b); err != nil {
		return fmt.Errorf("unmarshal remote budget: %w", err)
	}
	return r.CreateOrUpdate(ctx, q, &b)
}

func (r *SQLiteRepository) Count(ctx context.Context, q dbx.DBTX) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM budgets WHERE deleted=0`).Scan(&n)
	return n, err
}

func scanBudget(rows *sql.Rows) (*models.Budget, error) {
	var (
		b         models.Budget
		amount    string
		startDate string
		updatedAt string
	)
	if err := rows.Scan(&b.Id, &b.CategoryId, &b.Name.Ciphertext, &b.Name.IV,
		&amount, &b.Period, &startDate, &b.Deleted, &updatedAt); err != nil {
		return nil, fmt.Errorf("budget row scan failed: %w", err)
	}

	var err error
	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if b.StartDate, err = time.Parse(time.RFC3339Nano, startDate); err != nil {
		return nil, fmt.Errorf("parse time %q: %w", startDate, err)
	}
	if b.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse time %q: %w", updatedAt, err)
	}
	return &b, nil
}

var _ Repository = (*SQLiteRepository)(nil)
