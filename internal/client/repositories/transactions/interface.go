package transactions

import (
	"context"
	"encoding/json"

	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
)

// Repository describes local-store operations for transactions. All methods
// take a dbx.DBTX so calls can join an enclosing transaction (optimistic
// write + queue enqueue must be atomic).
type Repository interface {
	// CreateOrUpdate upserts a transaction by Id, including its tombstone flag.
	CreateOrUpdate(ctx context.Context, q dbx.DBTX, t *models.Transaction) error

	// GetAll returns all non-deleted transactions.
	GetAll(ctx context.Context, q dbx.DBTX) ([]models.Transaction, error)

	// GetByID returns one non-deleted transaction or common.ErrorNotFound.
	GetByID(ctx context.Context, q dbx.DBTX, id string) (*models.Transaction, error)

	// DeleteByID marks a transaction as deleted (tombstone, kept for sync).
	DeleteByID(ctx context.Context, q dbx.DBTX, id string) error

	// ApplyRemote upserts a server-returned wire record, tombstones included.
	ApplyRemote(ctx context.Context, q dbx.DBTX, payload json.RawMessage) error

	// Count reports the number of non-deleted transactions.
	Count(ctx context.Context, q dbx.DBTX) (int, error)
}
