package categories

import (
	"context"
	"encoding/json"

	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
)

// Repository describes local-store operations for categories.
type Repository interface {
	CreateOrUpdate(ctx context.Context, q dbx.DBTX, c *models.Category) error
	GetAll(ctx context.Context, q dbx.DBTX) ([]models.Category, error)
	GetByID(ctx context.Context, q dbx.DBTX, id string) (*models.Category, error)
	DeleteByID(ctx context.Context, q dbx.DBTX, id string) error
	ApplyRemote(ctx context.Context, q dbx.DBTX, payload json.RawMessage) error
	Count(ctx context.Context, q dbx.DBTX) (int, error)
}
