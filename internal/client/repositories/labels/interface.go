package labels

import (
	"context"
	"encoding/json"

	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
)

// Repository describes local-store operations for labels.
type Repository interface {
	CreateOrUpdate(ctx context.Context, q dbx.DBTX, l *models.Label) error
	GetAll(ctx context.Context, q dbx.DBTX) ([]models.Label, error)
	GetByID(ctx context.Context, q dbx.DBTX, id string) (*models.Label, error)
	DeleteByID(ctx context.Context, q dbx.DBTX, id string) error
	ApplyRemote(ctx context.Context, q dbx.DBTX, payload json.RawMessage) error
	Count(ctx context.Context, q dbx.DBTX) (int, error)
}
