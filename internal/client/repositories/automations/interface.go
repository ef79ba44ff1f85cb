package automations

import (
	"context"
	"encoding/json"

	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
)

// Repository describes local-store operations for automation rules.
// GetAll returns rules ordered by ascending priority so the engine can stop
// at the first match.
type Repository interface {
	CreateOrUpdate(ctx context.Context, q dbx.DBTX, rule *models.Rule) error
	GetAll(ctx context.Context, q dbx.DBTX) ([]models.Rule, error)
	GetByID(ctx context.Context, q dbx.DBTX, id string) (*models.Rule, error)
	DeleteByID(ctx context.Context, q dbx.DBTX, id string) error
	ApplyRemote(ctx context.Context, q dbx.DBTX, payload json.RawMessage) error
	Count(ctx context.Context, q dbx.DBTX) (int, error)
}
