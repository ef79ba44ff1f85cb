package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/whisper-money/whisper-money-sub001/internal/client/api"
	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/labels"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/pending"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
	"github.com/whisper-money/whisper-money-sub001/internal/logging"
)

type LabelInput struct {
	Name  string
	Color string
}

type LabelView struct {
	Id        string
	Name      string
	Color     string
	UpdatedAt time.Time
}

type LabelService struct {
	*core
	repo labels.Repository
}

func NewLabelService(db *sql.DB, repo labels.Repository, queue pending.Repository, keys *KeyService, remote api.Client, logger logging.Logger) *LabelService {
	return &LabelService{
		core: newCore(db, queue, keys, remote, logger.With("service", models.CollectionLabels)),
		repo: repo,
	}
}

func (s *LabelService) encrypt(id string, in LabelInput, updatedAt time.Time) (*models.Label, error) {
	name, err := s.seal(in.Name)
	if err != nil {
		return nil, err
	}
	return &models.Label{Id: id, Name: name, Color: in.Color, UpdatedAt: updatedAt}, nil
}

func (s *LabelService) view(l *models.Label) *LabelView {
	return &LabelView{
		Id:        l.Id,
		Name:      s.reveal(l.Id, "name", l.Name),
		Color:     l.Color,
		UpdatedAt: l.UpdatedAt,
	}
}

func (s *LabelService) Create(ctx context.Context, in LabelInput) (*LabelView, error) {
	rec, err := s.encrypt(uuid.NewString(), in, s.now().UTC())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode label: %w", err)
	}

	err = s.stage(ctx, models.CollectionLabels, rec.Id, models.OpCreate, payload, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.CreateOrUpdate(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *LabelService) Update(ctx context.Context, id string, in LabelInput) (*LabelView, error) {
	if _, err := s.repo.GetByID(ctx, s.db, id); err != nil {
		return nil, err
	}

	rec, err := s.encrypt(id, in, s.now().UTC())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode label: %w", err)
	}

	err = s.stage(ctx, models.CollectionLabels, id, models.OpUpdate, payload, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.CreateOrUpdate(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *LabelService) Delete(ctx context.Context, id string) error {
	return s.stage(ctx, models.CollectionLabels, id, models.OpDelete, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.DeleteByID(ctx, tx, id)
	})
}

func (s *LabelService) Get(ctx context.Context, id string) (*LabelView, error) {
	rec, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *LabelService) GetAll(ctx context.Context) ([]LabelView, error) {
	n, err := s.repo.Count(ctx, s.db)
	if err != nil {
		return nil, err
	}
	s.hydrate(ctx, models.CollectionLabels, n, s.repo.ApplyRemote)

	recs, err := s.repo.GetAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	views := make([]LabelView, 0, len(recs))
	for i := range recs {
		views = append(views, *s.view(&recs[i]))
	}
	return views, nil
}
