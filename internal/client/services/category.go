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
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/categories"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/pending"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
	"github.com/whisper-money/whisper-money-sub001/internal/logging"
)

type CategoryInput struct {
	Name  string
	Color string
}

type CategoryView struct {
	Id        string
	Name      string
	Color     string
	UpdatedAt time.Time
}

type CategoryService struct {
	*core
	repo categories.Repository
}

func NewCategoryService(db *sql.DB, repo categories.Repository, queue pending.Repository, keys *KeyService, remote api.Client, logger logging.Logger) *CategoryService {
	return &CategoryService{
		core: newCore(db, queue, keys, remote, logger.With("service", models.CollectionCategories)),
		repo: repo,
	}
}

func (s *CategoryService) encrypt(id string, in CategoryInput, updatedAt time.Time) (*models.Category, error) {
	name, err := s.seal(in.Name)
	if err != nil {
		return nil, err
	}
	return &models.Category{Id: id, Name: name, Color: in.Color, UpdatedAt: updatedAt}, nil
}

func (s *CategoryService) view(c *models.Category) *CategoryView {
	return &CategoryView{
		Id:        c.Id,
		Name:      s.reveal(c.Id, "name", c.Name),
		Color:     c.Color,
		UpdatedAt: c.UpdatedAt,
	}
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*CategoryView, error) {
	rec, err := s.encrypt(uuid.NewString(), in, s.now().UTC())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode category: %w", err)
	}

	err = s.stage(ctx, models.CollectionCategories, rec.Id, models.OpCreate, payload, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.CreateOrUpdate(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *CategoryService) Update(ctx context.Context, id string, in CategoryInput) (*CategoryView, error) {
	if _, err := s.repo.GetByID(ctx, s.db, id); err != nil {
		return nil, err
	}

	rec, err := s.encrypt(id, in, s.now().UTC())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode category: %w", err)
	}

	err = s.stage(ctx, models.CollectionCategories, id, models.OpUpdate, payload, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.CreateOrUpdate(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	return s.stage(ctx, models.CollectionCategories, id, models.OpDelete, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.DeleteByID(ctx, tx, id)
	})
}

func (s *CategoryService) Get(ctx context.Context, id string) (*CategoryView, error) {
	rec, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *CategoryService) GetAll(ctx context.Context) ([]CategoryView, error) {
	n, err := s.repo.Count(ctx, s.db)
	if err != nil {
		return nil, err
	}
	s.hydrate(ctx, models.CollectionCategories, n, s.repo.ApplyRemote)

	recs, err := s.repo.GetAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	views := make([]CategoryView, 0, len(recs))
	for i := range recs {
		views = append(views, *s.view(&recs[i]))
	}
	return views, nil
}
