package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/whisper-money/whisper-money-sub001/internal/client/api"
	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/budgets"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/pending"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
	"github.com/whisper-money/whisper-money-sub001/internal/logging"
)

type BudgetInput struct {
	CategoryId string
	Name       string
	Amount     decimal.Decimal
	Period     string // "monthly" or "yearly"
	StartDate  time.Time
}

type BudgetView struct {
	Id         string
	CategoryId string
	Name       string
	Amount     decimal.Decimal
	Period     string
	StartDate  time.Time
	UpdatedAt  time.Time
}

type BudgetService struct {
	*core
	repo budgets.Repository
}

func NewBudgetService(db *sql.DB, repo budgets.Repository, queue pending.Repository, keys *KeyService, remote api.Client, logger logging.Logger) *BudgetService {
	return &BudgetService{
		core: newCore(db, queue, keys, remote, logger.With("service", models.CollectionBudgets)),
		repo: repo,
	}
}

func (s *BudgetService) encrypt(id string, in BudgetInput, updatedAt time.Time) (*models.Budget, error) {
	name, err := s.seal(in.Name)
	if err != nil {
		return nil, err
	}
	return &models.Budget{
		Id:         id,
		CategoryId: in.CategoryId,
		Name:       name,
		Amount:     in.Amount,
		Period:     in.Period,
		StartDate:  in.StartDate,
		UpdatedAt:  updatedAt,
	}, nil
}

func (s *BudgetService) view(b *models.Budget) *BudgetView {
	return &BudgetView{
		Id:         b.Id,
		CategoryId: b.CategoryId,
		Name:       s.reveal(b.Id, "name", b.Name),
		Amount:     b.Amount,
		Period:     b.Period,
		StartDate:  b.StartDate,
		UpdatedAt:  b.UpdatedAt,
	}
}

func (s *BudgetService) Create(ctx context.Context, in BudgetInput) (*BudgetView, error) {
	rec, err := s.encrypt(uuid.NewString(), in, s.now().UTC())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode budget: %w", err)
	}

	err = s.stage(ctx, models.CollectionBudgets, rec.Id, models.OpCreate, payload, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.CreateOrUpdate(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *BudgetService) Update(ctx context.Context, id string, in BudgetInput) (*BudgetView, error) {
	if _, err := s.repo.GetByID(ctx, s.db, id); err != nil {
		return nil, err
	}

	rec, err := s.encrypt(id, in, s.now().UTC())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode budget: %w", err)
	}

	err = s.stage(ctx, models.CollectionBudgets, id, models.OpUpdate, payload, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.CreateOrUpdate(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *BudgetService) Delete(ctx context.Context, id string) error {
	return s.stage(ctx, models.CollectionBudgets, id, models.OpDelete, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.DeleteByID(ctx, tx, id)
	})
}

func (s *BudgetService) Get(ctx context.Context, id string) (*BudgetView, error) {
	rec, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *BudgetService) GetAll(ctx context.Context) ([]BudgetView, error) {
	n, err := s.repo.Count(ctx, s.db)
	if err != nil {
		return nil, err
	}
	s.hydrate(ctx, models.CollectionBudgets, n, s.repo.ApplyRemote)

	recs, err := s.repo.GetAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	views := make([]BudgetView, 0, len(recs))
	for i := range recs {
		views = append(views, *s.view(&recs[i]))
	}
	return views, nil
}
