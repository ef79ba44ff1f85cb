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
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/accounts"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/pending"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
	"github.com/whisper-money/whisper-money-sub001/internal/logging"
)

type AccountInput struct {
	Name     string
	BankName string
	Currency string
}

type AccountView struct {
	Id        string
	Name      string
	BankName  string
	Currency  string
	UpdatedAt time.Time
}

type AccountService struct {
	*core
	repo accounts.Repository
}

func NewAccountService(db *sql.DB, repo accounts.Repository, queue pending.Repository, keys *KeyService, remote api.Client, logger logging.Logger) *AccountService {
	return &AccountService{
		core: newCore(db, queue, keys, remote, logger.With("service", models.CollectionAccounts)),
		repo: repo,
	}
}

func (s *AccountService) encrypt(id string, in AccountInput, updatedAt time.Time) (*models.Account, error) {
	name, err := s.seal(in.Name)
	if err != nil {
		return nil, err
	}
	bank, err := s.seal(in.BankName)
	if err != nil {
		return nil, err
	}
	return &models.Account{Id: id, Name: name, BankName: bank, Currency: in.Currency, UpdatedAt: updatedAt}, nil
}

func (s *AccountService) view(a *models.Account) *AccountView {
	return &AccountView{
		Id:        a.Id,
		Name:      s.reveal(a.Id, "name", a.Name),
		BankName:  s.reveal(a.Id, "bank_name", a.BankName),
		Currency:  a.Currency,
		UpdatedAt: a.UpdatedAt,
	}
}

func (s *AccountService) Create(ctx context.Context, in AccountInput) (*AccountView, error) {
	rec, err := s.encrypt(uuid.NewString(), in, s.now().UTC())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}

	err = s.stage(ctx, models.CollectionAccounts, rec.Id, models.OpCreate, payload, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.CreateOrUpdate(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *AccountService) Update(ctx context.Context, id string, in AccountInput) (*AccountView, error) {
	if _, err := s.repo.GetByID(ctx, s.db, id); err != nil {
		return nil, err
	}

	rec, err := s.encrypt(id, in, s.now().UTC())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}

	err = s.stage(ctx, models.CollectionAccounts, id, models.OpUpdate, payload, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.CreateOrUpdate(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *AccountService) Delete(ctx context.Context, id string) error {
	return s.stage(ctx, models.CollectionAccounts, id, models.OpDelete, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.DeleteByID(ctx, tx, id)
	})
}

func (s *AccountService) Get(ctx context.Context, id string) (*AccountView, error) {
	rec, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *AccountService) GetAll(ctx context.Context) ([]AccountView, error) {
	n, err := s.repo.Count(ctx, s.db)
	if err != nil {
		return nil, err
	}
	s.hydrate(ctx, models.CollectionAccounts, n, s.repo.ApplyRemote)

	recs, err := s.repo.GetAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	views := make([]AccountView, 0, len(recs))
	for i := range recs {
		views = append(views, *s.view(&recs[i]))
	}
	return views, nil
}
