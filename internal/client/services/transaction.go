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
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/pending"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/transactions"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
	"github.com/whisper-money/whisper-money-sub001/internal/logging"
)

// TransactionInput is the plaintext form of a transaction as the user edits
// it. Description and note are sealed before anything is stored or queued.
type TransactionInput struct {
	AccountId   string
	CategoryId  *string
	LabelIds    []string
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	Note        string
}

// TransactionView is the decrypted read model.
type TransactionView struct {
	Id          string
	AccountId   string
	CategoryId  *string
	LabelIds    []string
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	Note        string
	UpdatedAt   time.Time
}

// TransactionService pairs every local transaction write with a queued
// remote mutation and serves decrypted reads.
type TransactionService struct {
	*core
	repo transactions.Repository
}

func NewTransactionService(db *sql.DB, repo transactions.Repository, queue pending.Repository, keys *KeyService, remote api.Client, logger logging.Logger) *TransactionService {
	return &TransactionService{
		core: newCore(db, queue, keys, remote, logger.With("service", models.CollectionTransactions)),
		repo: repo,
	}
}

func (s *TransactionService) encrypt(id string, in TransactionInput, updatedAt time.Time) (*models.Transaction, error) {
	desc, err := s.seal(in.Description)
	if err != nil {
		return nil, err
	}
	note, err := s.seal(in.Note)
	if err != nil {
		return nil, err
	}
	return &models.Transaction{
		Id:          id,
		AccountId:   in.AccountId,
		CategoryId:  in.CategoryId,
		LabelIds:    in.LabelIds,
		Amount:      in.Amount,
		Date:        in.Date,
		Description: desc,
		Note:        note,
		UpdatedAt:   updatedAt,
	}, nil
}

func (s *TransactionService) view(t *models.Transaction) *TransactionView {
	return &TransactionView{
		Id:          t.Id,
		AccountId:   t.AccountId,
		CategoryId:  t.CategoryId,
		LabelIds:    t.LabelIds,
		Amount:      t.Amount,
		Date:        t.Date,
		Description: s.reveal(t.Id, "description", t.Description),
		Note:        s.reveal(t.Id, "note", t.Note),
		UpdatedAt:   t.UpdatedAt,
	}
}

// Create stores the transaction locally and queues the remote create in one
// transaction, then returns the materialized record immediately.
func (s *TransactionService) Create(ctx context.Context, in TransactionInput) (*TransactionView, error) {
	rec, err := s.encrypt(uuid.NewString(), in, s.now().UTC())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}

	err = s.stage(ctx, models.CollectionTransactions, rec.Id, models.OpCreate, payload, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.CreateOrUpdate(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

// Update re-encrypts and overwrites the record, queueing the remote update.
func (s *TransactionService) Update(ctx context.Context, id string, in TransactionInput) (*TransactionView, error) {
	if _, err := s.repo.GetByID(ctx, s.db, id); err != nil {
		return nil, err
	}

	rec, err := s.encrypt(id, in, s.now().UTC())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}

	err = s.stage(ctx, models.CollectionTransactions, id, models.OpUpdate, payload, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.CreateOrUpdate(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

// Delete tombstones the record locally and queues the remote delete.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	return s.stage(ctx, models.CollectionTransactions, id, models.OpDelete, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.DeleteByID(ctx, tx, id)
	})
}

// Get returns one decrypted transaction.
func (s *TransactionService) Get(ctx context.Context, id string) (*TransactionView, error) {
	rec, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

// GetAll returns all decrypted transactions, hydrating from the server first
// when the local collection is empty (fresh device).
func (s *TransactionService) GetAll(ctx context.Context) ([]TransactionView, error) {
	n, err := s.repo.Count(ctx, s.db)
	if err != nil {
		return nil, err
	}
	s.hydrate(ctx, models.CollectionTransactions, n, s.repo.ApplyRemote)

	recs, err := s.repo.GetAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	views := make([]TransactionView, 0, len(recs))
	for i := range recs {
		views = append(views, *s.view(&recs[i]))
	}
	return views, nil
}
