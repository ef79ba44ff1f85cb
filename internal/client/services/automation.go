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
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/automations"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/pending"
	"github.com/whisper-money/whisper-money-sub001/internal/cryptox"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
	"github.com/whisper-money/whisper-money-sub001/internal/logging"
	"github.com/whisper-money/whisper-money-sub001/internal/rules"
)

// RuleAction is what a matched rule does to a transaction.
type RuleAction struct {
	CategoryId  *string  `json:"categoryId,omitempty"`
	AddLabelIds []string `json:"addLabelIds,omitempty"`
	AppendNote  string   `json:"appendNote,omitempty"`
}

// RuleDefinition is the user-authored part of a rule. The whole definition,
// name included, travels and rests as one ciphertext blob; only the priority
// stays cleartext so ordering works without the key.
type RuleDefinition struct {
	Name      string          `json:"name"`
	Structure rules.Structure `json:"structure"`
	Action    RuleAction      `json:"action"`
}

// RuleView is the decrypted read model. Definition is nil when the blob
// cannot be opened with the current key state.
type RuleView struct {
	Id         string
	Priority   int
	Definition *RuleDefinition
	UpdatedAt  time.Time
}

// AutomationService manages automation rules: validation at save time,
// encryption of the full definition, and the usual write-plus-enqueue path.
type AutomationService struct {
	*core
	repo automations.Repository
}

func NewAutomationService(db *sql.DB, repo automations.Repository, queue pending.Repository, keys *KeyService, remote api.Client, logger logging.Logger) *AutomationService {
	return &AutomationService{
		core: newCore(db, queue, keys, remote, logger.With("service", models.CollectionRules)),
		repo: repo,
	}
}

func (s *AutomationService) encrypt(id string, def RuleDefinition, priority int, updatedAt time.Time) (*models.Rule, error) {
	if err := def.Structure.Validate(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("encode rule definition: %w", err)
	}
	key, err := s.keys.Key()
	if err != nil {
		return nil, err
	}
	sealed, err := cryptox.EncryptString(key, string(raw))
	if err != nil {
		return nil, err
	}

	return &models.Rule{Id: id, Priority: priority, Definition: sealed, UpdatedAt: updatedAt}, nil
}

func (s *AutomationService) view(r *models.Rule) *RuleView {
	v := &RuleView{Id: r.Id, Priority: r.Priority, UpdatedAt: r.UpdatedAt}

	plain := s.reveal(r.Id, "definition", r.Definition)
	if plain == Placeholder || plain == "" {
		return v
	}
	var def RuleDefinition
	if err := json.Unmarshal([]byte(plain), &def); err != nil {
		return v
	}
	v.Definition = &def
	return v
}

// Create validates the condition tree, seals the definition and stores the
// rule locally with the remote create queued.
func (s *AutomationService) Create(ctx context.Context, def RuleDefinition, priority int) (*RuleView, error) {
	rec, err := s.encrypt(uuid.NewString(), def, priority, s.now().UTC())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode rule: %w", err)
	}

	err = s.stage(ctx, models.CollectionRules, rec.Id, models.OpCreate, payload, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.CreateOrUpdate(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *AutomationService) Update(ctx context.Context, id string, def RuleDefinition, priority int) (*RuleView, error) {
	if _, err := s.repo.GetByID(ctx, s.db, id); err != nil {
		return nil, err
	}

	rec, err := s.encrypt(id, def, priority, s.now().UTC())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode rule: %w", err)
	}

	err = s.stage(ctx, models.CollectionRules, id, models.OpUpdate, payload, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.CreateOrUpdate(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *AutomationService) Delete(ctx context.Context, id string) error {
	return s.stage(ctx, models.CollectionRules, id, models.OpDelete, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo.DeleteByID(ctx, tx, id)
	})
}

func (s *AutomationService) Get(ctx context.Context, id string) (*RuleView, error) {
	rec, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

// GetAll returns rules in ascending priority, the evaluation order.
func (s *AutomationService) GetAll(ctx context.Context) ([]RuleView, error) {
	n, err := s.repo.Count(ctx, s.db)
	if err != nil {
		return nil, err
	}
	s.hydrate(ctx, models.CollectionRules, n, s.repo.ApplyRemote)

	recs, err := s.repo.GetAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	views := make([]RuleView, 0, len(recs))
	for i := range recs {
		views = append(views, *s.view(&recs[i]))
	}
	return views, nil
}
