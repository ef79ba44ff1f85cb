package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories"
	"github.com/whisper-money/whisper-money-sub001/internal/common"
	"github.com/whisper-money/whisper-money-sub001/internal/keystore"
	"github.com/whisper-money/whisper-money-sub001/internal/logging"
)

func setup(t *testing.T) (*Services, *repositories.Repositories) {
	t.Helper()

	repos, err := repositories.Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	repos.DB.SetMaxOpenConns(1)
	repos.DB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = repos.Close() })

	ks := keystore.New(t.TempDir())
	return New(repos, ks, nil, logging.NewDefault()), repos
}

func unlocked(t *testing.T) (*Services, *repositories.Repositories) {
	t.Helper()
	s, repos := setup(t)
	require.NoError(t, s.Keys.Setup(context.Background(), "correct horse", false))
	return s, repos
}

func TestKeyService_Lifecycle(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	done, err := s.Keys.IsSetUp(ctx)
	require.NoError(t, err)
	require.False(t, done)
	require.False(t, s.Keys.IsUnlocked())

	require.NoError(t, s.Keys.Setup(ctx, "pass1", false))
	require.True(t, s.Keys.IsUnlocked())
	require.ErrorIs(t, s.Keys.Setup(ctx, "pass2", false), ErrAlreadySetUp)

	epoch := s.Keys.Epoch()
	require.NoError(t, s.Keys.Lock(ctx))
	require.False(t, s.Keys.IsUnlocked())
	require.Greater(t, s.Keys.Epoch(), epoch)
	_, err = s.Keys.Key()
	require.ErrorIs(t, err, common.ErrKeyLocked)

	require.ErrorIs(t, s.Keys.Unlock(ctx, "wrong", false), common.ErrorUnauthorized)
	require.False(t, s.Keys.IsUnlocked())

	require.NoError(t, s.Keys.Unlock(ctx, "pass1", false))
	require.True(t, s.Keys.IsUnlocked())
}

func TestTransactionCreate_EncryptsAndEnqueuesAtomically(t *testing.T) {
	s, repos := unlocked(t)
	ctx := context.Background()

	view, err := s.Transactions.Create(ctx, TransactionInput{
		AccountId:   "acc-1",
		Amount:      decimal.RequireFromString("-12.50"),
		Date:        time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		Description: "UBER TRIP HELSINKI",
		Note:        "work travel",
	})
	require.NoError(t, err)
	require.Equal(t, "UBER TRIP HELSINKI", view.Description, "caller gets the materialized record back")

	// At rest only ciphertext exists.
	stored, err := repos.Transactions.GetByID(ctx, repos.DB, view.Id)
	require.NoError(t, err)
	require.NotEmpty(t, stored.Description.Ciphertext)
	require.NotContains(t, stored.Description.Ciphertext, "UBER")
	require.NotEmpty(t, stored.Note.IV)

	// Exactly one queued create whose payload is the wire record.
	changes, err := repos.Pending.Drain(ctx, repos.DB)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, models.OpCreate, changes[0].Operation)
	require.Equal(t, view.Id, changes[0].RecordId)
	require.NotContains(t, string(changes[0].Payload), "UBER", "queued payload carries ciphertext only")
}

func TestTransactionUpdate_CoalescesIntoPendingCreate(t *testing.T) {
	s, repos := unlocked(t)
	ctx := context.Background()

	view, err := s.Transactions.Create(ctx, TransactionInput{
		AccountId: "acc-1", Amount: decimal.NewFromInt(-5),
		Date: time.Now().UTC(), Description: "first",
	})
	require.NoError(t, err)

	_, err = s.Transactions.Update(ctx, view.Id, TransactionInput{
		AccountId: "acc-1", Amount: decimal.NewFromInt(-6),
		Date: time.Now().UTC(), Description: "second",
	})
	require.NoError(t, err)

	changes, err := repos.Pending.Drain(ctx, repos.DB)
	require.NoError(t, err)
	require.Len(t, changes, 1, "update folds into the unpushed create")
	require.Equal(t, models.OpCreate, changes[0].Operation)
}

func TestTransactionWrite_FailsWhenLocked(t *testing.T) {
	s, repos := unlocked(t)
	ctx := context.Background()
	require.NoError(t, s.Keys.Lock(ctx))

	_, err := s.Transactions.Create(ctx, TransactionInput{
		AccountId: "acc-1", Amount: decimal.NewFromInt(-1), Date: time.Now().UTC(), Description: "x",
	})
	require.ErrorIs(t, err, common.ErrKeyLocked)

	n, err := repos.Pending.Count(ctx, repos.DB)
	require.NoError(t, err)
	require.Zero(t, n, "nothing queued when the write never happened")
}

func TestGetAll_DegradesToPlaceholderWhenLocked(t *testing.T) {
	s, _ := unlocked(t)
	ctx := context.Background()

	_, err := s.Accounts.Create(ctx, AccountInput{Name: "Checking", BankName: "Nordea", Currency: "EUR"})
	require.NoError(t, err)
	require.NoError(t, s.Keys.Lock(ctx))

	all, err := s.Accounts.GetAll(ctx)
	require.NoError(t, err, "reads keep working while locked")
	require.Len(t, all, 1)
	require.Equal(t, Placeholder, all[0].Name)
	require.Equal(t, Placeholder, all[0].BankName)
	require.Equal(t, "EUR", all[0].Currency, "structural fields stay readable")

	// Unlock bumps the epoch, the stale placeholder never resurfaces.
	require.NoError(t, s.Keys.Unlock(ctx, "correct horse", false))
	all, err = s.Accounts.GetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, "Checking", all[0].Name)
}

func TestDelete_RemovesFromReadsAndQueuesDelete(t *testing.T) {
	s, repos := unlocked(t)
	ctx := context.Background()

	view, err := s.Categories.Create(ctx, CategoryInput{Name: "Groceries", Color: "#0a0"})
	require.NoError(t, err)

	// Flush the create so the delete survives compaction.
	changes, err := repos.Pending.Drain(ctx, repos.DB)
	require.NoError(t, err)
	require.NoError(t, repos.Pending.Ack(ctx, repos.DB, changes[0].Id))

	require.NoError(t, s.Categories.Delete(ctx, view.Id))

	_, err = s.Categories.Get(ctx, view.Id)
	require.ErrorIs(t, err, common.ErrorNotFound)

	changes, err = repos.Pending.Drain(ctx, repos.DB)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, models.OpDelete, changes[0].Operation)
}

func TestAutomationCreate_RejectsInvalidStructure(t *testing.T) {
	s, repos := unlocked(t)
	ctx := context.Background()

	_, err := s.Automations.Create(ctx, RuleDefinition{Name: "broken"}, 1)
	require.Error(t, err)

	n, err := repos.Pending.Count(ctx, repos.DB)
	require.NoError(t, err)
	require.Zero(t, n, "invalid rules are refused before anything is stored")
}

func TestAutomationRoundTrip_DefinitionStaysPrivate(t *testing.T) {
	s, repos := unlocked(t)
	ctx := context.Background()

	catID := "cat-groceries"
	def := RuleDefinition{
		Name: "groceries by merchant",
		Structure: ruleMatching("description", "contains", "LIDL"),
		Action:    RuleAction{CategoryId: &catID},
	}
	view, err := s.Automations.Create(ctx, def, 5)
	require.NoError(t, err)
	require.Equal(t, 5, view.Priority)
	require.NotNil(t, view.Definition)
	require.Equal(t, "groceries by merchant", view.Definition.Name)

	// Neither the local row nor the queued payload leaks the merchant.
	stored, err := repos.Automations.GetByID(ctx, repos.DB, view.Id)
	require.NoError(t, err)
	require.NotContains(t, stored.Definition.Ciphertext, "LIDL")

	changes, err := repos.Pending.Drain(ctx, repos.DB)
	require.NoError(t, err)
	require.NotContains(t, string(changes[0].Payload), "LIDL")
	require.NotContains(t, string(changes[0].Payload), "groceries by merchant")
}
