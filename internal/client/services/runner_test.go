package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/whisper-money/whisper-money-sub001/internal/rules"
)

func ruleMatching(field, op, value string) rules.Structure {
	return rules.Structure{
		GroupOperator: rules.JoinAnd,
		Groups: []rules.Group{{
			Operator:   rules.JoinAnd,
			Conditions: []rules.Condition{{Field: rules.Field(field), Operator: rules.Operator(op), Value: value}},
		}},
	}
}

func addTx(t *testing.T, s *Services, account, desc string, amount string) *TransactionView {
	t.Helper()
	view, err := s.Transactions.Create(context.Background(), TransactionInput{
		AccountId:   account,
		Amount:      decimal.RequireFromString(amount),
		Date:        time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
		Description: desc,
	})
	require.NoError(t, err)
	return view
}

func TestRuleRunner_FirstMatchByPriorityWins(t *testing.T) {
	s, _ := unlocked(t)
	ctx := context.Background()

	travel := "cat-travel"
	transport := "cat-transport"

	// Both rules match UBER; the lower priority number must win.
	_, err := s.Automations.Create(ctx, RuleDefinition{
		Name:      "any ride is transport",
		Structure: ruleMatching("description", "contains", "ride"),
		Action:    RuleAction{CategoryId: &transport},
	}, 20)
	require.NoError(t, err)

	_, err = s.Automations.Create(ctx, RuleDefinition{
		Name:      "uber is travel",
		Structure: ruleMatching("description", "contains", "uber"),
		Action:    RuleAction{CategoryId: &travel, AppendNote: "auto: travel"},
	}, 10)
	require.NoError(t, err)

	tx := addTx(t, s, "acc-1", "UBER ride home", "-14.90")

	n, err := s.Rules.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := s.Transactions.Get(ctx, tx.Id)
	require.NoError(t, err)
	require.NotNil(t, got.CategoryId)
	require.Equal(t, travel, *got.CategoryId)
	require.Equal(t, "auto: travel", got.Note)
}

func TestRuleRunner_SecondRunIsIdempotent(t *testing.T) {
	s, _ := unlocked(t)
	ctx := context.Background()

	cat := "cat-groceries"
	_, err := s.Automations.Create(ctx, RuleDefinition{
		Name:      "groceries",
		Structure: ruleMatching("description", "contains", "lidl"),
		Action:    RuleAction{CategoryId: &cat, AddLabelIds: []string{"lbl-food"}},
	}, 1)
	require.NoError(t, err)

	addTx(t, s, "acc-1", "LIDL HELSINKI", "-33.07")

	n, err := s.Rules.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = s.Rules.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "already-satisfied actions write nothing")
}

func TestRuleRunner_MatchesAccountFacts(t *testing.T) {
	s, _ := unlocked(t)
	ctx := context.Background()

	acct, err := s.Accounts.Create(ctx, AccountInput{Name: "Daily", BankName: "Nordea", Currency: "EUR"})
	require.NoError(t, err)

	cat := "cat-nordea"
	_, err = s.Automations.Create(ctx, RuleDefinition{
		Name:      "tag by bank",
		Structure: ruleMatching("bank", "equals", "nordea"),
		Action:    RuleAction{CategoryId: &cat},
	}, 1)
	require.NoError(t, err)

	tx := addTx(t, s, acct.Id, "anything", "-1")
	other := addTx(t, s, "acc-unknown", "anything", "-1")

	n, err := s.Rules.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := s.Transactions.Get(ctx, tx.Id)
	require.NoError(t, err)
	require.NotNil(t, got.CategoryId)

	miss, err := s.Transactions.Get(ctx, other.Id)
	require.NoError(t, err)
	require.Nil(t, miss.CategoryId)
}

func TestRuleRunner_SkipsUndecryptableRules(t *testing.T) {
	s, _ := unlocked(t)
	ctx := context.Background()

	cat := "cat-x"
	_, err := s.Automations.Create(ctx, RuleDefinition{
		Name:      "anything",
		Structure: ruleMatching("description", "is_not_empty", ""),
		Action:    RuleAction{CategoryId: &cat},
	}, 1)
	require.NoError(t, err)
	addTx(t, s, "acc-1", "some purchase", "-2")

	require.NoError(t, s.Keys.Lock(ctx))

	n, err := s.Rules.Run(ctx)
	require.NoError(t, err, "a locked key degrades the run, it does not fail it")
	require.Zero(t, n)
}
