package services

import (
	"context"
	"strings"

	"github.com/whisper-money/whisper-money-sub001/internal/logging"
	"github.com/whisper-money/whisper-money-sub001/internal/rules"
)

// RuleRunner applies automation rules to the local transactions. Rules run
// in ascending priority and the first match wins; its action is written
// through the transaction service so note edits are re-encrypted and the
// change is queued like any user edit.
type RuleRunner struct {
	automations  *AutomationService
	transactions *TransactionService
	accounts     *AccountService
	logger       logging.Logger
}

func NewRuleRunner(automations *AutomationService, transactions *TransactionService, accounts *AccountService, logger logging.Logger) *RuleRunner {
	return &RuleRunner{
		automations:  automations,
		transactions: transactions,
		accounts:     accounts,
		logger:       logger.With("component", "rules"),
	}
}

// Run evaluates every rule against every transaction and returns how many
// transactions were changed. A failure on one transaction is logged and the
// batch continues.
func (r *RuleRunner) Run(ctx context.Context) (int, error) {
	ruleViews, err := r.automations.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	txs, err := r.transactions.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	accts, err := r.accounts.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	acctByID := make(map[string]AccountView, len(accts))
	for _, a := range accts {
		acctByID[a.Id] = a
	}

	applied := 0
	for i := range txs {
		tx := &txs[i]
		acct := acctByID[tx.AccountId]

		facts := rules.Facts{
			Description: tx.Description,
			Bank:        acct.BankName,
			Account:     acct.Name,
			Amount:      tx.Amount,
			Date:        tx.Date,
			Category:    tx.CategoryId,
		}

		for _, rv := range ruleViews {
			if rv.Definition == nil {
				// Undecryptable rule, skipped until the key returns.
				continue
			}
			if !rv.Definition.Structure.Evaluate(facts) {
				continue
			}

			changed, err := r.apply(ctx, tx, rv.Definition.Action)
			if err != nil {
				r.logger.Warn(ctx, "rule action failed", "rule", rv.Id, "transaction", tx.Id, "error", err)
			} else if changed {
				applied++
			}
			break // first match wins
		}
	}

	r.logger.Info(ctx, "rule run finished", "transactions", len(txs), "changed", applied)
	return applied, nil
}

// apply writes the action onto the transaction. Already-satisfied actions
// make no write so re-running the rules is idempotent.
func (r *RuleRunner) apply(ctx context.Context, tx *TransactionView, action RuleAction) (bool, error) {
	in := TransactionInput{
		AccountId:   tx.AccountId,
		CategoryId:  tx.CategoryId,
		LabelIds:    append([]string(nil), tx.LabelIds...),
		Amount:      tx.Amount,
		Date:        tx.Date,
		Description: tx.Description,
		Note:        tx.Note,
	}

	changed := false

	if action.CategoryId != nil && (in.CategoryId == nil || *in.CategoryId != *action.CategoryId) {
		id := *action.CategoryId
		in.CategoryId = &id
		changed = true
	}

	have := make(map[string]bool, len(in.LabelIds))
	for _, l := range in.LabelIds {
		have[l] = true
	}
	for _, l := range action.AddLabelIds {
		if !have[l] {
			in.LabelIds = append(in.LabelIds, l)
			have[l] = true
			changed = true
		}
	}

	if action.AppendNote != "" && !containsLine(in.Note, action.AppendNote) {
		if in.Note == "" {
			in.Note = action.AppendNote
		} else {
			in.Note += "\n" + action.AppendNote
		}
		changed = true
	}

	if !changed {
		return false, nil
	}
	if _, err := r.transactions.Update(ctx, tx.Id, in); err != nil {
		return false, err
	}
	return true, nil
}

func containsLine(note, line string) bool {
	for _, l := range strings.Split(note, "\n") {
		if l == line {
			return true
		}
	}
	return false
}
