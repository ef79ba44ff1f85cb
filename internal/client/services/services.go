package services

import (
	"github.com/whisper-money/whisper-money-sub001/internal/client/api"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories"
	"github.com/whisper-money/whisper-money-sub001/internal/keystore"
	"github.com/whisper-money/whisper-money-sub001/internal/logging"
)

// Services bundles the client service layer for injection into the CLI.
type Services struct {
	Keys         *KeyService
	Accounts     *AccountService
	Transactions *TransactionService
	Categories   *CategoryService
	Labels       *LabelService
	Budgets      *BudgetService
	Automations  *AutomationService
	Rules        *RuleRunner
}

func New(repos *repositories.Repositories, keys *keystore.Store, remote api.Client, logger logging.Logger) *Services {
	ks := NewKeyService(repos.DB, repos.Meta, keys, logger)

	s := &Services{
		Keys:         ks,
		Accounts:     NewAccountService(repos.DB, repos.Accounts, repos.Pending, ks, remote, logger),
		Transactions: NewTransactionService(repos.DB, repos.Transactions, repos.Pending, ks, remote, logger),
		Categories:   NewCategoryService(repos.DB, repos.Categories, repos.Pending, ks, remote, logger),
		Labels:       NewLabelService(repos.DB, repos.Labels, repos.Pending, ks, remote, logger),
		Budgets:      NewBudgetService(repos.DB, repos.Budgets, repos.Pending, ks, remote, logger),
		Automations:  NewAutomationService(repos.DB, repos.Automations, repos.Pending, ks, remote, logger),
	}
	s.Rules = NewRuleRunner(s.Automations, s.Transactions, s.Accounts, logger)
	return s
}
