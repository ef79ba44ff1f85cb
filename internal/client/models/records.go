// Package models defines the client-side record types mirrored between the
// local store and the remote API. Confidentiality-sensitive fields are held
// as (ciphertext, iv) pairs; structural fields (amounts, dates, foreign
// keys) stay cleartext. Identifiers are client-generated so optimistic
// writes never wait on a server round trip.
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/whisper-money/whisper-money-sub001/internal/cryptox"
)

// Collection names as used by the local store, the pending queue and the
// remote API paths.
const (
	CollectionAccounts     = "accounts"
	CollectionTransactions = "transactions"
	CollectionCategories   = "categories"
	CollectionLabels       = "labels"
	CollectionRules        = "rules"
	CollectionBudgets      = "budgets"
)

// Account is a bank account. Name and bank name are encrypted.
type Account struct {
	Id       string                  `json:"id"`
	Name     cryptox.EncryptedString `json:"name"`
	BankName cryptox.EncryptedString `json:"bank_name"`
	Currency string                  `json:"currency"`

	Deleted   bool      `json:"deleted,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is a single ledger movement. Description and note are
// encrypted; amount, date and references are structural.
type Transaction struct {
	Id          string                  `json:"id"`
	AccountId   string                  `json:"account_id"`
	CategoryId  *string                 `json:"category_id,omitempty"`
	LabelIds    []string                `json:"label_ids,omitempty"`
	Amount      decimal.Decimal         `json:"amount"`
	Date        time.Time               `json:"date"`
	Description cryptox.EncryptedString `json:"description"`
	Note        cryptox.EncryptedString `json:"note"`

	Deleted   bool      `json:"deleted,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category groups transactions. Name is encrypted; color is structural.
type Category struct {
	Id    string                  `json:"id"`
	Name  cryptox.EncryptedString `json:"name"`
	Color string                  `json:"color"`

	Deleted   bool      `json:"deleted,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Label is a free-form tag. Name is encrypted.
type Label struct {
	Id    string                  `json:"id"`
	Name  cryptox.EncryptedString `json:"name"`
	Color string                  `json:"color"`

	Deleted   bool      `json:"deleted,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Budget caps spending for a category over a period. Name is encrypted.
type Budget struct {
	Id         string                  `json:"id"`
	CategoryId string                  `json:"category_id"`
	Name       cryptox.EncryptedString `json:"name"`
	Amount     decimal.Decimal         `json:"amount"`
	Period     string                  `json:"period"` // "monthly" or "yearly"
	StartDate  time.Time               `json:"start_date"`

	Deleted   bool      `json:"deleted,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rule is an automation rule. The priority is structural (lower number
// evaluates first); everything the user authored (name, condition tree and
// actions) travels as one encrypted definition payload so merchant patterns
// never reach the server in cleartext.
type Rule struct {
	Id         string                  `json:"id"`
	Priority   int                     `json:"priority"`
	Definition cryptox.EncryptedString `json:"definition"`

	Deleted   bool      `json:"deleted,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
