package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType classifies how a transaction moved money.
type TransactionType string

const (
	TransactionIncome   TransactionType = "income"
	TransactionExpense  TransactionType = "expense"
	TransactionTransfer TransactionType = "transfer"
	TransactionExchange TransactionType = "exchange"
	TransactionSplit    TransactionType = "split"
)

// Transaction is one immutable ledger entry.
// Amount is a positive magnitude; Type tells whether it credited or debited
// the account (only income credits).
type Transaction struct {
	ID          string          `json:"id"`
	Date        civil.Date      `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Type        TransactionType `json:"type"`
	Currency    string          `json:"currency"`
}

// IsDebit reports whether the transaction took money out of an account.
func (t Transaction) IsDebit() bool {
	return t.Type != TransactionIncome
}
