package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// AccountKind is the product type of an account.
type AccountKind string

const (
	AccountChecking   AccountKind = "checking"
	AccountSavings    AccountKind = "savings"
	AccountInvestment AccountKind = "investment"
	AccountWallet     AccountKind = "wallet"
)

// Account holds a balance denominated in its own Currency only.
// Moving value between currencies goes through an explicit exchange.
type Account struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Balance  decimal.Decimal `json:"balance"`
	Kind     AccountKind     `json:"type"`
	LastFour string          `json:"last_four"`
	Currency string          `json:"currency"`
}

// Recipient is a saved payee the assistant can send money to.
type Recipient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// AlertType identifies what triggered an alert.
type AlertType string

const (
	AlertUnusualSpending AlertType = "unusual_spending"
	AlertLowBalance      AlertType = "low_balance"
	AlertBillReminder    AlertType = "bill_reminder"
)

// AlertSeverity ranks alerts for display.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is a dashboard notice about account activity.
type Alert struct {
	ID       string        `json:"id"`
	Type     AlertType     `json:"type"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Severity AlertSeverity `json:"severity"`
	Date     civil.Date    `json:"date"`
}

// Card is a payment card linked to an account.
type Card struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Holder    string `json:"holder"`
	LastFour  string `json:"last_four"`
	Expiry    string `json:"expiry"`
	AccountID string `json:"account_id"`
	Frozen    bool   `json:"frozen"`
}
