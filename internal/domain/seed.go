package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Seed is the starting state of a demo session.
type Seed struct {
	Accounts     []Account
	Transactions []Transaction
	Alerts       []Alert
	Recipients   []Recipient
	Cards        []Card
}

// DefaultSeed returns a fresh copy of the demo data set. Transactions are
// ordered newest first.
func DefaultSeed() Seed {
	return Seed{
		Accounts: []Account{
			{ID: "1", Name: "Premium Checking", Balance: decimal.RequireFromString("5240.50"), Kind: AccountChecking, LastFour: "4421", Currency: "USD"},
			{ID: "2", Name: "High Yield Savings", Balance: decimal.RequireFromString("12850.25"), Kind: AccountSavings, LastFour: "9001", Currency: "USD"},
			{ID: "3", Name: "Euro Wallet", Balance: decimal.RequireFromString("450.00"), Kind: AccountWallet, LastFour: "5582", Currency: "EUR"},
		},
		Transactions: []Transaction{
			{ID: "t1", Date: date(2024, 5, 15), Amount: decimal.RequireFromString("15.40"), Description: "Starbucks Coffee", Category: "Dining", Type: TransactionExpense, Currency: "USD"},
			{ID: "t2", Date: date(2024, 5, 14), Amount: decimal.RequireFromString("2450.00"), Description: "Payroll Deposit", Category: "Salary", Type: TransactionIncome, Currency: "USD"},
			{ID: "t3", Date: date(2024, 5, 13), Amount: decimal.RequireFromString("45.00"), Description: "Uber Trip", Category: "Transport", Type: TransactionExpense, Currency: "USD"},
			{ID: "t4", Date: date(2024, 5, 12), Amount: decimal.RequireFromString("120.50"), Description: "Whole Foods Market", Category: "Groceries", Type: TransactionExpense, Currency: "USD"},
		},
		Alerts: []Alert{
			{
				ID:       "a1",
				Type:     AlertUnusualSpending,
				Title:    "Unusual Activity",
				Message:  "We noticed a $120.50 charge at Whole Foods. This is 40% higher than your usual grocery spend.",
				Severity: SeverityWarning,
				Date:     date(2024, 5, 12),
			},
			{
				ID:       "a2",
				Type:     AlertLowBalance,
				Title:    "Low Balance Alert",
				Message:  "Your Euro Wallet is below €500. Consider topping it up for your upcoming trip.",
				Severity: SeverityInfo,
				Date:     date(2024, 5, 15),
			},
		},
		Recipients: []Recipient{
			{ID: "r1", Name: "Sarah Miller", Email: "sarah@example.com", Phone: "555-0101"},
			{ID: "r2", Name: "John Davis", Email: "john@example.com", Phone: "555-0102"},
			{ID: "r3", Name: "Alex Thompson", Email: "alex@example.com", Phone: "555-0103"},
		},
		Cards: []Card{
			{ID: "c1", Name: "Platinum Debit", Holder: "ALEX THOMPSON", LastFour: "4421", Expiry: "05/28", AccountID: "1"},
		},
	}
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}
