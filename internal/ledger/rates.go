package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AnyCurrency is the fallback key of a RateTable.
const AnyCurrency = "*"

// RateTable is a static conversion table keyed by source currency.
// It is a fixed simplification, not a live rate feed: the target currency
// does not affect the rate.
type RateTable map[string]decimal.Decimal

// DefaultRates converts USD at 0.92 and every other currency at 1.08.
func DefaultRates() RateTable {
	return RateTable{
		"USD":       decimal.RequireFromString("0.92"),
		AnyCurrency: decimal.RequireFromString("1.08"),
	}
}

// Rate returns the multiplier applied to an amount in from when converting
// to to. Converting a currency into itself is always 1.
func (t RateTable) Rate(from, to string) decimal.Decimal {
	from = strings.ToUpper(from)
	if from == strings.ToUpper(to) {
		return decimal.NewFromInt(1)
	}
	if r, ok := t[from]; ok {
		return r
	}
	if r, ok := t[AnyCurrency]; ok {
		return r
	}
	return decimal.NewFromInt(1)
}

// Convert applies Rate(from, to) to amount.
func (t RateTable) Convert(amount decimal.Decimal, from, to string) decimal.Decimal {
	return amount.Mul(t.Rate(from, to))
}
