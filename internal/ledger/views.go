package ledger

import (
	"sort"
	"strings"

	"github.com/dvloznov/novabank/internal/domain"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
)

// ReportingCurrency is the currency dashboard totals are expressed in.
const ReportingCurrency = "USD"

// TotalBalance sums every account balance converted to ReportingCurrency.
func (s *Store) TotalBalance() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, acc := range s.accounts {
		total = total.Add(s.rates.Convert(acc.Balance, acc.Currency, ReportingCurrency))
	}
	return total
}

// CategorySpend is the total expense amount booked under one category.
type CategorySpend struct {
	Category string          `json:"name"`
	Total    decimal.Decimal `json:"value"`
	Count    int             `json:"count"`
}

// SpendingByCategory groups expense transactions by category, largest first.
// Ties keep the order in which categories first appear in the ledger.
func (s *Store) SpendingByCategory() []CategorySpend {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []CategorySpend
	index := make(map[string]int)
	for _, tx := range s.transactions {
		if tx.Type != domain.TransactionExpense {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(out)
			index[tx.Category] = i
			out = append(out, CategorySpend{Category: tx.Category, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(tx.Amount)
		out[i].Count++
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Total.GreaterThan(out[b].Total)
	})
	return out
}

// TransactionIterator walks a fixed list of transactions. Next returns
// iterator.Done once the list is exhausted.
type TransactionIterator struct {
	items []domain.Transaction
	pos   int
}

// Next returns the next transaction or iterator.Done.
func (it *TransactionIterator) Next() (domain.Transaction, error) {
	if it.pos >= len(it.items) {
		return domain.Transaction{}, iterator.Done
	}
	tx := it.items[it.pos]
	it.pos++
	return tx, nil
}

// Remaining reports how many transactions Next has yet to return.
func (it *TransactionIterator) Remaining() int {
	return len(it.items) - it.pos
}

// Search iterates over transactions whose description or category contains
// query, ignoring case. An empty query matches everything. The result is a
// snapshot; later ledger writes do not affect it.
func (s *Store) Search(query string) *TransactionIterator {
	q := strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Transaction
	for _, tx := range s.transactions {
		if q == "" ||
			strings.Contains(strings.ToLower(tx.Description), q) ||
			strings.Contains(strings.ToLower(tx.Category), q) {
			matched = append(matched, tx)
		}
	}
	return &TransactionIterator{items: matched}
}

// CashFlow totals money in and money out across the ledger, per currency.
type CashFlow struct {
	Currency string          `json:"currency"`
	In       decimal.Decimal `json:"in"`
	Out      decimal.Decimal `json:"out"`
}

// CashFlows groups income and debits by transaction currency, in order of
// first appearance.
func (s *Store) CashFlows() []CashFlow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []CashFlow
	index := make(map[string]int)
	for _, tx := range s.transactions {
		i, ok := index[tx.Currency]
		if !ok {
			i = len(out)
			index[tx.Currency] = i
			out = append(out, CashFlow{Currency: tx.Currency, In: decimal.Zero, Out: decimal.Zero})
		}
		if tx.IsDebit() {
			out[i].Out = out[i].Out.Add(tx.Amount)
		} else {
			out[i].In = out[i].In.Add(tx.Amount)
		}
	}
	return out
}
