package ledger

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/novabank/internal/domain"
	"github.com/shopspring/decimal"
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// TransferRequest moves money out of one account to a named payee.
type TransferRequest struct {
	Amount        decimal.Decimal
	RecipientName string
	// FromAccount optionally names the source account by name, last four
	// digits or kind. Empty means the first checking account.
	FromAccount string
}

// SplitRequest pays the caller's share of a shared bill.
type SplitRequest struct {
	TotalAmount decimal.Decimal
	NumPeople   int
	Description string
}

// ExchangeRequest converts Amount of FromCurrency into ToCurrency.
type ExchangeRequest struct {
	Amount       decimal.Decimal
	FromCurrency string
	ToCurrency   string
}

// ApplyTransfer debits the source account by the requested amount and records
// a transfer. The ledger is left untouched when any precondition fails.
func (s *Store) ApplyTransfer(req TransferRequest) (domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return domain.Transaction{}, fmt.Errorf("ApplyTransfer: %s: %w", req.Amount, ErrNonPositiveAmount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.sourceAccount(req.FromAccount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("ApplyTransfer: %w", err)
	}
	if err := s.checkFunds(idx, req.Amount); err != nil {
		return domain.Transaction{}, fmt.Errorf("ApplyTransfer: %w", err)
	}

	acc := &s.accounts[idx]
	acc.Balance = acc.Balance.Sub(req.Amount)

	tx := domain.Transaction{
		ID:          "tx-" + s.newID(),
		Date:        s.today(),
		Amount:      req.Amount,
		Description: "Transfer to " + req.RecipientName,
		Category:    "Transfer",
		Type:        domain.TransactionTransfer,
		Currency:    acc.Currency,
	}
	s.appendTransaction(tx)
	return tx, nil
}

// SplitShare returns total divided by n, rounded to cents.
func SplitShare(total decimal.Decimal, n int) (decimal.Decimal, error) {
	if n == 0 {
		return decimal.Zero, ErrDivideByZero
	}
	if n < 0 {
		return decimal.Zero, fmt.Errorf("%d people: %w", n, ErrNonPositiveAmount)
	}
	return total.Div(decimal.NewFromInt(int64(n))).Round(2), nil
}

// ApplySplit debits the checking account by one person's share of the bill
// and records a split transaction.
func (s *Store) ApplySplit(req SplitRequest) (domain.Transaction, error) {
	if !req.TotalAmount.IsPositive() {
		return domain.Transaction{}, fmt.Errorf("ApplySplit: %s: %w", req.TotalAmount, ErrNonPositiveAmount)
	}
	share, err := SplitShare(req.TotalAmount, req.NumPeople)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("ApplySplit: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.sourceAccount("")
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("ApplySplit: %w", err)
	}
	if err := s.checkFunds(idx, share); err != nil {
		return domain.Transaction{}, fmt.Errorf("ApplySplit: %w", err)
	}

	acc := &s.accounts[idx]
	acc.Balance = acc.Balance.Sub(share)

	description := req.Description
	if strings.TrimSpace(description) == "" {
		description = "Shared Expense"
	}

	tx := domain.Transaction{
		ID:          "split-" + s.newID(),
		Date:        s.today(),
		Amount:      share,
		Description: "Split: " + description,
		Category:    "Dining",
		Type:        domain.TransactionSplit,
		Currency:    acc.Currency,
	}
	s.appendTransaction(tx)
	return tx, nil
}

// ApplyExchange debits every account held in FromCurrency by Amount and
// credits every account held in ToCurrency with the converted amount. One
// exchange transaction records the original amount and currency.
func (s *Store) ApplyExchange(req ExchangeRequest) (domain.Transaction, error) {
	from := strings.ToUpper(strings.TrimSpace(req.FromCurrency))
	to := strings.ToUpper(strings.TrimSpace(req.ToCurrency))

	if !req.Amount.IsPositive() {
		return domain.Transaction{}, fmt.Errorf("ApplyExchange: %s: %w", req.Amount, ErrNonPositiveAmount)
	}
	if !currencyCode.MatchString(from) {
		return domain.Transaction{}, fmt.Errorf("ApplyExchange: %q: %w", req.FromCurrency, ErrUnsupportedCurrency)
	}
	if !currencyCode.MatchString(to) {
		return domain.Transaction{}, fmt.Errorf("ApplyExchange: %q: %w", req.ToCurrency, ErrUnsupportedCurrency)
	}
	if from == to {
		return domain.Transaction{}, fmt.Errorf("ApplyExchange: %s: %w", from, ErrSameCurrency)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var debit, credit []int
	for i, acc := range s.accounts {
		switch acc.Currency {
		case from:
			debit = append(debit, i)
		case to:
			credit = append(credit, i)
		}
	}
	if len(debit) == 0 {
		return domain.Transaction{}, fmt.Errorf("ApplyExchange: no %s account: %w", from, ErrNoAccount)
	}
	if len(credit) == 0 {
		return domain.Transaction{}, fmt.Errorf("ApplyExchange: no %s account: %w", to, ErrNoAccount)
	}
	for _, i := range debit {
		if err := s.checkFunds(i, req.Amount); err != nil {
			return domain.Transaction{}, fmt.Errorf("ApplyExchange: %w", err)
		}
	}

	converted := s.rates.Convert(req.Amount, from, to)
	for _, i := range debit {
		s.accounts[i].Balance = s.accounts[i].Balance.Sub(req.Amount)
	}
	for _, i := range credit {
		s.accounts[i].Balance = s.accounts[i].Balance.Add(converted)
	}

	tx := domain.Transaction{
		ID:          "exch-" + s.newID(),
		Date:        s.today(),
		Amount:      req.Amount,
		Description: fmt.Sprintf("Exchange %s to %s", from, to),
		Category:    "Exchange",
		Type:        domain.TransactionExchange,
		Currency:    from,
	}
	s.appendTransaction(tx)
	return tx, nil
}

// sourceAccount resolves the account a payment is drawn from. Callers must
// hold mu.
func (s *Store) sourceAccount(hint string) (int, error) {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		for i, acc := range s.accounts {
			if acc.Kind == domain.AccountChecking {
				return i, nil
			}
		}
		return -1, fmt.Errorf("no checking account: %w", ErrNoAccount)
	}

	for i, acc := range s.accounts {
		if strings.ToLower(acc.Name) == hint || acc.LastFour == hint {
			return i, nil
		}
	}
	for i, acc := range s.accounts {
		if strings.Contains(strings.ToLower(acc.Name), hint) || string(acc.Kind) == hint {
			return i, nil
		}
	}
	return -1, fmt.Errorf("account %q: %w", hint, ErrNoAccount)
}

// checkFunds fails when the account at idx cannot cover amount. Callers must
// hold mu.
func (s *Store) checkFunds(idx int, amount decimal.Decimal) error {
	acc := s.accounts[idx]
	if acc.Balance.LessThan(amount) {
		return fmt.Errorf("%s has %s %s, needs %s: %w",
			acc.Name, acc.Balance.StringFixed(2), acc.Currency, amount.StringFixed(2), ErrInsufficientFunds)
	}
	return nil
}
