package ledger

import "errors"

var (
	// ErrDivideByZero is returned when a bill is split between zero people.
	ErrDivideByZero = errors.New("cannot split between zero people")

	// ErrNonPositiveAmount is returned for zero or negative amounts.
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")

	// ErrInsufficientFunds is returned when a debit exceeds the account balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNoAccount is returned when no account matches the requested kind,
	// currency or hint.
	ErrNoAccount = errors.New("no matching account")

	// ErrSameCurrency is returned when exchanging a currency into itself.
	ErrSameCurrency = errors.New("source and target currency are the same")

	// ErrUnsupportedCurrency is returned for malformed currency codes.
	ErrUnsupportedCurrency = errors.New("unsupported currency code")
)
