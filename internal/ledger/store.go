// Package ledger owns the session's accounts and its append-only transaction
// list. Store is the only type allowed to change balances; every read hands
// out copies so callers never alias internal state.
package ledger

import (
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/novabank/internal/domain"
	"github.com/google/uuid"
)

// Store is an in-memory, single-writer ledger. It is safe for concurrent use:
// mutations are serialised by mu and reads return copies.
type Store struct {
	mu sync.RWMutex

	accounts     []domain.Account
	transactions []domain.Transaction // newest first
	alerts       []domain.Alert
	recipients   []domain.Recipient
	cards        []domain.Card

	rates RateTable
	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to date new transactions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how transaction ID suffixes are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore creates a ledger seeded with the given data.
func NewStore(seed domain.Seed, opts ...Option) *Store {
	s := &Store{
		accounts:     append([]domain.Account(nil), seed.Accounts...),
		transactions: append([]domain.Transaction(nil), seed.Transactions...),
		alerts:       append([]domain.Alert(nil), seed.Alerts...),
		recipients:   append([]domain.Recipient(nil), seed.Recipients...),
		cards:        append([]domain.Card(nil), seed.Cards...),
		rates:        DefaultRates(),
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot is a point-in-time copy of the ledger.
type Snapshot struct {
	Accounts     []domain.Account     `json:"accounts"`
	Transactions []domain.Transaction `json:"transactions"`
	Alerts       []domain.Alert       `json:"alerts"`
	Recipients   []domain.Recipient   `json:"recipients"`
}

// Snapshot returns a consistent copy of accounts, transactions, alerts and
// recipients taken under a single read lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Accounts:     append([]domain.Account(nil), s.accounts...),
		Transactions: append([]domain.Transaction(nil), s.transactions...),
		Alerts:       append([]domain.Alert(nil), s.alerts...),
		Recipients:   append([]domain.Recipient(nil), s.recipients...),
	}
}

// Accounts returns a copy of all accounts in display order.
func (s *Store) Accounts() []domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Account(nil), s.accounts...)
}

// Transactions returns a copy of the ledger, newest first.
func (s *Store) Transactions() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Transaction(nil), s.transactions...)
}

// RecentTransactions returns at most n transactions, newest first.
func (s *Store) RecentTransactions(n int) []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n < 0 {
		n = 0
	}
	if n > len(s.transactions) {
		n = len(s.transactions)
	}
	return append([]domain.Transaction(nil), s.transactions[:n]...)
}

// Alerts returns a copy of the active alerts.
func (s *Store) Alerts() []domain.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Alert(nil), s.alerts...)
}

// Recipients returns a copy of the saved payees.
func (s *Store) Recipients() []domain.Recipient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Recipient(nil), s.recipients...)
}

// Cards returns a copy of the payment cards.
func (s *Store) Cards() []domain.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Card(nil), s.cards...)
}

// Rates returns the exchange table in use.
func (s *Store) Rates() RateTable {
	return s.rates
}

// today returns the calendar date new transactions are stamped with.
func (s *Store) today() civil.Date {
	return civil.DateOf(s.now())
}

// appendTransaction prepends tx so the list stays newest first.
// Callers must hold mu for writing.
func (s *Store) appendTransaction(tx domain.Transaction) {
	s.transactions = append([]domain.Transaction{tx}, s.transactions...)
}
