package conversation

import (
	"errors"

	"github.com/dvloznov/novabank/internal/ledger"
)

var (
	// ErrConversationNotFound is returned for unknown or expired conversations.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrProposalNotFound is returned when no proposal has the given ID.
	ErrProposalNotFound = errors.New("proposal not found")

	// ErrProposalResolved is returned when a proposal was already confirmed
	// or discarded.
	ErrProposalResolved = errors.New("proposal already resolved")

	// ErrTurnInFlight is returned when a message is sent while the previous
	// one is still waiting on the model.
	ErrTurnInFlight = errors.New("a message is already being processed")

	// ErrEmptyMessage is returned for blank user input.
	ErrEmptyMessage = errors.New("message is empty")
)

// failureReasons maps ledger errors to the phrase shown to the user.
var failureReasons = []struct {
	err    error
	reason string
}{
	{ledger.ErrInsufficientFunds, "there are not enough funds in the account"},
	{ledger.ErrDivideByZero, "a bill cannot be split between zero people"},
	{ledger.ErrNonPositiveAmount, "the amount must be greater than zero"},
	{ledger.ErrNoAccount, "I couldn't find a matching account"},
	{ledger.ErrSameCurrency, "both currencies are the same"},
	{ledger.ErrUnsupportedCurrency, "that currency isn't supported"},
}

func failureReason(err error) string {
	for _, f := range failureReasons {
		if errors.Is(err, f.err) {
			return f.reason
		}
	}
	return "something went wrong"
}
