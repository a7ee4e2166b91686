package handlers

import (
	"errors"
	"net/http"

	"github.com/dvloznov/novabank/internal/conversation"
	"github.com/dvloznov/novabank/internal/ledger"
)

var statusTable = []struct {
	err    error
	status int
}{
	{conversation.ErrConversationNotFound, http.StatusNotFound},
	{conversation.ErrProposalNotFound, http.StatusNotFound},
	{conversation.ErrProposalResolved, http.StatusConflict},
	{conversation.ErrTurnInFlight, http.StatusConflict},
	{conversation.ErrEmptyMessage, http.StatusBadRequest},
	{ledger.ErrInsufficientFunds, http.StatusConflict},
	{ledger.ErrNoAccount, http.StatusUnprocessableEntity},
	{ledger.ErrDivideByZero, http.StatusUnprocessableEntity},
	{ledger.ErrNonPositiveAmount, http.StatusUnprocessableEntity},
	{ledger.ErrSameCurrency, http.StatusUnprocessableEntity},
	{ledger.ErrUnsupportedCurrency, http.StatusUnprocessableEntity},
}

// statusFor maps domain errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	for _, s := range statusTable {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
