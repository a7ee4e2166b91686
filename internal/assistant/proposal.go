// Package assistant turns structured intents suggested by the conversational
// model into proposals a user can review before anything touches the ledger.
package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/novabank/internal/domain"
	"github.com/dvloznov/novabank/internal/ledger"
	"github.com/shopspring/decimal"
)

// Kind is the financial operation a proposal would perform.
type Kind string

const (
	KindTransfer Kind = "transfer"
	KindSplit    Kind = "split"
	KindExchange Kind = "exchange"
)

// State is the lifecycle position of a proposal. Confirmed and discarded are
// terminal.
type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateDiscarded State = "discarded"
)

// TransferArgs mirrors the requestTransfer function schema.
type TransferArgs struct {
	RecipientName string          `json:"recipientName"`
	Amount        decimal.Decimal `json:"amount"`
	FromAccount   string          `json:"fromAccount,omitempty"`
}

// SplitArgs mirrors the splitBill function schema.
type SplitArgs struct {
	TotalAmount decimal.Decimal `json:"totalAmount"`
	NumPeople   int             `json:"numPeople"`
	Description string          `json:"description,omitempty"`
}

// ExchangeArgs mirrors the exchangeCurrency function schema.
type ExchangeArgs struct {
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
	Amount       decimal.Decimal `json:"amount"`
}

// Proposal is a parsed financial action awaiting the user's decision.
// Exactly one of Transfer, Split or Exchange is set, matching Kind.
type Proposal struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`

	Transfer *TransferArgs `json:"transfer,omitempty"`
	Split    *SplitArgs    `json:"split,omitempty"`
	Exchange *ExchangeArgs `json:"exchange,omitempty"`
}

// Pending reports whether the proposal still awaits a decision.
func (p *Proposal) Pending() bool {
	return p.State == StatePending
}

// Executor applies confirmed proposals. *ledger.Store satisfies it.
type Executor interface {
	ApplyTransfer(req ledger.TransferRequest) (domain.Transaction, error)
	ApplySplit(req ledger.SplitRequest) (domain.Transaction, error)
	ApplyExchange(req ledger.ExchangeRequest) (domain.Transaction, error)
}

var _ Executor = (*ledger.Store)(nil)

// Execute runs the ledger operation matching the proposal's kind. It does not
// change the proposal's state; that is the caller's decision.
func (p *Proposal) Execute(ex Executor) (domain.Transaction, error) {
	switch p.Kind {
	case KindTransfer:
		return ex.ApplyTransfer(ledger.TransferRequest{
			Amount:        p.Transfer.Amount,
			RecipientName: p.Transfer.RecipientName,
			FromAccount:   p.Transfer.FromAccount,
		})
	case KindSplit:
		return ex.ApplySplit(ledger.SplitRequest{
			TotalAmount: p.Split.TotalAmount,
			NumPeople:   p.Split.NumPeople,
			Description: p.Split.Description,
		})
	case KindExchange:
		return ex.ApplyExchange(ledger.ExchangeRequest{
			Amount:       p.Exchange.Amount,
			FromCurrency: p.Exchange.FromCurrency,
			ToCurrency:   p.Exchange.ToCurrency,
		})
	default:
		return domain.Transaction{}, fmt.Errorf("Execute: unknown proposal kind %q", p.Kind)
	}
}

// Line is one label/value row of a confirmation card.
type Line struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Card is the human-reviewable rendering of a proposal.
type Card struct {
	Title string `json:"title"`
	Lines []Line `json:"lines"`
}

// Card renders the rows a user reviews before confirming.
func (p *Proposal) Card() Card {
	c := Card{Title: strings.ToUpper(string(p.Kind)) + " Request"}
	switch p.Kind {
	case KindTransfer:
		// A named source account may not hold dollars.
		amount := "$" + p.Transfer.Amount.StringFixed(2)
		if p.Transfer.FromAccount != "" {
			amount = p.Transfer.Amount.StringFixed(2)
		}
		c.Lines = []Line{
			{Label: "To", Value: p.Transfer.RecipientName},
			{Label: "Amount", Value: amount},
		}
		if p.Transfer.FromAccount != "" {
			c.Lines = append(c.Lines, Line{Label: "From", Value: p.Transfer.FromAccount})
		}
	case KindSplit:
		c.Lines = []Line{
			{Label: "Total", Value: "$" + p.Split.TotalAmount.StringFixed(2)},
			{Label: "Split with", Value: fmt.Sprintf("%d people", p.Split.NumPeople)},
		}
		if share, err := ledger.SplitShare(p.Split.TotalAmount, p.Split.NumPeople); err == nil {
			c.Lines = append(c.Lines, Line{Label: "Each pays", Value: "$" + share.StringFixed(2)})
		}
	case KindExchange:
		c.Lines = []Line{
			{Label: "Exchange", Value: p.Exchange.Amount.String() + " " + p.Exchange.FromCurrency},
			{Label: "To", Value: p.Exchange.ToCurrency},
		}
	}
	return c
}
