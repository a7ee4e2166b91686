// Package conversation runs the assistant chat and the confirmation protocol
// that gates every ledger mutation behind an explicit user decision.
//
// A proposal moves pending -> confirmed or pending -> discarded, never back.
// Confirming applies the matching ledger operation; cancelling removes the
// turn that carried the proposal and leaves the ledger untouched.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/novabank/internal/assistant"
	"github.com/dvloznov/novabank/internal/domain"
	"github.com/dvloznov/novabank/internal/gateway"
	"github.com/dvloznov/novabank/internal/ledger"
	"github.com/dvloznov/novabank/internal/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Greeting opens every conversation.
const Greeting = "I'm Nova. I can handle transfers, splitting checks, and currency exchange. Just ask."

// Suggestions are the quick-action prompts offered alongside a conversation.
var Suggestions = []string{"Check Balance", "Send $20 to Sarah", "Split $60 check", "Exchange 50 EUR"}

// preparedText is used when the model answers with a function call only.
const preparedText = "Action prepared. Please review."

// rejectedText is appended when the model's arguments fail validation.
const rejectedText = "I couldn't prepare that request because some details were missing or invalid. Could you rephrase it?"

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 30 * time.Second

// Ledger is what a conversation needs from the ledger: a snapshot for model
// context and the three mutations.
type Ledger interface {
	assistant.Executor
	Snapshot() ledger.Snapshot
}

// Deps are the collaborators shared by every conversation.
type Deps struct {
	Gateway     gateway.Gateway
	Ledger      Ledger
	Interpreter *assistant.Interpreter
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// Turn is one entry of the conversation log.
type Turn struct {
	ID        string              `json:"id"`
	Role      gateway.Role        `json:"role"`
	Text      string              `json:"text"`
	Proposal  *assistant.Proposal `json:"proposal,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// Conversation is an ordered, append-only log of turns plus the proposals it
// has issued. It is safe for concurrent use, but only one message may wait on
// the model at a time.
type Conversation struct {
	id   string
	deps Deps
	log  zerolog.Logger

	mu        sync.Mutex
	turns     []Turn
	proposals map[string]*assistant.Proposal
	awaiting  bool
	now       func() time.Time
}

// New creates a conversation seeded with the greeting.
func New(id string, deps Deps) *Conversation {
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultTimeout
	}
	if deps.Interpreter == nil {
		deps.Interpreter = assistant.NewInterpreter(assistant.DefaultLimits())
	}
	c := &Conversation{
		id:        id,
		deps:      deps,
		log:       deps.Logger.With().Str("conversation_id", id).Logger(),
		proposals: make(map[string]*assistant.Proposal),
		now:       time.Now,
	}
	c.turns = []Turn{c.newTurn(gateway.RoleAssistant, Greeting, nil)}
	return c
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string {
	return c.id
}

// Awaiting reports whether a message is waiting on the model.
func (c *Conversation) Awaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.awaiting
}

// Turns returns a copy of the log in order.
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Turn, len(c.turns))
	for i, t := range c.turns {
		out[i] = copyTurn(t)
	}
	return out
}

// Proposal returns a copy of the proposal with the given ID, in any state.
func (c *Conversation) Proposal(id string) (assistant.Proposal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.proposals[id]
	if !ok {
		return assistant.Proposal{}, ErrProposalNotFound
	}
	return *p, nil
}

// logFor prefers the request-scoped logger carried by ctx, tagged with the
// conversation ID, over the one the conversation was created with.
func (c *Conversation) logFor(ctx context.Context) zerolog.Logger {
	if log, ok := logger.Lookup(ctx); ok {
		return log.With().Str("conversation_id", c.id).Logger()
	}
	return c.log
}

// Send appends the user's message, asks the model for a reply and appends the
// assistant turn, which carries at most one pending proposal. Gateway failures
// are not errors: the reply is the apology and no proposal is raised.
func (c *Conversation) Send(ctx context.Context, text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.awaiting {
		c.mu.Unlock()
		return Turn{}, ErrTurnInFlight
	}
	c.awaiting = true
	history := make([]gateway.Message, 0, len(c.turns))
	for _, t := range c.turns {
		history = append(history, gateway.Message{Role: t.Role, Text: t.Text})
	}
	c.turns = append(c.turns, c.newTurn(gateway.RoleUser, text, nil))
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.awaiting = false
		c.mu.Unlock()
	}()

	log := c.logFor(ctx)
	snap := c.deps.Ledger.Snapshot()
	callCtx, cancel := context.WithTimeout(ctx, c.deps.Timeout)
	reply := c.deps.Gateway.Converse(callCtx, gateway.Request{
		UserText:     text,
		History:      history,
		Accounts:     snap.Accounts,
		Transactions: snap.Transactions,
	})
	cancel()

	if reply.Degraded() {
		log.Error().Err(reply.Err).Msg("Assistant gateway unavailable")
	}

	replyText := reply.Text
	proposal, err := c.interpret(log, reply.Intent)
	if err != nil {
		replyText = strings.TrimSpace(replyText + "\n\n" + rejectedText)
	}
	if replyText == "" {
		replyText = preparedText
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	turn := c.newTurn(gateway.RoleAssistant, replyText, proposal)
	c.turns = append(c.turns, turn)
	if proposal != nil {
		c.proposals[proposal.ID] = proposal
		log.Info().
			Str("proposal_id", proposal.ID).
			Str("kind", string(proposal.Kind)).
			Msg("Proposal raised")
	}
	return copyTurn(turn), nil
}

func (c *Conversation) interpret(log zerolog.Logger, intent *assistant.Intent) (*assistant.Proposal, error) {
	if intent == nil {
		return nil, nil
	}
	p, err := c.deps.Interpreter.Interpret(*intent)
	if err != nil {
		log.Warn().Err(err).Str("intent", intent.Name).Msg("Rejected intent arguments")
		return nil, err
	}
	if p == nil {
		log.Debug().Str("intent", intent.Name).Msg("Intent has no action, replying with text only")
	}
	return p, nil
}

// Confirm applies a pending proposal to the ledger and appends the success
// turn. If the ledger rejects the operation the proposal is discarded, a
// failure turn is appended and the ledger error is returned; nothing is
// mutated in that case.
func (c *Conversation) Confirm(ctx context.Context, proposalID string) (Turn, domain.Transaction, error) {
	log := c.logFor(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.pendingProposal(proposalID)
	if err != nil {
		return Turn{}, domain.Transaction{}, err
	}

	tx, execErr := p.Execute(c.deps.Ledger)
	c.detachProposal(proposalID)

	if execErr != nil {
		p.State = assistant.StateDiscarded
		turn := c.newTurn(gateway.RoleAssistant,
			fmt.Sprintf("I couldn't complete the %s: %s.", p.Kind, failureReason(execErr)), nil)
		c.turns = append(c.turns, turn)

		log.Warn().
			Err(execErr).
			Str("proposal_id", p.ID).
			Str("kind", string(p.Kind)).
			Msg("Ledger rejected confirmed proposal")
		return copyTurn(turn), domain.Transaction{}, fmt.Errorf("Confirm: %w", execErr)
	}

	p.State = assistant.StateConfirmed
	turn := c.newTurn(gateway.RoleAssistant, fmt.Sprintf("Success! I've executed the %s.", p.Kind), nil)
	c.turns = append(c.turns, turn)

	log.Info().
		Str("proposal_id", p.ID).
		Str("kind", string(p.Kind)).
		Str("transaction_id", tx.ID).
		Str("amount", tx.Amount.String()).
		Msg("Proposal confirmed")
	return copyTurn(turn), tx, nil
}

// Cancel discards a pending proposal and removes the turn that carried it.
// The ledger is not touched.
func (c *Conversation) Cancel(ctx context.Context, proposalID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.pendingProposal(proposalID)
	if err != nil {
		return err
	}
	p.State = assistant.StateDiscarded

	kept := c.turns[:0]
	for _, t := range c.turns {
		if t.Proposal != nil && t.Proposal.ID == proposalID {
			continue
		}
		kept = append(kept, t)
	}
	c.turns = kept

	c.logFor(ctx).Info().Str("proposal_id", p.ID).Str("kind", string(p.Kind)).Msg("Proposal discarded")
	return nil
}

// pendingProposal looks up a proposal that can still be decided. Callers must
// hold mu.
func (c *Conversation) pendingProposal(id string) (*assistant.Proposal, error) {
	p, ok := c.proposals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProposalNotFound, id)
	}
	if !p.Pending() {
		return nil, fmt.Errorf("%w: %s is %s", ErrProposalResolved, id, p.State)
	}
	return p, nil
}

// detachProposal clears the confirmation card from the turn that carried it.
// Callers must hold mu.
func (c *Conversation) detachProposal(id string) {
	for i := range c.turns {
		if c.turns[i].Proposal != nil && c.turns[i].Proposal.ID == id {
			c.turns[i].Proposal = nil
			return
		}
	}
}

func (c *Conversation) newTurn(role gateway.Role, text string, p *assistant.Proposal) Turn {
	return Turn{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Proposal:  p,
		CreatedAt: c.now(),
	}
}

func copyTurn(t Turn) Turn {
	if t.Proposal != nil {
		p := *t.Proposal
		t.Proposal = &p
	}
	return t
}
