// Package gateway brokers conversation turns to the external model service.
// A Gateway never fails the caller: transport and service errors come back as
// a fixed apology with no intent, and the conversation carries on.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/novabank/internal/assistant"
	"github.com/dvloznov/novabank/internal/domain"
)

// ApologyText is returned whenever the model service cannot be reached.
const ApologyText = "I'm having trouble connecting to Nova core. Please try again later."

// ErrGatewayUnavailable marks replies produced because the model service failed.
var ErrGatewayUnavailable = errors.New("assistant gateway unavailable")

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior turn replayed to the model.
type Message struct {
	Role Role
	Text string
}

// Request is everything the model sees for one turn.
type Request struct {
	UserText     string
	History      []Message
	Accounts     []domain.Account
	Transactions []domain.Transaction
}

// Reply is the model's answer: free text plus at most one intent.
type Reply struct {
	Text   string
	Intent *assistant.Intent
	// Err is set when the reply is a fallback. It is informational only.
	Err error
}

// Degraded reports whether the reply is the fallback apology.
func (r Reply) Degraded() bool {
	return errors.Is(r.Err, ErrGatewayUnavailable)
}

// Gateway is the narrow boundary to the conversational model.
type Gateway interface {
	Converse(ctx context.Context, req Request) Reply
}

// Func adapts an ordinary function to the Gateway interface.
type Func func(ctx context.Context, req Request) Reply

// Converse calls f.
func (f Func) Converse(ctx context.Context, req Request) Reply {
	return f(ctx, req)
}

// Unavailable builds the fallback reply for cause.
func Unavailable(cause error) Reply {
	return Reply{
		Text: ApologyText,
		Err:  fmt.Errorf("%w: %v", ErrGatewayUnavailable, cause),
	}
}

// Offline is used when no model credentials are configured. Every turn gets
// the apology.
type Offline struct{}

// Converse implements Gateway.
func (Offline) Converse(ctx context.Context, req Request) Reply {
	return Unavailable(errors.New("no model API key configured"))
}
