package gateway

import (
	"context"
	"errors"
	"sync"
)

// Scripted replays queued replies in order and records every request. Once
// the script runs out it answers with the apology. Useful in tests and demos.
type Scripted struct {
	mu       sync.Mutex
	replies  []Reply
	requests []Request
}

// NewScripted creates a gateway that will answer with replies in order.
func NewScripted(replies ...Reply) *Scripted {
	return &Scripted{replies: replies}
}

// Push queues more replies.
func (s *Scripted) Push(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
}

// Converse implements Gateway.
func (s *Scripted) Converse(ctx context.Context, req Request) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if err := ctx.Err(); err != nil {
		return Unavailable(err)
	}
	if len(s.replies) == 0 {
		return Unavailable(errors.New("script exhausted"))
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r
}

// Requests returns a copy of the requests received so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}
