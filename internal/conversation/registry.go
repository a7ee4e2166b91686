package conversation

import (
	"time"

	"github.com/dvloznov/novabank/internal/logger"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Registry tracks live conversations. A conversation expires after ttl
// without being looked up; expired conversations and their pending proposals
// are dropped.
type Registry struct {
	deps  Deps
	cache *cache.Cache
	log   zerolog.Logger
}

// NewRegistry creates a registry whose conversations share deps.
func NewRegistry(deps Deps, ttl time.Duration) *Registry {
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}

	r := &Registry{
		deps:  deps,
		cache: cache.New(ttl, cleanup),
		log:   logger.Component(deps.Logger, "conversations"),
	}
	r.cache.OnEvicted(func(id string, _ interface{}) {
		r.log.Info().Str("conversation_id", id).Msg("Conversation closed")
	})
	return r
}

// Create starts a new conversation.
func (r *Registry) Create() *Conversation {
	c := New(uuid.New().String(), r.deps)
	r.cache.Set(c.ID(), c, cache.DefaultExpiration)
	r.log.Info().Str("conversation_id", c.ID()).Int("active", r.Len()).Msg("Conversation started")
	return c
}

// Get returns a live conversation and extends its lifetime.
func (r *Registry) Get(id string) (*Conversation, error) {
	v, found := r.cache.Get(id)
	if !found {
		return nil, ErrConversationNotFound
	}
	c := v.(*Conversation)
	r.cache.Set(id, c, cache.DefaultExpiration)
	return c, nil
}

// Delete ends a conversation. Deleting an unknown ID is a no-op.
func (r *Registry) Delete(id string) {
	r.cache.Delete(id)
}

// Len returns the number of live conversations, including expired ones not
// yet cleaned up.
func (r *Registry) Len() int {
	return r.cache.ItemCount()
}
