package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dvloznov/novabank/internal/api/middleware"
	"github.com/dvloznov/novabank/internal/assistant"
	"github.com/dvloznov/novabank/internal/conversation"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// maxMessageBytes bounds the body of a posted chat message.
const maxMessageBytes = 16 << 10

// Conversations is the session store the handlers work against.
type Conversations interface {
	Create() *conversation.Conversation
	Get(id string) (*conversation.Conversation, error)
	Delete(id string)
}

var _ Conversations = (*conversation.Registry)(nil)

// turnResponse is a turn plus the confirmation card for its pending proposal.
type turnResponse struct {
	conversation.Turn
	Card *assistant.Card `json:"card,omitempty"`
}

func newTurnResponse(t conversation.Turn) turnResponse {
	resp := turnResponse{Turn: t}
	if t.Proposal != nil && t.Proposal.Pending() {
		card := t.Proposal.Card()
		resp.Card = &card
	}
	return resp
}

// ConversationsHandler handles the assistant chat and proposal decisions.
type ConversationsHandler struct {
	conversations Conversations
	log           zerolog.Logger
}

// NewConversationsHandler creates a new conversations handler.
func NewConversationsHandler(conversations Conversations, log zerolog.Logger) *ConversationsHandler {
	return &ConversationsHandler{
		conversations: conversations,
		log:           log,
	}
}

// CreateConversation handles POST /api/conversations
func (h *ConversationsHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	c := h.conversations.Create()
	middleware.WriteJSON(w, http.StatusCreated, conversationBody(c))
}

// GetConversation handles GET /api/conversations/{id}
func (h *ConversationsHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, conversationBody(c))
}

// PostMessage handles POST /api/conversations/{id}/messages
func (h *ConversationsHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Message is too long")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	turn, err := c.Send(r.Context(), sanitizeMessage(req.Text))
	if err != nil {
		h.writeError(w, r, err, c.ID(), "Failed to send message")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, newTurnResponse(turn))
}

// ConfirmProposal handles POST /api/conversations/{id}/proposals/{pid}/confirm
func (h *ConversationsHandler) ConfirmProposal(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	proposalID := chi.URLParam(r, "pid")

	turn, tx, err := c.Confirm(r.Context(), proposalID)
	if err != nil {
		if turn.ID == "" {
			h.writeError(w, r, err, c.ID(), "Failed to confirm proposal")
			return
		}
		// The ledger refused the operation; the failure turn is part of the log.
		middleware.RequestLogger(r, h.log).Warn().Err(err).Str("conversation_id", c.ID()).Str("proposal_id", proposalID).Msg("Proposal rejected by ledger")
		middleware.WriteJSON(w, statusFor(err), map[string]interface{}{
			"error": err.Error(),
			"turn":  newTurnResponse(turn),
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"turn":        newTurnResponse(turn),
		"transaction": tx,
	})
}

// CancelProposal handles POST /api/conversations/{id}/proposals/{pid}/cancel
func (h *ConversationsHandler) CancelProposal(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := c.Cancel(r.Context(), chi.URLParam(r, "pid")); err != nil {
		h.writeError(w, r, err, c.ID(), "Failed to cancel proposal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteConversation handles DELETE /api/conversations/{id}
func (h *ConversationsHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.conversations.Delete(c.ID())
	middleware.RequestLogger(r, h.log).Info().Str("conversation_id", c.ID()).Msg("Conversation ended")
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationsHandler) lookup(w http.ResponseWriter, r *http.Request) (*conversation.Conversation, bool) {
	id := chi.URLParam(r, "id")
	c, err := h.conversations.Get(id)
	if err != nil {
		h.writeError(w, r, err, id, "Failed to load conversation")
		return nil, false
	}
	return c, true
}

// writeError reports client errors verbatim and hides everything else
// behind fallback.
func (h *ConversationsHandler) writeError(w http.ResponseWriter, r *http.Request, err error, conversationID, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		middleware.RequestLogger(r, h.log).Error().Err(err).Str("conversation_id", conversationID).Msg(fallback)
		middleware.WriteError(w, status, fallback)
		return
	}
	middleware.WriteError(w, status, err.Error())
}

func conversationBody(c *conversation.Conversation) map[string]interface{} {
	turns := c.Turns()
	out := make([]turnResponse, len(turns))
	for i, t := range turns {
		out[i] = newTurnResponse(t)
	}
	return map[string]interface{}{
		"id":          c.ID(),
		"awaiting":    c.Awaiting(),
		"turns":       out,
		"suggestions": conversation.Suggestions,
	}
}
