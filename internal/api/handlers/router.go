package handlers

import (
	"net/http"

	"github.com/dvloznov/novabank/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RouterConfig wires the HTTP surface to its collaborators.
type RouterConfig struct {
	Ledger        LedgerViews
	Conversations Conversations
	Log           zerolog.Logger
	CORSOrigin    string
	// MessageLimiter throttles chat messages. Nil disables limiting.
	MessageLimiter *rate.Limiter
}

// NewRouter builds the API routes behind the standard middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	dashboard := NewDashboardHandler(cfg.Ledger, cfg.Log)
	transactions := NewTransactionsHandler(cfg.Ledger, cfg.Log)
	conversations := NewConversationsHandler(cfg.Conversations, cfg.Log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Log))
	r.Use(middleware.Logger(cfg.Log))
	r.Use(middleware.RequestID)
	r.Use(middleware.ContextLogger(cfg.Log))
	r.Use(middleware.CORS(cfg.CORSOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", dashboard.GetDashboard)
		r.Get("/accounts", dashboard.ListAccounts)
		r.Get("/alerts", dashboard.ListAlerts)
		r.Get("/recipients", dashboard.ListRecipients)
		r.Get("/cards", dashboard.ListCards)

		r.Get("/transactions", transactions.ListTransactions)
		r.Get("/insights", transactions.GetInsights)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversations.CreateConversation)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversations.GetConversation)
				r.Delete("/", conversations.DeleteConversation)

				send := http.HandlerFunc(conversations.PostMessage)
				if cfg.MessageLimiter != nil {
					r.With(middleware.RateLimit(cfg.MessageLimiter, cfg.Log)).Post("/messages", send)
				} else {
					r.Post("/messages", send)
				}

				r.Post("/proposals/{pid}/confirm", conversations.ConfirmProposal)
				r.Post("/proposals/{pid}/cancel", conversations.CancelProposal)
			})
		})
	})

	return r
}
