package handlers

import (
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/novabank/internal/api/middleware"
	"github.com/dvloznov/novabank/internal/domain"
	"github.com/dvloznov/novabank/internal/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
)

// dashboardRecent is how many transactions the dashboard shows.
const dashboardRecent = 3

// LedgerViews is the read side of the ledger the HTTP surfaces render.
type LedgerViews interface {
	Accounts() []domain.Account
	Alerts() []domain.Alert
	Recipients() []domain.Recipient
	Cards() []domain.Card
	RecentTransactions(n int) []domain.Transaction
	TotalBalance() decimal.Decimal
	SpendingByCategory() []ledger.CategorySpend
	CashFlows() []ledger.CashFlow
	Search(query string) *ledger.TransactionIterator
	Rates() ledger.RateTable
}

var _ LedgerViews = (*ledger.Store)(nil)

// DashboardHandler serves the account overview endpoints.
type DashboardHandler struct {
	ledger LedgerViews
	log    zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(l LedgerViews, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		ledger: l,
		log:    log,
	}
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total_balance":       h.ledger.TotalBalance(),
		"currency":            ledger.ReportingCurrency,
		"accounts":            h.ledger.Accounts(),
		"alerts":              h.ledger.Alerts(),
		"recent_transactions": nonNil(h.ledger.RecentTransactions(dashboardRecent)),
		"rates":               h.ledger.Rates(),
	})
}

// ListAccounts handles GET /api/accounts
func (h *DashboardHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.ledger.Accounts()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": nonNil(accounts),
		"count":    len(accounts),
	})
}

// ListAlerts handles GET /api/alerts
func (h *DashboardHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.ledger.Alerts()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": nonNil(alerts),
		"count":  len(alerts),
	})
}

// ListRecipients handles GET /api/recipients
func (h *DashboardHandler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	recipients := h.ledger.Recipients()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"recipients": nonNil(recipients),
		"count":      len(recipients),
	})
}

// ListCards handles GET /api/cards
func (h *DashboardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards := h.ledger.Cards()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cards": nonNil(cards),
		"count": len(cards),
	})
}

// TransactionsHandler handles transaction history and insights.
type TransactionsHandler struct {
	ledger LedgerViews
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(l LedgerViews, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		ledger: l,
		log:    log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	query := r.URL.Query()
	startDateStr := query.Get("start_date")
	endDateStr := query.Get("end_date")

	var startDate, endDate civil.Date
	var err error

	if startDateStr != "" {
		startDate, err = civil.ParseDate(startDateStr)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
	}

	if endDateStr != "" {
		endDate, err = civil.ParseDate(endDateStr)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
	}

	if startDate.IsValid() && endDate.IsValid() && endDate.Before(startDate) {
		middleware.WriteError(w, http.StatusBadRequest, "end_date is before start_date")
		return
	}

	it := h.ledger.Search(query.Get("q"))
	transactions := make([]domain.Transaction, 0, it.Remaining())
	for {
		tx, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			middleware.RequestLogger(r, h.log).Error().Err(err).Msg("Failed to iterate transactions")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
			return
		}
		if startDate.IsValid() && tx.Date.Before(startDate) {
			continue
		}
		if endDate.IsValid() && tx.Date.After(endDate) {
			continue
		}
		transactions = append(transactions, tx)
	}

	// Return array directly for frontend compatibility
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// GetInsights handles GET /api/insights
func (h *TransactionsHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"spending_by_category": nonNil(h.ledger.SpendingByCategory()),
		"cash_flow":            nonNil(h.ledger.CashFlows()),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
