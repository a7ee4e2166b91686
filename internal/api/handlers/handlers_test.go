package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/novabank/internal/assistant"
	"github.com/dvloznov/novabank/internal/conversation"
	"github.com/dvloznov/novabank/internal/domain"
	"github.com/dvloznov/novabank/internal/gateway"
	"github.com/dvloznov/novabank/internal/ledger"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type testServer struct {
	handler http.Handler
	store   *ledger.Store
	gateway *gateway.Scripted
}

func newTestServer(limiter *rate.Limiter) *testServer {
	return newTestServerWithLog(limiter, zerolog.New(io.Discard))
}

func newTestServerWithLog(limiter *rate.Limiter, log zerolog.Logger) *testServer {
	store := ledger.NewStore(domain.DefaultSeed())
	gw := gateway.NewScripted()
	registry := conversation.NewRegistry(conversation.Deps{
		Gateway: gw,
		Ledger:  store,
		Logger:  log,
	}, time.Minute)

	return &testServer{
		handler: NewRouter(RouterConfig{
			Ledger:         store,
			Conversations:  registry,
			Log:            log,
			CORSOrigin:     "*",
			MessageLimiter: limiter,
		}),
		store:   store,
		gateway: gw,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

type turnBody struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Text     string `json:"text"`
	Proposal *struct {
		ID    string `json:"id"`
		Kind  string `json:"kind"`
		State string `json:"state"`
	} `json:"proposal"`
	Card *assistant.Card `json:"card"`
}

func (s *testServer) createConversation(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/conversations", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		ID          string     `json:"id"`
		Turns       []turnBody `json:"turns"`
		Suggestions []string   `json:"suggestions"`
	}
	decode(t, rec, &body)
	if body.ID == "" || len(body.Turns) != 1 || body.Turns[0].Text != conversation.Greeting {
		t.Fatalf("Unexpected new conversation: %+v", body)
	}
	if !reflect.DeepEqual(body.Suggestions, conversation.Suggestions) {
		t.Fatalf("Expected suggestions %v, got %v", conversation.Suggestions, body.Suggestions)
	}
	return body.ID
}

func (s *testServer) proposeTransfer(t *testing.T, convID string, amount float64) turnBody {
	t.Helper()
	s.gateway.Push(gateway.Reply{
		Text: "Ready when you are.",
		Intent: &assistant.Intent{
			Name: assistant.FuncRequestTransfer,
			Args: map[string]any{"recipientName": "Sarah", "amount": amount},
		},
	})
	rec := s.do(t, http.MethodPost, "/api/conversations/"+convID+"/messages", map[string]string{"text": "Send money to Sarah"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var turn turnBody
	decode(t, rec, &turn)
	if turn.Proposal == nil {
		t.Fatalf("Expected a proposal, got %+v", turn)
	}
	return turn
}

func TestHealth(t *testing.T) {
	s := newTestServer(nil)
	rec := s.do(t, http.MethodGet, "/health", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
}

func TestGetDashboard(t *testing.T) {
	s := newTestServer(nil)
	rec := s.do(t, http.MethodGet, "/api/dashboard", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body struct {
		TotalBalance       string           `json:"total_balance"`
		Currency           string           `json:"currency"`
		Accounts           []domain.Account `json:"accounts"`
		Alerts             []domain.Alert   `json:"alerts"`
		RecentTransactions []json.RawMessage `json:"recent_transactions"`
		Rates              map[string]string `json:"rates"`
	}
	decode(t, rec, &body)

	if body.TotalBalance != "18576.75" || body.Currency != "USD" {
		t.Errorf("Unexpected total: %s %s", body.TotalBalance, body.Currency)
	}
	if len(body.Accounts) != 3 || len(body.Alerts) != 2 || len(body.RecentTransactions) != 3 {
		t.Errorf("Unexpected dashboard sizes: %d accounts, %d alerts, %d transactions",
			len(body.Accounts), len(body.Alerts), len(body.RecentTransactions))
	}
	if body.Rates["USD"] != "0.92" || body.Rates[ledger.AnyCurrency] != "1.08" {
		t.Errorf("Unexpected rates: %v", body.Rates)
	}
}

func TestListEndpoints(t *testing.T) {
	tests := []struct {
		path  string
		key   string
		count int
	}{
		{"/api/accounts", "accounts", 3},
		{"/api/alerts", "alerts", 2},
		{"/api/recipients", "recipients", 3},
		{"/api/cards", "cards", 1},
	}

	s := newTestServer(nil)
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.path, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rec.Code)
			}
			var body map[string]json.RawMessage
			decode(t, rec, &body)

			var items []json.RawMessage
			if err := json.Unmarshal(body[tt.key], &items); err != nil {
				t.Fatalf("Missing %q list: %v", tt.key, err)
			}
			if len(items) != tt.count {
				t.Errorf("Expected %d %s, got %d", tt.count, tt.key, len(items))
			}
		})
	}
}

func TestListTransactions(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantIDs    []string
	}{
		{"all", "", http.StatusOK, []string{"t1", "t2", "t3", "t4"}},
		{"search", "?q=uber", http.StatusOK, []string{"t3"}},
		{"no match", "?q=rent", http.StatusOK, []string{}},
		{"date range", "?start_date=2024-05-13&end_date=2024-05-14", http.StatusOK, []string{"t2", "t3"}},
		{"search and range", "?q=o&start_date=2024-05-14", http.StatusOK, []string{"t1", "t2"}},
		{"bad start", "?start_date=yesterday", http.StatusBadRequest, nil},
		{"bad end", "?end_date=2024-13-01", http.StatusBadRequest, nil},
		{"inverted range", "?start_date=2024-05-14&end_date=2024-05-13", http.StatusBadRequest, nil},
	}

	s := newTestServer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/transactions"+tt.query, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantIDs == nil {
				return
			}

			var txs []domain.Transaction
			decode(t, rec, &txs)
			got := make([]string, len(txs))
			for i, tx := range txs {
				got[i] = tx.ID
			}
			if strings.Join(got, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("Expected %v, got %v", tt.wantIDs, got)
			}
		})
	}
}

func TestGetInsights(t *testing.T) {
	s := newTestServer(nil)
	rec := s.do(t, http.MethodGet, "/api/insights", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body struct {
		Spending []ledger.CategorySpend `json:"spending_by_category"`
		CashFlow []ledger.CashFlow      `json:"cash_flow"`
	}
	decode(t, rec, &body)

	if len(body.Spending) != 3 || body.Spending[0].Category != "Groceries" {
		t.Errorf("Unexpected spending breakdown: %+v", body.Spending)
	}
	if len(body.CashFlow) != 1 || body.CashFlow[0].Currency != "USD" {
		t.Errorf("Unexpected cash flow: %+v", body.CashFlow)
	}
}

func TestConversation_ConfirmTransfer(t *testing.T) {
	s := newTestServer(nil)
	convID := s.createConversation(t)
	turn := s.proposeTransfer(t, convID, 20)

	if turn.Card == nil || turn.Card.Title != "TRANSFER Request" {
		t.Fatalf("Expected transfer card, got %+v", turn.Card)
	}

	rec := s.do(t, http.MethodPost, "/api/conversations/"+convID+"/proposals/"+turn.Proposal.ID+"/confirm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Turn        turnBody           `json:"turn"`
		Transaction domain.Transaction `json:"transaction"`
	}
	decode(t, rec, &body)

	if body.Turn.Text != "Success! I've executed the transfer." {
		t.Errorf("Unexpected success turn: %q", body.Turn.Text)
	}
	if body.Transaction.Description != "Transfer to Sarah" {
		t.Errorf("Unexpected transaction: %+v", body.Transaction)
	}
	if got := s.store.Accounts()[0].Balance.StringFixed(2); got != "5220.50" {
		t.Errorf("Expected checking balance 5220.50, got %s", got)
	}

	again := s.do(t, http.MethodPost, "/api/conversations/"+convID+"/proposals/"+turn.Proposal.ID+"/confirm", nil)
	if again.Code != http.StatusConflict {
		t.Errorf("Expected 409 on second confirm, got %d", again.Code)
	}
}

func TestConversation_ConfirmInsufficientFunds(t *testing.T) {
	s := newTestServer(nil)
	convID := s.createConversation(t)
	turn := s.proposeTransfer(t, convID, 9000)

	rec := s.do(t, http.MethodPost, "/api/conversations/"+convID+"/proposals/"+turn.Proposal.ID+"/confirm", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Error string   `json:"error"`
		Turn  turnBody `json:"turn"`
	}
	decode(t, rec, &body)
	if !strings.Contains(body.Turn.Text, "not enough funds") {
		t.Errorf("Expected failure turn, got %q", body.Turn.Text)
	}
	if got := s.store.Accounts()[0].Balance.StringFixed(2); got != "5240.50" {
		t.Errorf("Expected untouched balance 5240.50, got %s", got)
	}
}

func TestConversation_RejectionLoggedWithRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	s := newTestServerWithLog(nil, zerolog.New(buf))
	convID := s.createConversation(t)
	turn := s.proposeTransfer(t, convID, 9000)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+convID+"/proposals/"+turn.Proposal.ID+"/confirm", nil)
	req.Header.Set("X-Request-ID", "req-confirm-1")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if !strings.Contains(line, "Ledger rejected confirmed proposal") && !strings.Contains(line, "Proposal rejected by ledger") {
			continue
		}
		if !strings.Contains(line, `"request_id":"req-confirm-1"`) || !strings.Contains(line, `"conversation_id":"`+convID+`"`) {
			t.Errorf("Expected request and conversation IDs in %s", line)
		}
	}
	for _, want := range []string{"Ledger rejected confirmed proposal", "Proposal rejected by ledger"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Expected log line %q, got: %s", want, buf.String())
		}
	}
}

func TestConversation_Delete(t *testing.T) {
	s := newTestServer(nil)
	convID := s.createConversation(t)

	rec := s.do(t, http.MethodDelete, "/api/conversations/"+convID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if get := s.do(t, http.MethodGet, "/api/conversations/"+convID, nil); get.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", get.Code)
	}
	if again := s.do(t, http.MethodDelete, "/api/conversations/"+convID, nil); again.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting twice, got %d", again.Code)
	}
}

func TestConversation_Cancel(t *testing.T) {
	s := newTestServer(nil)
	convID := s.createConversation(t)
	turn := s.proposeTransfer(t, convID, 20)

	rec := s.do(t, http.MethodPost, "/api/conversations/"+convID+"/proposals/"+turn.Proposal.ID+"/cancel", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	get := s.do(t, http.MethodGet, "/api/conversations/"+convID, nil)
	var body struct {
		Turns []turnBody `json:"turns"`
	}
	decode(t, get, &body)
	if len(body.Turns) != 2 {
		t.Errorf("Expected greeting and user turn only, got %d turns", len(body.Turns))
	}
	if got := s.store.Accounts()[0].Balance.StringFixed(2); got != "5240.50" {
		t.Errorf("Expected untouched balance 5240.50, got %s", got)
	}

	missing := s.do(t, http.MethodPost, "/api/conversations/"+convID+"/proposals/nope/cancel", nil)
	if missing.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown proposal, got %d", missing.Code)
	}
}

func TestConversation_GatewayDown(t *testing.T) {
	s := newTestServer(nil)
	convID := s.createConversation(t)

	rec := s.do(t, http.MethodPost, "/api/conversations/"+convID+"/messages", map[string]string{"text": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var turn turnBody
	decode(t, rec, &turn)
	if turn.Text != gateway.ApologyText || turn.Proposal != nil {
		t.Errorf("Expected apology without proposal, got %+v", turn)
	}
}

func TestConversation_BadRequests(t *testing.T) {
	s := newTestServer(nil)
	convID := s.createConversation(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
	}{
		{"unknown conversation", http.MethodGet, "/api/conversations/missing", nil, http.StatusNotFound},
		{"message to unknown conversation", http.MethodPost, "/api/conversations/missing/messages", map[string]string{"text": "hi"}, http.StatusNotFound},
		{"empty message", http.MethodPost, "/api/conversations/" + convID + "/messages", map[string]string{"text": "  "}, http.StatusBadRequest},
		{"markup only", http.MethodPost, "/api/conversations/" + convID + "/messages", map[string]string{"text": "<b></b>"}, http.StatusBadRequest},
		{"invalid body", http.MethodPost, "/api/conversations/" + convID + "/messages", "not an object", http.StatusBadRequest},
		{"too long", http.MethodPost, "/api/conversations/" + convID + "/messages", map[string]string{"text": strings.Repeat("a", maxMessageBytes)}, http.StatusRequestEntityTooLarge},
		{"confirm unknown proposal", http.MethodPost, "/api/conversations/" + convID + "/proposals/nope/confirm", nil, http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/accounts", nil, http.StatusMethodNotAllowed},
		{"unknown route", http.MethodGet, "/api/nothing", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("Expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestConversation_SanitizesInput(t *testing.T) {
	s := newTestServer(nil)
	convID := s.createConversation(t)
	s.gateway.Push(gateway.Reply{Text: "ok"})

	rec := s.do(t, http.MethodPost, "/api/conversations/"+convID+"/messages",
		map[string]string{"text": "<i>Pay</i> Tom & Jerry &lt;script&gt;steal()&lt;/script&gt;"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	reqs := s.gateway.Requests()
	if len(reqs) != 1 || reqs[0].UserText != "Pay Tom & Jerry" {
		t.Errorf("Expected sanitized text to reach the gateway, got %+v", reqs)
	}
}

func TestConversation_RateLimited(t *testing.T) {
	s := newTestServer(rate.NewLimiter(rate.Limit(0.001), 1))
	convID := s.createConversation(t)

	first := s.do(t, http.MethodPost, "/api/conversations/"+convID+"/messages", map[string]string{"text": "one"})
	if first.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", first.Code)
	}
	second := s.do(t, http.MethodPost, "/api/conversations/"+convID+"/messages", map[string]string{"text": "two"})
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", second.Code)
	}

	// Reads are not throttled.
	if rec := s.do(t, http.MethodGet, "/api/conversations/"+convID, nil); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for read, got %d", rec.Code)
	}
}

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Send $20 to Sarah", "Send $20 to Sarah"},
		{"<b>Split</b> dinner", "Split dinner"},
		{"Tom & Jerry", "Tom & Jerry"},
		{"<script>alert(1)</script>pay rent", "pay rent"},
		{"  spaced\x00 out ", "spaced out"},
		{"&lt;script&gt;alert(1)&lt;/script&gt; send 20", "send 20"},
		{"&amp;lt;b&amp;gt;bold&amp;lt;/b&amp;gt; move 5", "bold move 5"},
		{"&lt;img src=x onerror=alert(1)&gt;hi", "hi"},
		{"is 5 < 6?", "is 5 < 6?"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := sanitizeMessage(tt.input); got != tt.want {
				t.Errorf("sanitizeMessage(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", conversation.ErrConversationNotFound, http.StatusNotFound},
		{"resolved", conversation.ErrProposalResolved, http.StatusConflict},
		{"in flight", conversation.ErrTurnInFlight, http.StatusConflict},
		{"funds", ledger.ErrInsufficientFunds, http.StatusConflict},
		{"no account", ledger.ErrNoAccount, http.StatusUnprocessableEntity},
		{"unknown", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
