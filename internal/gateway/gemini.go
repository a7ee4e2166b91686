package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/novabank/internal/assistant"
	"github.com/dvloznov/novabank/internal/domain"
	"github.com/dvloznov/novabank/internal/logger"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// recentTransactions is how many transactions the model sees as context.
const recentTransactions = 5

// contentGenerator is the subset of *genai.Models the gateway needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini talks to the Gemini API with function calling enabled.
type Gemini struct {
	models contentGenerator
	model  string
	log    zerolog.Logger
}

// NewGemini creates a Gemini gateway authenticated with apiKey.
func NewGemini(ctx context.Context, apiKey, model string, log zerolog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	return newGemini(client.Models, model, log), nil
}

func newGemini(models contentGenerator, model string, log zerolog.Logger) *Gemini {
	if model == "" {
		model = DefaultModelName
	}
	return &Gemini{
		models: models,
		model:  model,
		log:    logger.Component(log, "gateway").With().Str("model", model).Logger(),
	}
}

// Converse sends the history and the new user text to the model. Failures are
// logged and folded into the apology reply; there are no retries.
func (g *Gemini) Converse(ctx context.Context, req Request) Reply {
	system, err := systemInstruction(req.Accounts, req.Transactions)
	if err != nil {
		g.log.Error().Err(err).Msg("Failed to build system instruction")
		return Unavailable(err)
	}

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		contents = append(contents, &genai.Content{
			Role:  wireRole(m.Role),
			Parts: []*genai.Part{{Text: m.Text}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: req.UserText}},
	})

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Tools:             []*genai.Tool{{FunctionDeclarations: FunctionDeclarations()}},
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		g.log.Error().Err(err).Int("history", len(req.History)).Msg("Model request failed")
		return Unavailable(err)
	}

	reply, err := decodeResponse(resp)
	if err != nil {
		g.log.Error().Err(err).Msg("Unusable model response")
		return Unavailable(err)
	}

	event := g.log.Debug().Int("text_len", len(reply.Text))
	if reply.Intent != nil {
		event = event.Str("intent", reply.Intent.Name)
	}
	event.Msg("Model replied")
	return reply
}

// decodeResponse extracts the text and the first function call of the first
// candidate. Further function calls are ignored.
func decodeResponse(resp *genai.GenerateContentResponse) (Reply, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return Reply{}, errors.New("decodeResponse: no candidates in response")
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return Reply{}, errors.New("decodeResponse: empty candidate content")
	}

	var (
		texts  []string
		intent *assistant.Intent
	)
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			texts = append(texts, part.Text)
		}
		if part.FunctionCall != nil && intent == nil {
			intent = &assistant.Intent{
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			}
		}
	}

	return Reply{
		Text:   strings.TrimSpace(strings.Join(texts, "")),
		Intent: intent,
	}, nil
}

func wireRole(r Role) string {
	if r == RoleAssistant {
		return "model"
	}
	return "user"
}

// accountSummary is the compact account view shared with the model.
type accountSummary struct {
	Name     string  `json:"name"`
	Balance  float64 `json:"bal"`
	Currency string  `json:"cur"`
}

// systemInstruction describes the assistant's role and the current ledger.
func systemInstruction(accounts []domain.Account, transactions []domain.Transaction) (string, error) {
	summaries := make([]accountSummary, 0, len(accounts))
	for _, a := range accounts {
		summaries = append(summaries, accountSummary{Name: a.Name, Balance: a.Balance.InexactFloat64(), Currency: a.Currency})
	}
	accJSON, err := json.Marshal(summaries)
	if err != nil {
		return "", fmt.Errorf("systemInstruction: marshal accounts: %w", err)
	}

	if len(transactions) > recentTransactions {
		transactions = transactions[:recentTransactions]
	}
	txJSON, err := json.Marshal(transactions)
	if err != nil {
		return "", fmt.Errorf("systemInstruction: marshal transactions: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are Nova, the banking assistant for NovaBank. ")
	b.WriteString("You help with balances, transaction history, transfers, splitting bills and currency exchange.\n\n")
	b.WriteString("Current context:\n")
	b.WriteString("Accounts: " + string(accJSON) + "\n")
	b.WriteString("Recent transactions: " + string(txJSON) + "\n\n")
	b.WriteString("Use the provided tools for transfers, bill splits and exchanges. ")
	b.WriteString("The user reviews and confirms every action before it is executed.\n")
	return b.String(), nil
}

// FunctionDeclarations are the tools offered to the model.
func FunctionDeclarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        assistant.FuncGetBalance,
			Description: "Get the current balance of the user's accounts.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"accountName": {Type: genai.TypeString, Description: "Name of the account"},
				},
			},
		},
		{
			Name:        assistant.FuncGetTransactions,
			Description: "Retrieve transaction history with filters.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"category":    {Type: genai.TypeString},
					"description": {Type: genai.TypeString},
					"minAmount":   {Type: genai.TypeNumber},
				},
			},
		},
		{
			Name:        assistant.FuncRequestTransfer,
			Description: "Initiate a money transfer to a recipient.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"recipientName": {Type: genai.TypeString},
					"amount":        {Type: genai.TypeNumber},
					"fromAccount":   {Type: genai.TypeString},
				},
				Required: []string{"amount", "recipientName"},
			},
		},
		{
			Name:        assistant.FuncSplitBill,
			Description: "Split a bill among friends.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"totalAmount": {Type: genai.TypeNumber},
					"numPeople":   {Type: genai.TypeNumber},
					"description": {Type: genai.TypeString},
				},
				Required: []string{"totalAmount", "numPeople"},
			},
		},
		{
			Name:        assistant.FuncExchangeCurrency,
			Description: "Exchange money from one currency to another.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"fromCurrency": {Type: genai.TypeString},
					"toCurrency":   {Type: genai.TypeString},
					"amount":       {Type: genai.TypeNumber},
				},
				Required: []string{"fromCurrency", "toCurrency", "amount"},
			},
		},
	}
}
