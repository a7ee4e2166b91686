package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dvloznov/novabank/internal/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Function names declared to the conversational model.
const (
	FuncGetBalance       = "getBalance"
	FuncGetTransactions  = "getTransactions"
	FuncRequestTransfer  = "requestTransfer"
	FuncSplitBill        = "splitBill"
	FuncExchangeCurrency = "exchangeCurrency"
)

// ErrInvalidArguments is returned when an intent's arguments are missing,
// mistyped or out of bounds.
var ErrInvalidArguments = errors.New("invalid intent arguments")

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Intent is a function-call-shaped suggestion from the model.
type Intent struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Limits bounds the arguments the interpreter accepts.
type Limits struct {
	MaxAmount decimal.Decimal
	MaxPeople int
}

// DefaultLimits allows amounts up to 1,000,000 and splits among up to 100.
func DefaultLimits() Limits {
	return Limits{
		MaxAmount: decimal.NewFromInt(1_000_000),
		MaxPeople: 100,
	}
}

// Interpreter classifies intents into proposals.
type Interpreter struct {
	limits Limits
	now    func() time.Time
	newID  func() string
}

// NewInterpreter creates an interpreter with the given bounds.
func NewInterpreter(limits Limits) *Interpreter {
	return &Interpreter{
		limits: limits,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// Interpret maps an intent to a pending proposal. Intents that are not one of
// the three actionable functions yield (nil, nil): the reply stays plain text.
func (in *Interpreter) Interpret(intent Intent) (*Proposal, error) {
	var (
		p   *Proposal
		err error
	)
	switch intent.Name {
	case FuncRequestTransfer:
		p, err = in.transfer(intent.Args)
	case FuncSplitBill:
		p, err = in.split(intent.Args)
	case FuncExchangeCurrency:
		p, err = in.exchange(intent.Args)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Interpret %s: %w", intent.Name, err)
	}

	p.ID = in.newID()
	p.State = StatePending
	p.CreatedAt = in.now()
	return p, nil
}

func (in *Interpreter) transfer(args map[string]any) (*Proposal, error) {
	recipient, err := stringArg(args, "recipientName", true)
	if err != nil {
		return nil, err
	}
	amount, err := in.amountArg(args, "amount")
	if err != nil {
		return nil, err
	}
	from, err := stringArg(args, "fromAccount", false)
	if err != nil {
		return nil, err
	}

	return &Proposal{
		Kind:     KindTransfer,
		Transfer: &TransferArgs{RecipientName: recipient, Amount: amount, FromAccount: from},
	}, nil
}

func (in *Interpreter) split(args map[string]any) (*Proposal, error) {
	total, err := in.amountArg(args, "totalAmount")
	if err != nil {
		return nil, err
	}
	people, err := numberArg(args, "numPeople")
	if err != nil {
		return nil, err
	}
	if !people.IsInteger() {
		return nil, fmt.Errorf("%w: numPeople must be a whole number, got %s", ErrInvalidArguments, people)
	}
	if people.IsZero() {
		return nil, fmt.Errorf("%w: numPeople: %w", ErrInvalidArguments, ledger.ErrDivideByZero)
	}
	if people.IsNegative() || people.GreaterThan(decimal.NewFromInt(int64(in.limits.MaxPeople))) {
		return nil, fmt.Errorf("%w: numPeople must be between 1 and %d, got %s", ErrInvalidArguments, in.limits.MaxPeople, people)
	}
	description, err := stringArg(args, "description", false)
	if err != nil {
		return nil, err
	}

	return &Proposal{
		Kind:  KindSplit,
		Split: &SplitArgs{TotalAmount: total, NumPeople: int(people.IntPart()), Description: description},
	}, nil
}

func (in *Interpreter) exchange(args map[string]any) (*Proposal, error) {
	from, err := currencyArg(args, "fromCurrency")
	if err != nil {
		return nil, err
	}
	to, err := currencyArg(args, "toCurrency")
	if err != nil {
		return nil, err
	}
	if from == to {
		return nil, fmt.Errorf("%w: cannot exchange %s into itself", ErrInvalidArguments, from)
	}
	amount, err := in.amountArg(args, "amount")
	if err != nil {
		return nil, err
	}

	return &Proposal{
		Kind:     KindExchange,
		Exchange: &ExchangeArgs{FromCurrency: from, ToCurrency: to, Amount: amount},
	}, nil
}

func (in *Interpreter) amountArg(args map[string]any, key string) (decimal.Decimal, error) {
	v, err := numberArg(args, key)
	if err != nil {
		return decimal.Zero, err
	}
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be greater than zero, got %s", ErrInvalidArguments, key, v)
	}
	if v.GreaterThan(in.limits.MaxAmount) {
		return decimal.Zero, fmt.Errorf("%w: %s exceeds %s", ErrInvalidArguments, key, in.limits.MaxAmount)
	}
	return v, nil
}

// numberArg reads a required numeric argument. Models send JSON numbers, but
// numeric strings such as "20" or "$20.50" are accepted as well.
func numberArg(args map[string]any, key string) (decimal.Decimal, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return decimal.Zero, fmt.Errorf("%w: %s is required", ErrInvalidArguments, key)
	}

	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, key, err)
		}
		return d, nil
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "$"))
		s = strings.ReplaceAll(s, ",", "")
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %s is not a number: %q", ErrInvalidArguments, key, v)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %s has unexpected type %T", ErrInvalidArguments, key, raw)
	}
}

func stringArg(args map[string]any, key string, required bool) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		if required {
			return "", fmt.Errorf("%w: %s is required", ErrInvalidArguments, key)
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s has unexpected type %T", ErrInvalidArguments, key, raw)
	}
	s = strings.TrimSpace(s)
	if required && s == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrInvalidArguments, key)
	}
	return s, nil
}

func currencyArg(args map[string]any, key string) (string, error) {
	s, err := stringArg(args, key, true)
	if err != nil {
		return "", err
	}
	s = strings.ToUpper(s)
	if !currencyCode.MatchString(s) {
		return "", fmt.Errorf("%w: %s is not a currency code: %q", ErrInvalidArguments, key, s)
	}
	return s, nil
}
