// Package payment provides a simulated payment and refund gateway.
package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrDeclined is the sentinel behind every gateway decline.
var ErrDeclined = errors.New("payment declined")

// DeclinedError carries the gateway's reason for a decline.
type DeclinedError struct {
	AccountID string
	Amount    decimal.Decimal
	Reason    string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("declined %s for account %s: %s", e.Amount.StringFixed(2), e.AccountID, e.Reason)
}

func (e *DeclinedError) Unwrap() error {
	return ErrDeclined
}

// Kind distinguishes charges from refunds in the transaction record.
type Kind string

const (
	KindCharge Kind = "charge"
	KindRefund Kind = "refund"
)

// Transaction is an accepted gateway operation.
type Transaction struct {
	Kind      Kind
	AccountID string
	Amount    decimal.Decimal
}

// SimulatorConfig controls when the simulator declines.
type SimulatorConfig struct {
	// DeclineAbove declines charges strictly greater than this amount.
	// Zero disables the limit.
	DeclineAbove decimal.Decimal
	// DeclineAccounts are always declined, for charges and refunds.
	DeclineAccounts []string
}

// Simulator is an in-process gateway that approves by rule and records
// every accepted transaction.
type Simulator struct {
	limit    decimal.Decimal
	declined map[string]struct{}

	mu           sync.Mutex
	transactions []Transaction
}

// NewSimulator returns a Simulator configured by cfg.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	declined := make(map[string]struct{}, len(cfg.DeclineAccounts))
	for _, a := range cfg.DeclineAccounts {
		declined[a] = struct{}{}
	}
	return &Simulator{
		limit:    cfg.DeclineAbove,
		declined: declined,
	}
}

// Charge captures amount from the account.
func (s *Simulator) Charge(_ context.Context, accountID string, amount decimal.Decimal) error {
	if _, ok := s.declined[accountID]; ok {
		return &DeclinedError{AccountID: accountID, Amount: amount, Reason: "account not permitted"}
	}
	if s.limit.IsPositive() && amount.GreaterThan(s.limit) {
		return &DeclinedError{AccountID: accountID, Amount: amount, Reason: "amount exceeds limit"}
	}
	s.record(KindCharge, accountID, amount)
	return nil
}

// Refund returns amount to the account.
func (s *Simulator) Refund(_ context.Context, accountID string, amount decimal.Decimal) error {
	if _, ok := s.declined[accountID]; ok {
		return &DeclinedError{AccountID: accountID, Amount: amount, Reason: "account not permitted"}
	}
	s.record(KindRefund, accountID, amount)
	return nil
}

// Transactions returns a copy of all accepted operations in order.
func (s *Simulator) Transactions() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

func (s *Simulator) record(kind Kind, accountID string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions = append(s.transactions, Transaction{Kind: kind, AccountID: accountID, Amount: amount})
}
