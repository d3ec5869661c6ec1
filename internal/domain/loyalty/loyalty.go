package loyalty

import (
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientPoints is returned when redeeming more than the balance.
	ErrInsufficientPoints = errors.New("not enough points to redeem")
	// ErrInvalidPoints is returned when redeeming a negative amount.
	ErrInvalidPoints = errors.New("points must not be negative")
)

// pointValue is the monetary value of a single point.
var pointValue = decimal.RequireFromString("0.01")

// Ledger keeps per-account point balances. Balances never go negative.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]int)}
}

// PointsFor returns the points earned for a total: one per whole currency unit.
func PointsFor(total decimal.Decimal) int {
	return int(total.IntPart())
}

// Accrue credits the account with PointsFor(total) and returns the points.
func (l *Ledger) Accrue(accountID string, total decimal.Decimal) int {
	points := PointsFor(total)

	l.mu.Lock()
	l.balances[accountID] += points
	l.mu.Unlock()

	return points
}

// Balance returns the account's current points.
func (l *Ledger) Balance(accountID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balances[accountID]
}

// Redeem debits points from the account and returns their monetary value
// rounded to cents.
func (l *Ledger) Redeem(accountID string, points int) (decimal.Decimal, error) {
	if points < 0 {
		return decimal.Zero, ErrInvalidPoints
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	available := l.balances[accountID]
	if points > available {
		return decimal.Zero, ErrInsufficientPoints
	}
	l.balances[accountID] = available - points

	return decimal.NewFromInt(int64(points)).Mul(pointValue).Round(2), nil
}

// Restore credits back points, typically to undo a redemption.
func (l *Ledger) Restore(accountID string, points int) {
	if points <= 0 {
		return
	}

	l.mu.Lock()
	l.balances[accountID] += points
	l.mu.Unlock()
}

// Clawback removes points, clamping the balance at zero.
func (l *Ledger) Clawback(accountID string, points int) {
	if points <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[accountID] = max(0, l.balances[accountID]-points)
}
