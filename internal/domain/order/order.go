package order

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-fulfillment/internal/domain/audit"
	"github.com/xenking/oolio-fulfillment/internal/domain/fraud"
	"github.com/xenking/oolio-fulfillment/internal/domain/pricing"
	"github.com/xenking/oolio-fulfillment/internal/domain/shipping"
)

// Status is the terminal state of a PlaceOrder call.
type Status string

const (
	StatusInsufficientStock Status = "insufficient_stock"
	StatusLoyaltyFailed     Status = "loyalty_failed"
	StatusBlocked           Status = "blocked"
	StatusManualReview      Status = "manual_review"
	StatusPaymentFailed     Status = "payment_failed"
	StatusFulfilled         Status = "fulfilled"
)

// ReasonNotEnoughInventory accompanies StatusInsufficientStock.
const ReasonNotEnoughInventory = "not_enough_inventory"

// Order is a request to buy Quantity units of a single SKU.
type Order struct {
	// OrderID keys the shipping label. A new id is assigned when empty.
	OrderID        string
	SKU            string
	Quantity       int
	AccountID      string
	// Region defaults to "US" and ShippingMethod to "standard" when empty.
	Region         string
	CouponCode     string
	ShippingMethod string
	// ShippingAddress is optional; no label is issued without it.
	ShippingAddress *shipping.Address
	// LoyaltyPointsToApply is redeemed before pricing when positive.
	LoyaltyPointsToApply int
}

// Result is the outcome of PlaceOrder. Pricing is set once pricing ran;
// Label only for fulfilled orders with an address.
type Result struct {
	Status               Status
	OrderID              string
	Pricing              *pricing.Breakdown
	Label                *shipping.Label
	Reason               string
	LoyaltyPointsAwarded int
}

// PaymentGateway captures funds. Any error is treated as a decline.
type PaymentGateway interface {
	Charge(ctx context.Context, accountID string, amount decimal.Decimal) error
}

// Refunder is optionally implemented by a PaymentGateway so that a charge
// can be reversed when a later stage fails.
type Refunder interface {
	Refund(ctx context.Context, accountID string, amount decimal.Decimal) error
}

// Inventory is the stock ledger used by the order flow.
type Inventory interface {
	HasEnough(sku string, quantity int) bool
	Remove(sku string, quantity int) error
	Add(sku string, quantity int) error
}

// Pricer prices a single order line.
type Pricer interface {
	Calculate(ctx context.Context, req pricing.Request) (*pricing.Breakdown, error)
}

// Shipper issues shipping labels.
type Shipper interface {
	CreateLabel(ctx context.Context, req shipping.LabelRequest) (*shipping.Label, error)
}

// RiskScorer assesses fraud risk.
type RiskScorer interface {
	Score(total decimal.Decimal, region string) fraud.Assessment
}

// Loyalty is the points ledger used by the order flow.
type Loyalty interface {
	Redeem(accountID string, points int) (decimal.Decimal, error)
	Restore(accountID string, points int)
	Accrue(accountID string, total decimal.Decimal) int
}

// Auditor records audit events.
type Auditor interface {
	Record(ctx context.Context, event, accountID, sku, details string) audit.Entry
}
