package returns

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-fulfillment/internal/domain/audit"
	"github.com/xenking/oolio-fulfillment/internal/domain/pricing"
	"github.com/xenking/oolio-fulfillment/internal/domain/shipping"
)

// Status is the terminal outcome of a return.
type Status string

const (
	StatusRejected      Status = "rejected"
	StatusPaymentFailed Status = "payment_failed"
	StatusRefunded      Status = "refunded"
)

// ReasonInvalidQuantity is reported for non-positive return quantities.
const ReasonInvalidQuantity = "invalid_quantity"

// Request asks to send back units of a previously placed order.
type Request struct {
	AccountID       string
	OrderID         string
	SKU             string
	Quantity        int
	Region          string
	Reason          string
	ShippingAddress shipping.Address
}

// Result describes how a return settled. Refund is set once pricing
// succeeded, Label once the return label was issued.
type Result struct {
	Status Status
	Refund *pricing.Breakdown
	Label  *shipping.Label
	Reason string
}

// RefundGateway sends money back to a customer.
type RefundGateway interface {
	Refund(ctx context.Context, accountID string, amount decimal.Decimal) error
}

// Inventory receives returned stock.
type Inventory interface {
	Add(sku string, quantity int) error
}

// Pricer recomputes the refund basis.
type Pricer interface {
	Calculate(ctx context.Context, req pricing.Request) (*pricing.Breakdown, error)
}

// Shipper issues return labels.
type Shipper interface {
	CreateLabel(ctx context.Context, req shipping.LabelRequest) (*shipping.Label, error)
}

// Loyalty takes back points awarded for the returned goods.
type Loyalty interface {
	Clawback(accountID string, points int)
}

// Auditor records the processed return.
type Auditor interface {
	Record(ctx context.Context, event, accountID, sku, details string) audit.Entry
}
