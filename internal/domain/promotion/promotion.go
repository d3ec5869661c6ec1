package promotion

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-fulfillment/internal/domain/catalog"
	"github.com/xenking/oolio-fulfillment/internal/domain/money"
)

// Recognised coupon codes, matched case-insensitively.
const (
	CodeSave10   = "save10"
	CodeFreeShip = "freeship"
	CodeBOGO     = "bogo"
)

// ReasonNotApplied is reported when a non-empty coupon code did not qualify.
const ReasonNotApplied = "coupon_not_applied"

const (
	bogoMinItems = 2
	save10Rate   = 0.10
	save10Cap    = 25.0
	hardwareRate = 0.05
)

// Result holds the outcome of evaluating a coupon against a line.
type Result struct {
	Discount     decimal.Decimal
	FreeShipping bool
	// AppliedCode is the code as supplied by the caller, set only when it
	// qualified.
	AppliedCode string
	Reason      string
}

// Engine evaluates coupon codes and category promotions.
type Engine struct{}

// NewEngine returns a promotion Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// ApplyCoupon evaluates code against quantity units of p. Unknown or
// ineligible codes are not an error; they yield a zero discount with
// ReasonNotApplied.
func (e *Engine) ApplyCoupon(p *catalog.Product, quantity int, code string) Result {
	if code == "" {
		return Result{Discount: decimal.Zero}
	}

	switch strings.ToLower(code) {
	case CodeSave10:
		discount := min(float64(money.Float(p.Price)*float64(quantity))*save10Rate, save10Cap)
		return Result{Discount: money.Round(discount, money.Cents), AppliedCode: code}
	case CodeFreeShip:
		return Result{Discount: decimal.Zero, FreeShipping: true, AppliedCode: code}
	case CodeBOGO:
		if quantity >= bogoMinItems {
			// One unit free, regardless of how many are bought.
			return Result{Discount: p.Price, AppliedCode: code}
		}
	}

	return Result{Discount: decimal.Zero, Reason: ReasonNotApplied}
}

// CategoryDiscount returns the per-unit category promotion for p.
func (e *Engine) CategoryDiscount(p *catalog.Product) decimal.Decimal {
	if p.Category == catalog.CategoryHardware {
		return money.Round(money.Float(p.Price)*hardwareRate, money.Cents)
	}
	return decimal.Zero
}
