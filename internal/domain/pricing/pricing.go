package pricing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-fulfillment/internal/domain/catalog"
	"github.com/xenking/oolio-fulfillment/internal/domain/money"
	"github.com/xenking/oolio-fulfillment/internal/domain/promotion"
	"github.com/xenking/oolio-fulfillment/internal/domain/tax"
)

// Shipping methods with a known base fee.
const (
	MethodStandard = "standard"
	MethodExpress  = "express"
)

// DefaultRegion is used when a request does not name one.
const DefaultRegion = "US"

// ErrInvalidQuantity is returned for non-positive quantities.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// Request describes a single-line pricing query.
type Request struct {
	SKU            string
	Quantity       int
	Region         string
	CouponCode     string
	ShippingMethod string
	// LoyaltyCredit is subtracted from the final total when positive.
	LoyaltyCredit decimal.Decimal
}

// Breakdown is the full price of a request. Discount, Tax and Total are
// rounded to cents; Subtotal and Shipping are left unrounded.
type Breakdown struct {
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	Shipping      decimal.Decimal
	Total         decimal.Decimal
	CouponApplied string
	Reason        string
}

// EffectiveSubtotal is the subtotal after discounts, floored at zero.
func (b *Breakdown) EffectiveSubtotal() decimal.Decimal {
	return floorAtZero(b.Subtotal.Sub(b.Discount))
}

// Service prices orders from catalog, promotion and tax rules.
type Service struct {
	catalog    catalog.Repository
	promotions *promotion.Engine
	tax        *tax.Calculator
}

// NewService creates a pricing Service.
func NewService(products catalog.Repository, promotions *promotion.Engine, taxes *tax.Calculator) *Service {
	return &Service{
		catalog:    products,
		promotions: promotions,
		tax:        taxes,
	}
}

// Calculate prices req. It fails with ErrInvalidQuantity for non-positive
// quantities and with catalog.ErrNotFound for unknown SKUs.
func (s *Service) Calculate(ctx context.Context, req Request) (*Breakdown, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.Region == "" {
		req.Region = DefaultRegion
	}
	if req.ShippingMethod == "" {
		req.ShippingMethod = MethodStandard
	}

	p, err := s.catalog.Get(ctx, req.SKU)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "get product")
	}

	price := money.Float(p.Price)
	qty := float64(req.Quantity)
	subtotal := float64(price * qty)

	promo := s.promotions.ApplyCoupon(p, req.Quantity, req.CouponCode)
	categoryDiscount := float64(money.Float(s.promotions.CategoryDiscount(p)) * qty)
	bulkDiscount := money.Float(BulkDiscount(money.FromFloat(subtotal), req.Quantity))
	discount := money.Float(promo.Discount) + categoryDiscount + bulkDiscount

	shipping := 0.0
	if !promo.FreeShipping {
		shipping = money.Float(BaseShippingFee(req.ShippingMethod)) + money.Float(BulkShippingSurcharge(req.Quantity))
	}

	taxable := max(subtotal-discount, 0) + shipping
	taxes := s.tax.Calculate(money.FromFloat(taxable), req.Region, p.Category)
	taxAmount := money.Float(taxes.Amount)

	total := taxable + taxAmount
	if req.LoyaltyCredit.IsPositive() {
		total = max(total-money.Float(req.LoyaltyCredit), 0)
	}

	return &Breakdown{
		Subtotal:      money.FromFloat(subtotal),
		Discount:      money.Round(discount, money.Cents),
		Tax:           money.Round(taxAmount, money.Cents),
		Shipping:      money.FromFloat(shipping),
		Total:         money.Round(total, money.Cents),
		CouponApplied: promo.AppliedCode,
		Reason:        promo.Reason,
	}, nil
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
