package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-fulfillment/internal/domain/money"
)

// tier is a quantity breakpoint. Tiers are checked from the highest
// threshold down and the first match wins.
type tier struct {
	minQty int
	value  decimal.Decimal
}

var (
	bulkDiscountTiers = []tier{
		{minQty: 20, value: decimal.RequireFromString("0.15")},
		{minQty: 10, value: decimal.RequireFromString("0.12")},
		{minQty: 5, value: decimal.RequireFromString("0.07")},
	}
	bulkShippingTiers = []tier{
		{minQty: 20, value: decimal.RequireFromString("6.00")},
		{minQty: 10, value: decimal.RequireFromString("3.00")},
	}
	baseShippingFees = map[string]decimal.Decimal{
		MethodStandard: decimal.RequireFromString("5.00"),
		MethodExpress:  decimal.RequireFromString("12.00"),
	}
)

func lookupTier(tiers []tier, qty int) decimal.Decimal {
	for _, t := range tiers {
		if qty >= t.minQty {
			return t.value
		}
	}
	return decimal.Zero
}

// BulkDiscountRate returns the bulk discount rate for qty units.
func BulkDiscountRate(qty int) decimal.Decimal {
	return lookupTier(bulkDiscountTiers, qty)
}

// BulkDiscount returns the bulk discount on subtotal, rounded to cents.
func BulkDiscount(subtotal decimal.Decimal, qty int) decimal.Decimal {
	return money.Round(money.Float(subtotal)*money.Float(BulkDiscountRate(qty)), money.Cents)
}

// BulkShippingSurcharge returns the extra shipping fee for large orders.
func BulkShippingSurcharge(qty int) decimal.Decimal {
	return lookupTier(bulkShippingTiers, qty)
}

// BaseShippingFee returns the flat fee for method. Unknown methods are free.
func BaseShippingFee(method string) decimal.Decimal {
	if fee, ok := baseShippingFees[method]; ok {
		return fee
	}
	return decimal.Zero
}
