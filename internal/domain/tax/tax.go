// Package tax resolves regional tax rates and computes tax amounts.
package tax

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-fulfillment/internal/domain/money"
)

// DefaultCategory is the fallback key within a region's rate table.
const DefaultCategory = "default"

// Rates maps region to category to rate.
type Rates map[string]map[string]decimal.Decimal

// DefaultRates returns the built-in regional rate table.
func DefaultRates() Rates {
	return Rates{
		"US": {
			DefaultCategory: decimal.RequireFromString("0.07"),
			"hardware":      decimal.RequireFromString("0.08"),
		},
		"EU": {DefaultCategory: decimal.RequireFromString("0.20")},
		"UK": {DefaultCategory: decimal.RequireFromString("0.17")},
	}
}

// Breakdown is the outcome of a tax calculation. Amount is the float64
// product of amount and rate, not rounded.
type Breakdown struct {
	Rate     decimal.Decimal
	Amount   decimal.Decimal
	Region   string
	Category string
}

// Calculator computes tax from a fixed rate table.
type Calculator struct {
	rates Rates
}

// NewCalculator returns a Calculator backed by rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Rate looks up the rate for region and category. Unknown regions are taxed
// at zero; unknown categories fall back to the region's default rate.
func (c *Calculator) Rate(region, category string) decimal.Decimal {
	regional, ok := c.rates[region]
	if !ok {
		return decimal.Zero
	}
	if r, ok := regional[category]; ok {
		return r
	}
	return regional[DefaultCategory]
}

// Calculate applies the region/category rate to amount.
func (c *Calculator) Calculate(amount decimal.Decimal, region, category string) Breakdown {
	if category == "" {
		category = DefaultCategory
	}
	rate := c.Rate(region, category)
	return Breakdown{
		Rate:     rate,
		Amount:   money.FromFloat(money.Float(amount) * money.Float(rate)),
		Region:   region,
		Category: category,
	}
}
