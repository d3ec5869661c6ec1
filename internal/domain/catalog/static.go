package catalog

import (
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

var _ Repository = (*Static)(nil)

// Static is a read-only in-memory catalog. Products are copied on
// construction and never mutated afterwards.
type Static struct {
	products map[string]Product
}

// NewStatic builds a catalog from the given products. Later entries win on
// duplicate SKUs.
func NewStatic(products ...Product) *Static {
	m := make(map[string]Product, len(products))
	for _, p := range products {
		m[p.SKU] = p
	}
	return &Static{products: m}
}

// DefaultProducts returns the reference product set.
func DefaultProducts() []Product {
	return []Product{
		{
			SKU:      "widget-basic",
			Name:     "Basic Widget",
			Price:    decimal.RequireFromString("25.00"),
			WeightKg: decimal.RequireFromString("0.4"),
			Category: "widgets",
		},
		{
			SKU:      "widget-pro",
			Name:     "Pro Widget",
			Price:    decimal.RequireFromString("60.00"),
			WeightKg: decimal.RequireFromString("0.8"),
			Category: "widgets",
			Fragile:  true,
		},
		{
			SKU:      "bolt-pack",
			Name:     "Bolt Pack (100x)",
			Price:    decimal.RequireFromString("15.00"),
			WeightKg: decimal.RequireFromString("0.3"),
			Category: CategoryHardware,
		},
	}
}

// Get returns the product for sku, or a *NotFoundError.
func (s *Static) Get(_ context.Context, sku string) (*Product, error) {
	p, ok := s.products[sku]
	if !ok {
		return nil, &NotFoundError{SKU: sku}
	}
	return &p, nil
}

// List returns all products ordered by SKU.
func (s *Static) List(_ context.Context) ([]Product, error) {
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Product) int {
		return strings.Compare(a.SKU, b.SKU)
	})
	return out, nil
}
