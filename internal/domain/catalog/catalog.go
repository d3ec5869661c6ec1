package catalog

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// CategoryHardware is the category that earns the per-unit hardware discount
// and the elevated US tax rate.
const CategoryHardware = "hardware"

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// NotFoundError reports the SKU that could not be resolved.
type NotFoundError struct {
	SKU string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown product: %s", e.SKU)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// Product represents a catalog item available for purchase.
type Product struct {
	SKU      string
	Name     string
	Price    decimal.Decimal
	WeightKg decimal.Decimal
	Category string
	Fragile  bool
}

// Repository defines read operations for the product catalog.
type Repository interface {
	Get(ctx context.Context, sku string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
}
