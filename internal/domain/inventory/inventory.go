// Package inventory tracks on-hand stock per SKU.
//
// All mutations run under a single lock so that the check-then-decrement in
// Remove and ReserveWithBuffer is atomic with respect to concurrent callers.
package inventory

import (
	"fmt"
	"maps"
	"sync"

	"github.com/go-faster/errors"
)

var (
	// ErrInsufficientStock is returned when a removal exceeds on-hand stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity is returned when adding a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// InsufficientStockError describes a failed removal.
type InsufficientStockError struct {
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Item is a point-in-time stock level.
type Item struct {
	SKU      string
	Quantity int
}

// Store is an in-memory stock ledger. Quantities never go negative.
type Store struct {
	mu    sync.Mutex
	items map[string]int
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{items: make(map[string]int)}
}

// Add creates or increments the stock for sku.
func (s *Store) Add(sku string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[sku] += quantity
	return nil
}

// Remove decrements stock for sku, failing with *InsufficientStockError when
// fewer than quantity units are on hand.
func (s *Store) Remove(sku string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	available, ok := s.items[sku]
	if !ok || available < quantity {
		return &InsufficientStockError{SKU: sku, Requested: quantity, Available: available}
	}
	s.items[sku] = available - quantity
	return nil
}

// ReserveWithBuffer decrements stock by quantity only if quantity plus the
// safety buffer is on hand. The buffer is a check margin and is not
// reserved itself. It reports whether the reservation happened.
func (s *Store) ReserveWithBuffer(sku string, quantity, buffer int) bool {
	required := quantity + max(buffer, 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	available, ok := s.items[sku]
	if !ok || available < required {
		return false
	}
	s.items[sku] = available - quantity
	return true
}

// HasEnough reports whether at least quantity units of sku are on hand.
// Unknown SKUs never have enough, even for a zero quantity.
func (s *Store) HasEnough(sku string, quantity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	available, ok := s.items[sku]
	return ok && available >= quantity
}

// Quantity returns the on-hand stock for sku, zero when unknown.
func (s *Store) Quantity(sku string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.items[sku]
}

// Snapshot returns a copy of all stock levels.
func (s *Store) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return maps.Clone(s.items)
}
