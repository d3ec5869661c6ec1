package shipping

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Supported shipping methods.
const (
	MethodStandard = "standard"
	MethodExpress  = "express"
)

// DefaultCarrier is used when neither the request nor the service names one.
const DefaultCarrier = "DHL"

// ErrUnsupportedMethod is returned for shipping methods other than standard
// and express.
var ErrUnsupportedMethod = errors.New("unsupported shipping method")

// UnsupportedMethodError names the rejected method.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported shipping method: %s", e.Method)
}

func (e *UnsupportedMethodError) Unwrap() error {
	return ErrUnsupportedMethod
}

var labelCosts = map[string]decimal.Decimal{
	MethodStandard: decimal.RequireFromString("5.00"),
	MethodExpress:  decimal.RequireFromString("12.00"),
}

// Address is a postal destination.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Label is an issued shipping label.
type Label struct {
	OrderID        string
	Carrier        string
	Method         string
	TrackingNumber string
	Address        Address
	Cost           decimal.Decimal
}

// LabelRequest holds the input for CreateLabel.
type LabelRequest struct {
	OrderID string
	Address Address
	Method  string
	// Carrier overrides the service default when set.
	Carrier string
}

// Service issues labels and remembers the latest one per order.
type Service struct {
	carrier string

	mu     sync.RWMutex
	issued map[string]Label
}

// NewService returns a Service that uses carrier by default. An empty
// carrier falls back to DefaultCarrier.
func NewService(carrier string) *Service {
	if carrier == "" {
		carrier = DefaultCarrier
	}
	return &Service{
		carrier: carrier,
		issued:  make(map[string]Label),
	}
}

// IsSupported reports whether method can be shipped.
func IsSupported(method string) bool {
	_, ok := labelCosts[method]
	return ok
}

// CreateLabel issues a label for req.OrderID. Issuing again for the same
// order replaces the stored label; tracking numbers are derived from the
// carrier and order id, so they repeat.
func (s *Service) CreateLabel(_ context.Context, req LabelRequest) (*Label, error) {
	cost, ok := labelCosts[req.Method]
	if !ok {
		return nil, &UnsupportedMethodError{Method: req.Method}
	}

	carrier := req.Carrier
	if carrier == "" {
		carrier = s.carrier
	}

	l := Label{
		OrderID:        req.OrderID,
		Carrier:        carrier,
		Method:         req.Method,
		TrackingNumber: fmt.Sprintf("%s-%s-TRACK", carrier, req.OrderID),
		Address:        req.Address,
		Cost:           cost,
	}

	s.mu.Lock()
	s.issued[req.OrderID] = l
	s.mu.Unlock()

	return &l, nil
}

// Label returns the most recently issued label for orderID.
func (s *Service) Label(orderID string) (*Label, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.issued[orderID]
	if !ok {
		return nil, false
	}
	return &l, true
}
