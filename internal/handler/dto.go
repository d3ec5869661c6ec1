package handler

import (
	"github.com/xenking/oolio-fulfillment/internal/domain/catalog"
	"github.com/xenking/oolio-fulfillment/internal/domain/pricing"
	"github.com/xenking/oolio-fulfillment/internal/domain/shipping"
)

type orderRequest struct {
	OrderID              string            `json:"order_id"`
	SKU                  string            `json:"sku"`
	Quantity             int               `json:"quantity"`
	AccountID            string            `json:"account_id"`
	Region               string            `json:"region"`
	CouponCode           string            `json:"coupon_code"`
	ShippingMethod       string            `json:"shipping_method"`
	ShippingAddress      *shipping.Address `json:"shipping_address"`
	LoyaltyPointsToApply int               `json:"loyalty_points_to_apply"`
}

type orderResponse struct {
	Status               string           `json:"status"`
	OrderID              string           `json:"order_id"`
	Reason               string           `json:"reason,omitempty"`
	Pricing              *pricingResponse `json:"pricing,omitempty"`
	Label                *labelResponse   `json:"label,omitempty"`
	LoyaltyPointsAwarded int              `json:"loyalty_points_awarded"`
}

type returnRequest struct {
	AccountID       string           `json:"account_id"`
	OrderID         string           `json:"order_id"`
	SKU             string           `json:"sku"`
	Quantity        int              `json:"quantity"`
	Region          string           `json:"region"`
	Reason          string           `json:"reason"`
	ShippingAddress shipping.Address `json:"shipping_address"`
}

type returnResponse struct {
	Status string           `json:"status"`
	Reason string           `json:"reason,omitempty"`
	Refund *pricingResponse `json:"refund,omitempty"`
	Label  *labelResponse   `json:"label,omitempty"`
}

// pricingResponse renders money as JSON numbers. Amounts are already
// rounded to cents.
type pricingResponse struct {
	Subtotal      float64 `json:"subtotal"`
	Discount      float64 `json:"discount"`
	Tax           float64 `json:"tax"`
	Shipping      float64 `json:"shipping"`
	Total         float64 `json:"total"`
	CouponApplied string  `json:"coupon_applied,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

type labelResponse struct {
	OrderID        string           `json:"order_id"`
	Carrier        string           `json:"carrier"`
	Method         string           `json:"method"`
	TrackingNumber string           `json:"tracking_number"`
	Cost           float64          `json:"cost"`
	Address        shipping.Address `json:"address"`
}

type productResponse struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	WeightKg float64 `json:"weight_kg"`
	Category string  `json:"category"`
	Fragile  bool    `json:"fragile"`
}

type stockRequest struct {
	Quantity int `json:"quantity"`
}

type stockResponse struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type loyaltyResponse struct {
	AccountID string `json:"account_id"`
	Balance   int    `json:"balance"`
}

func toPricing(b *pricing.Breakdown) *pricingResponse {
	if b == nil {
		return nil
	}
	return &pricingResponse{
		Subtotal:      b.Subtotal.InexactFloat64(),
		Discount:      b.Discount.InexactFloat64(),
		Tax:           b.Tax.InexactFloat64(),
		Shipping:      b.Shipping.InexactFloat64(),
		Total:         b.Total.InexactFloat64(),
		CouponApplied: b.CouponApplied,
		Reason:        b.Reason,
	}
}

func toLabel(l *shipping.Label) *labelResponse {
	if l == nil {
		return nil
	}
	return &labelResponse{
		OrderID:        l.OrderID,
		Carrier:        l.Carrier,
		Method:         l.Method,
		TrackingNumber: l.TrackingNumber,
		Cost:           l.Cost.InexactFloat64(),
		Address:        l.Address,
	}
}

func toProduct(p catalog.Product) productResponse {
	return productResponse{
		SKU:      p.SKU,
		Name:     p.Name,
		Price:    p.Price.InexactFloat64(),
		WeightKg: p.WeightKg.InexactFloat64(),
		Category: p.Category,
		Fragile:  p.Fragile,
	}
}
