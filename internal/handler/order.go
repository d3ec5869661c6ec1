package handler

import (
	"net/http"

	"github.com/xenking/oolio-fulfillment/internal/domain/order"
	"github.com/xenking/oolio-fulfillment/internal/domain/returns"
)

// PlaceOrder handles POST /orders. Every business outcome, including
// declines and fraud holds, is a 200 with the status in the body.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decode(w, r, &req) {
		return
	}
	if req.AccountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	res, err := h.orders.PlaceOrder(r.Context(), order.Order{
		OrderID:              req.OrderID,
		SKU:                  req.SKU,
		Quantity:             req.Quantity,
		AccountID:            req.AccountID,
		Region:               req.Region,
		CouponCode:           req.CouponCode,
		ShippingMethod:       req.ShippingMethod,
		ShippingAddress:      req.ShippingAddress,
		LoyaltyPointsToApply: req.LoyaltyPointsToApply,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, orderResponse{
		Status:               string(res.Status),
		OrderID:              res.OrderID,
		Reason:               res.Reason,
		Pricing:              toPricing(res.Pricing),
		Label:                toLabel(res.Label),
		LoyaltyPointsAwarded: res.LoyaltyPointsAwarded,
	})
}

// ProcessReturn handles POST /returns.
func (h *Handler) ProcessReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if !decode(w, r, &req) {
		return
	}
	if req.AccountID == "" || req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "account_id and order_id are required")
		return
	}

	res, err := h.returns.Process(r.Context(), returns.Request{
		AccountID:       req.AccountID,
		OrderID:         req.OrderID,
		SKU:             req.SKU,
		Quantity:        req.Quantity,
		Region:          req.Region,
		Reason:          req.Reason,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, returnResponse{
		Status: string(res.Status),
		Reason: res.Reason,
		Refund: toPricing(res.Refund),
		Label:  toLabel(res.Label),
	})
}
