package handler

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/oolio-fulfillment/internal/domain/catalog"
)

// ListProducts handles GET /products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProduct(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetProduct handles GET /products/{sku}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), chi.URLParam(r, "sku"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(*p))
}

// ListStock handles GET /inventory, ordered by sku.
func (h *Handler) ListStock(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.inventory.Snapshot()
	out := make([]stockResponse, 0, len(snapshot))
	for sku, qty := range snapshot {
		out = append(out, stockResponse{SKU: sku, Quantity: qty})
	}
	slices.SortFunc(out, func(a, b stockResponse) int {
		return strings.Compare(a.SKU, b.SKU)
	})
	writeJSON(w, http.StatusOK, out)
}

// GetStock handles GET /inventory/{sku}. Unknown SKUs report zero.
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	writeJSON(w, http.StatusOK, stockResponse{SKU: sku, Quantity: h.inventory.Quantity(sku)})
}

// AddStock handles POST /inventory/{sku}.
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if !decode(w, r, &req) {
		return
	}

	sku := chi.URLParam(r, "sku")
	if err := h.inventory.Add(sku, req.Quantity); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{SKU: sku, Quantity: h.inventory.Quantity(sku)})
}

// GetLoyalty handles GET /loyalty/{account}.
func (h *Handler) GetLoyalty(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	writeJSON(w, http.StatusOK, loyaltyResponse{AccountID: account, Balance: h.loyalty.Balance(account)})
}

// GetLabel handles GET /labels/{orderID}.
func (h *Handler) GetLabel(w http.ResponseWriter, r *http.Request) {
	l, ok := h.labels.Label(chi.URLParam(r, "orderID"))
	if !ok {
		writeError(w, http.StatusNotFound, "label not found")
		return
	}
	writeJSON(w, http.StatusOK, toLabel(l))
}
