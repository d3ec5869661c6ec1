// Package handler exposes the fulfillment services over HTTP.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/oolio-fulfillment/internal/domain/catalog"
	"github.com/xenking/oolio-fulfillment/internal/domain/order"
	"github.com/xenking/oolio-fulfillment/internal/domain/returns"
	"github.com/xenking/oolio-fulfillment/internal/domain/shipping"
)

// OrderPlacer runs the order flow.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, o order.Order) (*order.Result, error)
}

// ReturnProcessor runs the return flow.
type ReturnProcessor interface {
	Process(ctx context.Context, req returns.Request) (*returns.Result, error)
}

// Stock reads and replenishes inventory.
type Stock interface {
	Quantity(sku string) int
	Snapshot() map[string]int
	Add(sku string, quantity int) error
}

// Points reads loyalty balances.
type Points interface {
	Balance(accountID string) int
}

// Labels looks up issued shipping labels.
type Labels interface {
	Label(orderID string) (*shipping.Label, bool)
}

// AuditExporter streams the audit trail.
type AuditExporter interface {
	Export(w io.Writer) error
}

// Deps are the services the Handler delegates to.
type Deps struct {
	Products  catalog.Repository
	Orders    OrderPlacer
	Returns   ReturnProcessor
	Inventory Stock
	Loyalty   Points
	Labels    Labels
	Audit     AuditExporter
}

// Handler serves the /api routes.
type Handler struct {
	products  catalog.Repository
	orders    OrderPlacer
	returns   ReturnProcessor
	inventory Stock
	loyalty   Points
	labels    Labels
	audit     AuditExporter
}

// NewHandler constructs a Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		products:  d.Products,
		orders:    d.Orders,
		returns:   d.Returns,
		inventory: d.Inventory,
		loyalty:   d.Loyalty,
		labels:    d.Labels,
		audit:     d.Audit,
	}
}

// Routes returns the API router. Paths are relative to the mount point.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/orders", h.PlaceOrder)
	r.Post("/returns", h.ProcessReturn)

	r.Get("/products", h.ListProducts)
	r.Get("/products/{sku}", h.GetProduct)

	r.Get("/inventory", h.ListStock)
	r.Get("/inventory/{sku}", h.GetStock)
	r.Post("/inventory/{sku}", h.AddStock)

	r.Get("/loyalty/{account}", h.GetLoyalty)
	r.Get("/labels/{orderID}", h.GetLabel)
	r.Get("/audit", h.ExportAudit)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}
