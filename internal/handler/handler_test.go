package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/oolio-fulfillment/internal/domain/audit"
	"github.com/xenking/oolio-fulfillment/internal/domain/catalog"
	"github.com/xenking/oolio-fulfillment/internal/domain/fraud"
	"github.com/xenking/oolio-fulfillment/internal/domain/inventory"
	"github.com/xenking/oolio-fulfillment/internal/domain/loyalty"
	"github.com/xenking/oolio-fulfillment/internal/domain/order"
	"github.com/xenking/oolio-fulfillment/internal/domain/pricing"
	"github.com/xenking/oolio-fulfillment/internal/domain/promotion"
	"github.com/xenking/oolio-fulfillment/internal/domain/returns"
	"github.com/xenking/oolio-fulfillment/internal/domain/shipping"
	"github.com/xenking/oolio-fulfillment/internal/domain/tax"
	"github.com/xenking/oolio-fulfillment/internal/payment"
)

type testEnv struct {
	stock  *inventory.Store
	points *loyalty.Ledger
	log    *audit.Log
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	products := catalog.NewStatic(catalog.DefaultProducts()...)
	pricer := pricing.NewService(products, promotion.NewEngine(), tax.NewCalculator(tax.DefaultRates()))
	env := &testEnv{
		stock:  inventory.NewStore(),
		points: loyalty.NewLedger(),
		log:    audit.NewLog(),
	}
	labels := shipping.NewService(shipping.DefaultCarrier)
	payments := payment.NewSimulator(payment.SimulatorConfig{})

	h := NewHandler(Deps{
		Products: products,
		Orders: order.NewService(order.Config{}, env.stock, payments, pricer, labels,
			fraud.NewScorer(fraud.DefaultRegions()), env.points, env.log),
		Returns:   returns.NewService(returns.Config{}, env.stock, payments, pricer, labels, env.points, env.log),
		Inventory: env.stock,
		Loyalty:   env.points,
		Labels:    labels,
		Audit:     env.log,
	})
	env.router = h.Routes()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

const basicOrderJSON = `{
	"order_id": "ord-1",
	"sku": "widget-basic",
	"quantity": 1,
	"account_id": "A1",
	"region": "US",
	"shipping_method": "standard",
	"shipping_address": {"name": "Ada", "line1": "1 Main St", "city": "Springfield", "country": "US"}
}`

func TestPlaceOrder_Fulfilled(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.stock.Add("widget-basic", 1))

	w := env.do(t, http.MethodPost, "/orders", basicOrderJSON)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody[orderResponse](t, w)
	assert.Equal(t, "fulfilled", body.Status)
	assert.Equal(t, "ord-1", body.OrderID)
	require.NotNil(t, body.Pricing)
	assert.InDelta(t, 32.10, body.Pricing.Total, 1e-9)
	assert.Equal(t, 32, body.LoyaltyPointsAwarded)
	require.NotNil(t, body.Label)
	assert.Equal(t, "DHL-ord-1-TRACK", body.Label.TrackingNumber)
}

func TestPlaceOrder_BusinessOutcomeIs200(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/orders", basicOrderJSON)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody[orderResponse](t, w)
	assert.Equal(t, "insufficient_stock", body.Status)
	assert.Equal(t, order.ReasonNotEnoughInventory, body.Reason)
	assert.Nil(t, body.Pricing)
}

func TestPlaceOrder_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "malformed json", body: `{"sku":`, code: http.StatusBadRequest},
		{name: "unknown field", body: `{"sku":"widget-basic","bogus":1,"account_id":"A1"}`, code: http.StatusBadRequest},
		{name: "missing account", body: `{"sku":"widget-basic","quantity":1}`, code: http.StatusBadRequest},
		{name: "unknown sku", body: `{"sku":"ghost","quantity":1,"account_id":"A1"}`, code: http.StatusUnprocessableEntity},
		{name: "zero quantity", body: `{"sku":"widget-basic","quantity":0,"account_id":"A1"}`, code: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			require.NoError(t, env.stock.Add("widget-basic", 5))
			require.NoError(t, env.stock.Add("ghost", 5))

			w := env.do(t, http.MethodPost, "/orders", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())

			body := decodeBody[errorResponse](t, w)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

type brokenOrders struct{}

func (brokenOrders) PlaceOrder(context.Context, order.Order) (*order.Result, error) {
	return nil, errors.New("database is down")
}

func TestPlaceOrder_InternalError(t *testing.T) {
	h := NewHandler(Deps{Orders: brokenOrders{}})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"sku":"x","quantity":1,"account_id":"A1"}`))
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal error"}`, w.Body.String())
}

func TestProcessReturn(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.stock.Add("widget-basic", 1))
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/orders", basicOrderJSON).Code)

	w := env.do(t, http.MethodPost, "/returns", `{
		"account_id": "A1",
		"order_id": "ord-1",
		"sku": "widget-basic",
		"quantity": 1,
		"region": "US",
		"reason": "damaged",
		"shipping_address": {"name": "Ada", "line1": "1 Main St", "city": "Springfield", "country": "US"}
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody[returnResponse](t, w)
	assert.Equal(t, "refunded", body.Status)
	require.NotNil(t, body.Refund)
	assert.InDelta(t, 32.10, body.Refund.Total, 1e-9)
	assert.Equal(t, 1, env.stock.Quantity("widget-basic"))
	assert.Equal(t, 0, env.points.Balance("A1"))
}

func TestProcessReturn_Validation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/returns", `{"sku":"widget-basic","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/returns", `{"account_id":"A1","order_id":"o","sku":"widget-basic","quantity":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[returnResponse](t, w)
	assert.Equal(t, "rejected", body.Status)
	assert.Equal(t, returns.ReasonInvalidQuantity, body.Reason)
}

func TestProducts(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[[]productResponse](t, w)
	require.Len(t, list, 3)
	assert.Equal(t, "bolt-pack", list[0].SKU)
	assert.InDelta(t, 15.0, list[0].Price, 1e-9)

	w = env.do(t, http.MethodGet, "/products/widget-pro", "")
	require.Equal(t, http.StatusOK, w.Code)
	p := decodeBody[productResponse](t, w)
	assert.True(t, p.Fragile)

	w = env.do(t, http.MethodGet, "/products/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInventory(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/inventory/bolt-pack", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, stockResponse{SKU: "bolt-pack", Quantity: 0}, decodeBody[stockResponse](t, w))

	w = env.do(t, http.MethodPost, "/inventory/bolt-pack", `{"quantity": 12}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, stockResponse{SKU: "bolt-pack", Quantity: 12}, decodeBody[stockResponse](t, w))

	w = env.do(t, http.MethodPost, "/inventory/bolt-pack", `{"quantity": 0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 12, env.stock.Quantity("bolt-pack"))
}

func TestListStock(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/inventory", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []stockResponse{}, decodeBody[[]stockResponse](t, w))

	require.NoError(t, env.stock.Add("widget-pro", 2))
	require.NoError(t, env.stock.Add("bolt-pack", 7))

	w = env.do(t, http.MethodGet, "/inventory", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []stockResponse{
		{SKU: "bolt-pack", Quantity: 7},
		{SKU: "widget-pro", Quantity: 2},
	}, decodeBody[[]stockResponse](t, w))
}

func TestLoyaltyAndLabels(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.stock.Add("widget-basic", 1))

	w := env.do(t, http.MethodGet, "/labels/ord-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/orders", basicOrderJSON).Code)

	w = env.do(t, http.MethodGet, "/loyalty/A1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, loyaltyResponse{AccountID: "A1", Balance: 32}, decodeBody[loyaltyResponse](t, w))

	w = env.do(t, http.MethodGet, "/labels/ord-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	l := decodeBody[labelResponse](t, w)
	assert.Equal(t, "DHL", l.Carrier)
	assert.InDelta(t, 5.0, l.Cost, 1e-9)
}

func TestExportAudit(t *testing.T) {
	env := newTestEnv(t)
	env.log.Record(context.Background(), audit.EventOrderBlocked, "A1", "widget-pro", "unsupported_region")
	env.log.Record(context.Background(), audit.EventOrderFulfilled, "B2", "bolt-pack", "charged=16.2, points_awarded=16")

	t.Run("plain", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/audit", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
		assert.Empty(t, w.Header().Get("Content-Encoding"))

		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], `"event":"order_blocked"`)
	})

	t.Run("gzip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/audit", nil)
		req.Header.Set("Accept-Encoding", "gzip, deflate")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

		zr, err := pgzip.NewReader(bytes.NewReader(w.Body.Bytes()))
		require.NoError(t, err)
		raw, err := io.ReadAll(zr)
		require.NoError(t, err)
		require.NoError(t, zr.Close())

		lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[1], `"account_id":"B2"`)
	})
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":404,"message":"route not found"}`, w.Body.String())

	w = env.do(t, http.MethodDelete, "/orders", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
