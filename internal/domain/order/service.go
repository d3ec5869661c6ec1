package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xenking/oolio-fulfillment/internal/domain/audit"
	"github.com/xenking/oolio-fulfillment/internal/domain/money"
	"github.com/xenking/oolio-fulfillment/internal/domain/pricing"
	"github.com/xenking/oolio-fulfillment/internal/domain/shipping"
)

const instrumentationName = "github.com/xenking/oolio-fulfillment/internal/domain/order"

// Config holds non-dependency configuration for the Service.
type Config struct {
	// SafetyStock is kept on hand beyond the ordered quantity. Negative
	// values are treated as zero.
	SafetyStock int
	// NewID generates order ids. Defaults to random UUIDs.
	NewID          func() string
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// Service runs the place-order flow: stock check, loyalty redemption,
// pricing, fraud screening, payment, stock decrement, label issuance,
// loyalty accrual and audit.
type Service struct {
	inventory Inventory
	payments  PaymentGateway
	pricing   Pricer
	shipping  Shipper
	fraud     RiskScorer
	loyalty   Loyalty
	audit     Auditor

	safetyStock int
	newID       func() string
	tracer      trace.Tracer
	orders      metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	cfg Config,
	inventory Inventory,
	payments PaymentGateway,
	pricer Pricer,
	shipper Shipper,
	scorer RiskScorer,
	loyalty Loyalty,
	auditor Auditor,
) *Service {
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}

	orders, err := cfg.MeterProvider.Meter(instrumentationName).Int64Counter("fulfillment.orders",
		metric.WithDescription("Orders placed, by terminal status"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return &Service{
		inventory:   inventory,
		payments:    payments,
		pricing:     pricer,
		shipping:    shipper,
		fraud:       scorer,
		loyalty:     loyalty,
		audit:       auditor,
		safetyStock: max(cfg.SafetyStock, 0),
		newID:       cfg.NewID,
		tracer:      cfg.TracerProvider.Tracer(instrumentationName),
		orders:      orders,
	}
}

// PlaceOrder attempts to fulfil o. Business outcomes are reported through
// Result.Status; an error means a hard failure (unknown SKU, non-positive
// quantity, or a stage failing after payment) and every side effect already
// applied has been reversed.
func (s *Service) PlaceOrder(ctx context.Context, o Order) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder", trace.WithAttributes(
		attribute.String("order.sku", o.SKU),
		attribute.Int("order.quantity", o.Quantity),
		attribute.String("order.account_id", o.AccountID),
	))
	defer span.End()

	if o.OrderID == "" {
		o.OrderID = s.newID()
	}
	// Every stage sees the same region and method, including fraud
	// scoring and label creation.
	if o.Region == "" {
		o.Region = pricing.DefaultRegion
	}
	if o.ShippingMethod == "" {
		o.ShippingMethod = shipping.MethodStandard
	}
	lg := zctx.From(ctx).With(
		zap.String("order_id", o.OrderID),
		zap.String("account_id", o.AccountID),
		zap.String("sku", o.SKU),
	)

	res, err := s.placeOrder(ctx, lg, o)
	if err != nil {
		span.RecordError(err)
		lg.Error("Order failed", zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.String("order.status", string(res.Status)))
	if s.orders != nil {
		s.orders.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(res.Status))))
	}
	lg.Info("Order settled",
		zap.String("status", string(res.Status)),
		zap.String("reason", res.Reason),
	)
	return res, nil
}

func (s *Service) placeOrder(ctx context.Context, lg *zap.Logger, o Order) (*Result, error) {
	if !s.inventory.HasEnough(o.SKU, o.Quantity+s.safetyStock) {
		return &Result{
			Status:  StatusInsufficientStock,
			OrderID: o.OrderID,
			Reason:  ReasonNotEnoughInventory,
		}, nil
	}

	var sg saga

	credit := decimal.Zero
	if o.LoyaltyPointsToApply != 0 {
		c, err := s.loyalty.Redeem(o.AccountID, o.LoyaltyPointsToApply)
		if err != nil {
			return &Result{
				Status:  StatusLoyaltyFailed,
				OrderID: o.OrderID,
				Reason:  err.Error(),
			}, nil
		}
		credit = c
		points := o.LoyaltyPointsToApply
		sg.done("loyalty_redeem", func(context.Context) error {
			s.loyalty.Restore(o.AccountID, points)
			return nil
		})
	}

	quote, err := s.pricing.Calculate(ctx, pricing.Request{
		SKU:            o.SKU,
		Quantity:       o.Quantity,
		Region:         o.Region,
		CouponCode:     o.CouponCode,
		ShippingMethod: o.ShippingMethod,
		LoyaltyCredit:  credit,
	})
	if err != nil {
		return nil, s.abort(ctx, lg, o, &sg, errors.Wrap(err, "calculate pricing"))
	}

	risk := s.fraud.Score(quote.Total, o.Region)
	switch {
	case risk.Blocked():
		s.audit.Record(ctx, audit.EventOrderBlocked, o.AccountID, o.SKU, reasonOr(risk.Reason, "blocked"))
		s.rollback(ctx, lg, o, &sg)
		return &Result{Status: StatusBlocked, OrderID: o.OrderID, Pricing: quote, Reason: risk.Reason}, nil
	case risk.NeedsReview():
		s.audit.Record(ctx, audit.EventOrderReview, o.AccountID, o.SKU, reasonOr(risk.Reason, "review"))
		s.rollback(ctx, lg, o, &sg)
		return &Result{Status: StatusManualReview, OrderID: o.OrderID, Pricing: quote, Reason: risk.Reason}, nil
	}

	if err := s.payments.Charge(ctx, o.AccountID, quote.Total); err != nil {
		s.audit.Record(ctx, audit.EventPaymentFailed, o.AccountID, o.SKU, err.Error())
		s.rollback(ctx, lg, o, &sg)
		return &Result{Status: StatusPaymentFailed, OrderID: o.OrderID, Pricing: quote, Reason: err.Error()}, nil
	}
	if refunder, ok := s.payments.(Refunder); ok {
		sg.done("payment_charge", func(ctx context.Context) error {
			return refunder.Refund(ctx, o.AccountID, quote.Total)
		})
	}

	if err := s.inventory.Remove(o.SKU, o.Quantity); err != nil {
		return nil, s.abort(ctx, lg, o, &sg, errors.Wrap(err, "remove stock"))
	}
	sg.done("inventory_remove", func(context.Context) error {
		return s.inventory.Add(o.SKU, o.Quantity)
	})

	var label *shipping.Label
	if o.ShippingAddress != nil {
		label, err = s.shipping.CreateLabel(ctx, shipping.LabelRequest{
			OrderID: o.OrderID,
			Address: *o.ShippingAddress,
			Method:  o.ShippingMethod,
		})
		if err != nil {
			return nil, s.abort(ctx, lg, o, &sg, errors.Wrap(err, "create label"))
		}
	}

	awarded := s.loyalty.Accrue(o.AccountID, quote.Total)
	s.audit.Record(ctx, audit.EventOrderFulfilled, o.AccountID, o.SKU,
		fmt.Sprintf("charged=%s, points_awarded=%d", money.Format(quote.Total), awarded),
	)

	return &Result{
		Status:               StatusFulfilled,
		OrderID:              o.OrderID,
		Pricing:              quote,
		Label:                label,
		LoyaltyPointsAwarded: awarded,
	}, nil
}

// rollback reverses applied side effects after a graceful terminal outcome.
// Compensation failures are logged; the outcome itself stands.
func (s *Service) rollback(ctx context.Context, lg *zap.Logger, o Order, sg *saga) {
	if sg.empty() {
		return
	}
	undone, err := sg.unwind(ctx)
	s.audit.Record(ctx, audit.EventOrderCompensated, o.AccountID, o.SKU, describe(undone))
	if err != nil {
		lg.Error("Compensation failed", zap.Error(err))
		return
	}
	lg.Warn("Order compensated", zap.Strings("undone", undone))
}

// abort reverses applied side effects after a hard failure and returns the
// failure, joined with any compensation errors.
func (s *Service) abort(ctx context.Context, lg *zap.Logger, o Order, sg *saga, cause error) error {
	if sg.empty() {
		return cause
	}
	undone, err := sg.unwind(ctx)
	s.audit.Record(ctx, audit.EventOrderCompensated, o.AccountID, o.SKU, describe(undone))
	lg.Warn("Order aborted", zap.Strings("undone", undone), zap.Error(cause))
	if err != nil {
		return multierr.Combine(cause, err)
	}
	return cause
}

func reasonOr(reason, fallback string) string {
	if reason == "" {
		return fallback
	}
	return reason
}
