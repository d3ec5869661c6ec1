package returns

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/oolio-fulfillment/internal/domain/audit"
	"github.com/xenking/oolio-fulfillment/internal/domain/loyalty"
	"github.com/xenking/oolio-fulfillment/internal/domain/pricing"
	"github.com/xenking/oolio-fulfillment/internal/domain/shipping"
)

const instrumentationName = "github.com/xenking/oolio-fulfillment/internal/domain/returns"

// Config holds optional telemetry providers.
type Config struct {
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// Service processes returns: it refunds a freshly priced amount, puts the
// units back into stock, claws back loyalty points and issues a return label.
type Service struct {
	inventory Inventory
	refunds   RefundGateway
	pricing   Pricer
	shipping  Shipper
	loyalty   Loyalty
	audit     Auditor

	tracer  trace.Tracer
	returns metric.Int64Counter
}

// NewService creates a returns Service.
func NewService(
	cfg Config,
	inventory Inventory,
	refunds RefundGateway,
	pricer Pricer,
	shipper Shipper,
	loyalty Loyalty,
	auditor Auditor,
) *Service {
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}

	returns, err := cfg.MeterProvider.Meter(instrumentationName).Int64Counter("fulfillment.returns",
		metric.WithDescription("Returns processed, by terminal status"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return &Service{
		inventory: inventory,
		refunds:   refunds,
		pricing:   pricer,
		shipping:  shipper,
		loyalty:   loyalty,
		audit:     auditor,
		tracer:    cfg.TracerProvider.Tracer(instrumentationName),
		returns:   returns,
	}
}

// Process settles req. Rejections and refund failures are reported through
// Result.Status; an error means a stage failed after the refund was sent.
func (s *Service) Process(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "returns.Process", trace.WithAttributes(
		attribute.String("return.order_id", req.OrderID),
		attribute.String("return.sku", req.SKU),
		attribute.Int("return.quantity", req.Quantity),
	))
	defer span.End()

	lg := zctx.From(ctx).With(
		zap.String("order_id", req.OrderID),
		zap.String("account_id", req.AccountID),
		zap.String("sku", req.SKU),
	)

	res, err := s.process(ctx, req)
	if err != nil {
		span.RecordError(err)
		lg.Error("Return failed", zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.String("return.status", string(res.Status)))
	if s.returns != nil {
		s.returns.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(res.Status))))
	}
	lg.Info("Return settled",
		zap.String("status", string(res.Status)),
		zap.String("reason", res.Reason),
	)
	return res, nil
}

func (s *Service) process(ctx context.Context, req Request) (*Result, error) {
	if req.Quantity <= 0 {
		return &Result{Status: StatusRejected, Reason: ReasonInvalidQuantity}, nil
	}

	refund, err := s.pricing.Calculate(ctx, pricing.Request{
		SKU:            req.SKU,
		Quantity:       req.Quantity,
		Region:         req.Region,
		ShippingMethod: shipping.MethodStandard,
	})
	if err != nil {
		return &Result{Status: StatusRejected, Reason: err.Error()}, nil
	}

	if err := s.refunds.Refund(ctx, req.AccountID, refund.Total); err != nil {
		return &Result{Status: StatusPaymentFailed, Refund: refund, Reason: err.Error()}, nil
	}

	if err := s.inventory.Add(req.SKU, req.Quantity); err != nil {
		return nil, errors.Wrap(err, "restock")
	}
	s.loyalty.Clawback(req.AccountID, loyalty.PointsFor(refund.Total))

	label, err := s.shipping.CreateLabel(ctx, shipping.LabelRequest{
		OrderID: req.OrderID,
		Address: req.ShippingAddress,
		Method:  shipping.MethodStandard,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create return label")
	}

	s.audit.Record(ctx, audit.EventReturnProcessed, req.AccountID, req.SKU,
		fmt.Sprintf("Return %s for %dx %s approved", req.OrderID, req.Quantity, req.SKU),
	)

	return &Result{Status: StatusRefunded, Refund: refund, Label: label}, nil
}
