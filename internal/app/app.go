// Package app wires the fulfillment services into an HTTP server.
package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

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
	"github.com/xenking/oolio-fulfillment/internal/handler"
	"github.com/xenking/oolio-fulfillment/internal/payment"
	"github.com/xenking/oolio-fulfillment/internal/storage/postgres"
	"github.com/xenking/oolio-fulfillment/internal/stream"
	"github.com/xenking/oolio-fulfillment/pkg/health"
	"github.com/xenking/oolio-fulfillment/pkg/httpmiddleware"
)

const serviceName = "fulfillment"

// Telemetry provides OpenTelemetry providers. *app.Telemetry from
// go-faster/sdk satisfies it.
type Telemetry interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

// Server is the assembled application.
type Server struct {
	cfg    *Config
	lg     *zap.Logger
	health *health.Health
	http   *http.Server

	closers []func() error
}

// Run creates all dependencies, serves HTTP on cfg.Addr and shuts down
// gracefully when ctx is cancelled. It is the single wiring point for the
// application.
func Run(ctx context.Context, lg *zap.Logger, tel Telemetry, cfg *Config) error {
	srv, err := New(ctx, lg, tel, cfg)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return multierr.Append(errors.Wrap(err, "listen"), srv.Close())
	}
	return srv.Serve(ctx, ln)
}

// New builds the service graph. Close must be called if Serve is not.
func New(ctx context.Context, lg *zap.Logger, tel Telemetry, cfg *Config) (_ *Server, rerr error) {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))
	s := &Server{cfg: cfg, lg: lg, health: health.New()}
	defer func() {
		if rerr != nil {
			rerr = multierr.Append(rerr, s.Close())
		}
	}()

	s.health.AddLiveness(health.Check{
		Name:    "goroutines",
		Timeout: time.Second,
		Func:    health.GoroutineCountCheck(10000),
	})

	products, sinks, err := s.storage(ctx)
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, s.auditStream()...)

	stock := inventory.NewStore()
	if err := seedStock(ctx, products, stock, cfg.Seed.Stock); err != nil {
		return nil, err
	}

	declineAbove, err := cfg.Payment.declineAbove()
	if err != nil {
		return nil, err
	}
	payments := payment.NewSimulator(payment.SimulatorConfig{
		DeclineAbove:    declineAbove,
		DeclineAccounts: cfg.Payment.DeclineAccounts,
	})

	var (
		auditLog = audit.NewLog(sinks...)
		points   = loyalty.NewLedger()
		labels   = shipping.NewService(cfg.Carrier)
		pricer   = pricing.NewService(products, promotion.NewEngine(), tax.NewCalculator(tax.DefaultRates()))
	)
	orders := order.NewService(
		order.Config{
			SafetyStock:    cfg.SafetyStock,
			MeterProvider:  tel.MeterProvider(),
			TracerProvider: tel.TracerProvider(),
		},
		stock, payments, pricer, labels,
		fraud.NewScorer(fraud.DefaultRegions()),
		points, auditLog,
	)
	refunds := returns.NewService(
		returns.Config{
			MeterProvider:  tel.MeterProvider(),
			TracerProvider: tel.TracerProvider(),
		},
		stock, payments, pricer, labels, points, auditLog,
	)

	api := handler.NewHandler(handler.Deps{
		Products:  products,
		Orders:    orders,
		Returns:   refunds,
		Inventory: stock,
		Loyalty:   points,
		Labels:    labels,
		Audit:     auditLog,
	})

	r := chi.NewRouter()
	r.Method(http.MethodGet, "/livez", s.health.LiveHandler())
	r.Method(http.MethodGet, "/readyz", s.health.ReadyHandler())
	r.Mount("/api", api.Routes())

	limitCtx, stopLimits := context.WithCancel(ctx)
	s.closers = append(s.closers, func() error {
		stopLimits()
		return nil
	})

	s.http = &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Handler: httpmiddleware.Wrap(r,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.RateLimitWithCleanup(limitCtx, httpmiddleware.RateLimitConfig{
				Rate:            cfg.RateLimit.Rate,
				Burst:           cfg.RateLimit.Burst,
				CleanupInterval: cfg.RateLimit.CleanupInterval,
			}),
			httpmiddleware.Instrument(serviceName, tel.TracerProvider(), tel.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}
	return s, nil
}

// storage returns the catalog and, with PostgreSQL configured, the durable
// audit sink.
func (s *Server) storage(ctx context.Context) (catalog.Repository, []audit.Sink, error) {
	if s.cfg.DatabaseURL == "" {
		s.lg.Info("Using in-memory catalog")
		return catalog.NewStatic(catalog.DefaultProducts()...), nil, nil
	}

	pool, err := postgres.NewPool(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create db pool")
	}
	s.closers = append(s.closers, func() error {
		pool.Close()
		return nil
	})

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return nil, nil, errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	if s.cfg.Seed.Catalog {
		if err := products.SeedProducts(ctx, catalog.DefaultProducts()); err != nil {
			return nil, nil, errors.Wrap(err, "seed catalog")
		}
	}

	s.health.AddReadiness(health.Check{
		Name:    "postgres",
		Timeout: 5 * time.Second,
		Func:    health.PingCheck(pool),
	})
	return products, []audit.Sink{postgres.NewAuditStore(pool)}, nil
}

func (s *Server) auditStream() []audit.Sink {
	if len(s.cfg.Kafka.Brokers) == 0 {
		return nil
	}

	sink := stream.NewKafkaSink(stream.NewKafkaWriter(s.cfg.Kafka.Brokers, s.cfg.Kafka.Topic))
	s.closers = append(s.closers, sink.Close)
	s.lg.Info("Streaming audit entries",
		zap.Strings("brokers", s.cfg.Kafka.Brokers),
		zap.String("topic", s.cfg.Kafka.Topic),
	)
	return []audit.Sink{sink}
}

func seedStock(ctx context.Context, products catalog.Repository, stock *inventory.Store, qty int) error {
	if qty <= 0 {
		return nil
	}
	list, err := products.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	for _, p := range list {
		if err := stock.Add(p.SKU, qty); err != nil {
			return errors.Wrapf(err, "seed %s", p.SKU)
		}
	}
	return nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// in-flight requests and releases every resource.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer func() {
		if err := s.Close(); err != nil {
			s.lg.Error("Release resources", zap.Error(err))
		}
	}()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.health.Run(gCtx, s.cfg.Health.Interval)
	})
	g.Go(func() error {
		s.lg.Info("Server listening", zap.String("addr", ln.Addr().String()))
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		s.health.SetReady(false)
		if d := s.cfg.Graceful.ReadinessDelay; d > 0 && ctx.Err() != nil {
			s.lg.Info("Readiness set to false, draining", zap.Duration("delay", d))
			time.Sleep(d)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Graceful.ShutdownTimeout)
		defer cancel()

		s.lg.Info("Shutting down server", zap.Duration("timeout", s.cfg.Graceful.ShutdownTimeout))
		return s.http.Shutdown(shutdownCtx)
	})

	s.health.SetReady(true)
	return g.Wait()
}

// Close stops background work and releases storage and stream resources in
// reverse order of acquisition.
func (s *Server) Close() error {
	var err error
	for i := len(s.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.closers[i]())
	}
	s.closers = nil
	return err
}
