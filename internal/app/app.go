package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/gateway"
	"github.com/utafrali/storefront/internal/gateway/httpgw"
	mockgw "github.com/utafrali/storefront/internal/gateway/mock"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/migrations"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/memory"
	"github.com/utafrali/storefront/internal/repository/postgres"
	redisrepo "github.com/utafrali/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	rdb             *redis.Client
	pool            *pgxpool.Pool
	producer        *pkgkafka.Producer
	shutdownTracing func(context.Context) error
	httpServer      *http.Server
}

// stores holds the catalog and order repositories for the configured backend.
type stores struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    handler.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.shutdownTracing = shutdownTracing

	// Initialize Redis client.
	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	st, err := a.openStores(ctx)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	// Kafka producer, or a logging no-op when no brokers are configured.
	var publisher pkgkafka.Publisher = pkgkafka.NopPublisher{Logger: logger}
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("no kafka brokers configured, events will be dropped")
	}

	gw := NewGateway(cfg, logger)
	logger.Info("payment gateway initialized", slog.String("provider", gw.Name()))

	// Build the dependency graph.
	eventProducer := event.NewProducer(publisher, logger)
	cartRepo := redisrepo.NewCartRepository(rdb, cfg.CartTTL())
	cartService := service.NewCartService(cartRepo, st.products, eventProducer, logger, cfg.Pricing())
	svcs := handler.Services{
		Catalog:  service.NewCatalogService(st.products, logger),
		Cart:     cartService,
		Checkout: service.NewCheckoutService(cartService, st.orders, gw, eventProducer, logger),
		Orders:   service.NewOrderService(st.orders, gw, eventProducer, logger),
	}

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	limit := middleware.RateLimitConfig{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst}
	router := handler.NewRouter(svcs, a.healthHandler(), logger, cors, limit)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.PaymentTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a, nil
}

// openStores connects the catalog and order repositories for the configured
// backend, running migrations for postgres when enabled.
func (a *App) openStores(ctx context.Context) (stores, error) {
	cfg, logger := a.cfg, a.logger

	if cfg.StorageBackend == config.StorageMemory {
		products, err := memory.NewSeededProductRepository()
		if err != nil {
			return stores{}, fmt.Errorf("load seed catalog: %w", err)
		}
		logger.Info("using in-memory catalog and order store")
		return stores{products: products, orders: memory.NewOrderRepository()}, nil
	}

	pool, err := database.NewPostgresPool(ctx, database.PostgresConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}, logger)
	if err != nil {
		return stores{}, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL", slog.Int("max_conns", int(cfg.DBMaxConns)))

	if err := prometheus.Register(database.NewPoolStatsCollector(pool)); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return stores{}, fmt.Errorf("register pool metrics: %w", err)
		}
	}

	if cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return stores{}, fmt.Errorf("run migrations: %w", err)
		}
	}

	tracer := database.NewQueryTracer(logger, cfg.SlowQueryThreshold())
	return stores{
		products: postgres.NewProductRepository(pool, tracer),
		orders:   postgres.NewOrderRepository(pool, tracer),
	}, nil
}

// NewGateway builds the configured payment provider. The http provider sends
// through a retrying client guarded by a circuit breaker.
func NewGateway(cfg *config.Config, logger *slog.Logger) gateway.Gateway {
	if cfg.PaymentProvider != config.PaymentProviderHTTP {
		return mockgw.NewProvider()
	}

	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.PaymentTimeout
	doer := httpclient.NewCircuitBreakerClient(
		httpclient.New(clientCfg),
		httpclient.DefaultCircuitBreakerConfig("payment-gateway"),
		logger,
	)

	return httpgw.New(httpgw.Config{
		BaseURL:    cfg.PaymentBaseURL,
		APIKey:     cfg.PaymentAPIKey,
		LocationID: cfg.PaymentLocationID,
	}, doer)
}

func (a *App) healthHandler() *health.Handler {
	h := health.NewHandler(handler.ServiceName)
	h.Register("redis", func(ctx context.Context) error {
		return a.rdb.Ping(ctx).Err()
	})
	if a.pool != nil {
		h.Register("postgres", func(ctx context.Context) error {
			return a.pool.Ping(ctx)
		})
	}
	if a.producer != nil {
		h.Register("kafka", a.producer.Ping)
	}
	return h
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.closeAll()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.closeAll()
	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeAll() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}
}
