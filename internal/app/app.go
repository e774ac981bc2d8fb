package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/shopperslink/variant-service/internal/config"
	"github.com/shopperslink/variant-service/internal/event"
	handler "github.com/shopperslink/variant-service/internal/handler/http"
	"github.com/shopperslink/variant-service/internal/repository"
	"github.com/shopperslink/variant-service/internal/repository/postgres"
	redisrepo "github.com/shopperslink/variant-service/internal/repository/redis"
	"github.com/shopperslink/variant-service/internal/repository/remote"
	"github.com/shopperslink/variant-service/internal/service"
	"github.com/shopperslink/variant-service/migrations"
	"github.com/shopperslink/variant-service/pkg/database"
	"github.com/shopperslink/variant-service/pkg/health"
	"github.com/shopperslink/variant-service/pkg/httpclient"
	pkgkafka "github.com/shopperslink/variant-service/pkg/kafka"
	"github.com/shopperslink/variant-service/pkg/middleware"
	"github.com/shopperslink/variant-service/pkg/tracing"
)

// ServiceName identifies the service in metrics, traces and events.
const ServiceName = "variant-service"

// App wires together all dependencies and runs the variant service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	productDeleted *pkgkafka.Consumer
	idempotency    *pkgkafka.MemoryIdempotencyStore
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		Insecure:       true,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL
	pgCfg.MaxConns = cfg.DBMaxConns
	pgCfg.MinConns = cfg.DBMinConns
	pgCfg.MaxConnLifetime = time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute
	pgCfg.MaxConnIdleTime = time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Redis client.
	redisCfg := database.DefaultRedisConfig()
	redisCfg.Host = cfg.RedisHost
	redisCfg.Port = cfg.RedisPort
	redisCfg.Password = cfg.RedisPass
	redisCfg.DB = cfg.RedisDB
	rdb, err := database.NewRedisClient(ctx, redisCfg, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("db", cfg.RedisDB),
	)

	// Initialize Kafka producer with connection validation and retry.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
		logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	eventProducer := event.NewProducer(producer, logger)
	attributeRepo := newAttributeRepository(cfg, pool, logger)
	variantRepo := postgres.NewVariantRepository(pool)
	draftRepo := redisrepo.NewDraftRepository(rdb, cfg.DraftTTL)

	attributeService := service.NewAttributeService(attributeRepo, eventProducer, logger)
	draftService := service.NewDraftService(draftRepo, attributeRepo, variantRepo, eventProducer, logger, service.DraftConfig{
		TTL:               cfg.DraftTTL,
		PersistRowRemoval: cfg.PersistRowRemoval,
		MaxRows:           cfg.MaxRows,
		DefaultCurrency:   cfg.DefaultCurrency,
	})
	variantService := service.NewVariantService(variantRepo, draftRepo, logger)

	// Kafka consumer for product deletions.
	eventConsumer := event.NewConsumer(variantService, logger)
	idempotencyStore := pkgkafka.NewMemoryIdempotencyStore(24 * time.Hour)
	productDeleted := pkgkafka.NewConsumer(
		pkgkafka.DefaultConsumerConfig(cfg.KafkaBrokers, cfg.KafkaConsumerGroup+"-product-deleted", event.TopicProductDeleted),
		pkgkafka.IdempotentHandler(idempotencyStore, eventConsumer.Handle, logger),
		logger,
	)
	var dlq *pkgkafka.DLQProducer
	if cfg.KafkaDLQEnabled {
		dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		productDeleted.WithDeadLetter(dlq)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	if cfg.AttributeSource == config.AttributeSourceRemote {
		healthHandler.RegisterNonCritical("attribute-catalog", func(ctx context.Context) error {
			_, err := attributeRepo.ListAll(ctx)
			return err
		})
	}

	// HTTP router.
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	})
	router := handler.NewRouter(
		handler.Services{
			Attributes: attributeService,
			Drafts:     draftService,
			Variants:   variantService,
		},
		healthHandler,
		middleware.NewJWTValidator([]byte(cfg.JWTSecret), cfg.JWTIssuer),
		limiter,
		logger,
		handler.RouterConfig{
			ServiceName:    ServiceName,
			RequestTimeout: cfg.HTTPRequestTimeout,
			PprofCIDRs:     cfg.PprofAllowedCIDRs,
			CORSOrigins:    cfg.CORSAllowedOrigins,
			CacheMaxAge:    cfg.CatalogCacheMaxAge,
		},
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.HTTPRequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		producer:       producer,
		dlq:            dlq,
		productDeleted: productDeleted,
		idempotency:    idempotencyStore,
		limiter:        limiter,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// newAttributeRepository selects the attribute catalog backend.
func newAttributeRepository(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) repository.AttributeRepository {
	if cfg.AttributeSource != config.AttributeSourceRemote {
		return postgres.NewAttributeRepository(pool)
	}

	clientCfg := httpclient.DefaultConfig()
	clientCfg.MaxRetries = cfg.CatalogMaxRetries
	cbCfg := httpclient.DefaultCircuitBreakerConfig("attribute-catalog")
	cbCfg.Timeout = cfg.CatalogCBTimeout
	cbCfg.MinRequests = cfg.CatalogCBMinReqs
	cbCfg.FailureRatio = cfg.CatalogCBRatio

	logger.Info("using remote attribute catalog",
		slog.String("url", cfg.AttributeCatalogURL),
		slog.Duration("cache_ttl", cfg.AttributeCacheTTL),
	)
	return remote.NewAttributeRepository(httpclient.New(clientCfg), cbCfg, cfg.AttributeCatalogURL, cfg.AttributeCacheTTL, logger)
}

// Run starts the HTTP server, the Kafka consumer and background jobs, then
// blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start Kafka consumer.
	go func() {
		if err := a.productDeleted.Start(ctx); err != nil {
			errCh <- fmt.Errorf("product deleted consumer: %w", err)
		}
	}()

	go a.runSweeper(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// runSweeper evicts idle rate limiter buckets and expired idempotency keys.
func (a *App) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			visitors := a.limiter.Sweep()
			events := a.idempotency.Sweep()
			if visitors > 0 || events > 0 {
				a.logger.Debug("sweeper evicted entries",
					slog.Int("rate_limit_buckets", visitors),
					slog.Int("idempotency_keys", events),
				)
			}
		}
	}
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka consumer, producers, Redis, PostgreSQL.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Drain in-flight HTTP requests.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Flush pending spans after the HTTP drain so request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.productDeleted.Close(); err != nil {
		a.logger.Error("product deleted consumer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	const attempts = 3
	var lastErr error
	for attempt := range attempts {
		lastErr = producer.Ping(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		base := time.Duration(1<<uint(attempt)) * time.Second
		jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter
		wait := base + jitter
		logger.Warn("kafka producer ping failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", attempts),
			slog.Duration("backoff", wait),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("kafka producer ping failed after %d attempts: %w", attempts, lastErr)
}
