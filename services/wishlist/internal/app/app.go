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
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/EcommerceGo/pkg/database"
	"github.com/utafrali/EcommerceGo/pkg/health"
	"github.com/utafrali/EcommerceGo/pkg/httpclient"
	pkgkafka "github.com/utafrali/EcommerceGo/pkg/kafka"
	"github.com/utafrali/EcommerceGo/pkg/middleware"
	"github.com/utafrali/EcommerceGo/pkg/tracing"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/catalog"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/config"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/event"
	handler "github.com/utafrali/EcommerceGo/services/wishlist/internal/handler/http"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/identity"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/notify"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/repository/postgres"
	redisrepo "github.com/utafrali/EcommerceGo/services/wishlist/internal/repository/redis"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/scheduler"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/service"
)

// consumerGroup is the Kafka group for product cache invalidation.
const consumerGroup = "wishlist-service-product-events"

// App wires together all dependencies and runs the wishlist service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	rdb             *redis.Client
	producer        *pkgkafka.Producer
	productConsumer *pkgkafka.Consumer
	scheduler       *scheduler.Scheduler
	httpServer      *http.Server
	tracerShutdown  func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "wishlist",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "wishlist")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Create or upgrade the schema, migrating a legacy single-list layout.
	schema := postgres.NewSchemaManager(pool, logger, cfg.DefaultListName)
	if err := database.WithRetry(ctx, logger, "ensure schema", schema.EnsureSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	logger.Info("database schema ready")

	// Initialize Redis for sessions, notices, contacts and consumer idempotency.
	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPass,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
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

	// Collaborator clients share one retrying client behind a circuit breaker.
	baseClient := httpclient.New(httpclient.Config{
		Timeout:         5 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 100,
	})
	cbCfg := httpclient.CircuitBreakerConfig{
		Name:         "wishlist-downstream",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}
	doer := httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger).
		WithFallback(catalog.CircuitOpenFallback)
	logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.Uint64("max_requests", uint64(cbCfg.MaxRequests)),
		slog.Int("timeout_seconds", cfg.CBTimeout),
		slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
	)

	products := catalog.NewCachedCatalog(
		catalog.NewClient(doer, cfg.ProductServiceURL, cfg.StorefrontURL, logger),
		cfg.CatalogCacheSize,
		cfg.CatalogCacheTTL(),
	)
	stock := catalog.NewInventoryClient(doer, cfg.InventoryServiceURL)
	cart := catalog.NewCartClient(doer, cfg.CartServiceURL)

	var sender notify.Sender = notify.NewLogSender(logger)
	if cfg.SendGridAPIKey != "" {
		sg, err := notify.NewSendGridSender(notify.Config{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.MailFromEmail,
			FromName:  cfg.MailFromName,
		}, logger)
		if err != nil {
			_ = rdb.Close()
			pool.Close()
			return nil, fmt.Errorf("init sendgrid sender: %w", err)
		}
		sender = sg
	} else {
		logger.Warn("SENDGRID_API_KEY not set, price-drop emails will only be logged")
	}

	// Build the dependency graph.
	lists := postgres.NewListRepository(pool)
	items := postgres.NewItemRepository(pool)
	exports := postgres.NewExportRepository(pool)
	sessions := redisrepo.NewSessionStore(rdb, cfg.SessionTTL())
	notices := redisrepo.NewNoticeStore(rdb, cfg.NoticeTTL())
	contacts := redisrepo.NewContactStore(rdb, cfg.ContactTTL())
	eventProducer := event.NewProducer(producer, logger)

	listService := service.NewListService(lists, logger, cfg.DefaultListName, cfg.MaxNameLength)
	itemService := service.NewItemService(listService, items, products, stock, cart, eventProducer, logger, cfg.MoveToCartRemoves)
	mergeService := service.NewMergeService(lists, items, products, notices, eventProducer, logger, cfg.MergeOnLogin, cfg.DefaultListName)
	priceDropService := service.NewPriceDropService(items, products, contacts, notices, sender, eventProducer, logger, service.PriceDropConfig{
		Threshold:       cfg.PriceDropThreshold(),
		EmailEnabled:    cfg.PriceDropEmailEnabled,
		NoticeEnabled:   cfg.PriceDropNoticeEnabled,
		SuppressRepeats: cfg.PriceDropSuppress,
	})
	sweepService := service.NewSweepService(lists, logger, cfg.GuestExpiryDays)
	exportService := service.NewExportService(exports)

	// Background jobs.
	jobs := scheduler.New(logger)
	if err := jobs.Register(handler.JobPriceDrops, cfg.PriceDropCron, func(ctx context.Context) error {
		_, err := priceDropService.Scan(ctx)
		return err
	}); err != nil {
		_ = rdb.Close()
		pool.Close()
		return nil, err
	}
	if err := jobs.Register(handler.JobSweep, cfg.SweepCron, sweepService.Run); err != nil {
		_ = rdb.Close()
		pool.Close()
		return nil, err
	}

	// Product events keep the catalog cache fresh.
	productEvents := event.NewProductConsumer(products, logger)
	idempotencyStore := pkgkafka.NewRedisIdempotencyStore(rdb, consumerGroup, 24*time.Hour)
	productConsumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  consumerGroup,
		Topics:   productEvents.Topics(),
		MinBytes: 1,
		MaxBytes: 10e6,
	}, pkgkafka.IdempotentHandler(idempotencyStore, productEvents.Handle, logger), logger)

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

	// HTTP router.
	resolver := identity.NewResolver(sessions, contacts, identity.Config{
		CookieName: cfg.SessionCookie,
		TTL:        cfg.SessionTTL(),
		Secure:     cfg.Environment != "development",
	}, logger)
	router := handler.NewRouter(
		handler.NewWishlistHandler(listService, itemService, mergeService, resolver, notices, logger),
		handler.NewAdminHandler(itemService, exportService, jobs, logger),
		healthHandler,
		handler.RouterConfig{
			ValidateToken: middleware.NewHMACValidator(cfg.JWTSecret),
			Identity:      resolver,
			CORS: middleware.CORSConfig{
				AllowedOrigins:   cfg.CORSAllowedOrigins,
				AllowCredentials: true,
			},
			WriteRPS:   cfg.WriteRateLimitRPS,
			WriteBurst: cfg.WriteRateLimitBurst,
			PprofCIDRs: cfg.PprofAllowedCIDRs,
		},
		logger,
	)

	// Exports stream, so writes get a longer deadline than reads.
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		rdb:             rdb,
		producer:        producer,
		productConsumer: productConsumer,
		scheduler:       jobs,
		httpServer:      httpServer,
		tracerShutdown:  tracerShutdown,
	}, nil
}

// Run starts the HTTP server, the product consumer and the job scheduler,
// then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start Kafka consumer.
	go func() {
		if err := a.productConsumer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("product consumer: %w", err)
		}
	}()

	// Start background jobs.
	a.scheduler.Start(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Scheduler (wait for running jobs)
// 3. Tracer (flush pending spans)
// 4. Kafka consumer and producer
// 5. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Jobs observe the canceled run context; wait for them to return.
	a.scheduler.Wait()

	// 3. Flush pending spans.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Close Kafka consumer and producer.
	if err := a.productConsumer.Close(); err != nil {
		a.logger.Error("product consumer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 5. Close Redis client and PostgreSQL pool.
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
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		err := producer.Ping(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
