package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-storemetrics/internal/clients"
	"github.com/niaga-platform/service-storemetrics/internal/config"
	"github.com/niaga-platform/service-storemetrics/internal/database"
	"github.com/niaga-platform/service-storemetrics/internal/events"
	"github.com/niaga-platform/service-storemetrics/internal/handlers"
	"github.com/niaga-platform/service-storemetrics/internal/logger"
	"github.com/niaga-platform/service-storemetrics/internal/middleware"
	"github.com/niaga-platform/service-storemetrics/internal/monitoring"
	"github.com/niaga-platform/service-storemetrics/internal/repository"
	"github.com/niaga-platform/service-storemetrics/internal/routes"
	"github.com/niaga-platform/service-storemetrics/internal/services"
)

func main() {
	// Load .env file in development
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	zlog, err := logger.NewLogger(cfg.App.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// Initialize Sentry for error tracking
	sentryMonitor, err := monitoring.NewSentryMonitor(&monitoring.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		ServiceName:      "storemetrics-service",
		TracesSampleRate: 0.1,
	}, zlog)
	if err != nil {
		zlog.Warn("Failed to initialize Sentry", zap.Error(err))
	}
	defer sentryMonitor.Flush(2 * time.Second)

	// Connect to database
	db, err := database.Connect(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	if err := database.Migrate(db); err != nil {
		zlog.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Initialize repositories
	metricRepo := repository.NewMetricRepository(db)
	productRepo := repository.NewProductMetricRepository(db)
	trafficRepo := repository.NewTrafficMetricRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Store registry: service-store when configured, local table otherwise
	var registry services.StoreRegistry
	if cfg.Services.StoreURL != "" {
		registry = clients.NewStoreClient(cfg.Services.StoreURL, zlog)
		zlog.Info("Using service-store registry", zap.String("url", cfg.Services.StoreURL))
	} else {
		registry = repository.NewStoreRepository(db)
	}

	// Connect to Redis (optional - cache disabled when unreachable)
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			zlog.Warn("Failed to connect to Redis, metrics cache disabled", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		}
		cancel()
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	cacheService := services.NewMetricsCacheService(redisClient, cfg.Redis.CacheTTL, zlog)

	// Connect to NATS (optional - only if configured)
	var natsConn *nats.Conn
	var eventPublisher *events.Publisher
	if cfg.NATS.URL != "" {
		natsConn, err = nats.Connect(cfg.NATS.URL)
		if err != nil {
			zlog.Warn("Failed to connect to NATS, sync events disabled", zap.Error(err))
		} else {
			zlog.Info("Connected to NATS", zap.String("url", cfg.NATS.URL))
			eventPublisher = events.NewPublisher(natsConn, zlog)
			defer natsConn.Drain()
		}
	}

	// Initialize providers
	providerFactory := services.NewProviderFactoryService(&services.ProviderFactoryConfig{
		Shopify:  cfg.Shopify,
		Facebook: cfg.Facebook,
		Google:   cfg.Google,
	}, zlog)

	auditService := services.NewAuditService(auditRepo, zlog)

	syncConfig := &services.MetricsSyncServiceConfig{
		Registry: registry,
		Metrics:  metricRepo,
		Products: productRepo,
		Traffic:  trafficRepo,
		Commerce: providerFactory.CreateShopifyProvider(),
		Facebook: providerFactory.CreateMetaProvider(),
		Google:   providerFactory.CreateGoogleProvider(),
		Audit:    auditService,
		Cache:    cacheService,
		Reporter: sentryMonitor,
		Logger:   zlog.Named("sync"),
	}
	if eventPublisher != nil {
		syncConfig.Publisher = eventPublisher
	}
	syncService, err := services.NewMetricsSyncService(syncConfig)
	if err != nil {
		zlog.Fatal("Failed to initialize metrics sync service", zap.Error(err))
	}

	queryService := services.NewMetricsQueryService(&services.MetricsQueryServiceConfig{
		Registry: registry,
		Metrics:  metricRepo,
		Products: productRepo,
		Traffic:  trafficRepo,
		Audit:    auditService,
		Cache:    cacheService,
		Logger:   zlog,
	})

	// Start NATS subscriber if connected
	var eventSubscriber *events.Subscriber
	if natsConn != nil {
		eventSubscriber = events.NewSubscriber(natsConn, syncService, zlog)
		if err := eventSubscriber.Start(); err != nil {
			zlog.Warn("Failed to start event subscriber", zap.Error(err))
		}
	}

	// Scheduled syncs
	scheduler := services.NewScheduler(zlog.Named("scheduler"))
	if cfg.Scheduler.Enabled {
		if err := registerJobs(scheduler, syncService, cfg.Scheduler); err != nil {
			zlog.Fatal("Failed to register scheduled jobs", zap.Error(err))
		}
		if err := scheduler.Start(context.Background()); err != nil {
			zlog.Fatal("Failed to start scheduler", zap.Error(err))
		}
	}

	// Initialize handlers
	metricsHandler := handlers.NewMetricsHandler(queryService, zlog)
	syncHandler := handlers.NewSyncHandler(syncService, zlog)

	// Set Gin mode
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := gin.New()

	// Apply global middleware
	router.Use(sentryMonitor.Middleware()...)
	router.Use(middleware.LoggerMiddleware(zlog))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "storemetrics",
			"time":    time.Now().UTC(),
		})
	})

	// Setup routes using the routes package
	routes.SetupRoutes(router, &routes.RouteConfig{
		MetricsHandler: metricsHandler,
		SyncHandler:    syncHandler,
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		zlog.Info("Storemetrics service starting on port " + cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Shutting down server...")
	scheduler.Stop()
	if eventSubscriber != nil {
		eventSubscriber.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Fatal("Server forced to shutdown", zap.Error(err))
	}

	zlog.Info("Server exited")
}

// registerJobs wires the sync cadences into the scheduler.
func registerJobs(scheduler *services.Scheduler, syncService *services.MetricsSyncService, cfg config.SchedulerConfig) error {
	loc := time.FixedZone("reporting", cfg.OffsetMinutes*60)

	jobs := []services.Job{
		{
			Name:     "daily-metrics",
			Schedule: services.DailyAt{Hour: 2, Location: loc},
			Run: func(ctx context.Context) error {
				_, err := syncService.SyncDailyMetrics(ctx)
				return err
			},
		},
		{
			Name:     "product-metrics",
			Schedule: services.DailyAt{Hour: 3, Location: loc},
			Run: func(ctx context.Context) error {
				_, err := syncService.SyncProductMetrics(ctx)
				return err
			},
		},
		{
			Name:     "traffic-metrics",
			Schedule: services.DailyAt{Hour: 4, Location: loc},
			Run: func(ctx context.Context) error {
				_, err := syncService.SyncTrafficMetrics(ctx, 7, 20)
				return err
			},
		},
		{
			Name:     "traffic-metrics-weekly",
			Schedule: services.WeeklyAt{Weekday: time.Sunday, Location: loc},
			Run: func(ctx context.Context) error {
				_, err := syncService.SyncTrafficMetrics(ctx, 30, 50)
				return err
			},
		},
		{
			Name:     "product-metrics-alltime",
			Schedule: services.MonthlyAt{Day: 1, Location: loc},
			Run: func(ctx context.Context) error {
				_, err := syncService.SyncAllTimeProductMetrics(ctx)
				return err
			},
		},
	}

	for _, job := range jobs {
		if err := scheduler.Register(job); err != nil {
			return err
		}
	}
	return nil
}
