package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	redisadapter "github.com/blockreceipt/server/internal/adapter/outbound/redis"
	s3adapter "github.com/blockreceipt/server/internal/adapter/outbound/s3"
	"github.com/blockreceipt/server/internal/module/nft"
	"github.com/blockreceipt/server/internal/module/pipeline"
	"github.com/blockreceipt/server/internal/module/pipeline/handler"
	"github.com/blockreceipt/server/internal/module/taco"
	"github.com/blockreceipt/server/internal/shared/cache"
	"github.com/blockreceipt/server/internal/shared/config"
	"github.com/blockreceipt/server/internal/shared/database"
	"github.com/blockreceipt/server/internal/shared/logger"
	"github.com/blockreceipt/server/internal/shared/metrics"
	"github.com/blockreceipt/server/internal/shared/middleware"
)

// LoadConfig loads application configuration.
func LoadConfig() (*config.Config, error) {
	return config.Load()
}

// App wires the pipeline server together.
type App struct {
	config  *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics
	db      *gorm.DB
	redis   *goredis.Client
	router  *gin.Engine

	orchestrator *pipeline.Orchestrator
	taskHandler  *handler.TaskHandler
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	app := &App{
		config:  cfg,
		logger:  log,
		metrics: metrics.New(),
	}

	// Task store: Postgres when configured, in-memory otherwise.
	var store pipeline.Store
	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		if err := pipeline.Migrate(db); err != nil {
			return nil, err
		}
		app.db = db
		store = pipeline.NewRepository(db)
		log.Info("task store: postgres")
	} else {
		store = pipeline.NewMemoryStore()
		log.Info("task store: memory")
	}

	// Redis is optional; without it the create route is unthrottled.
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, continuing without rate limiting", logger.Err(err))
		} else {
			app.redis = redisClient
		}
	}

	marketplace := nft.NewBreakerMarketplace(
		nft.NewSimulatedMarketplace(nft.MarketplaceOptions{
			BudgetPercent: cfg.Marketplace.BudgetPercent,
			MinBudget:     cfg.Marketplace.MinBudget,
			MaxBudget:     cfg.Marketplace.MaxBudget,
		}),
		&nft.BreakerConfig{
			FailureThreshold: cfg.Pipeline.FailureThreshold,
			Timeout:          cfg.Pipeline.CircuitTimeout,
		},
	)
	minter := nft.NewSimulatedMinter()

	app.orchestrator = pipeline.NewOrchestrator(store, marketplace, minter, &pipeline.Config{
		MaxConcurrentTasks: cfg.Pipeline.MaxConcurrentTasks,
	}).WithLogger(log).WithMetrics(app.metrics)

	// Optional blob store for encrypted metadata ciphertext.
	if cfg.Storage.Enabled {
		s3Client, err := s3adapter.NewClient(context.Background(), &cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		app.orchestrator.WithBlobStore(s3adapter.NewMetadataStore(s3Client, cfg.Storage.Bucket))
	}

	app.taskHandler = handler.NewTaskHandler(app.orchestrator, taco.NewClient())
	app.router = app.setupRouter()

	return app, nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	var createMiddleware []gin.HandlerFunc
	if a.redis != nil {
		limiter := redisadapter.NewRateLimiter(a.redis)
		createMiddleware = append(createMiddleware, middleware.RateLimit(
			limiter, a.logger, a.config.Pipeline.RateLimit, a.config.Pipeline.RateWindow,
		))
	}

	api := r.Group("/api/v1")
	a.taskHandler.RegisterRoutes(api, createMiddleware...)

	return r
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop shuts down application components.
func (a *App) Stop() {
	a.orchestrator.Stop()

	if a.redis != nil {
		if err := cache.Close(a.redis); err != nil {
			a.logger.Warn("close redis", logger.Err(err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("close database", logger.Err(err))
		}
	}
}
