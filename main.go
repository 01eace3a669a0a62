package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"adminpanel/internal/changefeed"
	"adminpanel/internal/config"
	"adminpanel/internal/docstore"
	"adminpanel/internal/handlers"
	"adminpanel/internal/livesync"
	"adminpanel/internal/logging"
	"adminpanel/internal/middleware"
	"adminpanel/internal/models"
	"adminpanel/internal/repositories"
	"adminpanel/internal/services"
	"adminpanel/pkg/rabbitmq"
	"adminpanel/pkg/redisbus"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	appLog := logging.New(os.Stdout, cfg.LogLevel)

	if err := run(cfg, appLog); err != nil {
		appLog.Error(context.Background(), "server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLog logging.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Database and document store ---
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	store, err := openStore(cfg, db, appLog)
	if err != nil {
		return err
	}
	defer store.Close()

	closeFeed, err := attachFeed(ctx, cfg, store, appLog)
	if err != nil {
		return err
	}
	defer closeFeed()

	accounts, err := repositories.NewGORMAccountRepository(db)
	if err != nil {
		return err
	}

	// --- Live collections ---
	productSync := livesync.New(store, services.ProductEntity.Query(), services.ProductEntity.Decode, appLog)
	defer productSync.Close()
	userSync := livesync.New(store, services.UserEntity.Query(), services.UserEntity.Decode, appLog)
	defer userSync.Close()

	visitors := middleware.NewVisitors(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go visitors.RunCleanup(ctx)

	stopStreams := make(chan struct{})
	app := newApp(appDeps{
		cfg:         cfg,
		log:         appLog,
		store:       store,
		accounts:    accounts,
		productSync: productSync,
		userSync:    userSync,
		visitors:    visitors,
		stopStreams: stopStreams,
	})

	// --- Start HTTP Server ---
	appLog.Info(ctx, "starting server", "port", cfg.AppPort, "store", cfg.StoreDriver, "feed", cfg.ChangeFeed)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(cfg.AppPort)
	}()

	select {
	case <-quit:
	case err := <-listenErr:
		return fmt.Errorf("server failed to start: %w", err)
	}
	appLog.Info(ctx, "shutting down server")

	close(stopStreams)
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLog.Error(ctx, "error during fiber shutdown", "error", err)
	}
	appLog.Info(ctx, "server gracefully stopped")
	return nil
}

type appDeps struct {
	cfg         *config.Config
	log         logging.Logger
	store       docstore.Store
	accounts    repositories.AccountRepository
	productSync *livesync.Synchronizer[models.Product]
	userSync    *livesync.Synchronizer[models.User]
	visitors    *middleware.Visitors
	stopStreams <-chan struct{}
}

// newApp wires services and handlers into a Fiber app.
func newApp(d appDeps) *fiber.App {
	// --- Initialize Services ---
	authService := services.NewAuthService(d.accounts, d.cfg.JWTSecret, d.cfg.TokenTTL, d.log)
	productService := services.NewRecordService(services.ProductEntity, d.store, d.productSync, d.cfg.PageSize, d.log)
	userService := services.NewRecordService(services.UserEntity, d.store, d.userSync, d.cfg.PageSize, d.log)
	dashboardService := services.NewDashboardService(d.productSync, d.userSync)

	// --- Initialize Handlers ---
	authHandler := handlers.NewAuthHandler(authService, d.log)
	productHandler := handlers.NewRecordHandler(productService, d.log, d.stopStreams)
	userHandler := handlers.NewRecordHandler(userService, d.log, d.stopStreams)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, d.log)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	// --- Middleware ---
	app.Use(logger.New()) // Request logger

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"products": d.productSync.Snapshot().State.String(),
			"users":    d.userSync.Snapshot().State.String(),
		})
	})

	// --- API Routes ---
	apiV1 := app.Group("/api/v1", middleware.RateLimit(d.visitors))
	authHandler.RegisterRoutes(apiV1)

	// Protected routes (require JWT authentication)
	protected := apiV1.Group("", middleware.AuthRequired(authService, d.log))
	authHandler.RegisterProtectedRoutes(protected)
	productHandler.RegisterRoutes(protected, "/products")
	userHandler.RegisterRoutes(protected, "/users")
	dashboardHandler.RegisterRoutes(protected)

	return app
}

// openDatabase opens the SQL database holding accounts and, for the sql
// drivers, documents. The memory driver keeps accounts in SQLite.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	var dialector gorm.Dialector
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.StoreDriver != config.DriverPostgres {
		// sqlite allows a single writer
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func openStore(cfg *config.Config, db *gorm.DB, log logging.Logger) (docstore.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		return docstore.NewMemoryStore(docstore.WithLogger(log)), nil
	}
	store, err := docstore.NewGormStore(db, docstore.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	return store, nil
}

// attachFeed connects the configured change feed to store and returns its closer.
func attachFeed(ctx context.Context, cfg *config.Config, store docstore.Store, log logging.Logger) (func(), error) {
	var (
		feed    docstore.ChangeFeed
		closeFn = func() {}
	)
	switch cfg.ChangeFeed {
	case config.FeedAMQP:
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange, Log: log})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		feed = changefeed.NewAMQP(client)
		closeFn = func() {
			if err := client.Close(); err != nil {
				log.Warn(ctx, "error closing RabbitMQ client", "error", err)
			}
		}
	case config.FeedRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		bus := redisbus.New(rdb, cfg.RedisChannel, log)
		feed = changefeed.NewRedis(bus)
		log.Info(ctx, "publishing record changes on redis", "channel", bus.Channel())
		closeFn = func() {
			if err := rdb.Close(); err != nil {
				log.Warn(ctx, "error closing redis client", "error", err)
			}
		}
	default:
		return closeFn, nil
	}

	if err := store.AttachFeed(ctx, feed); err != nil {
		closeFn()
		return nil, fmt.Errorf("failed to attach change feed: %w", err)
	}
	log.Info(ctx, "change feed attached", "feed", cfg.ChangeFeed)
	return closeFn, nil
}
