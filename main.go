// Package main provides the main entry point for the Raijin campaign dispatch engine
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/Raijin/app/handlers"
	"github.com/amirphl/Raijin/app/middleware"
	"github.com/amirphl/Raijin/app/router"
	"github.com/amirphl/Raijin/app/scheduler"
	"github.com/amirphl/Raijin/app/services"
	businessflow "github.com/amirphl/Raijin/business_flow"
	"github.com/amirphl/Raijin/config"
	"github.com/amirphl/Raijin/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Raijin application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeRedis connects a Redis client to the given URL and database and
// verifies connectivity.
func initializeRedis(url string, db int) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = db

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", url, db)
	return rc, nil
}

// startRedisHealthMonitor starts a background goroutine that periodically pings
// Redis to detect connectivity issues. The returned cancel function stops the
// monitor.
func startRedisHealthMonitor(parent context.Context, client *redis.Client, name string, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck (%s) failed: %v", name, err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	// Queue Redis is mandatory; the engine cannot dispatch without it.
	queueClient, err := initializeRedis(cfg.Queue.RedisURL, cfg.Queue.RedisDB)
	if err != nil {
		return nil, err
	}
	stopFuncs = append(stopFuncs, startRedisHealthMonitor(context.Background(), queueClient, "queue", 30*time.Second))

	// Cache Redis is optional; preview counts fall back to the database.
	var cacheClient *redis.Client
	if cfg.Cache.Enabled {
		cacheClient, err = initializeRedis(cfg.Cache.RedisURL, cfg.Cache.RedisDB)
		if err != nil {
			return nil, err
		}
		stopFuncs = append(stopFuncs, startRedisHealthMonitor(context.Background(), cacheClient, "cache", 30*time.Second))
	}

	// Initialize repositories
	tenantRepo := repository.NewTenantRepository(db)
	contactRepo := repository.NewContactRepository(db)
	templateRepo := repository.NewMessageTemplateRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	variantRepo := repository.NewCampaignVariantRepository(db)
	itemRepo := repository.NewDispatchItemRepository(db)

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize queue producer
	producer := services.NewRedisQueueProducer(queueClient, cfg.Queue.PublishTimeout, services.RetryPolicy{
		MaxAttempts: cfg.Queue.RetryAttempts,
		BaseDelay:   cfg.Queue.RetryBaseDelay,
		MaxDelay:    cfg.Queue.RetryMaxDelay,
	})

	// Initialize flows
	campaignFlow := businessflow.NewCampaignFlow(
		campaignRepo,
		variantRepo,
		templateRepo,
		contactRepo,
		itemRepo,
		tenantRepo,
		db,
		cacheClient,
		&cfg.Cache,
	)

	launchFlow := businessflow.NewLaunchFlow(
		campaignRepo,
		variantRepo,
		templateRepo,
		contactRepo,
		itemRepo,
		tenantRepo,
		producer,
		businessflow.NewVariantAssigner(nil),
		cfg.Dispatch.Workers,
		nil,
		nil,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(tenantRepo, tokenService)
	campaignHandler := handlers.NewCampaignHandler(campaignFlow, launchFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		authHandler,
		campaignHandler,
		authMiddleware,
		db,
		producer,
	)

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewCampaignScheduler(campaignRepo, launchFlow, nil, cfg.Scheduler, nil)
		stopScheduler := sched.Start(context.Background())
		stopFuncs = append(stopFuncs, stopScheduler)
	}

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
