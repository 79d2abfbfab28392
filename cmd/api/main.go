package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	"github.com/rica-io/payment-engine/internal/domain/usecase/ledger"
	"github.com/rica-io/payment-engine/internal/domain/usecase/payment"
	"github.com/rica-io/payment-engine/internal/domain/usecase/reconcile"
	"github.com/rica-io/payment-engine/internal/domain/usecase/subscription"

	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/api/handler"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/api/routes"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/database"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/gateway"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/logger"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/repository"
	timeProvider "github.com/rica-io/payment-engine/internal/infrastructure/adapter/time"
	"github.com/rica-io/payment-engine/internal/infrastructure/config"
	"github.com/rica-io/payment-engine/internal/infrastructure/scheduler"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := logger.NewZapLogger(cfg.Environment == config.Production)
	defer func() { _ = appLogger.Flush() }()

	tp := timeProvider.NewRealTimeProvider()

	// Database
	dbConn, err := database.NewConnection(&database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Username:        cfg.Database.Username,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		appLogger.Error("Failed to connect to database", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer func() { _ = dbConn.Close() }()

	if err := dbConn.Migrate(appLogger); err != nil {
		appLogger.Error("Failed to run migrations", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	// Adapters
	transactionRepo := repository.NewTransactionRepository(dbConn.DB, appLogger)
	subscriptionRepo := repository.NewSubscriptionRepository(dbConn.DB, appLogger)
	uow := database.NewUnitOfWork(dbConn.DB, appLogger)

	gatewayClient := gateway.NewClickPesaClient(gateway.Config{
		BaseURL:     cfg.Gateway.BaseURL,
		APIKey:      cfg.Gateway.APIKey,
		HTTPTimeout: cfg.Gateway.HTTPTimeout,
	}, appLogger)

	// Use cases
	catalog := entity.DefaultCatalog()

	stateMachine := payment.NewStateMachine(transactionRepo, gatewayClient, tp, appLogger, payment.Config{
		MaxPollWindow:      cfg.Payment.MaxPollWindow,
		GatewayCallTimeout: cfg.Payment.GatewayCallTimeout,
	})
	ledgerService := ledger.NewService(uow, tp, appLogger)
	subscriptionService := subscription.NewService(subscriptionRepo, transactionRepo, catalog, tp, appLogger)
	coordinator := reconcile.NewCoordinator(stateMachine, ledgerService, subscriptionService, catalog, appLogger)

	// Background sweeps
	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	sched := scheduler.NewScheduler(stateMachine, subscriptionService, appLogger, scheduler.Config{
		PollInterval:   cfg.Scheduler.PollInterval,
		ExpiryInterval: cfg.Scheduler.ExpiryInterval,
		BatchSize:      cfg.Scheduler.BatchSize,
		Concurrency:    cfg.Scheduler.Concurrency,
	})
	sched.Start(sweepCtx)

	// HTTP API
	paymentHandler := handler.NewPaymentHandler(coordinator, stateMachine, appLogger)
	creditHandler := handler.NewCreditHandler(ledgerService, catalog, appLogger)
	subscriptionHandler := handler.NewSubscriptionHandler(coordinator, subscriptionService, appLogger)
	catalogHandler := handler.NewCatalogHandler(catalog)

	router := gin.New()
	routes.SetupMiddlewares(router, appLogger)
	routes.SetupRoutes(router, paymentHandler, creditHandler, subscriptionHandler, catalogHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("Starting server", map[string]any{
			"port": cfg.Server.Port,
			"env":  cfg.Environment,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...", nil)

	stopSweeps()
	sched.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", map[string]any{"error": err.Error()})
	}

	appLogger.Info("Server exited gracefully", nil)
}

// validateConfig ensures all required configuration values are present
func validateConfig(cfg *config.Config) error {
	var missingConfigs []string

	if cfg.Server.Port == 0 {
		missingConfigs = append(missingConfigs, "server.port")
	}
	if cfg.Server.ReadTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.readTimeout")
	}
	if cfg.Server.WriteTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.writeTimeout")
	}
	if cfg.Server.ShutdownTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.shutdownTimeout")
	}

	if cfg.Database.Host == "" {
		missingConfigs = append(missingConfigs, "database.host (or RICA_DB_HOST environment variable)")
	}
	if cfg.Database.Username == "" {
		missingConfigs = append(missingConfigs, "database.username (or RICA_DB_USERNAME environment variable)")
	}
	if cfg.Database.Database == "" {
		missingConfigs = append(missingConfigs, "database.database (or RICA_DB_NAME environment variable)")
	}

	if cfg.Gateway.BaseURL == "" {
		missingConfigs = append(missingConfigs, "gateway.baseUrl")
	}
	if cfg.Environment == config.Production && cfg.Gateway.APIKey == "" {
		missingConfigs = append(missingConfigs, "gateway.apiKey (or RICA_GATEWAY_API_KEY environment variable)")
	}

	if cfg.Environment == "" {
		missingConfigs = append(missingConfigs, "environment")
	} else if cfg.Environment != config.Development &&
		cfg.Environment != config.Production &&
		cfg.Environment != config.Test {
		return fmt.Errorf("invalid environment value: %s, must be one of: %s, %s, or %s",
			cfg.Environment, config.Development, config.Production, config.Test)
	}

	if len(missingConfigs) > 0 {
		return fmt.Errorf("missing required configurations: %v", missingConfigs)
	}
	return nil
}
