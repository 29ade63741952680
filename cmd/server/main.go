package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"amlakpro/settlement-service/internal/config"
	"amlakpro/settlement-service/internal/handler"
	"amlakpro/settlement-service/internal/repository"
	"amlakpro/settlement-service/internal/service"
	pkgdb "amlakpro/settlement-service/pkg/db"
	"amlakpro/settlement-service/pkg/helpers"
	"amlakpro/settlement-service/pkg/logger"
	"amlakpro/settlement-service/pkg/metrics"
)

func main() {
	// Load environment variables, the .env file is optional
	_ = godotenv.Load()

	log := logger.NewLogger("settlement-service")
	cfg := config.LoadConfig()

	// Database connection
	db, err := sql.Open("mysql", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database")

	// Validate schema
	schemaGuard := pkgdb.NewSchemaGuard(db)
	if err := schemaGuard.ValidateTables([]pkgdb.TableSchema{
		{
			Name: "vaults",
			Columns: []pkgdb.ColumnType{
				{Name: "id", DataType: "bigint"},
				{Name: "name", DataType: "varchar"},
				{Name: "is_main", DataType: "tinyint"},
				{Name: "aed", DataType: "decimal"},
				{Name: "irr", DataType: "decimal"},
				{Name: "cash", DataType: "decimal"},
			},
		},
		{
			Name: "counterparties",
			Columns: []pkgdb.ColumnType{
				{Name: "id", DataType: "bigint"},
				{Name: "name", DataType: "varchar"},
				{Name: "role", DataType: "varchar"},
				{Name: "mobile", DataType: "varchar"},
				{Name: "aed", DataType: "decimal"},
				{Name: "irr", DataType: "decimal"},
			},
		},
		{
			Name: "exchange_rates",
			Columns: []pkgdb.ColumnType{
				{Name: "id", DataType: "bigint"},
				{Name: "buy_rate", DataType: "decimal"},
				{Name: "sell_rate", DataType: "decimal"},
			},
		},
		{
			Name: "transactions",
			Columns: []pkgdb.ColumnType{
				{Name: "id", DataType: "varchar"},
				{Name: "reference_number", DataType: "varchar"},
				{Name: "type", DataType: "varchar"},
				{Name: "kind", DataType: "varchar"},
				{Name: "amount", DataType: "decimal"},
				{Name: "status", DataType: "varchar"},
			},
		},
	}); err != nil {
		log.WithError(err).Warn("Schema validation warning")
	}
	// The duplicate-reference guarantee under concurrent submissions
	// rests on this index; refuse to start without it.
	if err := schemaGuard.RequireUniqueIndex("transactions", "reference_number"); err != nil {
		log.Fatalf("Schema validation failed: %v", err)
	}

	m := metrics.NewMetrics("settlement")
	validator := helpers.NewCustomValidator()

	// Initialize repositories
	vaultRepo := repository.NewVaultRepository(db)
	counterpartyRepo := repository.NewCounterpartyRepository(db)
	rateRepo := repository.NewRateRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)

	// Initialize services
	rateService := service.NewRateService(rateRepo)
	ledgerService := service.NewLedgerService(vaultRepo, counterpartyRepo, log, m)
	transferService := service.NewTransferService(transactionRepo, vaultRepo, counterpartyRepo, rateService, log, m)
	channel := service.NewKavenegarChannel(cfg.Kavenegar.APIKey, cfg.Kavenegar.Sender, log)
	batchService := service.NewBatchService(transactionRepo, vaultRepo, counterpartyRepo, channel, log, m)
	lifecycleService := service.NewLifecycleService(transactionRepo, vaultRepo, rateService, log, m)

	// Initialize handlers
	transferHandler := handler.NewTransferHandler(transferService, validator)
	batchHandler := handler.NewBatchHandler(batchService, validator)
	transactionHandler := handler.NewTransactionHandler(transactionRepo, lifecycleService)
	rateHandler := handler.NewRateHandler(rateService, validator)
	vaultHandler := handler.NewVaultHandler(vaultRepo, ledgerService, validator)
	counterpartyHandler := handler.NewCounterpartyHandler(counterpartyRepo, ledgerService, validator)

	app := fiber.New(fiber.Config{
		AppName:      "settlement-service",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})
	handler.RegisterRoutes(app, transferHandler, batchHandler, transactionHandler, rateHandler, vaultHandler, counterpartyHandler)

	// Metrics on a separate listener so the API port stays clean.
	metricsServer := &http.Server{
		Addr:    ":" + cfg.Server.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server error: %v", err)
		}
	}()

	go func() {
		log.Infof("Settlement service listening on port %s", cfg.Server.HTTPPort)
		if err := app.Listen(":" + cfg.Server.HTTPPort); err != nil {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorf("Shutdown error: %v", err)
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Metrics shutdown error: %v", err)
	}
	log.Info("Server stopped")
}
