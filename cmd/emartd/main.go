// eMart Core - Inventory Operations Backend
//
// This is the main entry point for the eMart Core daemon. It serves the
// REST API and WebSocket alert feed that the operations console talks
// to: authentication, catalogue, stock movements, invoices, the
// maker/checker approval queue, and the audit trail.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/emart-ops/emart-core/migrations"

	"github.com/emart-ops/emart-core/internal/api"
	"github.com/emart-ops/emart-core/internal/approval"
	"github.com/emart-ops/emart-core/internal/audit"
	"github.com/emart-ops/emart-core/internal/auth"
	"github.com/emart-ops/emart-core/internal/infrastructure/config"
	"github.com/emart-ops/emart-core/internal/infrastructure/database"
	"github.com/emart-ops/emart-core/internal/infrastructure/logging"
	"github.com/emart-ops/emart-core/internal/inventory"
	"github.com/emart-ops/emart-core/internal/invoice"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting eMart Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories share the single SQLite connection
	users := auth.NewUserRepository(db.DB)
	items := inventory.NewItemRepository(db.DB)
	stock := inventory.NewStockRepository(db.DB)
	thresholds := inventory.NewThresholdRepository(db.DB)
	invoices := invoice.NewRepository(db.DB)
	approvals := approval.NewRepository(db.DB)
	auditLog := audit.NewSQLiteRepository(db.DB)

	// First boot: create the initial manager account so someone can log in
	if _, seedErr := auth.SeedManager(ctx, users, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding manager account: %w", seedErr)
	}

	server, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Logger:     log,
		Users:      users,
		Items:      items,
		Stock:      stock,
		Thresholds: thresholds,
		Invoices:   invoices,
		Approvals:  approvals,
		Audit:      auditLog,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"websocket", cfg.WebSocket.Path,
	)

	if healthErr := healthCheck(ctx, db, server); healthErr != nil {
		return fmt.Errorf("health check failed: %w", healthErr)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (drains in-flight requests)
	// 2. Database

	log.Info("eMart Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses EMART_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("EMART_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure components are healthy.
func healthCheck(ctx context.Context, db *database.DB, server *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
