package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/warestock/backend/internal/domain/catalog"
	"github.com/warestock/backend/internal/domain/inventory"
	"github.com/warestock/backend/internal/infrastructure/config"
	"github.com/warestock/backend/internal/infrastructure/logger"
	"github.com/warestock/backend/internal/infrastructure/persistence"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, gormlogger.Warn)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	switch command {
	case "up":
		log.Info("Running schema migration", zap.String("database", cfg.Database.DBName))
		if err := db.DB.AutoMigrate(
			&catalog.Product{},
			&catalog.AlternateUOM{},
			&inventory.Inventory{},
			&inventory.StockMovement{},
			&inventory.InventoryAdjustment{},
			&inventory.InventoryAdjustmentItem{},
		); err != nil {
			log.Fatal("Schema migration failed", zap.Error(err))
		}
		log.Info("Schema migration completed")

	case "ping":
		if err := db.Ping(); err != nil {
			log.Fatal("Database ping failed", zap.Error(err))
		}
		log.Info("Database is reachable",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
		)

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Warestock Schema Migration Tool

Usage:
  migrate [flags] <command>

Commands:
  up      Create or update all inventory tables
  ping    Check database connectivity

Flags:
  -log-level string   Log level: debug, info, warn, error (default: info)

Environment Variables:
  WARESTOCK_DATABASE_HOST, WARESTOCK_DATABASE_PORT, WARESTOCK_DATABASE_USER,
  WARESTOCK_DATABASE_PASSWORD, WARESTOCK_DATABASE_DBNAME, WARESTOCK_DATABASE_SSLMODE`)
}
