package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"voucher-market/internal/config"
	"voucher-market/internal/database"
	"voucher-market/internal/logging"
)

// Creates or updates the schema and seeds the default categories
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.IsProduction(), cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.GetDSN(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	if err := database.AutoMigrate(db, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	seeded, err := database.SeedCategories(context.Background(), db)
	if err != nil {
		logger.Fatal("Failed to seed categories", zap.Error(err))
	}

	logger.Info("Migration finished", zap.Int64("categories_seeded", seeded))
}
