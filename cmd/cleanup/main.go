package main

import (
	"context"
	"fmt"
	"os"

	"storefront-service/config"
	"storefront-service/internal/cleanup"
	"storefront-service/internal/repository"
	"storefront-service/internal/service"
	"storefront-service/pkg/database"
	"storefront-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()
	cfg := config.Load(log)

	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	repos := repository.New(db)
	settings := service.NewSettingsService(repos.Settings, nil, log)
	carts := service.NewCartService(repos, settings, service.NewStockLedger(log), log)
	cleanupSvc := cleanup.NewCleanupService(repos, carts, cfg.Cleanup.CartExpiry, log)

	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/cleanup/main.go [carts|checkouts|all]")
		fmt.Println("  carts     - release stock held by carts idle longer than CART_EXPIRY")
		fmt.Println("  checkouts - expire stale pending checkout sessions")
		fmt.Println("  all       - run full cleanup (default)")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "carts":
		log.Info("running idle carts cleanup")
		if cfg.Cleanup.CartExpiry <= 0 {
			log.Warn("CART_EXPIRY is 0, nothing to release")
		}
		if err := cleanupSvc.ReleaseIdleCarts(ctx); err != nil {
			log.Fatal("failed to release idle carts", zap.Error(err))
		}
	case "checkouts":
		log.Info("running checkout sessions cleanup")
		if err := cleanupSvc.ExpireCheckoutSessions(ctx); err != nil {
			log.Fatal("failed to expire checkout sessions", zap.Error(err))
		}
	default:
		log.Info("running full cleanup")
		if err := cleanupSvc.RunFullCleanup(ctx); err != nil {
			log.Fatal("failed to run full cleanup", zap.Error(err))
		}
	}

	log.Info("cleanup completed successfully")
}
