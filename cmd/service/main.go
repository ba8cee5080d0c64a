package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"storefront-service/config"
	_ "storefront-service/docs"
	"storefront-service/internal/cache"
	"storefront-service/internal/cleanup"
	"storefront-service/internal/producer"
	"storefront-service/internal/repository"
	"storefront-service/internal/router"
	"storefront-service/internal/service"
	"storefront-service/internal/token"
	"storefront-service/pkg/database"
	"storefront-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// @Title OrderHub Storefront API
// @Version 1.0
// @Description Корзина, резерв остатков, расчёт стоимости и оформление заказов
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
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

	var settingsCache service.SettingsCache
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSeconds)*time.Second, log)
		if err != nil {
			log.Fatal("failed to create redis client", zap.Error(err))
		}
		defer redisClient.Close()
		settingsCache = redisClient
		log.Info("Redis cache enabled")
	} else {
		log.Info("Redis cache disabled")
	}

	var events service.EventBus
	if len(cfg.Kafka.Brokers) > 0 {
		p := producer.NewOrderEventProducer(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic)
		defer p.Close()
		events = p
		log.Info("Kafka events enabled", zap.String("topic", cfg.Kafka.OrdersTopic))
	} else {
		log.Info("Kafka events disabled")
	}

	settings := service.NewSettingsService(repos.Settings, settingsCache, log)
	ledger := service.NewStockLedger(log)
	carts := service.NewCartService(repos, settings, ledger, log)
	orders := service.NewOrderService(repos, settings, ledger, events, cfg.Checkout.SessionTTL, log)
	stock := service.NewInventoryService(repos, ledger, log)

	cleanupSvc := cleanup.NewCleanupService(repos, carts, cfg.Cleanup.CartExpiry, log)
	scheduler := cleanup.NewScheduler(cleanupSvc, cfg.Cleanup.Interval, log)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	scheduler.Start(cleanupCtx)

	verifier := token.NewHSVerifier(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)
	r := router.Router(router.Services{
		Carts:    carts,
		Orders:   orders,
		Settings: settings,
		Stock:    stock,
	}, verifier, log)

	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down HTTP server...")

	// Останавливаем планировщик
	scheduler.Stop()
	cleanupCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
		return
	}
	log.Info("HTTP server stopped gracefully")
}
