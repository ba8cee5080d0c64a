package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront-service/pkg/database"

	"go.uber.org/zap"
)

type Config struct {
	Port     string
	JWT      JWT
	DB       DB
	Redis    Redis
	Kafka    Kafka
	Cleanup  Cleanup
	Checkout Checkout
}

type JWT struct {
	Secret   string
	Issuer   string
	Audience string
}

type DB struct {
	database.Config
}

type Redis struct {
	Enabled    bool
	Addr       string
	Password   string
	DB         int
	TTLSeconds int
}

// Kafka: пустой Brokers — события не публикуются.
type Kafka struct {
	Brokers     []string
	OrdersTopic string
}

// Cleanup: CartExpiry == 0 — резерв в корзине не истекает.
type Cleanup struct {
	CartExpiry time.Duration
	Interval   time.Duration
}

type Checkout struct {
	SessionTTL time.Duration
}

func Load(log *zap.Logger) *Config {
	return &Config{
		Port: getEnv("APP_PORT", log),
		JWT: JWT{
			Secret:   getEnv("JWT_SECRET", log),
			Issuer:   getEnv("JWT_ISSUER", log),
			Audience: getEnv("JWT_AUDIENCE", log),
		},
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnvDefault("DB_SSLMODE", "disable"),
			},
		},
		Redis: Redis{
			Enabled:    getEnvDefault("REDIS_ENABLED", "false") == "true",
			Addr:       getEnvDefault("REDIS_ADDR", "localhost:6379"),
			Password:   getEnvDefault("REDIS_PASSWORD", ""),
			DB:         atoiDefault(getEnvDefault("REDIS_DB", "0"), 0),
			TTLSeconds: atoiDefault(getEnvDefault("SETTINGS_CACHE_TTL_SECONDS", "60"), 60),
		},
		Kafka: Kafka{
			Brokers:     splitList(getEnvDefault("KAFKA_BROKERS", "")),
			OrdersTopic: getEnvDefault("KAFKA_TOPIC_ORDERS", "storefront.orders"),
		},
		Cleanup: Cleanup{
			CartExpiry: parseDurationWithDays(getEnvDefault("CART_EXPIRY", "0")),
			Interval:   parseDurationWithDays(getEnvDefault("CLEANUP_INTERVAL", "15m")),
		},
		Checkout: Checkout{
			SessionTTL: parseDurationWithDays(getEnvDefault("CHECKOUT_SESSION_TTL", "30m")),
		},
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDurationWithDays(s string) time.Duration {
	if s == "0" {
		return 0
	}
	if strings.HasSuffix(s, "d") {
		daysStr := strings.TrimSuffix(s, "d")
		days, err := time.ParseDuration(daysStr + "h")
		if err != nil {
			log.Printf("Ошибка парсинга длительности: %v", err)
			return 0
		}
		return time.Duration(24) * days
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return duration
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
