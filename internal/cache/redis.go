package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const settingsKey = "storefront:settings"

type RedisClient struct {
	client      *redis.Client
	log         *zap.Logger
	settingsTTL time.Duration
}

func NewRedisClient(addr, password string, db int, settingsTTL time.Duration, log *zap.Logger) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis connected successfully", zap.String("addr", addr))

	if settingsTTL <= 0 {
		settingsTTL = time.Minute
	}
	return &RedisClient{
		client:      rdb,
		log:         log,
		settingsTTL: settingsTTL,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Кэш настроек магазина (service.SettingsCache)
func (r *RedisClient) GetSettings(ctx context.Context) (*service.Settings, error) {
	raw, err := r.client.Get(ctx, settingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st service.Settings
	if err := json.Unmarshal(raw, &st); err != nil {
		// битое значение — считаем промахом
		r.log.Warn("corrupted settings in cache", zap.Error(err))
		return nil, nil
	}
	return &st, nil
}

func (r *RedisClient) SetSettings(ctx context.Context, st service.Settings) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, settingsKey, raw, r.settingsTTL).Err()
}

func (r *RedisClient) InvalidateSettings(ctx context.Context) error {
	return r.client.Del(ctx, settingsKey).Err()
}

// Ping для /health
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
