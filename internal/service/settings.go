package service

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Settings struct {
	TaxRate                     decimal.Decimal `json:"tax_rate"`
	FreeShippingThreshold       decimal.Decimal `json:"free_shipping_threshold"`
	LargeOrderQuantityThreshold int32           `json:"large_order_quantity_threshold"`
	LargeOrderDeliveryFee       decimal.Decimal `json:"large_order_delivery_fee"`
}

// DefaultSettings используются, пока в app_settings нет строки id=1.
func DefaultSettings() Settings {
	return Settings{
		TaxRate:                     decimal.NewFromInt(10),
		FreeShippingThreshold:       decimal.NewFromInt(100),
		LargeOrderQuantityThreshold: 10,
		LargeOrderDeliveryFee:       decimal.NewFromInt(50),
	}
}

// SettingsPatch — только заданные поля меняются.
type SettingsPatch struct {
	TaxRate                     *decimal.Decimal
	FreeShippingThreshold       *decimal.Decimal
	LargeOrderQuantityThreshold *int32
	LargeOrderDeliveryFee       *decimal.Decimal
}

// SettingsCache — необязательный read-through кэш (redis).
type SettingsCache interface {
	GetSettings(ctx context.Context) (*Settings, error)
	SetSettings(ctx context.Context, s Settings) error
	InvalidateSettings(ctx context.Context) error
}

type SettingsProvider interface {
	GetSettings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, p SettingsPatch) (Settings, error)
}

type settingsService struct {
	repo  repository.SettingsRepo
	cache SettingsCache
	log   *zap.Logger
}

func NewSettingsService(repo repository.SettingsRepo, cache SettingsCache, log *zap.Logger) SettingsProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &settingsService{repo: repo, cache: cache, log: log}
}

func settingsFromModel(m *models.AppSettings) Settings {
	return Settings{
		TaxRate:                     m.TaxRate,
		FreeShippingThreshold:       m.FreeShippingThreshold,
		LargeOrderQuantityThreshold: m.LargeOrderQuantityThreshold,
		LargeOrderDeliveryFee:       m.LargeOrderDeliveryFee,
	}
}

func (s *settingsService) GetSettings(ctx context.Context) (Settings, error) {
	if s.cache != nil {
		cached, err := s.cache.GetSettings(ctx)
		if err != nil {
			s.log.Warn("settings cache read failed", zap.Error(err))
		} else if cached != nil {
			return *cached, nil
		}
	}

	return s.load(ctx)
}

func (s *settingsService) load(ctx context.Context) (Settings, error) {
	row, err := s.repo.Get(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}

	st := DefaultSettings()
	if row != nil {
		st = settingsFromModel(row)
	}

	if s.cache != nil {
		if err := s.cache.SetSettings(ctx, st); err != nil {
			s.log.Warn("settings cache write failed", zap.Error(err))
		}
	}
	return st, nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, p SettingsPatch) (Settings, error) {
	if err := requireAdmin(ctx); err != nil {
		return Settings{}, err
	}

	row, err := s.repo.Get(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	st := DefaultSettings()
	if row != nil {
		st = settingsFromModel(row)
	}

	if p.TaxRate != nil {
		if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(hundred) {
			return Settings{}, ErrInvalidSettings
		}
		st.TaxRate = *p.TaxRate
	}
	if p.FreeShippingThreshold != nil {
		if p.FreeShippingThreshold.IsNegative() {
			return Settings{}, ErrInvalidSettings
		}
		st.FreeShippingThreshold = *p.FreeShippingThreshold
	}
	if p.LargeOrderQuantityThreshold != nil {
		if *p.LargeOrderQuantityThreshold <= 0 {
			return Settings{}, ErrInvalidSettings
		}
		st.LargeOrderQuantityThreshold = *p.LargeOrderQuantityThreshold
	}
	if p.LargeOrderDeliveryFee != nil {
		if p.LargeOrderDeliveryFee.IsNegative() {
			return Settings{}, ErrInvalidSettings
		}
		st.LargeOrderDeliveryFee = *p.LargeOrderDeliveryFee
	}

	if err := s.repo.Upsert(ctx, &models.AppSettings{
		TaxRate:                     st.TaxRate,
		FreeShippingThreshold:       st.FreeShippingThreshold,
		LargeOrderQuantityThreshold: st.LargeOrderQuantityThreshold,
		LargeOrderDeliveryFee:       st.LargeOrderDeliveryFee,
	}); err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateSettings(ctx); err != nil {
			s.log.Warn("settings cache invalidate failed", zap.Error(err))
		}
	}

	s.log.Info("settings updated",
		zap.String("tax_rate", st.TaxRate.String()),
		zap.String("free_shipping_threshold", st.FreeShippingThreshold.String()),
		zap.Int32("large_order_quantity_threshold", st.LargeOrderQuantityThreshold),
		zap.String("large_order_delivery_fee", st.LargeOrderDeliveryFee.String()),
	)
	return st, nil
}
