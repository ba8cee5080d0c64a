package repository

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepo interface {
	// Get возвращает (nil, nil), если строки id=1 нет.
	Get(ctx context.Context) (*models.AppSettings, error)
	Upsert(ctx context.Context, s *models.AppSettings) error
}

type settingsRepo struct{ db *gorm.DB }

func NewSettingsRepo(db *gorm.DB) SettingsRepo { return &settingsRepo{db: db} }

func (r *settingsRepo) Get(ctx context.Context) (*models.AppSettings, error) {
	var s models.AppSettings
	err := r.db.WithContext(ctx).First(&s, "id = ?", models.AppSettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

func (r *settingsRepo) Upsert(ctx context.Context, s *models.AppSettings) error {
	s.ID = models.AppSettingsID
	s.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"tax_rate",
				"free_shipping_threshold",
				"large_order_quantity_threshold",
				"large_order_delivery_fee",
				"updated_at",
			}),
		}).
		Create(s).Error
}
