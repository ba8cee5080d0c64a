package repository

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CheckoutRepo interface {
	Create(ctx context.Context, s *models.CheckoutSession) error
	GetByReference(ctx context.Context, reference string) (*models.CheckoutSession, error)
	// ExpirePending помечает просроченные pending-сессии как expired.
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

type checkoutRepo struct{ db *gorm.DB }

func NewCheckoutRepo(db *gorm.DB) CheckoutRepo { return &checkoutRepo{db: db} }

func (r *checkoutRepo) Create(ctx context.Context, s *models.CheckoutSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *checkoutRepo) GetByReference(ctx context.Context, reference string) (*models.CheckoutSession, error) {
	var s models.CheckoutSession
	err := r.db.WithContext(ctx).First(&s, "reference = ?", reference).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

func (r *checkoutRepo) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("status = ? AND expires_at < ?", models.CheckoutStatusPending, now).
		Updates(map[string]any{"status": models.CheckoutStatusExpired, "updated_at": now})
	return tx.RowsAffected, tx.Error
}

// NewReference — внешний идентификатор сессии для платёжного шлюза.
func NewReference() string {
	return "CHK-" + uuid.NewString()
}
