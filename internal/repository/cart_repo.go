package repository

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	// EnsureForUser создаёт корзину, если её ещё нет (гонка разрешается UNIQUE(user_id)).
	EnsureForUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	UpdateDelivery(ctx context.Context, cartID uuid.UUID, method models.DeliveryMethod, zoneID *uuid.UUID) error
	Touch(ctx context.Context, cartID uuid.UUID) error
	Delete(ctx context.Context, cartID uuid.UUID) (bool, error)
	// ListIdleSince — корзины с позициями, не менявшиеся с cutoff.
	ListIdleSince(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error)
}

type cartRepo struct{ db *gorm.DB }

func NewCartRepo(db *gorm.DB) CartRepo { return &cartRepo{db: db} }

func (r *cartRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var c models.Cart
	err := r.db.WithContext(ctx).First(&c, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &c, err
}

func (r *cartRepo) GetByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var c models.Cart
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &c, err
}

func (r *cartRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var c models.Cart
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &c, err
}

func (r *cartRepo) EnsureForUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	c := &models.Cart{
		UserID:         userID,
		DeliveryMethod: models.DeliveryMethodPickup,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(c).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

func (r *cartRepo) UpdateDelivery(ctx context.Context, cartID uuid.UUID, method models.DeliveryMethod, zoneID *uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Cart{}).Where("id = ?", cartID).Updates(map[string]any{
		"delivery_method":  method,
		"delivery_zone_id": zoneID,
		"updated_at":       time.Now().UTC(),
	}).Error
}

func (r *cartRepo) Touch(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Cart{}).Where("id = ?", cartID).Update("updated_at", time.Now().UTC()).Error
}

func (r *cartRepo) Delete(ctx context.Context, cartID uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Delete(&models.Cart{}, "id = ?", cartID)
	return tx.RowsAffected > 0, tx.Error
}

func (r *cartRepo) ListIdleSince(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []models.Cart
	err := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Where("EXISTS (SELECT 1 FROM cart_items ci WHERE ci.cart_id = carts.id)").
		Order("updated_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
