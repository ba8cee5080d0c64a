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

type CartItemRepo interface {
	Create(ctx context.Context, it *models.CartItem) error
	GetByID(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	GetByIDForUpdate(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	FindByKeyForUpdate(ctx context.Context, cartID, productID uuid.UUID, size, color string) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, itemID uuid.UUID, qty int32) error
	Delete(ctx context.Context, itemID uuid.UUID) (bool, error)
	ListByCart(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	ListByCartForUpdate(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	DeleteByCart(ctx context.Context, cartID uuid.UUID) (int64, error)
}

type cartItemRepo struct{ db *gorm.DB }

func NewCartItemRepo(db *gorm.DB) CartItemRepo { return &cartItemRepo{db: db} }

func (r *cartItemRepo) Create(ctx context.Context, it *models.CartItem) error {
	return r.db.WithContext(ctx).Create(it).Error
}

func (r *cartItemRepo) GetByID(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var it models.CartItem
	err := r.db.WithContext(ctx).First(&it, "id = ? AND cart_id = ?", itemID, cartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &it, err
}

func (r *cartItemRepo) GetByIDForUpdate(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var it models.CartItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&it, "id = ? AND cart_id = ?", itemID, cartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &it, err
}

func (r *cartItemRepo) FindByKeyForUpdate(ctx context.Context, cartID, productID uuid.UUID, size, color string) (*models.CartItem, error) {
	var it models.CartItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ? AND product_id = ? AND size = ? AND color = ?", cartID, productID, size, color).
		First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &it, err
}

func (r *cartItemRepo) UpdateQuantity(ctx context.Context, itemID uuid.UUID, qty int32) error {
	return r.db.WithContext(ctx).Model(&models.CartItem{}).Where("id = ?", itemID).Updates(map[string]any{
		"quantity":   qty,
		"updated_at": time.Now().UTC(),
	}).Error
}

func (r *cartItemRepo) Delete(ctx context.Context, itemID uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ?", itemID)
	return tx.RowsAffected > 0, tx.Error
}

func (r *cartItemRepo) ListByCart(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *cartItemRepo) ListByCartForUpdate(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *cartItemRepo) DeleteByCart(ctx context.Context, cartID uuid.UUID) (int64, error) {
	tx := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{})
	return tx.RowsAffected, tx.Error
}
