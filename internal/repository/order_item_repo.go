package repository

import (
	"context"

	"storefront-service/internal/models"

	"gorm.io/gorm"
)

// OrderItemRepo пишет снимок позиций заказа; читаются они через Preload("Items") в OrderRepo.
type OrderItemRepo interface {
	BulkCreate(ctx context.Context, items []models.OrderItem) error
}

type orderItemRepo struct{ db *gorm.DB }

func NewOrderItemRepo(db *gorm.DB) OrderItemRepo { return &orderItemRepo{db: db} }

func (r *orderItemRepo) BulkCreate(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}
