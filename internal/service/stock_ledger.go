package service

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockMove описывает одно изменение остатка для журнала stock_movements.
type StockMove struct {
	Size        string
	Color       string
	Quantity    int32
	Reason      models.MovementReason
	ReferenceID *uuid.UUID
}

// StockLedger — единственное место, где меняется stock_quantity.
// Все методы работают на tx-репозитории; товар должен быть заблокирован через LockProduct
// в той же транзакции до вызова Reserve/Release/Adjust.
type StockLedger struct {
	log *zap.Logger
	now func() time.Time
}

func NewStockLedger(log *zap.Logger) *StockLedger {
	if log == nil {
		log = zap.NewNop()
	}
	return &StockLedger{log: log, now: time.Now}
}

func (l *StockLedger) LockProduct(ctx context.Context, tx *repository.Repository, productID uuid.UUID) (*models.Product, error) {
	p, err := tx.Products.GetByIDForUpdate(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("lock product: %w", err)
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (l *StockLedger) Reserve(ctx context.Context, tx *repository.Repository, p *models.Product, m StockMove) error {
	if m.Quantity <= 0 {
		return ErrQuantityInvalid
	}
	_, err := l.Adjust(ctx, tx, p, m, -m.Quantity)
	return err
}

func (l *StockLedger) Release(ctx context.Context, tx *repository.Repository, p *models.Product, m StockMove) error {
	if m.Quantity <= 0 {
		return ErrQuantityInvalid
	}
	_, err := l.Adjust(ctx, tx, p, m, m.Quantity)
	return err
}

// Adjust применяет delta к остатку варианта (если есть строка для size/color) или товара.
// Отрицательный результат отклоняется с *InsufficientStockError. Возвращает новый остаток.
func (l *StockLedger) Adjust(ctx context.Context, tx *repository.Repository, p *models.Product, m StockMove, delta int32) (int32, error) {
	if delta == 0 {
		return p.StockQuantity, nil
	}

	v, err := tx.Products.GetVariantForUpdate(ctx, p.ID, m.Size, m.Color)
	if err != nil {
		return 0, fmt.Errorf("lock variant: %w", err)
	}

	before := p.StockQuantity
	var variantID *uuid.UUID
	if v != nil {
		before = v.StockQuantity
		variantID = &v.ID
	}

	if before+delta < 0 {
		return 0, &InsufficientStockError{ProductID: p.ID, Requested: -delta, Available: before}
	}

	var ok bool
	if v != nil {
		ok, err = tx.Products.AdjustVariantStock(ctx, v.ID, delta)
	} else {
		ok, err = tx.Products.AdjustStock(ctx, p.ID, delta)
	}
	if err != nil {
		return 0, fmt.Errorf("adjust stock: %w", err)
	}
	if !ok {
		// строка заблокирована, сюда попадаем только если блокировку не взяли
		return 0, &InsufficientStockError{ProductID: p.ID, Requested: -delta, Available: before}
	}

	after := before + delta
	if v != nil {
		v.StockQuantity = after
	} else {
		p.StockQuantity = after
	}

	if err := tx.Products.LogMovement(ctx, &models.StockMovement{
		ProductID:      p.ID,
		VariantID:      variantID,
		Delta:          delta,
		QuantityBefore: before,
		QuantityAfter:  after,
		Reason:         m.Reason,
		ReferenceID:    m.ReferenceID,
		CreatedAt:      l.now().UTC(),
	}); err != nil {
		return 0, fmt.Errorf("log stock movement: %w", err)
	}

	l.log.Debug("stock adjusted",
		zap.String("product_id", p.ID.String()),
		zap.Int32("delta", delta),
		zap.Int32("after", after),
		zap.String("reason", string(m.Reason)),
	)
	return after, nil
}
