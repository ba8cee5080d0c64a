package service

import (
	"context"
	"time"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartLine struct {
	ItemID                  uuid.UUID
	ProductID               uuid.UUID
	ProductName             string
	Size                    string
	Color                   string
	Quantity                int32
	UnitPrice               decimal.Decimal
	LineTotal               decimal.Decimal
	StockQuantity           int32
	IsActive                bool
	RequiresSpecialDelivery bool
	DeliveryEligible        bool
	PickupEligible          bool
}

type CartView struct {
	CartID          uuid.UUID
	UserID          uuid.UUID
	DeliveryMethod  models.DeliveryMethod
	DeliveryZoneID  *uuid.UUID
	DeliveryZoneFee decimal.Decimal
	Items           []CartLine
	Totals          Totals
	UpdatedAt       time.Time
}

type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int32
	Size      string
	Color     string
}

type SetDeliveryInput struct {
	Method models.DeliveryMethod
	ZoneID *uuid.UUID
}

type CartService interface {
	GetCart(ctx context.Context) (*CartView, error)
	AddItem(ctx context.Context, in AddItemInput) (*CartView, error)
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int32) (*CartView, error)
	RemoveItem(ctx context.Context, itemID uuid.UUID) (*CartView, error)
	ClearCart(ctx context.Context) (*CartView, error)
	SetDelivery(ctx context.Context, in SetDeliveryInput) (*CartView, error)

	// ReleaseIdleCart возвращает на склад резерв корзины, не менявшейся с cutoff.
	// Возвращает число освобождённых позиций; 0, если корзина успела измениться.
	ReleaseIdleCart(ctx context.Context, cartID uuid.UUID, cutoff time.Time) (int, error)
}
