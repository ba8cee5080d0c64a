package service

import (
	"context"
	"time"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderItemEvent struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type OrderPlacedEvent struct {
	OrderID        uuid.UUID             `json:"order_id"`
	OrderNumber    string                `json:"order_number"`
	UserID         uuid.UUID             `json:"user_id"`
	PaymentMethod  models.PaymentMethod  `json:"payment_method"`
	DeliveryMethod models.DeliveryMethod `json:"delivery_method"`
	Items          []OrderItemEvent      `json:"items"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	TaxAmount      decimal.Decimal       `json:"tax_amount"`
	ShippingFee    decimal.Decimal       `json:"shipping_fee"`
	TotalAmount    decimal.Decimal       `json:"total_amount"`
	CreatedAt      time.Time             `json:"created_at"`
}

type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type CheckoutCreatedEvent struct {
	SessionID   uuid.UUID       `json:"session_id"`
	Reference   string          `json:"reference"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// EventBus публикует события после коммита. nil — публикация выключена.
type EventBus interface {
	PublishOrderPlaced(ctx context.Context, e OrderPlacedEvent) error
	PublishOrderCancelled(ctx context.Context, e OrderCancelledEvent) error
	PublishCheckoutCreated(ctx context.Context, e CheckoutCreatedEvent) error
}
