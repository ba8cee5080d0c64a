package service

import (
	"context"

	"storefront-service/internal/models"

	"github.com/google/uuid"
)

type CreateOrderInput struct {
	PaymentMethod     models.PaymentMethod
	DeliveryMethod    models.DeliveryMethod
	DeliveryAddressID *uuid.UUID
	PickupLocationID  *uuid.UUID
	Notes             string
}

// CreateOrderResult: для online заполнен Checkout, иначе Order.
type CreateOrderResult struct {
	Order    *models.Order
	Checkout *models.CheckoutSession
}

type ListFilter struct {
	UserID *uuid.UUID
	Status *models.OrderStatus
	Limit  int
	Offset int
}

type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error)
	CancelOrder(ctx context.Context, id uuid.UUID, reason *string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
	GetCheckoutSession(ctx context.Context, reference string) (*models.CheckoutSession, error)
}
