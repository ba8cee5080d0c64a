package service

import (
	"errors"
	"fmt"

	"storefront-service/internal/models"

	"github.com/google/uuid"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrInsufficientStock          = errors.New("insufficient stock")
	ErrProductUnavailable         = errors.New("product unavailable")
	ErrProductNotFound            = errors.New("product not found")
	ErrItemNotFound               = errors.New("cart item not found")
	ErrZoneRequired               = errors.New("delivery zone is required for delivery")
	ErrInvalidZone                = errors.New("invalid delivery zone")
	ErrEmptyCart                  = errors.New("cart is empty")
	ErrDeliveryMethodIncompatible = errors.New("delivery method incompatible with cart items")
	ErrInvalidAddress             = errors.New("invalid delivery address")
	ErrInvalidPickupLocation      = errors.New("invalid pickup location")

	ErrQuantityInvalid        = errors.New("quantity must be > 0")
	ErrInvalidDeliveryMethod  = errors.New("invalid delivery method")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
	ErrPaymentMethodMismatch  = errors.New("payment method does not match delivery method")
	ErrAddressRequired        = errors.New("delivery address is required")
	ErrPickupLocationRequired = errors.New("pickup location is required")
	ErrInvalidSettings        = errors.New("invalid settings")

	ErrOrderNotFound           = errors.New("order not found")
	ErrCheckoutNotFound        = errors.New("checkout session not found")
	ErrAlreadyCancelled        = errors.New("order already cancelled")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrOrderNumberExhausted    = errors.New("could not generate unique order number")
)

// InsufficientStockError несёт остаток, который видела транзакция под блокировкой.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type IncompatibleItem struct {
	CartItemID  uuid.UUID
	ProductID   uuid.UUID
	ProductName string
}

type DeliveryMethodIncompatibleError struct {
	Method models.DeliveryMethod
	Items  []IncompatibleItem
}

func (e *DeliveryMethodIncompatibleError) Error() string {
	return fmt.Sprintf("%d item(s) not eligible for %s", len(e.Items), e.Method)
}

func (e *DeliveryMethodIncompatibleError) Is(target error) bool {
	return target == ErrDeliveryMethodIncompatible
}
