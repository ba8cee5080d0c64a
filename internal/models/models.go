package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DeliveryMethod string

const (
	DeliveryMethodPickup   DeliveryMethod = "pickup"
	DeliveryMethodDelivery DeliveryMethod = "delivery"
)

func (m DeliveryMethod) Valid() bool {
	return m == DeliveryMethodPickup || m == DeliveryMethodDelivery
}

type PaymentMethod string

const (
	PaymentMethodOnline     PaymentMethod = "online"
	PaymentMethodOnDelivery PaymentMethod = "on_delivery"
	PaymentMethodOnPickup   PaymentMethod = "on_pickup"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodOnline, PaymentMethodOnDelivery, PaymentMethodOnPickup:
		return true
	}
	return false
}

// Статусы заказа хранятся TEXT, допустимые значения закреплены CHECK-ограничением в миграции
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type CheckoutStatus string

const (
	CheckoutStatusPending   CheckoutStatus = "pending"
	CheckoutStatusCompleted CheckoutStatus = "completed"
	CheckoutStatusExpired   CheckoutStatus = "expired"
	CheckoutStatusFailed    CheckoutStatus = "failed"
)

type MovementReason string

const (
	MovementCartAdd        MovementReason = "cart_add"
	MovementCartUpdate     MovementReason = "cart_update"
	MovementCartRemove     MovementReason = "cart_remove"
	MovementCartClear      MovementReason = "cart_clear"
	MovementCartExpired    MovementReason = "cart_expired"
	MovementOrderCancelled MovementReason = "order_cancelled"
	MovementAdminAdjust    MovementReason = "admin_adjust"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

type Product struct {
	ID                      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name                    string          `gorm:"type:text;not null"`
	Price                   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	StockQuantity           int32           `gorm:"not null;default:0;check:chk_products_stock_non_negative,stock_quantity >= 0"`
	IsActive                bool            `gorm:"not null"`
	RequiresSpecialDelivery bool            `gorm:"not null"`
	DeliveryEligible        bool            `gorm:"not null"`
	PickupEligible          bool            `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

// ProductVariant держит собственный остаток для пары (size, color).
type ProductVariant struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_product_variants_key"`
	Size          string    `gorm:"type:text;not null;default:'';uniqueIndex:ux_product_variants_key"`
	Color         string    `gorm:"type:text;not null;default:'';uniqueIndex:ux_product_variants_key"`
	StockQuantity int32     `gorm:"not null;default:0;check:chk_product_variants_stock_non_negative,stock_quantity >= 0"`

	UpdatedAt time.Time `gorm:"not null"`
}

func (ProductVariant) TableName() string { return "product_variants" }

func (v *ProductVariant) BeforeCreate(*gorm.DB) error { ensureID(&v.ID); return nil }

type StockMovement struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ProductID      uuid.UUID      `gorm:"type:uuid;not null;index"`
	VariantID      *uuid.UUID     `gorm:"type:uuid"`
	Delta          int32          `gorm:"not null"`
	QuantityBefore int32          `gorm:"not null"`
	QuantityAfter  int32          `gorm:"not null"`
	Reason         MovementReason `gorm:"type:text;not null;index"`
	ReferenceID    *uuid.UUID     `gorm:"type:uuid"`

	CreatedAt time.Time `gorm:"not null;index"`
}

func (StockMovement) TableName() string { return "stock_movements" }

func (m *StockMovement) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }

type Cart struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"` // одна корзина на пользователя
	DeliveryMethod DeliveryMethod `gorm:"type:text;not null;default:'pickup'"`
	DeliveryZoneID *uuid.UUID     `gorm:"type:uuid"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

func (Cart) TableName() string { return "carts" }

func (c *Cart) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }

// CartItem: size/color пустые строки, если не заданы — иначе UNIQUE не сработает на NULL.
type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CartID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_cart_items_key"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_cart_items_key"`
	Size      string    `gorm:"type:text;not null;default:'';uniqueIndex:ux_cart_items_key"`
	Color     string    `gorm:"type:text;not null;default:'';uniqueIndex:ux_cart_items_key"`
	Quantity  int32     `gorm:"not null;check:chk_cart_items_quantity_gt_zero,quantity > 0"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (CartItem) TableName() string { return "cart_items" }

func (i *CartItem) BeforeCreate(*gorm.DB) error { ensureID(&i.ID); return nil }

// AppSettingsID — единственная строка app_settings.
const AppSettingsID = 1

type AppSettings struct {
	ID                          int             `gorm:"primaryKey;autoIncrement:false"`
	TaxRate                     decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	FreeShippingThreshold       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	LargeOrderQuantityThreshold int32           `gorm:"not null"`
	LargeOrderDeliveryFee       decimal.Decimal `gorm:"type:numeric(12,2);not null"`

	UpdatedAt time.Time `gorm:"not null"`
}

func (AppSettings) TableName() string { return "app_settings" }

type DeliveryZone struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name        string          `gorm:"type:text;not null"`
	DeliveryFee decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	IsActive    bool            `gorm:"not null"`
}

func (DeliveryZone) TableName() string { return "delivery_zones" }

func (z *DeliveryZone) BeforeCreate(*gorm.DB) error { ensureID(&z.ID); return nil }

type Address struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`
	Line1  string    `gorm:"type:text;not null"`
	City   string    `gorm:"type:text;not null"`
	Region string    `gorm:"type:text"`
	Phone  string    `gorm:"type:text"`
}

func (Address) TableName() string { return "addresses" }

func (a *Address) BeforeCreate(*gorm.DB) error { ensureID(&a.ID); return nil }

type PickupLocation struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name     string    `gorm:"type:text;not null"`
	Address  string    `gorm:"type:text"`
	IsActive bool      `gorm:"not null"`
}

func (PickupLocation) TableName() string { return "pickup_locations" }

func (p *PickupLocation) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

type Order struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	OrderNumber       string         `gorm:"type:text;not null;uniqueIndex"`
	UserID            uuid.UUID      `gorm:"type:uuid;not null;index"`
	PaymentMethod     PaymentMethod  `gorm:"type:text;not null"`
	DeliveryMethod    DeliveryMethod `gorm:"type:text;not null"`
	DeliveryAddressID *uuid.UUID     `gorm:"type:uuid"`
	PickupLocationID  *uuid.UUID     `gorm:"type:uuid"`
	DeliveryZoneID    *uuid.UUID     `gorm:"type:uuid"`

	Subtotal           decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	TaxAmount          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	ShippingFee        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	LargeOrderFee      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	SpecialDeliveryFee decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	TotalAmount        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`

	Status        OrderStatus   `gorm:"type:text;not null;default:'pending';index"`
	PaymentStatus PaymentStatus `gorm:"type:text;not null;default:'pending'"`
	Notes         string        `gorm:"type:text"`
	CancelReason  *string       `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error { ensureID(&o.ID); return nil }

type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName string          `gorm:"type:text;not null"`
	Size        string          `gorm:"type:text;not null;default:''"`
	Color       string          `gorm:"type:text;not null;default:''"`
	Quantity    int32           `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null"`

	CreatedAt time.Time `gorm:"not null"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i *OrderItem) BeforeCreate(*gorm.DB) error { ensureID(&i.ID); return nil }

// CheckoutItem — снимок строки корзины в момент создания сессии оплаты.
type CheckoutItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type CheckoutSession struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Reference         string         `gorm:"type:text;not null;uniqueIndex"`
	UserID            uuid.UUID      `gorm:"type:uuid;not null;index"`
	CartID            uuid.UUID      `gorm:"type:uuid;not null"`
	PaymentMethod     PaymentMethod  `gorm:"type:text;not null"`
	DeliveryMethod    DeliveryMethod `gorm:"type:text;not null"`
	DeliveryAddressID *uuid.UUID     `gorm:"type:uuid"`
	PickupLocationID  *uuid.UUID     `gorm:"type:uuid"`
	DeliveryZoneID    *uuid.UUID     `gorm:"type:uuid"`

	Subtotal           decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	TaxAmount          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	ShippingFee        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	LargeOrderFee      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	SpecialDeliveryFee decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	TotalAmount        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`

	Items     []CheckoutItem `gorm:"serializer:json;type:text;not null"`
	Status    CheckoutStatus `gorm:"type:text;not null;default:'pending';index"`
	Notes     string         `gorm:"type:text"`
	ExpiresAt time.Time      `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (CheckoutSession) TableName() string { return "checkout_sessions" }

func (s *CheckoutSession) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }
