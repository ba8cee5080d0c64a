package dto

import (
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func idPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

type TotalsResponse struct {
	Subtotal           string `json:"subtotal"`
	Tax                string `json:"tax"`
	Shipping           string `json:"shipping"`
	LargeOrderFee      string `json:"large_order_fee"`
	SpecialDeliveryFee string `json:"special_delivery_fee"`
	Total              string `json:"total"`
	TotalQuantity      int32  `json:"total_quantity"`
	ShippingRule       string `json:"shipping_rule"`
}

func NewTotalsResponse(t service.Totals) TotalsResponse {
	return TotalsResponse{
		Subtotal:           money(t.Subtotal),
		Tax:                money(t.Tax),
		Shipping:           money(t.Shipping),
		LargeOrderFee:      money(t.LargeOrderFee),
		SpecialDeliveryFee: money(t.SpecialDeliveryFee),
		Total:              money(t.Total),
		TotalQuantity:      t.TotalQuantity,
		ShippingRule:       string(t.ShippingRule),
	}
}

type CartItemResponse struct {
	ID                      string `json:"id"`
	ProductID               string `json:"product_id"`
	ProductName             string `json:"product_name"`
	Size                    string `json:"size,omitempty"`
	Color                   string `json:"color,omitempty"`
	Quantity                int32  `json:"quantity"`
	UnitPrice               string `json:"unit_price"`
	LineTotal               string `json:"line_total"`
	StockQuantity           int32  `json:"stock_quantity"`
	IsActive                bool   `json:"is_active"`
	RequiresSpecialDelivery bool   `json:"requires_special_delivery"`
	DeliveryEligible        bool   `json:"delivery_eligible"`
	PickupEligible          bool   `json:"pickup_eligible"`
}

type CartResponse struct {
	ID              string             `json:"id"`
	DeliveryMethod  string             `json:"delivery_method"`
	DeliveryZoneID  *string            `json:"delivery_zone_id,omitempty"`
	DeliveryZoneFee string             `json:"delivery_zone_fee"`
	Items           []CartItemResponse `json:"items"`
	Totals          TotalsResponse     `json:"totals"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func NewCartResponse(v *service.CartView) CartResponse {
	items := make([]CartItemResponse, 0, len(v.Items))
	for _, l := range v.Items {
		items = append(items, CartItemResponse{
			ID:                      l.ItemID.String(),
			ProductID:               l.ProductID.String(),
			ProductName:             l.ProductName,
			Size:                    l.Size,
			Color:                   l.Color,
			Quantity:                l.Quantity,
			UnitPrice:               money(l.UnitPrice),
			LineTotal:               money(l.LineTotal),
			StockQuantity:           l.StockQuantity,
			IsActive:                l.IsActive,
			RequiresSpecialDelivery: l.RequiresSpecialDelivery,
			DeliveryEligible:        l.DeliveryEligible,
			PickupEligible:          l.PickupEligible,
		})
	}
	return CartResponse{
		ID:              v.CartID.String(),
		DeliveryMethod:  string(v.DeliveryMethod),
		DeliveryZoneID:  idPtr(v.DeliveryZoneID),
		DeliveryZoneFee: money(v.DeliveryZoneFee),
		Items:           items,
		Totals:          NewTotalsResponse(v.Totals),
		UpdatedAt:       v.UpdatedAt,
	}
}

type OrderItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Size        string `json:"size,omitempty"`
	Color       string `json:"color,omitempty"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type OrderResponse struct {
	ID                 string              `json:"id"`
	OrderNumber        string              `json:"order_number"`
	UserID             string              `json:"user_id"`
	Status             string              `json:"status"`
	PaymentStatus      string              `json:"payment_status"`
	PaymentMethod      string              `json:"payment_method"`
	DeliveryMethod     string              `json:"delivery_method"`
	DeliveryAddressID  *string             `json:"delivery_address_id,omitempty"`
	PickupLocationID   *string             `json:"pickup_location_id,omitempty"`
	DeliveryZoneID     *string             `json:"delivery_zone_id,omitempty"`
	Subtotal           string              `json:"subtotal"`
	TaxAmount          string              `json:"tax_amount"`
	ShippingFee        string              `json:"shipping_fee"`
	LargeOrderFee      string              `json:"large_order_fee"`
	SpecialDeliveryFee string              `json:"special_delivery_fee"`
	TotalAmount        string              `json:"total_amount"`
	Notes              string              `json:"notes,omitempty"`
	CancelReason       *string             `json:"cancel_reason,omitempty"`
	Items              []OrderItemResponse `json:"items"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func NewOrderResponse(o *models.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID:   it.ProductID.String(),
			ProductName: it.ProductName,
			Size:        it.Size,
			Color:       it.Color,
			Quantity:    it.Quantity,
			UnitPrice:   money(it.UnitPrice),
			LineTotal:   money(it.LineTotal),
		})
	}
	return OrderResponse{
		ID:                 o.ID.String(),
		OrderNumber:        o.OrderNumber,
		UserID:             o.UserID.String(),
		Status:             string(o.Status),
		PaymentStatus:      string(o.PaymentStatus),
		PaymentMethod:      string(o.PaymentMethod),
		DeliveryMethod:     string(o.DeliveryMethod),
		DeliveryAddressID:  idPtr(o.DeliveryAddressID),
		PickupLocationID:   idPtr(o.PickupLocationID),
		DeliveryZoneID:     idPtr(o.DeliveryZoneID),
		Subtotal:           money(o.Subtotal),
		TaxAmount:          money(o.TaxAmount),
		ShippingFee:        money(o.ShippingFee),
		LargeOrderFee:      money(o.LargeOrderFee),
		SpecialDeliveryFee: money(o.SpecialDeliveryFee),
		TotalAmount:        money(o.TotalAmount),
		Notes:              o.Notes,
		CancelReason:       o.CancelReason,
		Items:              items,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int64           `json:"total"`
}

type CheckoutSessionResponse struct {
	ID                 string              `json:"id"`
	Reference          string              `json:"reference"`
	Status             string              `json:"status"`
	PaymentMethod      string              `json:"payment_method"`
	DeliveryMethod     string              `json:"delivery_method"`
	Subtotal           string              `json:"subtotal"`
	TaxAmount          string              `json:"tax_amount"`
	ShippingFee        string              `json:"shipping_fee"`
	LargeOrderFee      string              `json:"large_order_fee"`
	SpecialDeliveryFee string              `json:"special_delivery_fee"`
	TotalAmount        string              `json:"total_amount"`
	Items              []OrderItemResponse `json:"items"`
	ExpiresAt          time.Time           `json:"expires_at"`
	CreatedAt          time.Time           `json:"created_at"`
}

func NewCheckoutSessionResponse(s *models.CheckoutSession) CheckoutSessionResponse {
	items := make([]OrderItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, OrderItemResponse{
			ProductID:   it.ProductID.String(),
			ProductName: it.ProductName,
			Size:        it.Size,
			Color:       it.Color,
			Quantity:    it.Quantity,
			UnitPrice:   money(it.UnitPrice),
			LineTotal:   money(it.LineTotal),
		})
	}
	return CheckoutSessionResponse{
		ID:                 s.ID.String(),
		Reference:          s.Reference,
		Status:             string(s.Status),
		PaymentMethod:      string(s.PaymentMethod),
		DeliveryMethod:     string(s.DeliveryMethod),
		Subtotal:           money(s.Subtotal),
		TaxAmount:          money(s.TaxAmount),
		ShippingFee:        money(s.ShippingFee),
		LargeOrderFee:      money(s.LargeOrderFee),
		SpecialDeliveryFee: money(s.SpecialDeliveryFee),
		TotalAmount:        money(s.TotalAmount),
		Items:              items,
		ExpiresAt:          s.ExpiresAt,
		CreatedAt:          s.CreatedAt,
	}
}

// CreateOrderResponse: для online заполнена checkout_session, иначе order.
type CreateOrderResponse struct {
	Order           *OrderResponse           `json:"order,omitempty"`
	CheckoutSession *CheckoutSessionResponse `json:"checkout_session,omitempty"`
}

func NewCreateOrderResponse(r *service.CreateOrderResult) CreateOrderResponse {
	var out CreateOrderResponse
	if r.Order != nil {
		o := NewOrderResponse(r.Order)
		out.Order = &o
	}
	if r.Checkout != nil {
		s := NewCheckoutSessionResponse(r.Checkout)
		out.CheckoutSession = &s
	}
	return out
}

type SettingsResponse struct {
	TaxRate                     string `json:"tax_rate"`
	FreeShippingThreshold       string `json:"free_shipping_threshold"`
	LargeOrderQuantityThreshold int32  `json:"large_order_quantity_threshold"`
	LargeOrderDeliveryFee       string `json:"large_order_delivery_fee"`
}

func NewSettingsResponse(s service.Settings) SettingsResponse {
	return SettingsResponse{
		TaxRate:                     money(s.TaxRate),
		FreeShippingThreshold:       money(s.FreeShippingThreshold),
		LargeOrderQuantityThreshold: s.LargeOrderQuantityThreshold,
		LargeOrderDeliveryFee:       money(s.LargeOrderDeliveryFee),
	}
}

type StockLevelResponse struct {
	ProductID     string `json:"product_id"`
	Size          string `json:"size,omitempty"`
	Color         string `json:"color,omitempty"`
	StockQuantity int32  `json:"stock_quantity"`
}

func NewStockLevelResponse(s *service.StockLevel) StockLevelResponse {
	return StockLevelResponse{
		ProductID:     s.ProductID.String(),
		Size:          s.Size,
		Color:         s.Color,
		StockQuantity: s.StockQuantity,
	}
}

type StockMovementResponse struct {
	ID             string    `json:"id"`
	VariantID      *string   `json:"variant_id,omitempty"`
	Delta          int32     `json:"delta"`
	QuantityBefore int32     `json:"quantity_before"`
	QuantityAfter  int32     `json:"quantity_after"`
	Reason         string    `json:"reason"`
	ReferenceID    *string   `json:"reference_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewStockMovementsResponse(list []models.StockMovement) []StockMovementResponse {
	out := make([]StockMovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, StockMovementResponse{
			ID:             m.ID.String(),
			VariantID:      idPtr(m.VariantID),
			Delta:          m.Delta,
			QuantityBefore: m.QuantityBefore,
			QuantityAfter:  m.QuantityAfter,
			Reason:         string(m.Reason),
			ReferenceID:    idPtr(m.ReferenceID),
			CreatedAt:      m.CreatedAt,
		})
	}
	return out
}
