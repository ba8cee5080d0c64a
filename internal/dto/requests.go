package dto

type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int32  `json:"quantity" validate:"gt=0,lte=1000"`
	Size      string `json:"size" validate:"max=32"`
	Color     string `json:"color" validate:"max=32"`
}

type UpdateCartItemRequest struct {
	Quantity int32 `json:"quantity" validate:"gt=0,lte=1000"`
}

type SetDeliveryRequest struct {
	DeliveryMethod string  `json:"delivery_method" validate:"required,oneof=pickup delivery"`
	DeliveryZoneID *string `json:"delivery_zone_id" validate:"omitempty,uuid"`
}

type CreateOrderRequest struct {
	PaymentMethod     string  `json:"payment_method" validate:"required,oneof=online on_delivery on_pickup"`
	DeliveryMethod    string  `json:"delivery_method" validate:"required,oneof=pickup delivery"`
	DeliveryAddressID *string `json:"delivery_address_id" validate:"omitempty,uuid"`
	PickupLocationID  *string `json:"pickup_location_id" validate:"omitempty,uuid"`
	Notes             string  `json:"notes" validate:"max=1000"`
}

type CancelOrderRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed shipped delivered cancelled"`
}

// UpdateSettingsRequest — заданы только меняемые поля; суммы строками.
type UpdateSettingsRequest struct {
	TaxRate                     *string `json:"tax_rate" validate:"omitempty,money"`
	FreeShippingThreshold       *string `json:"free_shipping_threshold" validate:"omitempty,money"`
	LargeOrderQuantityThreshold *int32  `json:"large_order_quantity_threshold" validate:"omitempty,gt=0"`
	LargeOrderDeliveryFee       *string `json:"large_order_delivery_fee" validate:"omitempty,money"`
}

type AdjustStockRequest struct {
	Delta int32  `json:"delta" validate:"ne=0"`
	Size  string `json:"size" validate:"max=32"`
	Color string `json:"color" validate:"max=32"`
}

type ListOrdersQuery struct {
	Status string `form:"status" json:"status" validate:"omitempty,oneof=pending confirmed shipped delivered cancelled"`
	Limit  int    `form:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
	Offset int    `form:"offset" json:"offset" validate:"omitempty,min=0"`
}
