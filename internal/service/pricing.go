package service

import (
	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

type PricingLine struct {
	UnitPrice               decimal.Decimal
	Quantity                int32
	RequiresSpecialDelivery bool
}

// ShippingRule — какая ветка расчёта определила стоимость доставки.
type ShippingRule string

const (
	ShippingNone            ShippingRule = "none"
	ShippingZone            ShippingRule = "zone"
	ShippingLargeOrder      ShippingRule = "large_order"
	ShippingSpecialDelivery ShippingRule = "special_delivery"
	ShippingFree            ShippingRule = "free"
)

// Totals. LargeOrderFee и SpecialDeliveryFee — расшифровка Shipping, в Total они не добавляются.
type Totals struct {
	Subtotal           decimal.Decimal
	Tax                decimal.Decimal
	Shipping           decimal.Decimal
	LargeOrderFee      decimal.Decimal
	SpecialDeliveryFee decimal.Decimal
	Total              decimal.Decimal
	TotalQuantity      int32
	ShippingRule       ShippingRule
}

func zeroTotals() Totals {
	return Totals{
		Subtotal:           decimal.Zero,
		Tax:                decimal.Zero,
		Shipping:           decimal.Zero,
		LargeOrderFee:      decimal.Zero,
		SpecialDeliveryFee: decimal.Zero,
		Total:              decimal.Zero,
		ShippingRule:       ShippingNone,
	}
}

// CalculateTotals считает итоги корзины/заказа. Чистая функция: округление half-up до копеек
// только на последнем шаге.
func CalculateTotals(lines []PricingLine, method models.DeliveryMethod, zoneFee decimal.Decimal, st Settings) Totals {
	if len(lines) == 0 {
		return zeroTotals()
	}

	subtotal := decimal.Zero
	var totalQty int32
	hasSpecial := false
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity)))
		totalQty += l.Quantity
		if l.RequiresSpecialDelivery {
			hasSpecial = true
		}
	}

	tax := subtotal.Mul(st.TaxRate).Div(hundred)

	shipping := decimal.Zero
	rule := ShippingNone
	if method == models.DeliveryMethodDelivery {
		largeByQty := totalQty >= st.LargeOrderQuantityThreshold
		switch {
		case largeByQty:
			shipping, rule = st.LargeOrderDeliveryFee, ShippingLargeOrder
		case hasSpecial:
			shipping, rule = st.LargeOrderDeliveryFee, ShippingSpecialDelivery
		default:
			shipping, rule = zoneFee, ShippingZone
		}
		if subtotal.GreaterThanOrEqual(st.FreeShippingThreshold) {
			shipping, rule = decimal.Zero, ShippingFree
		}
	}

	total := subtotal.Add(tax).Add(shipping)

	out := Totals{
		Subtotal:           subtotal.Round(moneyPlaces),
		Tax:                tax.Round(moneyPlaces),
		Shipping:           shipping.Round(moneyPlaces),
		LargeOrderFee:      decimal.Zero,
		SpecialDeliveryFee: decimal.Zero,
		Total:              total.Round(moneyPlaces),
		TotalQuantity:      totalQty,
		ShippingRule:       rule,
	}
	switch rule {
	case ShippingLargeOrder:
		out.LargeOrderFee = out.Shipping
	case ShippingSpecialDelivery:
		out.SpecialDeliveryFee = out.Shipping
	}
	return out
}
