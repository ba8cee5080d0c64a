package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func fillCart(t *testing.T, env *testEnv, ctx context.Context, items ...AddItemInput) {
	t.Helper()
	for _, in := range items {
		_, err := env.carts.AddItem(ctx, in)
		require.NoError(t, err)
	}
}

func TestCreateOrder_PickupOrderClearsCartKeepsStock(t *testing.T) {
	env := newTestEnv(t)
	a := env.product(t, price("20"), stock(10), named("Mug"))
	b := env.product(t, price("5.50"), stock(4))
	loc := env.pickup(t)
	userID := uuid.New()
	ctx := userCtx(userID)

	fillCart(t, env, ctx,
		AddItemInput{ProductID: a.ID, Quantity: 2},
		AddItemInput{ProductID: b.ID, Quantity: 4},
	)

	res, err := env.orders.CreateOrder(ctx, CreateOrderInput{
		PaymentMethod:    models.PaymentMethodOnPickup,
		DeliveryMethod:   models.DeliveryMethodPickup,
		PickupLocationID: &loc.ID,
		Notes:            "ring twice",
	})
	require.NoError(t, err)
	require.Nil(t, res.Checkout)
	ord := res.Order
	require.NotNil(t, ord)

	assert.True(t, strings.HasPrefix(ord.OrderNumber, "ORD-"))
	assert.Len(t, ord.OrderNumber, len("ORD-123456-789"))
	assert.Equal(t, models.OrderStatusPending, ord.Status)
	assert.Equal(t, models.PaymentStatusPending, ord.PaymentStatus)
	assertMoney(t, "subtotal", ord.Subtotal, "62")
	assertMoney(t, "tax", ord.TaxAmount, "6.2")
	assertMoney(t, "shipping", ord.ShippingFee, "0")
	assertMoney(t, "total", ord.TotalAmount, "68.2")
	require.Len(t, ord.Items, 2)

	stored, err := env.orders.GetOrder(ctx, ord.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	for _, it := range stored.Items {
		if it.ProductID == a.ID {
			assert.Equal(t, "Mug", it.ProductName)
			assertMoney(t, "line", it.LineTotal, "40")
		}
	}

	assert.Equal(t, int64(0), env.count(t, &models.CartItem{}))
	assert.Equal(t, int64(0), env.count(t, &models.Cart{}))
	assert.Equal(t, int32(8), env.stockOf(t, a.ID), "order consumes the reservation made by the cart")
	assert.Equal(t, int32(0), env.stockOf(t, b.ID))

	require.Len(t, env.bus.placed, 1)
	assert.Equal(t, ord.OrderNumber, env.bus.placed[0].OrderNumber)
}

func TestCreateOrder_DeliveryUsesCartZone(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, price("20"))
	z := env.zone(t, "15")
	userID := uuid.New()
	addr := env.address(t, userID)
	ctx := userCtx(userID)

	fillCart(t, env, ctx, AddItemInput{ProductID: p.ID, Quantity: 3})

	in := CreateOrderInput{
		PaymentMethod:     models.PaymentMethodOnDelivery,
		DeliveryMethod:    models.DeliveryMethodDelivery,
		DeliveryAddressID: &addr.ID,
	}
	_, err := env.orders.CreateOrder(ctx, in)
	require.ErrorIs(t, err, ErrZoneRequired)

	_, err = env.carts.SetDelivery(ctx, SetDeliveryInput{Method: models.DeliveryMethodDelivery, ZoneID: &z.ID})
	require.NoError(t, err)

	res, err := env.orders.CreateOrder(ctx, in)
	require.NoError(t, err)
	assertMoney(t, "shipping", res.Order.ShippingFee, "15")
	assertMoney(t, "total", res.Order.TotalAmount, "81")
	require.NotNil(t, res.Order.DeliveryZoneID)
	assert.Equal(t, z.ID, *res.Order.DeliveryZoneID)
	assert.Nil(t, res.Order.PickupLocationID)
}

func TestCreateOrder_SpecialDeliveryAttribution(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, price("10"), special)
	z := env.zone(t, "15")
	userID := uuid.New()
	addr := env.address(t, userID)
	ctx := userCtx(userID)

	fillCart(t, env, ctx, AddItemInput{ProductID: p.ID, Quantity: 2})
	preview, err := env.carts.SetDelivery(ctx, SetDeliveryInput{Method: models.DeliveryMethodDelivery, ZoneID: &z.ID})
	require.NoError(t, err)

	res, err := env.orders.CreateOrder(ctx, CreateOrderInput{
		PaymentMethod:     models.PaymentMethodOnDelivery,
		DeliveryMethod:    models.DeliveryMethodDelivery,
		DeliveryAddressID: &addr.ID,
	})
	require.NoError(t, err)

	// превью корзины и заказ считаются одним правилом
	assert.True(t, preview.Totals.Total.Equal(res.Order.TotalAmount))
	assertMoney(t, "shipping", res.Order.ShippingFee, "50")
	assertMoney(t, "special", res.Order.SpecialDeliveryFee, "50")
	assertMoney(t, "large", res.Order.LargeOrderFee, "0")
	assertMoney(t, "total", res.Order.TotalAmount, "72")
}

func TestCreateOrder_OnlineCreatesCheckoutSessionOnly(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, price("40"), stock(10))
	loc := env.pickup(t)
	userID := uuid.New()
	ctx := userCtx(userID)

	fillCart(t, env, ctx, AddItemInput{ProductID: p.ID, Quantity: 3})

	res, err := env.orders.CreateOrder(ctx, CreateOrderInput{
		PaymentMethod:    models.PaymentMethodOnline,
		DeliveryMethod:   models.DeliveryMethodPickup,
		PickupLocationID: &loc.ID,
	})
	require.NoError(t, err)
	require.Nil(t, res.Order)
	sess := res.Checkout
	require.NotNil(t, sess)

	assert.True(t, strings.HasPrefix(sess.Reference, "CHK-"))
	assert.Equal(t, models.CheckoutStatusPending, sess.Status)
	assertMoney(t, "total", sess.TotalAmount, "132")
	assert.True(t, sess.ExpiresAt.After(time.Now().UTC()))

	assert.Equal(t, int32(7), env.stockOf(t, p.ID))
	assert.Equal(t, int64(1), env.count(t, &models.CartItem{}))
	assert.Equal(t, int64(0), env.count(t, &models.Order{}))

	got, err := env.orders.GetCheckoutSession(ctx, sess.Reference)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int32(3), got.Items[0].Quantity)
	assertMoney(t, "unit", got.Items[0].UnitPrice, "40")

	_, err = env.orders.GetCheckoutSession(userCtx(uuid.New()), sess.Reference)
	assert.ErrorIs(t, err, ErrCheckoutNotFound)

	require.Len(t, env.bus.checkouts, 1)
	assert.Empty(t, env.bus.placed)
}

func TestCreateOrder_EligibilityGate(t *testing.T) {
	env := newTestEnv(t)
	ok := env.product(t)
	bad := env.product(t, noDelivery, named("Sofa"))
	z := env.zone(t, "15")
	userID := uuid.New()
	addr := env.address(t, userID)
	ctx := userCtx(userID)

	fillCart(t, env, ctx,
		AddItemInput{ProductID: ok.ID, Quantity: 1},
		AddItemInput{ProductID: bad.ID, Quantity: 2},
	)
	_, err := env.carts.SetDelivery(ctx, SetDeliveryInput{Method: models.DeliveryMethodDelivery, ZoneID: &z.ID})
	require.NoError(t, err)

	_, err = env.orders.CreateOrder(ctx, CreateOrderInput{
		PaymentMethod:     models.PaymentMethodOnDelivery,
		DeliveryMethod:    models.DeliveryMethodDelivery,
		DeliveryAddressID: &addr.ID,
	})
	require.ErrorIs(t, err, ErrDeliveryMethodIncompatible)

	var de *DeliveryMethodIncompatibleError
	require.True(t, errors.As(err, &de))
	require.Len(t, de.Items, 1)
	assert.Equal(t, bad.ID, de.Items[0].ProductID)
	assert.Equal(t, "Sofa", de.Items[0].ProductName)

	assert.Equal(t, int64(0), env.count(t, &models.Order{}))
	assert.Equal(t, int64(0), env.count(t, &models.OrderItem{}))
	assert.Equal(t, int64(2), env.count(t, &models.CartItem{}))
	assert.Equal(t, int32(9), env.stockOf(t, ok.ID))
	assert.Equal(t, int32(8), env.stockOf(t, bad.ID))

	// то же для online — сессия не создаётся
	_, err = env.orders.CreateOrder(ctx, CreateOrderInput{
		PaymentMethod:     models.PaymentMethodOnline,
		DeliveryMethod:    models.DeliveryMethodDelivery,
		DeliveryAddressID: &addr.ID,
	})
	require.ErrorIs(t, err, ErrDeliveryMethodIncompatible)
	assert.Equal(t, int64(0), env.count(t, &models.CheckoutSession{}))
}

func TestCreateOrder_InputValidation(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, noPickup)
	loc := env.pickup(t)
	userID := uuid.New()
	ctx := userCtx(userID)
	foreign := env.address(t, uuid.New())
	missing := uuid.New()

	_, err := env.orders.CreateOrder(ctx, CreateOrderInput{
		PaymentMethod:    models.PaymentMethodOnPickup,
		DeliveryMethod:   models.DeliveryMethodPickup,
		PickupLocationID: &loc.ID,
	})
	assert.ErrorIs(t, err, ErrEmptyCart)

	fillCart(t, env, ctx, AddItemInput{ProductID: p.ID, Quantity: 1})

	cases := []struct {
		name string
		in   CreateOrderInput
		want error
	}{
		{"bad payment", CreateOrderInput{PaymentMethod: "cash", DeliveryMethod: models.DeliveryMethodPickup}, ErrInvalidPaymentMethod},
		{"bad delivery", CreateOrderInput{PaymentMethod: models.PaymentMethodOnline, DeliveryMethod: "drone"}, ErrInvalidDeliveryMethod},
		{"on_pickup with delivery", CreateOrderInput{PaymentMethod: models.PaymentMethodOnPickup, DeliveryMethod: models.DeliveryMethodDelivery}, ErrPaymentMethodMismatch},
		{"on_delivery with pickup", CreateOrderInput{PaymentMethod: models.PaymentMethodOnDelivery, DeliveryMethod: models.DeliveryMethodPickup}, ErrPaymentMethodMismatch},
		{"address required", CreateOrderInput{PaymentMethod: models.PaymentMethodOnDelivery, DeliveryMethod: models.DeliveryMethodDelivery}, ErrAddressRequired},
		{"pickup required", CreateOrderInput{PaymentMethod: models.PaymentMethodOnPickup, DeliveryMethod: models.DeliveryMethodPickup}, ErrPickupLocationRequired},
		{"foreign address", CreateOrderInput{PaymentMethod: models.PaymentMethodOnDelivery, DeliveryMethod: models.DeliveryMethodDelivery, DeliveryAddressID: &foreign.ID}, ErrInvalidAddress},
		{"unknown pickup", CreateOrderInput{PaymentMethod: models.PaymentMethodOnPickup, DeliveryMethod: models.DeliveryMethodPickup, PickupLocationID: &missing}, ErrInvalidPickupLocation},
		{"pickup not allowed", CreateOrderInput{PaymentMethod: models.PaymentMethodOnPickup, DeliveryMethod: models.DeliveryMethodPickup, PickupLocationID: &loc.ID}, ErrDeliveryMethodIncompatible},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.orders.CreateOrder(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, int64(1), env.count(t, &models.CartItem{}))
	assert.Equal(t, int64(0), env.count(t, &models.Order{}))
}

func TestCreateOrder_AtomicOnItemInsertFailure(t *testing.T) {
	env := newTestEnv(t)
	a := env.product(t, stock(5))
	b := env.product(t, stock(5))
	c := env.product(t, stock(5))
	loc := env.pickup(t)
	ctx := userCtx(uuid.New())

	fillCart(t, env, ctx,
		AddItemInput{ProductID: a.ID, Quantity: 1},
		AddItemInput{ProductID: b.ID, Quantity: 2},
		AddItemInput{ProductID: c.ID, Quantity: 3},
	)

	boom := errors.New("disk full")
	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register("test:fail_order_items", func(tx *gorm.DB) {
		if tx.Statement.Table == "order_items" {
			_ = tx.AddError(boom)
		}
	}))

	_, err := env.orders.CreateOrder(ctx, CreateOrderInput{
		PaymentMethod:    models.PaymentMethodOnPickup,
		DeliveryMethod:   models.DeliveryMethodPickup,
		PickupLocationID: &loc.ID,
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int64(0), env.count(t, &models.Order{}))
	assert.Equal(t, int64(0), env.count(t, &models.OrderItem{}))
	assert.Equal(t, int64(3), env.count(t, &models.CartItem{}))
	assert.Equal(t, int64(1), env.count(t, &models.Cart{}))
	assert.Equal(t, int32(4), env.stockOf(t, a.ID))
	assert.Equal(t, int32(3), env.stockOf(t, b.ID))
	assert.Equal(t, int32(2), env.stockOf(t, c.ID))
	assert.Empty(t, env.bus.placed)
}

func TestCreateOrder_OrderNumberCollisionRetries(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, stock(10))
	loc := env.pickup(t)
	svc := env.orders.(*orderService)

	place := func(ctx context.Context) (*models.Order, error) {
		fillCart(t, env, ctx, AddItemInput{ProductID: p.ID, Quantity: 1})
		res, err := svc.CreateOrder(ctx, CreateOrderInput{
			PaymentMethod:    models.PaymentMethodOnPickup,
			DeliveryMethod:   models.DeliveryMethodPickup,
			PickupLocationID: &loc.ID,
		})
		if err != nil {
			return nil, err
		}
		return res.Order, nil
	}

	svc.numbers = func(time.Time) string { return "ORD-000001-001" }
	first, err := place(userCtx(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, "ORD-000001-001", first.OrderNumber)

	seq := []string{"ORD-000001-001", "ORD-000001-001", "ORD-000002-002"}
	calls := 0
	svc.numbers = func(time.Time) string {
		n := seq[calls]
		calls++
		return n
	}
	second, err := place(userCtx(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, "ORD-000002-002", second.OrderNumber)
	assert.Equal(t, 3, calls)

	svc.numbers = func(time.Time) string { return "ORD-000001-001" }
	userCtx3 := userCtx(uuid.New())
	_, err = place(userCtx3)
	require.ErrorIs(t, err, ErrOrderNumberExhausted)
	assert.Equal(t, int64(2), env.count(t, &models.Order{}))
	assert.Equal(t, int64(1), env.count(t, &models.CartItem{}), "failed attempt keeps the cart")
}

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.UnixMilli(1_700_000_123_456)
	n := NewOrderNumber(now)
	require.True(t, strings.HasPrefix(n, "ORD-123456-"), n)
	assert.Len(t, n, len("ORD-123456-000"))
}

func placePickupOrder(t *testing.T, env *testEnv, ctx context.Context, items ...AddItemInput) *models.Order {
	t.Helper()
	fillCart(t, env, ctx, items...)
	loc := env.pickup(t)
	res, err := env.orders.CreateOrder(ctx, CreateOrderInput{
		PaymentMethod:    models.PaymentMethodOnPickup,
		DeliveryMethod:   models.DeliveryMethodPickup,
		PickupLocationID: &loc.ID,
	})
	require.NoError(t, err)
	return res.Order
}

func TestCancelOrder_ReturnsStock(t *testing.T) {
	env := newTestEnv(t)
	a := env.product(t, stock(10))
	b := env.product(t, stock(10))
	ctx := userCtx(uuid.New())

	ord := placePickupOrder(t, env, ctx,
		AddItemInput{ProductID: a.ID, Quantity: 3},
		AddItemInput{ProductID: b.ID, Quantity: 1},
	)
	assert.Equal(t, int32(7), env.stockOf(t, a.ID))

	_, err := env.orders.CancelOrder(userCtx(uuid.New()), ord.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	reason := "changed my mind"
	got, err := env.orders.CancelOrder(ctx, ord.ID, &reason)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	require.NotNil(t, got.CancelReason)
	assert.Equal(t, reason, *got.CancelReason)
	assert.Equal(t, int32(10), env.stockOf(t, a.ID))
	assert.Equal(t, int32(10), env.stockOf(t, b.ID))

	_, err = env.orders.CancelOrder(ctx, ord.ID, nil)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.Equal(t, int32(10), env.stockOf(t, a.ID))

	require.Len(t, env.bus.cancelled, 1)
	assert.Equal(t, reason, env.bus.cancelled[0].Reason)
}

func TestUpdateStatus_Transitions(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, stock(10))
	ctx := userCtx(uuid.New())
	admin := adminCtx()

	ord := placePickupOrder(t, env, ctx, AddItemInput{ProductID: p.ID, Quantity: 2})

	_, err := env.orders.UpdateStatus(ctx, ord.ID, models.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.orders.UpdateStatus(admin, ord.ID, models.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	for _, st := range []models.OrderStatus{models.OrderStatusConfirmed, models.OrderStatusShipped, models.OrderStatusDelivered} {
		got, err := env.orders.UpdateStatus(admin, ord.ID, st)
		require.NoError(t, err)
		assert.Equal(t, st, got.Status)
	}

	_, err = env.orders.UpdateStatus(admin, ord.ID, models.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	_, err = env.orders.UpdateStatus(admin, ord.ID, models.OrderStatusPending)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.Equal(t, int32(8), env.stockOf(t, p.ID))

	_, err = env.orders.UpdateStatus(admin, uuid.New(), models.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrders_ScopedToCaller(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, stock(10))
	alice := userCtx(uuid.New())
	bob := userCtx(uuid.New())

	placePickupOrder(t, env, alice, AddItemInput{ProductID: p.ID, Quantity: 1})
	placePickupOrder(t, env, alice, AddItemInput{ProductID: p.ID, Quantity: 1})
	bobOrder := placePickupOrder(t, env, bob, AddItemInput{ProductID: p.ID, Quantity: 1})

	list, total, err := env.orders.ListOrders(alice, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	_, total, err = env.orders.ListOrders(adminCtx(), ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	_, err = env.orders.GetOrder(alice, bobOrder.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = env.orders.GetOrder(adminCtx(), bobOrder.ID)
	assert.NoError(t, err)
}
