package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_AddItemReservesAndMerges(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, stock(10))
	ctx := userCtx(uuid.New())

	view, err := env.carts.AddItem(ctx, AddItemInput{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int32(3), view.Items[0].Quantity)
	assert.Equal(t, int32(7), env.stockOf(t, p.ID))

	view, err = env.carts.AddItem(ctx, AddItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 1, "same key must merge into one row")
	assert.Equal(t, int32(5), view.Items[0].Quantity)
	assert.Equal(t, int32(5), env.stockOf(t, p.ID))

	view, err = env.carts.AddItem(ctx, AddItemInput{ProductID: p.ID, Quantity: 1, Size: "M"})
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
	assert.Equal(t, int32(4), env.stockOf(t, p.ID))

	assertMoney(t, "subtotal", view.Totals.Subtotal, "120")
}

func TestCart_AddItemInsufficientStockLeavesCartUntouched(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, stock(5))
	ctx := userCtx(uuid.New())

	_, err := env.carts.AddItem(ctx, AddItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	_, err = env.carts.AddItem(ctx, AddItemInput{ProductID: p.ID, Quantity: 4})
	require.ErrorIs(t, err, ErrInsufficientStock)

	var se *InsufficientStockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, int32(3), se.Available)
	assert.Equal(t, int32(4), se.Requested)

	view, err := env.carts.GetCart(ctx)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int32(2), view.Items[0].Quantity)
	assert.Equal(t, int32(3), env.stockOf(t, p.ID))
}

func TestCart_AddItemRejections(t *testing.T) {
	env := newTestEnv(t)
	off := env.product(t, inactive)
	ctx := userCtx(uuid.New())

	_, err := env.carts.AddItem(ctx, AddItemInput{ProductID: off.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductUnavailable)
	assert.Equal(t, int32(10), env.stockOf(t, off.ID))

	_, err = env.carts.AddItem(ctx, AddItemInput{ProductID: uuid.New(), Quantity: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = env.carts.AddItem(ctx, AddItemInput{ProductID: off.ID, Quantity: 0})
	assert.ErrorIs(t, err, ErrQuantityInvalid)

	_, err = env.carts.AddItem(context.Background(), AddItemInput{ProductID: off.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCart_UpdateItemQuantity(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, stock(10))
	ctx := userCtx(uuid.New())

	view, err := env.carts.AddItem(ctx, AddItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	itemID := view.Items[0].ItemID

	view, err = env.carts.UpdateItemQuantity(ctx, itemID, 6)
	require.NoError(t, err)
	assert.Equal(t, int32(6), view.Items[0].Quantity)
	assert.Equal(t, int32(4), env.stockOf(t, p.ID))

	view, err = env.carts.UpdateItemQuantity(ctx, itemID, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), view.Items[0].Quantity)
	assert.Equal(t, int32(9), env.stockOf(t, p.ID))

	_, err = env.carts.UpdateItemQuantity(ctx, itemID, 11)
	require.ErrorIs(t, err, ErrInsufficientStock)
	view, err = env.carts.GetCart(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), view.Items[0].Quantity)
	assert.Equal(t, int32(9), env.stockOf(t, p.ID))

	_, err = env.carts.UpdateItemQuantity(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = env.carts.UpdateItemQuantity(ctx, itemID, 0)
	assert.ErrorIs(t, err, ErrQuantityInvalid)
}

func TestCart_RemoveItemIsNotReleasedTwice(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, stock(10))
	ctx := userCtx(uuid.New())

	view, err := env.carts.AddItem(ctx, AddItemInput{ProductID: p.ID, Quantity: 4})
	require.NoError(t, err)
	itemID := view.Items[0].ItemID

	view, err = env.carts.RemoveItem(ctx, itemID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, int32(10), env.stockOf(t, p.ID))

	_, err = env.carts.RemoveItem(ctx, itemID)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, int32(10), env.stockOf(t, p.ID))
}

func TestCart_ItemsOfAnotherUserAreInvisible(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t)
	owner := userCtx(uuid.New())
	other := userCtx(uuid.New())

	view, err := env.carts.AddItem(owner, AddItemInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = env.carts.RemoveItem(other, view.Items[0].ItemID)
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = env.carts.UpdateItemQuantity(other, view.Items[0].ItemID, 3)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, int32(9), env.stockOf(t, p.ID))
}

func TestCart_ClearReleasesEverything(t *testing.T) {
	env := newTestEnv(t)
	a := env.product(t, stock(10))
	b := env.product(t, stock(3))
	ctx := userCtx(uuid.New())

	_, err := env.carts.AddItem(ctx, AddItemInput{ProductID: a.ID, Quantity: 4})
	require.NoError(t, err)
	_, err = env.carts.AddItem(ctx, AddItemInput{ProductID: a.ID, Quantity: 1, Color: "red"})
	require.NoError(t, err)
	_, err = env.carts.AddItem(ctx, AddItemInput{ProductID: b.ID, Quantity: 3})
	require.NoError(t, err)

	view, err := env.carts.ClearCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assertMoney(t, "total", view.Totals.Total, "0")
	assert.Equal(t, int32(10), env.stockOf(t, a.ID))
	assert.Equal(t, int32(3), env.stockOf(t, b.ID))
	assert.Equal(t, int64(1), env.count(t, &models.Cart{}), "cart row is kept")

	// пустую корзину можно очищать повторно
	_, err = env.carts.ClearCart(ctx)
	require.NoError(t, err)
}

func TestCart_Conservation(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, stock(20))
	ctx := userCtx(uuid.New())

	view, err := env.carts.AddItem(ctx, AddItemInput{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	id := view.Items[0].ItemID

	steps := []int32{8, 2, 15, 1}
	for _, q := range steps {
		_, err := env.carts.UpdateItemQuantity(ctx, id, q)
		require.NoError(t, err)
		assert.Equal(t, 20-q, env.stockOf(t, p.ID))
	}
	_, err = env.carts.RemoveItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int32(20), env.stockOf(t, p.ID))

	movements, err := env.repo.Products.ListMovements(context.Background(), p.ID, 100)
	require.NoError(t, err)
	var sum int32
	for _, m := range movements {
		sum += m.Delta
		assert.Equal(t, m.QuantityBefore+m.Delta, m.QuantityAfter)
	}
	assert.Equal(t, int32(0), sum)
	assert.Len(t, movements, 6)
}

func TestCart_VariantStock(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, stock(50))
	v := &models.ProductVariant{ProductID: p.ID, Size: "M", Color: "red", StockQuantity: 2}
	require.NoError(t, env.repo.Products.CreateVariant(context.Background(), v))
	ctx := userCtx(uuid.New())

	_, err := env.carts.AddItem(ctx, AddItemInput{ProductID: p.ID, Quantity: 2, Size: " M ", Color: "red"})
	require.NoError(t, err)
	assert.Equal(t, int32(50), env.stockOf(t, p.ID), "product counter is untouched for variants")

	_, err = env.carts.AddItem(ctx, AddItemInput{ProductID: p.ID, Quantity: 1, Size: "M", Color: "red"})
	var se *InsufficientStockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, int32(0), se.Available)

	view, err := env.carts.ClearCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	var got models.ProductVariant
	require.NoError(t, env.db.First(&got, "id = ?", v.ID).Error)
	assert.Equal(t, int32(2), got.StockQuantity)
}

func TestCart_SetDelivery(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, price("20"))
	z := env.zone(t, "15")
	ctx := userCtx(uuid.New())

	_, err := env.carts.AddItem(ctx, AddItemInput{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	_, err = env.carts.SetDelivery(ctx, SetDeliveryInput{Method: models.DeliveryMethodDelivery})
	assert.ErrorIs(t, err, ErrZoneRequired)

	missing := uuid.New()
	_, err = env.carts.SetDelivery(ctx, SetDeliveryInput{Method: models.DeliveryMethodDelivery, ZoneID: &missing})
	assert.ErrorIs(t, err, ErrInvalidZone)

	_, err = env.carts.SetDelivery(ctx, SetDeliveryInput{Method: "drone"})
	assert.ErrorIs(t, err, ErrInvalidDeliveryMethod)

	view, err := env.carts.SetDelivery(ctx, SetDeliveryInput{Method: models.DeliveryMethodDelivery, ZoneID: &z.ID})
	require.NoError(t, err)
	require.NotNil(t, view.DeliveryZoneID)
	assert.Equal(t, z.ID, *view.DeliveryZoneID)
	assertMoney(t, "shipping", view.Totals.Shipping, "15")
	assertMoney(t, "total", view.Totals.Total, "81")

	view, err = env.carts.SetDelivery(ctx, SetDeliveryInput{Method: models.DeliveryMethodPickup, ZoneID: &z.ID})
	require.NoError(t, err)
	assert.Nil(t, view.DeliveryZoneID)
	assertMoney(t, "total", view.Totals.Total, "66")
}

func TestCart_ConcurrentAddRace(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, stock(10))

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.carts.AddItem(userCtx(uuid.New()), AddItemInput{ProductID: p.ID, Quantity: 6})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientStock):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, int32(4), env.stockOf(t, p.ID))
	assert.Equal(t, int64(1), env.count(t, &models.CartItem{}))
}

func TestCart_ReleaseIdleCart(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, stock(10))
	userID := uuid.New()
	ctx := userCtx(userID)

	view, err := env.carts.AddItem(ctx, AddItemInput{ProductID: p.ID, Quantity: 4})
	require.NoError(t, err)

	// корзина менялась после cutoff — не трогаем
	n, err := env.carts.ReleaseIdleCart(context.Background(), view.CartID, view.UpdatedAt.Add(-1))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int32(6), env.stockOf(t, p.ID))

	n, err = env.carts.ReleaseIdleCart(context.Background(), view.CartID, view.UpdatedAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int32(10), env.stockOf(t, p.ID))

	movements, err := env.repo.Products.ListMovements(context.Background(), p.ID, 10)
	require.NoError(t, err)
	reasons := make([]models.MovementReason, 0, len(movements))
	for _, m := range movements {
		reasons = append(reasons, m.Reason)
	}
	assert.ElementsMatch(t, []models.MovementReason{models.MovementCartAdd, models.MovementCartExpired}, reasons)
}
