package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"storefront-service/internal/metrics"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxOrderNumberAttempts = 5
	maxNotesLen            = 1000
	maxReasonLen           = 500
	defaultCheckoutTTL     = 30 * time.Minute
)

type orderService struct {
	repo        *repository.Repository
	settings    SettingsProvider
	ledger      *StockLedger
	events      EventBus
	checkoutTTL time.Duration
	log         *zap.Logger
	now         func() time.Time
	numbers     func(time.Time) string
}

func NewOrderService(
	repo *repository.Repository,
	settings SettingsProvider,
	ledger *StockLedger,
	events EventBus,
	checkoutTTL time.Duration,
	log *zap.Logger,
) OrderService {
	if checkoutTTL <= 0 {
		checkoutTTL = defaultCheckoutTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &orderService{
		repo:        repo,
		settings:    settings,
		ledger:      ledger,
		events:      events,
		checkoutTTL: checkoutTTL,
		log:         log,
		now:         time.Now,
		numbers:     NewOrderNumber,
	}
}

// NewOrderNumber: ORD-<последние 6 цифр unix millis>-<3 случайные цифры>. Уникальность не гарантирована.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%06d-%03d", now.UnixMilli()%1_000_000, rand.IntN(1000))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

func validateCreateOrder(in CreateOrderInput) error {
	if !in.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	if !in.DeliveryMethod.Valid() {
		return ErrInvalidDeliveryMethod
	}
	switch in.PaymentMethod {
	case models.PaymentMethodOnDelivery:
		if in.DeliveryMethod != models.DeliveryMethodDelivery {
			return ErrPaymentMethodMismatch
		}
	case models.PaymentMethodOnPickup:
		if in.DeliveryMethod != models.DeliveryMethodPickup {
			return ErrPaymentMethodMismatch
		}
	}
	switch in.DeliveryMethod {
	case models.DeliveryMethodDelivery:
		if in.DeliveryAddressID == nil || *in.DeliveryAddressID == uuid.Nil {
			return ErrAddressRequired
		}
	case models.DeliveryMethodPickup:
		if in.PickupLocationID == nil || *in.PickupLocationID == uuid.Nil {
			return ErrPickupLocationRequired
		}
	}
	return nil
}

// quote — снимок позиций по текущим ценам и итоги.
type quote struct {
	items  []models.OrderItem
	totals Totals
	zoneID *uuid.UUID
}

func (s *orderService) buildQuote(
	ctx context.Context,
	r *repository.Repository,
	cart *models.Cart,
	items []models.CartItem,
	method models.DeliveryMethod,
	st Settings,
) (*quote, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := r.Products.BatchGetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var bad []IncompatibleItem
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, ErrProductNotFound
		}
		eligible := p.PickupEligible
		if method == models.DeliveryMethodDelivery {
			eligible = p.DeliveryEligible
		}
		if !eligible {
			bad = append(bad, IncompatibleItem{CartItemID: it.ID, ProductID: p.ID, ProductName: p.Name})
		}
	}
	if len(bad) > 0 {
		return nil, &DeliveryMethodIncompatibleError{Method: method, Items: bad}
	}

	q := &quote{}
	zoneFee := decimal.Zero
	if method == models.DeliveryMethodDelivery {
		if cart.DeliveryZoneID == nil {
			return nil, ErrZoneRequired
		}
		zone, err := r.Lookups.GetZone(ctx, *cart.DeliveryZoneID)
		if err != nil {
			return nil, fmt.Errorf("get zone: %w", err)
		}
		if zone == nil || !zone.IsActive {
			return nil, ErrInvalidZone
		}
		zoneFee = zone.DeliveryFee
		q.zoneID = &zone.ID
	}

	lines := make([]PricingLine, 0, len(items))
	q.items = make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		p := byID[it.ProductID]
		lines = append(lines, PricingLine{
			UnitPrice:               p.Price,
			Quantity:                it.Quantity,
			RequiresSpecialDelivery: p.RequiresSpecialDelivery,
		})
		q.items = append(q.items, models.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Size:        it.Size,
			Color:       it.Color,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
			LineTotal:   p.Price.Mul(decimal.NewFromInt32(it.Quantity)).Round(moneyPlaces),
		})
	}
	q.totals = CalculateTotals(lines, method, zoneFee, st)
	return q, nil
}

func (s *orderService) checkDestination(ctx context.Context, userID uuid.UUID, in CreateOrderInput) error {
	if in.DeliveryMethod == models.DeliveryMethodDelivery {
		addr, err := s.repo.Lookups.GetAddressForUser(ctx, *in.DeliveryAddressID, userID)
		if err != nil {
			return fmt.Errorf("get address: %w", err)
		}
		if addr == nil {
			return ErrInvalidAddress
		}
		return nil
	}

	loc, err := s.repo.Lookups.GetPickupLocation(ctx, *in.PickupLocationID)
	if err != nil {
		return fmt.Errorf("get pickup location: %w", err)
	}
	if loc == nil || !loc.IsActive {
		return ErrInvalidPickupLocation
	}
	return nil
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateCreateOrder(in); err != nil {
		return nil, err
	}
	in.Notes = truncate(in.Notes, maxNotesLen)
	if in.DeliveryMethod == models.DeliveryMethodDelivery {
		in.PickupLocationID = nil
	} else {
		in.DeliveryAddressID = nil
	}

	if err := s.checkDestination(ctx, userID, in); err != nil {
		return nil, err
	}

	st, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	if in.PaymentMethod == models.PaymentMethodOnline {
		sess, err := s.createCheckout(ctx, userID, in, st)
		if err != nil {
			s.logCreateError(userID, in, err)
			return nil, err
		}
		return &CreateOrderResult{Checkout: sess}, nil
	}

	order, err := s.placeOrder(ctx, userID, in, st)
	if err != nil {
		s.logCreateError(userID, in, err)
		return nil, err
	}
	return &CreateOrderResult{Order: order}, nil
}

// createCheckout не трогает ни склад, ни корзину: резерв уже сделан при добавлении в корзину.
func (s *orderService) createCheckout(ctx context.Context, userID uuid.UUID, in CreateOrderInput, st Settings) (*models.CheckoutSession, error) {
	cart, err := s.repo.Carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrEmptyCart
	}
	items, err := s.repo.CartItems.ListByCart(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	q, err := s.buildQuote(ctx, s.repo, cart, items, in.DeliveryMethod, st)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	snapshot := make([]models.CheckoutItem, 0, len(q.items))
	for _, it := range q.items {
		snapshot = append(snapshot, models.CheckoutItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Size:        it.Size,
			Color:       it.Color,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}

	sess := &models.CheckoutSession{
		Reference:          repository.NewReference(),
		UserID:             userID,
		CartID:             cart.ID,
		PaymentMethod:      in.PaymentMethod,
		DeliveryMethod:     in.DeliveryMethod,
		DeliveryAddressID:  in.DeliveryAddressID,
		PickupLocationID:   in.PickupLocationID,
		DeliveryZoneID:     q.zoneID,
		Subtotal:           q.totals.Subtotal,
		TaxAmount:          q.totals.Tax,
		ShippingFee:        q.totals.Shipping,
		LargeOrderFee:      q.totals.LargeOrderFee,
		SpecialDeliveryFee: q.totals.SpecialDeliveryFee,
		TotalAmount:        q.totals.Total,
		Items:              snapshot,
		Status:             models.CheckoutStatusPending,
		Notes:              in.Notes,
		ExpiresAt:          now.Add(s.checkoutTTL),
	}
	if err := s.repo.Checkouts.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	metrics.CheckoutSessionsCreated.Inc()
	s.log.Info("checkout session created",
		zap.String("reference", sess.Reference),
		zap.String("user_id", userID.String()),
		zap.String("total", sess.TotalAmount.String()),
	)

	if s.events != nil {
		if err := s.events.PublishCheckoutCreated(ctx, CheckoutCreatedEvent{
			SessionID:   sess.ID,
			Reference:   sess.Reference,
			UserID:      userID,
			TotalAmount: sess.TotalAmount,
			ExpiresAt:   sess.ExpiresAt,
		}); err != nil {
			s.log.Warn("publish checkout created failed", zap.Error(err))
		}
	}
	return sess, nil
}

// placeOrder: заказ, позиции и удаление корзины в одной транзакции.
// Склад не трогаем — списание уже произошло при добавлении в корзину.
func (s *orderService) placeOrder(ctx context.Context, userID uuid.UUID, in CreateOrderInput, st Settings) (*models.Order, error) {
	var order *models.Order

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		cart, err := tx.Carts.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrEmptyCart
		}
		items, err := tx.CartItems.ListByCartForUpdate(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		q, err := s.buildQuote(ctx, tx, cart, items, in.DeliveryMethod, st)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		o := &models.Order{
			UserID:             userID,
			PaymentMethod:      in.PaymentMethod,
			DeliveryMethod:     in.DeliveryMethod,
			DeliveryAddressID:  in.DeliveryAddressID,
			PickupLocationID:   in.PickupLocationID,
			DeliveryZoneID:     q.zoneID,
			Subtotal:           q.totals.Subtotal,
			TaxAmount:          q.totals.Tax,
			ShippingFee:        q.totals.Shipping,
			LargeOrderFee:      q.totals.LargeOrderFee,
			SpecialDeliveryFee: q.totals.SpecialDeliveryFee,
			TotalAmount:        q.totals.Total,
			Status:             models.OrderStatusPending,
			PaymentStatus:      models.PaymentStatusPending,
			Notes:              in.Notes,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.insertWithUniqueNumber(ctx, tx, o); err != nil {
			return err
		}

		for i := range q.items {
			q.items[i].OrderID = o.ID
			q.items[i].CreatedAt = now
		}
		if err := tx.OrderItems.BulkCreate(ctx, q.items); err != nil {
			return err
		}

		if _, err := tx.CartItems.DeleteByCart(ctx, cart.ID); err != nil {
			return err
		}
		if _, err := tx.Carts.Delete(ctx, cart.ID); err != nil {
			return err
		}

		o.Items = q.items
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.WithLabelValues(string(order.PaymentMethod)).Inc()
	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", userID.String()),
		zap.String("total", order.TotalAmount.String()),
	)
	s.publishPlaced(ctx, order)
	return order, nil
}

// insertWithUniqueNumber повторяет генерацию номера при нарушении UNIQUE(order_number).
// Каждая попытка идёт под SAVEPOINT, чтобы ошибка не отравляла внешнюю транзакцию.
func (s *orderService) insertWithUniqueNumber(ctx context.Context, tx *repository.Repository, o *models.Order) error {
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		o.OrderNumber = s.numbers(s.now())

		exists, err := tx.Orders.ExistsByNumber(ctx, o.OrderNumber)
		if err != nil {
			return err
		}
		if exists {
			metrics.OrderNumberCollisions.Inc()
			continue
		}

		err = tx.WithTx(ctx, func(sp *repository.Repository) error {
			return sp.Orders.Create(ctx, o)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		metrics.OrderNumberCollisions.Inc()
		s.log.Warn("order number collision", zap.String("order_number", o.OrderNumber), zap.Int("attempt", attempt+1))
	}
	return ErrOrderNumberExhausted
}

func (s *orderService) publishPlaced(ctx context.Context, o *models.Order) {
	if s.events == nil {
		return
	}
	evItems := make([]OrderItemEvent, 0, len(o.Items))
	for _, it := range o.Items {
		evItems = append(evItems, OrderItemEvent{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Size:        it.Size,
			Color:       it.Color,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	if err := s.events.PublishOrderPlaced(ctx, OrderPlacedEvent{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		PaymentMethod:  o.PaymentMethod,
		DeliveryMethod: o.DeliveryMethod,
		Items:          evItems,
		Subtotal:       o.Subtotal,
		TaxAmount:      o.TaxAmount,
		ShippingFee:    o.ShippingFee,
		TotalAmount:    o.TotalAmount,
		CreatedAt:      o.CreatedAt,
	}); err != nil {
		s.log.Warn("publish order placed failed", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}

func (s *orderService) logCreateError(userID uuid.UUID, in CreateOrderInput, err error) {
	fields := []zap.Field{
		zap.String("user_id", userID.String()),
		zap.String("payment_method", string(in.PaymentMethod)),
		zap.String("delivery_method", string(in.DeliveryMethod)),
		zap.Error(err),
	}
	switch {
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrDeliveryMethodIncompatible),
		errors.Is(err, ErrZoneRequired),
		errors.Is(err, ErrInvalidZone),
		errors.Is(err, ErrProductNotFound):
		s.log.Warn("order rejected", fields...)
	default:
		s.log.Error("order creation failed", fields...)
	}
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	var ord *models.Order
	if role == RoleAdmin {
		ord, err = s.repo.Orders.GetByID(ctx, id)
	} else {
		ord, err = s.repo.Orders.GetByIDForUser(ctx, id, userID)
	}
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

func (s *orderService) ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}

	if role != RoleAdmin {
		f.UserID = &userID
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	ordersPtr, total, err := s.repo.Orders.List(ctx, repository.OrderListFilter{
		UserID: f.UserID,
		Status: f.Status,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	orders := make([]models.Order, len(ordersPtr))
	for i, o := range ordersPtr {
		orders[i] = *o
	}
	return orders, total, nil
}

var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:   {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:   {models.OrderStatusDelivered},
}

func canTransition(from, to models.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *orderService) CancelOrder(ctx context.Context, id uuid.UUID, reason *string) (*models.Order, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, id, reason, func(o *models.Order) error {
		if role != RoleAdmin && o.UserID != userID {
			return ErrForbidden
		}
		return nil
	})
}

// cancel переводит заказ в cancelled и возвращает позиции на склад в той же транзакции.
func (s *orderService) cancel(ctx context.Context, id uuid.UUID, reason *string, authorize func(*models.Order) error) (*models.Order, error) {
	if reason != nil {
		r := truncate(*reason, maxReasonLen)
		reason = &r
	}

	var ord *models.Order
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		o, err := tx.Orders.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return ErrOrderNotFound
		}
		if err := authorize(o); err != nil {
			return err
		}
		if o.Status == models.OrderStatusCancelled {
			return ErrAlreadyCancelled
		}
		if !canTransition(o.Status, models.OrderStatusCancelled) {
			return ErrInvalidStatusTransition
		}

		items := append([]models.OrderItem(nil), o.Items...)
		sort.Slice(items, func(i, j int) bool { return items[i].ProductID.String() < items[j].ProductID.String() })
		locked := make(map[uuid.UUID]*models.Product, len(items))
		for _, it := range items {
			p, ok := locked[it.ProductID]
			if !ok {
				p, err = s.ledger.LockProduct(ctx, tx, it.ProductID)
				if err != nil {
					return err
				}
				locked[it.ProductID] = p
			}
			if err := s.ledger.Release(ctx, tx, p, StockMove{
				Size:        it.Size,
				Color:       it.Color,
				Quantity:    it.Quantity,
				Reason:      models.MovementOrderCancelled,
				ReferenceID: &o.ID,
			}); err != nil {
				return err
			}
		}

		if err := tx.Orders.UpdateStatus(ctx, o.ID, models.OrderStatusCancelled, reason); err != nil {
			return err
		}
		ord, err = tx.Orders.GetByID(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCancelled.Inc()
	s.log.Info("order cancelled", zap.String("order_id", ord.ID.String()), zap.String("order_number", ord.OrderNumber))

	if s.events != nil {
		ev := OrderCancelledEvent{
			OrderID:     ord.ID,
			OrderNumber: ord.OrderNumber,
			UserID:      ord.UserID,
			CancelledAt: s.now().UTC(),
		}
		if reason != nil {
			ev.Reason = *reason
		}
		if err := s.events.PublishOrderCancelled(ctx, ev); err != nil {
			s.log.Warn("publish order cancelled failed", zap.String("order_id", ord.ID.String()), zap.Error(err))
		}
	}
	return ord, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	switch status {
	case models.OrderStatusConfirmed, models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCancelled:
	default:
		return nil, ErrInvalidStatusTransition
	}

	if status == models.OrderStatusCancelled {
		return s.cancel(ctx, id, nil, func(*models.Order) error { return nil })
	}

	var ord *models.Order
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		o, err := tx.Orders.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return ErrOrderNotFound
		}
		if !canTransition(o.Status, status) {
			return ErrInvalidStatusTransition
		}
		if err := tx.Orders.UpdateStatus(ctx, id, status, nil); err != nil {
			return err
		}
		ord, err = tx.Orders.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order status changed", zap.String("order_id", id.String()), zap.String("status", string(status)))
	return ord, nil
}

func (s *orderService) GetCheckoutSession(ctx context.Context, reference string) (*models.CheckoutSession, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := s.repo.Checkouts.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if sess == nil || (role != RoleAdmin && sess.UserID != userID) {
		return nil, ErrCheckoutNotFound
	}
	return sess, nil
}
