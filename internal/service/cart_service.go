package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"storefront-service/internal/metrics"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type cartService struct {
	repo     *repository.Repository
	settings SettingsProvider
	ledger   *StockLedger
	log      *zap.Logger
}

func NewCartService(repo *repository.Repository, settings SettingsProvider, ledger *StockLedger, log *zap.Logger) CartService {
	if log == nil {
		log = zap.NewNop()
	}
	return &cartService{repo: repo, settings: settings, ledger: ledger, log: log}
}

func operationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInsufficientStock):
		metrics.StockConflicts.Inc()
		return "conflict"
	case isBusinessError(err):
		return "rejected"
	default:
		return "error"
	}
}

func isBusinessError(err error) bool {
	for _, target := range []error{
		ErrProductUnavailable, ErrProductNotFound, ErrItemNotFound, ErrZoneRequired,
		ErrInvalidZone, ErrQuantityInvalid, ErrInvalidDeliveryMethod,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func normalizeKey(s string) string { return strings.TrimSpace(s) }

func (s *cartService) GetCart(ctx context.Context) (*CartView, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	cart, err := s.repo.Carts.EnsureForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure cart: %w", err)
	}
	return s.buildView(ctx, cart)
}

func (s *cartService) AddItem(ctx context.Context, in AddItemInput) (view *CartView, err error) {
	defer func() { metrics.RecordCartOperation("add", operationResult(err)) }()

	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, ErrQuantityInvalid
	}
	size, color := normalizeKey(in.Size), normalizeKey(in.Color)

	cart, err := s.repo.Carts.EnsureForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure cart: %w", err)
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		// порядок блокировок: товар → корзина → позиция
		p, err := s.ledger.LockProduct(ctx, tx, in.ProductID)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return ErrProductUnavailable
		}

		locked, err := tx.Carts.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if locked == nil {
			return fmt.Errorf("cart %s disappeared", cart.ID)
		}

		existing, err := tx.CartItems.FindByKeyForUpdate(ctx, locked.ID, p.ID, size, color)
		if err != nil {
			return err
		}

		if err := s.ledger.Reserve(ctx, tx, p, StockMove{
			Size:        size,
			Color:       color,
			Quantity:    in.Quantity,
			Reason:      models.MovementCartAdd,
			ReferenceID: &locked.ID,
		}); err != nil {
			return err
		}

		if existing != nil {
			if err := tx.CartItems.UpdateQuantity(ctx, existing.ID, existing.Quantity+in.Quantity); err != nil {
				return err
			}
		} else {
			if err := tx.CartItems.Create(ctx, &models.CartItem{
				CartID:    locked.ID,
				ProductID: p.ID,
				Size:      size,
				Color:     color,
				Quantity:  in.Quantity,
			}); err != nil {
				return err
			}
		}
		return tx.Carts.Touch(ctx, locked.ID)
	})
	if err != nil {
		s.logMutationError("add item", userID, err)
		return nil, err
	}

	return s.reload(ctx, userID)
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int32) (view *CartView, err error) {
	defer func() { metrics.RecordCartOperation("update", operationResult(err)) }()

	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, ErrQuantityInvalid
	}

	item, err := s.findOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		p, err := s.ledger.LockProduct(ctx, tx, item.ProductID)
		if err != nil {
			return err
		}
		cart, err := tx.Carts.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrItemNotFound
		}
		cur, err := tx.CartItems.GetByIDForUpdate(ctx, cart.ID, itemID)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrItemNotFound
		}

		delta := quantity - cur.Quantity
		move := StockMove{Size: cur.Size, Color: cur.Color, Reason: models.MovementCartUpdate, ReferenceID: &cart.ID}
		switch {
		case delta > 0:
			move.Quantity = delta
			if err := s.ledger.Reserve(ctx, tx, p, move); err != nil {
				return err
			}
		case delta < 0:
			move.Quantity = -delta
			if err := s.ledger.Release(ctx, tx, p, move); err != nil {
				return err
			}
		default:
			return nil
		}

		if err := tx.CartItems.UpdateQuantity(ctx, cur.ID, quantity); err != nil {
			return err
		}
		return tx.Carts.Touch(ctx, cart.ID)
	})
	if err != nil {
		s.logMutationError("update item", userID, err)
		return nil, err
	}

	return s.reload(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, itemID uuid.UUID) (view *CartView, err error) {
	defer func() { metrics.RecordCartOperation("remove", operationResult(err)) }()

	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	item, err := s.findOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		p, err := s.ledger.LockProduct(ctx, tx, item.ProductID)
		if err != nil {
			return err
		}
		cart, err := tx.Carts.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrItemNotFound
		}
		cur, err := tx.CartItems.GetByIDForUpdate(ctx, cart.ID, itemID)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrItemNotFound
		}

		deleted, err := tx.CartItems.Delete(ctx, cur.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrItemNotFound
		}
		if err := s.ledger.Release(ctx, tx, p, StockMove{
			Size:        cur.Size,
			Color:       cur.Color,
			Quantity:    cur.Quantity,
			Reason:      models.MovementCartRemove,
			ReferenceID: &cart.ID,
		}); err != nil {
			return err
		}
		return tx.Carts.Touch(ctx, cart.ID)
	})
	if err != nil {
		s.logMutationError("remove item", userID, err)
		return nil, err
	}

	return s.reload(ctx, userID)
}

func (s *cartService) ClearCart(ctx context.Context) (view *CartView, err error) {
	defer func() { metrics.RecordCartOperation("clear", operationResult(err)) }()

	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.Carts.EnsureForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure cart: %w", err)
	}

	if _, err := s.releaseAll(ctx, cart.ID, models.MovementCartClear, nil); err != nil {
		s.logMutationError("clear cart", userID, err)
		return nil, err
	}

	return s.reload(ctx, userID)
}

func (s *cartService) SetDelivery(ctx context.Context, in SetDeliveryInput) (view *CartView, err error) {
	defer func() { metrics.RecordCartOperation("set_delivery", operationResult(err)) }()

	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !in.Method.Valid() {
		return nil, ErrInvalidDeliveryMethod
	}

	var zoneID *uuid.UUID
	if in.Method == models.DeliveryMethodDelivery {
		if in.ZoneID == nil || *in.ZoneID == uuid.Nil {
			return nil, ErrZoneRequired
		}
		zone, err := s.repo.Lookups.GetZone(ctx, *in.ZoneID)
		if err != nil {
			return nil, fmt.Errorf("get zone: %w", err)
		}
		if zone == nil || !zone.IsActive {
			return nil, ErrInvalidZone
		}
		zoneID = &zone.ID
	}

	cart, err := s.repo.Carts.EnsureForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure cart: %w", err)
	}
	if err := s.repo.Carts.UpdateDelivery(ctx, cart.ID, in.Method, zoneID); err != nil {
		return nil, fmt.Errorf("update delivery: %w", err)
	}

	return s.reload(ctx, userID)
}

func (s *cartService) ReleaseIdleCart(ctx context.Context, cartID uuid.UUID, cutoff time.Time) (int, error) {
	return s.releaseAll(ctx, cartID, models.MovementCartExpired, &cutoff)
}

// releaseAll возвращает на склад все позиции корзины и удаляет их.
// Товары блокируются по возрастанию id, чтобы две очистки с общими товарами не взаимоблокировались.
// Если idleBefore задан, корзина, изменённая позже, не трогается.
func (s *cartService) releaseAll(ctx context.Context, cartID uuid.UUID, reason models.MovementReason, idleBefore *time.Time) (int, error) {
	snapshot, err := s.repo.CartItems.ListByCart(ctx, cartID)
	if err != nil {
		return 0, fmt.Errorf("list cart items: %w", err)
	}
	if len(snapshot) == 0 {
		return 0, nil
	}

	released := 0
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		released = 0
		products := make(map[uuid.UUID]*models.Product, len(snapshot))
		lock := func(id uuid.UUID) (*models.Product, error) {
			if p, ok := products[id]; ok {
				return p, nil
			}
			p, err := s.ledger.LockProduct(ctx, tx, id)
			if err != nil {
				return nil, err
			}
			products[id] = p
			return p, nil
		}

		ids := uniqueProductIDs(snapshot)
		for _, id := range ids {
			if _, err := lock(id); err != nil {
				return err
			}
		}

		cart, err := tx.Carts.GetByIDForUpdate(ctx, cartID)
		if err != nil {
			return err
		}
		if cart == nil {
			return nil
		}
		if idleBefore != nil && !cart.UpdatedAt.Before(*idleBefore) {
			return nil
		}

		items, err := tx.CartItems.ListByCartForUpdate(ctx, cartID)
		if err != nil {
			return err
		}
		for _, it := range items {
			p, err := lock(it.ProductID)
			if err != nil {
				return err
			}
			if err := s.ledger.Release(ctx, tx, p, StockMove{
				Size:        it.Size,
				Color:       it.Color,
				Quantity:    it.Quantity,
				Reason:      reason,
				ReferenceID: &cartID,
			}); err != nil {
				return err
			}
		}

		if _, err := tx.CartItems.DeleteByCart(ctx, cartID); err != nil {
			return err
		}
		released = len(items)
		return tx.Carts.Touch(ctx, cartID)
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

func uniqueProductIDs(items []models.CartItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func (s *cartService) findOwnedItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	cart, err := s.repo.Carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrItemNotFound
	}
	item, err := s.repo.CartItems.GetByID(ctx, cart.ID, itemID)
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (s *cartService) reload(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.repo.Carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, fmt.Errorf("cart for user %s not found", userID)
	}
	return s.buildView(ctx, cart)
}

// buildView читает позиции с живыми ценами и считает итоги. Без транзакции.
func (s *cartService) buildView(ctx context.Context, cart *models.Cart) (*CartView, error) {
	items, err := s.repo.CartItems.ListByCart(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.repo.Products.BatchGetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	zoneFee := decimal.Zero
	if cart.DeliveryMethod == models.DeliveryMethodDelivery && cart.DeliveryZoneID != nil {
		zone, err := s.repo.Lookups.GetZone(ctx, *cart.DeliveryZoneID)
		if err != nil {
			return nil, fmt.Errorf("get zone: %w", err)
		}
		if zone != nil && zone.IsActive {
			zoneFee = zone.DeliveryFee
		}
	}

	st, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	view := &CartView{
		CartID:          cart.ID,
		UserID:          cart.UserID,
		DeliveryMethod:  cart.DeliveryMethod,
		DeliveryZoneID:  cart.DeliveryZoneID,
		DeliveryZoneFee: zoneFee,
		Items:           make([]CartLine, 0, len(items)),
		UpdatedAt:       cart.UpdatedAt,
	}
	lines := make([]PricingLine, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			continue
		}
		view.Items = append(view.Items, CartLine{
			ItemID:                  it.ID,
			ProductID:               p.ID,
			ProductName:             p.Name,
			Size:                    it.Size,
			Color:                   it.Color,
			Quantity:                it.Quantity,
			UnitPrice:               p.Price,
			LineTotal:               p.Price.Mul(decimal.NewFromInt32(it.Quantity)).Round(moneyPlaces),
			StockQuantity:           p.StockQuantity,
			IsActive:                p.IsActive,
			RequiresSpecialDelivery: p.RequiresSpecialDelivery,
			DeliveryEligible:        p.DeliveryEligible,
			PickupEligible:          p.PickupEligible,
		})
		lines = append(lines, PricingLine{
			UnitPrice:               p.Price,
			Quantity:                it.Quantity,
			RequiresSpecialDelivery: p.RequiresSpecialDelivery,
		})
	}
	view.Totals = CalculateTotals(lines, cart.DeliveryMethod, zoneFee, st)
	return view, nil
}

func (s *cartService) logMutationError(op string, userID uuid.UUID, err error) {
	if isBusinessError(err) || errors.Is(err, ErrInsufficientStock) {
		s.log.Warn("cart mutation rejected",
			zap.String("op", op),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return
	}
	s.log.Error("cart mutation failed",
		zap.String("op", op),
		zap.String("user_id", userID.String()),
		zap.Error(err),
	)
}
