package cleanup

import (
	"context"
	"time"

	"storefront-service/internal/metrics"
	"storefront-service/internal/repository"
	"storefront-service/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const idleBatchSize = 100

type CleanupService struct {
	repo       *repository.Repository
	carts      service.CartService
	cartExpiry time.Duration
	log        *zap.Logger
	now        func() time.Time
}

// NewCleanupService: cartExpiry == 0 выключает возврат резервов из брошенных корзин.
func NewCleanupService(repo *repository.Repository, carts service.CartService, cartExpiry time.Duration, log *zap.Logger) *CleanupService {
	return &CleanupService{
		repo:       repo,
		carts:      carts,
		cartExpiry: cartExpiry,
		log:        log,
		now:        time.Now,
	}
}

// ReleaseIdleCarts возвращает на склад резервы корзин, не менявшихся дольше cartExpiry.
func (c *CleanupService) ReleaseIdleCarts(ctx context.Context) error {
	if c.cartExpiry <= 0 {
		return nil
	}
	cutoff := c.now().UTC().Add(-c.cartExpiry)

	seen := make(map[uuid.UUID]struct{})
	total := 0
	for {
		carts, err := c.repo.Carts.ListIdleSince(ctx, cutoff, idleBatchSize)
		if err != nil {
			c.log.Error("failed to list idle carts", zap.Error(err))
			return err
		}
		progressed := false
		for _, cart := range carts {
			if _, ok := seen[cart.ID]; ok {
				continue
			}
			seen[cart.ID] = struct{}{}
			progressed = true

			n, err := c.carts.ReleaseIdleCart(ctx, cart.ID, cutoff)
			if err != nil {
				// одна корзина не должна останавливать остальные
				c.log.Error("failed to release idle cart", zap.String("cart_id", cart.ID.String()), zap.Error(err))
				continue
			}
			if n > 0 {
				total++
				metrics.CartsReleased.Inc()
			}
		}
		if !progressed || len(carts) < idleBatchSize {
			break
		}
	}

	if total > 0 {
		c.log.Info("released idle carts", zap.Int("count", total))
	}
	return nil
}

// ExpireCheckoutSessions переводит просроченные pending-сессии в expired.
func (c *CleanupService) ExpireCheckoutSessions(ctx context.Context) error {
	n, err := c.repo.Checkouts.ExpirePending(ctx, c.now().UTC())
	if err != nil {
		c.log.Error("failed to expire checkout sessions", zap.Error(err))
		return err
	}
	if n > 0 {
		metrics.CheckoutSessionsExpired.Add(float64(n))
		c.log.Info("expired checkout sessions", zap.Int64("count", n))
	}
	return nil
}

// RunFullCleanup выполняет все задачи очистки
func (c *CleanupService) RunFullCleanup(ctx context.Context) error {
	c.log.Info("starting full cleanup")

	if err := c.ReleaseIdleCarts(ctx); err != nil {
		return err
	}

	if err := c.ExpireCheckoutSessions(ctx); err != nil {
		return err
	}

	c.log.Info("full cleanup completed")
	return nil
}
