package service

import (
	"context"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type StockAdjustInput struct {
	ProductID uuid.UUID
	Size      string
	Color     string
	Delta     int32
}

type StockLevel struct {
	ProductID     uuid.UUID
	Size          string
	Color         string
	StockQuantity int32
}

// InventoryService — ручная корректировка остатков администратором и журнал движений.
type InventoryService interface {
	AdjustStock(ctx context.Context, in StockAdjustInput) (*StockLevel, error)
	ListMovements(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, error)
}

type inventoryService struct {
	repo   *repository.Repository
	ledger *StockLedger
	log    *zap.Logger
}

func NewInventoryService(repo *repository.Repository, ledger *StockLedger, log *zap.Logger) InventoryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &inventoryService{repo: repo, ledger: ledger, log: log}
}

func (s *inventoryService) AdjustStock(ctx context.Context, in StockAdjustInput) (*StockLevel, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if in.Delta == 0 {
		return nil, ErrQuantityInvalid
	}
	size, color := strings.TrimSpace(in.Size), strings.TrimSpace(in.Color)

	var after int32
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		p, err := s.ledger.LockProduct(ctx, tx, in.ProductID)
		if err != nil {
			return err
		}
		after, err = s.ledger.Adjust(ctx, tx, p, StockMove{
			Size:   size,
			Color:  color,
			Reason: models.MovementAdminAdjust,
		}, in.Delta)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("stock adjusted by admin",
		zap.String("product_id", in.ProductID.String()),
		zap.Int32("delta", in.Delta),
		zap.Int32("after", after),
	)
	return &StockLevel{ProductID: in.ProductID, Size: size, Color: color, StockQuantity: after}, nil
}

func (s *inventoryService) ListMovements(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.Products.ListMovements(ctx, productID, limit)
}
