package service

import (
	"context"
	"sync"
	"testing"

	"storefront-service/internal/migrate"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"
	"storefront-service/pkg/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	repo     *repository.Repository
	settings SettingsProvider
	ledger   *StockLedger
	carts    CartService
	orders   OrderService
	stock    InventoryService
	bus      *recordingBus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestSQLite(t)
	if err := migrate.MigrateStoreDB(context.Background(), db, zap.NewNop(), migrate.TablesOnly()); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	repo := repository.New(db)
	settings := NewSettingsService(repo.Settings, nil, zap.NewNop())
	ledger := NewStockLedger(zap.NewNop())
	bus := &recordingBus{}

	return &testEnv{
		db:       db,
		repo:     repo,
		settings: settings,
		ledger:   ledger,
		carts:    NewCartService(repo, settings, ledger, zap.NewNop()),
		orders:   NewOrderService(repo, settings, ledger, bus, 0, zap.NewNop()),
		stock:    NewInventoryService(repo, ledger, zap.NewNop()),
		bus:      bus,
	}
}

func userCtx(id uuid.UUID) context.Context {
	return Customer(context.Background(), id)
}

func adminCtx() context.Context {
	return Admin(context.Background(), uuid.New())
}

type productOpt func(*models.Product)

func special(p *models.Product)    { p.RequiresSpecialDelivery = true }
func inactive(p *models.Product)   { p.IsActive = false }
func noDelivery(p *models.Product) { p.DeliveryEligible = false }
func noPickup(p *models.Product)   { p.PickupEligible = false }
func price(v string) productOpt {
	return func(p *models.Product) { p.Price = decimal.RequireFromString(v) }
}
func stock(n int32) productOpt     { return func(p *models.Product) { p.StockQuantity = n } }
func named(name string) productOpt { return func(p *models.Product) { p.Name = name } }

func (e *testEnv) product(t *testing.T, opts ...productOpt) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:             "Widget",
		Price:            decimal.NewFromInt(20),
		StockQuantity:    10,
		IsActive:         true,
		DeliveryEligible: true,
		PickupEligible:   true,
	}
	for _, o := range opts {
		o(p)
	}
	if err := e.repo.Products.Create(context.Background(), p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func (e *testEnv) stockOf(t *testing.T, id uuid.UUID) int32 {
	t.Helper()
	p, err := e.repo.Products.GetByID(context.Background(), id)
	if err != nil || p == nil {
		t.Fatalf("get product %s: %v", id, err)
	}
	return p.StockQuantity
}

func (e *testEnv) zone(t *testing.T, fee string) *models.DeliveryZone {
	t.Helper()
	z := &models.DeliveryZone{Name: "Center", DeliveryFee: decimal.RequireFromString(fee), IsActive: true}
	if err := e.repo.Lookups.CreateZone(context.Background(), z); err != nil {
		t.Fatalf("create zone: %v", err)
	}
	return z
}

func (e *testEnv) address(t *testing.T, userID uuid.UUID) *models.Address {
	t.Helper()
	a := &models.Address{UserID: userID, Line1: "1 Main St", City: "Lagos"}
	if err := e.repo.Lookups.CreateAddress(context.Background(), a); err != nil {
		t.Fatalf("create address: %v", err)
	}
	return a
}

func (e *testEnv) pickup(t *testing.T) *models.PickupLocation {
	t.Helper()
	l := &models.PickupLocation{Name: "Store #1", Address: "Market sq.", IsActive: true}
	if err := e.repo.Lookups.CreatePickupLocation(context.Background(), l); err != nil {
		t.Fatalf("create pickup location: %v", err)
	}
	return l
}

func (e *testEnv) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

type recordingBus struct {
	mu        sync.Mutex
	placed    []OrderPlacedEvent
	cancelled []OrderCancelledEvent
	checkouts []CheckoutCreatedEvent
}

func (b *recordingBus) PublishOrderPlaced(_ context.Context, e OrderPlacedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.placed = append(b.placed, e)
	return nil
}

func (b *recordingBus) PublishOrderCancelled(_ context.Context, e OrderCancelledEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelled = append(b.cancelled, e)
	return nil
}

func (b *recordingBus) PublishCheckoutCreated(_ context.Context, e CheckoutCreatedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkouts = append(b.checkouts, e)
	return nil
}
