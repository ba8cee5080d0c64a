package repository

import (
	"context"
	"errors"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LookupRepo — справочники, которые ядро только читает: зоны доставки, адреса, пункты самовывоза.
type LookupRepo interface {
	GetZone(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error)
	GetAddressForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error)
	GetPickupLocation(ctx context.Context, id uuid.UUID) (*models.PickupLocation, error)

	CreateZone(ctx context.Context, z *models.DeliveryZone) error
	CreateAddress(ctx context.Context, a *models.Address) error
	CreatePickupLocation(ctx context.Context, p *models.PickupLocation) error
}

type lookupRepo struct{ db *gorm.DB }

func NewLookupRepo(db *gorm.DB) LookupRepo { return &lookupRepo{db: db} }

func (r *lookupRepo) GetZone(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
	var z models.DeliveryZone
	err := r.db.WithContext(ctx).First(&z, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &z, err
}

func (r *lookupRepo) GetAddressForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
	var a models.Address
	err := r.db.WithContext(ctx).First(&a, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &a, err
}

func (r *lookupRepo) GetPickupLocation(ctx context.Context, id uuid.UUID) (*models.PickupLocation, error) {
	var p models.PickupLocation
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *lookupRepo) CreateZone(ctx context.Context, z *models.DeliveryZone) error {
	return r.db.WithContext(ctx).Select("*").Create(z).Error
}

func (r *lookupRepo) CreateAddress(ctx context.Context, a *models.Address) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *lookupRepo) CreatePickupLocation(ctx context.Context, p *models.PickupLocation) error {
	return r.db.WithContext(ctx).Select("*").Create(p).Error
}
