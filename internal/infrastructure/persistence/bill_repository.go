package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/billing"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/persistence/models"
)

// GormBillRepository implements billing.BillRepository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

// Create persists a bill with its line items and adjustments in one
// transaction.
func (r *GormBillRepository) Create(ctx context.Context, bill *billing.Bill) error {
	var model models.BillModel
	model.FromDomain(bill)

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return mapStoreError(err)
	}
	return nil
}

// FindByID loads a bill with its embedded arrays, scoped to the retailer.
// Soft-deleted bills are not returned.
func (r *GormBillRepository) FindByID(ctx context.Context, retailerID, id uuid.UUID) (*billing.Bill, error) {
	var model models.BillModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Adjustments", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("retailer_id = ? AND id = ? AND deleted_at IS NULL", retailerID, id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, mapStoreError(err)
	}
	return model.ToDomain(), nil
}

// SoftDelete marks a bill deleted. Deleting an already-deleted or unknown
// bill returns ErrNotFound.
func (r *GormBillRepository) SoftDelete(ctx context.Context, retailerID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Where("retailer_id = ? AND id = ? AND deleted_at IS NULL", retailerID, id).
		Update("deleted_at", time.Now())
	if result.Error != nil {
		return mapStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// mapStoreError wraps infrastructure failures as the retryable store error
// so callers can distinguish them from domain outcomes.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return shared.NewDomainError(shared.ErrStoreUnavailable.Code, err.Error())
}
