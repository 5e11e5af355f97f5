package auditlog

import (
	"context"

	"gorm.io/gorm"

	"github.com/orderstackhq/inventory-backend/pkg/db/models"
	"github.com/orderstackhq/inventory-backend/pkg/pagination"
)

// Repository exposes persistence helpers for inventory change logs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.InventoryChangeLog) error
	ListByProduct(ctx context.Context, productID string, params pagination.Params) ([]models.InventoryChangeLog, int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a change log repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, entry *models.InventoryChangeLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repositoryImpl) ListByProduct(ctx context.Context, productID string, params pagination.Params) ([]models.InventoryChangeLog, int64, error) {
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&models.InventoryChangeLog{}).
			Where("product_id = ?", productID)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InventoryChangeLog
	err := query().
		Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
