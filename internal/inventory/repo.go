package inventory

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/orderstackhq/inventory-backend/pkg/db/models"
	"github.com/orderstackhq/inventory-backend/pkg/pagination"
)

var (
	// ErrInsufficientStock signals a guarded stock mutation lost its quantity check.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStaleRecord signals a compare-and-swap update observed a concurrent write.
	ErrStaleRecord = errors.New("inventory record changed concurrently")
)

// ObservedState carries the quantity pair a caller read before attempting a
// compare-and-swap overwrite.
type ObservedState struct {
	Quantity    int
	ReservedQty int
}

// Repository exposes persistence operations for inventory records. The
// mutating helpers are single guarded statements so concurrent callers on the
// same product serialize at the storage layer.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.InventoryRecord) (*models.InventoryRecord, error)
	FindByProductID(ctx context.Context, productID string) (*models.InventoryRecord, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.InventoryRecord, int64, error)
	Restock(ctx context.Context, productID string, qty int) (*models.InventoryRecord, error)
	Reserve(ctx context.Context, productID string, qty int) (*models.InventoryRecord, error)
	Release(ctx context.Context, productID string, qty int) (*models.InventoryRecord, error)
	ConfirmSale(ctx context.Context, productID string, qty int) (*models.InventoryRecord, error)
	SetQuantity(ctx context.Context, productID string, newQty int, observed ObservedState) (*models.InventoryRecord, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, record *models.InventoryRecord) (*models.InventoryRecord, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repositoryImpl) FindByProductID(ctx context.Context, productID string) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repositoryImpl) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.InventoryRecord, int64, error) {
	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.InventoryRecord{})
		if filters.LowStock {
			q = q.Where("available_qty <= reorder_level")
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InventoryRecord
	err := query().
		Order("updated_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repositoryImpl) Restock(ctx context.Context, productID string, qty int) (*models.InventoryRecord, error) {
	return r.guardedUpdate(ctx, productID, nil, `
		UPDATE inventory_records
		SET quantity = quantity + ?,
			available_qty = available_qty + ?,
			last_restocked = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?
		RETURNING *
	`, qty, qty, productID)
}

func (r *repositoryImpl) Reserve(ctx context.Context, productID string, qty int) (*models.InventoryRecord, error) {
	return r.guardedUpdate(ctx, productID, ErrInsufficientStock, `
		UPDATE inventory_records
		SET available_qty = available_qty - ?,
			reserved_qty = reserved_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND available_qty >= ?
		RETURNING *
	`, qty, qty, productID, qty)
}

func (r *repositoryImpl) Release(ctx context.Context, productID string, qty int) (*models.InventoryRecord, error) {
	// Reserved stock is floor-clamped; over-release is tolerated.
	return r.guardedUpdate(ctx, productID, nil, `
		UPDATE inventory_records
		SET available_qty = available_qty + ?,
			reserved_qty = CASE WHEN reserved_qty > ? THEN reserved_qty - ? ELSE 0 END,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?
		RETURNING *
	`, qty, qty, qty, productID)
}

func (r *repositoryImpl) ConfirmSale(ctx context.Context, productID string, qty int) (*models.InventoryRecord, error) {
	// available_qty is deliberately untouched; callers reserve first.
	return r.guardedUpdate(ctx, productID, ErrInsufficientStock, `
		UPDATE inventory_records
		SET quantity = quantity - ?,
			reserved_qty = CASE WHEN reserved_qty > ? THEN reserved_qty - ? ELSE 0 END,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND quantity >= ?
		RETURNING *
	`, qty, qty, qty, productID, qty)
}

func (r *repositoryImpl) SetQuantity(ctx context.Context, productID string, newQty int, observed ObservedState) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	res := r.db.WithContext(ctx).Raw(`
		UPDATE inventory_records
		SET quantity = ?,
			available_qty = ? - reserved_qty,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND quantity = ? AND reserved_qty = ?
		RETURNING *
	`, newQty, newQty, productID, observed.Quantity, observed.ReservedQty).Scan(&record)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByProductID(ctx, productID); err != nil {
			return nil, err
		}
		return nil, ErrStaleRecord
	}
	return &record, nil
}

// guardedUpdate runs a conditional single-statement update. A miss is mapped
// to gorm.ErrRecordNotFound when the product does not exist, otherwise to
// guardErr (nil guardErr means the statement only misses on missing rows).
func (r *repositoryImpl) guardedUpdate(ctx context.Context, productID string, guardErr error, query string, args ...interface{}) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	res := r.db.WithContext(ctx).Raw(query, args...).Scan(&record)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if guardErr == nil {
			return nil, gorm.ErrRecordNotFound
		}
		if _, err := r.FindByProductID(ctx, productID); err != nil {
			return nil, err
		}
		return nil, guardErr
	}
	return &record, nil
}
