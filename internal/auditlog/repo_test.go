package auditlog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orderstackhq/inventory-backend/pkg/db/models"
	"github.com/orderstackhq/inventory-backend/pkg/enums"
	"github.com/orderstackhq/inventory-backend/pkg/pagination"
)

func setupLogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS inventory_change_logs (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  product_sku TEXT NOT NULL,
  change_type TEXT NOT NULL,
  quantity_changed INTEGER NOT NULL,
  previous_qty INTEGER NOT NULL,
  new_qty INTEGER NOT NULL,
  order_id TEXT,
  reason TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestRepositoryListByProductOrdersNewestFirst(t *testing.T) {
	db := setupLogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	productID := uuid.NewString()
	base := time.Now().Add(-time.Hour)
	for i, changeType := range []enums.ChangeType{
		enums.ChangeTypeInitial,
		enums.ChangeTypeRestock,
		enums.ChangeTypeReserve,
	} {
		row := models.InventoryChangeLog{
			ID:         uuid.New(),
			ProductID:  productID,
			ProductSKU: "SKU-X",
			ChangeType: changeType,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, &row))
	}
	// a row for another product must not leak in
	require.NoError(t, repo.Create(ctx, &models.InventoryChangeLog{
		ID:         uuid.New(),
		ProductID:  uuid.NewString(),
		ProductSKU: "SKU-Y",
		ChangeType: enums.ChangeTypeInitial,
		CreatedAt:  base,
	}))

	rows, total, err := repo.ListByProduct(ctx, productID, pagination.Params{Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, rows, 3)
	assert.Equal(t, enums.ChangeTypeReserve, rows[0].ChangeType)
	assert.Equal(t, enums.ChangeTypeInitial, rows[2].ChangeType)
}

func TestRepositoryListByProductPaginates(t *testing.T) {
	db := setupLogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	productID := uuid.NewString()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		row := models.InventoryChangeLog{
			ID:         uuid.New(),
			ProductID:  productID,
			ProductSKU: "SKU-P",
			ChangeType: enums.ChangeTypeRestock,
			NewQty:     i,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, &row))
	}

	rows, total, err := repo.ListByProduct(ctx, productID, pagination.Params{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].NewQty)
	assert.Equal(t, 1, rows[1].NewQty)
}
