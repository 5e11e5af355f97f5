package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/orderstackhq/inventory-backend/pkg/enums"
)

// InventoryChangeLog is one immutable audit row per committed mutation.
// PreviousQty/NewQty snapshot total quantity for INITIAL/RESTOCK/ADJUSTMENT/
// SALE but available quantity for RESERVE/RELEASE. The asymmetry is inherited
// behavior and kept on purpose; consumers must branch on ChangeType.
type InventoryChangeLog struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID       string           `gorm:"column:product_id;not null;index" json:"productId"`
	ProductSKU      string           `gorm:"column:product_sku;not null" json:"productSku"`
	ChangeType      enums.ChangeType `gorm:"column:change_type;type:change_type_enum;not null" json:"changeType"`
	QuantityChanged int              `gorm:"column:quantity_changed;not null" json:"quantityChanged"`
	PreviousQty     int              `gorm:"column:previous_qty;not null" json:"previousQty"`
	NewQty          int              `gorm:"column:new_qty;not null" json:"newQty"`
	OrderID         *string          `gorm:"column:order_id" json:"orderId,omitempty"`
	Reason          *string          `gorm:"column:reason" json:"reason,omitempty"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName overrides the default pluralization.
func (InventoryChangeLog) TableName() string {
	return "inventory_change_logs"
}
