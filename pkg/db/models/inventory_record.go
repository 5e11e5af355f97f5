package models

import "time"

// InventoryRecord is the authoritative stock triple for one product.
// AvailableQty is stored rather than derived so low-stock scans stay cheap;
// every mutation keeps available_qty == quantity - reserved_qty.
type InventoryRecord struct {
	ProductID       string     `gorm:"column:product_id;primaryKey" json:"productId"`
	ProductSKU      string     `gorm:"column:product_sku;not null" json:"productSku"`
	Quantity        int        `gorm:"column:quantity;not null;default:0" json:"quantity"`
	ReservedQty     int        `gorm:"column:reserved_qty;not null;default:0" json:"reservedQty"`
	AvailableQty    int        `gorm:"column:available_qty;not null;default:0" json:"availableQty"`
	ReorderLevel    int        `gorm:"column:reorder_level;not null;default:0" json:"reorderLevel"`
	ReorderQuantity int        `gorm:"column:reorder_quantity;not null;default:0" json:"reorderQuantity"`
	LastRestocked   *time.Time `gorm:"column:last_restocked" json:"lastRestocked,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName overrides the default pluralization.
func (InventoryRecord) TableName() string {
	return "inventory_records"
}
