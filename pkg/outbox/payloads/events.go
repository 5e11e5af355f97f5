package payloads

// LowStockEvent is emitted when a product's available quantity falls to or
// below its reorder level after a restock-class mutation.
type LowStockEvent struct {
	ProductID    string `json:"productId"`
	ProductSKU   string `json:"productSku"`
	CurrentStock int    `json:"currentStock"`
	ReorderLevel int    `json:"reorderLevel"`
}

// StockUpdatedEvent is emitted unconditionally after a confirmed sale so the
// order pipeline can observe the post-sale position.
type StockUpdatedEvent struct {
	ProductID    string `json:"productId"`
	ProductSKU   string `json:"productSku"`
	Quantity     int    `json:"quantity"`
	AvailableQty int    `json:"availableQty"`
}
