package inventory

// CreateInput captures the fields needed to register a product's stock.
type CreateInput struct {
	ProductID       string
	ProductSKU      string
	Quantity        int
	ReorderLevel    *int
	ReorderQuantity *int
}

// RestockInput adds stock on top of the current total.
type RestockInput struct {
	ProductID string
	Amount    int
	Reason    *string
}

// AdjustInput overwrites the total quantity with a corrected count.
type AdjustInput struct {
	ProductID   string
	NewQuantity int
	Reason      *string
}

// ReservationInput carries the fields shared by reserve, release and
// confirm-sale requests.
type ReservationInput struct {
	ProductID string
	Quantity  int
	OrderID   *string
}

// ListFilters describe the inputs supported by the inventory list.
type ListFilters struct {
	LowStock bool
}
