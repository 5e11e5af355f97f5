package enums

import "fmt"

// StockUpdateType is the closed set of stock update kinds accepted on the
// update endpoint. Unrecognized values are rejected at the boundary instead
// of falling through to an additive update.
type StockUpdateType string

const (
	StockUpdateRestock    StockUpdateType = "restock"
	StockUpdateAdjustment StockUpdateType = "adjustment"
)

var validStockUpdateTypes = []StockUpdateType{
	StockUpdateRestock,
	StockUpdateAdjustment,
}

// IsValid reports whether the value matches the canonical update type enum.
func (t StockUpdateType) IsValid() bool {
	for _, candidate := range validStockUpdateTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseStockUpdateType converts raw input into StockUpdateType.
func ParseStockUpdateType(value string) (StockUpdateType, error) {
	for _, candidate := range validStockUpdateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock update type %q", value)
}
