package enums

import "fmt"

// ChangeType maps to the change_type_enum enum in Postgres. Every inventory
// mutation writes exactly one change log row tagged with one of these.
type ChangeType string

const (
	ChangeTypeInitial    ChangeType = "INITIAL"
	ChangeTypeRestock    ChangeType = "RESTOCK"
	ChangeTypeAdjustment ChangeType = "ADJUSTMENT"
	ChangeTypeReserve    ChangeType = "RESERVE"
	ChangeTypeRelease    ChangeType = "RELEASE"
	ChangeTypeSale       ChangeType = "SALE"
)

var validChangeTypes = []ChangeType{
	ChangeTypeInitial,
	ChangeTypeRestock,
	ChangeTypeAdjustment,
	ChangeTypeReserve,
	ChangeTypeRelease,
	ChangeTypeSale,
}

// IsValid reports whether the value matches the canonical change type enum.
func (t ChangeType) IsValid() bool {
	for _, candidate := range validChangeTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseChangeType converts raw input into ChangeType.
func ParseChangeType(value string) (ChangeType, error) {
	for _, candidate := range validChangeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid change type %q", value)
}
