package auditlog

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderstackhq/inventory-backend/pkg/db/models"
	"github.com/orderstackhq/inventory-backend/pkg/enums"
	pkgerrors "github.com/orderstackhq/inventory-backend/pkg/errors"
	"github.com/orderstackhq/inventory-backend/pkg/logger"
	"github.com/orderstackhq/inventory-backend/pkg/pagination"
)

// Entry captures one committed ledger mutation for the change log.
type Entry struct {
	ProductID       string
	ProductSKU      string
	ChangeType      enums.ChangeType
	QuantityChanged int
	PreviousQty     int
	NewQty          int
	OrderID         *string
	Reason          *string
}

// Service defines change log append/query operations. Append is best-effort:
// a failed write is logged and never surfaced to the mutating caller.
type Service interface {
	Append(ctx context.Context, entry Entry)
	Query(ctx context.Context, productID string, params pagination.Params) ([]models.InventoryChangeLog, pagination.Meta, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires change log dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "change log repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Append(ctx context.Context, entry Entry) {
	row := &models.InventoryChangeLog{
		ID:              uuid.New(),
		ProductID:       entry.ProductID,
		ProductSKU:      entry.ProductSKU,
		ChangeType:      entry.ChangeType,
		QuantityChanged: entry.QuantityChanged,
		PreviousQty:     entry.PreviousQty,
		NewQty:          entry.NewQty,
		OrderID:         entry.OrderID,
		Reason:          entry.Reason,
	}

	if err := s.repo.Create(ctx, row); err != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"product_id":  entry.ProductID,
			"change_type": string(entry.ChangeType),
		})
		s.logg.Error(ctx, "change log append failed", err)
	}
}

func (s *service) Query(ctx context.Context, productID string, params pagination.Params) ([]models.InventoryChangeLog, pagination.Meta, error) {
	if productID == "" {
		return nil, pagination.Meta{}, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	params = pagination.Normalize(params, pagination.DefaultLogLimit)

	rows, total, err := s.repo.ListByProduct(ctx, productID, params)
	if err != nil {
		return nil, pagination.Meta{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list change logs")
	}
	return rows, pagination.MetaFor(params, total), nil
}
