package alerts

import (
	"context"

	"gorm.io/gorm"

	"github.com/orderstackhq/inventory-backend/pkg/db/models"
	"github.com/orderstackhq/inventory-backend/pkg/enums"
	pkgerrors "github.com/orderstackhq/inventory-backend/pkg/errors"
	"github.com/orderstackhq/inventory-backend/pkg/logger"
	"github.com/orderstackhq/inventory-backend/pkg/metrics"
	"github.com/orderstackhq/inventory-backend/pkg/outbox"
	"github.com/orderstackhq/inventory-backend/pkg/outbox/payloads"
)

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service evaluates stock signals after ledger mutations. Emission is
// best-effort: a failed emit is logged and never surfaced to the caller.
type Service interface {
	EvaluateLowStock(ctx context.Context, record *models.InventoryRecord)
	StockUpdated(ctx context.Context, record *models.InventoryRecord)
}

type service struct {
	db      *gorm.DB
	emitter eventEmitter
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewService wires alert dependencies. Metrics may be nil.
func NewService(db *gorm.DB, emitter eventEmitter, logg *logger.Logger, m *metrics.LedgerMetrics) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database handle required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "event emitter required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{db: db, emitter: emitter, logg: logg, metrics: m}, nil
}

func (s *service) EvaluateLowStock(ctx context.Context, record *models.InventoryRecord) {
	if record == nil {
		return
	}
	if record.AvailableQty > record.ReorderLevel {
		return
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventInventoryLowStock,
		AggregateType: enums.AggregateInventory,
		AggregateID:   record.ProductID,
		Version:       1,
		Data: payloads.LowStockEvent{
			ProductID:    record.ProductID,
			ProductSKU:   record.ProductSKU,
			CurrentStock: record.AvailableQty,
			ReorderLevel: record.ReorderLevel,
		},
	}

	if err := s.emitter.Emit(ctx, s.db, event); err != nil {
		logCtx := s.logg.WithProductID(ctx, record.ProductID)
		s.logg.Error(logCtx, "low stock alert emit failed", err)
		return
	}
	s.metrics.IncLowStockAlert()
}

func (s *service) StockUpdated(ctx context.Context, record *models.InventoryRecord) {
	if record == nil {
		return
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventInventoryStockUpdated,
		AggregateType: enums.AggregateInventory,
		AggregateID:   record.ProductID,
		Version:       1,
		Data: payloads.StockUpdatedEvent{
			ProductID:    record.ProductID,
			ProductSKU:   record.ProductSKU,
			Quantity:     record.Quantity,
			AvailableQty: record.AvailableQty,
		},
	}

	if err := s.emitter.Emit(ctx, s.db, event); err != nil {
		logCtx := s.logg.WithProductID(ctx, record.ProductID)
		s.logg.Error(logCtx, "stock updated emit failed", err)
	}
}
