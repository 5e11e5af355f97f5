package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/orderstackhq/inventory-backend/internal/auditlog"
	"github.com/orderstackhq/inventory-backend/pkg/db"
	"github.com/orderstackhq/inventory-backend/pkg/db/models"
	"github.com/orderstackhq/inventory-backend/pkg/enums"
	pkgerrors "github.com/orderstackhq/inventory-backend/pkg/errors"
	"github.com/orderstackhq/inventory-backend/pkg/logger"
	"github.com/orderstackhq/inventory-backend/pkg/metrics"
	"github.com/orderstackhq/inventory-backend/pkg/pagination"
)

const (
	defaultReorderLevel    = 10
	defaultReorderQuantity = 50

	// Attempts before an adjustment gives up on its compare-and-swap loop.
	adjustRetryAttempts = 3
)

const (
	reasonInitialStock   = "Initial stock"
	reasonOrderPlaced    = "Order placed"
	reasonOrderCancelled = "Order cancelled/failed"
	reasonOrderCompleted = "Order completed"
)

// AuditAppender records change log entries after committed mutations.
type AuditAppender interface {
	Append(ctx context.Context, entry auditlog.Entry)
}

// AlertNotifier emits stock signals after committed mutations.
type AlertNotifier interface {
	EvaluateLowStock(ctx context.Context, record *models.InventoryRecord)
	StockUpdated(ctx context.Context, record *models.InventoryRecord)
}

// Service owns the stock ledger transition rules.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.InventoryRecord, error)
	Restock(ctx context.Context, input RestockInput) (*models.InventoryRecord, error)
	Adjust(ctx context.Context, input AdjustInput) (*models.InventoryRecord, error)
	Reserve(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error)
	Release(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error)
	ConfirmSale(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error)
	Get(ctx context.Context, productID string) (*models.InventoryRecord, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.InventoryRecord, pagination.Meta, error)
}

type service struct {
	repo    Repository
	audit   AuditAppender
	alerts  AlertNotifier
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewService wires the stock ledger dependencies. Metrics may be nil.
func NewService(repo Repository, audit AuditAppender, alerts AlertNotifier, logg *logger.Logger, m *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	if audit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit appender required")
	}
	if alerts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "alert notifier required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:    repo,
		audit:   audit,
		alerts:  alerts,
		logg:    logg,
		metrics: m,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.InventoryRecord, error) {
	start := time.Now()
	record, err := s.create(ctx, input)
	s.finish("create", start, err)
	return record, err
}

func (s *service) create(ctx context.Context, input CreateInput) (*models.InventoryRecord, error) {
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	productSKU := strings.TrimSpace(input.ProductSKU)
	if productSKU == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product sku required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}

	reorderLevel := defaultReorderLevel
	if input.ReorderLevel != nil {
		if *input.ReorderLevel < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder level must not be negative")
		}
		reorderLevel = *input.ReorderLevel
	}
	reorderQuantity := defaultReorderQuantity
	if input.ReorderQuantity != nil {
		if *input.ReorderQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder quantity must not be negative")
		}
		reorderQuantity = *input.ReorderQuantity
	}

	record := &models.InventoryRecord{
		ProductID:       productID,
		ProductSKU:      productSKU,
		Quantity:        input.Quantity,
		ReservedQty:     0,
		AvailableQty:    input.Quantity,
		ReorderLevel:    reorderLevel,
		ReorderQuantity: reorderQuantity,
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "inventory record already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory record")
	}

	reason := reasonInitialStock
	s.audit.Append(ctx, auditlog.Entry{
		ProductID:       created.ProductID,
		ProductSKU:      created.ProductSKU,
		ChangeType:      enums.ChangeTypeInitial,
		QuantityChanged: created.Quantity,
		PreviousQty:     0,
		NewQty:          created.Quantity,
		Reason:          &reason,
	})

	s.logg.Info(s.logg.WithProductID(ctx, created.ProductID), "inventory record created")
	return created, nil
}

func (s *service) Restock(ctx context.Context, input RestockInput) (*models.InventoryRecord, error) {
	start := time.Now()
	record, err := s.restock(ctx, input)
	s.finish("restock", start, err)
	return record, err
}

func (s *service) restock(ctx context.Context, input RestockInput) (*models.InventoryRecord, error) {
	if strings.TrimSpace(input.ProductID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Amount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock amount must not be negative")
	}

	record, err := s.repo.Restock(ctx, input.ProductID, input.Amount)
	if err != nil {
		return nil, s.mapMutationError(err, "restock inventory")
	}

	s.audit.Append(ctx, auditlog.Entry{
		ProductID:       record.ProductID,
		ProductSKU:      record.ProductSKU,
		ChangeType:      enums.ChangeTypeRestock,
		QuantityChanged: input.Amount,
		PreviousQty:     record.Quantity - input.Amount,
		NewQty:          record.Quantity,
		Reason:          input.Reason,
	})
	s.alerts.EvaluateLowStock(ctx, record)

	s.logg.Info(s.logg.WithProductID(ctx, record.ProductID), "stock restocked")
	return record, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.InventoryRecord, error) {
	start := time.Now()
	record, err := s.adjust(ctx, input)
	s.finish("adjust", start, err)
	return record, err
}

func (s *service) adjust(ctx context.Context, input AdjustInput) (*models.InventoryRecord, error) {
	if strings.TrimSpace(input.ProductID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.NewQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}

	for attempt := 0; attempt < adjustRetryAttempts; attempt++ {
		current, err := s.repo.FindByProductID(ctx, input.ProductID)
		if err != nil {
			return nil, s.mapMutationError(err, "load inventory record")
		}
		if input.NewQuantity < current.ReservedQty {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "reservations exceed the adjusted quantity")
		}

		record, err := s.repo.SetQuantity(ctx, input.ProductID, input.NewQuantity, ObservedState{
			Quantity:    current.Quantity,
			ReservedQty: current.ReservedQty,
		})
		if err != nil {
			if errors.Is(err, ErrStaleRecord) {
				continue
			}
			return nil, s.mapMutationError(err, "adjust inventory")
		}

		s.audit.Append(ctx, auditlog.Entry{
			ProductID:       record.ProductID,
			ProductSKU:      record.ProductSKU,
			ChangeType:      enums.ChangeTypeAdjustment,
			QuantityChanged: input.NewQuantity,
			PreviousQty:     current.Quantity,
			NewQty:          record.Quantity,
			Reason:          input.Reason,
		})
		s.alerts.EvaluateLowStock(ctx, record)

		s.logg.Info(s.logg.WithProductID(ctx, record.ProductID), "stock adjusted")
		return record, nil
	}

	return nil, pkgerrors.New(pkgerrors.CodeConflict, "inventory record is being modified concurrently")
}

func (s *service) Reserve(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error) {
	start := time.Now()
	record, err := s.reserve(ctx, input)
	s.finish("reserve", start, err)
	return record, err
}

func (s *service) reserve(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error) {
	if err := validateReservation(input); err != nil {
		return nil, err
	}

	record, err := s.repo.Reserve(ctx, input.ProductID, input.Quantity)
	if err != nil {
		return nil, s.mapMutationError(err, "reserve stock")
	}

	reason := reasonOrderPlaced
	s.audit.Append(ctx, auditlog.Entry{
		ProductID:       record.ProductID,
		ProductSKU:      record.ProductSKU,
		ChangeType:      enums.ChangeTypeReserve,
		QuantityChanged: input.Quantity,
		PreviousQty:     record.AvailableQty + input.Quantity,
		NewQty:          record.AvailableQty,
		OrderID:         input.OrderID,
		Reason:          &reason,
	})

	s.logg.Info(s.logg.WithProductID(ctx, record.ProductID), "stock reserved")
	return record, nil
}

func (s *service) Release(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error) {
	start := time.Now()
	record, err := s.release(ctx, input)
	s.finish("release", start, err)
	return record, err
}

func (s *service) release(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error) {
	if err := validateReservation(input); err != nil {
		return nil, err
	}

	record, err := s.repo.Release(ctx, input.ProductID, input.Quantity)
	if err != nil {
		return nil, s.mapMutationError(err, "release stock")
	}

	reason := reasonOrderCancelled
	s.audit.Append(ctx, auditlog.Entry{
		ProductID:       record.ProductID,
		ProductSKU:      record.ProductSKU,
		ChangeType:      enums.ChangeTypeRelease,
		QuantityChanged: input.Quantity,
		PreviousQty:     record.AvailableQty - input.Quantity,
		NewQty:          record.AvailableQty,
		OrderID:         input.OrderID,
		Reason:          &reason,
	})

	s.logg.Info(s.logg.WithProductID(ctx, record.ProductID), "reserved stock released")
	return record, nil
}

func (s *service) ConfirmSale(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error) {
	start := time.Now()
	record, err := s.confirmSale(ctx, input)
	s.finish("confirm_sale", start, err)
	return record, err
}

func (s *service) confirmSale(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error) {
	if err := validateReservation(input); err != nil {
		return nil, err
	}

	record, err := s.repo.ConfirmSale(ctx, input.ProductID, input.Quantity)
	if err != nil {
		return nil, s.mapMutationError(err, "confirm sale")
	}

	reason := reasonOrderCompleted
	s.audit.Append(ctx, auditlog.Entry{
		ProductID:       record.ProductID,
		ProductSKU:      record.ProductSKU,
		ChangeType:      enums.ChangeTypeSale,
		QuantityChanged: input.Quantity,
		PreviousQty:     record.Quantity + input.Quantity,
		NewQty:          record.Quantity,
		OrderID:         input.OrderID,
		Reason:          &reason,
	})
	s.alerts.StockUpdated(ctx, record)

	s.logg.Info(s.logg.WithProductID(ctx, record.ProductID), "sale confirmed")
	return record, nil
}

func (s *service) Get(ctx context.Context, productID string) (*models.InventoryRecord, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	record, err := s.repo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, s.mapMutationError(err, "load inventory record")
	}
	return record, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.InventoryRecord, pagination.Meta, error) {
	params = pagination.Normalize(params, pagination.DefaultLimit)

	rows, total, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pagination.Meta{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory records")
	}
	return rows, pagination.MetaFor(params, total), nil
}

func validateReservation(input ReservationInput) error {
	if strings.TrimSpace(input.ProductID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}

func (s *service) mapMutationError(err error, action string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
	case errors.Is(err, ErrInsufficientStock):
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock available")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
	}
}

func (s *service) finish(operation string, start time.Time, err error) {
	s.metrics.ObserveDuration(operation, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(operation)
		return
	}
	s.metrics.IncSuccess(operation)
}
