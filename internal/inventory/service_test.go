package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"gorm.io/gorm"

	"github.com/orderstackhq/inventory-backend/internal/auditlog"
	"github.com/orderstackhq/inventory-backend/pkg/db/models"
	"github.com/orderstackhq/inventory-backend/pkg/enums"
	pkgerrors "github.com/orderstackhq/inventory-backend/pkg/errors"
	"github.com/orderstackhq/inventory-backend/pkg/logger"
	"github.com/orderstackhq/inventory-backend/pkg/pagination"
)

type stubInventoryRepo struct {
	records map[string]*models.InventoryRecord

	failSetQuantityTimes int
	findErr              error
}

func newStubInventoryRepo() *stubInventoryRepo {
	return &stubInventoryRepo{records: make(map[string]*models.InventoryRecord)}
}

func (s *stubInventoryRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubInventoryRepo) Create(ctx context.Context, record *models.InventoryRecord) (*models.InventoryRecord, error) {
	if _, exists := s.records[record.ProductID]; exists {
		return nil, fmt.Errorf("duplicate key value violates unique constraint \"inventory_records_pkey\"")
	}
	stored := *record
	s.records[record.ProductID] = &stored
	out := stored
	return &out, nil
}

func (s *stubInventoryRepo) FindByProductID(ctx context.Context, productID string) (*models.InventoryRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	record, ok := s.records[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *record
	return &out, nil
}

func (s *stubInventoryRepo) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.InventoryRecord, int64, error) {
	var rows []models.InventoryRecord
	for _, record := range s.records {
		if filters.LowStock && record.AvailableQty > record.ReorderLevel {
			continue
		}
		rows = append(rows, *record)
	}
	return rows, int64(len(rows)), nil
}

func (s *stubInventoryRepo) Restock(ctx context.Context, productID string, qty int) (*models.InventoryRecord, error) {
	record, ok := s.records[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	record.Quantity += qty
	record.AvailableQty += qty
	out := *record
	return &out, nil
}

func (s *stubInventoryRepo) Reserve(ctx context.Context, productID string, qty int) (*models.InventoryRecord, error) {
	record, ok := s.records[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if record.AvailableQty < qty {
		return nil, ErrInsufficientStock
	}
	record.ReservedQty += qty
	record.AvailableQty -= qty
	out := *record
	return &out, nil
}

func (s *stubInventoryRepo) Release(ctx context.Context, productID string, qty int) (*models.InventoryRecord, error) {
	record, ok := s.records[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	record.AvailableQty += qty
	if record.ReservedQty > qty {
		record.ReservedQty -= qty
	} else {
		record.ReservedQty = 0
	}
	out := *record
	return &out, nil
}

func (s *stubInventoryRepo) ConfirmSale(ctx context.Context, productID string, qty int) (*models.InventoryRecord, error) {
	record, ok := s.records[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if record.Quantity < qty {
		return nil, ErrInsufficientStock
	}
	record.Quantity -= qty
	if record.ReservedQty > qty {
		record.ReservedQty -= qty
	} else {
		record.ReservedQty = 0
	}
	out := *record
	return &out, nil
}

func (s *stubInventoryRepo) SetQuantity(ctx context.Context, productID string, newQty int, observed ObservedState) (*models.InventoryRecord, error) {
	record, ok := s.records[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if s.failSetQuantityTimes > 0 {
		s.failSetQuantityTimes--
		return nil, ErrStaleRecord
	}
	if record.Quantity != observed.Quantity || record.ReservedQty != observed.ReservedQty {
		return nil, ErrStaleRecord
	}
	record.Quantity = newQty
	record.AvailableQty = newQty - record.ReservedQty
	out := *record
	return &out, nil
}

type capturingAudit struct {
	entries []auditlog.Entry
}

func (c *capturingAudit) Append(ctx context.Context, entry auditlog.Entry) {
	c.entries = append(c.entries, entry)
}

type capturingAlerts struct {
	lowStockChecks []models.InventoryRecord
	stockUpdates   []models.InventoryRecord
}

func (c *capturingAlerts) EvaluateLowStock(ctx context.Context, record *models.InventoryRecord) {
	c.lowStockChecks = append(c.lowStockChecks, *record)
}

func (c *capturingAlerts) StockUpdated(ctx context.Context, record *models.InventoryRecord) {
	c.stockUpdates = append(c.stockUpdates, *record)
}

func newTestService(t *testing.T, repo Repository) (Service, *capturingAudit, *capturingAlerts) {
	t.Helper()
	audit := &capturingAudit{}
	alerts := &capturingAlerts{}
	logg := logger.New(logger.Options{Output: io.Discard})
	svc, err := NewService(repo, audit, alerts, logg, nil)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, audit, alerts
}

func seedRecord(t *testing.T, svc Service, productID string, qty, reorderLevel int) *models.InventoryRecord {
	t.Helper()
	record, err := svc.Create(context.Background(), CreateInput{
		ProductID:    productID,
		ProductSKU:   "SKU-" + productID,
		Quantity:     qty,
		ReorderLevel: &reorderLevel,
	})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}
	return record
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected coded error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s", code, typed.Code())
	}
}

func TestCreateWritesInitialLog(t *testing.T) {
	svc, audit, _ := newTestService(t, newStubInventoryRepo())

	record, err := svc.Create(context.Background(), CreateInput{
		ProductID:  "p1",
		ProductSKU: "SKU-1",
		Quantity:   100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ReservedQty != 0 || record.AvailableQty != 100 {
		t.Fatalf("unexpected initial state %+v", record)
	}
	if record.ReorderLevel != defaultReorderLevel || record.ReorderQuantity != defaultReorderQuantity {
		t.Fatalf("defaults not applied %+v", record)
	}

	if len(audit.entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(audit.entries))
	}
	entry := audit.entries[0]
	if entry.ChangeType != enums.ChangeTypeInitial {
		t.Fatalf("unexpected change type %s", entry.ChangeType)
	}
	if entry.PreviousQty != 0 || entry.NewQty != 100 || entry.QuantityChanged != 100 {
		t.Fatalf("unexpected log snapshots %+v", entry)
	}
	if entry.Reason == nil || *entry.Reason != "Initial stock" {
		t.Fatalf("unexpected reason %+v", entry.Reason)
	}
}

func TestCreateDuplicateConflicts(t *testing.T) {
	svc, _, _ := newTestService(t, newStubInventoryRepo())
	seedRecord(t, svc, "p1", 10, 5)

	_, err := svc.Create(context.Background(), CreateInput{
		ProductID:  "p1",
		ProductSKU: "SKU-1",
		Quantity:   5,
	})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t, newStubInventoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{ProductSKU: "SKU-1", Quantity: 1})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(ctx, CreateInput{ProductID: "p1", Quantity: 1})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(ctx, CreateInput{ProductID: "p1", ProductSKU: "SKU-1", Quantity: -1})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestRestockUpdatesTotalsAndLog(t *testing.T) {
	svc, audit, alerts := newTestService(t, newStubInventoryRepo())
	seedRecord(t, svc, "p1", 40, 5)

	record, err := svc.Restock(context.Background(), RestockInput{ProductID: "p1", Amount: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Quantity != 50 || record.AvailableQty != 50 || record.ReservedQty != 0 {
		t.Fatalf("unexpected state %+v", record)
	}
	if record.AvailableQty != record.Quantity-record.ReservedQty {
		t.Fatalf("invariant broken %+v", record)
	}

	entry := audit.entries[len(audit.entries)-1]
	if entry.ChangeType != enums.ChangeTypeRestock {
		t.Fatalf("unexpected change type %s", entry.ChangeType)
	}
	if entry.PreviousQty != 40 || entry.NewQty != 50 || entry.QuantityChanged != 10 {
		t.Fatalf("unexpected log snapshots %+v", entry)
	}
	if len(alerts.lowStockChecks) != 1 {
		t.Fatalf("expected low stock evaluation after restock")
	}
}

func TestRestockRejectsNegativeAmount(t *testing.T) {
	svc, _, _ := newTestService(t, newStubInventoryRepo())
	seedRecord(t, svc, "p1", 40, 5)

	_, err := svc.Restock(context.Background(), RestockInput{ProductID: "p1", Amount: -3})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestRestockUnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t, newStubInventoryRepo())

	_, err := svc.Restock(context.Background(), RestockInput{ProductID: "missing", Amount: 1})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestAdjustOverwritesQuantity(t *testing.T) {
	svc, audit, alerts := newTestService(t, newStubInventoryRepo())
	seedRecord(t, svc, "p1", 100, 20)

	if _, err := svc.Reserve(context.Background(), ReservationInput{ProductID: "p1", Quantity: 30}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	record, err := svc.Adjust(context.Background(), AdjustInput{ProductID: "p1", NewQuantity: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Quantity != 60 || record.ReservedQty != 30 || record.AvailableQty != 30 {
		t.Fatalf("unexpected state %+v", record)
	}

	entry := audit.entries[len(audit.entries)-1]
	if entry.ChangeType != enums.ChangeTypeAdjustment {
		t.Fatalf("unexpected change type %s", entry.ChangeType)
	}
	if entry.PreviousQty != 100 || entry.NewQty != 60 {
		t.Fatalf("unexpected log snapshots %+v", entry)
	}
	if len(alerts.lowStockChecks) == 0 {
		t.Fatalf("expected low stock evaluation after adjustment")
	}
}

func TestAdjustBelowReservedFails(t *testing.T) {
	svc, _, _ := newTestService(t, newStubInventoryRepo())
	seedRecord(t, svc, "p1", 100, 20)

	if _, err := svc.Reserve(context.Background(), ReservationInput{ProductID: "p1", Quantity: 30}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	_, err := svc.Adjust(context.Background(), AdjustInput{ProductID: "p1", NewQuantity: 5})
	assertCode(t, err, pkgerrors.CodeInsufficientStock)

	record, err := svc.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Quantity != 100 || record.ReservedQty != 30 || record.AvailableQty != 70 {
		t.Fatalf("record should be unchanged %+v", record)
	}
}

func TestAdjustRetriesOnConcurrentWrite(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _, _ := newTestService(t, repo)
	seedRecord(t, svc, "p1", 100, 20)

	repo.failSetQuantityTimes = 2
	record, err := svc.Adjust(context.Background(), AdjustInput{ProductID: "p1", NewQuantity: 80})
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if record.Quantity != 80 {
		t.Fatalf("unexpected quantity %d", record.Quantity)
	}
}

func TestAdjustGivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _, _ := newTestService(t, repo)
	seedRecord(t, svc, "p1", 100, 20)

	repo.failSetQuantityTimes = adjustRetryAttempts
	_, err := svc.Adjust(context.Background(), AdjustInput{ProductID: "p1", NewQuantity: 80})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestReserveInsufficientStock(t *testing.T) {
	svc, _, _ := newTestService(t, newStubInventoryRepo())
	seedRecord(t, svc, "p1", 10, 5)

	_, err := svc.Reserve(context.Background(), ReservationInput{ProductID: "p1", Quantity: 11})
	assertCode(t, err, pkgerrors.CodeInsufficientStock)
}

func TestReserveLogsAvailableSnapshots(t *testing.T) {
	svc, audit, _ := newTestService(t, newStubInventoryRepo())
	seedRecord(t, svc, "p1", 100, 20)

	orderID := "o1"
	record, err := svc.Reserve(context.Background(), ReservationInput{ProductID: "p1", Quantity: 30, OrderID: &orderID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.AvailableQty != 70 || record.ReservedQty != 30 {
		t.Fatalf("unexpected state %+v", record)
	}

	entry := audit.entries[len(audit.entries)-1]
	if entry.ChangeType != enums.ChangeTypeReserve {
		t.Fatalf("unexpected change type %s", entry.ChangeType)
	}
	if entry.PreviousQty != 100 || entry.NewQty != 70 {
		t.Fatalf("reserve should snapshot available quantity %+v", entry)
	}
	if entry.OrderID == nil || *entry.OrderID != "o1" {
		t.Fatalf("order id not carried %+v", entry.OrderID)
	}
	if entry.Reason == nil || *entry.Reason != "Order placed" {
		t.Fatalf("unexpected reason %+v", entry.Reason)
	}
}

func TestReleaseClampsReserved(t *testing.T) {
	svc, audit, _ := newTestService(t, newStubInventoryRepo())
	seedRecord(t, svc, "p1", 100, 20)

	if _, err := svc.Reserve(context.Background(), ReservationInput{ProductID: "p1", Quantity: 10}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	record, err := svc.Release(context.Background(), ReservationInput{ProductID: "p1", Quantity: 25})
	if err != nil {
		t.Fatalf("over-release must not fail: %v", err)
	}
	if record.ReservedQty != 0 {
		t.Fatalf("reserved should clamp at zero, got %d", record.ReservedQty)
	}
	if record.AvailableQty != 115 {
		t.Fatalf("unexpected available %d", record.AvailableQty)
	}

	entry := audit.entries[len(audit.entries)-1]
	if entry.ChangeType != enums.ChangeTypeRelease {
		t.Fatalf("unexpected change type %s", entry.ChangeType)
	}
	if entry.PreviousQty != 90 || entry.NewQty != 115 {
		t.Fatalf("release should snapshot available quantity %+v", entry)
	}
}

func TestConfirmSaleLeavesAvailableUntouched(t *testing.T) {
	svc, audit, alerts := newTestService(t, newStubInventoryRepo())
	seedRecord(t, svc, "p1", 100, 20)

	if _, err := svc.Reserve(context.Background(), ReservationInput{ProductID: "p1", Quantity: 10}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	orderID := "o2"
	record, err := svc.ConfirmSale(context.Background(), ReservationInput{ProductID: "p1", Quantity: 10, OrderID: &orderID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Quantity != 90 || record.ReservedQty != 0 {
		t.Fatalf("unexpected state %+v", record)
	}
	if record.AvailableQty != 90 {
		t.Fatalf("available should be left as it was after the reserve, got %d", record.AvailableQty)
	}

	entry := audit.entries[len(audit.entries)-1]
	if entry.ChangeType != enums.ChangeTypeSale {
		t.Fatalf("unexpected change type %s", entry.ChangeType)
	}
	if entry.PreviousQty != 100 || entry.NewQty != 90 {
		t.Fatalf("sale should snapshot total quantity %+v", entry)
	}
	if entry.Reason == nil || *entry.Reason != "Order completed" {
		t.Fatalf("unexpected reason %+v", entry.Reason)
	}

	if len(alerts.stockUpdates) != 1 {
		t.Fatalf("expected unconditional stock updated signal")
	}
	if len(alerts.lowStockChecks) != 0 {
		t.Fatalf("sale must not trigger low stock evaluation")
	}
}

func TestReserveReleaseSaleScenario(t *testing.T) {
	svc, _, _ := newTestService(t, newStubInventoryRepo())
	ctx := context.Background()
	seedRecord(t, svc, "p1", 100, 20)

	o1 := "o1"
	record, err := svc.Reserve(ctx, ReservationInput{ProductID: "p1", Quantity: 30, OrderID: &o1})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if record.AvailableQty != 70 || record.ReservedQty != 30 {
		t.Fatalf("unexpected state after reserve %+v", record)
	}

	record, err = svc.Release(ctx, ReservationInput{ProductID: "p1", Quantity: 30, OrderID: &o1})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if record.AvailableQty != 100 || record.ReservedQty != 0 {
		t.Fatalf("unexpected state after release %+v", record)
	}

	o2 := "o2"
	if _, err = svc.Reserve(ctx, ReservationInput{ProductID: "p1", Quantity: 10, OrderID: &o2}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	record, err = svc.ConfirmSale(ctx, ReservationInput{ProductID: "p1", Quantity: 10, OrderID: &o2})
	if err != nil {
		t.Fatalf("confirm sale: %v", err)
	}
	if record.Quantity != 90 || record.ReservedQty != 0 {
		t.Fatalf("unexpected state after sale %+v", record)
	}
}

func TestGetUnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t, newStubInventoryRepo())

	_, err := svc.Get(context.Background(), "missing")
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestListNormalizesPagination(t *testing.T) {
	svc, _, _ := newTestService(t, newStubInventoryRepo())
	seedRecord(t, svc, "p1", 100, 20)
	seedRecord(t, svc, "p2", 3, 20)

	rows, meta, err := svc.List(context.Background(), pagination.Params{}, ListFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if meta.Page != 1 || meta.Limit != pagination.DefaultLimit || meta.Total != 2 || meta.TotalPages != 1 {
		t.Fatalf("unexpected meta %+v", meta)
	}

	rows, _, err = svc.List(context.Background(), pagination.Params{}, ListFilters{LowStock: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].ProductID != "p2" {
		t.Fatalf("low stock filter should match only p2, got %+v", rows)
	}
}

func TestStorageFailureMapsToDependency(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _, _ := newTestService(t, repo)

	repo.findErr = errors.New("connection refused")
	_, err := svc.Get(context.Background(), "p1")
	assertCode(t, err, pkgerrors.CodeDependency)
}
