package alerts

import (
	"context"
	"errors"
	"io"
	"testing"

	"gorm.io/gorm"

	"github.com/orderstackhq/inventory-backend/pkg/db/models"
	"github.com/orderstackhq/inventory-backend/pkg/enums"
	"github.com/orderstackhq/inventory-backend/pkg/logger"
	"github.com/orderstackhq/inventory-backend/pkg/outbox"
	"github.com/orderstackhq/inventory-backend/pkg/outbox/payloads"
)

type stubEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func newTestAlerts(t *testing.T, emitter *stubEmitter) Service {
	t.Helper()
	logg := logger.New(logger.Options{Output: io.Discard})
	svc, err := NewService(&gorm.DB{}, emitter, logg, nil)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func TestEvaluateLowStockEmitsAtThreshold(t *testing.T) {
	emitter := &stubEmitter{}
	svc := newTestAlerts(t, emitter)

	svc.EvaluateLowStock(context.Background(), &models.InventoryRecord{
		ProductID:    "p1",
		ProductSKU:   "SKU-1",
		Quantity:     15,
		AvailableQty: 15,
		ReorderLevel: 20,
	})

	if len(emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.events))
	}
	event := emitter.events[0]
	if event.EventType != enums.EventInventoryLowStock {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	if event.AggregateID != "p1" {
		t.Fatalf("unexpected aggregate id %s", event.AggregateID)
	}
	payload, ok := event.Data.(payloads.LowStockEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Data)
	}
	if payload.CurrentStock != 15 || payload.ReorderLevel != 20 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestEvaluateLowStockSkipsAboveThreshold(t *testing.T) {
	emitter := &stubEmitter{}
	svc := newTestAlerts(t, emitter)

	svc.EvaluateLowStock(context.Background(), &models.InventoryRecord{
		ProductID:    "p1",
		ProductSKU:   "SKU-1",
		AvailableQty: 75,
		ReorderLevel: 20,
	})

	if len(emitter.events) != 0 {
		t.Fatalf("no event expected above the reorder level")
	}
}

func TestStockUpdatedAlwaysEmits(t *testing.T) {
	emitter := &stubEmitter{}
	svc := newTestAlerts(t, emitter)

	svc.StockUpdated(context.Background(), &models.InventoryRecord{
		ProductID:    "p1",
		ProductSKU:   "SKU-1",
		Quantity:     90,
		AvailableQty: 90,
		ReorderLevel: 20,
	})

	if len(emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.events))
	}
	payload, ok := emitter.events[0].Data.(payloads.StockUpdatedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", emitter.events[0].Data)
	}
	if payload.Quantity != 90 || payload.AvailableQty != 90 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestEmitFailuresAreSwallowed(t *testing.T) {
	emitter := &stubEmitter{err: errors.New("outbox unavailable")}
	svc := newTestAlerts(t, emitter)

	// Neither call may panic or surface the failure.
	svc.EvaluateLowStock(context.Background(), &models.InventoryRecord{
		ProductID:    "p1",
		AvailableQty: 1,
		ReorderLevel: 20,
	})
	svc.StockUpdated(context.Background(), &models.InventoryRecord{ProductID: "p1"})
}
