package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/orderstackhq/inventory-backend/api/responses"
	"github.com/orderstackhq/inventory-backend/api/validators"
	"github.com/orderstackhq/inventory-backend/internal/auditlog"
	"github.com/orderstackhq/inventory-backend/internal/inventory"
	"github.com/orderstackhq/inventory-backend/pkg/db/models"
	"github.com/orderstackhq/inventory-backend/pkg/enums"
	pkgerrors "github.com/orderstackhq/inventory-backend/pkg/errors"
	"github.com/orderstackhq/inventory-backend/pkg/logger"
	"github.com/orderstackhq/inventory-backend/pkg/pagination"
)

const maxReasonLength = 500

type createInventoryRequest struct {
	ProductID       string `json:"productId" validate:"required"`
	ProductSKU      string `json:"productSku" validate:"required"`
	Quantity        int    `json:"quantity" validate:"min=0"`
	ReorderLevel    *int   `json:"reorderLevel,omitempty" validate:"omitempty,min=0"`
	ReorderQuantity *int   `json:"reorderQuantity,omitempty" validate:"omitempty,min=0"`
}

type updateStockRequest struct {
	Quantity int     `json:"quantity" validate:"min=0"`
	Type     string  `json:"type" validate:"required"`
	Reason   *string `json:"reason,omitempty"`
}

type reservationRequest struct {
	Quantity int     `json:"quantity" validate:"required,min=1"`
	OrderID  *string `json:"orderId,omitempty"`
}

// CreateInventory registers stock tracking for a product.
func CreateInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createInventoryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Create(r.Context(), inventory.CreateInput{
			ProductID:       req.ProductID,
			ProductSKU:      req.ProductSKU,
			Quantity:        req.Quantity,
			ReorderLevel:    req.ReorderLevel,
			ReorderQuantity: req.ReorderQuantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// ListInventory returns paginated inventory records, optionally low stock only.
func ListInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r, pagination.DefaultLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := inventory.ListFilters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("lowStock")); raw != "" {
			value, parseErr := strconv.ParseBool(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "lowStock must be a boolean"))
				return
			}
			filters.LowStock = value
		}

		rows, meta, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessPage(w, rows, meta)
	}
}

// GetInventory returns the record for one product.
func GetInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := svc.Get(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// UpdateStock restocks or adjusts a product's total quantity.
func UpdateStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := chi.URLParam(r, "productId")

		var req updateStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updateType, err := enums.ParseStockUpdateType(req.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid update type"))
			return
		}

		if req.Reason != nil {
			trimmed := validators.SanitizeString(*req.Reason, maxReasonLength)
			req.Reason = &trimmed
		}

		var record any
		switch updateType {
		case enums.StockUpdateRestock:
			record, err = svc.Restock(r.Context(), inventory.RestockInput{
				ProductID: productID,
				Amount:    req.Quantity,
				Reason:    req.Reason,
			})
		case enums.StockUpdateAdjustment:
			record, err = svc.Adjust(r.Context(), inventory.AdjustInput{
				ProductID:   productID,
				NewQuantity: req.Quantity,
				Reason:      req.Reason,
			})
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// ReserveStock holds available stock against an order.
func ReserveStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return reservationHandler(svc.Reserve, logg)
}

// ReleaseStock returns previously reserved stock.
func ReleaseStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return reservationHandler(svc.Release, logg)
}

// ConfirmSale deducts sold stock from the total.
func ConfirmSale(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return reservationHandler(svc.ConfirmSale, logg)
}

func reservationHandler(op func(ctx context.Context, input inventory.ReservationInput) (*models.InventoryRecord, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reservationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := op(r.Context(), inventory.ReservationInput{
			ProductID: chi.URLParam(r, "productId"),
			Quantity:  req.Quantity,
			OrderID:   req.OrderID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// GetInventoryLogs returns the paginated change history for one product.
func GetInventoryLogs(svc inventory.Service, logs auditlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := chi.URLParam(r, "productId")

		if _, err := svc.Get(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r, pagination.DefaultLogLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, meta, err := logs.Query(r.Context(), productID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessPage(w, rows, meta)
	}
}

func pageParams(r *http.Request, defaultLimit int) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1<<30)
	if err != nil {
		return pagination.Params{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", defaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, Limit: limit}, nil
}
