package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/api/apiutil"
	"github.com/codr1/marketplace/internal/db"
	"github.com/codr1/marketplace/internal/db/dbq"
	"github.com/codr1/marketplace/internal/export"
)

// transitions lists the statuses each status may move to. Expiry is done by
// the scheduler and is not reachable through the API.
var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// vendorStatuses are the statuses a vendor may set.
var vendorStatuses = map[string]bool{
	StatusConfirmed: true,
	StatusRejected:  true,
	StatusCompleted: true,
}

var knownStatuses = map[string]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusRejected:  true,
	StatusCancelled: true,
	StatusCompleted: true,
	StatusExpired:   true,
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type statusRequest struct {
	Status string `json:"status"`
}

// GET /api/v1/vendor/shops/{shop_id}/orders
func HandleListShopOrders(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	shop, items, ok := loadShopOrders(w, r)
	if !ok {
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, newOrderResponses(items)); err != nil {
		logger.Error().Err(err).Int64("shop_id", shop.ID).Msg("Failed to write orders response")
	}
}

// GET /api/v1/vendor/shops/{shop_id}/orders/export
func HandleExportShopOrders(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	shop, items, ok := loadShopOrders(w, r)
	if !ok {
		return
	}

	filename := fmt.Sprintf("orders-%s-%s.xlsx", shop.Slug, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.WriteOrders(w, shop.Name, items); err != nil {
		logger.Error().Err(err).Int64("shop_id", shop.ID).Msg("Failed to export orders")
	}
}

// loadShopOrders applies the status, from and to filters shared by the list
// and export endpoints. Dates are YYYY-MM-DD in UTC; to is inclusive.
func loadShopOrders(w http.ResponseWriter, r *http.Request) (dbq.Shop, []dbq.OrderDetail, bool) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return dbq.Shop{}, nil, false
	}

	shopID, err := apiutil.PathID(r, "shop_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return dbq.Shop{}, nil, false
	}
	if _, ok := apiutil.RequireShopManager(w, r, store.Queries, shopID); !ok {
		return dbq.Shop{}, nil, false
	}

	params := dbq.ListShopOrdersParams{ShopID: shopID}
	var fe apiutil.FieldErrors
	query := r.URL.Query()
	if status := strings.TrimSpace(query.Get("status")); status != "" {
		if !knownStatuses[status] {
			fe.Add("status", "is not a valid order status")
		}
		params.Status = status
	}
	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			fe.Add("from", "must be a date (YYYY-MM-DD)")
		} else {
			params.From = &from
		}
	}
	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			fe.Add("to", "must be a date (YYYY-MM-DD)")
		} else {
			end := to.AddDate(0, 0, 1)
			params.To = &end
		}
	}
	if fe.HasErrors() {
		apiutil.WriteFieldErrors(w, fe)
		return dbq.Shop{}, nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), ordersQueryTimeout)
	defer cancel()

	shop, err := store.Queries.GetShop(ctx, shopID)
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to load shop")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load orders")
		return dbq.Shop{}, nil, false
	}
	items, err := store.Queries.ListOrdersByShop(ctx, params)
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to list shop orders")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load orders")
		return dbq.Shop{}, nil, false
	}
	return shop, items, true
}

// PATCH /api/v1/vendor/orders/{order_id}/status
func HandleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	orderID, err := apiutil.PathID(r, "order_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req statusRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if !vendorStatuses[req.Status] {
		var fe apiutil.FieldErrors
		fe.Add("status", "must be one of confirmed, rejected, completed")
		apiutil.WriteFieldErrors(w, fe)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ordersQueryTimeout)
	defer cancel()

	current, err := store.Queries.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Order not found")
			return
		}
		logger.Error().Err(err).Int64("order_id", orderID).Msg("Failed to load order")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update order")
		return
	}
	if _, ok := apiutil.RequireShopManager(w, r, store.Queries, current.ShopID); !ok {
		return
	}

	var updated dbq.OrderDetail
	err = store.RunInTx(ctx, func(txdb *db.DB) error {
		order, err := txdb.Queries.GetOrder(ctx, orderID)
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load order", Err: err}
		}
		if !CanTransition(order.Status, req.Status) {
			return apiutil.HandlerError{
				Status:  http.StatusConflict,
				Message: fmt.Sprintf("Cannot change a %s order to %s", order.Status, req.Status),
			}
		}
		if err := txdb.Queries.UpdateOrderStatus(ctx, orderID, req.Status); err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to update order", Err: err}
		}
		updated, err = txdb.Queries.GetOrder(ctx, orderID)
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load order", Err: err}
		}
		return nil
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update order")
		return
	}

	announceTransition(r, updated)

	if err := apiutil.WriteJSON(w, http.StatusOK, newOrderResponse(updated)); err != nil {
		logger.Error().Err(err).Int64("order_id", orderID).Msg("Failed to write order response")
	}
}
