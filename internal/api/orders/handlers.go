// internal/api/orders/handlers.go
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/api/apiutil"
	"github.com/codr1/marketplace/internal/api/authz"
	"github.com/codr1/marketplace/internal/db"
	"github.com/codr1/marketplace/internal/db/dbq"
	"github.com/codr1/marketplace/internal/email"
	"github.com/codr1/marketplace/internal/events"
	"github.com/codr1/marketplace/internal/metrics"
	"github.com/codr1/marketplace/internal/openhours"
	"github.com/codr1/marketplace/internal/slots"
)

const (
	ordersQueryTimeout = 5 * time.Second
	maxQuantity        = 100
	maxNotesLength     = 500

	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusExpired   = "expired"
)

// Dependencies are the collaborators of the order handlers. Mailer and
// Publisher may be nil.
type Dependencies struct {
	DB        *db.DB
	LoadWeek  func(ctx context.Context, shopID int64) (openhours.Week, error)
	Resolver  *slots.Resolver
	Mailer    email.EmailSender
	Publisher events.Publisher
}

var (
	store     *db.DB
	loadWeek  func(ctx context.Context, shopID int64) (openhours.Week, error)
	resolver  *slots.Resolver
	mailer    email.EmailSender
	publisher events.Publisher
	initOnce  sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(deps Dependencies) {
	if deps.DB == nil || deps.LoadWeek == nil {
		return
	}
	initOnce.Do(func() {
		store = deps.DB
		loadWeek = deps.LoadWeek
		resolver = deps.Resolver
		if resolver == nil {
			resolver = slots.NewResolver()
		}
		mailer = deps.Mailer
		publisher = deps.Publisher
		if publisher == nil {
			publisher = events.NoopPublisher{}
		}
	})
}

type createOrderRequest struct {
	CatalogueID    int64  `json:"catalogue_id"`
	Quantity       int64  `json:"quantity"`
	Notes          string `json:"notes"`
	VisitDate      string `json:"visit_date"`
	VisitTime      string `json:"visit_time"`
	TimezoneOffset int    `json:"timezone_offset"`
}

func (req *createOrderRequest) validate() apiutil.FieldErrors {
	var fe apiutil.FieldErrors
	req.Notes = strings.TrimSpace(req.Notes)
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if req.CatalogueID <= 0 {
		fe.Add("catalogue_id", "is required")
	}
	if req.Quantity < 1 || req.Quantity > maxQuantity {
		fe.Add("quantity", fmt.Sprintf("must be between 1 and %d", maxQuantity))
	}
	if len(req.Notes) > maxNotesLength {
		fe.Add("notes", fmt.Sprintf("must be at most %d characters", maxNotesLength))
	}
	return fe
}

// orderResponse adds the visit as the customer sees it.
type orderResponse struct {
	dbq.OrderDetail
	VisitDate string `json:"visit_date"`
	VisitTime string `json:"visit_time"`
}

func newOrderResponse(o dbq.OrderDetail) orderResponse {
	visit := o.VisitAt
	if loc, err := slots.ZoneForOffset(int(o.TimezoneOffset)); err == nil {
		visit = visit.In(loc)
	}
	return orderResponse{
		OrderDetail: o,
		VisitDate:   visit.Format("2006-01-02"),
		VisitTime:   visit.Format("15:04"),
	}
}

func newOrderResponses(items []dbq.OrderDetail) []orderResponse {
	out := make([]orderResponse, 0, len(items))
	for _, o := range items {
		out = append(out, newOrderResponse(o))
	}
	return out
}

// POST /api/v1/orders
//
// The visit is checked against the shop's hours in the shop's zone. A visit
// outside them is refused with a 409 carrying the suggested slot rather than
// moved silently; clients call the slot resolve endpoint first and submit the
// slot it returns.
func HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	user, ok := apiutil.RequireRole(w, r, authz.RoleCustomer)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	fieldErrs := req.validate()
	visitAt, err := slots.CombineVisit(req.VisitDate, req.VisitTime, req.TimezoneOffset)
	if err != nil {
		fieldErrs.Add(visitField(err), err.Error())
	}
	if fieldErrs.HasErrors() {
		apiutil.WriteFieldErrors(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ordersQueryTimeout)
	defer cancel()

	catalogue, err := store.Queries.GetCatalogue(ctx, req.CatalogueID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Catalogue item not found")
			return
		}
		logger.Error().Err(err).Int64("catalogue_id", req.CatalogueID).Msg("Failed to load catalogue item")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}
	if catalogue.Status != "active" || !catalogue.IsBookable {
		apiutil.WriteError(w, http.StatusUnprocessableEntity, "This item cannot be booked")
		return
	}

	shop, err := store.Queries.GetShop(ctx, catalogue.ShopID)
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", catalogue.ShopID).Msg("Failed to load shop")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}
	if shop.Status != "active" {
		apiutil.WriteError(w, http.StatusUnprocessableEntity, "This shop is not accepting bookings")
		return
	}

	week, err := loadWeek(ctx, shop.ID)
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shop.ID).Msg("Failed to load opening hours")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}

	result, err := resolver.ResolveIn(visitAt, week, slots.ShopLocation(shop.Timezone))
	metrics.IncSlotResolution(resolutionOutcome(result, err))
	if err != nil || result.Adjusted {
		writeSlotRejection(w, result, err)
		return
	}

	var created dbq.OrderDetail
	err = store.RunInTx(ctx, func(txdb *db.DB) error {
		created, err = txdb.Queries.CreateOrder(ctx, dbq.CreateOrderParams{
			Reference:      uuid.NewString(),
			ShopID:         shop.ID,
			CatalogueID:    catalogue.ID,
			CustomerID:     user.ID,
			Quantity:       req.Quantity,
			Notes:          req.Notes,
			VisitAt:        result.Slot,
			TimezoneOffset: int64(req.TimezoneOffset),
		})
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to create order", Err: err}
		}
		return nil
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create order")
		return
	}

	metrics.IncOrderCreated()
	logger.Info().Int64("order_id", created.ID).Int64("shop_id", shop.ID).Int64("user_id", user.ID).Msg("Order created")

	email.SendDetached(r.Context(), mailer, created.CustomerEmail, email.BuildOrderReceived(email.DetailsFromOrder(created)), logger)
	events.PublishAsync(r.Context(), publisher, events.OrderEvent(events.ActionCreated, created))

	if err := apiutil.WriteJSON(w, http.StatusCreated, newOrderResponse(created)); err != nil {
		logger.Error().Err(err).Int64("order_id", created.ID).Msg("Failed to write order response")
	}
}

// GET /api/v1/orders
func HandleListMyOrders(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ordersQueryTimeout)
	defer cancel()

	items, err := store.Queries.ListOrdersByCustomer(ctx, user.ID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to list orders")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load orders")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, newOrderResponses(items)); err != nil {
		logger.Error().Err(err).Msg("Failed to write orders response")
	}
}

// GET /api/v1/orders/{order_id}
func HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	orderID, err := apiutil.PathID(r, "order_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ordersQueryTimeout)
	defer cancel()

	order, err := store.Queries.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Order not found")
			return
		}
		logger.Error().Err(err).Int64("order_id", orderID).Msg("Failed to load order")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}

	if order.CustomerID != user.ID && !user.IsAdmin() {
		ownerID, err := store.Queries.GetShopOwner(ctx, order.ShopID)
		if err != nil || !authz.CanManageShop(user, ownerID) {
			// Do not reveal other customers' orders.
			apiutil.WriteError(w, http.StatusNotFound, "Order not found")
			return
		}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, newOrderResponse(order)); err != nil {
		logger.Error().Err(err).Int64("order_id", orderID).Msg("Failed to write order response")
	}
}

// POST /api/v1/orders/{order_id}/cancel
func HandleCancelOrder(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	orderID, err := apiutil.PathID(r, "order_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ordersQueryTimeout)
	defer cancel()

	var updated dbq.OrderDetail
	err = store.RunInTx(ctx, func(txdb *db.DB) error {
		order, err := txdb.Queries.GetOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Order not found", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load order", Err: err}
		}
		if order.CustomerID != user.ID && !user.IsAdmin() {
			return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Order not found"}
		}
		if !CanTransition(order.Status, StatusCancelled) {
			return apiutil.HandlerError{
				Status:  http.StatusConflict,
				Message: fmt.Sprintf("A %s order cannot be cancelled", order.Status),
			}
		}
		if err := txdb.Queries.UpdateOrderStatus(ctx, orderID, StatusCancelled); err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to cancel order", Err: err}
		}
		updated, err = txdb.Queries.GetOrder(ctx, orderID)
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load order", Err: err}
		}
		return nil
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to cancel order")
		return
	}

	announceTransition(r, updated)

	if err := apiutil.WriteJSON(w, http.StatusOK, newOrderResponse(updated)); err != nil {
		logger.Error().Err(err).Int64("order_id", orderID).Msg("Failed to write order response")
	}
}

// announceTransition records, emails and publishes a status change.
func announceTransition(r *http.Request, order dbq.OrderDetail) {
	logger := log.Ctx(r.Context())
	metrics.IncOrderTransition(order.Status)
	logger.Info().Int64("order_id", order.ID).Str("status", order.Status).Msg("Order status changed")

	email.SendDetached(r.Context(), mailer, order.CustomerEmail,
		email.BuildStatusEmail(email.DetailsFromOrder(order), order.Status), logger)
	events.PublishAsync(r.Context(), publisher, events.OrderEvent(order.Status, order))
}

func visitField(err error) string {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "visit_date"):
		return "visit_date"
	case strings.HasPrefix(msg, "visit_time"):
		return "visit_time"
	default:
		return "timezone_offset"
	}
}
