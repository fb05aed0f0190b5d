package orders

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/api/apiutil"
	"github.com/codr1/marketplace/internal/metrics"
	"github.com/codr1/marketplace/internal/slots"
)

const (
	reasonNoSchedule   = "no_schedule"
	reasonNoSlot       = "no_slot"
	reasonOutsideHours = "outside_opening_hours"
)

type resolveRequest struct {
	VisitDate      string `json:"visit_date"`
	VisitTime      string `json:"visit_time"`
	TimezoneOffset int    `json:"timezone_offset"`
}

type resolveResponse struct {
	Valid     bool   `json:"valid"`
	Adjusted  bool   `json:"adjusted"`
	VisitDate string `json:"visit_date"`
	VisitTime string `json:"visit_time"`
	Message   string `json:"message"`
}

type slotSuggestion struct {
	VisitDate string `json:"visit_date"`
	VisitTime string `json:"visit_time"`
}

type slotRejection struct {
	Error      string          `json:"error"`
	Reason     string          `json:"reason"`
	Suggestion *slotSuggestion `json:"suggestion"`
}

// POST /api/v1/shops/{shop_id}/slots/resolve
//
// Checks a requested visit against the shop's opening hours, read in the shop's
// zone and answered in the client's. A visit outside
// every window is answered with the nearest bookable slot; a shop without a
// schedule or without any slot in the search range is a 422.
func HandleResolveSlot(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	shopID, err := apiutil.PathID(r, "shop_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req resolveRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	visitAt, err := slots.CombineVisit(req.VisitDate, req.VisitTime, req.TimezoneOffset)
	if err != nil {
		var fe apiutil.FieldErrors
		fe.Add(visitField(err), err.Error())
		apiutil.WriteFieldErrors(w, fe)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ordersQueryTimeout)
	defer cancel()

	shop, err := store.Queries.GetShop(ctx, shopID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Shop not found")
			return
		}
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to load shop")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to check slot")
		return
	}

	week, err := loadWeek(ctx, shopID)
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to load opening hours")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to check slot")
		return
	}

	result, err := resolver.ResolveIn(visitAt, week, slots.ShopLocation(shop.Timezone))
	metrics.IncSlotResolution(resolutionOutcome(result, err))
	if err != nil {
		writeSlotRejection(w, result, err)
		return
	}

	resp := resolveResponse{
		Valid:     !result.Adjusted,
		Adjusted:  result.Adjusted,
		VisitDate: result.Date(),
		VisitTime: result.Time(),
		Message:   result.Message(),
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to write slot response")
	}
}

// writeSlotRejection answers a visit that cannot be booked as requested. A
// visit outside opening hours is a 409 carrying the suggested slot; no
// schedule or no slot in the search range is a 422.
func writeSlotRejection(w http.ResponseWriter, result slots.Result, err error) {
	switch {
	case errors.Is(err, slots.ErrNoSchedule):
		_ = apiutil.WriteJSON(w, http.StatusUnprocessableEntity, slotRejection{
			Error:  slots.Message(err),
			Reason: reasonNoSchedule,
		})
	case errors.Is(err, slots.ErrNoSlot):
		_ = apiutil.WriteJSON(w, http.StatusUnprocessableEntity, slotRejection{
			Error:  slots.Message(err),
			Reason: reasonNoSlot,
		})
	case err != nil:
		apiutil.WriteError(w, http.StatusInternalServerError, slots.Message(err))
	default:
		_ = apiutil.WriteJSON(w, http.StatusConflict, slotRejection{
			Error:      result.Message(),
			Reason:     reasonOutsideHours,
			Suggestion: &slotSuggestion{VisitDate: result.Date(), VisitTime: result.Time()},
		})
	}
}

func resolutionOutcome(result slots.Result, err error) string {
	switch {
	case errors.Is(err, slots.ErrNoSchedule):
		return reasonNoSchedule
	case errors.Is(err, slots.ErrNoSlot):
		return reasonNoSlot
	case err != nil:
		return "error"
	case result.Adjusted:
		return "adjusted"
	default:
		return "valid"
	}
}
