// internal/api/offers/handlers.go
package offers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/api/apiutil"
	"github.com/codr1/marketplace/internal/api/authz"
	"github.com/codr1/marketplace/internal/db"
	"github.com/codr1/marketplace/internal/db/dbq"
)

const (
	offersQueryTimeout   = 5 * time.Second
	maxTitleLength       = 120
	maxDescriptionLength = 1000
)

var (
	store    *db.DB
	initOnce sync.Once

	// now is replaced in tests.
	now = time.Now
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *db.DB) {
	if database == nil {
		return
	}
	initOnce.Do(func() {
		store = database
	})
}

type offerRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	DiscountPercent int64  `json:"discount_percent"`
	StartsOn        string `json:"starts_on"`
	EndsOn          string `json:"ends_on"`
}

func (req *offerRequest) validate() apiutil.FieldErrors {
	var fe apiutil.FieldErrors
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	if req.Title == "" {
		fe.Add("title", "is required")
	} else if len(req.Title) > maxTitleLength {
		fe.Add("title", "is too long")
	}
	if len(req.Description) > maxDescriptionLength {
		fe.Add("description", "is too long")
	}
	if req.DiscountPercent < 1 || req.DiscountPercent > 100 {
		fe.Add("discount_percent", "must be between 1 and 100")
	}

	startsOn, startErr := apiutil.ParseDate(req.StartsOn, "starts_on")
	if startErr != nil {
		fe.Add("starts_on", startErr.Error())
	}
	endsOn, endErr := apiutil.ParseDate(req.EndsOn, "ends_on")
	if endErr != nil {
		fe.Add("ends_on", endErr.Error())
	}
	if startErr == nil && endErr == nil {
		// YYYY-MM-DD compares in date order.
		if endsOn < startsOn {
			fe.Add("ends_on", "must not be before starts_on")
		}
		req.StartsOn = startsOn
		req.EndsOn = endsOn
	}
	return fe
}

func (req offerRequest) params(shopID, offerID int64) dbq.OfferParams {
	return dbq.OfferParams{
		ID:              offerID,
		ShopID:          shopID,
		Title:           req.Title,
		Description:     req.Description,
		DiscountPercent: req.DiscountPercent,
		StartsOn:        req.StartsOn,
		EndsOn:          req.EndsOn,
	}
}

// GET /api/v1/shops/{shop_id}/offers
//
// Only offers running today (UTC) are listed. all=1 lists every offer for
// the shop's owner.
func HandleListOffers(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), offersQueryTimeout)
	defer cancel()

	ownerID, err := store.Queries.GetShopOwner(ctx, shopID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Shop not found")
			return
		}
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to load shop")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load offers")
		return
	}

	activeOn := now().UTC().Format("2006-01-02")
	if r.URL.Query().Get("all") == "1" && authz.CanManageShop(authz.UserFromContext(r.Context()), ownerID) {
		activeOn = ""
	}

	items, err := store.Queries.ListOffers(ctx, shopID, activeOn)
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to list offers")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load offers")
		return
	}
	if items == nil {
		items = []dbq.Offer{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, items); err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to write offers response")
	}
}

// POST /api/v1/vendor/shops/{shop_id}/offers
func HandleCreateOffer(w http.ResponseWriter, r *http.Request) {
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
	if _, ok := apiutil.RequireShopManager(w, r, store.Queries, shopID); !ok {
		return
	}

	var req offerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fieldErrs := req.validate(); fieldErrs.HasErrors() {
		apiutil.WriteFieldErrors(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), offersQueryTimeout)
	defer cancel()

	created, err := store.Queries.CreateOffer(ctx, req.params(shopID, 0))
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to create offer")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to create offer")
		return
	}

	logger.Info().Int64("shop_id", shopID).Int64("offer_id", created.ID).Msg("Offer created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Int64("offer_id", created.ID).Msg("Failed to write offer response")
	}
}

// PUT /api/v1/vendor/shops/{shop_id}/offers/{offer_id}
func HandleUpdateOffer(w http.ResponseWriter, r *http.Request) {
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
	offerID, err := apiutil.PathID(r, "offer_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := apiutil.RequireShopManager(w, r, store.Queries, shopID); !ok {
		return
	}

	var req offerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fieldErrs := req.validate(); fieldErrs.HasErrors() {
		apiutil.WriteFieldErrors(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), offersQueryTimeout)
	defer cancel()

	updated, err := store.Queries.UpdateOffer(ctx, req.params(shopID, offerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Offer not found")
			return
		}
		logger.Error().Err(err).Int64("offer_id", offerID).Msg("Failed to update offer")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update offer")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, updated); err != nil {
		logger.Error().Err(err).Int64("offer_id", offerID).Msg("Failed to write offer response")
	}
}

// DELETE /api/v1/vendor/shops/{shop_id}/offers/{offer_id}
func HandleDeleteOffer(w http.ResponseWriter, r *http.Request) {
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
	offerID, err := apiutil.PathID(r, "offer_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := apiutil.RequireShopManager(w, r, store.Queries, shopID); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), offersQueryTimeout)
	defer cancel()

	if err := store.Queries.DeleteOffer(ctx, shopID, offerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Offer not found")
			return
		}
		logger.Error().Err(err).Int64("offer_id", offerID).Msg("Failed to delete offer")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to delete offer")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
