// internal/api/catalogues/handlers.go
package catalogues

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
	cataloguesQueryTimeout = 5 * time.Second
	maxNameLength          = 120
	maxDescriptionLength   = 2000
	maxDurationMinutes     = 24 * 60

	StatusActive = "active"
	StatusHidden = "hidden"
)

var (
	store    *db.DB
	initOnce sync.Once
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

type catalogueResponse struct {
	dbq.Catalogue
	Price string `json:"price"`
}

func newCatalogueResponse(c dbq.Catalogue) catalogueResponse {
	return catalogueResponse{Catalogue: c, Price: apiutil.FormatPriceCents(c.PriceCents)}
}

type catalogueRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	PriceCents      int64  `json:"price_cents"`
	DurationMinutes int64  `json:"duration_minutes"`
	IsBookable      *bool  `json:"is_bookable"`
	Status          string `json:"status"`
}

func (req *catalogueRequest) validate() apiutil.FieldErrors {
	var fe apiutil.FieldErrors

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if req.Status == "" {
		req.Status = StatusActive
	}
	if req.IsBookable == nil {
		bookable := true
		req.IsBookable = &bookable
	}

	if req.Name == "" {
		fe.Add("name", "is required")
	} else if len(req.Name) > maxNameLength {
		fe.Add("name", "is too long")
	}
	if len(req.Description) > maxDescriptionLength {
		fe.Add("description", "is too long")
	}
	if req.PriceCents < 0 {
		fe.Add("price_cents", "must be 0 or greater")
	}
	if req.DurationMinutes < 0 || req.DurationMinutes > maxDurationMinutes {
		fe.Add("duration_minutes", "must be between 0 and 1440")
	}
	if req.Status != StatusActive && req.Status != StatusHidden {
		fe.Add("status", "must be active or hidden")
	}
	return fe
}

func (req *catalogueRequest) params(shopID, id int64) dbq.CatalogueParams {
	return dbq.CatalogueParams{
		ID:              id,
		ShopID:          shopID,
		Name:            req.Name,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		DurationMinutes: req.DurationMinutes,
		IsBookable:      *req.IsBookable,
		Status:          req.Status,
	}
}

// canManage reports whether the request's user may see the shop's hidden items.
func canManage(ctx context.Context, r *http.Request, shopID int64) bool {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		return false
	}
	ownerID, err := store.Queries.GetShopOwner(ctx, shopID)
	if err != nil {
		return false
	}
	return authz.CanManageShop(user, ownerID)
}

// GET /api/v1/shops/{shop_id}/catalogues
//
// Hidden items are included with all=1 for the shop's owner.
func HandleListCatalogues(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), cataloguesQueryTimeout)
	defer cancel()

	if _, err := store.Queries.GetShop(ctx, shopID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Shop not found")
			return
		}
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to load shop")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load catalogue")
		return
	}

	includeHidden := r.URL.Query().Get("all") == "1" && canManage(ctx, r, shopID)
	items, err := store.Queries.ListCatalogues(ctx, shopID, includeHidden)
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to list catalogues")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load catalogue")
		return
	}

	resp := make([]catalogueResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, newCatalogueResponse(item))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to write catalogues response")
	}
}

// GET /api/v1/catalogues/{catalogue_id}
func HandleGetCatalogue(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	catalogueID, err := apiutil.PathID(r, "catalogue_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cataloguesQueryTimeout)
	defer cancel()

	item, err := store.Queries.GetCatalogue(ctx, catalogueID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Catalogue item not found")
			return
		}
		logger.Error().Err(err).Int64("catalogue_id", catalogueID).Msg("Failed to load catalogue item")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load catalogue item")
		return
	}
	if item.Status != StatusActive && !canManage(ctx, r, item.ShopID) {
		apiutil.WriteError(w, http.StatusNotFound, "Catalogue item not found")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, newCatalogueResponse(item)); err != nil {
		logger.Error().Err(err).Int64("catalogue_id", catalogueID).Msg("Failed to write catalogue response")
	}
}

// POST /api/v1/vendor/shops/{shop_id}/catalogues
func HandleCreateCatalogue(w http.ResponseWriter, r *http.Request) {
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

	var req catalogueRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fieldErrs := req.validate(); fieldErrs.HasErrors() {
		apiutil.WriteFieldErrors(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cataloguesQueryTimeout)
	defer cancel()

	created, err := store.Queries.CreateCatalogue(ctx, req.params(shopID, 0))
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to create catalogue item")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to create catalogue item")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, newCatalogueResponse(created)); err != nil {
		logger.Error().Err(err).Int64("catalogue_id", created.ID).Msg("Failed to write catalogue response")
	}
}

// PUT /api/v1/vendor/shops/{shop_id}/catalogues/{catalogue_id}
func HandleUpdateCatalogue(w http.ResponseWriter, r *http.Request) {
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
	catalogueID, err := apiutil.PathID(r, "catalogue_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := apiutil.RequireShopManager(w, r, store.Queries, shopID); !ok {
		return
	}

	var req catalogueRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fieldErrs := req.validate(); fieldErrs.HasErrors() {
		apiutil.WriteFieldErrors(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cataloguesQueryTimeout)
	defer cancel()

	updated, err := store.Queries.UpdateCatalogue(ctx, req.params(shopID, catalogueID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Catalogue item not found")
			return
		}
		logger.Error().Err(err).Int64("catalogue_id", catalogueID).Msg("Failed to update catalogue item")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update catalogue item")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, newCatalogueResponse(updated)); err != nil {
		logger.Error().Err(err).Int64("catalogue_id", catalogueID).Msg("Failed to write catalogue response")
	}
}

// DELETE /api/v1/vendor/shops/{shop_id}/catalogues/{catalogue_id}
//
// Past orders keep their row with the item reference cleared.
func HandleDeleteCatalogue(w http.ResponseWriter, r *http.Request) {
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
	catalogueID, err := apiutil.PathID(r, "catalogue_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := apiutil.RequireShopManager(w, r, store.Queries, shopID); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cataloguesQueryTimeout)
	defer cancel()

	if err := store.Queries.DeleteCatalogue(ctx, shopID, catalogueID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Catalogue item not found")
			return
		}
		logger.Error().Err(err).Int64("catalogue_id", catalogueID).Msg("Failed to delete catalogue item")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to delete catalogue item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
