// internal/api/shops/handlers.go
package shops

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // shop timezones are validated with time.LoadLocation

	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/api/apiutil"
	"github.com/codr1/marketplace/internal/api/authz"
	"github.com/codr1/marketplace/internal/db"
	"github.com/codr1/marketplace/internal/db/dbq"
	"github.com/codr1/marketplace/internal/geo"
)

const (
	shopsQueryTimeout = 5 * time.Second
	defaultPageSize   = 20
	maxPageSize       = 100
	defaultRadiusKm   = 10.0
	maxRadiusKm       = 200.0

	StatusPending   = "pending"
	StatusActive    = "active"
	StatusSuspended = "suspended"
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

type shopSummary struct {
	dbq.Shop
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

type searchResponse struct {
	Shops []shopSummary `json:"shops"`
	Page  int64         `json:"page"`
	Limit int64         `json:"limit"`
}

type shopDetail struct {
	dbq.Shop
	Rating dbq.ReviewStats `json:"rating"`
}

// GET /api/v1/shops
//
// Lists active shops matching q, category and city. With lat and lng the
// results are limited to radius_km and sorted nearest first.
func HandleSearchShops(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var fe apiutil.FieldErrors
	page, err := apiutil.QueryInt(r, "page", 1, 1, 10000)
	if err != nil {
		fe.Add("page", err.Error())
	}
	limit, err := apiutil.QueryInt(r, "limit", defaultPageSize, 1, maxPageSize)
	if err != nil {
		fe.Add("limit", err.Error())
	}
	lat, hasLat, err := apiutil.QueryFloat(r, "lat")
	if err != nil {
		fe.Add("lat", err.Error())
	}
	lng, hasLng, err := apiutil.QueryFloat(r, "lng")
	if err != nil {
		fe.Add("lng", err.Error())
	}
	radius, hasRadius, err := apiutil.QueryFloat(r, "radius_km")
	if err != nil {
		fe.Add("radius_km", err.Error())
	}
	if hasLat != hasLng {
		fe.Add("lat", "lat and lng must be given together")
	}
	center := geo.Point{Lat: lat, Lng: lng}
	if hasLat && hasLng && !center.Valid() {
		fe.Add("lat", "coordinates are out of range")
	}
	if !hasRadius {
		radius = defaultRadiusKm
	} else if radius <= 0 || radius > maxRadiusKm {
		fe.Add("radius_km", fmt.Sprintf("must be greater than 0 and at most %g", maxRadiusKm))
	}
	if fe.HasErrors() {
		apiutil.WriteFieldErrors(w, fe)
		return
	}

	query := r.URL.Query()
	params := dbq.SearchShopsParams{
		Query:    query.Get("q"),
		Category: strings.TrimSpace(query.Get("category")),
		City:     strings.TrimSpace(query.Get("city")),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	nearby := hasLat && hasLng
	if nearby {
		box := geo.BoundingBox(center, radius)
		params.HasBox = true
		params.MinLat, params.MaxLat = box.MinLat, box.MaxLat
		params.MinLng, params.MaxLng = box.MinLng, box.MaxLng
		// Distance ordering happens here, so the page is cut after sorting.
		params.Limit = -1
		params.Offset = 0
	}

	ctx, cancel := context.WithTimeout(r.Context(), shopsQueryTimeout)
	defer cancel()

	rows, err := store.Queries.SearchShops(ctx, params)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to search shops")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to search shops")
		return
	}

	results := make([]shopSummary, 0, len(rows))
	for _, shop := range rows {
		summary := shopSummary{Shop: shop}
		if nearby {
			if shop.Latitude == nil || shop.Longitude == nil {
				continue
			}
			distance := geo.DistanceKm(center, geo.Point{Lat: *shop.Latitude, Lng: *shop.Longitude})
			if distance > radius {
				continue
			}
			summary.DistanceKm = &distance
		}
		results = append(results, summary)
	}
	if nearby {
		sort.SliceStable(results, func(i, j int) bool {
			return *results[i].DistanceKm < *results[j].DistanceKm
		})
		results = paginate(results, page, limit)
	}

	resp := searchResponse{Shops: results, Page: page, Limit: limit}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write shops response")
	}
}

func paginate(items []shopSummary, page, limit int64) []shopSummary {
	start := (page - 1) * limit
	if start >= int64(len(items)) {
		return []shopSummary{}
	}
	end := start + limit
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[start:end]
}

// GET /api/v1/shops/{shop_id}
//
// Shops that are not active are only visible to their owner and admins.
func HandleGetShop(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), shopsQueryTimeout)
	defer cancel()

	shop, err := store.Queries.GetShop(ctx, shopID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Shop not found")
			return
		}
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to load shop")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load shop")
		return
	}
	if shop.Status != StatusActive {
		ownerID, err := store.Queries.GetShopOwner(ctx, shopID)
		if err != nil || !authz.CanManageShop(authz.UserFromContext(r.Context()), ownerID) {
			apiutil.WriteError(w, http.StatusNotFound, "Shop not found")
			return
		}
	}

	stats, err := store.Queries.GetReviewStats(ctx, shopID)
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to load review stats")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load shop")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, shopDetail{Shop: shop, Rating: stats}); err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to write shop response")
	}
}
