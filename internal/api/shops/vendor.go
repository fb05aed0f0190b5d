package shops

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/api/apiutil"
	"github.com/codr1/marketplace/internal/api/authz"
	"github.com/codr1/marketplace/internal/db"
	"github.com/codr1/marketplace/internal/db/dbq"
	"github.com/codr1/marketplace/internal/geo"
	"github.com/codr1/marketplace/internal/phone"
)

const (
	maxNameLength        = 120
	maxDescriptionLength = 2000
	maxSlugAttempts      = 5
)

type shopRequest struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Phone       string   `json:"phone"`
	Region      string   `json:"region"`
	Timezone    string   `json:"timezone"`
}

func (req *shopRequest) validate() apiutil.FieldErrors {
	var fe apiutil.FieldErrors

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	req.Description = strings.TrimSpace(req.Description)
	req.Address = strings.TrimSpace(req.Address)
	req.City = strings.TrimSpace(req.City)
	req.Timezone = strings.TrimSpace(req.Timezone)

	if req.Name == "" {
		fe.Add("name", "is required")
	} else if len(req.Name) > maxNameLength {
		fe.Add("name", "is too long")
	} else if slugify(req.Name) == "" {
		fe.Add("name", "must contain letters or digits")
	}
	if len(req.Description) > maxDescriptionLength {
		fe.Add("description", "is too long")
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		fe.Add("latitude", "latitude and longitude must be given together")
	} else if req.Latitude != nil && !(geo.Point{Lat: *req.Latitude, Lng: *req.Longitude}).Valid() {
		fe.Add("latitude", "coordinates are out of range")
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	} else if _, err := time.LoadLocation(req.Timezone); err != nil {
		fe.Add("timezone", "must be an IANA time zone such as Europe/Lisbon")
	}
	normalized, err := phone.NormalizeOptional(req.Phone, strings.ToUpper(strings.TrimSpace(req.Region)))
	if err != nil {
		fe.Add("phone", err.Error())
	}
	req.Phone = normalized

	return fe
}

// slugify lowercases name and joins its letter and digit runs with dashes.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

// GET /api/v1/vendor/shops
func HandleListMyShops(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	user, ok := apiutil.RequireRole(w, r, authz.RoleVendor)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), shopsQueryTimeout)
	defer cancel()

	items, err := store.Queries.ListShopsByOwner(ctx, user.ID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to list shops")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load shops")
		return
	}
	if items == nil {
		items = []dbq.Shop{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, items); err != nil {
		logger.Error().Err(err).Msg("Failed to write shops response")
	}
}

// POST /api/v1/vendor/shops
//
// New shops start as pending until an admin activates them.
func HandleCreateShop(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	user, ok := apiutil.RequireRole(w, r, authz.RoleVendor)
	if !ok {
		return
	}

	var req shopRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fieldErrs := req.validate(); fieldErrs.HasErrors() {
		apiutil.WriteFieldErrors(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), shopsQueryTimeout)
	defer cancel()

	var created dbq.Shop
	err := store.RunInTx(ctx, func(txdb *db.DB) error {
		business, err := txdb.Queries.GetBusinessByOwner(ctx, user.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{
					Status:  http.StatusUnprocessableEntity,
					Message: "Register your business before opening a shop",
				}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load business", Err: err}
		}

		base := slugify(req.Name)
		for attempt := 0; attempt < maxSlugAttempts; attempt++ {
			slug := base
			if attempt > 0 {
				slug = fmt.Sprintf("%s-%d", base, attempt+1)
			}
			created, err = txdb.Queries.CreateShop(ctx, dbq.CreateShopParams{
				BusinessID:  business.ID,
				Name:        req.Name,
				Slug:        slug,
				Category:    req.Category,
				Description: req.Description,
				Address:     req.Address,
				City:        req.City,
				Latitude:    req.Latitude,
				Longitude:   req.Longitude,
				Phone:       req.Phone,
				Timezone:    req.Timezone,
			})
			if err == nil {
				return nil
			}
			if !apiutil.IsUniqueViolation(err) {
				return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to create shop", Err: err}
			}
		}
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "A shop with this name already exists"}
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create shop")
		return
	}

	logger.Info().Int64("shop_id", created.ID).Int64("user_id", user.ID).Str("slug", created.Slug).Msg("Shop created")

	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Int64("shop_id", created.ID).Msg("Failed to write shop response")
	}
}

// PUT /api/v1/vendor/shops/{shop_id}
//
// The slug is fixed at creation so published links keep working.
func HandleUpdateShop(w http.ResponseWriter, r *http.Request) {
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

	var req shopRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fieldErrs := req.validate(); fieldErrs.HasErrors() {
		apiutil.WriteFieldErrors(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), shopsQueryTimeout)
	defer cancel()

	updated, err := store.Queries.UpdateShop(ctx, dbq.UpdateShopParams{
		ID:          shopID,
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Phone:       req.Phone,
		Timezone:    req.Timezone,
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update shop")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, updated); err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to write shop response")
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

// PATCH /api/v1/admin/shops/{shop_id}/status
func HandleUpdateShopStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	user, ok := apiutil.RequireRole(w, r, authz.RoleAdmin)
	if !ok {
		return
	}
	shopID, err := apiutil.PathID(r, "shop_id")
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
	switch req.Status {
	case StatusPending, StatusActive, StatusSuspended:
	default:
		var fe apiutil.FieldErrors
		fe.Add("status", "must be one of pending, active, suspended")
		apiutil.WriteFieldErrors(w, fe)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), shopsQueryTimeout)
	defer cancel()

	shop, err := store.Queries.UpdateShopStatus(ctx, shopID, req.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Shop not found")
			return
		}
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to update shop status")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update shop")
		return
	}

	logger.Info().Int64("shop_id", shopID).Int64("user_id", user.ID).Str("status", shop.Status).Msg("Shop status changed")

	if err := apiutil.WriteJSON(w, http.StatusOK, shop); err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to write shop response")
	}
}
