// internal/api/businesses/handlers.go
package businesses

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/api/apiutil"
	"github.com/codr1/marketplace/internal/api/authz"
	"github.com/codr1/marketplace/internal/db"
	"github.com/codr1/marketplace/internal/db/dbq"
	"github.com/codr1/marketplace/internal/phone"
)

const (
	businessQueryTimeout = 5 * time.Second
	maxNameLength        = 120
	maxAddressLength     = 500
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

type businessRequest struct {
	Name               string `json:"name"`
	Phone              string `json:"phone"`
	Email              string `json:"email"`
	RegistrationNumber string `json:"registration_number"`
	Address            string `json:"address"`
	Region             string `json:"region"`
}

func (req *businessRequest) validate() apiutil.FieldErrors {
	var fe apiutil.FieldErrors

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.RegistrationNumber = strings.TrimSpace(req.RegistrationNumber)
	req.Address = strings.TrimSpace(req.Address)

	if req.Name == "" {
		fe.Add("name", "is required")
	} else if len(req.Name) > maxNameLength {
		fe.Add("name", "is too long")
	}
	if len(req.Address) > maxAddressLength {
		fe.Add("address", "is too long")
	}
	if req.Email != "" {
		if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
			fe.Add("email", "must be a valid email address")
		}
	}
	normalized, err := phone.NormalizeOptional(req.Phone, strings.ToUpper(strings.TrimSpace(req.Region)))
	if err != nil {
		fe.Add("phone", err.Error())
	}
	req.Phone = normalized

	return fe
}

// GET /api/v1/vendor/business
func HandleGetBusiness(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), businessQueryTimeout)
	defer cancel()

	business, err := store.Queries.GetBusinessByOwner(ctx, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Business not found")
			return
		}
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to load business")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load business")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, business); err != nil {
		logger.Error().Err(err).Int64("business_id", business.ID).Msg("Failed to write business response")
	}
}

// PUT /api/v1/vendor/business
//
// Creates the vendor's business on first save and updates it afterwards.
func HandleUpsertBusiness(w http.ResponseWriter, r *http.Request) {
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

	var req businessRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fieldErrs := req.validate(); fieldErrs.HasErrors() {
		apiutil.WriteFieldErrors(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), businessQueryTimeout)
	defer cancel()

	business, err := store.Queries.UpsertBusiness(ctx, dbq.UpsertBusinessParams{
		OwnerID:            user.ID,
		Name:               req.Name,
		Phone:              req.Phone,
		Email:              req.Email,
		RegistrationNumber: req.RegistrationNumber,
		Address:            req.Address,
	})
	if err != nil {
		if apiutil.IsForeignKeyViolation(err) {
			apiutil.WriteError(w, http.StatusBadRequest, "Unknown account")
			return
		}
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to save business")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to save business")
		return
	}

	logger.Info().Int64("business_id", business.ID).Int64("user_id", user.ID).Msg("Business saved")

	if err := apiutil.WriteJSON(w, http.StatusOK, business); err != nil {
		logger.Error().Err(err).Int64("business_id", business.ID).Msg("Failed to write business response")
	}
}
