package apiutil

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/api/authz"
	"github.com/codr1/marketplace/internal/db/dbq"
)

// RequireShopManager writes the error response and returns false unless the
// request's user is the shop's owner or an admin.
func RequireShopManager(w http.ResponseWriter, r *http.Request, q *dbq.Queries, shopID int64) (*authz.AuthUser, bool) {
	user, ok := RequireRole(w, r, authz.RoleVendor)
	if !ok {
		return nil, false
	}

	logger := log.Ctx(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ownerID, err := q.GetShopOwner(ctx, shopID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "Shop not found")
			return nil, false
		}
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to load shop owner")
		WriteError(w, http.StatusInternalServerError, "Failed to authorize request")
		return nil, false
	}

	if !authz.CanManageShop(user, ownerID) {
		logger.Warn().Int64("shop_id", shopID).Int64("user_id", user.ID).Msg("Shop access denied: forbidden")
		WriteError(w, http.StatusForbidden, "Forbidden")
		return nil, false
	}
	return user, true
}
