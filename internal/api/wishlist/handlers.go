// internal/api/wishlist/handlers.go
package wishlist

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/api/apiutil"
	"github.com/codr1/marketplace/internal/api/catalogues"
	"github.com/codr1/marketplace/internal/db"
	"github.com/codr1/marketplace/internal/db/dbq"
)

const wishlistQueryTimeout = 5 * time.Second

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

type wishlistEntry struct {
	dbq.WishlistItem
	Price string `json:"price"`
}

// GET /api/v1/wishlist
func HandleListWishlist(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), wishlistQueryTimeout)
	defer cancel()

	items, err := store.Queries.ListWishlist(ctx, user.ID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to list wishlist")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load wishlist")
		return
	}

	resp := make([]wishlistEntry, 0, len(items))
	for _, item := range items {
		resp = append(resp, wishlistEntry{WishlistItem: item, Price: apiutil.FormatPriceCents(item.PriceCents)})
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to write wishlist response")
	}
}

// PUT /api/v1/wishlist/{catalogue_id}
//
// Saving an item twice is a no-op.
func HandleAddToWishlist(w http.ResponseWriter, r *http.Request) {
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
	catalogueID, err := apiutil.PathID(r, "catalogue_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), wishlistQueryTimeout)
	defer cancel()

	item, err := store.Queries.GetCatalogue(ctx, catalogueID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Catalogue item not found")
			return
		}
		logger.Error().Err(err).Int64("catalogue_id", catalogueID).Msg("Failed to load catalogue item")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update wishlist")
		return
	}
	if item.Status != catalogues.StatusActive {
		apiutil.WriteError(w, http.StatusNotFound, "Catalogue item not found")
		return
	}

	if err := store.Queries.AddWishlistItem(ctx, user.ID, catalogueID); err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Int64("catalogue_id", catalogueID).Msg("Failed to add wishlist item")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update wishlist")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/wishlist/{catalogue_id}
func HandleRemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
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
	catalogueID, err := apiutil.PathID(r, "catalogue_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), wishlistQueryTimeout)
	defer cancel()

	if err := store.Queries.RemoveWishlistItem(ctx, user.ID, catalogueID); err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Int64("catalogue_id", catalogueID).Msg("Failed to remove wishlist item")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update wishlist")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
