// internal/api/reviews/handlers.go
package reviews

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
	reviewsQueryTimeout = 5 * time.Second
	minRating           = 1
	maxRating           = 5
	maxCommentLength    = 1000
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

type reviewRequest struct {
	Rating  int64  `json:"rating"`
	Comment string `json:"comment"`
}

func (req *reviewRequest) validate() apiutil.FieldErrors {
	var fe apiutil.FieldErrors
	req.Comment = strings.TrimSpace(req.Comment)
	if req.Rating < minRating || req.Rating > maxRating {
		fe.Add("rating", "must be between 1 and 5")
	}
	if len(req.Comment) > maxCommentLength {
		fe.Add("comment", "is too long")
	}
	return fe
}

type listResponse struct {
	Stats   dbq.ReviewStats        `json:"stats"`
	Reviews []dbq.ReviewWithAuthor `json:"reviews"`
}

// GET /api/v1/shops/{shop_id}/reviews
func HandleListReviews(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), reviewsQueryTimeout)
	defer cancel()

	if _, err := store.Queries.GetShop(ctx, shopID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Shop not found")
			return
		}
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to load shop")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load reviews")
		return
	}

	items, err := store.Queries.ListReviews(ctx, shopID)
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to list reviews")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load reviews")
		return
	}
	stats, err := store.Queries.GetReviewStats(ctx, shopID)
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to load review stats")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load reviews")
		return
	}
	if items == nil {
		items = []dbq.ReviewWithAuthor{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, listResponse{Stats: stats, Reviews: items}); err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to write reviews response")
	}
}

// POST /api/v1/shops/{shop_id}/reviews
//
// One review per account and shop; owners cannot review their own shops.
func HandleCreateReview(w http.ResponseWriter, r *http.Request) {
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
	shopID, err := apiutil.PathID(r, "shop_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req reviewRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fieldErrs := req.validate(); fieldErrs.HasErrors() {
		apiutil.WriteFieldErrors(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reviewsQueryTimeout)
	defer cancel()

	var created dbq.Review
	err = store.RunInTx(ctx, func(txdb *db.DB) error {
		shop, err := txdb.Queries.GetShop(ctx, shopID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Shop not found", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load shop", Err: err}
		}
		if shop.Status != "active" {
			return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Shop not found"}
		}
		ownerID, err := txdb.Queries.GetShopOwner(ctx, shopID)
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load shop", Err: err}
		}
		if ownerID == user.ID {
			return apiutil.HandlerError{Status: http.StatusForbidden, Message: "You cannot review your own shop"}
		}

		created, err = txdb.Queries.CreateReview(ctx, dbq.CreateReviewParams{
			ShopID:  shopID,
			UserID:  user.ID,
			Rating:  req.Rating,
			Comment: req.Comment,
		})
		if err != nil {
			if apiutil.IsUniqueViolation(err) {
				return apiutil.HandlerError{Status: http.StatusConflict, Message: "You have already reviewed this shop"}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to save review", Err: err}
		}
		return nil
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to save review")
		return
	}

	logger.Info().Int64("review_id", created.ID).Int64("shop_id", shopID).Int64("user_id", user.ID).Msg("Review created")

	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Int64("review_id", created.ID).Msg("Failed to write review response")
	}
}

// loadOwnReview returns the review when the user wrote it or is an admin.
// Reviews of other users are reported as missing.
func loadOwnReview(ctx context.Context, user *authz.AuthUser, reviewID int64) (dbq.Review, error) {
	review, err := store.Queries.GetReview(ctx, reviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbq.Review{}, apiutil.HandlerError{Status: http.StatusNotFound, Message: "Review not found", Err: err}
		}
		return dbq.Review{}, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load review", Err: err}
	}
	if review.UserID != user.ID && !user.IsAdmin() {
		return dbq.Review{}, apiutil.HandlerError{Status: http.StatusForbidden, Message: "Forbidden"}
	}
	return review, nil
}

// PUT /api/v1/reviews/{review_id}
func HandleUpdateReview(w http.ResponseWriter, r *http.Request) {
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
	reviewID, err := apiutil.PathID(r, "review_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req reviewRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fieldErrs := req.validate(); fieldErrs.HasErrors() {
		apiutil.WriteFieldErrors(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reviewsQueryTimeout)
	defer cancel()

	if _, err := loadOwnReview(ctx, user, reviewID); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update review")
		return
	}
	updated, err := store.Queries.UpdateReview(ctx, reviewID, req.Rating, req.Comment)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update review")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, updated); err != nil {
		logger.Error().Err(err).Int64("review_id", reviewID).Msg("Failed to write review response")
	}
}

// DELETE /api/v1/reviews/{review_id}
func HandleDeleteReview(w http.ResponseWriter, r *http.Request) {
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
	reviewID, err := apiutil.PathID(r, "review_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reviewsQueryTimeout)
	defer cancel()

	if _, err := loadOwnReview(ctx, user, reviewID); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete review")
		return
	}
	if err := store.Queries.DeleteReview(ctx, reviewID); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete review")
		return
	}

	logger.Info().Int64("review_id", reviewID).Int64("user_id", user.ID).Msg("Review deleted")
	w.WriteHeader(http.StatusNoContent)
}
