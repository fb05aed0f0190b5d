// internal/api/faqs/handlers.go
package faqs

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
	"github.com/codr1/marketplace/internal/db"
	"github.com/codr1/marketplace/internal/db/dbq"
)

const (
	faqsQueryTimeout  = 5 * time.Second
	maxQuestionLength = 300
	maxAnswerLength   = 2000
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

type faqRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Position int64  `json:"position"`
}

func (req *faqRequest) validate() apiutil.FieldErrors {
	var fe apiutil.FieldErrors
	req.Question = strings.TrimSpace(req.Question)
	req.Answer = strings.TrimSpace(req.Answer)

	if req.Question == "" {
		fe.Add("question", "is required")
	} else if len(req.Question) > maxQuestionLength {
		fe.Add("question", "is too long")
	}
	if req.Answer == "" {
		fe.Add("answer", "is required")
	} else if len(req.Answer) > maxAnswerLength {
		fe.Add("answer", "is too long")
	}
	if req.Position < 0 {
		fe.Add("position", "must be 0 or greater")
	}
	return fe
}

// GET /api/v1/shops/{shop_id}/faqs
func HandleListFaqs(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), faqsQueryTimeout)
	defer cancel()

	if _, err := store.Queries.GetShop(ctx, shopID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Shop not found")
			return
		}
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to load shop")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load FAQs")
		return
	}

	items, err := store.Queries.ListFaqs(ctx, shopID)
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to list FAQs")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load FAQs")
		return
	}
	if items == nil {
		items = []dbq.Faq{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, items); err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to write FAQs response")
	}
}

// POST /api/v1/vendor/shops/{shop_id}/faqs
func HandleCreateFaq(w http.ResponseWriter, r *http.Request) {
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

	var req faqRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fieldErrs := req.validate(); fieldErrs.HasErrors() {
		apiutil.WriteFieldErrors(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), faqsQueryTimeout)
	defer cancel()

	created, err := store.Queries.CreateFaq(ctx, dbq.FaqParams{
		ShopID:   shopID,
		Question: req.Question,
		Answer:   req.Answer,
		Position: req.Position,
	})
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to create FAQ")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to create FAQ")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Int64("faq_id", created.ID).Msg("Failed to write FAQ response")
	}
}

// PUT /api/v1/vendor/shops/{shop_id}/faqs/{faq_id}
func HandleUpdateFaq(w http.ResponseWriter, r *http.Request) {
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
	faqID, err := apiutil.PathID(r, "faq_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := apiutil.RequireShopManager(w, r, store.Queries, shopID); !ok {
		return
	}

	var req faqRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fieldErrs := req.validate(); fieldErrs.HasErrors() {
		apiutil.WriteFieldErrors(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), faqsQueryTimeout)
	defer cancel()

	updated, err := store.Queries.UpdateFaq(ctx, dbq.FaqParams{
		ID:       faqID,
		ShopID:   shopID,
		Question: req.Question,
		Answer:   req.Answer,
		Position: req.Position,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "FAQ not found")
			return
		}
		logger.Error().Err(err).Int64("faq_id", faqID).Msg("Failed to update FAQ")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update FAQ")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, updated); err != nil {
		logger.Error().Err(err).Int64("faq_id", faqID).Msg("Failed to write FAQ response")
	}
}

// DELETE /api/v1/vendor/shops/{shop_id}/faqs/{faq_id}
func HandleDeleteFaq(w http.ResponseWriter, r *http.Request) {
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
	faqID, err := apiutil.PathID(r, "faq_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := apiutil.RequireShopManager(w, r, store.Queries, shopID); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), faqsQueryTimeout)
	defer cancel()

	if err := store.Queries.DeleteFaq(ctx, shopID, faqID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "FAQ not found")
			return
		}
		logger.Error().Err(err).Int64("faq_id", faqID).Msg("Failed to delete FAQ")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to delete FAQ")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
