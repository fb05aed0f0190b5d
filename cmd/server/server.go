// cmd/server/server.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/api"
	"github.com/codr1/marketplace/internal/api/auth"
	"github.com/codr1/marketplace/internal/api/businesses"
	"github.com/codr1/marketplace/internal/api/catalogues"
	"github.com/codr1/marketplace/internal/api/faqs"
	"github.com/codr1/marketplace/internal/api/offers"
	"github.com/codr1/marketplace/internal/api/openinghours"
	"github.com/codr1/marketplace/internal/api/orders"
	"github.com/codr1/marketplace/internal/api/reviews"
	"github.com/codr1/marketplace/internal/api/shops"
	"github.com/codr1/marketplace/internal/api/wishlist"
	"github.com/codr1/marketplace/internal/cache"
	"github.com/codr1/marketplace/internal/config"
	"github.com/codr1/marketplace/internal/db"
	"github.com/codr1/marketplace/internal/email"
	"github.com/codr1/marketplace/internal/events"
	"github.com/codr1/marketplace/internal/metrics"
	"github.com/codr1/marketplace/internal/ratelimit"
	"github.com/codr1/marketplace/internal/scheduler"
	"github.com/codr1/marketplace/internal/slots"
)

const (
	rateLimitPruneEvery = 5 * time.Minute
	rateLimitMaxIdle    = 10 * time.Minute
)

// app holds the long-lived collaborators shared by the handlers.
type app struct {
	cfg        *config.Config
	database   *db.DB
	hoursCache *cache.HoursCache
	publisher  events.Publisher
	limiter    *ratelimit.IPLimiter
	scheduled  bool
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{cfg: cfg, database: database}

	if cfg.Features.EnableMetrics {
		metrics.Register()
	}

	a.hoursCache, err = cache.NewFromConfig(ctx, cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("Opening hours cache disabled")
		a.hoursCache = nil
	}

	var mailer email.EmailSender
	if cfg.Features.EnableEmail {
		sesClient, err := email.NewSESClient(ctx, cfg.Email)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init email: %w", err)
		}
		mailer = sesClient
		log.Info().Str("region", cfg.Email.Region).Msg("SES email enabled")
	}

	a.publisher = events.NewFromConfig(cfg)
	a.limiter = ratelimit.NewIPLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, nil)

	auth.InitHandlers(database.Queries, cfg)
	businesses.InitHandlers(database)
	shops.InitHandlers(database)
	catalogues.InitHandlers(database)
	reviews.InitHandlers(database)
	faqs.InitHandlers(database)
	offers.InitHandlers(database)
	wishlist.InitHandlers(database)
	openinghours.InitHandlers(database, a.hoursCache)
	orders.InitHandlers(orders.Dependencies{
		DB:       database,
		LoadWeek: openinghours.LoadWeek,
		Resolver: slots.NewResolver(
			slots.WithStep(cfg.SlotStep()),
			slots.WithSearchDays(cfg.Booking.SearchDays),
		),
		Mailer:    mailer,
		Publisher: a.publisher,
	})

	if err := a.startScheduler(mailer); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *app) startScheduler(mailer email.EmailSender) error {
	if err := scheduler.Init(); err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	lead := time.Duration(a.cfg.Booking.ReminderHoursBefore) * time.Hour
	if err := scheduler.RegisterReminderJobs(a.database, mailer, a.cfg.Scheduler.ReminderCron, lead); err != nil {
		return fmt.Errorf("register reminder job: %w", err)
	}
	if err := scheduler.RegisterExpiryJob(a.database, mailer, a.publisher, a.cfg.Scheduler.ExpiryCron); err != nil {
		return fmt.Errorf("register expiry job: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.scheduled = true
	return nil
}

// pruneRateLimits drops idle per-IP buckets until ctx is done.
func (a *app) pruneRateLimits(ctx context.Context) {
	ticker := time.NewTicker(rateLimitPruneEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.limiter.Prune(rateLimitMaxIdle); n > 0 {
				log.Debug().Int("pruned", n).Msg("Pruned idle rate limit buckets")
			}
		}
	}
}

// Close releases every resource opened by newApp. It is safe to call twice.
func (a *app) Close() {
	if a.scheduled {
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
		a.scheduled = false
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
		a.publisher = nil
	}
	if a.hoursCache != nil {
		if err := a.hoursCache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close opening hours cache")
		}
		a.hoursCache = nil
	}
	if a.database != nil {
		if err := a.database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
		a.database = nil
	}
}

func newServer(cfg *config.Config, a *app) *http.Server {
	router := http.NewServeMux()

	// WithMetrics must sit directly on the mux to see the matched pattern.
	handler := api.ChainMiddleware(
		router,
		api.WithMetrics,
		api.WithAuth,
		api.WithLogging,
		api.WithRecovery,
		api.WithRateLimit(a.limiter, cfg.App.TrustProxy),
		api.WithRequestID,
	)

	registerRoutes(router, cfg)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.Features.EnableMetrics {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	// Auth routes
	mux.HandleFunc("POST /api/v1/auth/register", auth.HandleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", auth.HandleLogin)
	mux.HandleFunc("GET /api/v1/auth/me", auth.HandleMe)

	// Business routes
	mux.HandleFunc("GET /api/v1/vendor/business", businesses.HandleGetBusiness)
	mux.HandleFunc("PUT /api/v1/vendor/business", businesses.HandleUpsertBusiness)

	// Shop routes
	mux.HandleFunc("GET /api/v1/shops", shops.HandleSearchShops)
	mux.HandleFunc("GET /api/v1/shops/{shop_id}", shops.HandleGetShop)
	mux.HandleFunc("GET /api/v1/vendor/shops", shops.HandleListMyShops)
	mux.HandleFunc("POST /api/v1/vendor/shops", shops.HandleCreateShop)
	mux.HandleFunc("PUT /api/v1/vendor/shops/{shop_id}", shops.HandleUpdateShop)
	mux.HandleFunc("PATCH /api/v1/admin/shops/{shop_id}/status", shops.HandleUpdateShopStatus)

	// Opening hours routes
	mux.HandleFunc("GET /api/v1/shops/{shop_id}/opening-hours", openinghours.HandleListOpeningHours)
	mux.HandleFunc("PUT /api/v1/vendor/shops/{shop_id}/opening-hours", openinghours.HandleReplaceWeek)
	mux.HandleFunc("PUT /api/v1/vendor/shops/{shop_id}/opening-hours/{day_id}", openinghours.HandleReplaceDay)

	// Catalogue routes
	mux.HandleFunc("GET /api/v1/shops/{shop_id}/catalogues", catalogues.HandleListCatalogues)
	mux.HandleFunc("GET /api/v1/catalogues/{catalogue_id}", catalogues.HandleGetCatalogue)
	mux.HandleFunc("POST /api/v1/vendor/shops/{shop_id}/catalogues", catalogues.HandleCreateCatalogue)
	mux.HandleFunc("PUT /api/v1/vendor/shops/{shop_id}/catalogues/{catalogue_id}", catalogues.HandleUpdateCatalogue)
	mux.HandleFunc("DELETE /api/v1/vendor/shops/{shop_id}/catalogues/{catalogue_id}", catalogues.HandleDeleteCatalogue)

	// Slot and order routes
	mux.HandleFunc("POST /api/v1/shops/{shop_id}/slots/resolve", orders.HandleResolveSlot)
	mux.HandleFunc("POST /api/v1/orders", orders.HandleCreateOrder)
	mux.HandleFunc("GET /api/v1/orders", orders.HandleListMyOrders)
	mux.HandleFunc("GET /api/v1/orders/{order_id}", orders.HandleGetOrder)
	mux.HandleFunc("POST /api/v1/orders/{order_id}/cancel", orders.HandleCancelOrder)
	mux.HandleFunc("GET /api/v1/vendor/shops/{shop_id}/orders", orders.HandleListShopOrders)
	mux.HandleFunc("GET /api/v1/vendor/shops/{shop_id}/orders/export", orders.HandleExportShopOrders)
	mux.HandleFunc("PATCH /api/v1/vendor/orders/{order_id}/status", orders.HandleUpdateOrderStatus)

	// Review routes
	mux.HandleFunc("GET /api/v1/shops/{shop_id}/reviews", reviews.HandleListReviews)
	mux.HandleFunc("POST /api/v1/shops/{shop_id}/reviews", reviews.HandleCreateReview)
	mux.HandleFunc("PUT /api/v1/reviews/{review_id}", reviews.HandleUpdateReview)
	mux.HandleFunc("DELETE /api/v1/reviews/{review_id}", reviews.HandleDeleteReview)

	// FAQ routes
	mux.HandleFunc("GET /api/v1/shops/{shop_id}/faqs", faqs.HandleListFaqs)
	mux.HandleFunc("POST /api/v1/vendor/shops/{shop_id}/faqs", faqs.HandleCreateFaq)
	mux.HandleFunc("PUT /api/v1/vendor/shops/{shop_id}/faqs/{faq_id}", faqs.HandleUpdateFaq)
	mux.HandleFunc("DELETE /api/v1/vendor/shops/{shop_id}/faqs/{faq_id}", faqs.HandleDeleteFaq)

	// Offer routes
	mux.HandleFunc("GET /api/v1/shops/{shop_id}/offers", offers.HandleListOffers)
	mux.HandleFunc("POST /api/v1/vendor/shops/{shop_id}/offers", offers.HandleCreateOffer)
	mux.HandleFunc("PUT /api/v1/vendor/shops/{shop_id}/offers/{offer_id}", offers.HandleUpdateOffer)
	mux.HandleFunc("DELETE /api/v1/vendor/shops/{shop_id}/offers/{offer_id}", offers.HandleDeleteOffer)

	// Wishlist routes
	mux.HandleFunc("GET /api/v1/wishlist", wishlist.HandleListWishlist)
	mux.HandleFunc("PUT /api/v1/wishlist/{catalogue_id}", wishlist.HandleAddToWishlist)
	mux.HandleFunc("DELETE /api/v1/wishlist/{catalogue_id}", wishlist.HandleRemoveFromWishlist)
}
