package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/db"
	"github.com/codr1/marketplace/internal/email"
	"github.com/codr1/marketplace/internal/events"
	"github.com/codr1/marketplace/internal/metrics"
)

const expiryJobName = "order_expiry"

// RegisterExpiryJob registers the job that expires pending orders whose visit
// time has passed without the vendor answering.
func RegisterExpiryJob(database *db.DB, sender email.EmailSender, publisher events.Publisher, cronExpr string) error {
	if database == nil {
		return fmt.Errorf("expiry job requires database")
	}

	jobLogger := log.With().
		Str("component", "order_expiry_job").
		Str("job_name", expiryJobName).
		Str("cron", cronExpr).
		Logger()

	_, err := AddJob(expiryJobName, cronExpr, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		expired, err := ExpireStaleOrders(ctx, database, sender, publisher, time.Now().UTC())
		if err != nil {
			return err
		}
		if expired > 0 {
			jobLogger.Info().Int("expired", expired).Msg("Pending orders expired")
		}
		return nil
	}, gocron.WithSingletonMode(gocron.LimitModeReschedule))
	if err != nil {
		return fmt.Errorf("add order expiry job: %w", err)
	}

	jobLogger.Info().Msg("Order expiry job registered")
	return nil
}

// ExpireStaleOrders moves pending orders visiting before now to expired and
// notifies their customers.
func ExpireStaleOrders(ctx context.Context, database *db.DB, sender email.EmailSender, publisher events.Publisher, now time.Time) (int, error) {
	logger := log.Ctx(ctx)

	ids, err := database.Queries.ExpirePendingOrders(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire pending orders: %w", err)
	}

	for _, id := range ids {
		metrics.IncOrderTransition("expired")

		order, err := database.Queries.GetOrder(ctx, id)
		if err != nil {
			logger.Error().Err(err).Int64("order_id", id).Msg("Failed to load expired order")
			continue
		}
		email.SendDetached(ctx, sender, order.CustomerEmail,
			email.BuildStatusEmail(email.DetailsFromOrder(order), order.Status), logger)
		events.PublishAsync(ctx, publisher, events.OrderEvent(events.ActionExpired, order))
	}
	return len(ids), nil
}
