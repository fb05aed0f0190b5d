package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/db"
	"github.com/codr1/marketplace/internal/email"
	"github.com/codr1/marketplace/internal/metrics"
)

const (
	reminderJobName     = "order_reminders"
	reminderSendTimeout = 10 * time.Second
)

// RegisterReminderJobs registers the job that emails customers ahead of their
// confirmed visits.
func RegisterReminderJobs(database *db.DB, sender email.EmailSender, cronExpr string, lead time.Duration) error {
	if database == nil {
		return fmt.Errorf("reminder jobs require database")
	}

	jobLogger := log.With().
		Str("component", "order_reminders_job").
		Str("job_name", reminderJobName).
		Str("cron", cronExpr).
		Logger()

	_, err := AddJob(reminderJobName, cronExpr, func() error {
		if sender == nil {
			jobLogger.Debug().Msg("Reminder job skipped: email client not configured")
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		sent, err := SendOrderReminders(ctx, database, sender, time.Now().UTC(), lead)
		if err != nil {
			return err
		}
		if sent > 0 {
			jobLogger.Info().Int("sent", sent).Msg("Order reminders sent")
		}
		return nil
	}, gocron.WithSingletonMode(gocron.LimitModeReschedule))
	if err != nil {
		return fmt.Errorf("add order reminder job: %w", err)
	}

	jobLogger.Info().Msg("Order reminder job registered")
	return nil
}

// SendOrderReminders emails every confirmed, not yet reminded order visiting
// within [now, now+lead) and marks it reminded once the email is accepted.
// A failed send leaves the order for the next run.
func SendOrderReminders(ctx context.Context, database *db.DB, sender email.EmailSender, now time.Time, lead time.Duration) (int, error) {
	logger := log.Ctx(ctx)

	orders, err := database.Queries.ListOrdersDueForReminder(ctx, now, now.Add(lead))
	if err != nil {
		return 0, fmt.Errorf("list orders due for reminder: %w", err)
	}

	sent := 0
	for _, order := range orders {
		msg := email.BuildReminderEmail(email.DetailsFromOrder(order))

		sendCtx, cancel := context.WithTimeout(ctx, reminderSendTimeout)
		err := sender.Send(sendCtx, order.CustomerEmail, msg)
		cancel()
		if err != nil {
			metrics.IncReminder("failed")
			logger.Error().Err(err).Int64("order_id", order.ID).Msg("Failed to send order reminder")
			continue
		}

		if err := database.Queries.MarkReminderSent(ctx, order.ID); err != nil {
			return sent, fmt.Errorf("mark reminder sent for order %d: %w", order.ID, err)
		}
		metrics.IncReminder("sent")
		sent++
	}
	return sent, nil
}
