package email

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const orderEmailTimeout = 5 * time.Second

// SendAsync delivers msg in the background so the request is not held up by
// SES. The send is bounded by its own timeout but still stops when ctx is
// cancelled.
func SendAsync(ctx context.Context, client EmailSender, recipient string, msg Message, logger *zerolog.Logger) {
	if client == nil {
		return
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" || msg.Subject == "" || msg.Body == "" {
		return
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(ctx, orderEmailTimeout)
		defer cancel()
		if err := client.Send(sendCtx, recipient, msg); err != nil && logger != nil {
			logger.Error().Err(err).Str("recipient", recipient).Str("subject", msg.Subject).Msg("Failed to send order email")
		}
	}()
}

// SendDetached is SendAsync for handler-scoped contexts: the request finishing
// does not abort the send.
func SendDetached(ctx context.Context, client EmailSender, recipient string, msg Message, logger *zerolog.Logger) {
	SendAsync(detach(ctx), client, recipient, msg, logger)
}
