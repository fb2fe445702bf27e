package notification

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/models"
)

type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) error
}

func sanitizeRecipients(recipients []string) []string {
	var cleaned []string
	for _, recipient := range recipients {
		recipient = strings.TrimSpace(recipient)
		if recipient != "" {
			cleaned = append(cleaned, recipient)
		}
	}
	return cleaned
}

func logNotifyError(logger zerolog.Logger, err error, channel string, notif models.Notification) {
	if err == nil {
		return
	}
	logger.Warn().
		Err(err).
		Str("notification_id", notif.ID).
		Str("category", string(notif.Category)).
		Str("channel", channel).
		Msg("failed to deliver notification")
}
