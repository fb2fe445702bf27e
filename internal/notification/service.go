package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/models"
	"github.com/applypilot/applypilot-api/internal/repository"
)

type Event struct {
	UserID        string
	Title         string
	Message       string
	Category      models.NotificationCategory
	ApplicationID string
}

type Service interface {
	Publish(ctx context.Context, evt Event) (models.Notification, error)

	// NotifyStatusChange maps the application's new status onto the static
	// transition table and publishes the matching notification. Statuses
	// without a table entry produce nothing and return (nil, nil). No dedup
	// happens here: every interactive status edit may create a fresh row.
	NotifyStatusChange(ctx context.Context, app models.Application) (*models.Notification, error)

	NotifyFollowUpDue(ctx context.Context, app models.Application) (models.Notification, error)
	NotifyInterviewSoon(ctx context.Context, app models.Application, now time.Time) (models.Notification, error)
	NotifyStale(ctx context.Context, app models.Application, daysSinceUpdate int) (models.Notification, error)

	// ExistsSince exposes the structured dedup lookup for callers (the
	// reminder sweep) that want at-most-once delivery per window.
	ExistsSince(ctx context.Context, userID string, category models.NotificationCategory, applicationID string, since time.Time) (bool, error)

	List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID, notificationID string) error
}

type service struct {
	repo      repository.NotificationRepository
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(repo repository.NotificationRepository, logger zerolog.Logger, notifiers ...Notifier) Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return &service{
		repo:      repo,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		notifiers: active,
	}
}

// statusTemplate is a canned title/message pair for a status transition.
type statusTemplate struct {
	title    string
	message  string // fmt string interpolating job title and company
	category models.NotificationCategory
}

var statusTemplates = map[models.ApplicationStatus]statusTemplate{
	models.StatusApplied: {
		title:    "Application submitted",
		message:  "You applied to %s at %s. Follow-up reminder set.",
		category: models.CategoryGeneral,
	},
	models.StatusInterview: {
		title:    "Interview scheduled",
		message:  "Interview confirmed for %s at %s. Good luck!",
		category: models.CategoryInterview,
	},
	models.StatusOffer: {
		title:    "🎉 Offer received!",
		message:  "Congratulations! You received an offer from %[2]s for %[1]s!",
		category: models.CategoryGeneral,
	},
	models.StatusRejected: {
		title:    "Application update",
		message:  "Your application to %[2]s was not selected. Keep going!",
		category: models.CategoryGeneral,
	},
}

func (s *service) Publish(ctx context.Context, evt Event) (models.Notification, error) {
	title := strings.TrimSpace(evt.Title)
	if title == "" {
		return models.Notification{}, fmt.Errorf("notification title is required")
	}
	if evt.Category == "" {
		evt.Category = models.CategoryGeneral
	}

	params := repository.CreateNotificationParams{
		UserID:   evt.UserID,
		Title:    title,
		Message:  strings.TrimSpace(evt.Message),
		Category: evt.Category,
	}
	if evt.ApplicationID != "" {
		appID := evt.ApplicationID
		actionURL := applicationURL(appID)
		params.ApplicationID = &appID
		params.ActionURL = &actionURL
	}

	notif, err := s.repo.Create(ctx, params)
	if err != nil {
		s.logger.Error().Err(err).Str("category", string(evt.Category)).Msg("failed to persist notification")
		return models.Notification{}, err
	}

	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, notif); err != nil {
			logNotifyError(s.logger, err, notifierChannelName(notifier), notif)
		}
	}
	return notif, nil
}

func (s *service) NotifyStatusChange(ctx context.Context, app models.Application) (*models.Notification, error) {
	tpl, ok := statusTemplates[app.Status]
	if !ok {
		return nil, nil
	}

	notif, err := s.Publish(ctx, Event{
		UserID:        app.UserID,
		Title:         tpl.title,
		Message:       fmt.Sprintf(tpl.message, app.JobTitle, app.Company),
		Category:      tpl.category,
		ApplicationID: app.ID,
	})
	if err != nil {
		return nil, err
	}
	return &notif, nil
}

func (s *service) NotifyFollowUpDue(ctx context.Context, app models.Application) (models.Notification, error) {
	return s.Publish(ctx, Event{
		UserID:        app.UserID,
		Title:         "Follow up due today",
		Message:       fmt.Sprintf("Time to follow up with %s about your %s application.", app.Company, app.JobTitle),
		Category:      models.CategoryFollowUp,
		ApplicationID: app.ID,
	})
}

func (s *service) NotifyInterviewSoon(ctx context.Context, app models.Application, now time.Time) (models.Notification, error) {
	timeText := "soon"
	if app.InterviewDate != nil {
		if hours := int(app.InterviewDate.Sub(now).Hours()); hours > 1 {
			timeText = fmt.Sprintf("in %d hours", hours)
		}
	}
	return s.Publish(ctx, Event{
		UserID:        app.UserID,
		Title:         "Interview reminder",
		Message:       fmt.Sprintf("Your interview with %s for %s is %s.", app.Company, app.JobTitle, timeText),
		Category:      models.CategoryInterview,
		ApplicationID: app.ID,
	})
}

func (s *service) NotifyStale(ctx context.Context, app models.Application, daysSinceUpdate int) (models.Notification, error) {
	return s.Publish(ctx, Event{
		UserID:        app.UserID,
		Title:         "Application needs update",
		Message:       fmt.Sprintf("Your application to %s has had no update for %d days. Consider following up.", app.Company, daysSinceUpdate),
		Category:      models.CategoryFollowUp,
		ApplicationID: app.ID,
	})
}

func (s *service) ExistsSince(ctx context.Context, userID string, category models.NotificationCategory, applicationID string, since time.Time) (bool, error) {
	return s.repo.ExistsSince(ctx, userID, category, applicationID, since)
}

func (s *service) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, int, error) {
	return s.repo.List(ctx, userID, unreadOnly, limit, offset)
}

func (s *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func (s *service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *service) Delete(ctx context.Context, userID, notificationID string) error {
	return s.repo.Delete(ctx, userID, notificationID)
}

func applicationURL(applicationID string) string {
	return "/Applications/" + applicationID
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
