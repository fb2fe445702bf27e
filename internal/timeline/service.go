// Package timeline owns the application lifecycle: status transitions, the
// append-only event log, and the notifications they trigger.
package timeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/apperr"
	"github.com/applypilot/applypilot-api/internal/models"
	"github.com/applypilot/applypilot-api/internal/notification"
	"github.com/applypilot/applypilot-api/internal/repository"
)

// followUpLeadDays is how far out a follow-up reminder is suggested when an
// application moves to applied without an explicit follow-up date.
const followUpLeadDays = 7

// ManualEventInput is a user-entered timeline entry.
type ManualEventInput struct {
	EventType         models.EventType
	Summary           *string
	NewStatus         *models.ApplicationStatus
	ActionRequired    bool
	ActionDescription *string
	ActionDeadline    *time.Time
	EventDate         *time.Time
}

// EmailEventInput is a timeline entry built from a parsed email. Fields
// mirror ManualEventInput plus the raw email text and the verbatim AI
// suggestion payload kept for audit.
type EmailEventInput struct {
	EventType         models.EventType
	Summary           *string
	NewStatus         *models.ApplicationStatus
	ActionRequired    bool
	ActionDescription *string
	ActionDeadline    *time.Time
	EventDate         *time.Time
	RawEmail          string
	Suggestions       json.RawMessage
}

type Service interface {
	// CreateApplication inserts the application together with its initial
	// status event and fires the matching status notification.
	CreateApplication(ctx context.Context, userID string, params repository.CreateApplicationParams) (models.Application, error)

	// UpdateStatus transitions the application's status, appending the
	// status_change event in the same transaction. A transition to the
	// current status is a no-op. Notification delivery failures are logged,
	// never returned.
	UpdateStatus(ctx context.Context, userID, applicationID string, newStatus models.ApplicationStatus, source models.EventSource) (models.Application, error)

	CreateManualEvent(ctx context.Context, userID, applicationID string, input ManualEventInput) (models.ApplicationEvent, error)
	CreateEventFromEmail(ctx context.Context, userID, applicationID string, input EmailEventInput) (models.ApplicationEvent, error)

	ListEvents(ctx context.Context, userID, applicationID string) ([]models.ApplicationEvent, error)
	UpdateEvent(ctx context.Context, userID, applicationID, eventID string, params repository.UpdateEventParams) (models.ApplicationEvent, error)
	DeleteEvent(ctx context.Context, userID, applicationID, eventID string) error
}

type service struct {
	apps     repository.ApplicationRepository
	events   repository.EventRepository
	notifier notification.Service
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(apps repository.ApplicationRepository, events repository.EventRepository, notifier notification.Service, logger zerolog.Logger) Service {
	return &service{
		apps:     apps,
		events:   events,
		notifier: notifier,
		logger:   logger.With().Str("component", "timeline_service").Logger(),
		now:      time.Now,
	}
}

func (s *service) CreateApplication(ctx context.Context, userID string, params repository.CreateApplicationParams) (models.Application, error) {
	if strings.TrimSpace(params.Company) == "" {
		return models.Application{}, apperr.Validation("company is required")
	}
	if strings.TrimSpace(params.JobTitle) == "" {
		return models.Application{}, apperr.Validation("job_title is required")
	}
	if params.Status == "" {
		params.Status = models.StatusSaved
	}
	if !models.IsValidStatus(params.Status) {
		return models.Application{}, apperr.Validation("invalid status: %s", params.Status)
	}

	if params.Status == models.StatusApplied {
		now := s.now()
		if params.AppliedAt == nil {
			params.AppliedAt = &now
		}
		if params.FollowUpDate == nil {
			followUp := now.AddDate(0, 0, followUpLeadDays)
			params.FollowUpDate = &followUp
		}
	}

	app, _, err := s.apps.Create(ctx, userID, params)
	if err != nil {
		return models.Application{}, err
	}

	// Only active initial statuses announce themselves. Creating an
	// application that is already closed (offer, rejected) records the
	// initial event without a notification.
	if app.Status == models.StatusApplied || app.Status == models.StatusInterview {
		s.notifyStatusChange(ctx, app)
	}
	return app, nil
}

func (s *service) UpdateStatus(ctx context.Context, userID, applicationID string, newStatus models.ApplicationStatus, source models.EventSource) (models.Application, error) {
	if !models.IsValidStatus(newStatus) {
		return models.Application{}, apperr.Validation("invalid status: %s", newStatus)
	}

	app, event, err := s.apps.TransitionStatus(ctx, userID, applicationID, newStatus, source)
	if err != nil {
		return models.Application{}, err
	}
	if event == nil {
		// No-op transition, nothing to announce.
		return app, nil
	}

	if app, err = s.fillAppliedDates(ctx, app); err != nil {
		return models.Application{}, err
	}

	s.notifyStatusChange(ctx, app)
	return app, nil
}

// fillAppliedDates sets applied_at and suggests a follow-up date when an
// application just entered the applied stage without them.
func (s *service) fillAppliedDates(ctx context.Context, app models.Application) (models.Application, error) {
	if app.Status != models.StatusApplied {
		return app, nil
	}
	changed := false
	now := s.now()
	if app.AppliedAt == nil {
		app.AppliedAt = &now
		changed = true
	}
	if app.FollowUpDate == nil {
		followUp := now.AddDate(0, 0, followUpLeadDays)
		app.FollowUpDate = &followUp
		changed = true
	}
	if !changed {
		return app, nil
	}
	return s.apps.Update(ctx, app)
}

func (s *service) CreateManualEvent(ctx context.Context, userID, applicationID string, input ManualEventInput) (models.ApplicationEvent, error) {
	params, err := s.buildEventParams(ctx, userID, applicationID, input.EventType, input.NewStatus, models.SourceManual)
	if err != nil {
		return models.ApplicationEvent{}, err
	}
	params.Summary = input.Summary
	params.ActionRequired = input.ActionRequired
	params.ActionDescription = input.ActionDescription
	params.ActionDeadline = input.ActionDeadline
	params.EventDate = input.EventDate

	return s.createEvent(ctx, userID, applicationID, params)
}

func (s *service) CreateEventFromEmail(ctx context.Context, userID, applicationID string, input EmailEventInput) (models.ApplicationEvent, error) {
	params, err := s.buildEventParams(ctx, userID, applicationID, input.EventType, input.NewStatus, models.SourceEmail)
	if err != nil {
		return models.ApplicationEvent{}, err
	}
	params.Summary = input.Summary
	params.ActionRequired = input.ActionRequired
	params.ActionDescription = input.ActionDescription
	params.ActionDeadline = input.ActionDeadline
	params.EventDate = input.EventDate
	params.AISuggestions = input.Suggestions
	if raw := strings.TrimSpace(input.RawEmail); raw != "" {
		params.RawContent = &raw
	}

	return s.createEvent(ctx, userID, applicationID, params)
}

// buildEventParams validates the event type, resolves the owning application
// and prepares the status cascade when the event carries a new status.
func (s *service) buildEventParams(ctx context.Context, userID, applicationID string, eventType models.EventType, newStatus *models.ApplicationStatus, source models.EventSource) (repository.CreateEventParams, error) {
	if !models.IsValidEventType(eventType) {
		return repository.CreateEventParams{}, apperr.Validation("invalid event type: %s", eventType)
	}
	if newStatus != nil && !models.IsValidStatus(*newStatus) {
		return repository.CreateEventParams{}, apperr.Validation("invalid status: %s", *newStatus)
	}

	app, err := s.apps.Get(ctx, userID, applicationID)
	if err != nil {
		return repository.CreateEventParams{}, err
	}

	params := repository.CreateEventParams{
		ApplicationID: applicationID,
		UserID:        userID,
		EventType:     eventType,
		Source:        source,
	}
	if newStatus != nil && *newStatus != app.Status {
		oldStatus := app.Status
		params.OldStatus = &oldStatus
		params.NewStatus = newStatus
		params.UpdateApplicationStatus = newStatus
	}
	return params, nil
}

func (s *service) createEvent(ctx context.Context, userID, applicationID string, params repository.CreateEventParams) (models.ApplicationEvent, error) {
	event, err := s.events.Create(ctx, params)
	if err != nil {
		return models.ApplicationEvent{}, err
	}

	if params.UpdateApplicationStatus != nil {
		app, err := s.apps.Get(ctx, userID, applicationID)
		if err != nil {
			s.logger.Error().Err(err).Str("application_id", applicationID).Msg("failed to reload application after status cascade")
			return event, nil
		}
		if app, err = s.fillAppliedDates(ctx, app); err != nil {
			s.logger.Error().Err(err).Str("application_id", applicationID).Msg("failed to backfill applied dates")
			return event, nil
		}
		s.notifyStatusChange(ctx, app)
	}
	return event, nil
}

// notifyStatusChange publishes the canned status notification. Failures are
// never fatal to the write that triggered them.
func (s *service) notifyStatusChange(ctx context.Context, app models.Application) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.NotifyStatusChange(ctx, app); err != nil {
		s.logger.Error().Err(err).
			Str("application_id", app.ID).
			Str("status", string(app.Status)).
			Msg("failed to publish status notification")
	}
}

func (s *service) ListEvents(ctx context.Context, userID, applicationID string) ([]models.ApplicationEvent, error) {
	if _, err := s.apps.Get(ctx, userID, applicationID); err != nil {
		return nil, err
	}
	return s.events.ListByApplication(ctx, userID, applicationID)
}

func (s *service) UpdateEvent(ctx context.Context, userID, applicationID, eventID string, params repository.UpdateEventParams) (models.ApplicationEvent, error) {
	return s.events.Update(ctx, userID, applicationID, eventID, params)
}

func (s *service) DeleteEvent(ctx context.Context, userID, applicationID, eventID string) error {
	return s.events.Delete(ctx, userID, applicationID, eventID)
}
