// Package scheduler runs the hourly reminder sweep: follow-ups due today,
// interviews in the next 24 hours, and applications that went quiet.
package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/models"
)

const (
	// staleAfterDays is how long an applied application may sit without an
	// update before it is flagged.
	staleAfterDays = 14
	// staleRenotifyDays caps stale reminders at one per week.
	staleRenotifyDays = 7
)

// ApplicationSource is the slice of the application repository the sweep
// reads from.
type ApplicationSource interface {
	DueFollowUps(ctx context.Context, from, to time.Time) ([]models.Application, error)
	UpcomingInterviews(ctx context.Context, from, to time.Time) ([]models.Application, error)
	StaleApplications(ctx context.Context, updatedBefore time.Time) ([]models.Application, error)
}

// ReminderSink publishes reminders and answers dedup lookups.
type ReminderSink interface {
	NotifyFollowUpDue(ctx context.Context, app models.Application) (models.Notification, error)
	NotifyInterviewSoon(ctx context.Context, app models.Application, now time.Time) (models.Notification, error)
	NotifyStale(ctx context.Context, app models.Application, daysSinceUpdate int) (models.Notification, error)
	ExistsSince(ctx context.Context, userID string, category models.NotificationCategory, applicationID string, since time.Time) (bool, error)
}

// Sweeper owns one full pass over all reminder checks. It is registered with
// a cron schedule in main but RunOnce is safe to call directly, which is how
// tests drive it.
type Sweeper struct {
	apps     ApplicationSource
	notifier ReminderSink
	logger   zerolog.Logger
	now      func() time.Time
}

func NewSweeper(apps ApplicationSource, notifier ReminderSink, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		apps:     apps,
		notifier: notifier,
		logger:   logger.With().Str("component", "reminder_sweep").Logger(),
		now:      time.Now,
	}
}

// RunOnce executes the three reminder passes. Each pass is isolated: a
// failure is logged and the remaining passes still run. Individual
// applications are isolated the same way within a pass.
func (s *Sweeper) RunOnce(ctx context.Context) {
	now := s.now().UTC()
	s.logger.Info().Time("now", now).Msg("running reminder sweep")

	if err := s.sweepFollowUps(ctx, now); err != nil {
		s.logger.Error().Err(err).Msg("follow-up pass failed")
	}
	if err := s.sweepInterviews(ctx, now); err != nil {
		s.logger.Error().Err(err).Msg("interview pass failed")
	}
	if err := s.sweepStale(ctx, now); err != nil {
		s.logger.Error().Err(err).Msg("stale pass failed")
	}
}

// sweepFollowUps reminds about follow-up dates falling on the current UTC
// day. At most one reminder per application per day.
func (s *Sweeper) sweepFollowUps(ctx context.Context, now time.Time) error {
	dayStart := startOfDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)

	due, err := s.apps.DueFollowUps(ctx, dayStart, dayEnd)
	if err != nil {
		return errors.Wrap(err, "failed to query due follow-ups")
	}

	sent := 0
	for _, app := range due {
		exists, err := s.notifier.ExistsSince(ctx, app.UserID, models.CategoryFollowUp, app.ID, dayStart)
		if err != nil {
			s.logger.Error().Err(err).Str("application_id", app.ID).Msg("follow-up dedup lookup failed")
			continue
		}
		if exists {
			continue
		}
		if _, err := s.notifier.NotifyFollowUpDue(ctx, app); err != nil {
			s.logger.Error().Err(err).Str("application_id", app.ID).Msg("failed to publish follow-up reminder")
			continue
		}
		sent++
	}

	s.logger.Info().Int("due", len(due)).Int("sent", sent).Msg("follow-up pass done")
	return nil
}

// sweepInterviews reminds about interviews starting within the next 24
// hours. At most one reminder per application per day.
func (s *Sweeper) sweepInterviews(ctx context.Context, now time.Time) error {
	upcoming, err := s.apps.UpcomingInterviews(ctx, now, now.AddDate(0, 0, 1))
	if err != nil {
		return errors.Wrap(err, "failed to query upcoming interviews")
	}

	dayStart := startOfDay(now)
	sent := 0
	for _, app := range upcoming {
		exists, err := s.notifier.ExistsSince(ctx, app.UserID, models.CategoryInterview, app.ID, dayStart)
		if err != nil {
			s.logger.Error().Err(err).Str("application_id", app.ID).Msg("interview dedup lookup failed")
			continue
		}
		if exists {
			continue
		}
		if _, err := s.notifier.NotifyInterviewSoon(ctx, app, now); err != nil {
			s.logger.Error().Err(err).Str("application_id", app.ID).Msg("failed to publish interview reminder")
			continue
		}
		sent++
	}

	s.logger.Info().Int("upcoming", len(upcoming)).Int("sent", sent).Msg("interview pass done")
	return nil
}

// sweepStale flags applied applications untouched for staleAfterDays, at
// most once per staleRenotifyDays.
func (s *Sweeper) sweepStale(ctx context.Context, now time.Time) error {
	stale, err := s.apps.StaleApplications(ctx, now.AddDate(0, 0, -staleAfterDays))
	if err != nil {
		return errors.Wrap(err, "failed to query stale applications")
	}

	renotifyCutoff := now.AddDate(0, 0, -staleRenotifyDays)
	sent := 0
	for _, app := range stale {
		exists, err := s.notifier.ExistsSince(ctx, app.UserID, models.CategoryFollowUp, app.ID, renotifyCutoff)
		if err != nil {
			s.logger.Error().Err(err).Str("application_id", app.ID).Msg("stale dedup lookup failed")
			continue
		}
		if exists {
			continue
		}
		days := int(now.Sub(app.UpdatedAt).Hours() / 24)
		if _, err := s.notifier.NotifyStale(ctx, app, days); err != nil {
			s.logger.Error().Err(err).Str("application_id", app.ID).Msg("failed to publish stale reminder")
			continue
		}
		sent++
	}

	s.logger.Info().Int("stale", len(stale)).Int("sent", sent).Msg("stale pass done")
	return nil
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
