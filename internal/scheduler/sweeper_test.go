package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/models"
)

type fakeSource struct {
	followUps  []models.Application
	interviews []models.Application
	stale      []models.Application

	followUpsErr  error
	interviewsErr error
	staleErr      error

	staleCutoff time.Time
}

func (f *fakeSource) DueFollowUps(_ context.Context, from, to time.Time) ([]models.Application, error) {
	return f.followUps, f.followUpsErr
}

func (f *fakeSource) UpcomingInterviews(_ context.Context, from, to time.Time) ([]models.Application, error) {
	return f.interviews, f.interviewsErr
}

func (f *fakeSource) StaleApplications(_ context.Context, updatedBefore time.Time) ([]models.Application, error) {
	f.staleCutoff = updatedBefore
	return f.stale, f.staleErr
}

type sentReminder struct {
	kind  string
	appID string
}

type fakeSink struct {
	existing map[string]bool // key: category + appID
	sent     []sentReminder
	sinceBy  map[string]time.Time
}

func newFakeSink() *fakeSink {
	return &fakeSink{existing: map[string]bool{}, sinceBy: map[string]time.Time{}}
}

func (f *fakeSink) NotifyFollowUpDue(_ context.Context, app models.Application) (models.Notification, error) {
	f.sent = append(f.sent, sentReminder{kind: "follow_up", appID: app.ID})
	return models.Notification{}, nil
}

func (f *fakeSink) NotifyInterviewSoon(_ context.Context, app models.Application, _ time.Time) (models.Notification, error) {
	f.sent = append(f.sent, sentReminder{kind: "interview", appID: app.ID})
	return models.Notification{}, nil
}

func (f *fakeSink) NotifyStale(_ context.Context, app models.Application, _ int) (models.Notification, error) {
	f.sent = append(f.sent, sentReminder{kind: "stale", appID: app.ID})
	return models.Notification{}, nil
}

func (f *fakeSink) ExistsSince(_ context.Context, _ string, category models.NotificationCategory, applicationID string, since time.Time) (bool, error) {
	key := string(category) + "/" + applicationID
	f.sinceBy[key] = since
	return f.existing[key], nil
}

var sweepNow = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

func newTestSweeper(source *fakeSource, sink *fakeSink) *Sweeper {
	s := NewSweeper(source, sink, zerolog.Nop())
	s.now = func() time.Time { return sweepNow }
	return s
}

func app(id string) models.Application {
	return models.Application{ID: id, UserID: "user-1", Company: "Acme", JobTitle: "SRE"}
}

func TestSweepSendsAllReminderKinds(t *testing.T) {
	staleApp := app("app-3")
	staleApp.UpdatedAt = sweepNow.AddDate(0, 0, -20)

	source := &fakeSource{
		followUps:  []models.Application{app("app-1")},
		interviews: []models.Application{app("app-2")},
		stale:      []models.Application{staleApp},
	}
	sink := newFakeSink()
	newTestSweeper(source, sink).RunOnce(context.Background())

	if len(sink.sent) != 3 {
		t.Fatalf("sent = %v, want 3 reminders", sink.sent)
	}
	want := []sentReminder{
		{kind: "follow_up", appID: "app-1"},
		{kind: "interview", appID: "app-2"},
		{kind: "stale", appID: "app-3"},
	}
	for i, got := range sink.sent {
		if got != want[i] {
			t.Errorf("sent[%d] = %v, want %v", i, got, want[i])
		}
	}
}

func TestSweepDailyDedup(t *testing.T) {
	source := &fakeSource{
		followUps:  []models.Application{app("app-1")},
		interviews: []models.Application{app("app-2")},
	}
	sink := newFakeSink()
	sink.existing["follow_up/app-1"] = true
	sink.existing["interview/app-2"] = true

	newTestSweeper(source, sink).RunOnce(context.Background())

	if len(sink.sent) != 0 {
		t.Fatalf("sent = %v, want none (already notified today)", sink.sent)
	}

	// Daily passes dedup against the start of the current UTC day.
	wantSince := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := sink.sinceBy["follow_up/app-1"]; !got.Equal(wantSince) {
		t.Errorf("follow-up dedup window = %v, want %v", got, wantSince)
	}
	if got := sink.sinceBy["interview/app-2"]; !got.Equal(wantSince) {
		t.Errorf("interview dedup window = %v, want %v", got, wantSince)
	}
}

func TestSweepStaleWeeklyWindow(t *testing.T) {
	staleApp := app("app-3")
	staleApp.UpdatedAt = sweepNow.AddDate(0, 0, -20)

	source := &fakeSource{stale: []models.Application{staleApp}}
	sink := newFakeSink()
	sink.existing["follow_up/app-3"] = true

	newTestSweeper(source, sink).RunOnce(context.Background())

	if len(sink.sent) != 0 {
		t.Fatalf("sent = %v, want none (notified within the week)", sink.sent)
	}
	wantSince := sweepNow.AddDate(0, 0, -7)
	if got := sink.sinceBy["follow_up/app-3"]; !got.Equal(wantSince) {
		t.Errorf("stale dedup window = %v, want %v", got, wantSince)
	}
	wantCutoff := sweepNow.AddDate(0, 0, -14)
	if !source.staleCutoff.Equal(wantCutoff) {
		t.Errorf("stale query cutoff = %v, want %v", source.staleCutoff, wantCutoff)
	}
}

func TestSweepPassesAreIsolated(t *testing.T) {
	staleApp := app("app-3")
	staleApp.UpdatedAt = sweepNow.AddDate(0, 0, -30)

	source := &fakeSource{
		followUpsErr:  errors.New("db timeout"),
		interviewsErr: errors.New("db timeout"),
		stale:         []models.Application{staleApp},
	}
	sink := newFakeSink()
	newTestSweeper(source, sink).RunOnce(context.Background())

	if len(sink.sent) != 1 || sink.sent[0].kind != "stale" {
		t.Fatalf("sent = %v, want the stale pass to survive earlier failures", sink.sent)
	}
}
