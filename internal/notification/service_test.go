package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/models"
	"github.com/applypilot/applypilot-api/internal/repository"
)

type fakeNotificationRepo struct {
	repository.NotificationRepository

	created []repository.CreateNotificationParams
	err     error
}

func (f *fakeNotificationRepo) Create(_ context.Context, params repository.CreateNotificationParams) (models.Notification, error) {
	if f.err != nil {
		return models.Notification{}, f.err
	}
	f.created = append(f.created, params)
	notif := models.Notification{
		ID:        "n-1",
		UserID:    params.UserID,
		Title:     params.Title,
		Message:   params.Message,
		Category:  params.Category,
		CreatedAt: time.Now(),
	}
	notif.ApplicationID = params.ApplicationID
	notif.ActionURL = params.ActionURL
	return notif, nil
}

type recordingNotifier struct {
	seen []models.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, notif models.Notification) error {
	r.seen = append(r.seen, notif)
	return r.err
}

func testApp() models.Application {
	return models.Application{
		ID:       "app-1",
		UserID:   "user-1",
		JobTitle: "Backend Engineer",
		Company:  "Acme",
		Status:   models.StatusApplied,
	}
}

func TestNotifyStatusChange(t *testing.T) {
	tests := []struct {
		status       models.ApplicationStatus
		wantTitle    string
		wantCategory models.NotificationCategory
		wantNone     bool
	}{
		{status: models.StatusApplied, wantTitle: "Application submitted", wantCategory: models.CategoryGeneral},
		{status: models.StatusInterview, wantTitle: "Interview scheduled", wantCategory: models.CategoryInterview},
		{status: models.StatusOffer, wantTitle: "🎉 Offer received!", wantCategory: models.CategoryGeneral},
		{status: models.StatusRejected, wantTitle: "Application update", wantCategory: models.CategoryGeneral},
		{status: models.StatusSaved, wantNone: true},
	}

	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			repo := &fakeNotificationRepo{}
			svc := NewService(repo, zerolog.Nop())

			app := testApp()
			app.Status = tc.status
			notif, err := svc.NotifyStatusChange(context.Background(), app)
			if err != nil {
				t.Fatalf("NotifyStatusChange: %v", err)
			}
			if tc.wantNone {
				if notif != nil {
					t.Fatalf("expected no notification for %s, got %q", tc.status, notif.Title)
				}
				return
			}
			if notif == nil {
				t.Fatalf("expected notification for %s", tc.status)
			}
			if notif.Title != tc.wantTitle {
				t.Errorf("title = %q, want %q", notif.Title, tc.wantTitle)
			}
			if notif.Category != tc.wantCategory {
				t.Errorf("category = %q, want %q", notif.Category, tc.wantCategory)
			}
			if notif.ActionURL == nil || *notif.ActionURL != "/Applications/app-1" {
				t.Errorf("action url = %v, want /Applications/app-1", notif.ActionURL)
			}
		})
	}
}

func TestNotifyInterviewSoonMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	repo := &fakeNotificationRepo{}
	svc := NewService(repo, zerolog.Nop())

	app := testApp()
	in5h := now.Add(5 * time.Hour)
	app.InterviewDate = &in5h
	notif, err := svc.NotifyInterviewSoon(context.Background(), app, now)
	if err != nil {
		t.Fatalf("NotifyInterviewSoon: %v", err)
	}
	if !strings.Contains(notif.Message, "in 5 hours") {
		t.Errorf("message = %q, want it to mention %q", notif.Message, "in 5 hours")
	}

	// Under an hour away collapses to "soon".
	in30m := now.Add(30 * time.Minute)
	app.InterviewDate = &in30m
	notif, err = svc.NotifyInterviewSoon(context.Background(), app, now)
	if err != nil {
		t.Fatalf("NotifyInterviewSoon: %v", err)
	}
	if !strings.Contains(notif.Message, "soon") {
		t.Errorf("message = %q, want it to mention %q", notif.Message, "soon")
	}
}

func TestPublishFansOutToNotifiers(t *testing.T) {
	repo := &fakeNotificationRepo{}
	failing := &recordingNotifier{err: errors.New("smtp down")}
	working := &recordingNotifier{}
	svc := NewService(repo, zerolog.Nop(), failing, working)

	notif, err := svc.Publish(context.Background(), Event{
		UserID: "user-1",
		Title:  "Follow up due today",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(failing.seen) != 1 || len(working.seen) != 1 {
		t.Fatalf("notifier calls = %d/%d, want 1/1", len(failing.seen), len(working.seen))
	}
	if working.seen[0].ID != notif.ID {
		t.Errorf("notifier saw %q, want %q", working.seen[0].ID, notif.ID)
	}
}

func TestPublishRejectsEmptyTitle(t *testing.T) {
	svc := NewService(&fakeNotificationRepo{}, zerolog.Nop())
	if _, err := svc.Publish(context.Background(), Event{UserID: "user-1", Title: "   "}); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestPublishPropagatesRepoError(t *testing.T) {
	want := errors.New("db down")
	svc := NewService(&fakeNotificationRepo{err: want}, zerolog.Nop())
	if _, err := svc.Publish(context.Background(), Event{UserID: "user-1", Title: "x"}); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}
