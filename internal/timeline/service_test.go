package timeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/apperr"
	"github.com/applypilot/applypilot-api/internal/models"
	"github.com/applypilot/applypilot-api/internal/notification"
	"github.com/applypilot/applypilot-api/internal/repository"
)

type fakeAppRepo struct {
	repository.ApplicationRepository

	app         models.Application
	getErr      error
	updated     *models.Application
	transitions []models.ApplicationStatus
	noop        bool
}

func (f *fakeAppRepo) Create(_ context.Context, userID string, params repository.CreateApplicationParams) (models.Application, models.ApplicationEvent, error) {
	app := models.Application{
		ID:           "app-1",
		UserID:       userID,
		Company:      params.Company,
		JobTitle:     params.JobTitle,
		Status:       params.Status,
		AppliedAt:    params.AppliedAt,
		FollowUpDate: params.FollowUpDate,
	}
	f.app = app
	event := models.ApplicationEvent{ID: "ev-1", ApplicationID: app.ID, EventType: models.EventStatusChange}
	return app, event, nil
}

func (f *fakeAppRepo) Get(_ context.Context, userID, id string) (models.Application, error) {
	if f.getErr != nil {
		return models.Application{}, f.getErr
	}
	return f.app, nil
}

func (f *fakeAppRepo) Update(_ context.Context, app models.Application) (models.Application, error) {
	f.updated = &app
	f.app = app
	return app, nil
}

func (f *fakeAppRepo) TransitionStatus(_ context.Context, userID, id string, newStatus models.ApplicationStatus, source models.EventSource) (models.Application, *models.ApplicationEvent, error) {
	f.transitions = append(f.transitions, newStatus)
	if f.noop {
		return f.app, nil, nil
	}
	oldStatus := f.app.Status
	f.app.Status = newStatus
	event := models.ApplicationEvent{
		ID:            "ev-2",
		ApplicationID: id,
		EventType:     models.EventStatusChange,
		Source:        source,
		OldStatus:     &oldStatus,
		NewStatus:     &newStatus,
	}
	return f.app, &event, nil
}

type fakeEventRepo struct {
	repository.EventRepository

	created []repository.CreateEventParams
	err     error
}

func (f *fakeEventRepo) Create(_ context.Context, params repository.CreateEventParams) (models.ApplicationEvent, error) {
	if f.err != nil {
		return models.ApplicationEvent{}, f.err
	}
	f.created = append(f.created, params)
	return models.ApplicationEvent{
		ID:            "ev-3",
		ApplicationID: params.ApplicationID,
		UserID:        params.UserID,
		EventType:     params.EventType,
		Source:        params.Source,
		OldStatus:     params.OldStatus,
		NewStatus:     params.NewStatus,
		Summary:       params.Summary,
	}, nil
}

type fakeNotifSvc struct {
	notification.Service

	statusCalls []models.ApplicationStatus
	err         error
}

func (f *fakeNotifSvc) NotifyStatusChange(_ context.Context, app models.Application) (*models.Notification, error) {
	f.statusCalls = append(f.statusCalls, app.Status)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Notification{ID: "n-1"}, nil
}

func newTestService(apps *fakeAppRepo, events *fakeEventRepo, notif *fakeNotifSvc) *service {
	svc := NewService(apps, events, notif, zerolog.Nop()).(*service)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreateApplicationAppliedFillsDates(t *testing.T) {
	apps := &fakeAppRepo{}
	notif := &fakeNotifSvc{}
	svc := newTestService(apps, &fakeEventRepo{}, notif)

	app, err := svc.CreateApplication(context.Background(), "user-1", repository.CreateApplicationParams{
		Company:  "Acme",
		JobTitle: "Backend Engineer",
		Status:   models.StatusApplied,
	})
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}
	if app.AppliedAt == nil {
		t.Fatal("applied_at not set")
	}
	if app.FollowUpDate == nil {
		t.Fatal("follow_up_date not suggested")
	}
	wantFollowUp := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	if !app.FollowUpDate.Equal(wantFollowUp) {
		t.Errorf("follow_up_date = %v, want %v", app.FollowUpDate, wantFollowUp)
	}
	if len(notif.statusCalls) != 1 || notif.statusCalls[0] != models.StatusApplied {
		t.Errorf("status notifications = %v, want [applied]", notif.statusCalls)
	}
}

func TestCreateApplicationNotifiesActiveStatusesOnly(t *testing.T) {
	tests := []struct {
		status     models.ApplicationStatus
		wantNotify bool
	}{
		{models.StatusSaved, false},
		{models.StatusApplied, true},
		{models.StatusInterview, true},
		{models.StatusOffer, false},
		{models.StatusRejected, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			notif := &fakeNotifSvc{}
			svc := newTestService(&fakeAppRepo{}, &fakeEventRepo{}, notif)

			_, err := svc.CreateApplication(context.Background(), "user-1", repository.CreateApplicationParams{
				Company:  "Acme",
				JobTitle: "Backend Engineer",
				Status:   tt.status,
			})
			if err != nil {
				t.Fatalf("CreateApplication: %v", err)
			}

			if tt.wantNotify {
				if len(notif.statusCalls) != 1 || notif.statusCalls[0] != tt.status {
					t.Errorf("status notifications = %v, want [%s]", notif.statusCalls, tt.status)
				}
			} else if len(notif.statusCalls) != 0 {
				t.Errorf("status notifications = %v, want none for initial %s", notif.statusCalls, tt.status)
			}
		})
	}
}

func TestCreateApplicationValidation(t *testing.T) {
	svc := newTestService(&fakeAppRepo{}, &fakeEventRepo{}, &fakeNotifSvc{})

	_, err := svc.CreateApplication(context.Background(), "user-1", repository.CreateApplicationParams{JobTitle: "x"})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want validation error", err)
	}

	_, err = svc.CreateApplication(context.Background(), "user-1", repository.CreateApplicationParams{
		Company: "Acme", JobTitle: "x", Status: "archived",
	})
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want validation error for bad status", err)
	}
}

func TestUpdateStatusNotifiesOnChangeOnly(t *testing.T) {
	apps := &fakeAppRepo{app: models.Application{ID: "app-1", UserID: "user-1", Status: models.StatusSaved, Company: "Acme", JobTitle: "SRE"}}
	notif := &fakeNotifSvc{}
	svc := newTestService(apps, &fakeEventRepo{}, notif)

	app, err := svc.UpdateStatus(context.Background(), "user-1", "app-1", models.StatusInterview, models.SourceManual)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if app.Status != models.StatusInterview {
		t.Errorf("status = %s, want interview", app.Status)
	}
	if len(notif.statusCalls) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notif.statusCalls))
	}

	// Same-status transition is silent.
	apps.noop = true
	if _, err := svc.UpdateStatus(context.Background(), "user-1", "app-1", models.StatusInterview, models.SourceManual); err != nil {
		t.Fatalf("UpdateStatus no-op: %v", err)
	}
	if len(notif.statusCalls) != 1 {
		t.Errorf("no-op transition produced a notification")
	}
}

func TestUpdateStatusToAppliedBackfillsDates(t *testing.T) {
	apps := &fakeAppRepo{app: models.Application{ID: "app-1", UserID: "user-1", Status: models.StatusSaved, Company: "Acme", JobTitle: "SRE"}}
	svc := newTestService(apps, &fakeEventRepo{}, &fakeNotifSvc{})

	app, err := svc.UpdateStatus(context.Background(), "user-1", "app-1", models.StatusApplied, models.SourceManual)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if app.AppliedAt == nil || app.FollowUpDate == nil {
		t.Fatal("applied dates not backfilled on transition to applied")
	}
	if apps.updated == nil {
		t.Fatal("backfill did not persist")
	}
}

func TestUpdateStatusNotificationFailureIsNonFatal(t *testing.T) {
	apps := &fakeAppRepo{app: models.Application{ID: "app-1", UserID: "user-1", Status: models.StatusSaved}}
	notif := &fakeNotifSvc{err: errors.New("smtp down")}
	svc := newTestService(apps, &fakeEventRepo{}, notif)

	if _, err := svc.UpdateStatus(context.Background(), "user-1", "app-1", models.StatusRejected, models.SourceManual); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
}

func TestCreateManualEventStatusCascade(t *testing.T) {
	apps := &fakeAppRepo{app: models.Application{ID: "app-1", UserID: "user-1", Status: models.StatusApplied, Company: "Acme", JobTitle: "SRE"}}
	events := &fakeEventRepo{}
	notif := &fakeNotifSvc{}
	svc := newTestService(apps, events, notif)

	newStatus := models.StatusInterview
	summary := "Recruiter call went well"
	_, err := svc.CreateManualEvent(context.Background(), "user-1", "app-1", ManualEventInput{
		EventType: models.EventInterviewScheduled,
		Summary:   &summary,
		NewStatus: &newStatus,
	})
	if err != nil {
		t.Fatalf("CreateManualEvent: %v", err)
	}
	if len(events.created) != 1 {
		t.Fatalf("events created = %d, want 1", len(events.created))
	}
	params := events.created[0]
	if params.UpdateApplicationStatus == nil || *params.UpdateApplicationStatus != models.StatusInterview {
		t.Errorf("status cascade not requested")
	}
	if params.OldStatus == nil || *params.OldStatus != models.StatusApplied {
		t.Errorf("old_status = %v, want applied", params.OldStatus)
	}
}

func TestCreateManualEventSameStatusNoCascade(t *testing.T) {
	apps := &fakeAppRepo{app: models.Application{ID: "app-1", UserID: "user-1", Status: models.StatusInterview}}
	events := &fakeEventRepo{}
	notif := &fakeNotifSvc{}
	svc := newTestService(apps, events, notif)

	sameStatus := models.StatusInterview
	_, err := svc.CreateManualEvent(context.Background(), "user-1", "app-1", ManualEventInput{
		EventType: models.EventOther,
		NewStatus: &sameStatus,
	})
	if err != nil {
		t.Fatalf("CreateManualEvent: %v", err)
	}
	if events.created[0].UpdateApplicationStatus != nil {
		t.Error("cascade requested for unchanged status")
	}
	if len(notif.statusCalls) != 0 {
		t.Error("notification published for unchanged status")
	}
}

func TestCreateManualEventInvalidType(t *testing.T) {
	svc := newTestService(&fakeAppRepo{}, &fakeEventRepo{}, &fakeNotifSvc{})
	_, err := svc.CreateManualEvent(context.Background(), "user-1", "app-1", ManualEventInput{EventType: "phone_tag"})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestCreateEventFromEmailKeepsRawContent(t *testing.T) {
	apps := &fakeAppRepo{app: models.Application{ID: "app-1", UserID: "user-1", Status: models.StatusApplied}}
	events := &fakeEventRepo{}
	svc := newTestService(apps, events, &fakeNotifSvc{})

	_, err := svc.CreateEventFromEmail(context.Background(), "user-1", "app-1", EmailEventInput{
		EventType:   models.EventRejection,
		RawEmail:    "Thank you for your interest, however...",
		Suggestions: []byte(`{"event_type":"rejection","confidence":0.9}`),
	})
	if err != nil {
		t.Fatalf("CreateEventFromEmail: %v", err)
	}
	params := events.created[0]
	if params.Source != models.SourceEmail {
		t.Errorf("source = %s, want email", params.Source)
	}
	if params.RawContent == nil || *params.RawContent == "" {
		t.Error("raw email content not stored")
	}
	if len(params.AISuggestions) == 0 {
		t.Error("ai suggestions not stored")
	}
}

func TestListEventsUnknownApplication(t *testing.T) {
	apps := &fakeAppRepo{getErr: apperr.ErrNotFound}
	svc := newTestService(apps, &fakeEventRepo{}, &fakeNotifSvc{})

	if _, err := svc.ListEvents(context.Background(), "user-1", "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
