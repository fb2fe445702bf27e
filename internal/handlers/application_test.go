package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/authz"
	"github.com/applypilot/applypilot-api/internal/models"
	"github.com/applypilot/applypilot-api/internal/repository"
	"github.com/applypilot/applypilot-api/internal/timeline"
)

type fakeApplicationRepo struct {
	repository.ApplicationRepository

	apps      []models.Application
	gotStatus *models.ApplicationStatus
	gotLimit  int
	gotOffset int
}

func (f *fakeApplicationRepo) List(ctx context.Context, userID string, status *models.ApplicationStatus, limit, offset int) ([]models.Application, error) {
	f.gotStatus = status
	f.gotLimit = limit
	f.gotOffset = offset
	return f.apps, nil
}

type fakeTimelineService struct {
	timeline.Service

	statusCalls []models.ApplicationStatus
}

func (f *fakeTimelineService) UpdateStatus(ctx context.Context, userID, applicationID string, newStatus models.ApplicationStatus, source models.EventSource) (models.Application, error) {
	f.statusCalls = append(f.statusCalls, newStatus)
	return models.Application{ID: applicationID, Status: newStatus}, nil
}

func authedRequest(method, target, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return r.WithContext(authz.WithIdentity(r.Context(), "user-1"))
}

func TestApplicationListStatusFilter(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantFilter *models.ApplicationStatus
		wantLimit  int
	}{
		{"no filter", "", http.StatusOK, nil, 50},
		{"valid filter", "?status=interview", http.StatusOK, statusPtr(models.StatusInterview), 50},
		{"invalid filter", "?status=bogus", http.StatusBadRequest, nil, 0},
		{"custom limit", "?limit=10&offset=5", http.StatusOK, nil, 10},
		{"limit over cap falls back", "?limit=9999", http.StatusOK, nil, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeApplicationRepo{apps: []models.Application{{ID: "app-1"}}}
			h := NewApplicationHandler(repo, &fakeTimelineService{}, zerolog.Nop())

			rec := httptest.NewRecorder()
			h.List(rec, authedRequest(http.MethodGet, "/api/applications"+tt.query, ""))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if rec.Code != http.StatusOK {
				return
			}
			if (repo.gotStatus == nil) != (tt.wantFilter == nil) {
				t.Fatalf("status filter = %v, want %v", repo.gotStatus, tt.wantFilter)
			}
			if tt.wantFilter != nil && *repo.gotStatus != *tt.wantFilter {
				t.Fatalf("status filter = %q, want %q", *repo.gotStatus, *tt.wantFilter)
			}
			if repo.gotLimit != tt.wantLimit {
				t.Fatalf("limit = %d, want %d", repo.gotLimit, tt.wantLimit)
			}
		})
	}
}

func TestApplicationListRequiresAuth(t *testing.T) {
	h := NewApplicationHandler(&fakeApplicationRepo{}, &fakeTimelineService{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/applications", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestUpdateStatusRoutesThroughTimeline(t *testing.T) {
	svc := &fakeTimelineService{}
	h := NewApplicationHandler(&fakeApplicationRepo{}, svc, zerolog.Nop())

	const appID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	r := authedRequest(http.MethodPatch, "/api/applications/"+appID+"/status", `{"status":"offer"}`)
	r = mux.SetURLVars(r, map[string]string{"applicationID": appID})

	rec := httptest.NewRecorder()
	h.UpdateStatus(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(svc.statusCalls) != 1 || svc.statusCalls[0] != models.StatusOffer {
		t.Fatalf("timeline calls = %v", svc.statusCalls)
	}
	var app models.Application
	if err := json.Unmarshal(rec.Body.Bytes(), &app); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if app.Status != models.StatusOffer {
		t.Fatalf("returned status = %q", app.Status)
	}
}

func TestUpdateStatusRejectsMalformedID(t *testing.T) {
	h := NewApplicationHandler(&fakeApplicationRepo{}, &fakeTimelineService{}, zerolog.Nop())

	r := authedRequest(http.MethodPatch, "/api/applications/nope/status", `{"status":"offer"}`)
	r = mux.SetURLVars(r, map[string]string{"applicationID": "nope"})

	rec := httptest.NewRecorder()
	h.UpdateStatus(rec, r)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func statusPtr(s models.ApplicationStatus) *models.ApplicationStatus { return &s }
