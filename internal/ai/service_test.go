package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/apperr"
	"github.com/applypilot/applypilot-api/internal/models"
	"github.com/applypilot/applypilot-api/internal/quota"
	"github.com/applypilot/applypilot-api/internal/repository"
)

type fakeClient struct {
	completion Completion
	err        error
	calls      []string
}

func (f *fakeClient) Complete(_ context.Context, systemPrompt, userPrompt string, _ float64) (Completion, error) {
	f.calls = append(f.calls, userPrompt)
	if f.err != nil {
		return Completion{}, f.err
	}
	return f.completion, nil
}

type fakeAIRequestRepo struct {
	repository.AIRequestRepository

	count      int
	processing []models.AIRequest
	successes  map[string]string
	errors     map[string]string
}

func newFakeAIRequestRepo() *fakeAIRequestRepo {
	return &fakeAIRequestRepo{successes: map[string]string{}, errors: map[string]string{}}
}

func (f *fakeAIRequestRepo) CreateProcessing(_ context.Context, userID string, tool models.AITool, prompt string) (models.AIRequest, error) {
	f.count++
	req := models.AIRequest{ID: "req-1", UserID: userID, Tool: tool, Prompt: prompt, Status: models.AIRequestProcessing}
	f.processing = append(f.processing, req)
	return req, nil
}

func (f *fakeAIRequestRepo) MarkSuccess(_ context.Context, id, responseText string, _ *int) error {
	f.successes[id] = responseText
	return nil
}

func (f *fakeAIRequestRepo) MarkError(_ context.Context, id, errorMessage string) error {
	f.errors[id] = errorMessage
	return nil
}

func (f *fakeAIRequestRepo) CountSince(_ context.Context, _ string, _ time.Time) (int, error) {
	return f.count, nil
}

type fakeResumeRepo struct {
	repository.ResumeRepository

	preferred models.Resume
	err       error
}

func (f *fakeResumeRepo) Get(_ context.Context, _, _ string) (models.Resume, error) {
	if f.err != nil {
		return models.Resume{}, f.err
	}
	return f.preferred, nil
}

func (f *fakeResumeRepo) GetPreferred(_ context.Context, _ string) (models.Resume, error) {
	if f.err != nil {
		return models.Resume{}, f.err
	}
	return f.preferred, nil
}

func newTestService(client *fakeClient, requests *fakeAIRequestRepo, resumes *fakeResumeRepo, limit int) Service {
	return NewService(client, requests, resumes, quota.NewTracker(requests, limit), zerolog.Nop())
}

func TestTailorResumeHappyPath(t *testing.T) {
	client := &fakeClient{completion: Completion{Content: "Tailored summary...", TokensUsed: 320}}
	requests := newFakeAIRequestRepo()
	resumes := &fakeResumeRepo{preferred: models.Resume{ID: "r-1", Title: "Backend CV", Content: "10 years of Go"}}
	svc := newTestService(client, requests, resumes, 50)

	result, err := svc.TailorResume(context.Background(), "user-1", ToolRequest{JobDescription: "Senior Go engineer"})
	if err != nil {
		t.Fatalf("TailorResume: %v", err)
	}
	if result.Tool != models.ToolTailorResume {
		t.Errorf("tool = %s", result.Tool)
	}
	if result.Content != "Tailored summary..." {
		t.Errorf("content = %q", result.Content)
	}
	if result.CreditsLeft != 49 {
		t.Errorf("credits_left = %d, want 49", result.CreditsLeft)
	}
	if len(client.calls) != 1 || !strings.Contains(client.calls[0], "10 years of Go") {
		t.Error("stored resume content not injected into prompt")
	}
	if requests.successes["req-1"] == "" {
		t.Error("audit row not marked success")
	}
}

func TestToolRequiresJobDescription(t *testing.T) {
	svc := newTestService(&fakeClient{}, newFakeAIRequestRepo(), &fakeResumeRepo{}, 50)

	_, err := svc.CoverLetter(context.Background(), "user-1", ToolRequest{JobDescription: "   "})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestToolQuotaExhausted(t *testing.T) {
	client := &fakeClient{completion: Completion{Content: "ok"}}
	requests := newFakeAIRequestRepo()
	resumes := &fakeResumeRepo{preferred: models.Resume{Content: "cv"}}
	svc := newTestService(client, requests, resumes, 1)

	if _, err := svc.ATSChecklist(context.Background(), "user-1", ToolRequest{JobDescription: "jd"}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	_, err := svc.ATSChecklist(context.Background(), "user-1", ToolRequest{JobDescription: "jd"})
	if !errors.Is(err, apperr.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	if len(client.calls) != 1 {
		t.Errorf("provider called %d times, want 1", len(client.calls))
	}
}

func TestFailedCallStillCountsAgainstQuota(t *testing.T) {
	client := &fakeClient{err: apperr.Upstream("AI provider returned status 500", nil)}
	requests := newFakeAIRequestRepo()
	resumes := &fakeResumeRepo{preferred: models.Resume{Content: "cv"}}
	svc := newTestService(client, requests, resumes, 50)

	_, err := svc.TailorResume(context.Background(), "user-1", ToolRequest{JobDescription: "jd"})
	var uerr *apperr.UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want upstream error", err)
	}
	if requests.errors["req-1"] == "" {
		t.Error("audit row not marked error")
	}

	status, err := svc.Quota(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Quota: %v", err)
	}
	if status.Used != 1 {
		t.Errorf("used = %d, want 1 (failed attempt counts)", status.Used)
	}
}

func TestToolMissingResume(t *testing.T) {
	svc := newTestService(&fakeClient{}, newFakeAIRequestRepo(), &fakeResumeRepo{err: apperr.ErrNotFound}, 50)

	_, err := svc.TailorResume(context.Background(), "user-1", ToolRequest{JobDescription: "jd"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestParseEmail(t *testing.T) {
	client := &fakeClient{completion: Completion{
		Content:    `{"event_type": "offer", "summary": "Offer extended", "suggested_status": "offer", "confidence": 0.95, "action_required": true}`,
		TokensUsed: 210,
	}}
	requests := newFakeAIRequestRepo()
	svc := newTestService(client, requests, &fakeResumeRepo{}, 50)

	result, err := svc.ParseEmail(context.Background(), "user-1", ParseEmailInput{
		EmailContent: "We are pleased to offer you the position...",
		Company:      "Acme",
		JobTitle:     "Backend Engineer",
	})
	if err != nil {
		t.Fatalf("ParseEmail: %v", err)
	}
	if result.Suggestions.EventType != models.EventOffer {
		t.Errorf("event_type = %s, want offer", result.Suggestions.EventType)
	}
	if len(result.Raw) == 0 {
		t.Error("raw payload missing")
	}
	if !strings.Contains(client.calls[0], "Backend Engineer at Acme") {
		t.Error("application context not injected into prompt")
	}
}

func TestParseEmailGarbageResponse(t *testing.T) {
	client := &fakeClient{completion: Completion{Content: "no json here"}}
	requests := newFakeAIRequestRepo()
	svc := newTestService(client, requests, &fakeResumeRepo{}, 50)

	_, err := svc.ParseEmail(context.Background(), "user-1", ParseEmailInput{EmailContent: "hello"})
	var uerr *apperr.UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want upstream error", err)
	}
	if requests.errors["req-1"] == "" {
		t.Error("decode failure not recorded on audit row")
	}
}
