package ai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/apperr"
	"github.com/applypilot/applypilot-api/internal/models"
	"github.com/applypilot/applypilot-api/internal/quota"
	"github.com/applypilot/applypilot-api/internal/repository"
)

// ToolRequest is the shared input of the three career tools. ResumeText wins
// over ResumeID; with neither set the preferred stored resume is used.
type ToolRequest struct {
	ResumeText     string
	ResumeID       *string
	JobDescription string
	Instructions   string
	Tone           string
}

// ToolResult is returned to the caller of a career tool.
type ToolResult struct {
	RequestID   string        `json:"request_id"`
	Tool        models.AITool `json:"tool"`
	Content     string        `json:"content"`
	CreditsLeft int           `json:"credits_left"`
}

// ParseEmailInput carries an email through classification.
type ParseEmailInput struct {
	EmailContent      string
	AdditionalContext string
	Company           string
	JobTitle          string
}

// ParseEmailResult pairs the typed suggestions with the raw JSON payload the
// model produced, kept verbatim for the event audit column.
type ParseEmailResult struct {
	RequestID   string
	Suggestions Suggestions
	Raw         json.RawMessage
	CreditsLeft int
}

// QuotaStatus reports rolling 24h usage.
type QuotaStatus struct {
	Limit     int `json:"limit"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

type Service interface {
	TailorResume(ctx context.Context, userID string, req ToolRequest) (ToolResult, error)
	CoverLetter(ctx context.Context, userID string, req ToolRequest) (ToolResult, error)
	ATSChecklist(ctx context.Context, userID string, req ToolRequest) (ToolResult, error)
	ParseEmail(ctx context.Context, userID string, input ParseEmailInput) (ParseEmailResult, error)
	Quota(ctx context.Context, userID string) (QuotaStatus, error)
}

type service struct {
	client   Client
	requests repository.AIRequestRepository
	resumes  repository.ResumeRepository
	tracker  *quota.Tracker
	logger   zerolog.Logger
}

func NewService(client Client, requests repository.AIRequestRepository, resumes repository.ResumeRepository, tracker *quota.Tracker, logger zerolog.Logger) Service {
	return &service{
		client:   client,
		requests: requests,
		resumes:  resumes,
		tracker:  tracker,
		logger:   logger.With().Str("component", "ai_service").Logger(),
	}
}

func (s *service) TailorResume(ctx context.Context, userID string, req ToolRequest) (ToolResult, error) {
	resumeText, err := s.prepareToolRequest(ctx, userID, &req)
	if err != nil {
		return ToolResult{}, err
	}
	prompt := BuildTailorResumePrompt(resumeText, req.JobDescription, req.Instructions)
	return s.runTool(ctx, userID, models.ToolTailorResume, prompt, 0.2)
}

func (s *service) CoverLetter(ctx context.Context, userID string, req ToolRequest) (ToolResult, error) {
	resumeText, err := s.prepareToolRequest(ctx, userID, &req)
	if err != nil {
		return ToolResult{}, err
	}
	prompt := BuildCoverLetterPrompt(resumeText, req.JobDescription, req.Tone, req.Instructions)
	return s.runTool(ctx, userID, models.ToolCoverLetter, prompt, 0.3)
}

func (s *service) ATSChecklist(ctx context.Context, userID string, req ToolRequest) (ToolResult, error) {
	resumeText, err := s.prepareToolRequest(ctx, userID, &req)
	if err != nil {
		return ToolResult{}, err
	}
	prompt := BuildATSChecklistPrompt(resumeText, req.JobDescription, req.Instructions)
	return s.runTool(ctx, userID, models.ToolATSChecklist, prompt, 0.2)
}

// prepareToolRequest validates the shared fields and resolves the resume text
// from storage when the request does not carry it inline.
func (s *service) prepareToolRequest(ctx context.Context, userID string, req *ToolRequest) (string, error) {
	if strings.TrimSpace(req.JobDescription) == "" {
		return "", apperr.Validation("job_description cannot be empty")
	}
	if text := strings.TrimSpace(req.ResumeText); text != "" {
		return text, nil
	}

	var (
		resume models.Resume
		err    error
	)
	if req.ResumeID != nil {
		resume, err = s.resumes.Get(ctx, userID, *req.ResumeID)
	} else {
		resume, err = s.resumes.GetPreferred(ctx, userID)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resume.Content) == "" {
		return "", apperr.Validation("resume %q has no content", resume.Title)
	}
	return resume.Content, nil
}

// runTool is the shared pipeline: enforce quota, persist the audit row, call
// the provider, record the outcome. The audit row is written before the call
// so a failed attempt still counts against the rolling window.
func (s *service) runTool(ctx context.Context, userID string, tool models.AITool, prompt string, temperature float64) (ToolResult, error) {
	if _, err := s.tracker.Enforce(ctx, userID); err != nil {
		return ToolResult{}, err
	}

	request, err := s.requests.CreateProcessing(ctx, userID, tool, prompt)
	if err != nil {
		return ToolResult{}, err
	}

	completion, err := s.client.Complete(ctx, CareerSystemPrompt, prompt, temperature)
	if err != nil {
		s.recordError(ctx, request.ID, err)
		return ToolResult{}, err
	}

	tokens := tokensPtr(completion.TokensUsed)
	if err := s.requests.MarkSuccess(ctx, request.ID, completion.Content, tokens); err != nil {
		s.logger.Error().Err(err).Str("request_id", request.ID).Msg("failed to record AI success")
	}

	remaining, err := s.tracker.Remaining(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to recount quota after AI call")
		remaining = 0
	}

	return ToolResult{
		RequestID:   request.ID,
		Tool:        tool,
		Content:     completion.Content,
		CreditsLeft: remaining,
	}, nil
}

func (s *service) ParseEmail(ctx context.Context, userID string, input ParseEmailInput) (ParseEmailResult, error) {
	if strings.TrimSpace(input.EmailContent) == "" {
		return ParseEmailResult{}, apperr.Validation("email_content cannot be empty")
	}

	if _, err := s.tracker.Enforce(ctx, userID); err != nil {
		return ParseEmailResult{}, err
	}

	prompt := BuildEmailParsePrompt(input.EmailContent, input.AdditionalContext, input.Company, input.JobTitle)
	request, err := s.requests.CreateProcessing(ctx, userID, models.ToolParseEmail, prompt)
	if err != nil {
		return ParseEmailResult{}, err
	}

	completion, err := s.client.Complete(ctx, EmailParseSystemPrompt, prompt, 0.1)
	if err != nil {
		s.recordError(ctx, request.ID, err)
		return ParseEmailResult{}, err
	}

	suggestions, err := DecodeSuggestions(completion.Content)
	if err != nil {
		s.recordError(ctx, request.ID, err)
		return ParseEmailResult{}, err
	}

	// Re-encode the normalized suggestions so the stored payload matches
	// what the caller saw.
	raw, err := json.Marshal(suggestions)
	if err != nil {
		s.recordError(ctx, request.ID, err)
		return ParseEmailResult{}, err
	}

	tokens := tokensPtr(completion.TokensUsed)
	if err := s.requests.MarkSuccess(ctx, request.ID, string(raw), tokens); err != nil {
		s.logger.Error().Err(err).Str("request_id", request.ID).Msg("failed to record AI success")
	}

	remaining, err := s.tracker.Remaining(ctx, userID)
	if err != nil {
		remaining = 0
	}

	return ParseEmailResult{
		RequestID:   request.ID,
		Suggestions: suggestions,
		Raw:         raw,
		CreditsLeft: remaining,
	}, nil
}

func (s *service) Quota(ctx context.Context, userID string) (QuotaStatus, error) {
	used, err := s.tracker.Used(ctx, userID)
	if err != nil {
		return QuotaStatus{}, err
	}
	remaining := s.tracker.Limit() - used
	if remaining < 0 {
		remaining = 0
	}
	return QuotaStatus{Limit: s.tracker.Limit(), Used: used, Remaining: remaining}, nil
}

func (s *service) recordError(ctx context.Context, requestID string, cause error) {
	if err := s.requests.MarkError(ctx, requestID, cause.Error()); err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to record AI error")
	}
}

func tokensPtr(tokens int) *int {
	if tokens <= 0 {
		return nil
	}
	return &tokens
}
