package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/ai"
	"github.com/applypilot/applypilot-api/internal/authz"
	"github.com/applypilot/applypilot-api/internal/repository"
)

type AIHandler struct {
	service ai.Service
	letters repository.CoverLetterRepository
	logger  zerolog.Logger
}

func NewAIHandler(service ai.Service, letters repository.CoverLetterRepository, logger zerolog.Logger) *AIHandler {
	return &AIHandler{
		service: service,
		letters: letters,
		logger:  logger.With().Str("handler", "ai").Logger(),
	}
}

type aiToolRequest struct {
	ResumeText     string  `json:"resume_text"`
	ResumeID       *string `json:"resume_id"`
	JobDescription string  `json:"job_description"`
	Instructions   string  `json:"instructions"`
	Tone           string  `json:"tone"`
}

func (r aiToolRequest) toService() ai.ToolRequest {
	return ai.ToolRequest{
		ResumeText:     r.ResumeText,
		ResumeID:       r.ResumeID,
		JobDescription: r.JobDescription,
		Instructions:   r.Instructions,
		Tone:           r.Tone,
	}
}

func (h *AIHandler) TailorResume(w http.ResponseWriter, r *http.Request) {
	h.runTool(w, r, h.service.TailorResume)
}

type coverLetterToolRequest struct {
	aiToolRequest
	Save          bool    `json:"save"`
	Title         string  `json:"title"`
	ApplicationID *string `json:"application_id"`
}

// CoverLetter generates a cover letter and, when save is set, persists it as
// a cover_letters row. A failed save does not discard the generated content.
func (h *AIHandler) CoverLetter(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req coverLetterToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.CoverLetter(r.Context(), userID, req.toService())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if req.Save {
		title := req.Title
		if title == "" {
			title = "Generated cover letter"
		}
		var tone *string
		if req.Tone != "" {
			tone = &req.Tone
		}
		letter, err := h.letters.Create(r.Context(), userID, title, result.Content, tone, req.ApplicationID)
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to save generated cover letter")
		} else {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"request_id":   result.RequestID,
				"tool":         result.Tool,
				"content":      result.Content,
				"credits_left": result.CreditsLeft,
				"cover_letter": letter,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *AIHandler) ATSChecklist(w http.ResponseWriter, r *http.Request) {
	h.runTool(w, r, h.service.ATSChecklist)
}

func (h *AIHandler) runTool(w http.ResponseWriter, r *http.Request, tool func(ctx context.Context, userID string, req ai.ToolRequest) (ai.ToolResult, error)) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req aiToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := tool(r.Context(), userID, req.toService())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AIHandler) Quota(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	status, err := h.service.Quota(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
