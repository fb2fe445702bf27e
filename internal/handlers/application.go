package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/authz"
	"github.com/applypilot/applypilot-api/internal/models"
	"github.com/applypilot/applypilot-api/internal/repository"
	"github.com/applypilot/applypilot-api/internal/timeline"
)

type ApplicationHandler struct {
	apps     repository.ApplicationRepository
	timeline timeline.Service
	logger   zerolog.Logger
}

func NewApplicationHandler(apps repository.ApplicationRepository, timelineSvc timeline.Service, logger zerolog.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		apps:     apps,
		timeline: timelineSvc,
		logger:   logger.With().Str("handler", "application").Logger(),
	}
}

type createApplicationRequest struct {
	Company        string                   `json:"company"`
	JobTitle       string                   `json:"job_title"`
	Status         models.ApplicationStatus `json:"status"`
	Location       *string                  `json:"location"`
	JobURL         *string                  `json:"job_url"`
	JobDescription *string                  `json:"job_description"`
	SalaryRange    *string                  `json:"salary_range"`
	Notes          *string                  `json:"notes"`
	RecruiterName  *string                  `json:"recruiter_name"`
	RecruiterEmail *string                  `json:"recruiter_email"`
	RecruiterPhone *string                  `json:"recruiter_phone"`
	AppliedAt      *time.Time               `json:"applied_at"`
	InterviewDate  *time.Time               `json:"interview_date"`
	FollowUpDate   *time.Time               `json:"follow_up_date"`
}

type updateApplicationRequest struct {
	Company        *string    `json:"company"`
	JobTitle       *string    `json:"job_title"`
	Location       *string    `json:"location"`
	JobURL         *string    `json:"job_url"`
	JobDescription *string    `json:"job_description"`
	SalaryRange    *string    `json:"salary_range"`
	Notes          *string    `json:"notes"`
	RecruiterName  *string    `json:"recruiter_name"`
	RecruiterEmail *string    `json:"recruiter_email"`
	RecruiterPhone *string    `json:"recruiter_phone"`
	AppliedAt      *time.Time `json:"applied_at"`
	InterviewDate  *time.Time `json:"interview_date"`
	FollowUpDate   *time.Time `json:"follow_up_date"`
}

type updateStatusRequest struct {
	Status models.ApplicationStatus `json:"status"`
}

func (h *ApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req createApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	app, err := h.timeline.CreateApplication(r.Context(), userID, repository.CreateApplicationParams{
		Company:        strings.TrimSpace(req.Company),
		JobTitle:       strings.TrimSpace(req.JobTitle),
		Status:         req.Status,
		Location:       req.Location,
		JobURL:         req.JobURL,
		JobDescription: req.JobDescription,
		SalaryRange:    req.SalaryRange,
		Notes:          req.Notes,
		RecruiterName:  req.RecruiterName,
		RecruiterEmail: req.RecruiterEmail,
		RecruiterPhone: req.RecruiterPhone,
		AppliedAt:      req.AppliedAt,
		InterviewDate:  req.InterviewDate,
		FollowUpDate:   req.FollowUpDate,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, app)
}

func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var status *models.ApplicationStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		candidate := models.ApplicationStatus(raw)
		if !models.IsValidStatus(candidate) {
			writeError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		status = &candidate
	}

	limit, offset := paginationParams(r, 50)
	apps, err := h.apps.List(r.Context(), userID, status, limit, offset)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"applications": apps})
}

func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	applicationID, err := pathID(r, "applicationID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	app, err := h.apps.Get(r.Context(), userID, applicationID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *ApplicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req updateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	applicationID, err := pathID(r, "applicationID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	app, err := h.apps.Get(r.Context(), userID, applicationID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if req.Company != nil {
		app.Company = strings.TrimSpace(*req.Company)
	}
	if req.JobTitle != nil {
		app.JobTitle = strings.TrimSpace(*req.JobTitle)
	}
	if req.Location != nil {
		app.Location = req.Location
	}
	if req.JobURL != nil {
		app.JobURL = req.JobURL
	}
	if req.JobDescription != nil {
		app.JobDescription = req.JobDescription
	}
	if req.SalaryRange != nil {
		app.SalaryRange = req.SalaryRange
	}
	if req.Notes != nil {
		app.Notes = req.Notes
	}
	if req.RecruiterName != nil {
		app.RecruiterName = req.RecruiterName
	}
	if req.RecruiterEmail != nil {
		app.RecruiterEmail = req.RecruiterEmail
	}
	if req.RecruiterPhone != nil {
		app.RecruiterPhone = req.RecruiterPhone
	}
	if req.AppliedAt != nil {
		app.AppliedAt = req.AppliedAt
	}
	if req.InterviewDate != nil {
		app.InterviewDate = req.InterviewDate
	}
	if req.FollowUpDate != nil {
		app.FollowUpDate = req.FollowUpDate
	}

	if app.Company == "" || app.JobTitle == "" {
		writeError(w, http.StatusBadRequest, "Company and job title cannot be empty")
		return
	}

	updated, err := h.apps.Update(r.Context(), app)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// UpdateStatus is the only write path for the status column.
func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	applicationID, err := pathID(r, "applicationID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	app, err := h.timeline.UpdateStatus(r.Context(), userID, applicationID, req.Status, models.SourceManual)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *ApplicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	applicationID, err := pathID(r, "applicationID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.apps.Delete(r.Context(), userID, applicationID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func paginationParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
