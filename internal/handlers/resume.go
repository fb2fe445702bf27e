package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/authz"
	"github.com/applypilot/applypilot-api/internal/repository"
)

type ResumeHandler struct {
	resumes repository.ResumeRepository
	logger  zerolog.Logger
}

func NewResumeHandler(resumes repository.ResumeRepository, logger zerolog.Logger) *ResumeHandler {
	return &ResumeHandler{
		resumes: resumes,
		logger:  logger.With().Str("handler", "resume").Logger(),
	}
}

type resumeRequest struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Skills    []string `json:"skills"`
	IsPrimary bool     `json:"is_primary"`
}

func (h *ResumeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "Content is required")
		return
	}

	resume, err := h.resumes.Create(r.Context(), userID, req.Title, req.Content, req.Skills, req.IsPrimary)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, resume)
}

func (h *ResumeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	resumes, err := h.resumes.List(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"resumes": resumes})
}

func (h *ResumeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	resumeID, err := pathID(r, "resumeID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	resume, err := h.resumes.Get(r.Context(), userID, resumeID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (h *ResumeHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resumeID, err := pathID(r, "resumeID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	resume, err := h.resumes.Get(r.Context(), userID, resumeID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		resume.Title = title
	}
	if strings.TrimSpace(req.Content) != "" {
		resume.Content = req.Content
	}
	if req.Skills != nil {
		resume.Skills = req.Skills
	}

	updated, err := h.resumes.Update(r.Context(), resume)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ResumeHandler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	resumeID, err := pathID(r, "resumeID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	resume, err := h.resumes.SetPrimary(r.Context(), userID, resumeID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (h *ResumeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	resumeID, err := pathID(r, "resumeID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.resumes.Delete(r.Context(), userID, resumeID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
