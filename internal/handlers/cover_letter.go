package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/authz"
	"github.com/applypilot/applypilot-api/internal/repository"
)

type CoverLetterHandler struct {
	letters repository.CoverLetterRepository
	logger  zerolog.Logger
}

func NewCoverLetterHandler(letters repository.CoverLetterRepository, logger zerolog.Logger) *CoverLetterHandler {
	return &CoverLetterHandler{
		letters: letters,
		logger:  logger.With().Str("handler", "cover_letter").Logger(),
	}
}

type coverLetterRequest struct {
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	Tone          *string `json:"tone"`
	ApplicationID *string `json:"application_id"`
}

func (h *CoverLetterHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req coverLetterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	letter, err := h.letters.Create(r.Context(), userID, req.Title, req.Content, req.Tone, req.ApplicationID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, letter)
}

func (h *CoverLetterHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	letters, err := h.letters.List(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cover_letters": letters})
}

func (h *CoverLetterHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	letterID, err := pathID(r, "coverLetterID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	letter, err := h.letters.Get(r.Context(), userID, letterID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, letter)
}

func (h *CoverLetterHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req coverLetterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	letterID, err := pathID(r, "coverLetterID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	letter, err := h.letters.Get(r.Context(), userID, letterID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		letter.Title = title
	}
	if req.Content != "" {
		letter.Content = req.Content
	}
	if req.Tone != nil {
		letter.Tone = req.Tone
	}
	if req.ApplicationID != nil {
		letter.ApplicationID = req.ApplicationID
	}

	updated, err := h.letters.Update(r.Context(), letter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *CoverLetterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	letterID, err := pathID(r, "coverLetterID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.letters.Delete(r.Context(), userID, letterID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
