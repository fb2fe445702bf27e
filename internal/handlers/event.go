package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/ai"
	"github.com/applypilot/applypilot-api/internal/authz"
	"github.com/applypilot/applypilot-api/internal/models"
	"github.com/applypilot/applypilot-api/internal/repository"
	"github.com/applypilot/applypilot-api/internal/timeline"
)

type EventHandler struct {
	apps     repository.ApplicationRepository
	events   repository.EventRepository
	timeline timeline.Service
	ai       ai.Service
	logger   zerolog.Logger
}

func NewEventHandler(apps repository.ApplicationRepository, events repository.EventRepository, timelineSvc timeline.Service, aiSvc ai.Service, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		apps:     apps,
		events:   events,
		timeline: timelineSvc,
		ai:       aiSvc,
		logger:   logger.With().Str("handler", "event").Logger(),
	}
}

type createEventRequest struct {
	EventType         models.EventType          `json:"event_type"`
	Summary           *string                   `json:"summary"`
	NewStatus         *models.ApplicationStatus `json:"new_status"`
	ActionRequired    bool                      `json:"action_required"`
	ActionDescription *string                   `json:"action_description"`
	ActionDeadline    *time.Time                `json:"action_deadline"`
	EventDate         *time.Time                `json:"event_date"`
}

type parseEmailRequest struct {
	EmailContent      string `json:"email_content"`
	AdditionalContext string `json:"additional_context"`
}

type fromEmailRequest struct {
	EmailContent      string                    `json:"email_content"`
	EventType         *models.EventType         `json:"event_type"`
	Summary           *string                   `json:"summary"`
	ActionRequired    *bool                     `json:"action_required"`
	ActionDescription *string                   `json:"action_description"`
	ActionDeadline    *time.Time                `json:"action_deadline"`
	EventDate         *time.Time                `json:"event_date"`
	UpdateStatus      bool                      `json:"update_status"`
	NewStatus         *models.ApplicationStatus `json:"new_status"`
}

type updateEventRequest struct {
	Summary           *string    `json:"summary"`
	ActionRequired    *bool      `json:"action_required"`
	ActionDescription *string    `json:"action_description"`
	ActionDeadline    *time.Time `json:"action_deadline"`
	EventDate         *time.Time `json:"event_date"`
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	applicationID, err := pathID(r, "applicationID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	event, err := h.timeline.CreateManualEvent(r.Context(), userID, applicationID, timeline.ManualEventInput{
		EventType:         req.EventType,
		Summary:           req.Summary,
		NewStatus:         req.NewStatus,
		ActionRequired:    req.ActionRequired,
		ActionDescription: req.ActionDescription,
		ActionDeadline:    req.ActionDeadline,
		EventDate:         req.EventDate,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ParseEmail classifies pasted email content and returns suggestions without
// writing to the timeline. The caller confirms before anything is created.
func (h *EventHandler) ParseEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req parseEmailRequest
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

	result, err := h.ai.ParseEmail(r.Context(), userID, ai.ParseEmailInput{
		EmailContent:      req.EmailContent,
		AdditionalContext: req.AdditionalContext,
		Company:           app.Company,
		JobTitle:          app.JobTitle,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"summary":      result.Suggestions.Summary,
		"suggestions":  result.Suggestions,
		"raw_content":  req.EmailContent,
		"credits_left": result.CreditsLeft,
	})
}

// FromEmail parses the email and creates the event in one step. User-supplied
// fields override the AI suggestions.
func (h *EventHandler) FromEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req fromEmailRequest
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

	result, err := h.ai.ParseEmail(r.Context(), userID, ai.ParseEmailInput{
		EmailContent: req.EmailContent,
		Company:      app.Company,
		JobTitle:     app.JobTitle,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	suggestions := result.Suggestions

	input := timeline.EmailEventInput{
		EventType:   suggestions.EventType,
		RawEmail:    req.EmailContent,
		Suggestions: result.Raw,
	}
	if req.EventType != nil {
		input.EventType = *req.EventType
	}
	if req.Summary != nil {
		input.Summary = req.Summary
	} else if suggestions.Summary != "" {
		summary := suggestions.Summary
		input.Summary = &summary
	}
	if req.ActionRequired != nil {
		input.ActionRequired = *req.ActionRequired
	} else {
		input.ActionRequired = suggestions.ActionRequired
	}
	if req.ActionDescription != nil {
		input.ActionDescription = req.ActionDescription
	} else {
		input.ActionDescription = suggestions.ActionDescription
	}
	if req.ActionDeadline != nil {
		input.ActionDeadline = req.ActionDeadline
	} else {
		input.ActionDeadline = suggestions.DeadlineTime()
	}
	if req.EventDate != nil {
		input.EventDate = req.EventDate
	} else {
		input.EventDate = firstExtractedDate(suggestions.ExtractedDates)
	}
	if req.UpdateStatus && req.NewStatus != nil {
		input.NewStatus = req.NewStatus
	}

	event, err := h.timeline.CreateEventFromEmail(r.Context(), userID, applicationID, input)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
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

	events, err := h.timeline.ListEvents(r.Context(), userID, applicationID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	applicationID, eventID, err := eventPathIDs(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	event, err := h.events.Get(r.Context(), userID, applicationID, eventID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	applicationID, eventID, err := eventPathIDs(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	event, err := h.timeline.UpdateEvent(r.Context(), userID, applicationID, eventID, repository.UpdateEventParams{
		Summary:           req.Summary,
		ActionRequired:    req.ActionRequired,
		ActionDescription: req.ActionDescription,
		ActionDeadline:    req.ActionDeadline,
		EventDate:         req.EventDate,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// CompleteAction flags the event's pending action as done.
func (h *EventHandler) CompleteAction(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	applicationID, eventID, err := eventPathIDs(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	completed := true
	event, err := h.timeline.UpdateEvent(r.Context(), userID, applicationID, eventID, repository.UpdateEventParams{
		ActionCompleted: &completed,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	applicationID, eventID, err := eventPathIDs(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.timeline.DeleteEvent(r.Context(), userID, applicationID, eventID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func eventPathIDs(r *http.Request) (applicationID, eventID string, err error) {
	if applicationID, err = pathID(r, "applicationID"); err != nil {
		return "", "", err
	}
	if eventID, err = pathID(r, "eventID"); err != nil {
		return "", "", err
	}
	return applicationID, eventID, nil
}

func firstExtractedDate(dates []ai.ExtractedDate) *time.Time {
	for _, d := range dates {
		layout, value := "2006-01-02", d.Date
		if d.Time != nil && *d.Time != "" {
			layout, value = "2006-01-02T15:04", d.Date+"T"+*d.Time
		}
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
