package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/authz"
	"github.com/applypilot/applypilot-api/internal/models"
	"github.com/applypilot/applypilot-api/internal/quota"
	"github.com/applypilot/applypilot-api/internal/repository"
)

type DashboardHandler struct {
	apps   repository.ApplicationRepository
	quota  *quota.Tracker
	logger zerolog.Logger
}

func NewDashboardHandler(apps repository.ApplicationRepository, tracker *quota.Tracker, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		apps:   apps,
		quota:  tracker,
		logger: logger.With().Str("handler", "dashboard").Logger(),
	}
}

type dashboardStats struct {
	Total             int                              `json:"total"`
	ByStatus          map[models.ApplicationStatus]int `json:"by_status"`
	AppliedLast7Days  int                              `json:"applied_last_7_days"`
	UpcomingFollowUps []models.Application             `json:"upcoming_follow_ups"`
	CreditsLeft       int                              `json:"credits_left"`
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	byStatus, err := h.apps.CountByStatus(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	total := 0
	for _, count := range byStatus {
		total += count
	}

	now := time.Now().UTC()
	appliedRecently, err := h.apps.CountCreatedSince(r.Context(), userID, now.AddDate(0, 0, -7), models.StatusApplied)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	upcoming, err := h.apps.UpcomingFollowUps(r.Context(), userID, now, now.AddDate(0, 0, 7), 5)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if upcoming == nil {
		upcoming = []models.Application{}
	}

	creditsLeft, err := h.quota.Remaining(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardStats{
		Total:             total,
		ByStatus:          byStatus,
		AppliedLast7Days:  appliedRecently,
		UpcomingFollowUps: upcoming,
		CreditsLeft:       creditsLeft,
	})
}
