package routes

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/applypilot/applypilot-api/internal/handlers"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Application  *handlers.ApplicationHandler
	Event        *handlers.EventHandler
	Notification *handlers.NotificationHandler
	AI           *handlers.AIHandler
	Resume       *handlers.ResumeHandler
	CoverLetter  *handlers.CoverLetterHandler
	Dashboard    *handlers.DashboardHandler
}

func NewRouter(db *sql.DB, h Handlers) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", handlers.HealthCheck(db)).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/signup", h.Auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", h.Auth.Login).Methods(http.MethodPost)

	// Everything below requires a valid token.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.Auth.JWTMiddleware)

	api.HandleFunc("/me", h.Auth.Me).Methods(http.MethodGet)

	api.HandleFunc("/applications", h.Application.Create).Methods(http.MethodPost)
	api.HandleFunc("/applications", h.Application.List).Methods(http.MethodGet)
	api.HandleFunc("/applications/{applicationID}", h.Application.Get).Methods(http.MethodGet)
	api.HandleFunc("/applications/{applicationID}", h.Application.Update).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/applications/{applicationID}/status", h.Application.UpdateStatus).Methods(http.MethodPatch)
	api.HandleFunc("/applications/{applicationID}", h.Application.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/applications/{applicationID}/events", h.Event.Create).Methods(http.MethodPost)
	api.HandleFunc("/applications/{applicationID}/events", h.Event.List).Methods(http.MethodGet)
	api.HandleFunc("/applications/{applicationID}/events/parse-email", h.Event.ParseEmail).Methods(http.MethodPost)
	api.HandleFunc("/applications/{applicationID}/events/from-email", h.Event.FromEmail).Methods(http.MethodPost)
	api.HandleFunc("/applications/{applicationID}/events/{eventID}", h.Event.Get).Methods(http.MethodGet)
	api.HandleFunc("/applications/{applicationID}/events/{eventID}", h.Event.Update).Methods(http.MethodPatch)
	api.HandleFunc("/applications/{applicationID}/events/{eventID}", h.Event.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/applications/{applicationID}/events/{eventID}/complete", h.Event.CompleteAction).Methods(http.MethodPost)

	api.HandleFunc("/notifications", h.Notification.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/unread-count", h.Notification.UnreadCount).Methods(http.MethodGet)
	api.HandleFunc("/notifications/mark-all-read", h.Notification.MarkAllRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{notificationID}/read", h.Notification.MarkRead).Methods(http.MethodPatch)
	api.HandleFunc("/notifications/{notificationID}", h.Notification.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/ai/tailor-resume", h.AI.TailorResume).Methods(http.MethodPost)
	api.HandleFunc("/ai/cover-letter", h.AI.CoverLetter).Methods(http.MethodPost)
	api.HandleFunc("/ai/ats-checklist", h.AI.ATSChecklist).Methods(http.MethodPost)
	api.HandleFunc("/ai/quota", h.AI.Quota).Methods(http.MethodGet)

	api.HandleFunc("/resumes", h.Resume.Create).Methods(http.MethodPost)
	api.HandleFunc("/resumes", h.Resume.List).Methods(http.MethodGet)
	api.HandleFunc("/resumes/{resumeID}", h.Resume.Get).Methods(http.MethodGet)
	api.HandleFunc("/resumes/{resumeID}", h.Resume.Update).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/resumes/{resumeID}/primary", h.Resume.SetPrimary).Methods(http.MethodPost)
	api.HandleFunc("/resumes/{resumeID}", h.Resume.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/cover-letters", h.CoverLetter.Create).Methods(http.MethodPost)
	api.HandleFunc("/cover-letters", h.CoverLetter.List).Methods(http.MethodGet)
	api.HandleFunc("/cover-letters/{coverLetterID}", h.CoverLetter.Get).Methods(http.MethodGet)
	api.HandleFunc("/cover-letters/{coverLetterID}", h.CoverLetter.Update).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/cover-letters/{coverLetterID}", h.CoverLetter.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/dashboard/stats", h.Dashboard.Stats).Methods(http.MethodGet)

	return router
}
