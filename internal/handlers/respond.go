package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/apperr"
)

// pathID returns the named route variable, rejecting values that are not
// valid UUIDs so malformed IDs surface as 404s instead of database errors.
func pathID(r *http.Request, name string) (string, error) {
	raw := mux.Vars(r)[name]
	if _, err := uuid.Parse(raw); err != nil {
		return "", apperr.ErrNotFound
	}
	return raw, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// respondError maps the shared error taxonomy onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body; the cause goes to the log only.
func respondError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Msg)
		return
	}
	if errors.Is(err, apperr.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Resource not found")
		return
	}
	if errors.Is(err, apperr.ErrQuotaExceeded) {
		writeError(w, http.StatusTooManyRequests, "Daily AI quota exceeded. Try again later.")
		return
	}
	var uerr *apperr.UpstreamError
	if errors.As(err, &uerr) {
		status := http.StatusBadGateway
		if uerr.Unavailable {
			status = http.StatusServiceUnavailable
		}
		logger.Warn().Err(err).Msg("AI provider failure")
		writeError(w, status, uerr.Detail)
		return
	}

	logger.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
