package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"classroomhub/internal/security"
	"classroomhub/internal/service"
	"classroomhub/internal/validation"
)

const (
	ErrInvalidRequest      = "invalid request body"
	ErrUnauthorized        = "authentication required"
	ErrInternalServerError = "internal server error"

	maxBodyBytes = 1 << 20
)

// respondJSON writes payload as JSON with the given status
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondWithError writes {"error": userMsg} and logs err when it is set
func respondWithError(w http.ResponseWriter, logger *zap.Logger, status int, userMsg string, err error) {
	if err != nil {
		logger.Error(userMsg, zap.Int("status", status), zap.Error(err))
	}
	respondJSON(w, status, map[string]string{"error": userMsg})
}

// respondWithServiceError maps the service error taxonomy to HTTP statuses.
// Anything unrecognised is logged and reported as a 500.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var ve validation.ValidationError
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, logger, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExpired),
		errors.Is(err, security.ErrInvalidToken):
		respondWithError(w, logger, http.StatusUnauthorized, ErrUnauthorized, nil)
	case errors.Is(err, service.ErrForbidden):
		respondWithError(w, logger, http.StatusForbidden, "you are not allowed to do that", nil)
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, logger, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrDuplicateEmail),
		errors.Is(err, service.ErrDuplicateEdge),
		errors.Is(err, service.ErrHasChildren),
		errors.Is(err, service.ErrHasAuthoredContent):
		respondWithError(w, logger, http.StatusConflict, err.Error(), nil)
	default:
		respondWithError(w, logger, http.StatusInternalServerError, ErrInternalServerError, err)
	}
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%s: %w", ErrInvalidRequest, err)
	}
	return nil
}

// idParam reads a positive integer URL parameter
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, validation.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return id, nil
}
