package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	apperrors "patchpoint-api/internal/errors"
)

// Every endpoint answers with this envelope shape; message is only set on
// failure and never carries internal error detail.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Respond] Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

// respondServiceError maps service-layer errors onto the stable error
// envelope. Unexpected errors are logged and reported as a generic 500.
func respondServiceError(w http.ResponseWriter, prefix string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, userMessage(err))
	case errors.Is(err, apperrors.ErrNotFound):
		respondError(w, http.StatusNotFound, "Report not found")
	case errors.Is(err, apperrors.ErrUploadFailed):
		log.Printf("[%s] Image upload failed: %v", prefix, err)
		respondError(w, http.StatusInternalServerError, "Image upload failed")
	default:
		log.Printf("[%s] Unexpected error: %v", prefix, err)
		respondError(w, http.StatusInternalServerError, "Server error")
	}
}

// userMessage strips the wrapped sentinel prefix from validation errors so
// clients see "missing GPS coordinates" rather than "invalid input: ...".
func userMessage(err error) string {
	msg := err.Error()
	if idx := len(apperrors.ErrInvalidInput.Error()) + 2; idx < len(msg) {
		return msg[idx:]
	}
	return msg
}
