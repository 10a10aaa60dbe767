package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	apperrors "patchpoint-api/internal/errors"
)

// HandleImage serves GET /images/{object...}, proxying hosted report images
// with caching so the frontend needs no bucket credentials.
func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	objectPath := strings.TrimSpace(r.PathValue("object"))
	if objectPath == "" {
		respondError(w, http.StatusBadRequest, "Missing object path")
		return
	}

	// Prevent path traversal into other bucket prefixes
	if strings.Contains(objectPath, "..") || strings.Contains(objectPath, "\\") {
		log.Printf("[Image] Security: Rejected suspicious object path: %s", objectPath)
		respondError(w, http.StatusBadRequest, "Invalid object path")
		return
	}

	data, contentType, err := h.images.GetImage(r.Context(), objectPath)
	if err != nil {
		log.Printf("[Image] Failed to get image %s: %v", objectPath, err)
		if errors.Is(err, apperrors.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Image not found")
		} else {
			respondError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	log.Printf("[Image] Served %s (%s) in %v", objectPath, contentType, time.Since(start))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=900")
	if _, err := w.Write(data); err != nil {
		log.Printf("[Image] Failed to write response: %v", err)
	}
}
