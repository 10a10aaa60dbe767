package handlers

import (
	"encoding/json"
	"net/http"

	"patchpoint-api/internal/middleware"
	"patchpoint-api/internal/models"
)

// HandleListComments serves GET /comments?reportId=.
func (h *Handler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.ListByReport(r.Context(), r.URL.Query().Get("reportId"))
	if err != nil {
		respondServiceError(w, "Comments", err)
		return
	}
	if comments == nil {
		comments = []*models.Comment{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"comments": comments,
	})
}

// HandleCreateComment serves POST /comments (authenticated).
func (h *Handler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	comment, err := h.comments.Create(r.Context(), req, middleware.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, "Comments", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"comment": comment,
	})
}
