package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"patchpoint-api/internal/middleware"
	"patchpoint-api/internal/models"
	"patchpoint-api/internal/services"
)

// Device uploads are small JPEG frames; 10 MB of form memory is plenty.
const maxUploadMemory = 10 << 20

// HandleListReports serves GET /reports. Reports come back newest first, and
// every report that was missing an address has one (or the unavailable
// sentinel) by the time the response is written.
func (h *Handler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	reports, err := h.reports.List(r.Context())
	if err != nil {
		respondServiceError(w, "Reports", err)
		return
	}
	if reports == nil {
		reports = []*models.Report{}
	}

	log.Printf("[Reports] Served %d reports in %v", len(reports), time.Since(start))

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"reports": reports,
	})
}

// HandleCreateReport serves POST /reports (authenticated UI submission).
func (h *Handler) HandleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	report, err := h.reports.Create(r.Context(), req, middleware.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, "Reports", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  report,
	})
}

// HandleCreateDeviceReport serves POST /reports/device, the Pi's JSON path.
// The timestamp field is decoded with UseNumber so that second- and
// millisecond-epoch values survive undamaged.
func (h *Handler) HandleCreateDeviceReport(w http.ResponseWriter, r *http.Request) {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()

	var req models.DeviceReportRequest
	if err := decoder.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	report, err := h.reports.CreateFromDevice(r.Context(), req)
	if err != nil {
		respondServiceError(w, "Reports", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  report,
	})
}

// HandleCreateDeviceImageReport serves POST /reports/device/image, the Pi's
// multipart path. The image goes to the hosting provider before anything is
// persisted; a hosting failure aborts the request with a distinct message.
func (h *Handler) HandleCreateDeviceImageReport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No image uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read image")
		return
	}

	upload := services.DeviceImageUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}

	var ok bool
	if upload.Lat, ok = parseOptionalFloat(r.FormValue("lat")); !ok {
		respondError(w, http.StatusBadRequest, "Invalid GPS coordinates")
		return
	}
	if upload.Lon, ok = parseOptionalFloat(r.FormValue("lon")); !ok {
		respondError(w, http.StatusBadRequest, "Invalid GPS coordinates")
		return
	}
	if upload.DepthCm, ok = parseOptionalFloat(r.FormValue("depth")); !ok {
		respondError(w, http.StatusBadRequest, "Invalid depth")
		return
	}
	if ts := strings.TrimSpace(r.FormValue("timestamp")); ts != "" {
		upload.Timestamp = ts
	}

	report, err := h.reports.CreateFromDeviceImage(r.Context(), upload)
	if err != nil {
		respondServiceError(w, "PiUpload", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  report,
	})
}

// HandleGetReport serves GET /reports/{id}.
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Reports", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  report,
	})
}

// HandleGeocodeReport serves POST /reports/{id}/geocode. Used by the map UI
// to lazily resolve a marker's address instead of waiting for the next full
// listing.
func (h *Handler) HandleGeocodeReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Geocode(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Geocode", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  report,
	})
}

// parseOptionalFloat distinguishes "absent" (nil, true) from "present but
// malformed" (nil, false).
func parseOptionalFloat(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}
