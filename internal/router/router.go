package router

import (
	"net/http"

	"patchpoint-api/internal/handlers"
)

// Setup configures and returns the HTTP router with all application routes.
// sessionAuth guards the endpoints that require a logged-in user; device
// endpoints stay open because the Pi has no session.
func Setup(h *handlers.Handler, sessionAuth func(http.Handler) http.Handler, uploadsDir string) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Reports
	mux.HandleFunc("GET /reports", h.HandleListReports)
	mux.Handle("POST /reports", sessionAuth(http.HandlerFunc(h.HandleCreateReport)))
	mux.HandleFunc("POST /reports/device", h.HandleCreateDeviceReport)
	mux.HandleFunc("POST /reports/device/image", h.HandleCreateDeviceImageReport)
	mux.HandleFunc("GET /reports/{id}", h.HandleGetReport)
	mux.HandleFunc("POST /reports/{id}/geocode", h.HandleGeocodeReport)

	// Comments
	mux.HandleFunc("GET /comments", h.HandleListComments)
	mux.Handle("POST /comments", sessionAuth(http.HandlerFunc(h.HandleCreateComment)))

	// Pi map bundles
	mux.HandleFunc("POST /zip/upload", h.HandleZipUpload)
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir))))

	// Hosted report images
	mux.HandleFunc("GET /images/{object...}", h.HandleImage)

	return mux
}
