package handlers

import (
	"io"
	"log"
	"net/http"
	"time"
)

// Map bundles include tiles and can run large.
const maxArchiveMemory = 64 << 20

// HandleZipUpload serves POST /zip/upload. The Pi's offline mapping run posts
// a zip bundle containing a rendered map page; the bundle is extracted and
// the page exposed under /uploads/.
func (h *Handler) HandleZipUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := r.ParseMultipartForm(maxArchiveMemory); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	extracted, err := h.archives.ExtractMapArchive(header.Filename, data)
	if err != nil {
		respondServiceError(w, "ZipUpload", err)
		return
	}

	log.Printf("[ZipUpload] Extracted %s to %s in %v", header.Filename, extracted.ExtractDir, time.Since(start))

	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"mapUrl":     extracted.MapUrl,
		"timestamp":  extracted.Timestamp,
		"extractDir": extracted.ExtractDir,
	})
}
