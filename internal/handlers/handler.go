package handlers

import "patchpoint-api/internal/services"

type Handler struct {
	reports  *services.ReportService
	comments *services.CommentService
	images   *services.ImageService
	archives *services.ArchiveService
}

func New(
	reports *services.ReportService,
	comments *services.CommentService,
	images *services.ImageService,
	archives *services.ArchiveService,
) *Handler {
	return &Handler{
		reports:  reports,
		comments: comments,
		images:   images,
		archives: archives,
	}
}
