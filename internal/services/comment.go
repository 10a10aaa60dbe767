package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"patchpoint-api/internal/errors"
	"patchpoint-api/internal/models"
)

// CommentStore is the persistence surface the comment service needs.
type CommentStore interface {
	CreateComment(ctx context.Context, comment *models.Comment) (string, error)
	ListCommentsByReport(ctx context.Context, reportId string) ([]*models.Comment, error)
}

// CommentService creates and lists comments scoped to a report.
type CommentService struct {
	store CommentStore
}

func NewCommentService(store CommentStore) *CommentService {
	return &CommentService{store: store}
}

// Create files a comment on behalf of the authenticated user.
func (s *CommentService) Create(ctx context.Context, req models.CreateCommentRequest, userId string) (*models.Comment, error) {
	if strings.TrimSpace(req.ReportId) == "" {
		return nil, fmt.Errorf("%w: missing reportId", errors.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: missing text", errors.ErrInvalidInput)
	}

	comment := &models.Comment{
		ReportId:  req.ReportId,
		Text:      strings.TrimSpace(req.Text),
		CreatedBy: userId,
		CreatedAt: time.Now().UTC(),
	}

	id, err := s.store.CreateComment(ctx, comment)
	if err != nil {
		return nil, err
	}
	comment.Id = id

	return comment, nil
}

// ListByReport returns the comments filed against one report, newest first.
func (s *CommentService) ListByReport(ctx context.Context, reportId string) ([]*models.Comment, error) {
	if strings.TrimSpace(reportId) == "" {
		return nil, fmt.Errorf("%w: missing reportId", errors.ErrInvalidInput)
	}
	return s.store.ListCommentsByReport(ctx, reportId)
}
