package services

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"patchpoint-api/internal/errors"
	"patchpoint-api/internal/models"
)

// FirestoreService persists reports and comments in two Firestore
// collections. Conflicting writes are serialized by Firestore itself; the
// application holds no locks.
type FirestoreService struct {
	client             *firestore.Client
	reportsCollection  string
	commentsCollection string
}

func NewFirestoreService(client *firestore.Client, reportsCollection, commentsCollection string) *FirestoreService {
	return &FirestoreService{
		client:             client,
		reportsCollection:  reportsCollection,
		commentsCollection: commentsCollection,
	}
}

// CreateReport persists a new report and returns its assigned document ID.
func (fs *FirestoreService) CreateReport(ctx context.Context, report *models.Report) (string, error) {
	docRef, _, err := fs.client.Collection(fs.reportsCollection).Add(ctx, report)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}

	return docRef.ID, nil
}

// GetReport retrieves a report by document ID.
func (fs *FirestoreService) GetReport(ctx context.Context, id string) (*models.Report, error) {
	doc, err := fs.client.Collection(fs.reportsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report models.Report
	if err := doc.DataTo(&report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	report.Id = doc.Ref.ID
	sanitizeAddress(&report)

	return &report, nil
}

// ListReports retrieves all reports ordered by observation timestamp,
// newest first.
func (fs *FirestoreService) ListReports(ctx context.Context) ([]*models.Report, error) {
	iter := fs.client.Collection(fs.reportsCollection).
		OrderBy("timestamp", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var results []*models.Report
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate reports: %w", err)
		}

		var report models.Report
		if err := doc.DataTo(&report); err != nil {
			// Log but don't fail on individual document parse errors
			log.Printf("[Firestore] Skipping unparseable report %s: %v", doc.Ref.ID, err)
			continue
		}
		report.Id = doc.Ref.ID
		sanitizeAddress(&report)

		results = append(results, &report)
	}

	return results, nil
}

// SetReportAddress persists a resolved address on an existing report.
func (fs *FirestoreService) SetReportAddress(ctx context.Context, id, address string) error {
	_, err := fs.client.Collection(fs.reportsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "address", Value: address},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.ErrNotFound
		}
		return fmt.Errorf("failed to update address: %w", err)
	}

	return nil
}

// CreateComment persists a new comment and returns its assigned document ID.
func (fs *FirestoreService) CreateComment(ctx context.Context, comment *models.Comment) (string, error) {
	docRef, _, err := fs.client.Collection(fs.commentsCollection).Add(ctx, comment)
	if err != nil {
		return "", fmt.Errorf("failed to create comment: %w", err)
	}

	return docRef.ID, nil
}

// ListCommentsByReport retrieves the comments for one report, newest first.
func (fs *FirestoreService) ListCommentsByReport(ctx context.Context, reportId string) ([]*models.Comment, error) {
	iter := fs.client.Collection(fs.commentsCollection).
		Where("reportId", "==", reportId).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var results []*models.Comment
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate comments: %w", err)
		}

		var comment models.Comment
		if err := doc.DataTo(&comment); err != nil {
			continue
		}
		comment.Id = doc.Ref.ID

		results = append(results, &comment)
	}

	return results, nil
}

// Early revisions stored a bare dash as an address placeholder; readers treat
// it as absent so it is never displayed or mistaken for a resolved value.
func sanitizeAddress(report *models.Report) {
	if report.Address != nil && *report.Address == "-" {
		report.Address = nil
	}
}
