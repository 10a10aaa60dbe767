package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	apperrors "patchpoint-api/internal/errors"
)

type StorageService struct {
	client     *storage.Client
	bucketName string
}

func NewStorageService(client *storage.Client, bucketName string) *StorageService {
	return &StorageService{
		client:     client,
		bucketName: bucketName,
	}
}

// UploadFile writes image bytes to Google Cloud Storage under the given
// object path. The object is only considered hosted once the writer closes
// cleanly; callers must not persist references to it before that.
func (s *StorageService) UploadFile(ctx context.Context, objectPath string, data []byte, contentType string) error {
	obj := s.client.Bucket(s.bucketName).Object(objectPath)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write object %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object %s: %w", objectPath, err)
	}

	return nil
}

// FetchFile retrieves a file from Google Cloud Storage by its path.
// Returns the file contents and content type, or an error if the file
// cannot be retrieved.
func (s *StorageService) FetchFile(ctx context.Context, filePath string) ([]byte, string, error) {
	obj := s.client.Bucket(s.bucketName).Object(filePath)

	reader, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", apperrors.ErrNotFound
		}
		return nil, "", err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", err
	}

	return data, reader.Attrs.ContentType, nil
}
