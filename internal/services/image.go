package services

import (
	"context"
	"fmt"
	"log"
)

// ImageService serves hosted report images through the API so the frontend
// never needs direct bucket access.
type ImageService struct {
	storage *StorageService
	cache   *CacheService
}

func NewImageService(storage *StorageService, cache *CacheService) *ImageService {
	return &ImageService{
		storage: storage,
		cache:   cache,
	}
}

// GetImage retrieves an image from cache or storage.
// Returns the image data, content type, and any error encountered.
func (s *ImageService) GetImage(ctx context.Context, objectPath string) ([]byte, string, error) {
	if entry, ok := s.cache.Get(objectPath); ok {
		log.Printf("[Image] Cache hit: %s", objectPath)
		return entry.Data, entry.ContentType, nil
	}

	data, contentType, err := s.storage.FetchFile(ctx, objectPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch file: %w", err)
	}

	log.Printf("[Image] Fetched %d bytes from storage for %s", len(data), objectPath)

	s.cache.Set(objectPath, data, contentType)

	return data, contentType, nil
}
