package models

import "time"

// CacheEntry holds fetched image bytes for the serving path.
type CacheEntry struct {
	Data        []byte
	ContentType string
	Expires     time.Time
}
