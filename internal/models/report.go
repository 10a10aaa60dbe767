package models

import "time"

// Report is a persisted pothole observation. GpsLat/GpsLon are always present
// and finite; the remaining fields are optional and stay nil until known.
type Report struct {
	Id        string    `firestore:"id,omitempty" json:"id"`
	GpsLat    float64   `firestore:"gpsLat" json:"gpsLat"`
	GpsLon    float64   `firestore:"gpsLon" json:"gpsLon"`
	DepthCm   *float64  `firestore:"depthCm,omitempty" json:"depthCm,omitempty"`
	Address   *string   `firestore:"address,omitempty" json:"address,omitempty"`
	ImageUrl  *string   `firestore:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Timestamp time.Time `firestore:"timestamp" json:"timestamp"`
	CreatedBy *string   `firestore:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt time.Time `firestore:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// HasAddress reports whether a usable address is already stored.
// The legacy "-" placeholder counts as missing.
func (r *Report) HasAddress() bool {
	return r.Address != nil && *r.Address != "" && *r.Address != "-"
}

// Comment is a free-text note attached to a single report.
// Comments are immutable after creation.
type Comment struct {
	Id        string    `firestore:"id,omitempty" json:"id"`
	ReportId  string    `firestore:"reportId" json:"reportId"`
	Text      string    `firestore:"text" json:"text"`
	CreatedBy string    `firestore:"createdBy" json:"createdBy"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}
