package models

// CreateReportRequest is the JSON body for the authenticated UI submission.
// Coordinates are pointers so that "missing" can be told apart from zero.
type CreateReportRequest struct {
	GpsLat   *float64 `json:"gpsLat"`
	GpsLon   *float64 `json:"gpsLon"`
	DepthCm  *float64 `json:"depthCm,omitempty"`
	Address  *string  `json:"address,omitempty"`
	ImageUrl *string  `json:"imageUrl,omitempty"`
}

// DeviceReportRequest is the JSON body the Pi firmware posts. Field names
// follow the firmware's snake_case convention. Timestamp is left untyped
// because different firmware revisions send Unix seconds, Unix milliseconds,
// or ISO strings.
type DeviceReportRequest struct {
	GpsLat    *float64 `json:"gps_lat"`
	GpsLon    *float64 `json:"gps_lon"`
	LidarCm   *float64 `json:"lidar_cm,omitempty"`
	Image     *string  `json:"image,omitempty"`
	Timestamp any      `json:"timestamp,omitempty"`
}

// CreateCommentRequest is the JSON body for posting a comment.
type CreateCommentRequest struct {
	ReportId string `json:"reportId"`
	Text     string `json:"text"`
}
