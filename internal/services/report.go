package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"patchpoint-api/internal/errors"
	"patchpoint-api/internal/models"
	"patchpoint-api/internal/utils"
)

// ReportStore is the persistence surface the report service needs.
// FirestoreService implements it; tests substitute fakes.
type ReportStore interface {
	CreateReport(ctx context.Context, report *models.Report) (string, error)
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ListReports(ctx context.Context) ([]*models.Report, error)
	SetReportAddress(ctx context.Context, id, address string) error
}

// Geocoder resolves coordinates into an address representation.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (ResolvedAddress, error)
}

// ImageHost stores image bytes with an external provider.
type ImageHost interface {
	UploadFile(ctx context.Context, objectPath string, data []byte, contentType string) error
}

// ReportService implements report ingestion, listing with address backfill,
// and on-demand geocoding. Handlers stay thin callers.
type ReportService struct {
	store    ReportStore
	geocoder Geocoder
	images   ImageHost
}

func NewReportService(store ReportStore, geocoder Geocoder, images ImageHost) *ReportService {
	return &ReportService{
		store:    store,
		geocoder: geocoder,
		images:   images,
	}
}

// DeviceImageUpload carries the parsed multipart fields of a Pi camera upload.
type DeviceImageUpload struct {
	FileName    string
	ContentType string
	Data        []byte
	Lat, Lon    *float64
	DepthCm     *float64
	Timestamp   any
}

func validCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Create files a report submitted through the authenticated UI. The address
// is client-supplied or left absent for later backfill; the server does not
// geocode on this path.
func (s *ReportService) Create(ctx context.Context, req models.CreateReportRequest, userId string) (*models.Report, error) {
	if req.GpsLat == nil || req.GpsLon == nil {
		return nil, fmt.Errorf("%w: missing GPS coordinates", errors.ErrInvalidInput)
	}
	if !validCoordinate(*req.GpsLat) || !validCoordinate(*req.GpsLon) {
		return nil, fmt.Errorf("%w: invalid GPS coordinates", errors.ErrInvalidInput)
	}

	report := &models.Report{
		GpsLat:    *req.GpsLat,
		GpsLon:    *req.GpsLon,
		DepthCm:   req.DepthCm,
		Address:   nonEmpty(req.Address),
		ImageUrl:  nonEmpty(req.ImageUrl),
		Timestamp: time.Now().UTC(),
		CreatedAt: time.Now().UTC(),
	}
	if userId != "" {
		report.CreatedBy = &userId
	}

	return s.persist(ctx, report)
}

// CreateFromDevice files a report posted by the Pi firmware as JSON. The
// address is resolved synchronously; resolution failure leaves it absent and
// never blocks persistence.
func (s *ReportService) CreateFromDevice(ctx context.Context, req models.DeviceReportRequest) (*models.Report, error) {
	if req.GpsLat == nil || req.GpsLon == nil || !validCoordinate(*req.GpsLat) || !validCoordinate(*req.GpsLon) {
		return nil, fmt.Errorf("%w: missing or invalid GPS", errors.ErrInvalidInput)
	}

	report := &models.Report{
		GpsLat:    *req.GpsLat,
		GpsLon:    *req.GpsLon,
		DepthCm:   req.LidarCm,
		ImageUrl:  nonEmpty(req.Image),
		Timestamp: utils.NormalizeTimestamp(req.Timestamp),
		CreatedAt: time.Now().UTC(),
	}

	if resolved, err := s.geocoder.ReverseGeocode(ctx, report.GpsLat, report.GpsLon); err != nil {
		log.Printf("[Reports] Reverse geocoding failed: %v", err)
	} else if addr := resolved.Format(); addr != "" {
		report.Address = &addr
	}

	return s.persist(ctx, report)
}

// CreateFromDeviceImage files a report from a Pi multipart upload. The image
// is handed to the hosting provider first; only after the host acknowledges
// success is anything persisted. Coordinates and timestamp fall back to the
// image's EXIF data when the form fields are missing.
func (s *ReportService) CreateFromDeviceImage(ctx context.Context, upload DeviceImageUpload) (*models.Report, error) {
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("%w: no image uploaded", errors.ErrInvalidInput)
	}

	lat, lon := upload.Lat, upload.Lon
	if lat == nil || lon == nil {
		if exifLat, exifLon, err := utils.ExtractGPS(upload.Data); err == nil {
			lat, lon = &exifLat, &exifLon
			log.Printf("[Reports] Using EXIF GPS for %s: %.6f, %.6f", upload.FileName, exifLat, exifLon)
		}
	}
	if lat == nil || lon == nil || !validCoordinate(*lat) || !validCoordinate(*lon) {
		return nil, fmt.Errorf("%w: invalid GPS coordinates", errors.ErrInvalidInput)
	}

	ts := upload.Timestamp
	if ts == nil {
		if captured, err := utils.ExtractCaptureTime(upload.Data); err == nil {
			ts = captured.Format(time.RFC3339)
		}
	}

	name, contentType, data := utils.ConvertIfHeic(upload.FileName, upload.ContentType, upload.Data)
	objectPath := path.Join("pi", uuid.New().String()+path.Ext(name))

	if err := s.images.UploadFile(ctx, objectPath, data, contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrUploadFailed, err)
	}
	imageUrl := "/images/" + objectPath

	report := &models.Report{
		GpsLat:    *lat,
		GpsLon:    *lon,
		DepthCm:   upload.DepthCm,
		ImageUrl:  &imageUrl,
		Timestamp: utils.NormalizeTimestamp(ts),
		CreatedAt: time.Now().UTC(),
	}

	if resolved, err := s.geocoder.ReverseGeocode(ctx, report.GpsLat, report.GpsLon); err != nil {
		log.Printf("[Reports] Reverse geocoding failed: %v", err)
	} else if addr := resolved.Format(); addr != "" {
		report.Address = &addr
	}

	return s.persist(ctx, report)
}

// Get retrieves a single report.
func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	return s.store.GetReport(ctx, id)
}

// List returns all reports, newest observation first, backfilling missing
// addresses before responding. Each addressless report is resolved in its own
// goroutine; attempts are independent and an individual failure stores the
// sentinel instead of aborting the listing. The response reflects every
// settled attempt (read-your-write within this call).
func (s *ReportService) List(ctx context.Context) ([]*models.Report, error) {
	reports, err := s.store.ListReports(ctx)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	for _, report := range reports {
		if report.HasAddress() {
			continue
		}
		wg.Add(1)
		go func(r *models.Report) {
			defer wg.Done()
			s.backfillAddress(ctx, r)
		}(report)
	}
	wg.Wait()

	return reports, nil
}

// backfillAddress resolves and persists one report's address. Failure or an
// empty result stores the sentinel so later listings do not re-geocode.
func (s *ReportService) backfillAddress(ctx context.Context, report *models.Report) {
	addr := AddressUnavailable
	if resolved, err := s.geocoder.ReverseGeocode(ctx, report.GpsLat, report.GpsLon); err != nil {
		log.Printf("[Reports] Failed to backfill address for %s: %v", report.Id, err)
	} else if formatted := resolved.Format(); formatted != "" {
		addr = formatted
	}

	if err := s.store.SetReportAddress(ctx, report.Id, addr); err != nil {
		log.Printf("[Reports] Failed to persist backfilled address for %s: %v", report.Id, err)
		return
	}
	report.Address = &addr
	log.Printf("[Reports] Backfilled address for %s: %s", report.Id, addr)
}

// Geocode lazily resolves one report's address. A report that already has an
// address is returned unchanged without an outbound call.
func (s *ReportService) Geocode(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	if report.HasAddress() {
		return report, nil
	}

	s.backfillAddress(ctx, report)
	return report, nil
}

func (s *ReportService) persist(ctx context.Context, report *models.Report) (*models.Report, error) {
	id, err := s.store.CreateReport(ctx, report)
	if err != nil {
		return nil, err
	}
	report.Id = id
	return report, nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
