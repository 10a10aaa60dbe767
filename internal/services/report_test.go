package services

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "patchpoint-api/internal/errors"
	"patchpoint-api/internal/models"
)

type fakeReportStore struct {
	mu      sync.Mutex
	reports map[string]*models.Report
	nextID  int
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{reports: make(map[string]*models.Report)}
}

func (f *fakeReportStore) CreateReport(ctx context.Context, report *models.Report) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := "report-" + strconv.Itoa(f.nextID)
	stored := *report
	stored.Id = id
	f.reports[id] = &stored
	return id, nil
}

func (f *fakeReportStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.reports[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeReportStore) ListReports(ctx context.Context) ([]*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Report
	for _, stored := range f.reports {
		copied := *stored
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeReportStore) SetReportAddress(ctx context.Context, id, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.reports[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	stored.Address = &address
	return nil
}

func (f *fakeReportStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

func (f *fakeReportStore) storedAddress(id string) *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stored, ok := f.reports[id]; ok {
		return stored.Address
	}
	return nil
}

type fakeGeocoder struct {
	mu     sync.Mutex
	result ResolvedAddress
	err    error
	calls  int
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (ResolvedAddress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return ResolvedAddress{}, f.err
	}
	return f.result, nil
}

func (f *fakeGeocoder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeImageHost struct {
	err     error
	uploads int
}

func (f *fakeImageHost) UploadFile(ctx context.Context, objectPath string, data []byte, contentType string) error {
	f.uploads++
	return f.err
}

func floatPtr(v float64) *float64 { return &v }

func seedReport(store *fakeReportStore, address *string) string {
	id, _ := store.CreateReport(context.Background(), &models.Report{
		GpsLat:    51.5,
		GpsLon:    -0.1,
		Address:   address,
		Timestamp: time.Now().UTC(),
	})
	return id
}

func TestCreateRejectsMissingCoordinates(t *testing.T) {
	store := newFakeReportStore()
	svc := NewReportService(store, &fakeGeocoder{}, &fakeImageHost{})

	_, err := svc.Create(context.Background(), models.CreateReportRequest{GpsLat: floatPtr(51.5)}, "user-1")

	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, 0, store.count())
}

func TestCreateAttachesUserAndSkipsGeocoding(t *testing.T) {
	store := newFakeReportStore()
	geocoder := &fakeGeocoder{result: ResolvedAddress{DisplayName: "should not be used"}}
	svc := NewReportService(store, geocoder, &fakeImageHost{})

	report, err := svc.Create(context.Background(), models.CreateReportRequest{
		GpsLat: floatPtr(51.5),
		GpsLon: floatPtr(-0.1),
	}, "user-1")

	require.NoError(t, err)
	require.NotNil(t, report.CreatedBy)
	assert.Equal(t, "user-1", *report.CreatedBy)
	assert.Nil(t, report.Address)
	// UI path never geocodes; the address is client-supplied or backfilled later
	assert.Equal(t, 0, geocoder.callCount())
}

func TestCreateFromDeviceResolvesAddress(t *testing.T) {
	store := newFakeReportStore()
	geocoder := &fakeGeocoder{result: ResolvedAddress{DisplayName: "1 Main St, Springfield, USA"}}
	svc := NewReportService(store, geocoder, &fakeImageHost{})

	report, err := svc.CreateFromDevice(context.Background(), models.DeviceReportRequest{
		GpsLat:    floatPtr(42.1),
		GpsLon:    floatPtr(-71.5),
		LidarCm:   floatPtr(7.5),
		Timestamp: "1700000000",
	})

	require.NoError(t, err)
	require.NotNil(t, report.Address)
	assert.Equal(t, "1 Main St, Springfield, USA", *report.Address)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), report.Timestamp)
	assert.Nil(t, report.CreatedBy)
}

func TestCreateFromDevicePersistsDespiteGeocodeFailure(t *testing.T) {
	store := newFakeReportStore()
	geocoder := &fakeGeocoder{err: assert.AnError}
	svc := NewReportService(store, geocoder, &fakeImageHost{})

	report, err := svc.CreateFromDevice(context.Background(), models.DeviceReportRequest{
		GpsLat: floatPtr(42.1),
		GpsLon: floatPtr(-71.5),
	})

	require.NoError(t, err)
	assert.Nil(t, report.Address)
	assert.Equal(t, 1, store.count())
}

func TestCreateFromDeviceImageAbortsOnHostFailure(t *testing.T) {
	store := newFakeReportStore()
	host := &fakeImageHost{err: assert.AnError}
	svc := NewReportService(store, &fakeGeocoder{}, host)

	_, err := svc.CreateFromDeviceImage(context.Background(), DeviceImageUpload{
		FileName:    "frame.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("not a real jpeg"),
		Lat:         floatPtr(42.1),
		Lon:         floatPtr(-71.5),
	})

	require.ErrorIs(t, err, apperrors.ErrUploadFailed)
	// Nothing meaningful to persist without the hosted image
	assert.Equal(t, 0, store.count())
}

func TestCreateFromDeviceImagePersistsAfterHostSuccess(t *testing.T) {
	store := newFakeReportStore()
	host := &fakeImageHost{}
	geocoder := &fakeGeocoder{result: ResolvedAddress{Road: "Main St", City: "Springfield"}}
	svc := NewReportService(store, geocoder, host)

	report, err := svc.CreateFromDeviceImage(context.Background(), DeviceImageUpload{
		FileName:    "frame.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("not a real jpeg"),
		Lat:         floatPtr(42.1),
		Lon:         floatPtr(-71.5),
		DepthCm:     floatPtr(4.2),
		Timestamp:   "1700000000123",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, host.uploads)
	require.NotNil(t, report.ImageUrl)
	assert.Contains(t, *report.ImageUrl, "/images/pi/")
	require.NotNil(t, report.Address)
	assert.Equal(t, "Main St, Springfield", *report.Address)
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), report.Timestamp)
}

func TestListBackfillsMissingAddresses(t *testing.T) {
	store := newFakeReportStore()
	id := seedReport(store, nil)
	geocoder := &fakeGeocoder{result: ResolvedAddress{DisplayName: "Resolved Place"}}
	svc := NewReportService(store, geocoder, &fakeImageHost{})

	reports, err := svc.List(context.Background())

	require.NoError(t, err)
	require.Len(t, reports, 1)
	// Read-your-write: the current response already carries the address
	require.NotNil(t, reports[0].Address)
	assert.Equal(t, "Resolved Place", *reports[0].Address)
	// And it was persisted
	require.NotNil(t, store.storedAddress(id))
	assert.Equal(t, "Resolved Place", *store.storedAddress(id))
}

func TestListBackfillStoresSentinelAndNeverRetries(t *testing.T) {
	store := newFakeReportStore()
	id := seedReport(store, nil)
	geocoder := &fakeGeocoder{err: assert.AnError}
	svc := NewReportService(store, geocoder, &fakeImageHost{})

	reports, err := svc.List(context.Background())

	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.NotNil(t, reports[0].Address)
	assert.Equal(t, AddressUnavailable, *reports[0].Address)
	assert.Equal(t, 1, geocoder.callCount())

	// The sentinel is persisted, so a second listing must not re-geocode
	_, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, geocoder.callCount())
	assert.Equal(t, AddressUnavailable, *store.storedAddress(id))
}

func TestListBackfillFailureDoesNotAbortListing(t *testing.T) {
	store := newFakeReportStore()
	seedReport(store, nil)
	addr := "Already Known"
	seedReport(store, &addr)
	geocoder := &fakeGeocoder{err: assert.AnError}
	svc := NewReportService(store, geocoder, &fakeImageHost{})

	reports, err := svc.List(context.Background())

	require.NoError(t, err)
	assert.Len(t, reports, 2)
	for _, report := range reports {
		require.NotNil(t, report.Address)
	}
}

func TestGeocodeResolvesOnceThenServesStoredAddress(t *testing.T) {
	store := newFakeReportStore()
	id := seedReport(store, nil)
	geocoder := &fakeGeocoder{result: ResolvedAddress{DisplayName: "Lazy Place"}}
	svc := NewReportService(store, geocoder, &fakeImageHost{})

	first, err := svc.Geocode(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, first.Address)
	assert.Equal(t, "Lazy Place", *first.Address)
	assert.Equal(t, 1, geocoder.callCount())

	second, err := svc.Geocode(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, second.Address)
	assert.Equal(t, "Lazy Place", *second.Address)
	// No second outbound call
	assert.Equal(t, 1, geocoder.callCount())
}

func TestGeocodeUnknownReport(t *testing.T) {
	svc := NewReportService(newFakeReportStore(), &fakeGeocoder{}, &fakeImageHost{})

	_, err := svc.Geocode(context.Background(), "missing")

	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
