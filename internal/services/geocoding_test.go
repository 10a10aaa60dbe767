package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// newTestGeocoder returns a geocoder whose HTTP client is intercepted by
// httpmock and whose rate limiter is disabled so tests run fast.
func newTestGeocoder(t *testing.T) *GeocodingService {
	t.Helper()

	g := NewGeocodingService()
	g.rateLimiter = rate.NewLimiter(rate.Inf, 1)
	httpmock.ActivateNonDefault(g.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	return g
}

func TestReverseGeocodePrefersDisplayName(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder(http.MethodGet, nominatimURL,
		httpmock.NewStringResponder(http.StatusOK, `{
			"display_name": "1 Main St, Springfield, USA",
			"address": {"road": "Main St", "city": "Springfield"}
		}`))

	resolved, err := g.ReverseGeocode(context.Background(), 42.1, -71.5)

	require.NoError(t, err)
	assert.Equal(t, "1 Main St, Springfield, USA", resolved.Format())
}

func TestReverseGeocodeJoinsComponents(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder(http.MethodGet, nominatimURL,
		httpmock.NewStringResponder(http.StatusOK, `{
			"address": {"road": "Main St", "city": "Springfield"}
		}`))

	resolved, err := g.ReverseGeocode(context.Background(), 42.1, -71.5)

	require.NoError(t, err)
	assert.Equal(t, "Main St, Springfield", resolved.Format())
}

func TestReverseGeocodeFallsBackThroughLocalityFields(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder(http.MethodGet, nominatimURL,
		httpmock.NewStringResponder(http.StatusOK, `{
			"address": {
				"road": "High St",
				"neighbourhood": "Old Quarter",
				"town": "Riverton",
				"state": "Wessex",
				"postcode": "AB1 2CD"
			}
		}`))

	resolved, err := g.ReverseGeocode(context.Background(), 51.0, -1.0)

	require.NoError(t, err)
	assert.Equal(t, "Old Quarter", resolved.Suburb)
	assert.Equal(t, "Riverton", resolved.City)
	assert.Equal(t, "High St, Old Quarter, Riverton, Wessex, AB1 2CD", resolved.Format())
}

func TestReverseGeocodeEmptyResponseIsZero(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder(http.MethodGet, nominatimURL,
		httpmock.NewStringResponder(http.StatusOK, `{}`))

	resolved, err := g.ReverseGeocode(context.Background(), 0.5, 0.5)

	require.NoError(t, err)
	assert.True(t, resolved.IsZero())
	assert.Empty(t, resolved.Format())
}

func TestReverseGeocodeNetworkFailure(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder(http.MethodGet, nominatimURL,
		httpmock.NewErrorResponder(assert.AnError))

	resolved, err := g.ReverseGeocode(context.Background(), 42.1, -71.5)

	require.Error(t, err)
	assert.True(t, resolved.IsZero())
	// All attempts exhausted
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
}

func TestReverseGeocodeRetriesTransientErrors(t *testing.T) {
	g := newTestGeocoder(t)

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, nominatimURL,
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(http.StatusServiceUnavailable, ""), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"display_name": "Somewhere"}`), nil
		})

	resolved, err := g.ReverseGeocode(context.Background(), 42.1, -71.5)

	require.NoError(t, err)
	assert.Equal(t, "Somewhere", resolved.DisplayName)
	assert.Equal(t, 2, calls)
}

func TestReverseGeocodeDoesNotRetryClientErrors(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder(http.MethodGet, nominatimURL,
		httpmock.NewStringResponder(http.StatusBadRequest, ""))

	resolved, err := g.ReverseGeocode(context.Background(), 42.1, -71.5)

	require.Error(t, err)
	assert.True(t, resolved.IsZero())
	// A 4xx cannot succeed on retry, so exactly one request goes out
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestReverseGeocodeCachesResults(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder(http.MethodGet, nominatimURL,
		httpmock.NewStringResponder(http.StatusOK, `{"display_name": "Cached Place"}`))

	for i := 0; i < 3; i++ {
		resolved, err := g.ReverseGeocode(context.Background(), 10.0, 20.0)
		require.NoError(t, err)
		assert.Equal(t, "Cached Place", resolved.DisplayName)
	}

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestReverseGeocodeSendsIdentifyingUserAgent(t *testing.T) {
	g := newTestGeocoder(t)

	var userAgent string
	httpmock.RegisterResponder(http.MethodGet, nominatimURL,
		func(req *http.Request) (*http.Response, error) {
			userAgent = req.Header.Get("User-Agent")
			return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
		})

	_, err := g.ReverseGeocode(context.Background(), 1.0, 2.0)

	require.NoError(t, err)
	assert.Contains(t, userAgent, "PatchPoint")
}
