package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// errPermanent marks provider responses that a retry cannot fix, such as a
// 400 for malformed coordinates.
var errPermanent = errors.New("permanent geocoding failure")

// AddressUnavailable is the user-facing stand-in for a report whose address
// could not be resolved. Persisting it keeps later listings from re-geocoding.
const AddressUnavailable = "Address unavailable"

const nominatimURL = "https://nominatim.openstreetmap.org/reverse"

// Performs reverse geocoding using the OpenStreetMap Nominatim
// API with caching and rate limiting.
type GeocodingService struct {
	cache       map[string]ResolvedAddress
	cacheMutex  sync.RWMutex
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// Models the subset of Nominatim's response that we care about.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Road          string `json:"road"`
		Suburb        string `json:"suburb"`
		Neighbourhood string `json:"neighbourhood"`
		Hamlet        string `json:"hamlet"`
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
		State         string `json:"state"`
		Postcode      string `json:"postcode"`
	} `json:"address"`
}

// ResolvedAddress is the normalized reverse-geocoding result. All fields are
// empty when resolution failed; callers apply their own fallback policy.
type ResolvedAddress struct {
	Road        string
	Suburb      string
	City        string
	State       string
	Postcode    string
	DisplayName string
}

// Format renders the address for display. The provider's full formatted
// string wins when present; otherwise the known components are joined in
// road, suburb, city, state, postcode order. An empty result means no usable
// fields came back. Raw coordinates are never used as an address.
func (a ResolvedAddress) Format() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}

	var parts []string
	for _, p := range []string{a.Road, a.Suburb, a.City, a.State, a.Postcode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// IsZero reports whether resolution produced no usable fields.
func (a ResolvedAddress) IsZero() bool {
	return a == ResolvedAddress{}
}

// Returns a fully configured geocoder.
// It includes:
//   - in-memory cache
//   - shared HTTP client with a 10s timeout
//   - Nominatim-compliant rate limiting (1 request/sec)
func NewGeocodingService() *GeocodingService {
	return &GeocodingService{
		cache:      make(map[string]ResolvedAddress),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		rateLimiter: rate.NewLimiter(
			rate.Limit(1), // 1 request/sec per Nominatim usage policy
			1,             // burst size
		),
	}
}

// ReverseGeocode performs a coordinate→address lookup.
// The function:
//  1. checks the in-memory cache
//  2. applies rate limiting (required by Nominatim)
//  3. calls the Nominatim API, retrying transient failures with jitter
//  4. extracts the normalized address fields
//  5. caches & returns the result
//
// On failure the zero ResolvedAddress and an error are returned; the error is
// advisory and must not abort the caller's own work.
func (g *GeocodingService) ReverseGeocode(ctx context.Context, lat, lon float64) (ResolvedAddress, error) {
	// Key rounded to avoid cache fragmentation
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)

	// First check: read lock
	g.cacheMutex.RLock()
	if cached, ok := g.cache[key]; ok {
		g.cacheMutex.RUnlock()
		return cached, nil
	}
	g.cacheMutex.RUnlock()

	result, err := g.fetchWithRetry(ctx, lat, lon)
	if err != nil {
		return ResolvedAddress{}, err
	}

	// Double-check cache before writing (another goroutine might have set it)
	g.cacheMutex.Lock()
	if cached, ok := g.cache[key]; ok {
		g.cacheMutex.Unlock()
		return cached, nil
	}
	g.cache[key] = result
	g.cacheMutex.Unlock()

	return result, nil
}

// fetchWithRetry makes up to three attempts against the shared public
// provider, with jittered delays between attempts.
func (g *GeocodingService) fetchWithRetry(ctx context.Context, lat, lon float64) (ResolvedAddress, error) {
	const maxAttempts = 3

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(500+rand.Intn(500)) * time.Millisecond * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ResolvedAddress{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		// Rate limit before making API call
		if err := g.rateLimiter.Wait(ctx); err != nil {
			return ResolvedAddress{}, err
		}

		result, err := g.fetchAddress(ctx, lat, lon)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, errPermanent) {
			return ResolvedAddress{}, err
		}
		lastErr = err
		log.Printf("[Geocode] attempt %d/%d failed for %.4f,%.4f: %v", attempt+1, maxAttempts, lat, lon, err)
	}

	return ResolvedAddress{}, lastErr
}

// Performs the actual HTTP request and parses the response.
func (g *GeocodingService) fetchAddress(ctx context.Context, lat, lon float64) (ResolvedAddress, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lon))
	params.Set("format", "json")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nominatimURL+"?"+params.Encode(), nil)
	if err != nil {
		return ResolvedAddress{}, err
	}

	// Identifying User-Agent is required by the Nominatim usage policy.
	req.Header.Set("User-Agent", "PatchPoint/1.0 (contact: contact@patchpoint.example)")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return ResolvedAddress{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Transport errors, 429 and 5xx are worth retrying; other 4xx are not.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return ResolvedAddress{}, fmt.Errorf("nominatim returned status %d", resp.StatusCode)
		}
		return ResolvedAddress{}, fmt.Errorf("%w: nominatim returned status %d", errPermanent, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ResolvedAddress{}, err
	}

	var data nominatimResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return ResolvedAddress{}, err
	}

	return ResolvedAddress{
		Road:        data.Address.Road,
		Suburb:      firstNonEmpty(data.Address.Suburb, data.Address.Neighbourhood, data.Address.Hamlet),
		City:        firstNonEmpty(data.Address.City, data.Address.Town, data.Address.Village),
		State:       data.Address.State,
		Postcode:    data.Address.Postcode,
		DisplayName: data.DisplayName,
	}, nil
}

// Returns the first non-empty string in the list.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
