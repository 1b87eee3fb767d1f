package mapquest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/seisreport/internal/domain"
	"github.com/couchcryptid/seisreport/internal/observability"
)

// DefaultBaseURL is the MapQuest geocoding address endpoint.
const DefaultBaseURL = "https://www.mapquestapi.com/geocoding/v1/address"

// Client implements domain.Geocoder using the MapQuest Geocoding API.
type Client struct {
	key        string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a MapQuest geocoding client.
func NewClient(key, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		key: key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Resolve converts a free-text address to the coordinates of the first
// location of the first result. Every failure wraps domain.ErrGeocode.
func (c *Client) Resolve(ctx context.Context, address string) (domain.Coordinates, error) {
	if strings.TrimSpace(address) == "" {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		return domain.Coordinates{}, fmt.Errorf("%w: empty address", domain.ErrGeocode)
	}

	params := url.Values{
		"key":      {c.key},
		"location": {address},
	}

	start := domain.Now()
	coords, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.GeocodeAPIDuration.Observe(domain.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
		c.logger.Debug("geocode resolved", "address", address, "lat", coords.Lat, "lon", coords.Lon)
	case isEmpty(err):
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		c.logger.Debug("geocode found no location", "address", address)
	default:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		c.logger.Warn("geocode request failed", "address", address, "error", err)
	}
	return coords, err
}

// errNoResults is wrapped alongside domain.ErrGeocode when MapQuest answers
// without a location.
type errNoResults struct{ what string }

func (e errNoResults) Error() string { return "no " + e.what + " in response" }

func isEmpty(err error) bool {
	var target errNoResults
	return errors.As(err, &target)
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: create request: %w", domain.ErrGeocode, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL carries the API key; keep it out of error messages.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return domain.Coordinates{}, fmt.Errorf("%w: geocode request: %w", domain.ErrGeocode, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Coordinates{}, fmt.Errorf("%w: mapquest API error: status %d: %s", domain.ErrGeocode, resp.StatusCode, body)
	}

	var mqResp response
	if err := json.NewDecoder(resp.Body).Decode(&mqResp); err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: decode response: %w", domain.ErrGeocode, err)
	}

	if len(mqResp.Results) == 0 {
		return domain.Coordinates{}, fmt.Errorf("%w: %w", domain.ErrGeocode, errNoResults{what: "results"})
	}
	first := mqResp.Results[0]
	if len(first.Locations) == 0 {
		return domain.Coordinates{}, fmt.Errorf("%w: %w", domain.ErrGeocode, errNoResults{what: "locations"})
	}

	loc := first.Locations[0]
	c.logger.Debug("geocode candidates",
		"provided", first.ProvidedLocation.Location,
		"results", len(mqResp.Results),
		"locations", len(first.Locations),
		"quality", loc.GeocodeQuality,
	)
	if loc.LatLng == nil {
		return domain.Coordinates{}, fmt.Errorf("%w: first location has no latLng", domain.ErrGeocode)
	}
	return domain.Coordinates{Lat: loc.LatLng.Lat, Lon: loc.LatLng.Lng}, nil
}

// MapQuest API response types.

type response struct {
	Results []result `json:"results"`
}

type result struct {
	ProvidedLocation providedLocation `json:"providedLocation"`
	Locations        []location       `json:"locations"`
}

type providedLocation struct {
	Location string `json:"location"`
}

type location struct {
	LatLng         *latLng `json:"latLng"`
	GeocodeQuality string  `json:"geocodeQuality,omitempty"` // e.g. POINT, ADDRESS, CITY
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
