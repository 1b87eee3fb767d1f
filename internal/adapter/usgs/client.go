// Package usgs queries the USGS Seismic Design Web Services.
package usgs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/seisreport/internal/domain"
	"github.com/couchcryptid/seisreport/internal/observability"
)

// DefaultBaseURL is the ASCE 7-16 design maps endpoint.
const DefaultBaseURL = "https://earthquake.usgs.gov/ws/designmaps/asce7-16.json"

// maxBodyBytes caps the response read; real payloads are a few tens of KB.
const maxBodyBytes = 8 << 20

// Client implements domain.DesignMapsFetcher.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a design maps client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchDesignValues requests design values for a site and returns the raw
// body. The payload shape is not checked here. Transport failures and
// non-200 answers wrap domain.ErrNetwork and are not retried.
func (c *Client) FetchDesignValues(ctx context.Context, coords domain.Coordinates, rc domain.RiskCategory, sc domain.SiteClass) (domain.SeismicResponse, error) {
	params := url.Values{
		"latitude":     {strconv.FormatFloat(coords.Lat, 'f', -1, 64)},
		"longitude":    {strconv.FormatFloat(coords.Lon, 'f', -1, 64)},
		"riskCategory": {string(rc)},
		"siteClass":    {string(sc)},
		"title":        {"none"},
	}

	start := domain.Now()
	body, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.DesignMapsAPIDuration.Observe(domain.Since(start).Seconds())
	if err != nil {
		c.metrics.DesignMapsRequests.WithLabelValues("error").Inc()
		c.logger.Error("design maps request failed",
			"lat", coords.Lat, "lon", coords.Lon,
			"risk_category", rc, "site_class", sc,
			"error", err,
		)
		return domain.SeismicResponse{}, err
	}

	c.metrics.DesignMapsRequests.WithLabelValues("success").Inc()
	c.logger.Info("design maps fetched", "bytes", len(body), "risk_category", rc, "site_class", sc)
	return domain.SeismicResponse{Body: body}, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: design maps request: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: design maps API error: status %d: %s", domain.ErrNetwork, resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read design maps response: %w", domain.ErrNetwork, err)
	}
	return body, nil
}
