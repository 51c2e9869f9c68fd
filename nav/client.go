package nav

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "vagvisare/1.0"
	defaultTimeout   = 10 * time.Second
)

// ErrNoResults is returned when no geocoding results are found
type ErrNoResults struct {
	Query string
}

func (e *ErrNoResults) Error() string {
	return fmt.Sprintf("no results found for query: %s", e.Query)
}

// ErrNoRoute is returned when the router or trip planner finds nothing
var ErrNoRoute = errors.New("no route found")

// ErrMissingKey is returned when transit is requested without an API key
var ErrMissingKey = errors.New("resrobot api key is not configured")

// upstreamError is a non-200 answer from one of the services
type upstreamError struct {
	Service string
	Status  int
	Body    string
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Body)
}

// Client talks to the geocoder, the router and the trip planner
type Client struct {
	cfg     NavConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a Client. A nil httpClient gets one with the
// configured timeout.
func NewClient(cfg NavConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		timeout := defaultTimeout
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	// Nominatim's usage policy allows one request per second
	limit := rate.Limit(1)
	if cfg.GeocodeRateLimit > 0 {
		limit = rate.Limit(cfg.GeocodeRateLimit)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

var _ Service = (*Client)(nil)

// Route plans a route for req, dispatching on the transport mode
func (c *Client) Route(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
	if req.Mode == "" {
		req.Mode = DefaultMode
	}
	if !req.Mode.IsValid() {
		return nil, fmt.Errorf("invalid mode: %s", req.Mode)
	}
	if req.Mode.IsTransit() {
		return c.routeTransit(ctx, req)
	}
	return c.routeOSRM(ctx, req)
}

// withQuery merges params into base, which may already carry a query string
func withQuery(base string, params url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var secretParams = regexp.MustCompile(`(accessId|key)=[^&]*`)

// redact hides API keys before a URL is logged
func redact(rawURL string) string {
	return secretParams.ReplaceAllString(rawURL, "$1=REDACTED")
}

// getJSON performs a GET and decodes a 200 response into out
func (c *Client) getJSON(ctx context.Context, service, apiURL string, out any) error {
	c.logger.Debug("upstream request",
		zap.String("service", service),
		zap.String("url", redact(apiURL)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("error creating %s request: %w", service, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error making request to %s: %w", service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading %s response body: %w", service, err)
	}

	if resp.StatusCode != http.StatusOK {
		return &upstreamError{Service: service, Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error decoding %s response: %w", service, err)
	}
	return nil
}
