package idox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/logger"
	"github.com/custodia-labs/planwatch/internal/metrics"
)

// Endpoint names used for metrics labels.
const (
	endpointSummary  = "summary"
	endpointDetails  = "details"
	endpointResolve  = "reference_search"
	endpointAdvanced = "advanced_search"
	endpointWeekly   = "weekly_list"
)

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 4 << 20

// ClientConfig configures a portal client.
type ClientConfig struct {
	// BaseURL is the portal root, e.g. https://host/online-applications.
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// RequestsPerSecond limits individual HTTP requests. Zero means 2.
	RequestsPerSecond float64

	// FailureThreshold is the number of consecutive failures that opens
	// the breaker. Zero means 5.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open. Zero means 1 minute.
	OpenTimeout time.Duration
}

// ClientConfigFrom builds a client config from portal settings.
func ClientConfigFrom(s domain.PortalSettings) ClientConfig {
	return ClientConfig{BaseURL: s.BaseURL, UserAgent: s.UserAgent, Timeout: s.Timeout}
}

// Client issues rate-limited, breaker-protected requests to the portal.
// Safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[string]
}

// NewClient creates a portal client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = domain.DefaultAppSettings().Portal.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = domain.DefaultUserAgent
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}

	// The portal ties search results to a session cookie.
	jar, _ := cookiejar.New(nil)

	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout, Jar: jar},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
	c.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "idox-portal",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				return !IsServerError(err)
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerState(int(to))
			if to == gobreaker.StateOpen {
				logger.Warn("%s: circuit open after repeated failures", name)
			} else {
				logger.Info("%s: circuit %s", name, to)
			}
		},
	})
	return c
}

// URL returns an absolute portal URL for path and query.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Get fetches a page and returns its body.
func (c *Client) Get(ctx context.Context, endpoint, path string, query url.Values) (string, error) {
	return c.do(ctx, endpoint, http.MethodGet, c.URL(path, query), nil)
}

// PostForm submits a form and returns the response body.
func (c *Client) PostForm(ctx context.Context, endpoint, path string, form url.Values) (string, error) {
	return c.do(ctx, endpoint, http.MethodPost, c.URL(path, nil), form)
}

func (c *Client) do(ctx context.Context, endpoint, method, rawURL string, form url.Values) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := c.breaker.Execute(func() (string, error) {
		return c.roundTrip(ctx, endpoint, method, rawURL, form)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %w", domain.ErrTransport, domain.ErrPortalUnavailable)
	}
	return body, err
}

func (c *Client) roundTrip(ctx context.Context, endpoint, method, rawURL string, form url.Values) (string, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en-US;q=0.9,en;q=0.8")
	req.Header.Set("Referer", c.URL("search.do", url.Values{"action": {"advanced"}}))
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordPortalRequest(endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %s %s: %v", domain.ErrTransport, endpoint, rawURL, err)
	}
	defer resp.Body.Close()
	metrics.RecordPortalRequest(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %w", domain.ErrTransport, &HTTPError{StatusCode: resp.StatusCode, URL: rawURL})
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", domain.ErrTransport, endpoint, err)
	}
	logger.Debug("%s %s -> %d (%d bytes)", method, rawURL, resp.StatusCode, len(data))
	return string(data), nil
}
