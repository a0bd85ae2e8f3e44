// Package remote downloads manifests addressed by http or https URLs.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/empaphy/composer-yaml/internal/branding"
	"github.com/empaphy/composer-yaml/internal/retry"
)

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("manifest not found")

// maxBodySize caps a downloaded manifest.
const maxBodySize = 8 << 20

// HTTPFetcher fetches manifests over HTTP. Server errors and transport
// failures are retried; any other non-200 answer is returned at once.
type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
	token      string
	policy     retry.Policy
	logger     *log.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.httpClient = c
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(f *HTTPFetcher) {
		f.token = token
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(p retry.Policy) Option {
	return func(f *HTTPFetcher) {
		f.policy = p
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(f *HTTPFetcher) {
		f.logger = l
	}
}

// New creates an HTTPFetcher with a 30 second timeout and three attempts.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  branding.CLIName(),
		policy:     retry.Exponential(3, 500*time.Millisecond),
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the body at url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	attempt := 0
	err := retry.Do(ctx, f.policy, func() error {
		attempt++
		f.logger.Debug("Fetching", "url", url, "attempt", attempt)
		b, err := f.fetchOnce(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("creating request: %w", err))
	}

	req.Header.Set("Accept", "application/json, application/yaml, text/yaml, */*")
	req.Header.Set("User-Agent", f.userAgent)
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, retry.Permanent(fmt.Errorf("%s: %w", url, ErrNotFound))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	default:
		return nil, retry.Permanent(fmt.Errorf("%s returned status %d", url, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, retry.Permanent(fmt.Errorf("%s: response exceeds %d bytes", url, maxBodySize))
	}
	return body, nil
}
