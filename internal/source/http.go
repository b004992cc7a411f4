// internal/source/http.go - HTTP annotation loader
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/valpere/annotation_tiler/internal"
	"github.com/valpere/annotation_tiler/internal/config"
	"github.com/valpere/annotation_tiler/internal/logger"
	"github.com/valpere/annotation_tiler/pkg/annotation"
)

// HTTPLoader fetches a GeoJSON FeatureCollection over HTTP
type HTTPLoader struct {
	client     *http.Client
	url        string
	headers    map[string]string
	userAgent  string
	maxRetries int
	maxZoom    uint8

	// backoff returns the delay before the given retry attempt
	backoff func(attempt int) time.Duration
}

// NewHTTPLoader creates a loader for the configured source URL
func NewHTTPLoader(cfg *config.Config) *HTTPLoader {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Network.MaxIdleConns,
		IdleConnTimeout:     cfg.Network.IdleConnTimeout,
		DisableKeepAlives:   cfg.Network.DisableKeepAlive,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if cfg.Network.ProxyURL != "" {
		if proxyURL, err := url.Parse(cfg.Network.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	location := cfg.Source.URL
	if location == "" {
		location = cfg.Source.Path
	}

	return &HTTPLoader{
		client: &http.Client{
			Timeout:   cfg.Source.Timeout,
			Transport: transport,
		},
		url:        location,
		headers:    cfg.Source.Headers,
		userAgent:  cfg.Network.UserAgent,
		maxRetries: cfg.Source.MaxRetries,
		maxZoom:    cfg.MaxZoom(),
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
	}
}

// Load fetches the collection, retrying transient failures
func (l *HTTPLoader) Load(ctx context.Context) ([]*annotation.ShapeAnnotation, error) {
	data, err := l.fetchWithRetry(ctx)
	if err != nil {
		return nil, err
	}

	fc, err := decodeFeatureCollection(data)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeProcessing, fmt.Sprintf("invalid annotation document: %s", l.url), err)
	}

	shapes := FromFeatureCollection(fc, l.maxZoom)
	logger.L().Debug("loaded annotations", "url", l.url, "features", len(fc.Features), "annotations", len(shapes))

	return shapes, nil
}

// fetchWithRetry implements retry logic with quadratic backoff
func (l *HTTPLoader) fetchWithRetry(ctx context.Context) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, internal.NewError(internal.ErrorCodeTimeout, "annotation fetch cancelled", ctx.Err())
			case <-time.After(l.backoff(attempt)):
			}
		}

		data, status, err := l.fetch(ctx)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if !shouldRetry(status) {
			break
		}
		logger.L().Warn("annotation fetch failed", "url", l.url, "attempt", attempt+1, "error", err)
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", l.maxRetries+1, lastErr)
}

// fetch performs a single request and returns the body and status code
func (l *HTTPLoader) fetch(ctx context.Context) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, -1, internal.NewError(internal.ErrorCodeValidation, "failed to create HTTP request", err)
	}

	req.Header.Set("Accept", "application/geo+json, application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", l.userAgent)
	for key, value := range l.headers {
		req.Header.Set(key, value)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, 0, internal.NewError(internal.ErrorCodeNetwork, "HTTP request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, internal.NewError(internal.ErrorCodeNetwork, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, internal.NewError(internal.ErrorCodeNetwork, "failed to read response body", err)
	}

	// Accept-Encoding is set explicitly so the transport leaves the body
	// compressed; decodeFeatureCollection handles it
	return data, resp.StatusCode, nil
}

// shouldRetry retries network errors and server errors but not client errors
func shouldRetry(status int) bool {
	if status == 0 {
		return true
	}
	if status >= 400 && status < 500 {
		return status == http.StatusTooManyRequests
	}
	return status >= 500
}
