package sheet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FetchConfig configures workbook downloads. Zero values get defaults:
// Timeout 30s, MaxRetries 3, InitialBackoff 200ms, MaxBackoff 5s,
// MaxBytes 64 MiB.
type FetchConfig struct {
	// Timeout is the per-request timeout at the http.Client level.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the initial
	// request. Negative disables retries.
	MaxRetries int

	// InitialBackoff is the wait before the first retry; each retry
	// doubles it up to MaxBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration

	// MaxBytes bounds the downloaded body. Larger responses fail
	// rather than buffer without limit.
	MaxBytes int64

	// Transport overrides the default http.Transport, mainly for tests.
	Transport http.RoundTripper
}

// Fetcher downloads workbooks over HTTP with retry and backoff.
type Fetcher struct {
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxBytes       int64
}

// NewFetcher constructs a Fetcher from cfg, applying defaults for zero
// values.
func NewFetcher(cfg FetchConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	} else if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 << 20
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		maxBytes:       cfg.MaxBytes,
	}
}

// Fetch GETs url and returns the body. Transport errors, 5xx, and 429
// are retried with exponential backoff; any other non-200 status is
// final.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("fetch: url must not be empty")
	}

	attempts := f.maxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, retryable, err := f.once(ctx, url)
		if err == nil {
			return data, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err

		if attempt+1 >= attempts {
			break
		}
		if err := waitBackoff(ctx, backoffDuration(f.initialBackoff, attempt, f.maxBackoff)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (f *Fetcher) once(ctx context.Context, url string) (data []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("fetch: build request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if isRetryableStatus(resp.StatusCode) {
		return nil, true, fmt.Errorf("fetch %s: retryable status %d", url, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("fetch %s: read body: %w", url, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, false, fmt.Errorf("fetch %s: response exceeds %d bytes", url, f.maxBytes)
	}
	return body, false, nil
}

// FetchWorkbook downloads an XLSX workbook and opens it.
func (f *Fetcher) FetchWorkbook(ctx context.Context, url string) (*Workbook, error) {
	data, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewWorkbook(bytes.NewReader(data))
}

// isRetryableStatus treats 5xx and 429 as transient; everything else is
// final.
func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// backoffDuration returns the exponential backoff for the given 0-based
// retry index, clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	d := initial << attempt
	if d > max || d <= 0 {
		return max
	}
	return d
}

func waitBackoff(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
