// Package fetch performs the network retrieval for upstream feeds. It owns a
// dedicated HTTP client with explicit timeouts and transport limits, applies
// per-host rate limiting so a dozen per-line feeds cannot stampede the MTA
// gateway, and classifies failures into the error taxonomy the aggregator
// records in snapshot metadata.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"

	"github.com/garima440/NYC-transit-hub/internal/config"
	"github.com/garima440/NYC-transit-hub/internal/logging"
)

// ErrorKind classifies a fetch failure.
type ErrorKind string

const (
	ErrNetwork    ErrorKind = "network"
	ErrHTTPStatus ErrorKind = "http_status"
	ErrTimeout    ErrorKind = "timeout"
)

// Error is a classified fetch failure for one feed. It is recorded in
// snapshot metadata and never aborts the cycle for other feeds.
type Error struct {
	Kind ErrorKind
	Feed string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Feed, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is a successful fetch: the raw payload plus the wire format the
// caller declared, so the aggregator can route it to the right decoder.
type Result struct {
	Body      []byte
	Format    config.WireFormat
	FetchedAt time.Time
}

// maxBodySize bounds a single feed payload. The largest MTA feed (all-alerts)
// is well under this.
const maxBodySize = 25 * 1024 * 1024

// Fetcher retrieves feed payloads. Safe for concurrent use.
type Fetcher struct {
	client *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewFetcher builds a fetcher with the given per-request timeout and
// per-host rate limit. The transport is cloned from http.DefaultTransport to
// preserve its defaults (ProxyFromEnvironment, DialContext, HTTP/2).
func NewFetcher(timeout time.Duration, perSecond float64, burst int) *Fetcher {
	var transport *http.Transport
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = &http.Transport{}
	}
	transport.MaxIdleConns = 50
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second
	transport.TLSHandshakeTimeout = 10 * time.Second
	// Gzip is negotiated and decoded explicitly below so that payload size
	// limits apply to the decompressed bytes.
	transport.DisableCompression = true

	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}

	return &Fetcher{
		client: &http.Client{
			// Absolute safety net per request; the caller's context
			// timeout is usually stricter.
			Timeout:   timeout,
			Transport: transport,
		},
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Fetch retrieves one feed. The returned error, when non-nil, is always a
// *fetch.Error; the caller decides retry/skip policy.
func (f *Fetcher) Fetch(ctx context.Context, feed config.Feed) (*Result, error) {
	if err := f.waitForHost(ctx, feed); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, &Error{Kind: ErrNetwork, Feed: feed.Name, Err: err}
	}
	for key, value := range feed.Headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: classifyTransportError(err), Feed: feed.Name, Err: err}
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "feed_fetcher")),
		"http_response_body")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind: ErrHTTPStatus,
			Feed: feed.Name,
			Err:  fmt.Errorf("%s returned %s", feed.URL, resp.Status),
		}
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &Error{Kind: ErrNetwork, Feed: feed.Name, Err: fmt.Errorf("gzip: %w", err)}
		}
		defer logging.SafeCloseWithLogging(gz,
			slog.Default().With(slog.String("component", "feed_fetcher")),
			"gzip_reader")
		reader = gz
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodySize+1))
	if err != nil {
		return nil, &Error{Kind: classifyTransportError(err), Feed: feed.Name, Err: err}
	}
	if int64(len(body)) > maxBodySize {
		return nil, &Error{
			Kind: ErrNetwork,
			Feed: feed.Name,
			Err:  fmt.Errorf("response exceeds size limit of %d bytes", maxBodySize),
		}
	}

	return &Result{Body: body, Format: feed.Format, FetchedAt: time.Now()}, nil
}

// waitForHost blocks until the host's rate limiter admits one request.
func (f *Fetcher) waitForHost(ctx context.Context, feed config.Feed) error {
	u, err := url.Parse(feed.URL)
	if err != nil {
		return &Error{Kind: ErrNetwork, Feed: feed.Name, Err: err}
	}

	f.mu.Lock()
	limiter, ok := f.limiters[u.Host]
	if !ok {
		limiter = rate.NewLimiter(f.limit, f.burst)
		f.limiters[u.Host] = limiter
	}
	f.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return &Error{Kind: ErrTimeout, Feed: feed.Name, Err: err}
	}
	return nil
}

func classifyTransportError(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrNetwork
}
