package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garima440/NYC-transit-hub/internal/config"
)

func testFeed(url string) config.Feed {
	return config.Feed{
		Name:     "test-feed",
		URL:      url,
		Format:   config.FormatGTFSRT,
		Category: "positions",
	}
}

func TestFetchSuccess(t *testing.T) {
	payload := []byte{0x0a, 0x05, 0x0a, 0x03, 0x32, 0x2e, 0x30}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-protobuf")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, 0, 0)
	result, err := fetcher.Fetch(context.Background(), testFeed(server.URL))
	require.NoError(t, err)
	assert.Equal(t, payload, result.Body)
	assert.Equal(t, config.FormatGTFSRT, result.Format)
	assert.WithinDuration(t, time.Now(), result.FetchedAt, 5*time.Second)
}

func TestFetchSendsConfiguredHeaders(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	feed := testFeed(server.URL)
	feed.Headers = map[string]string{"x-api-key": "secret"}

	fetcher := NewFetcher(5*time.Second, 0, 0)
	_, err := fetcher.Fetch(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)
}

func TestFetchDecodesGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(`[{"id":"alert-1"}]`))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip", r.Header.Get("Accept-Encoding"))
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, 0, 0)
	result, err := fetcher.Fetch(context.Background(), testFeed(server.URL))
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":"alert-1"}]`), result.Body)
}

func TestFetchClassifiesHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, 0, 0)
	_, err := fetcher.Fetch(context.Background(), testFeed(server.URL))
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, ErrHTTPStatus, fetchErr.Kind)
	assert.Equal(t, "test-feed", fetchErr.Feed)
}

func TestFetchClassifiesTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := fetcher.Fetch(ctx, testFeed(server.URL))
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, ErrTimeout, fetchErr.Kind)
}

func TestFetchClassifiesNetworkError(t *testing.T) {
	// Closed server: connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	fetcher := NewFetcher(5*time.Second, 0, 0)
	_, err := fetcher.Fetch(context.Background(), testFeed(url))
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, ErrNetwork, fetchErr.Kind)
}

func TestFetchRateLimitsPerHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	// 1 request per second with burst 1; the second fetch must wait.
	fetcher := NewFetcher(5*time.Second, 1, 1)

	start := time.Now()
	_, err := fetcher.Fetch(context.Background(), testFeed(server.URL))
	require.NoError(t, err)
	_, err = fetcher.Fetch(context.Background(), testFeed(server.URL))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}
