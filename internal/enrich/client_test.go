package enrich_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens-dev/repolens/internal/enrich"
)

// clientTimeout bounds each test request.
const clientTimeout = 2 * time.Second

const advisoryBody = `{"advisories":[{"id":"CVE-2020-0001","severity":"critical","summary":"arbitrary code execution"}]}`

func TestHTTPClient_Fetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pickle", r.URL.Query().Get("keyword"))
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(advisoryBody))
	}))
	defer srv.Close()

	client := enrich.NewHTTPClient(srv.URL, "test-key", clientTimeout)

	rec, err := client.Fetch(context.Background(), "pickle")
	require.NoError(t, err)

	assert.Equal(t, "pickle", rec.Key)
	assert.Equal(t, "critical", rec.Severity)
	assert.Equal(t, "arbitrary code execution", rec.Description)
	assert.Equal(t, enrich.SourceLive, rec.Source)
}

func TestHTTPClient_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := enrich.NewHTTPClient(srv.URL, "", clientTimeout)

	_, err := client.Fetch(context.Background(), "ghost")

	require.ErrorIs(t, err, enrich.ErrAdvisoryNotFound)
}

func TestHTTPClient_EmptyAdvisoriesIsNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"advisories":[]}`))
	}))
	defer srv.Close()

	client := enrich.NewHTTPClient(srv.URL, "", clientTimeout)

	_, err := client.Fetch(context.Background(), "clean-package")

	require.ErrorIs(t, err, enrich.ErrAdvisoryNotFound)
}

func TestHTTPClient_RateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := enrich.NewHTTPClient(srv.URL, "", clientTimeout)

	_, err := client.Fetch(context.Background(), "pickle")

	var rateLimited *enrich.RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, 7*time.Second, rateLimited.RetryAfter)
}

func TestHTTPClient_ServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := enrich.NewHTTPClient(srv.URL, "", clientTimeout)

	_, err := client.Fetch(context.Background(), "pickle")

	var transient *enrich.TransientError
	require.ErrorAs(t, err, &transient)
}

func TestHTTPClient_ConnectionRefusedIsTransient(t *testing.T) {
	t.Parallel()

	// Reserve a port, then close it so connections are refused.
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	client := enrich.NewHTTPClient(endpoint, "", clientTimeout)

	_, err := client.Fetch(context.Background(), "pickle")

	var transient *enrich.TransientError
	require.ErrorAs(t, err, &transient)
}

func TestHTTPClient_CanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(advisoryBody))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := enrich.NewHTTPClient(srv.URL, "", clientTimeout)

	_, err := client.Fetch(ctx, "pickle")

	require.ErrorIs(t, err, context.Canceled)
}
