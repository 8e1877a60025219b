package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrAdvisoryNotFound is the definitive "service answered, no record exists"
// result. It is never retried.
var ErrAdvisoryNotFound = errors.New("advisory not found")

// maxAdvisoryBody caps the response body read from the advisory service.
const maxAdvisoryBody = 1 << 20 // 1 MiB

// RateLimitedError reports that the advisory service asked us to back off.
// RetryAfter is zero when the service gave no hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("advisory service rate limited (retry after %s)", e.RetryAfter)
}

// TransientError wraps a failure that is worth retrying: timeouts, connection
// resets, and 5xx responses.
type TransientError struct {
	Err error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient advisory failure: %v", e.Err)
}

// Unwrap exposes the underlying cause.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Client fetches one advisory record from the external service.
// Implementations classify failures as definitive (ErrAdvisoryNotFound),
// rate limiting (*RateLimitedError), or transient (*TransientError).
type Client interface {
	Fetch(ctx context.Context, key string) (Record, error)
}

// HTTPClient queries a keyword-search advisory API over HTTP.
type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPClient creates an advisory client. timeout bounds each request;
// apiKey may be empty when the service allows anonymous queries.
func NewHTTPClient(endpoint, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// advisoryResponse is the wire shape of the advisory service answer.
type advisoryResponse struct {
	Advisories []struct {
		ID       string `json:"id"`
		Severity string `json:"severity"`
		Summary  string `json:"summary"`
	} `json:"advisories"`
}

// Fetch queries the service for the given key and maps the transport and
// status classes onto the gateway's retry taxonomy.
func (hc *HTTPClient) Fetch(ctx context.Context, key string) (Record, error) {
	reqURL := fmt.Sprintf("%s?keyword=%s", hc.endpoint, url.QueryEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Record{}, fmt.Errorf("build advisory request: %w", err)
	}

	if hc.apiKey != "" {
		req.Header.Set("X-Api-Key", hc.apiKey)
	}

	resp, doErr := hc.client.Do(req)
	if doErr != nil {
		// Context cancellation is not transient; everything else at the
		// transport layer (timeouts, resets, DNS) is.
		if ctx.Err() != nil {
			return Record{}, ctx.Err()
		}

		return Record{}, &TransientError{Err: doErr}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Record{}, ErrAdvisoryNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return Record{}, &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= http.StatusInternalServerError:
		return Record{}, &TransientError{Err: fmt.Errorf("advisory service returned %s", resp.Status)}
	case resp.StatusCode != http.StatusOK:
		return Record{}, fmt.Errorf("advisory service returned %s", resp.Status)
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxAdvisoryBody))
	if readErr != nil {
		return Record{}, &TransientError{Err: readErr}
	}

	var parsed advisoryResponse

	unmarshalErr := json.Unmarshal(body, &parsed)
	if unmarshalErr != nil {
		return Record{}, fmt.Errorf("decode advisory response: %w", unmarshalErr)
	}

	if len(parsed.Advisories) == 0 {
		return Record{}, ErrAdvisoryNotFound
	}

	top := parsed.Advisories[0]

	return Record{
		Key:         key,
		Severity:    top.Severity,
		Description: top.Summary,
		Source:      SourceLive,
	}, nil
}

// parseRetryAfter interprets a Retry-After header value in seconds.
// Malformed or absent values yield zero.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}

	return time.Duration(secs) * time.Second
}
