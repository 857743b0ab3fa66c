package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	maxAttempts    = 3
	baseBackoff    = 500 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// StatusError is returned when the upstream answered with a non-2xx status.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.Code)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client is a thin JSON HTTP client with a per-call timeout and a small
// capped-backoff retry for transient failures (network errors, 429, 5xx).
type Client struct {
	hc *http.Client
}

// New returns a Client with the default 10-second timeout.
func New() *Client {
	return &Client{hc: &http.Client{Timeout: defaultTimeout}}
}

// NewWithTimeout returns a Client with a custom timeout.
func NewWithTimeout(timeout time.Duration) *Client {
	return &Client{hc: &http.Client{Timeout: timeout}}
}

// GetJSON performs a GET request and decodes the JSON response into dst.
// Transient failures are retried up to maxAttempts with capped backoff;
// non-transient statuses (4xx other than 429) fail immediately.
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, dst any) error {
	return c.doJSON(ctx, http.MethodGet, rawURL, header, nil, dst)
}

// PostFormJSON performs a form-encoded POST and decodes the JSON response.
func (c *Client) PostFormJSON(ctx context.Context, rawURL string, form url.Values, dst any) error {
	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.doJSON(ctx, http.MethodPost, rawURL, header, strings.NewReader(form.Encode()), dst)
}

func (c *Client) doJSON(ctx context.Context, method, rawURL string, header http.Header, body *strings.Reader, dst any) error {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff << (attempt - 1)
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		var reqBody *strings.Reader
		if body != nil {
			b := *body
			reqBody = &b
		}

		transient, err := c.once(ctx, method, rawURL, header, reqBody, dst)
		if err == nil {
			return nil
		}
		lastErr = err

		if !transient {
			return err
		}
	}

	return lastErr
}

// once runs a single attempt and reports whether a failure is worth
// retrying.
func (c *Client) once(ctx context.Context, method, rawURL string, header http.Header, body *strings.Reader, dst any) (transient bool, err error) {
	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, rawURL, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, rawURL, nil)
	}
	if err != nil {
		return false, fmt.Errorf("creating request for %s: %w", rawURL, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false, err
		}
		return true, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode, URL: rawURL}
		return se.Code == http.StatusTooManyRequests || se.Code >= 500, se
	}

	if dst == nil {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return false, fmt.Errorf("decoding response from %s: %w", rawURL, err)
	}
	return false, nil
}
