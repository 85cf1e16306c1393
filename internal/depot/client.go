package depot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Retry and backoff constants. Retry is a transport-level policy for
// transient statuses; callers never see a retried request as anything but a
// single call.
const (
	maxRetries     = 4
	baseBackoff    = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
	userAgent      = "depot-go/0.1"
)

// TokenSource provides access tokens for the repository API. Defined at the
// consumer per Go convention "accept interfaces, return structs". The token
// source is captured at construction and never swapped afterwards, so
// concurrent requests read it without synchronization.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource backed by a fixed string, for tokens read
// from config or environment. An empty token means anonymous access and no
// Authorization header is sent.
type StaticToken string

func (t StaticToken) Token() (string, error) {
	return string(t), nil
}

// Client is an HTTP client for the Depot repository API. It handles request
// construction, authentication, retry with exponential backoff for transient
// statuses, and error classification.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger

	// sleepFunc waits between retries. Defaults to sleepCtx.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a repository API client. baseURL is the server root,
// e.g. "https://depot.example.com". A trailing slash is stripped.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if token == nil {
		token = StaticToken("")
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		sleepFunc:  sleepCtx,
	}
}

// do executes a body-less API request with retry for network errors and
// transient HTTP statuses. All metadata and relocation endpoints carry their
// parameters in the path and query string; streaming uploads go through
// doStream. On success the caller owns the response body.
func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.send(ctx, method, c.baseURL+path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("depot: request canceled: %w", ctx.Err())
			}

			if attempt < maxRetries {
				if waitErr := c.waitRetry(ctx, method, path, attempt, 0, nil); waitErr != nil {
					return nil, waitErr
				}

				continue
			}

			return nil, fmt.Errorf("depot: %s %s failed after %d retries: %w", method, path, maxRetries, err)
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			c.logger.Debug("request succeeded",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		apiErr := drainError(resp)

		if isRetryable(resp.StatusCode) && attempt < maxRetries {
			if waitErr := c.waitRetry(ctx, method, path, attempt, resp.StatusCode, resp); waitErr != nil {
				return nil, waitErr
			}

			continue
		}

		if attempt > 0 {
			c.logger.Error("request failed after retries",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempts", attempt+1),
			)
		}

		return nil, apiErr
	}
}

// doStream sends a request whose body cannot be replayed (an upload stream).
// No retry: re-sending a partially consumed reader is not safe. On success
// the caller owns the response body.
func (c *Client) doStream(
	ctx context.Context, method, path, contentType string, body io.Reader, size int64,
) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, c.baseURL+path, body, contentType)
	if err != nil {
		return nil, err
	}

	if size >= 0 {
		req.ContentLength = size
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("stream request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("depot: %s %s: %w", method, path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, drainError(resp)
	}

	return resp, nil
}

// send performs a single body-less request attempt.
func (c *Client) send(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, url, nil, "")
	if err != nil {
		return nil, err
	}

	return c.httpClient.Do(req)
}

// newRequest builds an authenticated request.
func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("depot: creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("depot: obtaining token: %w", err)
	}

	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	req.Header.Set("User-Agent", userAgent)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

// waitRetry logs the retry decision and sleeps for the backoff interval.
// resp may be nil (network error). status 0 means network error.
func (c *Client) waitRetry(ctx context.Context, method, path string, attempt, status int, resp *http.Response) error {
	backoff := c.calcBackoff(attempt)
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				backoff = time.Duration(seconds) * time.Second
			}
		}
	}

	c.logger.Warn("retrying request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Int("attempt", attempt+1),
		slog.Duration("backoff", backoff),
	)

	if err := c.sleepFunc(ctx, backoff); err != nil {
		return fmt.Errorf("depot: request canceled: %w", err)
	}

	return nil
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// drainError reads and closes an error response body and returns the
// classified APIError.
func drainError(resp *http.Response) *APIError {
	errBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-Id"),
		Message:    strings.TrimSpace(string(errBody)),
		Err:        classifyStatus(resp.StatusCode),
	}
}

// sleepCtx waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
