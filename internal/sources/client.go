package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/retry"
)

const (
	// BrowserUserAgent is sent to government sites that reject bare clients.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	defaultUserAgent = "muniwatch/1.0 (+https://github.com/jonesrussell/north-cloud)"
	maxBodyBytes     = 10 << 20
	errorBodyBytes   = 512
	idleConnsPerHost = 4
)

// HTTPError is a non-success response from a source.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP error (%s): %s", e.Status, e.Body)
	}
	return "HTTP error: " + e.Status
}

// Temporary reports whether the status is worth retrying.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// ParseHTTPError returns an *HTTPError for non-2xx responses and nil otherwise.
func ParseHTTPError(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyBytes))
	return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
}

// IsRetryable treats timeouts, network failures and 429/5xx responses as transient.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

// NewHTTPClient returns the client shared by every adapter. The timeout
// bounds each request so a stalled source counts as a failed call.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = idleConnsPerHost
	return &http.Client{Timeout: timeout, Transport: transport}
}

// ClientOptions configures a per-source Client.
type ClientOptions struct {
	HTTP *http.Client
	// Delay is the minimum spacing between requests to this source. Zero disables limiting.
	Delay         time.Duration
	RetryAttempts int
	UserAgent     string
}

// Client is an HTTP client bound to one source: every request, including
// retries, first waits on the source's rate limiter.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	retry     retry.Config
	userAgent string
}

// Response is a fully read response body.
type Response struct {
	StatusCode int
	Body       []byte
}

func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	attempts := opts.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Client{
		http:      httpClient,
		limiter:   rate.NewLimiter(limit, 1),
		retry:     retry.Config{MaxAttempts: attempts, IsRetryable: IsRetryable},
		userAgent: ua,
	}
}

// Get fetches rawURL. Any status is returned to the caller except 429 and
// 5xx, which are retried and surface as *HTTPError once attempts run out.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	var out *Response
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		resp, err := c.do(ctx, rawURL)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, rawURL string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		// *url.Error repeats the full URL, API key included
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("get %s: %w", redact(req), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, ParseHTTPError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// GetJSON fetches rawURL and decodes a 2xx JSON body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			Body:       Truncate(string(resp.Body), errorBodyBytes),
		}
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// redact drops the query string, which carries API keys for some sources.
func redact(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}
