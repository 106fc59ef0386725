package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tinytelemetry/olam/internal/model"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 * 1024

// Client implements model.AnalyticsAPI over HTTP against the OLAM backend.
// It is constructed once per process and shared by every store.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	timeout     time.Duration
	chatTimeout time.Duration
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithChatTimeout sets the timeout of the AI chat passthrough.
func WithChatTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.chatTimeout = d
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for baseURL (for example http://127.0.0.1:5000/api).
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = model.DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("apiclient: base url %q must be http or https", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{
		baseURL:     u,
		http:        &http.Client{},
		timeout:     model.DefaultTimeout,
		chatTimeout: model.DefaultChatTimeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Timeout returns the default per-request timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// CallOption adjusts a single request.
type CallOption func(*callConfig)

type callConfig struct {
	timeout time.Duration
}

// WithCallTimeout overrides the default timeout for one request.
func WithCallTimeout(d time.Duration) CallOption {
	return func(cc *callConfig) {
		if d > 0 {
			cc.timeout = d
		}
	}
}

// Get issues GET path?params and decodes the JSON body into dest.
func (c *Client) Get(ctx context.Context, path string, params url.Values, dest any, opts ...CallOption) error {
	return c.call(ctx, http.MethodGet, path, params, nil, dest, opts)
}

// Post issues POST path with body encoded as JSON and decodes the response into dest.
func (c *Client) Post(ctx context.Context, path string, body any, dest any, opts ...CallOption) error {
	return c.call(ctx, http.MethodPost, path, nil, body, dest, opts)
}

func (c *Client) endpoint(path string, params url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimPrefix(path, "/")
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// call performs one request and unmarshals the result into dest.
func (c *Client) call(ctx context.Context, method, path string, params url.Values, body any, dest any, opts []CallOption) error {
	cc := callConfig{timeout: c.timeout}
	for _, opt := range opts {
		opt(&cc)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeoutCause(ctx, cc.timeout, errClientTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, params), reader)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(ctx, method, path, cc.timeout, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Request failed with status code %d", resp.StatusCode),
			Detail:     serverDetail(detail),
		}
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &Error{
			Method:  method,
			Path:    path,
			Message: "Invalid response body",
			Err:     err,
		}
	}
	return nil
}

// errClientTimeout marks the client's own per-request deadline, as opposed to
// one set by the caller's context.
var errClientTimeout = errors.New("apiclient: request timeout")

func (c *Client) transportError(ctx context.Context, method, path string, timeout time.Duration, err error) error {
	e := &Error{Method: method, Path: path, Err: err}
	switch {
	case errors.Is(context.Cause(ctx), errClientTimeout):
		e.Message = fmt.Sprintf("timeout of %dms exceeded", timeout.Milliseconds())
		e.Timeout = true
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		e.Message = "deadline exceeded"
		e.Timeout = true
	case errors.Is(err, context.Canceled):
		e.Message = "canceled"
	default:
		e.Message = "Network Error"
	}
	return e
}

// serverDetail extracts {"error": "..."} or {"message": "..."} from a failed body.
func serverDetail(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}
