package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/teemow/meetfinder/internal/instrumentation"
)

const (
	// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"

	defaultTimeout = 30 * time.Second

	// Graph renders dateTime values with up to seven fractional digits and no zone.
	dateTimeLayout = "2006-01-02T15:04:05.9999999"

	utcPreference = `outlook.timezone="UTC"`
)

// APIError is a non-2xx Graph response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("Graph API Error (%d): %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("Graph API Error (%d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a Graph 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to Microsoft Graph on behalf of one signed-in user.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
	base    *http.Client
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// WithBaseURL points the client at another Graph-compatible endpoint.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client whose transport carries requests.
// Authentication is still added from the token source.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.base = c }
}

// WithMetrics records backend operation metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// NewClient creates a Graph client authenticated by ts.
func NewClient(ts oauth2.TokenSource, opts ...Option) *Client {
	o := clientOptions{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	base := http.DefaultTransport
	timeout := defaultTimeout
	if o.base != nil {
		if o.base.Transport != nil {
			base = o.base.Transport
		}
		if o.base.Timeout > 0 {
			timeout = o.base.Timeout
		}
	}

	return &Client{
		baseURL: o.baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: ts,
				Base:   otelhttp.NewTransport(base),
			},
		},
		metrics: o.metrics,
		logger:  o.logger,
	}
}

// Name identifies the backend in logs and metrics.
func (c *Client) Name() string {
	return instrumentation.BackendGraph
}

// Do sends a JSON request and decodes a JSON response into out. out may be
// nil. Non-2xx responses are returned as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", utcPreference)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

// observe wraps one logical Graph operation in a client span and records
// its outcome.
func (c *Client) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := instrumentation.StartBackendSpan(ctx, instrumentation.BackendGraph, operation)
	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		c.logger.Debug("graph operation failed", "operation", operation, "error", err)
	}
	c.metrics.RecordBackendOperation(ctx, instrumentation.BackendGraph, operation, status, time.Since(start))
	instrumentation.EndSpan(span, err)
	return err
}

// dateTimeTimeZone is Graph's zone-qualified timestamp.
type dateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

func utcDateTime(t time.Time) dateTimeTimeZone {
	return dateTimeTimeZone{DateTime: t.UTC().Format("2006-01-02T15:04:05"), TimeZone: "UTC"}
}

// parse interprets the value in its declared zone. Unknown zones fall back
// to UTC, which is what the Prefer header asks Graph to use.
func (d dateTimeTimeZone) parse() (time.Time, error) {
	loc := time.UTC
	if d.TimeZone != "" && !strings.EqualFold(d.TimeZone, "UTC") {
		if l, err := time.LoadLocation(d.TimeZone); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation(dateTimeLayout, d.DateTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid Graph dateTime %q: %w", d.DateTime, err)
	}
	return t, nil
}

type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type attendee struct {
	EmailAddress emailAddress `json:"emailAddress"`
	Type         string       `json:"type"`
}
