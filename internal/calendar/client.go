package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/meetfinder/internal/directory"
	"github.com/teemow/meetfinder/internal/instrumentation"
)

// PrimaryCalendar is the signed-in user's own calendar.
const PrimaryCalendar = "primary"

// Client wraps the Google Calendar service for one signed-in user.
type Client struct {
	svc        *calendar.Service
	calendarID string
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	endpoint   string
	transport  http.RoundTripper
	calendarID string
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// WithEndpoint overrides the Calendar API base URL.
func WithEndpoint(u string) Option {
	return func(o *clientOptions) { o.endpoint = u }
}

// WithTransport sets the base transport under authentication.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// WithCalendarID books into a calendar other than the primary one.
func WithCalendarID(id string) Option {
	return func(o *clientOptions) { o.calendarID = id }
}

// WithMetrics records backend operation metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// NewClient creates a Calendar client authenticated by ts.
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts ...Option) (*Client, error) {
	o := clientOptions{calendarID: PrimaryCalendar}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	base := o.transport
	if base == nil {
		// Force HTTP/1.1; the Calendar API intermittently resets HTTP/2 streams.
		base = &http.Transport{ForceAttemptHTTP2: false}
	}
	hc := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   otelhttp.NewTransport(base),
		},
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(hc)}
	if o.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(o.endpoint))
	}
	svc, err := calendar.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:        svc,
		calendarID: o.calendarID,
		metrics:    o.metrics,
		logger:     o.logger,
	}, nil
}

// Name identifies the backend in logs and metrics.
func (c *Client) Name() string {
	return instrumentation.BackendGoogle
}

// Me returns the owner of the configured calendar.
func (c *Client) Me(ctx context.Context) (*directory.Person, error) {
	var entry *calendar.CalendarListEntry
	err := c.observe(ctx, instrumentation.OperationMe, func(ctx context.Context) error {
		var err error
		entry, err = c.svc.CalendarList.Get(c.calendarID).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to get calendar: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &directory.Person{DisplayName: entry.Summary, Email: entry.Id}, nil
}

func (c *Client) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := instrumentation.StartBackendSpan(ctx, instrumentation.BackendGoogle, operation)
	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		c.logger.Debug("calendar operation failed", "operation", operation, "error", err)
	}
	c.metrics.RecordBackendOperation(ctx, instrumentation.BackendGoogle, operation, status, time.Since(start))
	instrumentation.EndSpan(span, err)
	return err
}
