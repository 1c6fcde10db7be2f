package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod       = "method"
	attrPath         = "path"
	attrStatus       = "status"
	attrBackend      = "backend"
	attrOperation    = "operation"
	attrTool         = "tool"
	attrAccount      = "account"
	attrWorkingHours = "working_hours"
	attrTransition   = "transition"
)

var (
	latencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}
	httpBuckets    = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}
)

// Metrics records meetfinder's OpenTelemetry instruments. The zero value is
// a valid no-op recorder.
type Metrics struct {
	httpRequests        metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	backendOperations metric.Int64Counter
	backendDuration   metric.Float64Histogram

	toolInvocations metric.Int64Counter
	toolDuration    metric.Float64Histogram

	availabilityComputations metric.Int64Counter
	availabilityDuration     metric.Float64Histogram
	unresolvedParticipants   metric.Int64Counter

	selectionTransitions metric.Int64Counter
	selectionSessions    metric.Int64UpDownCounter

	detailedLabels bool
}

// NewMetrics registers every instrument on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.httpRequests, "http_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.backendOperations, "backend_api_operations_total", "Total number of calendar backend API calls", "{operation}"},
		{&m.toolInvocations, "mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}"},
		{&m.availabilityComputations, "availability_computations_total", "Total number of common availability computations", "{computation}"},
		{&m.unresolvedParticipants, "availability_unresolved_participants_total", "Participants dropped because the backend could not resolve them", "{participant}"},
		{&m.selectionTransitions, "selection_transitions_total", "Slot selector state transitions", "{transition}"},
	}
	for _, c := range counters {
		inst, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = inst
	}

	histograms := []struct {
		dst     *metric.Float64Histogram
		name    string
		desc    string
		buckets []float64
	}{
		{&m.httpRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds", httpBuckets},
		{&m.backendDuration, "backend_api_duration_seconds", "Calendar backend API call duration in seconds", latencyBuckets},
		{&m.toolDuration, "mcp_tool_duration_seconds", "MCP tool execution duration in seconds", latencyBuckets},
		{&m.availabilityDuration, "availability_computation_duration_seconds", "Common availability computation duration in seconds", latencyBuckets},
	}
	for _, h := range histograms {
		inst, err := meter.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(h.buckets...))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s histogram: %w", h.name, err)
		}
		*h.dst = inst
	}

	var err error
	m.selectionSessions, err = meter.Int64UpDownCounter("selection_sessions_active",
		metric.WithDescription("Number of live slot selection sessions"),
		metric.WithUnit("{session}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create selection_sessions_active gauge: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequests.Add(ctx, 1, opt)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), opt)
}

// RecordBackendOperation records one call to Graph or Google Calendar.
func (m *Metrics) RecordBackendOperation(ctx context.Context, backend, operation, status string, duration time.Duration) {
	if m == nil || m.backendOperations == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String(attrBackend, backend),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.backendOperations.Add(ctx, 1, opt)
	m.backendDuration.Record(ctx, duration.Seconds(), opt)
}

// RecordToolInvocation records one MCP tool call. The account label is only
// attached when detailed labels are enabled.
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool, status, account string, duration time.Duration) {
	if m == nil || m.toolInvocations == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}
	opt := metric.WithAttributes(attrs...)
	m.toolInvocations.Add(ctx, 1, opt)
	m.toolDuration.Record(ctx, duration.Seconds(), opt)
}

// RecordAvailabilityComputation records one aggregator run and how many
// participants it had to drop.
func (m *Metrics) RecordAvailabilityComputation(ctx context.Context, status string, workingHoursOnly bool, unresolved int, duration time.Duration) {
	if m == nil || m.availabilityComputations == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String(attrStatus, status),
		attribute.Bool(attrWorkingHours, workingHoursOnly),
	)
	m.availabilityComputations.Add(ctx, 1, opt)
	m.availabilityDuration.Record(ctx, duration.Seconds(), opt)
	if unresolved > 0 {
		m.unresolvedParticipants.Add(ctx, int64(unresolved))
	}
}

// RecordSelectionTransition records a selector operation such as
// "choose_start" with its outcome.
func (m *Metrics) RecordSelectionTransition(ctx context.Context, transition, status string) {
	if m == nil || m.selectionTransitions == nil {
		return
	}
	m.selectionTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrTransition, transition),
		attribute.String(attrStatus, status),
	))
}

// SelectionSessionOpened increments the live selection session gauge.
func (m *Metrics) SelectionSessionOpened(ctx context.Context) {
	if m == nil || m.selectionSessions == nil {
		return
	}
	m.selectionSessions.Add(ctx, 1)
}

// SelectionSessionClosed decrements the live selection session gauge.
func (m *Metrics) SelectionSessionClosed(ctx context.Context) {
	if m == nil || m.selectionSessions == nil {
		return
	}
	m.selectionSessions.Add(ctx, -1)
}
