// Package instrumentation wires OpenTelemetry metrics and tracing into the
// meetfinder MCP server and keeps an audit trail of tool calls.
//
// # Metrics
//
// HTTP:
//   - http_requests_total, http_request_duration_seconds by method, path, status
//
// Calendar backends (Microsoft Graph, Google Calendar):
//   - backend_api_operations_total, backend_api_duration_seconds by backend, operation, status
//
// MCP tools:
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds by tool and status
//
// Scheduling:
//   - availability_computations_total, availability_computation_duration_seconds
//   - availability_unresolved_participants_total
//   - selection_transitions_total by transition and status
//   - selection_sessions_active
//
// Metrics are exported for Prometheus scraping (default), over OTLP/HTTP, or
// to stdout for local debugging.
//
// # Tracing
//
// Tool handlers open a server span per call and backends open a client span
// per upstream request. Tracing is off unless OTEL_TRACES_EXPORTER is set
// to otlp or stdout.
//
// # Configuration
//
//	INSTRUMENTATION_ENABLED        default true
//	METRICS_EXPORTER               prometheus | otlp | stdout
//	OTEL_TRACES_EXPORTER           none | otlp | stdout
//	OTEL_EXPORTER_OTLP_ENDPOINT    host:port of the collector
//	OTEL_EXPORTER_OTLP_INSECURE    plain HTTP to the collector
//	OTEL_TRACES_SAMPLER_ARG        sampling ratio, default 0.1
//	METRICS_DETAILED_LABELS        add account labels to tool metrics
//	AUDIT_LOGGING_ENABLED          default true
//	AUDIT_LOGGING_INCLUDE_PII      log full addresses in audit records
//
// Participant addresses never appear in metric labels or span attributes.
package instrumentation
