// Package server provides the MCP server context and the HTTP listeners.
//
// ServerContext owns per-account calendar backends, created lazily from a
// token provider, plus the selection session store and instrumentation
// shared by all tool handlers.
//
// HTTPServer serves the streamable-HTTP MCP endpoint. Callers authenticate
// with their own bearer token; it is kept in an mcp-oauth token store under
// a hash-derived account key so each caller talks to the calendar as
// themselves. HealthChecker and MetricsServer provide probes and a
// dedicated Prometheus listener.
package server
