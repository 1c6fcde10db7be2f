package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/meetfinder/internal/instrumentation"
	"github.com/teemow/meetfinder/internal/server"
)

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), server.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc := newServerContext(t)

	called := false
	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, called)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	sc := newServerContext(t)

	expected := errors.New("test error")
	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expected
	})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	assert.ErrorIs(t, err, expected)
	assert.Nil(t, result)
}

func TestInstrumentedToolHandler_WithMetrics(t *testing.T) {
	sc := newServerContext(t)

	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	require.NoError(t, err)
	sc.SetMetrics(metrics)

	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("tool failed"), nil
	})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestInstrumentedToolHandler_AuditRecord(t *testing.T) {
	sc := newServerContext(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sc.SetAuditLogger(instrumentation.NewAuditLogger(logger, instrumentation.AuditConfig{Enabled: true}))

	wrapped := InstrumentedToolHandler("select_meeting_start", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	})

	_, err := wrapped(context.Background(), callRequest(map[string]any{
		"account":     "work",
		"selectionId": "sel-1",
	}))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "tool_executed")
	assert.Contains(t, out, "select_meeting_start")
	assert.Contains(t, out, `"work"`)
	assert.Contains(t, out, "sel-1")
	assert.Contains(t, out, "graph")
}

func TestInstrumentedToolHandler_AuditFailure(t *testing.T) {
	sc := newServerContext(t)

	var buf bytes.Buffer
	sc.SetAuditLogger(instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), instrumentation.AuditConfig{Enabled: true}))

	wrapped := InstrumentedToolHandler("book_meeting", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, errors.New("backend down")
	})
	_, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.Error(t, err)

	assert.Contains(t, buf.String(), "tool_failed")
	assert.Contains(t, buf.String(), "backend down")
}
