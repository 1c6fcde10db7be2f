package scheduling_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetfinder/internal/auth"
	"github.com/teemow/meetfinder/internal/server"
	"github.com/teemow/meetfinder/internal/tools/common"
)

// accountOption is shared by every tool.
var accountOption = mcp.WithString("account",
	mcp.Description("Account name (default: 'default'). Selects which stored credentials are used."),
)

// getBackend returns the calendar backend for account, turning a missing
// token into instructions the assistant can relay.
func getBackend(ctx context.Context, account string, sc *server.ServerContext) (server.Backend, error) {
	b, err := sc.BackendForAccount(ctx, account)
	if errors.Is(err, auth.ErrNoToken) {
		return nil, fmt.Errorf(`no %s credentials found for account %q. To authorize access run:

    meetfinder login --backend %s --account %s

and retry. Tokens are refreshed automatically after the first login`, sc.BackendName(), account, sc.BackendName(), account)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client for account %s: %w", sc.BackendName(), account, err)
	}
	return b, nil
}

// RegisterSchedulingTools registers all scheduling tools with the MCP server.
// Booking tools are skipped in read-only mode.
func RegisterSchedulingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := RegisterDirectoryTools(s, sc); err != nil {
		return fmt.Errorf("failed to register directory tools: %w", err)
	}
	if err := RegisterAvailabilityTools(s, sc); err != nil {
		return fmt.Errorf("failed to register availability tools: %w", err)
	}
	if err := RegisterSelectionTools(s, sc); err != nil {
		return fmt.Errorf("failed to register selection tools: %w", err)
	}
	if sc.ReadOnly() {
		return nil
	}
	if err := RegisterBookingTools(s, sc); err != nil {
		return fmt.Errorf("failed to register booking tools: %w", err)
	}
	return nil
}

func addTool(s *mcpserver.MCPServer, sc *server.ServerContext, tool mcp.Tool, handler func(context.Context, mcp.CallToolRequest, *server.ServerContext) (*mcp.CallToolResult, error)) {
	s.AddTool(tool, common.InstrumentedToolHandler(tool.Name, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handler(ctx, request, sc)
		}))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// requestLocation returns the "timeZone" argument as a location, falling back
// to the server default.
func requestLocation(request mcp.CallToolRequest, sc *server.ServerContext) (*time.Location, error) {
	name := request.GetString("timeZone", "")
	if name == "" {
		return sc.Scheduling().Location, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timeZone %q: %w", name, err)
	}
	return loc, nil
}

// zoneName returns an IANA name suitable for a backend, or "" when the
// location has none.
func zoneName(loc *time.Location) string {
	if loc == nil || loc == time.Local || loc.String() == "Local" {
		return ""
	}
	return loc.String()
}

func requiredTime(request mcp.CallToolRequest, name string, loc *time.Location) (time.Time, error) {
	s := request.GetString(name, "")
	if s == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	t, err := common.ParseTime(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return t, nil
}
