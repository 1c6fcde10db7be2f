package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetfinder/internal/server"
	"github.com/teemow/meetfinder/internal/tools/common"
)

const (
	ConfigURI  = "meetfinder://config"
	ProfileURI = "user://profile"
)

// RegisterResources registers the configuration and profile resources.
func RegisterResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	configResource := mcp.NewResource(
		ConfigURI,
		"Scheduling Defaults",
		mcp.WithResourceDescription("Slot size, working hours, horizon and time zone applied when a tool call does not override them"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(configResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleConfig(ctx, request, sc)
	})

	profileResource := mcp.NewResource(
		ProfileURI,
		"Current User Profile",
		mcp.WithResourceDescription("The calendar account the server acts as"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleUserProfile(ctx, request, sc)
	})

	return nil
}

type configData struct {
	Backend      string `json:"backend"`
	ReadOnly     bool   `json:"readOnly"`
	SlotMinutes  int    `json:"slotMinutes"`
	WorkingHours string `json:"workingHours"`
	HorizonDays  int    `json:"horizonDays"`
	TimeZone     string `json:"timeZone"`
}

func handleConfig(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	sched := sc.Scheduling()
	return jsonContents(request.Params.URI, configData{
		Backend:      sc.BackendName(),
		ReadOnly:     sc.ReadOnly(),
		SlotMinutes:  int(sched.SlotDuration / time.Minute),
		WorkingHours: sched.WorkingHours.String(),
		HorizonDays:  sched.HorizonDays,
		TimeZone:     sched.Location.String(),
	})
}

func handleUserProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	account := common.ResolveAccount(ctx, nil)

	b, err := sc.BackendForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no %s client available for account %s: %w", sc.BackendName(), account, err)
	}
	me, err := b.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	return jsonContents(request.Params.URI, map[string]any{
		"account": account,
		"backend": b.Name(),
		"name":    me.DisplayName,
		"email":   me.Email,
	})
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
