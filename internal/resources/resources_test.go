package resources

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetfinder/internal/availability"
	"github.com/teemow/meetfinder/internal/booking"
	"github.com/teemow/meetfinder/internal/directory"
	"github.com/teemow/meetfinder/internal/server"
)

type profileBackend struct{}

func (profileBackend) Name() string { return "graph" }

func (profileBackend) Me(context.Context) (*directory.Person, error) {
	return &directory.Person{DisplayName: "Alice", Email: "alice@example.com"}, nil
}

func (profileBackend) FetchFreeBusy(context.Context, string, time.Time, time.Duration) (availability.FreeBusyRow, error) {
	return nil, availability.ErrParticipantUnresolved
}

func (profileBackend) Book(context.Context, booking.Request) (*booking.Confirmation, error) {
	return nil, nil
}

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	sc, err := server.NewServerContext(context.Background(), server.Config{
		Scheduling: server.Scheduling{
			SlotDuration: 15 * time.Minute,
			WorkingHours: availability.WorkingHours{Start: 8 * time.Hour, End: 16*time.Hour + 30*time.Minute},
			HorizonDays:  5,
			Location:     berlin,
		},
		ReadOnly: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func readRequest(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func decode(t *testing.T, contents []mcp.ResourceContents, v any) {
	t.Helper()
	require.Len(t, contents, 1)
	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", text.MIMEType)
	require.NoError(t, json.Unmarshal([]byte(text.Text), v))
}

func TestConfigResource(t *testing.T) {
	sc := newServerContext(t)

	contents, err := handleConfig(context.Background(), readRequest(ConfigURI), sc)
	require.NoError(t, err)

	var got configData
	decode(t, contents, &got)
	assert.Equal(t, configData{
		Backend:      "graph",
		ReadOnly:     true,
		SlotMinutes:  15,
		WorkingHours: "08:00-16:30",
		HorizonDays:  5,
		TimeZone:     "Europe/Berlin",
	}, got)
}

func TestUserProfileResource(t *testing.T) {
	sc := newServerContext(t)

	_, err := handleUserProfile(context.Background(), readRequest(ProfileURI), sc)
	assert.Error(t, err, "no backend without credentials")

	sc.SetBackendForAccount("default", profileBackend{})
	contents, err := handleUserProfile(context.Background(), readRequest(ProfileURI), sc)
	require.NoError(t, err)

	var got map[string]string
	decode(t, contents, &got)
	assert.Equal(t, "alice@example.com", got["email"])
	assert.Equal(t, "default", got["account"])
}
