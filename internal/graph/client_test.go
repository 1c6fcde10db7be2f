package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"})
	return NewClient(ts, WithBaseURL(srv.URL))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func readJSON(t *testing.T, r *http.Request, v any) {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	assert.NoError(t, err)
	assert.NoError(t, json.Unmarshal(raw, v))
}

func TestClientDo_Headers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, `outlook.timezone="UTC"`, r.Header.Get("Prefer"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		writeJSON(t, w, map[string]string{"ok": "yes"})
	})

	var out map[string]string
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/ping", nil, nil, &out))
	assert.Equal(t, "yes", out["ok"])
}

func TestClientDo_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		notFound    bool
	}{
		{
			name:        "graph envelope",
			status:      http.StatusNotFound,
			body:        `{"error":{"code":"ErrorItemNotFound","message":"The item was not found."}}`,
			wantMessage: "Graph API Error (404): ErrorItemNotFound: The item was not found.",
			notFound:    true,
		},
		{
			name:        "plain text",
			status:      http.StatusBadGateway,
			body:        "upstream down",
			wantMessage: "Graph API Error (502): upstream down",
		},
		{
			name:        "empty body",
			status:      http.StatusForbidden,
			wantMessage: "Graph API Error (403): Forbidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			})

			err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, err.Error())
			assert.Equal(t, tt.notFound, IsNotFound(err))
		})
	}
}

func TestDateTimeTimeZone(t *testing.T) {
	d := utcDateTime(time.Date(2024, 3, 4, 10, 30, 0, 0, time.FixedZone("CET", 3600)))
	assert.Equal(t, "2024-03-04T09:30:00", d.DateTime)
	assert.Equal(t, "UTC", d.TimeZone)

	got, err := dateTimeTimeZone{DateTime: "2024-03-04T09:30:00.0000000", TimeZone: "UTC"}.parse()
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)))

	_, err = dateTimeTimeZone{DateTime: "yesterday"}.parse()
	assert.Error(t, err)
}

func TestName(t *testing.T) {
	c := NewClient(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "x"}))
	assert.Equal(t, "graph", c.Name())
}
