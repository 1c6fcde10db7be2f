package graph

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchUsers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "5", q.Get("$top"))
		assert.Contains(t, q.Get("$filter"), "startsWith(displayName,'o''brien')")
		writeJSON(t, w, map[string]any{
			"value": []map[string]string{
				{"displayName": "Pat O'Brien", "mail": "pat@example.com", "userPrincipalName": "pat@corp.example.com"},
				{"displayName": "Guest", "userPrincipalName": "guest@corp.example.com"},
			},
		})
	})

	people, err := c.SearchUsers(context.Background(), "  o'brien ", 5)
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "pat@example.com", people[0].Email)
	assert.Equal(t, "guest@corp.example.com", people[1].Email, "falls back to the principal name")
}

func TestSearchUsers_EmptyQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.SearchUsers(context.Background(), " ", 0)
	assert.Error(t, err)
}

func TestMe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		writeJSON(t, w, map[string]string{"displayName": "Alice", "mail": "alice@example.com"})
	})

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Alice", me.DisplayName)
	assert.Equal(t, "alice@example.com", me.Email)
}
