package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestFileTokenProvider_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFileTokenProvider(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, p.Dir())

	assert.False(t, p.HasTokenForAccount("work"))
	_, err = p.Load("work")
	assert.ErrorIs(t, err, ErrNoToken)

	tok := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, p.Save("work", tok))
	assert.True(t, p.HasTokenForAccount("work"))

	info, err := os.Stat(filepath.Join(dir, "work.token"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := p.Load("work")
	require.NoError(t, err)
	assert.Equal(t, "at", got.AccessToken)
	assert.Equal(t, "rt", got.RefreshToken)

	ts, err := p.TokenSource(context.Background(), "work")
	require.NoError(t, err)
	served, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "at", served.AccessToken)
}

func TestFileTokenProvider_PathStaysInDir(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFileTokenProvider(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "default.token"), p.path(""))
	assert.Equal(t, dir, filepath.Dir(p.path("../../etc/passwd")))
}

func TestFileTokenProvider_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.token"), []byte("not json"), 0o600))

	p, err := NewFileTokenProvider(dir, nil)
	require.NoError(t, err)
	_, err = p.Load("default")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)
}

func TestFileTokenProvider_RefreshPersists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh",
			"refresh_token": "new-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	conf := &oauth2.Config{
		ClientID: "client",
		Endpoint: oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}
	dir := t.TempDir()
	p, err := NewFileTokenProvider(dir, conf)
	require.NoError(t, err)
	require.NoError(t, p.Save("default", &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "old-refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	ts, err := p.TokenSource(context.Background(), "default")
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)

	saved, err := p.Load("default")
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.AccessToken)
	assert.Equal(t, "new-refresh", saved.RefreshToken)
}
