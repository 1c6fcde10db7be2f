package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestDeviceLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/devicecode", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client", r.PostForm.Get("client_id"))
		assert.Equal(t, "User.Read offline_access", r.PostForm.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"device_code":      "dev-code",
			"user_code":        "ABCD-EFGH",
			"verification_uri": "https://microsoft.com/devicelogin",
			"expires_in":       300,
			"interval":         1,
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "dev-code", r.PostForm.Get("device_code"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at",
			"refresh_token": "rt",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conf := &oauth2.Config{
		ClientID: "client",
		Scopes:   []string{"User.Read", "offline_access"},
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: srv.URL + "/devicecode",
			TokenURL:      srv.URL + "/token",
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}

	var prompted *oauth2.DeviceAuthResponse
	tok, err := DeviceLogin(context.Background(), conf, func(da *oauth2.DeviceAuthResponse) { prompted = da })
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken)
	require.NotNil(t, prompted)
	assert.Equal(t, "ABCD-EFGH", prompted.UserCode)
}

func TestDeviceLogin_StartFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	conf := &oauth2.Config{ClientID: "client", Endpoint: oauth2.Endpoint{DeviceAuthURL: srv.URL, TokenURL: srv.URL}}
	_, err := DeviceLogin(context.Background(), conf, nil)
	assert.ErrorContains(t, err, "failed to start device login")
}
