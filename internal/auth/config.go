package auth

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

// Backend names accepted by ConfigFromEnv.
const (
	BackendGraph  = "graph"
	BackendGoogle = "google"
)

// GraphScopes are the delegated permissions needed to read schedules, search
// people and rooms, and create events.
var GraphScopes = []string{
	"User.Read",
	"User.ReadBasic.All",
	"Calendars.ReadWrite",
	"Calendars.Read.Shared",
	"People.Read",
	"Place.Read.All",
	"offline_access",
}

// GoogleScopes cover free/busy lookups and event creation.
var GoogleScopes = []string{
	"https://www.googleapis.com/auth/calendar.events",
	"https://www.googleapis.com/auth/calendar.freebusy",
}

// Config identifies the public client used for login and token refresh.
type Config struct {
	Backend      string
	ClientID     string
	ClientSecret string

	// TenantID selects the Azure AD authority. Ignored for Google.
	TenantID string

	Scopes []string
}

// ConfigFromEnv reads AZURE_CLIENT_ID and AZURE_TENANT_ID for Graph, or
// GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET for Google.
func ConfigFromEnv(backend string) Config {
	switch backend {
	case BackendGoogle:
		return Config{
			Backend:      BackendGoogle,
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			Scopes:       GoogleScopes,
		}
	default:
		tenant := os.Getenv("AZURE_TENANT_ID")
		if tenant == "" {
			tenant = "organizations"
		}
		return Config{
			Backend:  BackendGraph,
			ClientID: os.Getenv("AZURE_CLIENT_ID"),
			TenantID: tenant,
			Scopes:   GraphScopes,
		}
	}
}

// Validate checks the fields needed to talk to the identity provider.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		if c.Backend == BackendGoogle {
			return fmt.Errorf("GOOGLE_CLIENT_ID is required")
		}
		return fmt.Errorf("AZURE_CLIENT_ID is required")
	}
	if c.Backend == BackendGraph && c.TenantID == "" {
		return fmt.Errorf("AZURE_TENANT_ID is required")
	}
	return nil
}

// OAuth2 returns the oauth2 configuration for the backend's identity provider.
func (c Config) OAuth2() *oauth2.Config {
	endpoint := microsoft.AzureADEndpoint(c.TenantID)
	if c.Backend == BackendGoogle {
		endpoint = google.Endpoint
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       c.Scopes,
	}
}
