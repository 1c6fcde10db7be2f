package auth

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

// EnvTokenProvider serves one static bearer token to every account. It is
// meant for short scripted runs where a token was obtained elsewhere.
type EnvTokenProvider struct {
	token string
}

// NewEnvTokenProvider reads AZURE_ACCESS_TOKEN. It returns nil when the
// variable is unset.
func NewEnvTokenProvider() *EnvTokenProvider {
	tok := os.Getenv("AZURE_ACCESS_TOKEN")
	if tok == "" {
		return nil
	}
	return &EnvTokenProvider{token: tok}
}

func (p *EnvTokenProvider) TokenSource(_ context.Context, account string) (oauth2.TokenSource, error) {
	if p == nil || p.token == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoToken, account)
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: p.token, TokenType: "Bearer"}), nil
}

func (p *EnvTokenProvider) HasTokenForAccount(string) bool {
	return p != nil && p.token != ""
}
