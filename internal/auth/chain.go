package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// ChainTokenProvider asks each provider in order and serves the first one
// holding a token for the account. The HTTP transport chains the bearer
// store in front of the server's own credentials.
type ChainTokenProvider []TokenProvider

func (c ChainTokenProvider) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	for _, p := range c {
		if p != nil && p.HasTokenForAccount(account) {
			return p.TokenSource(ctx, account)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoToken, account)
}

func (c ChainTokenProvider) HasTokenForAccount(account string) bool {
	for _, p := range c {
		if p != nil && p.HasTokenForAccount(account) {
			return true
		}
	}
	return false
}
