package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/giantswarm/mcp-oauth/storage"
)

// StoreTokenProvider serves tokens kept in an mcp-oauth TokenStore. The HTTP
// transport saves each caller's forwarded bearer token here under its
// account key.
type StoreTokenProvider struct {
	store storage.TokenStore
}

// NewStoreTokenProvider wraps store.
func NewStoreTokenProvider(store storage.TokenStore) *StoreTokenProvider {
	return &StoreTokenProvider{store: store}
}

// SaveToken stores tok for account.
func (p *StoreTokenProvider) SaveToken(ctx context.Context, account string, tok *oauth2.Token) error {
	return p.store.SaveToken(ctx, account, tok)
}

func (p *StoreTokenProvider) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	tok, err := p.store.GetToken(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoToken, account, err)
	}
	return oauth2.StaticTokenSource(tok), nil
}

func (p *StoreTokenProvider) HasTokenForAccount(account string) bool {
	_, err := p.store.GetToken(context.Background(), account)
	return err == nil
}
