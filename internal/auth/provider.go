package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/oauth2"
)

// DefaultAccount is used when neither the request nor the caller names one.
const DefaultAccount = "default"

// ErrNoToken is returned when no token is stored for an account.
var ErrNoToken = errors.New("no token available for account")

// TokenProvider hands out token sources per account. Implementations decide
// where tokens live: process environment, an on-disk cache, or a store fed
// by forwarded bearer tokens.
type TokenProvider interface {
	TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error)
	HasTokenForAccount(account string) bool
}

type accountKey struct{}

// WithAccount returns a context carrying the account for downstream clients.
func WithAccount(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, accountKey{}, account)
}

// AccountFromContext returns the account stored by WithAccount.
func AccountFromContext(ctx context.Context) (string, bool) {
	account, ok := ctx.Value(accountKey{}).(string)
	return account, ok && account != ""
}

// AccountKey derives a stable account id from an opaque bearer token so the
// token itself never appears in logs or map keys.
func AccountKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "bearer-" + hex.EncodeToString(sum[:8])
}
