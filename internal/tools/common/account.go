package common

import (
	"context"

	"github.com/teemow/meetfinder/internal/auth"
)

// ResolveAccount picks the token account a tool call runs as.
//
// Priority order:
//  1. Account set on the context by the HTTP bearer middleware
//  2. Explicit "account" argument
//  3. auth.DefaultAccount
func ResolveAccount(ctx context.Context, args map[string]any) string {
	if account, ok := auth.AccountFromContext(ctx); ok {
		return account
	}
	if account, ok := args["account"].(string); ok && account != "" {
		return account
	}
	return auth.DefaultAccount
}
