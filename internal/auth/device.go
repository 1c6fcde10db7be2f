package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// DeviceLogin runs the OAuth device authorization grant. prompt is called
// once with the user code and verification URL; the call then blocks until
// the user completes sign-in, the code expires or ctx is cancelled.
func DeviceLogin(ctx context.Context, conf *oauth2.Config, prompt func(*oauth2.DeviceAuthResponse)) (*oauth2.Token, error) {
	da, err := conf.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start device login: %w", err)
	}
	if prompt != nil {
		prompt(da)
	}

	tok, err := conf.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, fmt.Errorf("device login did not complete: %w", err)
	}
	return tok, nil
}
