package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/teemow/meetfinder/internal/auth"
)

func newLoginCmd() *cobra.Command {
	var (
		backend string
		account string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and cache a token for an account",
		Long: `Sign in with the OAuth device-code flow. The command prints a URL and a
code; open the URL in any browser, enter the code and sign in. The token is
cached in the user cache directory (or MEETFINDER_TOKEN_DIR) and refreshed
automatically afterwards.

Graph needs AZURE_CLIENT_ID and optionally AZURE_TENANT_ID.
Google needs GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := resolveBackend(cmd, backend)
			if err != nil {
				return err
			}
			return runLogin(cmd, b, account)
		},
	}

	cmd.Flags().StringVar(&backend, "backend", auth.BackendGraph, "Calendar backend: graph or google")
	cmd.Flags().StringVar(&account, "account", auth.DefaultAccount, "Name to store the token under")

	return cmd
}

func runLogin(cmd *cobra.Command, backend, account string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := auth.ConfigFromEnv(backend)
	if err := cfg.Validate(); err != nil {
		return err
	}
	conf := cfg.OAuth2()

	files, err := auth.NewFileTokenProvider(os.Getenv("MEETFINDER_TOKEN_DIR"), conf)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tok, err := auth.DeviceLogin(ctx, conf, func(da *oauth2.DeviceAuthResponse) {
		fmt.Fprintf(out, "To sign in, open %s and enter the code %s\n", da.VerificationURI, da.UserCode)
	})
	if err != nil {
		return err
	}
	if err := files.Save(account, tok); err != nil {
		return err
	}

	fmt.Fprintf(out, "Signed in to %s as account %q. Token cached in %s\n", backend, account, files.Dir())
	return nil
}
