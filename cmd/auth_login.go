package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newAuthLoginCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in through the browser",
		Long: `Sign in to your Microsoft account.

noteclip starts a temporary listener on the loopback interface, opens the
sign-in page in your browser and waits for the redirect. If the browser
does not open, copy the printed URL into it manually.

Examples:
  noteclip auth login
  noteclip auth login --config-path ./dev-config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(cmd, opts)
		},
	}
}

func runAuthLogin(cmd *cobra.Command, opts *rootOptions) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	s.Suffix = " Waiting for sign-in to complete in the browser..."

	onAuthURL := func(authURL string) {
		opts.printf(cmd, "Opening the browser to sign in. If it does not open, visit:\n\n  %s\n\n", authURL)
		if !opts.quiet {
			s.Start()
		}
	}

	a, err := opts.newApp(cmd, onAuthURL)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	err = a.manager.Login(ctx)
	if err != nil {
		s.FinalMSG = text.FgRed.Sprint("Sign-in failed.") + "\n"
		s.Stop()
		if ctx.Err() == context.Canceled {
			return fmt.Errorf("sign-in interrupted: %w", err)
		}
		return err
	}
	s.Stop()

	status, err := a.manager.Status()
	if err != nil {
		return err
	}
	opts.printf(cmd, "%s Access token expires %s.\n", text.FgGreen.Sprint("Signed in."), formatExpiryWithDirection(status.ExpiresAt))
	return nil
}
