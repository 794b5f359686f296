package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newAuthCmd(opts *rootOptions) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the noteclip sign-in session",
		Long: `Manage the Microsoft account session noteclip uses to reach OneNote.

Examples:
  noteclip auth login                  # Sign in through the browser
  noteclip auth status                 # Show the stored session
  noteclip auth token                  # Print a valid access token
  noteclip auth logout                 # Forget the stored session`,
	}

	authCmd.AddCommand(newAuthLoginCmd(opts))
	authCmd.AddCommand(newAuthLogoutCmd(opts))
	authCmd.AddCommand(newAuthStatusCmd(opts))
	authCmd.AddCommand(newAuthTokenCmd(opts))

	return authCmd
}

func newAuthLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Long: `Clear the stored access and refresh tokens.

The next command that talks to OneNote requires 'noteclip auth login' again.
Running logout without a stored session is not an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.manager.Logout(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			opts.printf(cmd, "%s\n", text.FgGreen.Sprint("Signed out."))
			return nil
		},
	}
}

func newAuthTokenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a valid access token",
		Long: `Print an access token for the stored session, refreshing it first if
it has expired. Intended for scripts that call the Microsoft Graph API
directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			token, err := a.manager.GetValidAccessToken(cmd.Context())
			if err != nil {
				return sessionError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
