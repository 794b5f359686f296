package cmd

import (
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/giantswarm/noteclip/internal/auth"
)

func newAuthStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Long: `Show whether a session is stored, when its access token expires and
whether it can be refreshed. No network request is made.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			status, err := a.manager.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printLine(out, "OneNote session")
			printLine(out, "  Client:    %s", a.manager.ClientID())
			printLine(out, "  Status:    %s", formatAuthState(status.State))
			if status.State == auth.AuthStateSignedOut {
				printLine(out, "             Run: noteclip auth login")
				return nil
			}
			printLine(out, "  Expires:   %s", formatExpiryWithDirection(status.ExpiresAt))
			if status.HasRefreshToken {
				printLine(out, "  Refresh:   %s", text.FgGreen.Sprint("Available"))
			} else {
				printLine(out, "  Refresh:   %s", text.FgYellow.Sprint("Not available (sign-in required on expiry)"))
			}

			recent, err := a.recents.Load()
			if err == nil && recent != nil {
				printLine(out, "  Target:    %s", formatTarget(*recent))
			}
			return nil
		},
	}
}

// formatAuthState returns a colored label for a session state.
func formatAuthState(state auth.AuthState) string {
	switch state {
	case auth.AuthStateSignedIn:
		return text.FgGreen.Sprint("Signed in")
	case auth.AuthStateExpired:
		return text.FgYellow.Sprint("Expired (will refresh on next use)")
	default:
		return text.FgHiBlack.Sprint("Not signed in")
	}
}
