package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/noteclip/internal/auth"
	"github.com/giantswarm/noteclip/internal/config"
	"github.com/giantswarm/noteclip/internal/notes"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the sign-in flow failed.
	ExitCodeAuthFailed = 3
)

var version = "dev"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logFile    string
	quiet      bool

	// browser replaces the system browser; tests only.
	browser auth.BrowserOpener
}

// SetVersion sets the version reported by the CLI.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return version
}

// newRootCmd builds the complete command tree.
func newRootCmd() *cobra.Command {
	return newRootCmdWithOptions(&rootOptions{})
}

func newRootCmdWithOptions(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "noteclip",
		Short: "Send text and code snippets to OneNote from the terminal",
		Long: `noteclip signs in to your Microsoft account and sends text files,
code snippets or piped output to a OneNote section as new pages.

Sign in once with 'noteclip auth login'. The session is stored locally and
refreshed automatically.`,
		Version: version,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate(`{{printf "noteclip version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config-path", defaultConfigPath(), "Configuration directory")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Also write logs to this rotating file")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress non-essential output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newAuthCmd(opts))
	rootCmd.AddCommand(newNotebooksCmd(opts))
	rootCmd.AddCommand(newSectionsCmd(opts))
	rootCmd.AddCommand(newSendCmd(opts))
	rootCmd.AddCommand(newTargetCmd(opts))

	return rootCmd
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if errors.Is(err, auth.ErrNotAuthenticated) ||
		errors.Is(err, auth.ErrSessionExpired) ||
		errors.Is(err, notes.ErrSessionInvalidated) {
		return ExitCodeAuthRequired
	}

	var loginFailed *auth.LoginFailedError
	if errors.As(err, &loginFailed) || errors.Is(err, auth.ErrLoginInProgress) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func defaultConfigPath() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return ""
	}
	return path
}

// printf writes to the command's output unless --quiet is set.
// Use this for progress messages and non-essential output.
func (o *rootOptions) printf(cmd *cobra.Command, format string, args ...interface{}) {
	if !o.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}
