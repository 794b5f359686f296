package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/giantswarm/noteclip/internal/auth"
	"github.com/giantswarm/noteclip/internal/notes"
)

// sessionError adds a next step to errors that require a new sign-in.
func sessionError(err error) error {
	if errors.Is(err, auth.ErrNotAuthenticated) ||
		errors.Is(err, auth.ErrSessionExpired) ||
		errors.Is(err, notes.ErrSessionInvalidated) {
		return fmt.Errorf("%w. Run: noteclip auth login", err)
	}
	return err
}

func printLine(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

// newTable creates a table with the standard styling, mirrored to w.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func formatTarget(t notes.RecentTarget) string {
	if t.NotebookName == "" {
		return t.SectionName
	}
	return t.NotebookName + " / " + t.SectionName
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return "< 1 minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// formatExpiryWithDirection formats a time as "in X" or "expired X ago".
func formatExpiryWithDirection(expiresAt time.Time) string {
	remaining := time.Until(expiresAt)
	if remaining > 0 {
		return "in " + formatDuration(remaining)
	}
	return text.FgYellow.Sprintf("expired %s ago", formatDuration(-remaining))
}
