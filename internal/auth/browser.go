package auth

import (
	"io"

	"github.com/pkg/browser"

	"github.com/giantswarm/noteclip/pkg/logging"
)

// BrowserOpener asks the desktop to navigate to url and reports whether the
// request was handed off. true does not mean the user completed anything.
type BrowserOpener func(url string) bool

// browserLauncher can be replaced in tests to avoid opening a real browser.
var browserLauncher = browser.OpenURL

func init() {
	// xdg-open and friends print to the terminal otherwise.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// OpenSystemBrowser is the default BrowserOpener. It uses the platform
// launcher (xdg-open, open, rundll32).
func OpenSystemBrowser(url string) bool {
	if err := browserLauncher(url); err != nil {
		logging.Warn("Auth", "Failed to open browser: %v", err)
		return false
	}
	return true
}
