package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenSystemBrowser(t *testing.T) {
	original := browserLauncher
	defer func() { browserLauncher = original }()

	var opened string
	browserLauncher = func(url string) error {
		opened = url
		return nil
	}
	assert.True(t, OpenSystemBrowser("https://example.com/authorize"))
	assert.Equal(t, "https://example.com/authorize", opened)

	browserLauncher = func(string) error { return errors.New("no display") }
	assert.False(t, OpenSystemBrowser("https://example.com/authorize"))
}

func TestOpenSystemBrowser_SatisfiesBrowserOpener(t *testing.T) {
	var fn BrowserOpener = OpenSystemBrowser
	assert.NotNil(t, fn)
}
