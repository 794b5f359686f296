package config

import (
	"strings"
	"time"
)

// NoteclipConfig is the top-level configuration structure for noteclip.
type NoteclipConfig struct {
	Auth     AuthConfig     `yaml:"auth"`
	Callback CallbackConfig `yaml:"callback"`
	Storage  StorageConfig  `yaml:"storage"`
	Notes    NotesConfig    `yaml:"notes"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AuthConfig configures the identity provider.
type AuthConfig struct {
	// ClientID overrides the built-in public client registration.
	// Empty means the public client is used.
	ClientID string `yaml:"clientId"`

	// Authority is the identity provider base URL.
	Authority string `yaml:"authority"`

	// Scopes requested at sign-in.
	Scopes []string `yaml:"scopes"`

	// HTTPTimeout bounds each token endpoint request.
	HTTPTimeout time.Duration `yaml:"httpTimeout"`
}

// CallbackConfig configures the loopback redirect listener.
type CallbackConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig selects the key/value backend for the session and preferences.
type StorageConfig struct {
	// Backend is one of "file", "sqlite" or "memory".
	Backend string `yaml:"backend"`

	// Path is relative to the config directory unless absolute.
	Path string `yaml:"path"`

	// Watch reloads the file backend when another process changes it.
	Watch bool `yaml:"watch"`
}

// NotesConfig configures the OneNote client.
type NotesConfig struct {
	APIBaseURL      string        `yaml:"apiBaseUrl"`
	DefaultNotebook string        `yaml:"defaultNotebook"`
	DefaultSection  string        `yaml:"defaultSection"`
	EnableTags      bool          `yaml:"enableTags"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`

	// CodeTheme styles the code block of sent pages. Unknown names fall
	// back to the default theme.
	CodeTheme string `yaml:"codeTheme"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `yaml:"level"`

	// File enables a rotating log file when set.
	File string `yaml:"file"`
}

// ClientID returns the configured client ID with surrounding whitespace
// removed. Empty means "use the public client".
func (c NoteclipConfig) ClientID() string {
	return strings.TrimSpace(c.Auth.ClientID)
}
