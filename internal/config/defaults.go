package config

import "time"

const (
	DefaultAuthority       = "https://login.microsoftonline.com/common"
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultCallbackHost    = "127.0.0.1"
	DefaultCallbackPort    = 8080
	DefaultCallbackPath    = "/callback"
	DefaultCallbackTimeout = 120 * time.Second
	DefaultStorageBackend  = "file"
	DefaultStorageFile     = "state.json"
	DefaultSQLiteFile      = "state.db"
	DefaultAPIBaseURL      = "https://graph.microsoft.com/v1.0/me/onenote"
	DefaultNotesTimeout    = 30 * time.Second
	DefaultCodeTheme       = "default"
	DefaultLogLevel        = "warn"
)

// DefaultScopes are requested when the configuration names none.
var DefaultScopes = []string{"Notes.ReadWrite", "offline_access"}

// GetDefaultConfig returns the configuration used when no config.yaml exists.
func GetDefaultConfig() NoteclipConfig {
	return NoteclipConfig{
		Auth: AuthConfig{
			Authority:   DefaultAuthority,
			Scopes:      append([]string(nil), DefaultScopes...),
			HTTPTimeout: DefaultHTTPTimeout,
		},
		Callback: CallbackConfig{
			Host:    DefaultCallbackHost,
			Port:    DefaultCallbackPort,
			Path:    DefaultCallbackPath,
			Timeout: DefaultCallbackTimeout,
		},
		Storage: StorageConfig{
			Backend: DefaultStorageBackend,
		},
		Notes: NotesConfig{
			APIBaseURL:     DefaultAPIBaseURL,
			EnableTags:     true,
			RequestTimeout: DefaultNotesTimeout,
			CodeTheme:      DefaultCodeTheme,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}
