package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/giantswarm/noteclip/pkg/logging"
)

const (
	userConfigDir  = ".config/noteclip"
	configFileName = "config.yaml"
	dotEnvFileName = ".env"
)

// Environment variables that override config.yaml.
const (
	EnvClientID       = "NOTECLIP_CLIENT_ID"
	EnvStorageBackend = "NOTECLIP_STORAGE_BACKEND"
	EnvLogLevel       = "NOTECLIP_LOG_LEVEL"
	EnvCallbackPort   = "NOTECLIP_CALLBACK_PORT"
)

// osUserHomeDir is replaced in tests.
var osUserHomeDir = os.UserHomeDir

// GetDefaultConfigPath returns ~/.config/noteclip.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads config.yaml from configPath on top of the defaults, then
// applies .env and environment overrides. A missing config.yaml is not an error.
func LoadConfig(configPath string) (NoteclipConfig, error) {
	config := GetDefaultConfig()
	configFilePath := filepath.Join(configPath, configFileName)

	data, err := os.ReadFile(configFilePath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return NoteclipConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
		logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	default:
		return NoteclipConfig{}, fmt.Errorf("error reading %s: %w", configFilePath, err)
	}

	if err := loadDotEnv(filepath.Join(configPath, dotEnvFileName)); err != nil {
		return NoteclipConfig{}, err
	}
	if err := applyEnvOverrides(&config); err != nil {
		return NoteclipConfig{}, err
	}

	config.Storage.Path = resolveStoragePath(configPath, config.Storage)
	if config.Logging.File != "" && !filepath.IsAbs(config.Logging.File) {
		config.Logging.File = filepath.Join(configPath, config.Logging.File)
	}

	if err := config.Validate(configFilePath); err != nil {
		return NoteclipConfig{}, err
	}
	return config, nil
}

// loadDotEnv exports variables from path without overriding ones already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	logging.Debug("ConfigLoader", "Loaded environment from %s", path)
	return nil
}

func applyEnvOverrides(config *NoteclipConfig) error {
	if v, ok := os.LookupEnv(EnvClientID); ok {
		config.Auth.ClientID = v
	}
	if v := os.Getenv(EnvStorageBackend); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv(EnvCallbackPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return ConfigurationError{
				FilePath: EnvCallbackPort,
				Message:  fmt.Sprintf("not a port number: %q", v),
			}
		}
		config.Callback.Port = port
	}
	return nil
}

func resolveStoragePath(configPath string, storage StorageConfig) string {
	path := storage.Path
	if path == "" {
		switch strings.ToLower(storage.Backend) {
		case "sqlite":
			path = DefaultSQLiteFile
		case "memory":
			return ""
		default:
			path = DefaultStorageFile
		}
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(configPath, path)
}

// Validate checks values that would otherwise fail late and obscurely.
func (c NoteclipConfig) Validate(source string) error {
	switch strings.ToLower(c.Storage.Backend) {
	case "file", "sqlite", "memory":
	default:
		return ConfigurationError{
			FilePath:    source,
			Field:       "storage.backend",
			Message:     fmt.Sprintf("unknown backend %q", c.Storage.Backend),
			Suggestions: []string{"use one of: file, sqlite, memory"},
		}
	}

	if c.Callback.Port < 0 || c.Callback.Port > 65535 {
		return ConfigurationError{
			FilePath: source,
			Field:    "callback.port",
			Message:  fmt.Sprintf("port %d out of range", c.Callback.Port),
		}
	}

	if !strings.HasPrefix(c.Callback.Path, "/") {
		return ConfigurationError{
			FilePath:    source,
			Field:       "callback.path",
			Message:     fmt.Sprintf("path %q must start with /", c.Callback.Path),
			Suggestions: []string{"the path must match the redirect URI registered for the client"},
		}
	}

	for field, raw := range map[string]string{
		"auth.authority":   c.Auth.Authority,
		"notes.apiBaseUrl": c.Notes.APIBaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ConfigurationError{
				FilePath: source,
				Field:    field,
				Message:  fmt.Sprintf("invalid URL %q", raw),
			}
		}
	}

	return nil
}
