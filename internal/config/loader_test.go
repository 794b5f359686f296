package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the override variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvClientID, EnvStorageBackend, EnvLogLevel, EnvCallbackPort} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o600))
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	def := GetDefaultConfig()
	assert.Equal(t, def.Auth, cfg.Auth)
	assert.Equal(t, def.Callback, cfg.Callback)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(dir, DefaultStorageFile), cfg.Storage.Path)
	assert.Equal(t, "", cfg.ClientID(), "no client id configured means the public client")
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, DefaultCodeTheme, cfg.Notes.CodeTheme)
	assert.True(t, cfg.Notes.EnableTags, "tags are on unless disabled")
}

func TestLoadConfig_DisableTags(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, `
notes:
  enableTags: false
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.False(t, cfg.Notes.EnableTags)
	assert.Equal(t, DefaultCodeTheme, cfg.Notes.CodeTheme)
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, `
auth:
  clientId: "  my-app  "
  httpTimeout: 10s
callback:
  port: 9090
  timeout: 2m
storage:
  backend: sqlite
notes:
  defaultNotebook: Inbox
  defaultSection: Clips
  enableTags: true
logging:
  level: debug
  file: noteclip.log
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "my-app", cfg.ClientID())
	assert.Equal(t, 10*time.Second, cfg.Auth.HTTPTimeout)
	assert.Equal(t, 9090, cfg.Callback.Port)
	assert.Equal(t, 2*time.Minute, cfg.Callback.Timeout)
	assert.Equal(t, DefaultCallbackPath, cfg.Callback.Path, "unset fields keep their defaults")
	assert.Equal(t, filepath.Join(dir, DefaultSQLiteFile), cfg.Storage.Path)
	assert.Equal(t, "Inbox", cfg.Notes.DefaultNotebook)
	assert.Equal(t, "Clips", cfg.Notes.DefaultSection)
	assert.True(t, cfg.Notes.EnableTags)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, filepath.Join(dir, "noteclip.log"), cfg.Logging.File)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, "auth: [unclosed")

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, "auth:\n  clientId: from-file\n")

	t.Setenv(EnvClientID, "from-env")
	t.Setenv(EnvStorageBackend, "memory")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvCallbackPort, "0")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.ClientID())
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 0, cfg.Callback.Port)
}

func TestLoadConfig_InvalidPortEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvCallbackPort, "eighty")

	_, err := LoadConfig(t.TempDir())

	var cfgErr ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, EnvCallbackPort, cfgErr.FilePath)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, dotEnvFileName), []byte("NOTECLIP_LOG_LEVEL=error\n"), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoadConfig_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, dotEnvFileName), []byte("NOTECLIP_LOG_LEVEL=error\n"), 0o600))
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_AbsoluteStoragePath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere.json")
	writeConfig(t, dir, "storage:\n  path: "+abs+"\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, cfg.Storage.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*NoteclipConfig)
		wantField string
	}{
		{"defaults are valid", func(*NoteclipConfig) {}, ""},
		{"unknown backend", func(c *NoteclipConfig) { c.Storage.Backend = "etcd" }, "storage.backend"},
		{"port out of range", func(c *NoteclipConfig) { c.Callback.Port = 70000 }, "callback.port"},
		{"relative callback path", func(c *NoteclipConfig) { c.Callback.Path = "callback" }, "callback.path"},
		{"bad authority", func(c *NoteclipConfig) { c.Auth.Authority = "not a url" }, "auth.authority"},
		{"bad api base", func(c *NoteclipConfig) { c.Notes.APIBaseURL = "" }, "notes.apiBaseUrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate("config.yaml")
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var cfgErr ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantField, cfgErr.Field)
			assert.Contains(t, cfgErr.DetailedError(), tt.wantField)
		})
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	original := osUserHomeDir
	defer func() { osUserHomeDir = original }()

	osUserHomeDir = func() (string, error) { return "/home/tester", nil }
	path, err := GetDefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".config/noteclip"), path)

	osUserHomeDir = func() (string, error) { return "", errors.New("no home") }
	_, err = GetDefaultConfigPath()
	assert.Error(t, err)
}
