package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/giantswarm/noteclip/internal/auth"
	"github.com/giantswarm/noteclip/internal/config"
	"github.com/giantswarm/noteclip/internal/kvstore"
	"github.com/giantswarm/noteclip/internal/notes"
	"github.com/giantswarm/noteclip/pkg/logging"
	"github.com/giantswarm/noteclip/pkg/oauth"
)

// app is the wired object graph for one command invocation.
type app struct {
	cfg     config.NoteclipConfig
	manager *auth.Manager
	notes   *notes.Client
	recents *notes.RecentTargets
	sender  *notes.Sender

	closer io.Closer
}

// newApp loads configuration, initializes logging and builds the session
// manager and notes client. onAuthURL may be nil.
func (o *rootOptions) newApp(cmd *cobra.Command, onAuthURL func(string)) (*app, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		var cfgErr config.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, errors.New(cfgErr.DetailedError())
		}
		return nil, err
	}

	o.initLogging(cmd, cfg)

	kv, closer, err := kvstore.Open(kvstore.Options{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
		Watch:   cfg.Storage.Watch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open state storage: %w", err)
	}

	exchanger := oauth.NewClient(
		oauth.WithEndpoint(oauth.EndpointForAuthority(cfg.Auth.Authority)),
		oauth.WithTimeout(cfg.Auth.HTTPTimeout),
		oauth.WithLogger(slog.Default()),
	)

	manager, err := auth.NewManager(auth.ManagerConfig{
		ClientID:  cfg.ClientID(),
		Scopes:    cfg.Auth.Scopes,
		Store:     auth.NewTokenStore(kv),
		Exchanger: exchanger,
		Callback: auth.CallbackServerConfig{
			Host:    cfg.Callback.Host,
			Port:    cfg.Callback.Port,
			Path:    cfg.Callback.Path,
			Timeout: cfg.Callback.Timeout,
		},
		Browser:   o.browser,
		OnAuthURL: onAuthURL,
	})
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	notesClient := notes.NewClient(manager,
		notes.WithBaseURL(cfg.Notes.APIBaseURL),
		notes.WithTimeout(cfg.Notes.RequestTimeout),
	)
	recents := notes.NewRecentTargets(kv)

	return &app{
		cfg:     cfg,
		manager: manager,
		notes:   notesClient,
		recents: recents,
		sender:  notes.NewSender(notesClient, recents),
		closer:  closer,
	}, nil
}

// Close releases storage handles and the log file.
func (a *app) Close() {
	if err := a.closer.Close(); err != nil {
		logging.Warn("CLI", "Failed to close state storage: %v", err)
	}
	_ = logging.Close()
}

func (o *rootOptions) initLogging(cmd *cobra.Command, cfg config.NoteclipConfig) {
	levelName := cfg.Logging.Level
	if o.logLevel != "" {
		levelName = o.logLevel
	}
	level := logging.ParseLevel(levelName)
	if o.quiet && level < logging.LevelError {
		level = logging.LevelError
	}

	logFile := cfg.Logging.File
	if o.logFile != "" {
		logFile = o.logFile
	}

	if logFile != "" {
		logging.InitWithFile(level, cmd.ErrOrStderr(), logging.RotationConfig{Path: logFile})
		return
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())
}
