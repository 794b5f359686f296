// Package logging provides the subsystem-tagged logger used throughout noteclip.
//
// It is a thin layer over log/slog: every record carries a "subsystem"
// attribute and, for Error, an "error" attribute.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Auth", "Sign-in completed")
//	logging.Debug("Config", "Loaded configuration from %s", configPath)
//	logging.Warn("Auth", "Token refresh unavailable, using cached token")
//	logging.Error("Notes", err, "Failed to create page")
//
// # Rotating log file
//
// InitWithFile tees output into a lumberjack-managed file:
//
//	logging.InitWithFile(logging.LevelDebug, os.Stderr, logging.RotationConfig{
//	    Path: "/home/me/.config/noteclip/noteclip.log",
//	})
//	defer logging.Close()
//
// # Audit logging
//
// Security-relevant events (sign-in, sign-out, refresh, token clears) go
// through Audit, which logs at INFO with an [AUDIT] prefix so log shippers
// can filter them. Audit events never carry token material.
//
// Logging before initialization writes warnings and errors to stderr and
// discards the rest.
package logging
