// Package config loads noteclip's configuration.
//
// Configuration lives in a single directory, ~/.config/noteclip by default
// (override with --config-path):
//
//   - config.yaml: optional, merged over GetDefaultConfig()
//   - .env: optional, exported into the environment without overriding
//     variables that are already set
//   - state.json / state.db: the session store, unless storage.path says otherwise
//
// Environment variables NOTECLIP_CLIENT_ID, NOTECLIP_STORAGE_BACKEND,
// NOTECLIP_LOG_LEVEL and NOTECLIP_CALLBACK_PORT take precedence over
// config.yaml.
//
// # Example config.yaml
//
//	auth:
//	  clientId: ""            # empty uses the built-in public client
//	  httpTimeout: 30s
//	callback:
//	  port: 8080
//	  timeout: 2m
//	storage:
//	  backend: sqlite
//	notes:
//	  defaultNotebook: Inbox
//	  enableTags: true
//	logging:
//	  level: debug
//	  file: noteclip.log
package config
