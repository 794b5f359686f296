// Package kvstore provides the small string key/value substrate noteclip
// persists its session and preferences in.
//
// Three backends are available: an in-memory map (tests, ephemeral runs), a
// JSON file written atomically with mode 0600, and a SQLite database.
package kvstore

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kvstore: store is closed")

// Store is a flat string key/value map. Implementations are safe for
// concurrent use. Get reports found=false for a missing key; that is not an
// error.
type Store interface {
	Get(key string) (value string, found bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// Options selects and configures a backend.
type Options struct {
	// Backend is one of BackendMemory, BackendFile or BackendSQLite.
	Backend string

	// Path is the file or database location. Unused for memory.
	Path string

	// Watch enables reloading the file backend when another process changes it.
	Watch bool
}

// Open creates the store described by opts. The returned closer releases
// files, watchers and database handles.
func Open(opts Options) (Store, io.Closer, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendFile:
		fs, err := NewFileStore(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		if opts.Watch {
			if err := fs.Watch(); err != nil {
				_ = fs.Close()
				return nil, nil, err
			}
		}
		return fs, fs, nil
	case BackendMemory:
		m := NewMemoryStore()
		return m, m, nil
	case BackendSQLite:
		s, err := NewSQLiteStore(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("kvstore: unknown backend %q", opts.Backend)
	}
}
