package kvstore

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/giantswarm/noteclip/pkg/logging"
)

const (
	// fileMode keeps the state file readable only by its owner.
	fileMode = 0o600

	// dirMode keeps the state directory private.
	dirMode = 0o700

	// DefaultReloadDebounce is how long the watcher waits after the last
	// change event before reloading.
	DefaultReloadDebounce = 100 * time.Millisecond
)

// FileStore persists a JSON object of string values in a single file.
// Every mutation rewrites the file through a temp file and rename so a
// crash never leaves a truncated state file behind.
type FileStore struct {
	path string

	mu     sync.RWMutex
	data   map[string]string
	closed bool

	// lastWritten is the digest of the content this store last wrote or
	// loaded; reloads of identical content are skipped.
	lastWritten [sha256.Size]byte

	watcher        *fsnotify.Watcher
	stopCh         chan struct{}
	reloadDebounce time.Duration
	debounceMu     sync.Mutex
	debounceTimer  *time.Timer
}

// NewFileStore opens (or lazily creates) the JSON file at path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("kvstore: file backend requires a path")
	}

	fs := &FileStore{
		path:           path,
		data:           make(map[string]string),
		reloadDebounce: DefaultReloadDebounce,
	}

	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return nil, fmt.Errorf("kvstore: failed to create state directory: %w", err)
	}

	content, err := readStateBytes(path)
	if err != nil {
		return nil, err
	}
	data, err := decodeState(path, content)
	if err != nil {
		return nil, err
	}
	fs.data = data
	fs.lastWritten = sha256.Sum256(content)

	return fs, nil
}

// Path returns the backing file location.
func (fs *FileStore) Path() string {
	return fs.path
}

func (fs *FileStore) Get(key string) (string, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if fs.closed {
		return "", false, ErrClosed
	}
	v, ok := fs.data[key]
	return v, ok, nil
}

func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return ErrClosed
	}

	prev, had := fs.data[key]
	fs.data[key] = value
	if err := fs.persistLocked(); err != nil {
		if had {
			fs.data[key] = prev
		} else {
			delete(fs.data, key)
		}
		return err
	}
	return nil
}

func (fs *FileStore) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return ErrClosed
	}

	prev, had := fs.data[key]
	if !had {
		return nil
	}
	delete(fs.data, key)
	if err := fs.persistLocked(); err != nil {
		fs.data[key] = prev
		return err
	}
	return nil
}

// persistLocked writes the current map to disk. Callers hold fs.mu.
func (fs *FileStore) persistLocked() error {
	content, err := json.MarshalIndent(fs.data, "", "  ")
	if err != nil {
		return fmt.Errorf("kvstore: failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".noteclip-state-*")
	if err != nil {
		return fmt.Errorf("kvstore: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if err := tmp.Chmod(fileMode); err != nil {
		cleanup()
		return fmt.Errorf("kvstore: failed to set state file permissions: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		cleanup()
		return fmt.Errorf("kvstore: failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("kvstore: failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("kvstore: failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("kvstore: failed to replace state file: %w", err)
	}
	fs.lastWritten = sha256.Sum256(content)
	return nil
}

// Reload re-reads the backing file. A missing file yields an empty store.
// Content identical to what this store last wrote is left alone. It reports
// whether the in-memory map was replaced. The read and the swap both happen
// under fs.mu.
func (fs *FileStore) Reload() (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return false, ErrClosed
	}

	content, err := readStateBytes(fs.path)
	if err != nil {
		return false, err
	}
	digest := sha256.Sum256(content)
	if digest == fs.lastWritten {
		return false, nil
	}

	data, err := decodeState(fs.path, content)
	if err != nil {
		return false, err
	}
	fs.data = data
	fs.lastWritten = digest
	return true, nil
}

// Watch reloads the store whenever another process rewrites or removes the
// state file, such as a second noteclip signing out.
func (fs *FileStore) Watch() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("kvstore: failed to create watcher: %w", err)
	}

	// Watch the directory; rename-over-replace swaps the inode.
	if err := watcher.Add(filepath.Dir(fs.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("kvstore: failed to watch %s: %w", filepath.Dir(fs.path), err)
	}

	fs.watcher = watcher
	fs.stopCh = make(chan struct{})

	go fs.processEvents(watcher.Events, watcher.Errors, fs.stopCh)

	logging.Debug("KVStore", "Watching %s for external changes", fs.path)
	return nil
}

func (fs *FileStore) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error, stopCh <-chan struct{}) {
	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(fs.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			fs.triggerReloadDebounced()

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("KVStore", err, "fsnotify error")
		}
	}
}

func (fs *FileStore) triggerReloadDebounced() {
	fs.debounceMu.Lock()
	defer fs.debounceMu.Unlock()

	if fs.debounceTimer != nil {
		fs.debounceTimer.Stop()
	}

	fs.debounceTimer = time.AfterFunc(fs.reloadDebounce, func() {
		changed, err := fs.Reload()
		if err != nil {
			if !errors.Is(err, ErrClosed) {
				logging.Warn("KVStore", "Failed to reload %s: %v", fs.path, err)
			}
			return
		}
		if changed {
			logging.Debug("KVStore", "Reloaded %s after external change", fs.path)
		}
	})
}

// Close stops the watcher. Further operations return ErrClosed.
func (fs *FileStore) Close() error {
	fs.mu.Lock()
	if fs.closed {
		fs.mu.Unlock()
		return nil
	}
	fs.closed = true
	watcher := fs.watcher
	fs.watcher = nil
	if fs.stopCh != nil {
		close(fs.stopCh)
	}
	fs.mu.Unlock()

	fs.debounceMu.Lock()
	if fs.debounceTimer != nil {
		fs.debounceTimer.Stop()
	}
	fs.debounceMu.Unlock()

	if watcher != nil {
		return watcher.Close()
	}
	return nil
}

// readStateBytes returns the raw state file; a missing file reads as empty.
func readStateBytes(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("kvstore: failed to read %s: %w", path, err)
	}
	return content, nil
}

func decodeState(path string, content []byte) (map[string]string, error) {
	data := make(map[string]string)
	if len(content) == 0 {
		return data, nil
	}

	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("kvstore: corrupt state file %s: %w", path, err)
	}
	return data, nil
}
