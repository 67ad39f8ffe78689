package insights

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Store holds the active threshold table and swaps it atomically on reload
type Store struct {
	cfg atomic.Pointer[Config]
}

// NewStore creates a store seeded with cfg
func NewStore(cfg *Config) *Store {
	s := &Store{}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s.cfg.Store(cfg)
	return s
}

// Config returns the current table
func (s *Store) Config() *Config {
	return s.cfg.Load()
}

// Set replaces the current table
func (s *Store) Set(cfg *Config) {
	s.cfg.Store(cfg)
}

// Watcher reloads a Store whenever its YAML file changes on disk
type Watcher struct {
	path    string
	store   *Store
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	started atomic.Bool
	done    chan struct{}
}

// NewWatcher starts watching path. The parent directory is watched so
// editors that replace the file by rename are picked up.
func NewWatcher(path string, store *Store, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:    filepath.Clean(path),
		store:   store,
		logger:  logger,
		watcher: fw,
		done:    make(chan struct{}),
	}, nil
}

// Run processes file events until ctx is cancelled or Close is called
func (w *Watcher) Run(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("insights watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		// Keep serving the last good table
		w.logger.Warn("insights config reload failed", "path", w.path, "error", err)
		return
	}
	w.store.Set(cfg)
	w.logger.Info("insights config reloaded", "path", w.path)
}

// Close stops the underlying fsnotify watcher and waits for Run to return
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	if w.started.Load() {
		<-w.done
	}
	return err
}
