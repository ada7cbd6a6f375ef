package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// Watcher reloads a file-backed Store when its file changes.
type Watcher struct {
	store   *Store
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	stop    chan struct{}
}

// NewWatcher creates a watcher for store. The store must be file backed.
func NewWatcher(store *Store, logger *zap.Logger) (*Watcher, error) {
	if store.Path() == "" {
		return nil, fmt.Errorf("store has no backing file to watch")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		store:   store,
		logger:  logger,
		watcher: w,
		stop:    make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine. Call Stop to release it.
//
// The parent directory is watched so editors that replace the file by rename
// are still picked up.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.store.Path())
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	target := filepath.Clean(w.store.Path())

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.store.Reload(); err != nil {
				w.logger.Warn("config reload failed, keeping previous values",
					zap.String("path", target),
					zap.Error(err),
				)
				continue
			}
			w.logger.Info("config reloaded", zap.String("path", target))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}
