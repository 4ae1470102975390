package property

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher keeps a Mutable in sync with a YAML file on disk.
type Watcher struct {
	path     string
	target   *Mutable
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload []func(Map)

	stopCh    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets how long the watcher waits after the last file event
// before reloading.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// OnReload registers a callback invoked with the new contents after each
// successful reload.
func OnReload(fn func(Map)) WatchOption {
	return func(w *Watcher) {
		w.onReload = append(w.onReload, fn)
	}
}

// Watch loads path into target and reloads it whenever the file is written
// or recreated. The parent directory is watched so that editors replacing the
// file atomically are noticed. A reload that fails to parse keeps the previous
// contents.
func Watch(path string, target *Mutable, logger *zap.Logger, opts ...WatchOption) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	w := &Watcher{
		path:     abs,
		target:   target,
		logger:   logger.With(zap.String("file", abs)),
		debounce: defaultDebounce,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.reload(); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	w.watcher = fsw

	go w.watchLoop()

	w.logger.Info("Watching property file")
	return w, nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stopCh)
		<-w.done
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("Property file changed", zap.String("operation", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.reload(); err != nil {
				w.logger.Warn("Failed to reload property file", zap.Error(err))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Property watcher error", zap.Error(err))

		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() error {
	m, err := LoadYAML(w.path)
	if err != nil {
		return err
	}
	w.target.Replace(m)
	w.logger.Info("Property file loaded", zap.Int("properties", len(m)))
	for _, fn := range w.onReload {
		fn(m)
	}
	return nil
}
