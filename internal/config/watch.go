package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/formgrid/interact/internal/event"
)

// DefaultDebounce coalesces the burst of filesystem events editors
// produce on save.
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc receives the freshly loaded configuration.
type ReloadFunc func(Config)

// Watcher reloads the config file when it changes on disk. Reloads
// that fail to parse or validate are dropped; the previous
// configuration stays in effect.
type Watcher struct {
	path     string
	bus      *event.Bus
	onReload ReloadFunc
	debounce time.Duration

	fsw    *fsnotify.Watcher
	mu     sync.Mutex
	timer  *time.Timer
	done   chan struct{}
	closed bool
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce overrides the event coalescing window.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watch starts watching path. onReload runs after each successful
// reload; a config.reloaded change is also published when bus is
// non-nil. The watch covers the file's directory so editors that
// replace the file on save (rename-over) are still caught.
func Watch(path string, bus *event.Bus, onReload ReloadFunc, opts ...WatchOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		bus:      bus,
		onReload: onReload,
		debounce: DefaultDebounce,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.loop()
	return w, nil
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				w.schedule()
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

// schedule arms the debounce timer, restarting it on every event so
// only the last write in a burst triggers the reload.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		return
	}
	if w.onReload != nil {
		w.onReload(cfg)
	}
	if w.bus != nil {
		w.bus.Publish(event.NewChange(event.TopicConfigReloaded, "", nil))
	}
}
