package graph

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/wippyai/module-runner/errors"
)

// Watcher drives invalidation from filesystem events. Write, create,
// rename, and remove events on a watched root invalidate every record
// backed by the touched path and notify subscribers with the affected URLs.
type Watcher struct {
	mu          sync.Mutex
	fsw         *fsnotify.Watcher
	graph       *Graph
	debounceMap map[string]time.Time
	debounceDur time.Duration
	onChange    []func(urls []string)
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a Watcher bound to a module graph. Call AddRoot for
// each directory to watch, then Start.
func NewWatcher(g *Graph) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseWatch, errors.KindFailed, err, "create filesystem watcher")
	}

	return &Watcher{
		fsw:         fsw,
		graph:       g,
		debounceMap: make(map[string]time.Time),
		debounceDur: 100 * time.Millisecond, // collapse rapid editor saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// AddRoot registers a directory for watching. Not recursive; add each
// directory containing module sources.
func (w *Watcher) AddRoot(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return errors.Wrap(errors.PhaseWatch, errors.KindFailed, err, "add watch root "+dir)
	}
	return nil
}

// OnChange registers a callback invoked with the URLs invalidated by a
// filesystem event. Callbacks run on the watcher goroutine.
func (w *Watcher) OnChange(fn func(urls []string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Start begins processing events. Non-blocking; the watcher runs until
// Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.loop(ctx)
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.fsw.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			Logger().Warn("watch error",
				zap.Error(errors.Wrap(errors.PhaseWatch, errors.KindFailed, err, "event stream")))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	if w.debounced(event.Name) {
		return
	}

	urls := w.graph.InvalidateFile(event.Name)
	if len(urls) == 0 {
		return
	}

	Logger().Info("change detected",
		zap.String("path", event.Name),
		zap.String("op", event.Op.String()),
		zap.Strings("urls", urls))

	w.mu.Lock()
	callbacks := make([]func([]string), len(w.onChange))
	copy(callbacks, w.onChange)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(urls)
	}
}

// debounced reports whether the path fired within the debounce window.
func (w *Watcher) debounced(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if last, ok := w.debounceMap[path]; ok && now.Sub(last) < w.debounceDur {
		return true
	}
	w.debounceMap[path] = now
	return false
}
