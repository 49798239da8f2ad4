// Package watch re-analyzes a project whenever one of its two documents
// changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/HendryAvila/pairdoc/internal/balance"
	"github.com/HendryAvila/pairdoc/internal/config"
)

// DefaultDebounce is how long the documents must be quiet before a
// re-analysis runs. Editors often emit several events per save.
const DefaultDebounce = 500 * time.Millisecond

// ErrStopped is returned by Start once the watcher has been stopped.
var ErrStopped = errors.New("watch: watcher stopped")

// Analyzer produces an analysis for a project directory.
type Analyzer interface {
	Analyze(dir string) *balance.Analysis
}

// Callback receives each fresh analysis.
type Callback func(*balance.Analysis)

// Watcher watches one project directory. A Watcher is single-use: after
// Stop it cannot be started again. Stop must be called to release the
// underlying fsnotify watcher, whether or not Start ran.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	dir         string
	names       map[string]bool
	analyzer    Analyzer
	onChange    Callback
	logger      *slog.Logger
	debounceDur time.Duration
	pendingAt   time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stopped     bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounceDur = d }
}

// WithLogger sets the logger (default discards).
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher for the document pair in dir.
func New(dir string, files config.Files, analyzer Analyzer, onChange Callback, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	w := &Watcher{
		watcher:     fw,
		dir:         dir,
		names:       map[string]bool{files.Structured: true, files.Narrative: true},
		analyzer:    analyzer,
		onChange:    onChange,
		logger:      slog.New(slog.DiscardHandler),
		debounceDur: DefaultDebounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Start begins watching. It is non-blocking; events are handled in a
// goroutine until ctx is done or Stop is called. Starting a running
// watcher is a no-op; starting a stopped one returns ErrStopped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrStopped
	}
	if w.running {
		return nil
	}

	// Watch the directory, not the files: editors and the executor may
	// replace a document rather than write it in place.
	if err := w.watcher.Add(w.dir); err != nil {
		w.stopped = true
		_ = w.watcher.Close()
		return fmt.Errorf("watch: add %s: %w", w.dir, err)
	}
	w.running = true
	w.logger.Info("watching project", "dir", w.dir)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher, waits for the event loop to exit, and closes
// the fsnotify watcher. Calling Stop more than once is safe.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("closing watcher", "error", err)
	}
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.tickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !w.names[filepath.Base(event.Name)] {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}
	w.logger.Debug("document event", "path", event.Name, "op", event.Op.String())

	w.mu.Lock()
	w.pendingAt = time.Now()
	w.mu.Unlock()
}

// flush runs one analysis once events have settled past the debounce window.
func (w *Watcher) flush() {
	w.mu.Lock()
	if w.pendingAt.IsZero() || time.Since(w.pendingAt) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.pendingAt = time.Time{}
	w.mu.Unlock()

	a := w.analyzer.Analyze(w.dir)
	w.logger.Info("re-analyzed", "dir", w.dir, "summary", a.String())
	if w.onChange != nil {
		w.onChange(a)
	}
}

func (w *Watcher) tickInterval() time.Duration {
	if d := w.debounceDur / 5; d > 10*time.Millisecond {
		return d
	}
	return 10 * time.Millisecond
}
