// Package watch checks bundle files as they appear in a directory.
//
// Created or rewritten *.json files are submitted to a worker.Pool after a
// short debounce, so a file written in several chunks is checked once:
//
//	pool := worker.NewPool(eng, 4)
//	defer pool.Close()
//
//	w := watch.New("incoming", pool).WithInitialScan(true)
//	go func() {
//	    for res := range pool.Results() {
//	        // report res
//	    }
//	}()
//	err := w.Run(ctx)
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gofhir/miiquality/worker"
)

// DefaultDebounce is the quiet period after the last write before a file
// is checked.
const DefaultDebounce = 200 * time.Millisecond

// Watcher feeds new and modified bundle files of a directory tree into a
// worker pool.
type Watcher struct {
	root     string
	pool     *worker.Pool
	logger   zerolog.Logger
	debounce time.Duration
	initial  bool

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher for root submitting to pool.
func New(root string, pool *worker.Pool) *Watcher {
	return &Watcher{
		root:     root,
		pool:     pool,
		logger:   zerolog.Nop(),
		debounce: DefaultDebounce,
		pending:  make(map[string]*time.Timer),
	}
}

// WithLogger sets the logger.
func (w *Watcher) WithLogger(logger zerolog.Logger) *Watcher {
	w.logger = logger
	return w
}

// WithDebounce sets the quiet period before a changed file is checked.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d >= 0 {
		w.debounce = d
	}
	return w
}

// WithInitialScan submits the bundle files already present when Run starts.
func (w *Watcher) WithInitialScan(enable bool) *Watcher {
	w.initial = enable
	return w
}

// Run watches until ctx is done. It returns an error only if the watch
// could not be set up.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("failed to access %s: %w", w.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}
	if w.initial {
		w.scan(w.root)
	}

	w.logger.Info().Str("dir", w.root).Msg("watching for bundles")
	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if isHidden(ev.Name) || !(ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		// removed before we got to it
		return
	}

	if info.IsDir() {
		if ev.Has(fsnotify.Create) {
			if err := w.addTree(fsw, ev.Name); err != nil {
				w.logger.Warn().Err(err).Str("dir", ev.Name).Msg("cannot watch directory")
				return
			}
			w.scan(ev.Name)
		}
		return
	}

	if shouldCheck(ev) {
		w.schedule(ev.Name)
	}
}

// shouldCheck reports whether ev writes a visible bundle file.
func shouldCheck(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	return !isHidden(ev.Name) && worker.IsBundleFile(ev.Name)
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// addTree watches dir and its visible subdirectories.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// scan submits the bundle files below dir.
func (w *Watcher) scan(dir string) {
	files, err := worker.Discover([]string{dir})
	if err != nil {
		w.logger.Warn().Err(err).Str("dir", dir).Msg("scan failed")
		return
	}
	for _, path := range files {
		w.schedule(path)
	}
}

// schedule submits path once no further events arrived for the debounce
// period.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.submit(path)
	})
}

func (w *Watcher) submit(path string) {
	job := worker.Job{ID: uuid.NewString(), Source: path}
	switch err := w.pool.Submit(job); {
	case errors.Is(err, worker.ErrAlreadyQueued):
		w.logger.Debug().Str("source", path).Msg("bundle already queued")
	case err != nil:
		w.logger.Warn().Err(err).Str("source", path).Msg("bundle not checked")
	default:
		w.logger.Debug().Str("source", path).Str("job", job.ID).Msg("bundle queued")
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// Pending returns the number of files waiting for their debounce period.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
