// Package watch observes provider session directories and reports
// changed transcript files after a debounce window. Events for files
// that cannot be session transcripts are dropped at the source.
package watch

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher debounces fsnotify events across one or more session
// directory trees and invokes a callback with the settled paths.
type Watcher struct {
	onChange func(paths []string)
	match    func(path string) bool
	watcher  *fsnotify.Watcher
	debounce time.Duration
	pending  map[string]time.Time
	mu       sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// New creates a watcher. match filters event paths (nil accepts
// everything); onChange receives the sorted set of settled paths.
func New(
	debounce time.Duration,
	match func(path string) bool,
	onChange func(paths []string),
) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is nil: %w", os.ErrInvalid)
	}
	// The debounce window doubles as the flush ticker interval, and
	// time.NewTicker panics on non-positive durations.
	if debounce <= 0 {
		return nil, fmt.Errorf("debounce must be positive, got %v: %w", debounce, os.ErrInvalid)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		onChange: onChange,
		match:    match,
		watcher:  fsw,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}, nil
}

// WatchRecursive adds root and every subdirectory to the watch list.
// Returns how many directories were watched and how many failed.
// A missing root is not an error: providers may not be installed.
func (w *Watcher) WatchRecursive(root string) (watched, unwatched int, err error) {
	if _, statErr := os.Lstat(root); statErr != nil {
		return 0, 0, nil
	}
	err = filepath.WalkDir(root,
		func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip inaccessible dirs
			}
			if d.IsDir() {
				if addErr := w.watcher.Add(path); addErr != nil {
					unwatched++
				} else {
					watched++
				}
			}
			return nil
		})
	return watched, unwatched, err
}

// Start begins processing file events in a goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop stops the watcher and waits for it to finish.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		<-w.done
		w.watcher.Close()
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
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
			log.Printf("watch: error: %v", err)

		case <-ticker.C:
			w.flush()
		}
	}
}

// handleEvent records a pending change, auto-watching directories
// created after startup (new Gemini shards, new Codex day folders).
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		w.watchIfDir(event.Name)
	}

	if w.match != nil && !w.match(event.Name) {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = w.now()
	w.mu.Unlock()
}

func (w *Watcher) watchIfDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	_ = w.watcher.Add(path)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}

	now := w.now()
	var ready []string
	for path, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	w.mu.Unlock()

	if len(ready) > 0 {
		sort.Strings(ready)
		w.onChange(ready)
	}
}
