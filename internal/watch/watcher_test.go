package watch

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

// startTestWatcherNoCleanup sets up a watcher without registering
// t.Cleanup(w.Stop), for tests that explicitly exercise Stop().
func startTestWatcherNoCleanup(
	t *testing.T, match func(string) bool, onChange func([]string),
) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := New(50*time.Millisecond, match, onChange)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, err := w.WatchRecursive(dir); err != nil {
		t.Fatalf("WatchRecursive: %v", err)
	}
	w.Start()
	return w, dir
}

// startTestWatcher encapsulates watcher setup and lifecycle.
func startTestWatcher(
	t *testing.T, match func(string) bool, onChange func([]string),
) (*Watcher, string) {
	t.Helper()
	w, dir := startTestWatcherNoCleanup(t, match, onChange)
	t.Cleanup(func() { w.Stop() })
	return w, dir
}

// waitWithTimeout standardizes waiting for a channel signal with a
// failure timeout.
func waitWithTimeout(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatal(msg)
	}
}

// pollUntil polls fn with the given interval until it returns true
// or the timeout expires.
func pollUntil(
	t *testing.T,
	timeout, interval time.Duration,
	msg string,
	fn func() bool,
) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(interval)
	}
	if fn() {
		return
	}
	t.Fatal(msg)
}

// newMockWatcher creates a Watcher struct for internal unit tests.
func newMockWatcher(
	debounce time.Duration, match func(string) bool, onChange func([]string),
) *Watcher {
	return &Watcher{
		debounce: debounce,
		match:    match,
		pending:  make(map[string]time.Time),
		onChange: onChange,
		now:      time.Now,
	}
}

func setPending(w *Watcher, path string, t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = t
}

func getPendingCount(w *Watcher) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func pendingContains(w *Watcher, path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.pending[path]
	return ok
}

func TestWatcherCallsOnChange(t *testing.T) {
	var called atomic.Bool
	var gotPaths []string
	done := make(chan struct{})

	_, dir := startTestWatcher(t, nil, func(paths []string) {
		gotPaths = paths
		called.Store(true)
		close(done)
	})

	path := filepath.Join(dir, "session.jsonl")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	waitWithTimeout(t, done, 5*time.Second, "timed out waiting for onChange callback")

	if !called.Load() {
		t.Fatal("onChange was not called")
	}
	if !slices.Contains(gotPaths, path) {
		t.Fatalf("onChange did not contain expected path %s, got %v", path, gotPaths)
	}
}

func TestWatcherAutoWatchesNewDirs(t *testing.T) {
	var mu sync.Mutex
	var allPaths []string

	w, dir := startTestWatcher(t, nil, func(paths []string) {
		mu.Lock()
		allPaths = append(allPaths, paths...)
		mu.Unlock()
	})

	subdir := filepath.Join(dir, "shard-abc123")
	if err := os.Mkdir(subdir, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	pollUntil(t, 5*time.Second, 10*time.Millisecond,
		"timed out waiting for watcher to add new directory",
		func() bool {
			return slices.Contains(w.watcher.WatchList(), subdir)
		},
	)

	nestedPath := filepath.Join(subdir, "session-1.json")
	if err := os.WriteFile(
		nestedPath, []byte("nested"), 0o644,
	); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	pollUntil(t, 5*time.Second, 50*time.Millisecond,
		"timed out waiting for nested file change",
		func() bool {
			mu.Lock()
			defer mu.Unlock()
			return slices.Contains(allPaths, nestedPath)
		},
	)
}

func TestWatcherStopIsClean(t *testing.T) {
	w, _ := startTestWatcherNoCleanup(t, nil, func(_ []string) {})

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	waitWithTimeout(t, stopped, 5*time.Second, "Stop() did not return in time")
}

func TestWatcherStopIdempotency(t *testing.T) {
	w, _ := startTestWatcherNoCleanup(t, nil, func(_ []string) {})

	w.Stop()
	w.Stop()

	w2, dir2 := startTestWatcherNoCleanup(t, nil, func(_ []string) {})

	stressPath := filepath.Join(dir2, "stress.jsonl")
	if err := os.WriteFile(stressPath, []byte("data"), 0o644); err != nil {
		t.Fatalf("stress write: %v", err)
	}

	// Wait until the watcher loop has consumed the fsnotify event so
	// Stop() races with active processing.
	pollUntil(t, 5*time.Second, 5*time.Millisecond,
		"timed out waiting for watcher to observe stress write",
		func() bool { return getPendingCount(w2) > 0 },
	)

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			w2.Stop()
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	waitWithTimeout(t, done, 5*time.Second, "concurrent Stop() timed out")
}

func TestWatchRecursiveMissingRoot(t *testing.T) {
	w, err := New(time.Second, nil, func(_ []string) {})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.watcher.Close()

	watched, unwatched, err := w.WatchRecursive(
		filepath.Join(t.TempDir(), "not-installed"))
	if err != nil {
		t.Fatalf("WatchRecursive on missing root: %v", err)
	}
	if watched != 0 || unwatched != 0 {
		t.Fatalf("expected no watches for missing root, got %d/%d", watched, unwatched)
	}
}

func TestHandleEventIgnoresNonWriteCreate(t *testing.T) {
	w := newMockWatcher(0, nil, nil)

	w.handleEvent(fsnotify.Event{Name: "file.jsonl", Op: fsnotify.Chmod})
	w.handleEvent(fsnotify.Event{Name: "file.jsonl", Op: fsnotify.Rename})
	w.handleEvent(fsnotify.Event{Name: "file.jsonl", Op: fsnotify.Remove})

	if n := getPendingCount(w); n != 0 {
		t.Fatalf("expected 0 pending, got %d", n)
	}
}

func TestHandleEventRecordsPendingOnWrite(t *testing.T) {
	w := newMockWatcher(0, nil, nil)

	w.handleEvent(fsnotify.Event{Name: "/tmp/session.jsonl", Op: fsnotify.Write})

	if !pendingContains(w, "/tmp/session.jsonl") {
		t.Fatal("expected /tmp/session.jsonl in pending map")
	}
}

func TestHandleEventAppliesMatchFilter(t *testing.T) {
	isTranscript := func(path string) bool {
		return strings.HasSuffix(path, ".jsonl")
	}
	w := newMockWatcher(0, isTranscript, nil)

	w.handleEvent(fsnotify.Event{Name: "/tmp/session.jsonl", Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: "/tmp/notes.txt", Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: "/tmp/editor.swp", Op: fsnotify.Create})

	if n := getPendingCount(w); n != 1 {
		t.Fatalf("expected 1 pending, got %d", n)
	}
	if !pendingContains(w, "/tmp/session.jsonl") {
		t.Fatal("expected only the transcript path in pending map")
	}
}

func TestFlushRespectsDebouncePeriod(t *testing.T) {
	var called atomic.Bool
	w := newMockWatcher(100*time.Millisecond, nil,
		func(_ []string) { called.Store(true) },
	)

	setPending(w, "/tmp/recent", time.Now())

	w.flush()

	if called.Load() {
		t.Fatal("flush should not call onChange before debounce")
	}
	if n := getPendingCount(w); n != 1 {
		t.Fatalf("expected 1 pending, got %d", n)
	}
}

func TestFlushCallsOnChangeAfterDebounce(t *testing.T) {
	var gotPaths []string
	w := newMockWatcher(10*time.Millisecond, nil,
		func(paths []string) { gotPaths = paths },
	)

	setPending(w, "/tmp/b-old", time.Now().Add(-50*time.Millisecond))
	setPending(w, "/tmp/a-old", time.Now().Add(-50*time.Millisecond))

	w.flush()

	if len(gotPaths) != 2 || gotPaths[0] != "/tmp/a-old" || gotPaths[1] != "/tmp/b-old" {
		t.Fatalf("expected sorted [/tmp/a-old /tmp/b-old], got %v", gotPaths)
	}
	if n := getPendingCount(w); n != 0 {
		t.Fatalf("expected 0 pending after flush, got %d", n)
	}
}

func TestFlushNoopWhenEmpty(t *testing.T) {
	var called atomic.Bool
	w := newMockWatcher(10*time.Millisecond, nil,
		func(_ []string) { called.Store(true) },
	)

	w.flush()

	if called.Load() {
		t.Fatal("flush should not call onChange when pending is empty")
	}
}

func TestNew_NonPositiveDebounce(t *testing.T) {
	for _, debounce := range []time.Duration{0, -time.Second} {
		_, err := New(debounce, nil, func(_ []string) {})
		if err == nil {
			t.Fatalf("New(%v) should return error", debounce)
		}
		if !errors.Is(err, os.ErrInvalid) {
			t.Errorf("expected wrapped os.ErrInvalid, got %v", err)
		}
	}
}

func TestNew_NilOnChange(t *testing.T) {
	_, err := New(time.Second, nil, nil)
	if err == nil {
		t.Fatal("New(nil onChange) should return error")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Errorf("expected wrapped os.ErrInvalid, got %v", err)
	}
}
