// Package scan enumerates candidate session files under untrusted
// directory trees. The walk is bounded by an explicit file counter
// and never follows symbolic links, so hostile or pathological
// trees cannot drive unbounded I/O or escape the root.
package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// MaxFiles is the hard cap on entries examined per Collect call.
// Directories count against it too, so a tree of deeply nested
// empty directories cannot drive unbounded walking. Once reached
// the walk stops descending entirely.
const MaxFiles = 1000

// FileEntry is a discovered file with its modification time.
type FileEntry struct {
	Path  string
	Mtime time.Time
}

// Collect returns all files under root accepted by match, most
// recently modified first. Ties are broken by lexicographic path
// order so results are deterministic. A missing root yields an
// empty result, not an error. Symlinked directories and files are
// skipped.
func Collect(root string, recursive bool, match func(path string) bool) []FileEntry {
	if _, err := os.Lstat(root); err != nil {
		return nil
	}

	var entries []FileEntry
	examined := 0
	stack := []string{root}

	for len(stack) > 0 && examined < MaxFiles {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range dirEntries {
			if entry.Type()&os.ModeSymlink != 0 {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				examined++
				if recursive {
					stack = append(stack, path)
				}
				if examined >= MaxFiles {
					break
				}
				continue
			}
			if !entry.Type().IsRegular() {
				continue
			}

			examined++
			if match != nil && !match(path) {
				if examined >= MaxFiles {
					break
				}
				continue
			}

			info, err := entry.Info()
			mtime := time.Unix(0, 0)
			if err == nil {
				mtime = info.ModTime()
			}
			entries = append(entries, FileEntry{Path: path, Mtime: mtime})

			if examined >= MaxFiles {
				break
			}
		}
	}

	SortByMtimeDesc(entries)
	return entries
}

// SortByMtimeDesc orders entries newest first, breaking mtime ties
// by lexicographic path order.
func SortByMtimeDesc(entries []FileEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Mtime.Equal(entries[j].Mtime) {
			return entries[i].Mtime.After(entries[j].Mtime)
		}
		return entries[i].Path < entries[j].Path
	})
}

// Names returns a predicate accepting files whose base name matches
// any of the given doublestar patterns. Matching is done on the
// lowercased name; invalid patterns match nothing.
func Names(patterns ...string) func(string) bool {
	return func(path string) bool {
		name := strings.ToLower(filepath.Base(path))
		for _, pattern := range patterns {
			ok, err := doublestar.Match(pattern, name)
			if err == nil && ok {
				return true
			}
		}
		return false
	}
}

// And combines predicates; all must accept.
func And(preds ...func(string) bool) func(string) bool {
	return func(path string) bool {
		for _, p := range preds {
			if !p(path) {
				return false
			}
		}
		return true
	}
}
