package session

import (
	"path/filepath"
	"strings"

	"github.com/agentbridge/agentbridge/internal/pathutil"
	"github.com/agentbridge/agentbridge/internal/scan"
)

// catalogEntries converts scanned files into catalog rows, applying
// cwd scoping (when the provider can extract a cwd) and the result
// limit. Files arrive most-recent-first and stay that way.
func catalogEntries(
	files []scan.FileEntry,
	agent Agent,
	o CatalogOptions,
	cwdOf func(path string) string,
) []Entry {
	expected := ""
	if o.Cwd != "" {
		expected = pathutil.Normalize(o.Cwd)
	}

	var out []Entry
	for _, f := range files {
		if len(out) >= o.limit() {
			break
		}
		cwd := ""
		if cwdOf != nil {
			cwd = cwdOf(f.Path)
		}
		if expected != "" && cwdOf != nil &&
			(cwd == "" || pathutil.Normalize(cwd) != expected) {
			continue
		}
		out = append(out, Entry{
			SessionID:  fileStem(f.Path),
			Agent:      agent,
			Cwd:        cwd,
			ModifiedAt: isoTimestamp(f.Mtime),
			FilePath:   f.Path,
		})
	}
	return out
}

// filterByContent keeps files whose raw content contains needle.
// Matching is case-insensitive when fold is set. Unreadable or
// oversized files are dropped, never fatal.
func filterByContent(files []scan.FileEntry, needle string, fold bool) []scan.FileEntry {
	if needle == "" {
		return files
	}
	var out []scan.FileEntry
	for _, f := range files {
		if contentContains(f.Path, needle, fold) {
			out = append(out, f)
		}
	}
	return out
}

func contentContains(path, needle string, fold bool) bool {
	data, err := readFileCapped(path)
	if err != nil {
		return false
	}
	if fold {
		return strings.Contains(
			strings.ToLower(string(data)), strings.ToLower(needle))
	}
	return strings.Contains(string(data), needle)
}

// fileStem is the base filename without its extension, the
// best-effort session id for filename-keyed providers.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func firstNonEmptyStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// latestByCwd returns the first (most recent) file whose recorded
// working directory matches expected exactly. files must already be
// sorted most-recent-first.
func latestByCwd(
	files []scan.FileEntry,
	expected string,
	cwdOf func(path string) string,
) (scan.FileEntry, bool) {
	for _, f := range files {
		cwd := cwdOf(f.Path)
		if cwd == "" {
			continue
		}
		if pathutil.Normalize(cwd) == expected {
			return f, true
		}
	}
	return scan.FileEntry{}, false
}
