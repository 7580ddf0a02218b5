// Package pathutil normalizes and hashes working-directory paths.
// Normalization is total: any syntactically valid path string maps
// to an absolute path, falling back to the uncanonicalized form
// when symlink resolution fails.
package pathutil

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading "~" or "~/" against the user's home
// directory. Paths without the marker are returned unchanged. The
// boolean is false when the marker is present but no home directory
// can be determined.
func ExpandHome(path string) (string, bool) {
	if path == "~" {
		home, err := os.UserHomeDir()
		return home, err == nil
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		return filepath.Join(home, rest), true
	}
	return path, true
}

// Normalize expands the home marker, resolves relative paths against
// the process working directory, and canonicalizes symlinks and ".."
// segments when possible. Canonicalization failure falls back to the
// cleaned absolute path rather than erroring.
func Normalize(path string) string {
	expanded, ok := ExpandHome(path)
	if !ok {
		expanded = path
	}

	abs := expanded
	if !filepath.IsAbs(abs) {
		if wd, err := os.Getwd(); err == nil {
			abs = filepath.Join(wd, abs)
		}
	}
	abs = filepath.Clean(abs)

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// Hash returns the SHA-256 hex digest of a path string. Gemini
// shards sessions into subdirectories named by this hash of the
// project working directory.
func Hash(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}
