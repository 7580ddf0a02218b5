package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeSessionFile creates a fixture file with a controlled mtime so
// recency-based selection is deterministic.
func writeSessionFile(t *testing.T, dir, name, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func fixtureTime(offset time.Duration) time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC).Add(offset)
}

// requireKind asserts an error carries the given pipeline kind.
func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err))
}
