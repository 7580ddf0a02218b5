package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestCollectMissingRoot(t *testing.T) {
	got := Collect(filepath.Join(t.TempDir(), "nope"), true, nil)
	assert.Nil(t, got)
}

func TestCollectOrdering(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	oldest := writeFile(t, dir, "a.jsonl", base)
	newest := writeFile(t, dir, "b.jsonl", base.Add(2*time.Minute))
	middle := writeFile(t, dir, "c.jsonl", base.Add(time.Minute))

	got := Collect(dir, false, Names("*.jsonl"))
	require.Len(t, got, 3)
	assert.Equal(t, newest, got[0].Path)
	assert.Equal(t, middle, got[1].Path)
	assert.Equal(t, oldest, got[2].Path)
}

func TestCollectMtimeTieBreaksByPath(t *testing.T) {
	dir := t.TempDir()
	when := time.Now().Add(-time.Hour).Truncate(time.Second)

	b := writeFile(t, dir, "b.json", when)
	a := writeFile(t, dir, "a.json", when)

	got := Collect(dir, false, Names("*.json"))
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].Path)
	assert.Equal(t, b, got[1].Path)
}

func TestCollectRecursive(t *testing.T) {
	dir := t.TempDir()
	when := time.Now().Add(-time.Hour)

	nested := writeFile(t, dir, filepath.Join("sub", "deep", "s.jsonl"), when)
	writeFile(t, dir, filepath.Join("sub", "skip.txt"), when)

	got := Collect(dir, true, Names("*.jsonl"))
	require.Len(t, got, 1)
	assert.Equal(t, nested, got[0].Path)

	flat := Collect(dir, false, Names("*.jsonl"))
	assert.Empty(t, flat)
}

func TestCollectSkipsSymlinks(t *testing.T) {
	real := t.TempDir()
	when := time.Now().Add(-time.Hour)
	writeFile(t, real, "target.jsonl", when)

	dir := t.TempDir()
	direct := writeFile(t, dir, "direct.jsonl", when)
	require.NoError(t, os.Symlink(
		filepath.Join(real, "target.jsonl"), filepath.Join(dir, "link.jsonl")))
	require.NoError(t, os.Symlink(real, filepath.Join(dir, "linkdir")))

	got := Collect(dir, true, Names("*.jsonl"))
	require.Len(t, got, 1)
	assert.Equal(t, direct, got[0].Path)
}

func TestCollectHonorsFileCap(t *testing.T) {
	dir := t.TempDir()
	when := time.Now().Add(-time.Hour)
	for i := 0; i < MaxFiles+50; i++ {
		writeFile(t, dir, fmt.Sprintf("f%04d.jsonl", i), when)
	}

	got := Collect(dir, false, Names("*.jsonl"))
	assert.LessOrEqual(t, len(got), MaxFiles)
	assert.NotEmpty(t, got)
}

func TestCollectDirectoriesConsumeCap(t *testing.T) {
	dir := t.TempDir()
	when := time.Now().Add(-time.Hour)

	// MaxFiles empty directories sort before the file, so the walk
	// budget is exhausted before the file is ever examined.
	for i := 0; i < MaxFiles; i++ {
		require.NoError(t, os.Mkdir(filepath.Join(dir, fmt.Sprintf("d%04d", i)), 0o755))
	}
	writeFile(t, dir, "zzz.jsonl", when)

	got := Collect(dir, true, Names("*.jsonl"))
	assert.Empty(t, got)
}

func TestNames(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/tmp/session-abc.json", true},
		{"/tmp/SESSION-ABC.JSON", true},
		{"/tmp/rollout.jsonl", false},
		{"/tmp/notes.txt", false},
	}
	match := Names("session-*.json")
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, match(tt.path))
		})
	}
}

func TestAnd(t *testing.T) {
	jsonl := Names("*.jsonl")
	hasAbc := func(path string) bool { return filepath.Base(path) == "abc.jsonl" }

	combined := And(jsonl, hasAbc)
	assert.True(t, combined("/x/abc.jsonl"))
	assert.False(t, combined("/x/def.jsonl"))
	assert.False(t, combined("/x/abc.json"))
}
