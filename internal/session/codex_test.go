package session

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codexMetaLine(id, cwd string) string {
	return `{"type":"session_meta","payload":{"id":"` + id + `","cwd":"` + cwd + `"}}`
}

func codexResponseLine(role, text string) string {
	return `{"type":"response_item","payload":{"type":"message","role":"` + role +
		`","content":[{"type":"output_text","text":"` + text + `"}]}}`
}

func codexEventLine(text string) string {
	return `{"type":"event_msg","payload":{"type":"agent_message","message":"` + text + `"}}`
}

func TestReadCodexBasic(t *testing.T) {
	base := t.TempDir()
	cwd := t.TempDir()
	content := strings.Join([]string{
		codexMetaLine("rollout-1", cwd),
		codexResponseLine("user", "please fix"),
		codexResponseLine("assistant", "patched it"),
	}, "\n")
	writeSessionFile(t, base,
		filepath.Join("2026", "03", "14", "rollout-1.jsonl"), content, fixtureTime(0))

	sess, err := readCodex(Options{BaseDir: base, Cwd: cwd})
	require.NoError(t, err)

	assert.Equal(t, AgentCodex, sess.Agent)
	assert.Equal(t, "patched it", sess.Content)
	assert.Equal(t, "rollout-1", sess.SessionID)
	assert.Equal(t, cwd, sess.Cwd)
	assert.Equal(t, 1, sess.MessageCount)
}

func TestReadCodexEventMessages(t *testing.T) {
	base := t.TempDir()
	cwd := t.TempDir()
	content := strings.Join([]string{
		codexMetaLine("r", cwd),
		codexEventLine("thinking done"),
		codexEventLine("final words"),
	}, "\n")
	writeSessionFile(t, base, "r.jsonl", content, fixtureTime(0))

	sess, err := readCodex(Options{BaseDir: base, Cwd: cwd, LastN: 2})
	require.NoError(t, err)
	assert.Equal(t, "thinking done\n\n---\n\nfinal words", sess.Content)
	assert.Equal(t, 2, sess.MessageCount)
	assert.Equal(t, 2, sess.MessagesReturned)
}

func TestReadCodexIgnoresOtherRecords(t *testing.T) {
	base := t.TempDir()
	cwd := t.TempDir()
	content := strings.Join([]string{
		codexMetaLine("r", cwd),
		`{"type":"response_item","payload":{"type":"function_call","name":"shell"}}`,
		`{"type":"event_msg","payload":{"type":"token_count","count":512}}`,
		codexResponseLine("assistant", "done"),
	}, "\n")
	writeSessionFile(t, base, "r.jsonl", content, fixtureTime(0))

	sess, err := readCodex(Options{BaseDir: base, Cwd: cwd})
	require.NoError(t, err)
	assert.Equal(t, "done", sess.Content)
	assert.Equal(t, 1, sess.MessageCount)
}

func TestReadCodexRawTailFallback(t *testing.T) {
	base := t.TempDir()
	cwd := t.TempDir()
	content := strings.Join([]string{
		codexMetaLine("r", cwd),
		`{"type":"turn_context","payload":{"model":"o4"}}`,
	}, "\n")
	writeSessionFile(t, base, "r.jsonl", content, fixtureTime(0))

	sess, err := readCodex(Options{BaseDir: base, Cwd: cwd})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sess.Content,
		"Could not extract structured messages. Showing last 20 raw lines:"))
}

func TestReadCodexNotFound(t *testing.T) {
	t.Run("missing base dir", func(t *testing.T) {
		_, err := readCodex(Options{BaseDir: filepath.Join(t.TempDir(), "gone")})
		requireKind(t, err, KindNotFound)
		assert.Equal(t, "No Codex session found.", err.Error())
	})

	t.Run("unknown id", func(t *testing.T) {
		base := t.TempDir()
		writeSessionFile(t, base, "r.jsonl", codexMetaLine("r", "/x"), fixtureTime(0))
		_, err := readCodex(Options{BaseDir: base, ID: "missing-id"})
		requireKind(t, err, KindNotFound)
	})
}

func TestReadCodexCwdScoping(t *testing.T) {
	base := t.TempDir()
	wanted := t.TempDir()
	other := t.TempDir()

	writeSessionFile(t, base, "newer.jsonl", strings.Join([]string{
		codexMetaLine("newer", other),
		codexResponseLine("assistant", "other project"),
	}, "\n"), fixtureTime(time.Hour))
	writeSessionFile(t, base, "older.jsonl", strings.Join([]string{
		codexMetaLine("older", wanted),
		codexResponseLine("assistant", "this project"),
	}, "\n"), fixtureTime(0))

	sess, err := readCodex(Options{BaseDir: base, Cwd: wanted})
	require.NoError(t, err)
	assert.Equal(t, "this project", sess.Content)
	assert.Empty(t, sess.Warnings)

	t.Run("fallback warning", func(t *testing.T) {
		sess, err := readCodex(Options{BaseDir: base, Cwd: t.TempDir()})
		require.NoError(t, err)
		assert.Equal(t, "other project", sess.Content)
		require.Len(t, sess.Warnings, 1)
		assert.Contains(t, sess.Warnings[0], "no Codex session matched cwd")
	})
}

func TestCodexSessionCwd(t *testing.T) {
	base := t.TempDir()
	path := writeSessionFile(t, base, "r.jsonl", strings.Join([]string{
		codexMetaLine("r", "/work/project"),
		codexResponseLine("assistant", "hi"),
	}, "\n"), fixtureTime(0))

	assert.Equal(t, "/work/project", codexSessionCwd(path))

	t.Run("cwd only read from first line", func(t *testing.T) {
		late := writeSessionFile(t, base, "late.jsonl", strings.Join([]string{
			codexResponseLine("assistant", "hi"),
			codexMetaLine("late", "/work/project"),
		}, "\n"), fixtureTime(0))
		assert.Equal(t, "", codexSessionCwd(late))
	})
}
