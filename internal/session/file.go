package session

import (
	"fmt"
	"os"
	"strings"

	"github.com/agentbridge/agentbridge/internal/redact"
)

// MaxSessionFileSize is the hard per-file byte ceiling. Files above
// it are rejected outright rather than streamed partially, bounding
// peak memory against hostile inputs.
const MaxSessionFileSize = 50 << 20 // 50 MB

// rawTailLines is how many raw lines the terminal fallback shows
// when nothing in a file parses.
const rawTailLines = 20

// messageSeparator joins multiple selected assistant messages.
const messageSeparator = "\n\n---\n\n"

// readFileCapped loads a session file, enforcing the size ceiling
// before reading.
func readFileCapped(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, WrapErr(KindIO, err, "Failed to stat session file %s", path)
	}
	if info.Size() > MaxSessionFileSize {
		return nil, Errorf(KindParseFailed,
			"Session file %s exceeds %d byte limit", path, int64(MaxSessionFileSize))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapErr(KindIO, err, "Failed to read session file %s", path)
	}
	return data, nil
}

// readLines loads a JSONL file and splits it into lines. Trailing
// blank lines are dropped; interior blanks are kept so raw-tail
// output stays faithful.
func readLines(path string) ([]string, error) {
	data, err := readFileCapped(path)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

// pathContains builds a predicate accepting paths containing the
// given substring (used for explicit session-id lookup).
func pathContains(needle string) func(string) bool {
	return func(path string) bool {
		return strings.Contains(path, needle)
	}
}

// rawTail renders the last lines of an unparseable file, prefixed
// with a notice, and redacted like any other content.
func rawTail(notice string, lines []string) string {
	start := len(lines) - rawTailLines
	if start < 0 {
		start = 0
	}
	return redact.Redact(notice + "\n" + strings.Join(lines[start:], "\n"))
}

// selectAssistant applies the uniform message-selection policy:
// the last n assistant texts in file order, joined by the fixed
// separator. Returns the redacted content plus how many messages
// it includes.
func selectAssistant(texts []string, n int) (content string, returned int) {
	if len(texts) == 0 {
		return "", 0
	}
	if n > len(texts) {
		n = len(texts)
	}
	selected := texts[len(texts)-n:]
	joined := strings.Join(selected, messageSeparator)
	if strings.TrimSpace(joined) == "" {
		return redact.Redact("[No text content]"), n
	}
	return redact.Redact(joined), n
}

// warnSkipped is the per-file notice for recovered line-level
// parse failures.
func warnSkipped(skipped int, path string) string {
	return fmt.Sprintf(
		"Warning: skipped %d unparseable line(s) in %s", skipped, path)
}

// warnCwdFallback is emitted when no session matched the requested
// working directory and the globally latest session was returned
// instead. Callers warn rather than fail so a session is always
// available, but the returned data may belong to another project.
func warnCwdFallback(display, cwd string) string {
	return fmt.Sprintf(
		"Warning: no %s session matched cwd %s; falling back to latest session.",
		display, cwd)
}
