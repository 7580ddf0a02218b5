package session

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/agentbridge/agentbridge/internal/pathutil"
	"github.com/agentbridge/agentbridge/internal/redact"
	"github.com/agentbridge/agentbridge/internal/scan"
)

// Cursor's editor-plugin storage is ad hoc: transcript files carry
// no fixed schema or location convention, so discovery keys off
// filename keywords and the format is sniffed per file (JSON
// document first, JSON-Lines fallback). There is no recorded cwd;
// scoping falls back to a raw-content substring match. When no
// transcript files exist at all, the state.vscdb key-value store is
// consulted before giving up.

var cursorNamePatterns = []string{
	"*chat*.json", "*chat*.jsonl",
	"*session*.json", "*session*.jsonl",
	"*transcript*.json", "*transcript*.jsonl",
	"*conversation*.json", "*conversation*.jsonl",
	"*composer*.json", "*composer*.jsonl",
}

func readCursor(o Options) (*Session, error) {
	if _, err := os.Lstat(o.BaseDir); err != nil {
		return nil, Errorf(KindNotFound, "No Cursor session found.")
	}

	var warnings []string
	named := scan.Names(cursorNamePatterns...)

	var target scan.FileEntry
	if o.ID != "" {
		files := scan.Collect(o.BaseDir, true, scan.And(named, pathContains(o.ID)))
		if len(files) == 0 {
			if sess, err := readCursorStateDB(o); err == nil {
				return sess, nil
			}
			return nil, Errorf(KindNotFound, "No Cursor session found.")
		}
		target = files[0]
	} else {
		files := scan.Collect(o.BaseDir, true, named)
		if len(files) == 0 {
			return readCursorStateDB(o)
		}
		expected := pathutil.Normalize(o.Cwd)
		if match, ok := firstContaining(files, expected); ok {
			target = match
		} else {
			warnings = append(warnings, warnCwdFallback("Cursor", expected))
			target = files[0]
		}
	}

	parsed, err := parseCursorFile(target.Path, o.lastN())
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, parsed.warnings...)

	return &Session{
		Agent:            AgentCursor,
		Content:          parsed.content,
		Source:           target.Path,
		Warnings:         warnings,
		SessionID:        firstNonEmptyStr(parsed.sessionID, fileStem(target.Path)),
		Timestamp:        isoTimestamp(target.Mtime),
		MessageCount:     parsed.messageCount,
		MessagesReturned: parsed.messagesReturned,
	}, nil
}

// firstContaining returns the most recent file whose raw content
// contains needle. A best-effort heuristic: Cursor records no cwd,
// so a path string appearing in the transcript is the only signal
// available.
func firstContaining(files []scan.FileEntry, needle string) (scan.FileEntry, bool) {
	if needle == "" {
		return scan.FileEntry{}, false
	}
	for _, f := range files {
		if contentContains(f.Path, needle, false) {
			return f, true
		}
	}
	return scan.FileEntry{}, false
}

func parseCursorFile(path string, lastN int) (parsedFile, error) {
	data, err := readFileCapped(path)
	if err != nil {
		return parsedFile{}, err
	}

	// Document mode first: a whole-file JSON value with a messages
	// array (or that is itself an array of messages).
	if gjson.ValidBytes(data) {
		root := gjson.ParseBytes(data)
		msgs := root.Get("messages")
		if !msgs.IsArray() && root.IsArray() {
			msgs = root
		}
		if msgs.IsArray() {
			return parseCursorMessages(root, msgs, lastN)
		}
		if root.IsObject() {
			return parsedFile{}, Errorf(KindEmptySession,
				"Cursor session has no messages.")
		}
	}

	// JSON-Lines fallback.
	return parseCursorJSONL(path, lastN)
}

// parseCursorMessages handles document-mode transcripts.
func parseCursorMessages(root, msgs gjson.Result, lastN int) (parsedFile, error) {
	arr := msgs.Array()
	if len(arr) == 0 {
		return parsedFile{}, Errorf(KindEmptySession,
			"Cursor session has no messages.")
	}
	var texts []string
	var lastAny string
	for _, m := range arr {
		text := extractText(m.Get("content"))
		if text == "" {
			text = m.Get("text").Str
		}
		if text != "" {
			lastAny = text
		}
		if cursorIsAssistant(m) && text != "" {
			texts = append(texts, text)
		}
	}
	out := parsedFile{
		sessionID:    root.Get("sessionId").Str,
		messageCount: len(texts),
	}
	switch {
	case len(texts) > 0:
		out.content, out.messagesReturned = selectAssistant(texts, lastN)
	case lastAny != "":
		out.content = redact.Redact(lastAny)
	default:
		out.content = "[No text content]"
	}
	return out, nil
}

func parseCursorJSONL(path string, lastN int) (parsedFile, error) {
	lines, err := readLines(path)
	if err != nil {
		return parsedFile{}, err
	}

	var (
		texts   []string
		lastAny string
		skipped int
	)
	for _, line := range lines {
		if !gjson.Valid(line) {
			skipped++
			continue
		}
		root := gjson.Parse(line)
		msg := root
		if m := root.Get("message"); m.Exists() {
			msg = m
		}
		text := extractText(msg.Get("content"))
		if text == "" {
			text = msg.Get("text").Str
		}
		if text != "" {
			lastAny = text
		}
		if cursorIsAssistant(msg) && text != "" {
			texts = append(texts, text)
		}
	}

	out := parsedFile{messageCount: len(texts)}
	if skipped > 0 {
		out.warnings = append(out.warnings, warnSkipped(skipped, path))
	}
	switch {
	case len(texts) > 0:
		out.content, out.messagesReturned = selectAssistant(texts, lastN)
	case lastAny != "":
		out.content = redact.Redact(lastAny)
	default:
		out.content = rawTail(
			"Could not extract structured messages. Showing last 20 raw lines:",
			lines)
	}
	return out, nil
}

// cursorIsAssistant sniffs the assistant role across the shapes
// Cursor has used: a role string, a type string, or the numeric
// bubble type (2 = assistant) from composer storage.
func cursorIsAssistant(m gjson.Result) bool {
	if equalFold(m.Get("role").Str, "assistant") {
		return true
	}
	if equalFold(m.Get("type").Str, "assistant") {
		return true
	}
	t := m.Get("type")
	return t.Type == gjson.Number && t.Int() == 2
}

func listCursor(o CatalogOptions) ([]Entry, error) {
	files := cursorCatalogFiles(o)
	return catalogEntries(files, AgentCursor, o, nil), nil
}

func searchCursor(query string, o CatalogOptions) ([]Entry, error) {
	files := cursorCatalogFiles(o)
	files = filterByContent(files, query, true)
	return catalogEntries(files, AgentCursor, o, nil), nil
}

func cursorCatalogFiles(o CatalogOptions) []scan.FileEntry {
	files := scan.Collect(o.BaseDir, true, scan.Names(cursorNamePatterns...))
	if o.Cwd != "" {
		// Best-effort scoping via content substring.
		files = filterByContent(files, pathutil.Normalize(o.Cwd), false)
	}
	return files
}

// cursorStateDBName is the SQLite store Cursor keeps alongside (or
// instead of) transcript files.
const cursorStateDBName = "state.vscdb"

func cursorStateDBPath(baseDir string) string {
	return filepath.Join(baseDir, cursorStateDBName)
}

func cursorComposerKey(id string) string {
	return strings.TrimPrefix(id, "composerData:")
}
