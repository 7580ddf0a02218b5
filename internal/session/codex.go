package session

import (
	"os"

	"github.com/tidwall/gjson"

	"github.com/agentbridge/agentbridge/internal/pathutil"
	"github.com/agentbridge/agentbridge/internal/redact"
	"github.com/agentbridge/agentbridge/internal/scan"
)

// Codex stores sessions as JSONL rollout logs under
// ~/.codex/sessions/<year>/<month>/<day>/rollout-*.jsonl. Messages
// hide inside typed envelopes: response_item records carry full
// {role, content} payloads, while event_msg/agent_message records
// carry only the assistant text and are normalized to the same
// shape. The session cwd is recorded on the first line's payload.

func readCodex(o Options) (*Session, error) {
	if _, err := os.Lstat(o.BaseDir); err != nil {
		return nil, Errorf(KindNotFound, "No Codex session found.")
	}

	var warnings []string
	jsonl := scan.Names("*.jsonl")

	var target scan.FileEntry
	if o.ID != "" {
		files := scan.Collect(o.BaseDir, true, scan.And(jsonl, pathContains(o.ID)))
		if len(files) == 0 {
			return nil, Errorf(KindNotFound, "No Codex session found.")
		}
		target = files[0]
	} else {
		files := scan.Collect(o.BaseDir, true, jsonl)
		if len(files) == 0 {
			return nil, Errorf(KindNotFound, "No Codex session found.")
		}
		expected := pathutil.Normalize(o.Cwd)
		if match, ok := latestByCwd(files, expected, codexSessionCwd); ok {
			target = match
		} else {
			warnings = append(warnings, warnCwdFallback("Codex", expected))
			target = files[0]
		}
	}

	parsed, err := parseCodexJSONL(target.Path, o.lastN())
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, parsed.warnings...)

	return &Session{
		Agent:            AgentCodex,
		Content:          parsed.content,
		Source:           target.Path,
		Warnings:         warnings,
		SessionID:        firstNonEmptyStr(parsed.sessionID, fileStem(target.Path)),
		Cwd:              parsed.cwd,
		Timestamp:        isoTimestamp(target.Mtime),
		MessageCount:     parsed.messageCount,
		MessagesReturned: parsed.messagesReturned,
	}, nil
}

func parseCodexJSONL(path string, lastN int) (parsedFile, error) {
	lines, err := readLines(path)
	if err != nil {
		return parsedFile{}, err
	}

	var (
		texts     []string
		lastAny   string
		sessionID string
		cwd       string
		skipped   int
	)

	for _, line := range lines {
		if !gjson.Valid(line) {
			skipped++
			continue
		}
		root := gjson.Parse(line)
		payload := root.Get("payload")

		switch root.Get("type").Str {
		case "session_meta":
			if sessionID == "" {
				sessionID = payload.Get("id").Str
			}
			if cwd == "" {
				cwd = payload.Get("cwd").Str
			}
			continue
		case "response_item":
			if payload.Get("type").Str != "message" {
				continue
			}
			text := extractText(payload.Get("content"))
			if text != "" {
				lastAny = text
			}
			if equalFold(payload.Get("role").Str, "assistant") {
				texts = append(texts, text)
			}
		case "event_msg":
			if payload.Get("type").Str != "agent_message" {
				continue
			}
			// Second assistant envelope shape: the text rides on
			// the payload's message field directly.
			text := extractText(payload.Get("message"))
			if text != "" {
				lastAny = text
			}
			texts = append(texts, text)
		}
	}

	out := parsedFile{sessionID: sessionID, cwd: cwd, messageCount: len(texts)}
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

// codexSessionCwd reads the recorded cwd from the first line of a
// Codex rollout file. Codex writes session_meta first, so deeper
// scanning is wasted I/O.
func codexSessionCwd(path string) string {
	line := firstLine(path)
	if line == "" || !gjson.Valid(line) {
		return ""
	}
	return gjson.Get(line, "payload.cwd").Str
}

func listCodex(o CatalogOptions) ([]Entry, error) {
	files := scan.Collect(o.BaseDir, true, scan.Names("*.jsonl"))
	return catalogEntries(files, AgentCodex, o, codexSessionCwd), nil
}

func searchCodex(query string, o CatalogOptions) ([]Entry, error) {
	files := scan.Collect(o.BaseDir, true, scan.Names("*.jsonl"))
	files = filterByContent(files, query, true)
	return catalogEntries(files, AgentCodex, o, codexSessionCwd), nil
}
