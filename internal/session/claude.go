package session

import (
	"os"

	"github.com/tidwall/gjson"

	"github.com/agentbridge/agentbridge/internal/pathutil"
	"github.com/agentbridge/agentbridge/internal/redact"
	"github.com/agentbridge/agentbridge/internal/scan"
)

// Claude Code stores sessions as JSONL event logs under
// ~/.claude/projects/<encoded-project>/<session>.jsonl. Assistant
// turns appear either as {"type":"assistant","message":{...}}
// envelopes or as bare {"role":"assistant",...} records; both are
// normalized here. The recorded cwd lives at the top level of
// user/assistant entries.

func readClaude(o Options) (*Session, error) {
	if _, err := os.Lstat(o.BaseDir); err != nil {
		return nil, Errorf(KindNotFound,
			"Claude projects directory not found: %s", o.BaseDir)
	}

	var warnings []string
	jsonl := scan.Names("*.jsonl")

	var target scan.FileEntry
	if o.ID != "" {
		files := scan.Collect(o.BaseDir, true, scan.And(jsonl, pathContains(o.ID)))
		if len(files) == 0 {
			return nil, Errorf(KindNotFound, "No Claude session found.")
		}
		target = files[0]
	} else {
		files := scan.Collect(o.BaseDir, true, jsonl)
		if len(files) == 0 {
			return nil, Errorf(KindNotFound, "No Claude session found.")
		}
		expected := pathutil.Normalize(o.Cwd)
		if match, ok := latestByCwd(files, expected, claudeSessionCwd); ok {
			target = match
		} else {
			warnings = append(warnings, warnCwdFallback("Claude", expected))
			target = files[0]
		}
	}

	parsed, err := parseClaudeJSONL(target.Path, o.lastN())
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, parsed.warnings...)

	return &Session{
		Agent:            AgentClaude,
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

// parsedFile is the normalized output of one provider parse.
type parsedFile struct {
	content          string
	warnings         []string
	sessionID        string
	cwd              string
	messageCount     int
	messagesReturned int
}

func parseClaudeJSONL(path string, lastN int) (parsedFile, error) {
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

		if cwd == "" {
			cwd = root.Get("cwd").Str
		}
		if sessionID == "" {
			sessionID = root.Get("sessionId").Str
		}

		// Assistant turns come in two envelope shapes: a typed
		// record wrapping the message, or the message itself.
		msg := root
		if m := root.Get("message"); m.Exists() {
			msg = m
		}

		contentField := msg.Get("content")
		if !contentField.Exists() {
			contentField = root.Get("content")
		}
		text := extractTypedText(contentField)
		if text != "" {
			lastAny = text
		}

		isAssistant := root.Get("type").Str == "assistant" ||
			equalFold(msg.Get("role").Str, "assistant")
		if !isAssistant || text == "" {
			continue
		}
		texts = append(texts, text)
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
			"Could not extract assistant messages. Showing last 20 raw lines:",
			lines)
	}
	return out, nil
}

// claudeSessionCwd returns the first recorded cwd in a Claude
// session file, raw (un-normalized).
func claudeSessionCwd(path string) string {
	return firstJSONField(path, "cwd")
}

func listClaude(o CatalogOptions) ([]Entry, error) {
	files := scan.Collect(o.BaseDir, true, scan.Names("*.jsonl"))
	return catalogEntries(files, AgentClaude, o, claudeSessionCwd), nil
}

func searchClaude(query string, o CatalogOptions) ([]Entry, error) {
	files := scan.Collect(o.BaseDir, true, scan.Names("*.jsonl"))
	files = filterByContent(files, query, true)
	return catalogEntries(files, AgentClaude, o, claudeSessionCwd), nil
}
