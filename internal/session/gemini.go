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

// Gemini has no cwd field inside its session files. Sessions shard
// into ~/.gemini/tmp/<sha256(cwd)>/chats/session-*.json, so cwd
// scoping means enumerating the hashed subdirectory first and its
// siblings after. Files are single JSON documents holding either a
// flat "messages" array or a "history" array of turns with
// inverted role semantics (anything not "user" is the model).

func readGemini(o Options) (*Session, error) {
	dirs := geminiChatDirs(o)
	if len(dirs) == 0 {
		return nil, Errorf(KindNotFound, "No Gemini session found.")
	}

	var files []scan.FileEntry
	for _, dir := range dirs {
		if o.ID != "" {
			files = append(files, scan.Collect(
				dir, false, scan.And(scan.Names("*.json"), pathContains(o.ID)))...)
		} else {
			files = append(files, scan.Collect(
				dir, false, scan.Names("session-*.json"))...)
		}
	}
	scan.SortByMtimeDesc(files)
	if len(files) == 0 {
		return nil, Errorf(KindNotFound, "No Gemini session found.")
	}
	target := files[0]

	parsed, err := parseGeminiJSON(target.Path, o.lastN())
	if err != nil {
		return nil, err
	}

	return &Session{
		Agent:            AgentGemini,
		Content:          parsed.content,
		Source:           target.Path,
		Warnings:         parsed.warnings,
		SessionID:        firstNonEmptyStr(parsed.sessionID, fileStem(target.Path)),
		Timestamp:        isoTimestamp(target.Mtime),
		MessageCount:     parsed.messageCount,
		MessagesReturned: parsed.messagesReturned,
	}, nil
}

// geminiChatDirs resolves the ordered list of chats directories to
// search: an explicit override wins outright; otherwise the
// hashed-cwd shard comes first, then every sibling shard.
func geminiChatDirs(o Options) []string {
	if o.Dir != "" {
		expanded, ok := pathutil.ExpandHome(o.Dir)
		if !ok {
			return nil
		}
		if dirExists(expanded) {
			return []string{expanded}
		}
		return nil
	}

	var ordered []string
	seen := make(map[string]struct{})
	add := func(dir string) {
		if !dirExists(dir) {
			return
		}
		if _, dup := seen[dir]; dup {
			return
		}
		seen[dir] = struct{}{}
		ordered = append(ordered, dir)
	}

	scopedHash := pathutil.Hash(pathutil.Normalize(o.Cwd))
	add(filepath.Join(o.BaseDir, scopedHash, "chats"))

	entries, err := os.ReadDir(o.BaseDir)
	if err != nil {
		return ordered
	}
	for _, entry := range entries {
		if !entry.IsDir() || entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		add(filepath.Join(o.BaseDir, entry.Name(), "chats"))
	}
	return ordered
}

func dirExists(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.IsDir()
}

func parseGeminiJSON(path string, lastN int) (parsedFile, error) {
	data, err := readFileCapped(path)
	if err != nil {
		return parsedFile{}, err
	}
	if !gjson.ValidBytes(data) {
		return parsedFile{}, Errorf(KindParseFailed,
			"Failed to parse Gemini JSON in %s", path)
	}
	root := gjson.ParseBytes(data)
	sessionID := root.Get("sessionId").Str

	if messages := root.Get("messages"); messages.IsArray() {
		arr := messages.Array()
		if len(arr) == 0 {
			return parsedFile{}, Errorf(KindEmptySession,
				"Gemini session has no messages.")
		}
		var texts []string
		for _, m := range arr {
			if isGeminiModelRole(m.Get("type").Str) {
				texts = append(texts, extractText(m.Get("content")))
			}
		}
		out := parsedFile{sessionID: sessionID, messageCount: len(texts)}
		if len(texts) > 0 {
			out.content, out.messagesReturned = selectAssistant(texts, lastN)
			return out, nil
		}
		out.content = contentOrPlaceholder(extractText(arr[len(arr)-1].Get("content")))
		return out, nil
	}

	if history := root.Get("history"); history.IsArray() {
		arr := history.Array()
		if len(arr) == 0 {
			return parsedFile{}, Errorf(KindEmptySession,
				"Gemini history is empty.")
		}
		var texts []string
		for _, turn := range arr {
			// Role inversion: absence of "user" implies the model.
			if equalFold(turn.Get("role").Str, "user") {
				continue
			}
			texts = append(texts, extractGeminiParts(turn.Get("parts")))
		}
		out := parsedFile{sessionID: sessionID, messageCount: len(texts)}
		if len(texts) > 0 {
			out.content, out.messagesReturned = selectAssistant(texts, lastN)
			return out, nil
		}
		out.content = contentOrPlaceholder(
			extractGeminiParts(arr[len(arr)-1].Get("parts")))
		return out, nil
	}

	return parsedFile{}, Errorf(KindParseFailed,
		"Unknown Gemini session schema. Supported fields: messages, history.")
}

func isGeminiModelRole(role string) bool {
	switch strings.ToLower(role) {
	case "gemini", "assistant", "model":
		return true
	}
	return false
}

func contentOrPlaceholder(text string) string {
	if strings.TrimSpace(text) == "" {
		return "[No text content]"
	}
	return redact.Redact(text)
}

func listGemini(o CatalogOptions) ([]Entry, error) {
	files, scoped := geminiCatalogFiles(o)
	entries := catalogEntries(files, AgentGemini, o, nil)
	if scoped {
		for i := range entries {
			entries[i].Cwd = o.Cwd
		}
	}
	return entries, nil
}

func searchGemini(query string, o CatalogOptions) ([]Entry, error) {
	files, scoped := geminiCatalogFiles(o)
	files = filterByContent(files, query, true)
	entries := catalogEntries(files, AgentGemini, o, nil)
	if scoped {
		for i := range entries {
			entries[i].Cwd = o.Cwd
		}
	}
	return entries, nil
}

// geminiCatalogFiles enumerates session files for list/search.
// When a cwd is given only its hashed shard is searched, so scoped
// results can never leak another project's sessions.
func geminiCatalogFiles(o CatalogOptions) (files []scan.FileEntry, scoped bool) {
	var dirs []string
	if o.Cwd != "" {
		scoped = true
		shard := filepath.Join(
			o.BaseDir, pathutil.Hash(pathutil.Normalize(o.Cwd)), "chats")
		if dirExists(shard) {
			dirs = []string{shard}
		}
	} else {
		dirs = geminiChatDirs(Options{BaseDir: o.BaseDir})
	}

	for _, dir := range dirs {
		files = append(files, scan.Collect(
			dir, false, scan.Names("session-*.json"))...)
	}
	scan.SortByMtimeDesc(files)
	return files, scoped
}
