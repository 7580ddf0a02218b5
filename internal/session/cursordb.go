package session

import (
	"database/sql"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tidwall/gjson"

	"github.com/agentbridge/agentbridge/internal/redact"
)

// readCursorStateDB reads composer transcripts out of Cursor's
// state.vscdb key-value store. Opened read-only; the store is never
// written. Used only when no transcript files are on disk.
func readCursorStateDB(o Options) (*Session, error) {
	dbPath := cursorStateDBPath(o.BaseDir)
	info, err := os.Stat(dbPath)
	if err != nil || info.IsDir() {
		return nil, Errorf(KindNotFound, "No Cursor session found.")
	}
	if info.Size() > MaxSessionFileSize {
		return nil, Errorf(KindParseFailed,
			"Session file %s exceeds %d byte limit", dbPath, int64(MaxSessionFileSize))
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, WrapErr(KindIO, err, "Failed to open %s", dbPath)
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT key, value FROM cursorDiskKV WHERE key LIKE 'composerData:%'`)
	if err != nil {
		return nil, WrapErr(KindIO, err, "Failed to query %s", dbPath)
	}
	defer rows.Close()

	var (
		bestKey   string
		bestValue string
		bestAt    int64 = -1
	)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		if o.ID != "" {
			if strings.Contains(key, o.ID) {
				bestKey, bestValue = key, value
				break
			}
			continue
		}
		createdAt := gjson.Get(value, "createdAt").Int()
		if createdAt > bestAt {
			bestKey, bestValue, bestAt = key, value, createdAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, WrapErr(KindIO, err, "Failed to read %s", dbPath)
	}
	if bestKey == "" {
		return nil, Errorf(KindNotFound, "No Cursor session found.")
	}

	var texts []string
	var lastAny string
	gjson.Get(bestValue, "conversation").ForEach(func(_, m gjson.Result) bool {
		text := m.Get("text").Str
		if text == "" {
			text = extractText(m.Get("content"))
		}
		if text != "" {
			lastAny = text
		}
		if cursorIsAssistant(m) && text != "" {
			texts = append(texts, text)
		}
		return true
	})

	sess := &Session{
		Agent:        AgentCursor,
		Source:       dbPath,
		SessionID:    cursorComposerKey(bestKey),
		Timestamp:    isoTimestamp(info.ModTime()),
		MessageCount: len(texts),
	}
	switch {
	case len(texts) > 0:
		sess.Content, sess.MessagesReturned = selectAssistant(texts, o.lastN())
	case lastAny != "":
		sess.Content = redact.Redact(lastAny)
	default:
		return nil, Errorf(KindEmptySession, "Cursor session has no messages.")
	}
	return sess, nil
}
