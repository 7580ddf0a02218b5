// Package session resolves, parses, and normalizes coding-agent
// transcripts from their on-disk formats. Each supported provider
// owns its parsing and working-directory extraction logic; dispatch
// is a tagged lookup in Registry. All content strings pass through
// the redaction engine before leaving the package.
package session

import (
	"path/filepath"
	"strings"
	"time"
)

// Agent identifies the tool that produced a session.
type Agent string

const (
	AgentClaude Agent = "claude"
	AgentCodex  Agent = "codex"
	AgentGemini Agent = "gemini"
	AgentCursor Agent = "cursor"
)

// Session is one normalized, redacted transcript excerpt. It is
// immutable after construction and never cached by this package.
type Session struct {
	Agent            Agent    `json:"agent"`
	Content          string   `json:"content"`
	Source           string   `json:"source"`
	Warnings         []string `json:"warnings,omitempty"`
	SessionID        string   `json:"session_id,omitempty"`
	Cwd              string   `json:"cwd,omitempty"`
	Timestamp        string   `json:"timestamp,omitempty"`
	MessageCount     int      `json:"message_count"`
	MessagesReturned int      `json:"messages_returned"`
}

// Entry is a lightweight catalog row for list/search results.
type Entry struct {
	SessionID  string `json:"session_id"`
	Agent      Agent  `json:"agent"`
	Cwd        string `json:"cwd,omitempty"`
	ModifiedAt string `json:"modified_at"`
	FilePath   string `json:"file_path"`
}

// Options carries one resolution request into a provider.
type Options struct {
	BaseDir string // provider base directory, already resolved
	ID      string // optional session id substring
	Cwd     string // requested working directory (raw form)
	Dir     string // optional explicit directory override
	LastN   int    // assistant messages to return; 0 means 1
}

func (o Options) lastN() int {
	if o.LastN < 1 {
		return 1
	}
	return o.LastN
}

// CatalogOptions carries one list/search request.
type CatalogOptions struct {
	BaseDir string
	Cwd     string // optional scope
	Limit   int    // 0 means DefaultCatalogLimit
}

// DefaultCatalogLimit bounds list/search results when the caller
// does not pass a limit.
const DefaultCatalogLimit = 20

func (o CatalogOptions) limit() int {
	if o.Limit < 1 {
		return DefaultCatalogLimit
	}
	return o.Limit
}

// ProviderDef describes one supported provider: its filesystem
// convention plus its resolve/list/search capabilities.
type ProviderDef struct {
	Agent       Agent
	DisplayName string
	EnvVar      string // env var overriding the base directory
	DefaultDir  string // default base, relative to $HOME

	Read   func(Options) (*Session, error)
	List   func(CatalogOptions) ([]Entry, error)
	Search func(query string, o CatalogOptions) ([]Entry, error)
}

// Registry lists the supported providers. The set is closed; order
// is stable and used for config and CLI iteration.
var Registry = []ProviderDef{
	{
		Agent:       AgentClaude,
		DisplayName: "Claude Code",
		EnvVar:      "BRIDGE_CLAUDE_PROJECTS_DIR",
		DefaultDir:  filepath.Join(".claude", "projects"),
		Read:        readClaude,
		List:        listClaude,
		Search:      searchClaude,
	},
	{
		Agent:       AgentCodex,
		DisplayName: "Codex",
		EnvVar:      "BRIDGE_CODEX_SESSIONS_DIR",
		DefaultDir:  filepath.Join(".codex", "sessions"),
		Read:        readCodex,
		List:        listCodex,
		Search:      searchCodex,
	},
	{
		Agent:       AgentGemini,
		DisplayName: "Gemini",
		EnvVar:      "BRIDGE_GEMINI_TMP_DIR",
		DefaultDir:  filepath.Join(".gemini", "tmp"),
		Read:        readGemini,
		List:        listGemini,
		Search:      searchGemini,
	},
	{
		Agent:       AgentCursor,
		DisplayName: "Cursor",
		EnvVar:      "BRIDGE_CURSOR_CHATS_DIR",
		DefaultDir:  filepath.Join(".cursor", "chats"),
		Read:        readCursor,
		List:        listCursor,
		Search:      searchCursor,
	},
}

// ProviderByAgent returns the ProviderDef for an agent name.
func ProviderByAgent(name string) (ProviderDef, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, def := range Registry {
		if string(def.Agent) == name {
			return def, true
		}
	}
	return ProviderDef{}, false
}

// Dirs holds the effective base directory per provider.
type Dirs struct {
	Claude string
	Codex  string
	Gemini string
	Cursor string
}

// For returns the base directory for an agent.
func (d Dirs) For(agent Agent) string {
	switch agent {
	case AgentClaude:
		return d.Claude
	case AgentCodex:
		return d.Codex
	case AgentGemini:
		return d.Gemini
	case AgentCursor:
		return d.Cursor
	}
	return ""
}

// Spec describes one session to resolve.
type Spec struct {
	Agent string
	ID    string
	Cwd   string
	Dir   string
	LastN int
}

// Resolve selects and parses one session for the given spec.
func Resolve(dirs Dirs, spec Spec) (*Session, error) {
	def, ok := ProviderByAgent(spec.Agent)
	if !ok {
		return nil, Errorf(KindUnsupportedAgent, "Unsupported agent: %s", spec.Agent)
	}
	return def.Read(Options{
		BaseDir: dirs.For(def.Agent),
		ID:      spec.ID,
		Cwd:     spec.Cwd,
		Dir:     spec.Dir,
		LastN:   spec.LastN,
	})
}

// List enumerates sessions for an agent without full parsing.
func List(dirs Dirs, agent, cwd string, limit int) ([]Entry, error) {
	def, ok := ProviderByAgent(agent)
	if !ok {
		return nil, Errorf(KindUnsupportedAgent, "Unsupported agent: %s", agent)
	}
	return def.List(CatalogOptions{BaseDir: dirs.For(def.Agent), Cwd: cwd, Limit: limit})
}

// Search enumerates sessions whose raw content contains query
// (case-insensitive).
func Search(dirs Dirs, agent, query, cwd string, limit int) ([]Entry, error) {
	def, ok := ProviderByAgent(agent)
	if !ok {
		return nil, Errorf(KindUnsupportedAgent, "Unsupported agent: %s", agent)
	}
	return def.Search(query, CatalogOptions{BaseDir: dirs.For(def.Agent), Cwd: cwd, Limit: limit})
}

func isoTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
