package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/agentbridge/agentbridge/internal/config"
	"github.com/agentbridge/agentbridge/internal/session"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "read":
			runRead(os.Args[2:])
			return
		case "list":
			runList(os.Args[2:])
			return
		case "search":
			runSearch(os.Args[2:])
			return
		case "report":
			runReport(os.Args[2:])
			return
		case "redact":
			runRedact(os.Args[2:])
			return
		case "watch":
			runWatch(os.Args[2:])
			return
		case "update":
			runUpdate(os.Args[2:])
			return
		case "version", "--version", "-v":
			fmt.Printf("agentbridge %s (commit %s, built %s)\n",
				version, commit, buildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	printUsage()
	os.Exit(2)
}

func printUsage() {
	fmt.Printf(`agentbridge %s - cross-agent session reader and report builder

Reads Claude Code, Codex, Gemini CLI, and Cursor session transcripts
from their native on-disk formats, redacts secrets, and compares
outputs across agents.

Usage:
  agentbridge read [flags]      Read one session's assistant output
  agentbridge list [flags]      List sessions for an agent
  agentbridge search [flags]    Search session contents
  agentbridge report [flags]    Build a cross-agent divergence report
  agentbridge redact [file]     Redact secrets from a file or stdin
  agentbridge watch [flags]     Watch session directories for changes
  agentbridge update [flags]    Check for a newer release
  agentbridge version           Show version information
  agentbridge help              Show this help

Read flags:
  -agent string     Agent: claude, codex, gemini, cursor (required)
  -id string        Session id (substring match)
  -cwd string       Working directory to scope to (default: current)
  -dir string       Explicit session directory override
  -last-n int       Assistant messages to return (default 1)
  -json             Emit JSON instead of text

List/search flags:
  -agent string     Agent to enumerate (required)
  -cwd string       Restrict to sessions for this working directory
  -limit int        Maximum results (default %d)
  -json             Emit JSON instead of text

Report flags:
  -handoff string   Path to a handoff JSON document
  -mode string      verify, steer, analyze, or feedback
  -task string      Task description
  -source value     agent or agent:session-id (repeatable)
  -criteria string  Success criteria (shell-quoted list)
  -constraints str  Constraints (shell-quoted list)
  -cwd string       Default working directory for sources
  -normalize        Collapse whitespace before comparing outputs
  -format string    text, markdown, html, json, canonical (default text)

Environment variables:
  BRIDGE_CLAUDE_PROJECTS_DIR   Claude Code projects directory
  BRIDGE_CODEX_SESSIONS_DIR    Codex sessions directory
  BRIDGE_GEMINI_TMP_DIR        Gemini CLI tmp directory
  BRIDGE_CURSOR_CHATS_DIR      Cursor chats directory
  BRIDGE_DATA_DIR              Data directory (config, caches)

Configuration is read from ~/.agentbridge/config.json when present.
`, version, session.DefaultCatalogLimit)
}

func mustLoadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fatalf("loading config: %v", err)
	}
	return cfg
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func workingDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return cwd
}
