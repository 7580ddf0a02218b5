package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/agentbridge/agentbridge/internal/redact"
	"github.com/agentbridge/agentbridge/internal/session"
)

// cliError is the machine-readable error shape for -json mode.
type cliError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// fail reports err and exits. In JSON mode the error goes to stdout
// as a typed object so callers can branch on error_code.
func fail(jsonOut bool, err error) {
	if jsonOut {
		out, _ := json.Marshal(cliError{
			ErrorCode: string(session.KindOf(err)),
			Message:   err.Error(),
		})
		fmt.Println(string(out))
		os.Exit(1)
	}
	fatalf("%v", err)
}

func emitJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("encoding output: %v", err)
	}
	fmt.Println(string(out))
}

func runRead(args []string) {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	agent := fs.String("agent", "", "Agent: claude, codex, gemini, cursor")
	id := fs.String("id", "", "Session id (substring match)")
	cwd := fs.String("cwd", "", "Working directory to scope to")
	dir := fs.String("dir", "", "Explicit session directory override")
	lastN := fs.Int("last-n", 1, "Assistant messages to return")
	jsonOut := fs.Bool("json", false, "Emit JSON instead of text")
	parseFlags(fs, "read", args)

	if *agent == "" {
		fs.Usage()
		os.Exit(2)
	}
	if *cwd == "" {
		*cwd = workingDir()
	}

	cfg := mustLoadConfig()
	sess, err := session.Resolve(cfg.SessionDirs(), session.Spec{
		Agent: *agent,
		ID:    *id,
		Cwd:   *cwd,
		Dir:   *dir,
		LastN: *lastN,
	})
	if err != nil {
		fail(*jsonOut, err)
	}

	if *jsonOut {
		emitJSON(sess)
		return
	}
	for _, warning := range sess.Warnings {
		fmt.Fprintln(os.Stderr, warning)
	}
	fmt.Println(sess.Content)
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	agent := fs.String("agent", "", "Agent to enumerate")
	cwd := fs.String("cwd", "", "Restrict to sessions for this working directory")
	limit := fs.Int("limit", session.DefaultCatalogLimit, "Maximum results")
	jsonOut := fs.Bool("json", false, "Emit JSON instead of text")
	parseFlags(fs, "list", args)

	if *agent == "" {
		fs.Usage()
		os.Exit(2)
	}

	cfg := mustLoadConfig()
	entries, err := session.List(cfg.SessionDirs(), *agent, *cwd, *limit)
	if err != nil {
		fail(*jsonOut, err)
	}
	printEntries(entries, *jsonOut)
}

func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	agent := fs.String("agent", "", "Agent to search")
	query := fs.String("query", "", "Text to search for")
	cwd := fs.String("cwd", "", "Restrict to sessions for this working directory")
	limit := fs.Int("limit", session.DefaultCatalogLimit, "Maximum results")
	jsonOut := fs.Bool("json", false, "Emit JSON instead of text")
	parseFlags(fs, "search", args)

	if *query == "" && fs.NArg() > 0 {
		*query = fs.Arg(0)
	}
	if *agent == "" || *query == "" {
		fs.Usage()
		os.Exit(2)
	}

	cfg := mustLoadConfig()
	entries, err := session.Search(cfg.SessionDirs(), *agent, *query, *cwd, *limit)
	if err != nil {
		fail(*jsonOut, err)
	}
	printEntries(entries, *jsonOut)
}

func printEntries(entries []session.Entry, jsonOut bool) {
	if jsonOut {
		if entries == nil {
			entries = []session.Entry{}
		}
		emitJSON(entries)
		return
	}
	if len(entries) == 0 {
		fmt.Println("No sessions found.")
		return
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %s  %s", e.ModifiedAt, e.SessionID, e.FilePath)
		if e.Cwd != "" {
			line += "  (" + e.Cwd + ")"
		}
		fmt.Println(line)
	}
}

// runRedact reads a file (or stdin when no argument is given) and
// writes the redacted text to stdout.
func runRedact(args []string) {
	fs := flag.NewFlagSet("redact", flag.ExitOnError)
	parseFlags(fs, "redact [file]", args)

	var data []byte
	var err error
	if fs.NArg() > 0 {
		data, err = os.ReadFile(fs.Arg(0))
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fatalf("reading input: %v", err)
	}
	fmt.Print(redact.Redact(string(data)))
}

func parseFlags(fs *flag.FlagSet, usage string, args []string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: agentbridge %s [flags]\n\nFlags:\n", usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		fatalf("parsing flags: %v", err)
	}
}
