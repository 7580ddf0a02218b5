package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/agentbridge/agentbridge/internal/session"
	"github.com/agentbridge/agentbridge/internal/watch"
)

const watcherDebounce = 500 * time.Millisecond

// runWatch observes every configured provider directory and prints
// transcript paths as they settle. Useful for driving re-reads from
// scripts: each line on stdout is one changed file.
func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	agent := fs.String("agent", "", "Watch only this agent's directory")
	debounce := fs.Duration("debounce", watcherDebounce, "Debounce window")
	parseFlags(fs, "watch", args)

	cfg := mustLoadConfig()
	dirs := cfg.SessionDirs()

	var roots []string
	for _, def := range session.Registry {
		if *agent != "" && string(def.Agent) != strings.ToLower(*agent) {
			continue
		}
		if dir := dirs.For(def.Agent); dir != "" {
			roots = append(roots, dir)
		}
	}
	if len(roots) == 0 {
		fatalf("no session directories to watch")
	}

	watcher, err := watch.New(*debounce, isTranscriptPath, func(paths []string) {
		for _, path := range paths {
			fmt.Println(path)
		}
	})
	if err != nil {
		fatalf("starting watcher: %v", err)
	}
	defer watcher.Stop()

	total := 0
	for _, root := range roots {
		watched, _, err := watcher.WatchRecursive(root)
		if err != nil {
			fatalf("watching %s: %v", root, err)
		}
		total += watched
	}
	fmt.Fprintf(os.Stderr, "Watching %d directories across %d roots.\n",
		total, len(roots))
	watcher.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}

// isTranscriptPath filters watcher events to files that can hold
// session content for any provider.
func isTranscriptPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl", ".vscdb":
		return true
	}
	return false
}
