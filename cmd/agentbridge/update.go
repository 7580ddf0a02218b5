package main

import (
	"flag"
	"fmt"

	"github.com/agentbridge/agentbridge/internal/update"
)

func runUpdate(args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	force := fs.Bool("force", false, "Force check (ignore cache)")
	parseFlags(fs, "update", args)

	cfg := mustLoadConfig()

	info, err := update.Check(version, cfg.DataDir, cfg.GithubToken, *force)
	if err != nil {
		fatalf("checking for updates: %v", err)
	}

	if info == nil {
		fmt.Printf("agentbridge %s is up to date.\n", version)
		return
	}

	if info.IsDevBuild {
		fmt.Printf("Running dev build (%s). Latest release: %s\n",
			info.CurrentVersion, info.LatestVersion)
	} else {
		fmt.Printf("Update available: %s -> %s\n",
			info.CurrentVersion, info.LatestVersion)
	}
	if info.ReleaseURL != "" {
		fmt.Println(info.ReleaseURL)
	}
}
