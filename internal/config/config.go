// Package config layers agentbridge configuration:
// defaults < config file < environment. Environment always wins so
// scripted invocations can pin session directories without touching
// the config file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentbridge/agentbridge/internal/session"
)

// Config holds all application configuration.
type Config struct {
	ClaudeProjectsDir string `json:"claude_projects_dir"`
	CodexSessionsDir  string `json:"codex_sessions_dir"`
	GeminiTmpDir      string `json:"gemini_tmp_dir"`
	CursorChatsDir    string `json:"cursor_chats_dir"`
	DataDir           string `json:"data_dir"`
	GithubToken       string `json:"github_token,omitempty"`
}

// EnvDataDir overrides where agentbridge keeps its own state (config
// file, update-check cache). Session directories have per-provider
// variables instead.
const EnvDataDir = "BRIDGE_DATA_DIR"

// Default returns a Config with every provider directory at its
// conventional location under the home directory.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("determining home directory: %w", err)
	}
	cfg := Config{DataDir: filepath.Join(home, ".agentbridge")}
	for _, def := range session.Registry {
		dir := filepath.Join(home, def.DefaultDir)
		switch def.Agent {
		case session.AgentClaude:
			cfg.ClaudeProjectsDir = dir
		case session.AgentCodex:
			cfg.CodexSessionsDir = dir
		case session.AgentGemini:
			cfg.GeminiTmpDir = dir
		case session.AgentCursor:
			cfg.CursorChatsDir = dir
		}
	}
	return cfg, nil
}

// Load builds a Config by layering defaults, the config file, and
// environment variables, in that order.
func Load() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	cfg.loadEnv()
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file struct {
		ClaudeProjectsDir string `json:"claude_projects_dir"`
		CodexSessionsDir  string `json:"codex_sessions_dir"`
		GeminiTmpDir      string `json:"gemini_tmp_dir"`
		CursorChatsDir    string `json:"cursor_chats_dir"`
		GithubToken       string `json:"github_token"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if file.ClaudeProjectsDir != "" {
		c.ClaudeProjectsDir = file.ClaudeProjectsDir
	}
	if file.CodexSessionsDir != "" {
		c.CodexSessionsDir = file.CodexSessionsDir
	}
	if file.GeminiTmpDir != "" {
		c.GeminiTmpDir = file.GeminiTmpDir
	}
	if file.CursorChatsDir != "" {
		c.CursorChatsDir = file.CursorChatsDir
	}
	if file.GithubToken != "" {
		c.GithubToken = file.GithubToken
	}
	return nil
}

func (c *Config) loadEnv() {
	set := func(envVar string, field *string) {
		if v := os.Getenv(envVar); v != "" {
			*field = v
		}
	}
	for _, def := range session.Registry {
		switch def.Agent {
		case session.AgentClaude:
			set(def.EnvVar, &c.ClaudeProjectsDir)
		case session.AgentCodex:
			set(def.EnvVar, &c.CodexSessionsDir)
		case session.AgentGemini:
			set(def.EnvVar, &c.GeminiTmpDir)
		case session.AgentCursor:
			set(def.EnvVar, &c.CursorChatsDir)
		}
	}
	set("BRIDGE_GITHUB_TOKEN", &c.GithubToken)
}

// SessionDirs maps the configured directories into the session
// package's lookup form.
func (c *Config) SessionDirs() session.Dirs {
	return session.Dirs{
		Claude: c.ClaudeProjectsDir,
		Codex:  c.CodexSessionsDir,
		Gemini: c.GeminiTmpDir,
		Cursor: c.CursorChatsDir,
	}
}

// SaveGithubToken persists the GitHub token to the config file,
// preserving any keys written by other versions.
func (c *Config) SaveGithubToken(token string) error {
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	existing := make(map[string]any)
	data, err := os.ReadFile(c.configPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("existing config is invalid, cannot update: %w", err)
		}
	}

	existing["github_token"] = token
	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(c.configPath(), out, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	c.GithubToken = token
	return nil
}
