package config

import (
	"os"
	"path/filepath"
)

// Paths provides all promptforge-related filesystem paths.
type Paths struct {
	ConfigDir    string // ~/.config/promptforge
	CacheDir     string // ~/.cache/promptforge
	ConfigFile   string // ~/.config/promptforge/config.yaml
	ExamplesFile string // ~/.config/promptforge/examples.yaml
}

// NewPaths creates Paths using ~/.config and ~/.cache directories.
// These are used on every platform instead of platform-specific defaults
// (like ~/Library/Application Support on macOS).
func NewPaths() *Paths {
	home := os.Getenv("HOME")
	return NewPathsWithOverrides(
		filepath.Join(home, ".config", "promptforge"),
		filepath.Join(home, ".cache", "promptforge"),
	)
}

// NewPathsWithOverrides allows overriding directories for testing.
func NewPathsWithOverrides(configDir, cacheDir string) *Paths {
	return &Paths{
		ConfigDir:    configDir,
		CacheDir:     cacheDir,
		ConfigFile:   filepath.Join(configDir, "config.yaml"),
		ExamplesFile: filepath.Join(configDir, "examples.yaml"),
	}
}

// PromptCacheDir returns the directory used by the file cache backend.
func (p *Paths) PromptCacheDir() string {
	return filepath.Join(p.CacheDir, "prompts")
}

// PromptCacheDB returns the database path used by the sqlite cache backend.
func (p *Paths) PromptCacheDB() string {
	return filepath.Join(p.CacheDir, "prompts.db")
}

// ExamplesPath resolves the example bank for cfg: an explicit file wins,
// then the default location if it exists. Empty means no bank.
func (p *Paths) ExamplesPath(cfg *Config) string {
	if cfg != nil && cfg.Examples.File != "" {
		return expandHome(cfg.Examples.File)
	}
	if _, err := os.Stat(p.ExamplesFile); err == nil {
		return p.ExamplesFile
	}
	return ""
}

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		return filepath.Join(os.Getenv("HOME"), path[2:])
	}
	return path
}
