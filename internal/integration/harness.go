// Package integration provides integration testing utilities for promptforge.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/HartBrook/promptforge/internal/cache"
	"github.com/HartBrook/promptforge/internal/cli"
	"github.com/HartBrook/promptforge/internal/config"
	"github.com/HartBrook/promptforge/internal/prompt"
)

// commandTimeout bounds a single CLI invocation.
const commandTimeout = 30 * time.Second

// TestEnv provides an isolated test environment with overridden paths.
type TestEnv struct {
	t         *testing.T
	RootDir   string        // t.TempDir() root
	HomeDir   string        // Simulated $HOME
	ConfigDir string        // ~/.config/promptforge
	CacheDir  string        // ~/.cache/promptforge
	WorkDir   string        // Attachments written by the test
	Paths     *config.Paths // Configured paths pointing to temp dirs
	Model     *FakeModel    // Set by StartModel
}

// NewTestEnv creates an isolated test environment. HOME points into the
// temp dir and no API key is visible, so every run starts offline.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	rootDir := t.TempDir()
	homeDir := filepath.Join(rootDir, "home")
	configDir := filepath.Join(homeDir, ".config", "promptforge")
	cacheDir := filepath.Join(homeDir, ".cache", "promptforge")
	workDir := filepath.Join(rootDir, "work")

	for _, dir := range []string{configDir, cacheDir, workDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	t.Setenv("HOME", homeDir)
	t.Setenv("ANTHROPIC_API_KEY", "")

	return &TestEnv{
		t:         t,
		RootDir:   rootDir,
		HomeDir:   homeDir,
		ConfigDir: configDir,
		CacheDir:  cacheDir,
		WorkDir:   workDir,
		Paths:     config.NewPathsWithOverrides(configDir, cacheDir),
	}
}

// StartModel serves replies from a fake Messages API and exposes an API key
// so the CLI builds a generator. Configs written afterwards point at it.
func (e *TestEnv) StartModel(replies ...Reply) *FakeModel {
	e.t.Helper()
	e.Model = NewFakeModel(e.t, replies...)
	e.t.Setenv("ANTHROPIC_API_KEY", "test-api-key")
	return e.Model
}

// SetupConfig writes config.yaml. With a running fake model the generator
// is pointed at it and left unthrottled.
func (e *TestEnv) SetupConfig(cfg *config.Config) error {
	if e.Model != nil {
		cfg.Generator.BaseURL = e.Model.BaseURL()
		cfg.Generator.RequestsPerMinute = 60000
	}
	return config.SaveTo(cfg, e.Paths.ConfigFile)
}

// SetupExamples writes the default example bank.
func (e *TestEnv) SetupExamples(content string) error {
	return os.WriteFile(e.Paths.ExamplesFile, []byte(content), 0644)
}

// WriteFile writes an attachment into the work dir and returns its path.
func (e *TestEnv) WriteFile(name, content string) (string, error) {
	path := filepath.Join(e.WorkDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Run executes the CLI with args and returns what it wrote to stdout.
func (e *TestEnv) Run(args ...string) (string, error) {
	e.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	root := cli.NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if stderr.Len() > 0 {
		e.t.Logf("stderr: %s", stderr.String())
	}
	return stdout.String(), err
}

// Build runs "build --json" for idea and decodes the prompt object.
func (e *TestEnv) Build(idea string, flags ...string) (*prompt.PromptObject, error) {
	args := append([]string{"build", idea, "--json"}, flags...)
	out, err := e.Run(args...)
	if err != nil {
		return nil, err
	}

	var obj prompt.PromptObject
	if err := json.Unmarshal([]byte(out), &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// CacheStats runs "cache stats --json".
func (e *TestEnv) CacheStats() (cache.Stats, error) {
	var stats cache.Stats
	out, err := e.Run("cache", "stats", "--json")
	if err != nil {
		return stats, err
	}
	err = json.Unmarshal([]byte(out), &stats)
	return stats, err
}
