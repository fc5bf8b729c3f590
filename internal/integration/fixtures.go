package integration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HartBrook/promptforge/internal/config"
)

// Fixture represents a test scenario loaded from YAML.
type Fixture struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Setup       FixtureSetup      `yaml:"setup"`
	Request     RequestSetup      `yaml:"request"`
	Runs        int               `yaml:"runs"` // identical builds to run, default 1
	Assertions  FixtureAssertions `yaml:"assertions"`
}

// FixtureSetup defines the test environment setup.
type FixtureSetup struct {
	Config   *ConfigSetup `yaml:"config"`
	Examples string       `yaml:"examples"` // example bank YAML
	Model    []Reply      `yaml:"model"`    // scripted model replies; none means no API key
}

// ConfigSetup overrides the default promptforge config.yaml.
type ConfigSetup struct {
	CacheBackend        string `yaml:"cache_backend"`
	CacheDisabled       bool   `yaml:"cache_disabled"`
	DebugIterations     int    `yaml:"debug_iterations"`
	Execute             *bool  `yaml:"execute"`
	OptimizerIterations int    `yaml:"optimizer_iterations"`
	ModelAssisted       bool   `yaml:"model_assisted"`
}

// RequestSetup describes the build invocation.
type RequestSetup struct {
	Idea      string `yaml:"idea"`
	Context   string `yaml:"context"`
	Mode      string `yaml:"mode"`
	Code      string `yaml:"code"`
	CodeFile  string `yaml:"code_file"` // file name for Code, default "snippet.txt"
	ErrorLog  string `yaml:"error_log"`
	Language  string `yaml:"language"`
	Framework string `yaml:"framework"`
	Offline   bool   `yaml:"offline"`
}

// FixtureAssertions defines what to verify.
type FixtureAssertions struct {
	Intent       string            `yaml:"intent"`
	Complexity   string            `yaml:"complexity"`
	Strategy     string            `yaml:"strategy"`
	Role         string            `yaml:"role"`
	MinExamples  int               `yaml:"min_examples"`
	Extra        map[string]string `yaml:"extra"`
	ExtraPresent []string          `yaml:"extra_present"`
	Contains     []string          `yaml:"contains"`
	NotContains  []string          `yaml:"not_contains"`
	Candidate    []string          `yaml:"candidate_contains"` // refined debug candidate
	ModelCalls   *int              `yaml:"model_calls"`
	Cache        *CacheCheck       `yaml:"cache"`
}

// CacheCheck verifies the durable cache after all runs.
type CacheCheck struct {
	Entries int `yaml:"entries"`
	Hits    int `yaml:"hits"`
}

// LoadFixture loads a fixture from a YAML file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, err
	}

	if err := fixture.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture %s: %w", path, err)
	}

	if fixture.Runs == 0 {
		fixture.Runs = 1
	}
	return &fixture, nil
}

// Validate checks that the fixture has all required fields.
func (f *Fixture) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("missing required field: name")
	}
	if strings.TrimSpace(f.Request.Idea) == "" {
		return fmt.Errorf("missing required field: request.idea")
	}
	if f.Runs < 0 {
		return fmt.Errorf("runs must not be negative")
	}
	if f.Assertions.ModelCalls != nil && *f.Assertions.ModelCalls > 0 && len(f.Setup.Model) == 0 {
		return fmt.Errorf("model_calls asserted without setup.model")
	}
	return nil
}

// LoadAllFixtures loads all fixtures from a directory.
func LoadAllFixtures(dir string) ([]*Fixture, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var fixtures []*Fixture
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".yaml" && filepath.Ext(name) != ".yml" {
			continue
		}

		fixture, err := LoadFixture(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, fixture)
	}

	return fixtures, nil
}

// ToConfig converts fixture config setup to a config.Config.
func (c *ConfigSetup) ToConfig() *config.Config {
	cfg := config.Default()
	if c == nil {
		return cfg
	}

	if c.CacheBackend != "" {
		cfg.Cache.Backend = c.CacheBackend
	}
	if c.CacheDisabled {
		disabled := false
		cfg.Cache.Enabled = &disabled
	}
	if c.DebugIterations > 0 {
		cfg.Debug.MaxIterations = c.DebugIterations
	}
	if c.Execute != nil {
		execute := *c.Execute
		cfg.Debug.Execute = &execute
	}
	if c.OptimizerIterations > 0 {
		cfg.Optimizer.MaxIterations = c.OptimizerIterations
	}
	cfg.Validator.ModelAssisted = c.ModelAssisted

	return cfg
}

// ApplySetup applies the fixture setup to a test environment. The model
// starts first so the written config points at it.
func ApplySetup(env *TestEnv, setup FixtureSetup) error {
	if len(setup.Model) > 0 {
		env.StartModel(setup.Model...)
	}

	if setup.Examples != "" {
		if err := env.SetupExamples(setup.Examples); err != nil {
			return err
		}
	}

	return env.SetupConfig(setup.Config.ToConfig())
}

// Args writes the request's attachments into env and returns the build
// arguments that follow the idea.
func (r RequestSetup) Args(env *TestEnv) ([]string, error) {
	var args []string

	if r.Context != "" {
		args = append(args, "--context", r.Context)
	}
	if r.Mode != "" {
		args = append(args, "--mode", r.Mode)
	}
	if r.Code != "" {
		name := r.CodeFile
		if name == "" {
			name = "snippet.txt"
		}
		path, err := env.WriteFile(name, r.Code)
		if err != nil {
			return nil, err
		}
		args = append(args, "--code-file", path)
	}
	if r.ErrorLog != "" {
		path, err := env.WriteFile("error.log", r.ErrorLog)
		if err != nil {
			return nil, err
		}
		args = append(args, "--error-file", path)
	}
	if r.Language != "" {
		args = append(args, "--language", r.Language)
	}
	if r.Framework != "" {
		args = append(args, "--framework", r.Framework)
	}
	if r.Offline {
		args = append(args, "--offline")
	}

	return args, nil
}
