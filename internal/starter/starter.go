// Package starter provides the example bank and eval suites that ship with
// promptforge.
package starter

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/HartBrook/promptforge/internal/eval"
	"github.com/HartBrook/promptforge/internal/examples"
)

//go:embed examples.yaml
var examplesYAML []byte

//go:embed evals/*.yaml
var evalsFS embed.FS

// Bank returns the built-in example bank.
func Bank() (*examples.Bank, error) {
	return examples.ParseBank(examplesYAML)
}

// BootstrapExamples writes the built-in example bank to path unless a file
// already exists there. It reports whether the file was written.
func BootstrapExamples(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create examples directory: %w", err)
	}
	if err := os.WriteFile(path, examplesYAML, 0644); err != nil {
		return false, fmt.Errorf("failed to write example bank: %w", err)
	}
	return true, nil
}

// EvalNames returns the list of available starter eval names.
func EvalNames() []string {
	entries, err := evalsFS.ReadDir("evals")
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if ext := filepath.Ext(entry.Name()); !entry.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, entry.Name()[:len(entry.Name())-len(ext)])
		}
	}
	return names
}

// Evals parses every starter eval.
func Evals() ([]*eval.Eval, error) {
	entries, err := evalsFS.ReadDir("evals")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded evals: %w", err)
	}

	var out []*eval.Eval
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := "evals/" + entry.Name()
		content, err := evalsFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		e, err := eval.Parse(string(content), name)
		if err != nil {
			return nil, fmt.Errorf("starter eval %s: %w", entry.Name(), err)
		}
		out = append(out, e)
	}
	return out, nil
}

// BootstrapEvals copies starter evals to the target directory.
// It skips files that already exist. Returns the names of the files copied.
func BootstrapEvals(targetDir string) ([]string, error) {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create evals directory: %w", err)
	}

	entries, err := evalsFS.ReadDir("evals")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded evals: %w", err)
	}

	var installed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		targetPath := filepath.Join(targetDir, entry.Name())
		if _, err := os.Stat(targetPath); err == nil {
			continue
		}

		content, err := evalsFS.ReadFile("evals/" + entry.Name())
		if err != nil {
			return installed, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(targetPath, content, 0644); err != nil {
			return installed, fmt.Errorf("failed to write %s: %w", entry.Name(), err)
		}
		installed = append(installed, entry.Name())
	}

	return installed, nil
}
