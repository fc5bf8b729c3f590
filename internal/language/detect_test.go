package language

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		expected []string
	}{
		{
			name:     "empty project",
			files:    []string{},
			expected: []string{},
		},
		{
			name:     "go project",
			files:    []string{"go.mod"},
			expected: []string{"go"},
		},
		{
			name:     "python project with pyproject.toml",
			files:    []string{"pyproject.toml"},
			expected: []string{"python"},
		},
		{
			name:     "python project with requirements.txt",
			files:    []string{"requirements.txt"},
			expected: []string{"python"},
		},
		{
			name:     "typescript project",
			files:    []string{"package.json", "tsconfig.json"},
			expected: []string{"typescript"},
		},
		{
			name:     "javascript project",
			files:    []string{"package.json"},
			expected: []string{"javascript"},
		},
		{
			name:     "rust project",
			files:    []string{"Cargo.toml"},
			expected: []string{"rust"},
		},
		{
			name:     "java maven project",
			files:    []string{"pom.xml"},
			expected: []string{"java"},
		},
		{
			name:     "ruby project",
			files:    []string{"Gemfile"},
			expected: []string{"ruby"},
		},
		{
			name:     "multi-language project",
			files:    []string{"go.mod", "pyproject.toml"},
			expected: []string{"go", "python"},
		},
		{
			name:     "typescript supersedes javascript",
			files:    []string{"package.json", "tsconfig.json"},
			expected: []string{"typescript"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create temp directory
			tmpDir := t.TempDir()

			// Create marker files
			for _, file := range tt.files {
				path := filepath.Join(tmpDir, file)
				if err := os.WriteFile(path, []byte{}, 0644); err != nil {
					t.Fatalf("failed to create file %s: %v", file, err)
				}
			}

			// Detect languages
			detected, err := Detect(tmpDir)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}

			// Check results
			if len(detected) != len(tt.expected) {
				t.Errorf("Detect() = %v, expected %v", detected, tt.expected)
				return
			}

			for i, lang := range detected {
				if lang != tt.expected[i] {
					t.Errorf("Detect()[%d] = %v, expected %v", i, lang, tt.expected[i])
				}
			}
		})
	}
}

func TestFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
		ok       bool
	}{
		{"main.go", "Go", true},
		{"/src/app/views.PY", "Python", true},
		{"component.tsx", "TypeScript", true},
		{"lib.rs", "Rust", true},
		{"Makefile", "", false},
		{"", "", false},
		{"notes.txt", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			lang, ok := FromPath(tt.path)
			if ok != tt.ok {
				t.Fatalf("FromPath(%q) ok = %v, expected %v", tt.path, ok, tt.ok)
			}
			if ok && lang.DisplayName != tt.expected {
				t.Errorf("FromPath(%q) = %q, expected %q", tt.path, lang.DisplayName, tt.expected)
			}
		})
	}
}

func TestFromSnippet(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected string
	}{
		{"go package", "package main\n\nfunc main() {}", "go"},
		{"go short assign", "x := compute()", "go"},
		{"rust", "fn main() {\n    let mut v = Vec::new();\n}", "rust"},
		{"python def", "def add(a, b):\n    return a - b", "python"},
		{"python import", "import os\nprint(os.getcwd())", "python"},
		{"typescript", "interface User {\n  name: string\n}", "typescript"},
		{"java", "public class Main {}", "java"},
		{"javascript arrow", "const add = (a, b) => a + b;", "javascript"},
		{"ruby", "def greet\n  puts 'hi'\nend", "ruby"},
		{"unknown", "SELECT * FROM users", ""},
		{"blank", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, ok := FromSnippet(tt.code)
			got := ""
			if ok {
				got = lang.ID
			}
			if got != tt.expected {
				t.Errorf("FromSnippet(%q) = %q, expected %q", tt.code, got, tt.expected)
			}
		})
	}
}

func TestInfer(t *testing.T) {
	goProject := t.TempDir()
	if err := os.WriteFile(filepath.Join(goProject, "go.mod"), []byte("module x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	mixedProject := t.TempDir()
	for _, f := range []string{"go.mod", "pyproject.toml"} {
		if err := os.WriteFile(filepath.Join(mixedProject, f), []byte{}, 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name     string
		path     string
		code     string
		root     string
		expected string
	}{
		{"extension wins", "script.py", "package main", goProject, "Python"},
		{"snippet when no extension", "", "def f():\n    pass", goProject, "Python"},
		{"single project language", "", "SELECT 1", goProject, "Go"},
		{"ambiguous project", "", "SELECT 1", mixedProject, ""},
		{"nothing known", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Infer(tt.path, tt.code, tt.root); got != tt.expected {
				t.Errorf("Infer() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestGetDisplayName(t *testing.T) {
	tests := []struct {
		id       string
		expected string
	}{
		{"python", "Python"},
		{"go", "Go"},
		{"typescript", "TypeScript"},
		{"javascript", "JavaScript"},
		{"csharp", "C#"},
		{"unknown", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			result := GetDisplayName(tt.id)
			if result != tt.expected {
				t.Errorf("GetDisplayName(%q) = %q, expected %q", tt.id, result, tt.expected)
			}
		})
	}
}

func TestGetLanguage(t *testing.T) {
	// Test existing language
	lang := GetLanguage("python")
	if lang == nil {
		t.Error("GetLanguage(\"python\") returned nil")
	} else if lang.ID != "python" {
		t.Errorf("GetLanguage(\"python\").ID = %q, expected \"python\"", lang.ID)
	}

	// Test non-existent language
	lang = GetLanguage("nonexistent")
	if lang != nil {
		t.Errorf("GetLanguage(\"nonexistent\") = %v, expected nil", lang)
	}
}
