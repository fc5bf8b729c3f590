// Package language infers the target language of a request from its
// attachments and surroundings.
package language

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Language represents a supported programming language.
type Language struct {
	ID          string   // "python", "go", "typescript"
	DisplayName string   // "Python", "Go", "TypeScript"
	Extensions  []string // Source file extensions, with the dot
	Markers     []string // Project marker files
}

// SupportedLanguages lists all languages promptforge can infer.
var SupportedLanguages = []Language{
	{ID: "python", DisplayName: "Python", Extensions: []string{".py"}, Markers: []string{"pyproject.toml", "setup.py", "requirements.txt", "Pipfile", "poetry.lock"}},
	{ID: "go", DisplayName: "Go", Extensions: []string{".go"}, Markers: []string{"go.mod"}},
	{ID: "typescript", DisplayName: "TypeScript", Extensions: []string{".ts", ".tsx"}, Markers: []string{"tsconfig.json"}},
	{ID: "javascript", DisplayName: "JavaScript", Extensions: []string{".js", ".jsx", ".mjs"}, Markers: []string{"package.json"}},
	{ID: "rust", DisplayName: "Rust", Extensions: []string{".rs"}, Markers: []string{"Cargo.toml"}},
	{ID: "java", DisplayName: "Java", Extensions: []string{".java"}, Markers: []string{"pom.xml", "build.gradle"}},
	{ID: "ruby", DisplayName: "Ruby", Extensions: []string{".rb"}, Markers: []string{"Gemfile"}},
	{ID: "csharp", DisplayName: "C#", Extensions: []string{".cs"}, Markers: []string{"*.csproj", "*.sln"}},
	{ID: "swift", DisplayName: "Swift", Extensions: []string{".swift"}, Markers: []string{"Package.swift"}},
	{ID: "kotlin", DisplayName: "Kotlin", Extensions: []string{".kt", ".kts"}, Markers: []string{"build.gradle.kts"}},
}

// snippetSignatures are checked in order; the first match wins.
var snippetSignatures = []struct {
	id string
	re *regexp.Regexp
}{
	{"go", regexp.MustCompile(`(?m)^package \w+\s*$|^func (\(\w+ \*?\w+\) )?\w+\(|:= `)},
	{"rust", regexp.MustCompile(`(?m)^\s*(pub )?fn \w+|let mut |impl \w+`)},
	{"python", regexp.MustCompile(`(?m)^\s*def \w+\(.*\):|^\s*(from \w+ )?import \w+\s*$|^\s*class \w+(\(.*\))?:`)},
	{"typescript", regexp.MustCompile(`(?m)^\s*(export )?(interface|type) \w+ |: (string|number|boolean)\b`)},
	{"java", regexp.MustCompile(`(?m)public (static )?(class|void) \w+`)},
	{"javascript", regexp.MustCompile(`(?m)\bfunction \w*\(|=> |\bconst \w+ = |console\.log\(`)},
	{"ruby", regexp.MustCompile(`(?m)^\s*def \w+[^(:]*$|^\s*end\s*$`)},
}

// Detect scans projectRoot for language marker files.
// Returns a sorted list of detected language IDs.
func Detect(projectRoot string) ([]string, error) {
	detected := make(map[string]bool)

	for _, lang := range SupportedLanguages {
		for _, marker := range lang.Markers {
			if containsWildcard(marker) {
				matches, err := filepath.Glob(filepath.Join(projectRoot, marker))
				if err == nil && len(matches) > 0 {
					detected[lang.ID] = true
					break
				}
			} else if _, err := os.Stat(filepath.Join(projectRoot, marker)); err == nil {
				detected[lang.ID] = true
				break
			}
		}
	}

	// TypeScript supersedes JavaScript
	if detected["typescript"] {
		delete(detected, "javascript")
	}

	result := make([]string, 0, len(detected))
	for lang := range detected {
		result = append(result, lang)
	}
	sort.Strings(result)
	return result, nil
}

// FromPath infers the language of a source file from its extension.
func FromPath(path string) (*Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil, false
	}
	for i := range SupportedLanguages {
		for _, e := range SupportedLanguages[i].Extensions {
			if e == ext {
				return &SupportedLanguages[i], true
			}
		}
	}
	return nil, false
}

// FromSnippet guesses the language of a code snippet from its syntax.
func FromSnippet(code string) (*Language, bool) {
	if strings.TrimSpace(code) == "" {
		return nil, false
	}
	for _, sig := range snippetSignatures {
		if sig.re.MatchString(code) {
			return GetLanguage(sig.id), true
		}
	}
	return nil, false
}

// Infer picks a display name for the target language: the code file's
// extension first, then the snippet's syntax, then a single language
// detected in projectRoot. Empty means unknown.
func Infer(codePath, code, projectRoot string) string {
	if lang, ok := FromPath(codePath); ok {
		return lang.DisplayName
	}
	if lang, ok := FromSnippet(code); ok {
		return lang.DisplayName
	}
	if projectRoot == "" {
		return ""
	}
	if detected, err := Detect(projectRoot); err == nil && len(detected) == 1 {
		return GetDisplayName(detected[0])
	}
	return ""
}

// GetLanguage returns the Language struct for a given ID.
func GetLanguage(id string) *Language {
	for i := range SupportedLanguages {
		if SupportedLanguages[i].ID == id {
			return &SupportedLanguages[i]
		}
	}
	return nil
}

// GetDisplayName returns the display name for a language ID.
func GetDisplayName(id string) string {
	if lang := GetLanguage(id); lang != nil {
		return lang.DisplayName
	}
	return cases.Title(language.English).String(id)
}

// containsWildcard checks if a pattern contains glob wildcards.
func containsWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}
