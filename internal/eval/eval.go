// Package eval runs YAML-defined regression suites against the prompt
// pipeline: each test is a request plus assertions about the prompt it
// produces.
package eval

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HartBrook/promptforge/internal/prompt"
)

// Assertion types.
const (
	AssertIntent      = "intent"
	AssertStrategy    = "strategy"
	AssertComplexity  = "complexity"
	AssertRole        = "role"
	AssertContains    = "contains"
	AssertNotContains = "not-contains"
	AssertRegex       = "regex"
	AssertMaxLength   = "max-length"
	AssertValidated   = "validated"
)

// ValidAssertionTypes lists all supported assertion types.
var ValidAssertionTypes = []string{
	AssertIntent,
	AssertStrategy,
	AssertComplexity,
	AssertRole,
	AssertContains,
	AssertNotContains,
	AssertRegex,
	AssertMaxLength,
	AssertValidated,
}

// ValidationLevel indicates the severity of a validation issue.
type ValidationLevel string

const (
	ValidationLevelError   ValidationLevel = "error"
	ValidationLevelWarning ValidationLevel = "warning"
)

// ValidationError represents a single validation issue.
type ValidationError struct {
	Field   string          // e.g., "tests[0].assert[0].type"
	Message string          // Human-readable error message
	Level   ValidationLevel // error or warning
}

// Eval is a named suite of tests.
type Eval struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags,omitempty"`
	Tests       []Test   `yaml:"tests"`

	FilePath string `yaml:"-"`
}

// Test is one request and what its prompt must look like.
type Test struct {
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description,omitempty"`
	Idea        string                   `yaml:"idea"`
	Context     string                   `yaml:"context,omitempty"`
	Mode        prompt.Mode              `yaml:"mode,omitempty"`
	Inputs      *prompt.StructuredInputs `yaml:"inputs,omitempty"`
	Assert      []Assertion              `yaml:"assert"`
}

// Request converts the test into a pipeline request.
func (t Test) Request() prompt.Request {
	return prompt.Request{Idea: t.Idea, Context: t.Context, Mode: t.Mode, Inputs: t.Inputs}
}

// Assertion is a single check on a built prompt.
type Assertion struct {
	Type  string      `yaml:"type"`
	Value interface{} `yaml:"value"`
}

// Parse parses an eval from YAML content.
func Parse(content, filePath string) (*Eval, error) {
	var eval Eval
	if err := yaml.Unmarshal([]byte(content), &eval); err != nil {
		return nil, fmt.Errorf("invalid eval YAML: %w", err)
	}

	if eval.Name == "" {
		return nil, fmt.Errorf("eval must have a 'name' field")
	}
	if len(eval.Tests) == 0 {
		return nil, fmt.Errorf("eval must have at least one test")
	}

	for i, test := range eval.Tests {
		if test.Name == "" {
			return nil, fmt.Errorf("test %d must have a 'name' field", i+1)
		}
		if strings.TrimSpace(test.Idea) == "" {
			return nil, fmt.Errorf("test '%s' must have an 'idea' field", test.Name)
		}
		if len(test.Assert) == 0 {
			return nil, fmt.Errorf("test '%s' must have at least one assertion", test.Name)
		}
	}

	eval.FilePath = filePath
	return &eval, nil
}

// ParseFile parses an eval from a file.
func ParseFile(path string) (*Eval, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read eval file: %w", err)
	}
	return Parse(string(content), path)
}

// Load reads a single eval file, or every .yaml/.yml file in a directory.
// Files in a directory that fail to parse are returned as skipped errors.
func Load(path string) ([]*Eval, []error, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read evals: %w", err)
	}
	if !info.IsDir() {
		e, err := ParseFile(path)
		if err != nil {
			return nil, nil, err
		}
		return []*Eval{e}, nil, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read evals directory: %w", err)
	}

	var evals []*Eval
	var skipped []error
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		file := filepath.Join(path, entry.Name())
		e, err := ParseFile(file)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%s: %w", file, err))
			continue
		}
		evals = append(evals, e)
	}
	return evals, skipped, nil
}

// HasTag checks if the eval has a specific tag.
func (e *Eval) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// FilterTests returns a copy of the eval with only matching tests.
// testFilter can be a test name or a prefix pattern ending with *.
func (e *Eval) FilterTests(testFilter string) *Eval {
	if testFilter == "" {
		return e
	}

	var filtered []Test
	isPrefix := strings.HasSuffix(testFilter, "*")
	prefix := strings.TrimSuffix(testFilter, "*")

	for _, t := range e.Tests {
		if (isPrefix && strings.HasPrefix(t.Name, prefix)) || t.Name == testFilter {
			filtered = append(filtered, t)
		}
	}

	if len(filtered) == 0 {
		return nil
	}

	result := *e
	result.Tests = filtered
	return &result
}

// Validate collects every issue in the eval, including warnings that Parse
// lets through.
func (e *Eval) Validate() []ValidationError {
	var errs []ValidationError

	if e.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "eval must have a name", Level: ValidationLevelError})
	} else if !validName.MatchString(e.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "name should contain only lowercase letters, numbers, and hyphens",
			Level:   ValidationLevelWarning,
		})
	}

	if e.Description == "" {
		errs = append(errs, ValidationError{Field: "description", Message: "eval should have a description", Level: ValidationLevelWarning})
	}

	if len(e.Tests) == 0 {
		errs = append(errs, ValidationError{Field: "tests", Message: "eval must have at least one test", Level: ValidationLevelError})
	}

	seen := make(map[string]bool)
	for i, test := range e.Tests {
		field := fmt.Sprintf("tests[%d]", i)
		if test.Name == "" {
			errs = append(errs, ValidationError{Field: field + ".name", Message: "test must have a name", Level: ValidationLevelError})
		} else if seen[test.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate test name %q", test.Name),
				Level:   ValidationLevelWarning,
			})
		}
		seen[test.Name] = true

		if strings.TrimSpace(test.Idea) == "" {
			errs = append(errs, ValidationError{Field: field + ".idea", Message: "test must have an idea", Level: ValidationLevelError})
		}
		for j, a := range test.Assert {
			errs = append(errs, validateAssertion(fmt.Sprintf("%s.assert[%d]", field, j), a)...)
		}
	}

	return errs
}

var validName = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func validateAssertion(field string, a Assertion) []ValidationError {
	if !isValidAssertionType(a.Type) {
		msg := fmt.Sprintf("unknown assertion type %q", a.Type)
		if s := suggestAssertionType(a.Type); s != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", s)
		}
		return []ValidationError{{Field: field + ".type", Message: msg, Level: ValidationLevelError}}
	}

	switch a.Type {
	case AssertMaxLength:
		if _, ok := a.Value.(int); !ok {
			return []ValidationError{{Field: field + ".value", Message: "max-length needs an integer value", Level: ValidationLevelError}}
		}
	case AssertValidated:
		if _, ok := a.Value.(bool); !ok {
			return []ValidationError{{Field: field + ".value", Message: "validated needs a boolean value", Level: ValidationLevelError}}
		}
	case AssertRegex:
		s, _ := a.Value.(string)
		if _, err := regexp.Compile(s); err != nil || s == "" {
			return []ValidationError{{Field: field + ".value", Message: "regex needs a valid pattern", Level: ValidationLevelError}}
		}
	default:
		if s, ok := a.Value.(string); !ok || s == "" {
			return []ValidationError{{Field: field + ".value", Message: a.Type + " needs a string value", Level: ValidationLevelError}}
		}
	}
	return nil
}

func isValidAssertionType(t string) bool {
	for _, v := range ValidAssertionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// suggestAssertionType maps common misspellings to a valid type.
func suggestAssertionType(t string) string {
	norm := strings.ToLower(strings.NewReplacer("_", "-", " ", "-").Replace(t))
	for _, v := range ValidAssertionTypes {
		if v == norm {
			return v
		}
	}
	if norm == "notcontains" || norm == "not-contain" {
		return AssertNotContains
	}
	return ""
}

// HasErrors reports whether any issue is an error.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Level == ValidationLevelError {
			return true
		}
	}
	return false
}
