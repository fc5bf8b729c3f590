// Package validate checks prompt objects against their constraints and
// makes at most one correction attempt.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/HartBrook/promptforge/internal/errors"
	"github.com/HartBrook/promptforge/internal/llm"
	"github.com/HartBrook/promptforge/internal/prompt"
)

// MinLength is the shortest trimmed template that passes.
const MinLength = 20

// MaxRetries is the number of correction passes.
const MaxRetries = 1

// defaultRole heads templates that declare no role or task.
const defaultRole = "You are a helpful assistant."

var jsonIndicator = regexp.MustCompile(`(?i)\bjson\b`)

// Report is the outcome of one validation.
type Report = prompt.Validation

// Corrector rewrites a template to address warnings.
type Corrector interface {
	Correct(ctx context.Context, template string, warnings []string) (string, error)
}

// Validator checks templates and applies one correction pass.
type Validator struct {
	corrector Corrector
	logger    *zap.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithCorrector replaces deterministic fixes with a rewrite capability.
func WithCorrector(c Corrector) Option {
	return func(v *Validator) {
		v.corrector = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks obj and, when warnings exist, attempts one correction.
// An accepted correction replaces obj's template. Conflicting markdown rules
// are returned as an error instead of being resolved.
func (v *Validator) Validate(ctx context.Context, obj *prompt.PromptObject) (Report, error) {
	if obj == nil {
		return Report{}, errors.InputInvalid("prompt", "must not be nil")
	}
	rules, err := rulesFor(obj.Constraints)
	if err != nil {
		return Report{}, err
	}

	warnings := check(obj.Template, obj.Constraints, rules)
	if len(warnings) == 0 {
		return Report{Passed: true}, nil
	}

	report := Report{Warnings: warnings, Attempts: MaxRetries}

	corrected := v.correct(ctx, obj, warnings, rules)
	if corrected == obj.Template {
		v.logger.Debug("correction made no change", zap.String("id", obj.ID), zap.Strings("warnings", warnings))
		return report, nil
	}

	obj.SetTemplate(corrected)
	report.Corrected = true
	report.Warnings = check(corrected, obj.Constraints, rules)
	report.Passed = len(report.Warnings) == 0

	v.logger.Debug("validated after correction",
		zap.String("id", obj.ID),
		zap.Bool("passed", report.Passed),
		zap.Int("warnings", len(report.Warnings)))

	return report, nil
}

func (v *Validator) correct(ctx context.Context, obj *prompt.PromptObject, warnings []string, rules markdownRules) string {
	if v.corrector == nil {
		return fix(obj.Template, obj.Metadata.Role, rules)
	}

	rewritten, err := v.corrector.Correct(ctx, obj.Template, warnings)
	if err != nil {
		v.logger.Warn("corrector failed", zap.String("id", obj.ID), zap.Error(err))
		return obj.Template
	}
	if strings.TrimSpace(rewritten) == "" || strings.TrimSpace(rewritten) == strings.TrimSpace(obj.Template) {
		return obj.Template
	}
	return rewritten
}

// markdownRules are the effective markdown requirements of a constraint set.
type markdownRules struct {
	require  bool
	prohibit bool
}

func rulesFor(c prompt.Constraints) (markdownRules, error) {
	r := markdownRules{
		require:  c.RequireMarkdown || c.Format == prompt.FormatMarkdown,
		prohibit: c.ProhibitMarkdown || c.Format == prompt.FormatNoMarkdown,
	}
	if r.require && r.prohibit {
		return r, errors.ConstraintConflict("require_markdown", "prohibit_markdown")
	}
	return r, nil
}

// check returns one warning per failed check, in a fixed order.
func check(text string, c prompt.Constraints, rules markdownRules) []string {
	var warnings []string
	trimmed := strings.TrimSpace(text)

	if c.MaxLength > 0 {
		if n := prompt.Length(text); n > c.MaxLength {
			warnings = append(warnings, fmt.Sprintf("length %d exceeds max length %d", n, c.MaxLength))
		}
	}

	switch {
	case c.Format == prompt.FormatJSON:
		if !json.Valid([]byte(trimmed)) && !jsonIndicator.MatchString(text) {
			warnings = append(warnings, "JSON format required but the prompt is not JSON and does not ask for JSON")
		}
	case rules.require:
		if !prompt.HasCodeFence(text) {
			warnings = append(warnings, "markdown required but no fenced code block found")
		}
	case rules.prohibit:
		if strings.Contains(text, "```") {
			warnings = append(warnings, "markdown prohibited but a fenced code block was found")
		}
	}

	if c.IncludeExamples && !prompt.HasExampleIndicator(text) {
		warnings = append(warnings, "examples required but none found")
	}
	if c.IncludeExplanation && !prompt.HasExplanationIndicator(text) {
		warnings = append(warnings, "explanation required but not requested")
	}
	if prompt.Length(trimmed) < MinLength {
		warnings = append(warnings, fmt.Sprintf("prompt shorter than %d characters", MinLength))
	}
	if !prompt.HasRoleIndicator(text) {
		warnings = append(warnings, "no role or task indicator")
	}

	return warnings
}

// GeneratorCorrector asks a generator for a full rewrite.
type GeneratorCorrector struct {
	Generator llm.Generator
}

// Correct implements Corrector.
func (g GeneratorCorrector) Correct(ctx context.Context, template string, warnings []string) (string, error) {
	var b strings.Builder
	b.WriteString("Rewrite the prompt below so that none of these problems remain:\n")
	for _, w := range warnings {
		fmt.Fprintf(&b, "- %s\n", w)
	}
	b.WriteString("\nPROMPT:\n---\n")
	b.WriteString(template)
	b.WriteString("\n---\n\nOutput ONLY the rewritten prompt.")

	out, err := g.Generator.Generate(ctx, b.String())
	if err != nil {
		return "", errors.GenerationFailed("validator correction", err)
	}
	return strings.TrimSpace(out), nil
}
