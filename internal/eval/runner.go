package eval

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/HartBrook/promptforge/internal/pipeline"
	"github.com/HartBrook/promptforge/internal/prompt"
)

// Builder produces an outcome for a request. *pipeline.Pipeline satisfies it.
type Builder interface {
	BuildAndRefine(ctx context.Context, req prompt.Request) (*pipeline.Outcome, error)
}

// TestResult is the outcome of one test.
type TestResult struct {
	Name        string
	Description string
	Passed      bool
	Error       string // failed assertions joined by "; "
	Output      string // the built template
	Duration    time.Duration
}

// RunResult is the outcome of one eval.
type RunResult struct {
	EvalName   string
	Results    []TestResult
	TotalTests int
	Passed     int
	Failed     int
	Duration   time.Duration
}

// Runner executes evals against a Builder.
type Runner struct {
	builder Builder
	now     func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(b Builder) *Runner {
	return &Runner{builder: b, now: time.Now}
}

// Run executes every test in e in order. A canceled context stops the run;
// tests already finished are kept.
func (r *Runner) Run(ctx context.Context, e *Eval) (*RunResult, error) {
	start := r.now()
	result := &RunResult{EvalName: e.Name}

	for _, test := range e.Tests {
		if err := ctx.Err(); err != nil {
			result.Duration = r.now().Sub(start)
			return result, err
		}

		tr := r.runTest(ctx, test)
		result.Results = append(result.Results, tr)
		result.TotalTests++
		if tr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	result.Duration = r.now().Sub(start)
	return result, nil
}

func (r *Runner) runTest(ctx context.Context, test Test) TestResult {
	start := r.now()
	tr := TestResult{Name: test.Name, Description: test.Description}

	out, err := r.builder.BuildAndRefine(ctx, test.Request())
	tr.Duration = r.now().Sub(start)
	if err != nil {
		tr.Error = err.Error()
		return tr
	}

	tr.Output = out.Prompt.Template
	var failures []string
	for _, a := range test.Assert {
		if msg := check(a, out); msg != "" {
			failures = append(failures, msg)
		}
	}
	tr.Passed = len(failures) == 0
	tr.Error = strings.Join(failures, "; ")
	return tr
}

// check returns an empty string when a holds for out.
func check(a Assertion, out *pipeline.Outcome) string {
	obj := out.Prompt
	text := obj.Template

	switch a.Type {
	case AssertIntent:
		return equalFold("intent", string(obj.Intent), a.Value)
	case AssertStrategy:
		return equalFold("strategy", obj.Metadata.Strategy, a.Value)
	case AssertComplexity:
		return equalFold("complexity", string(obj.Metadata.Complexity), a.Value)
	case AssertRole:
		return equalFold("role", obj.Metadata.Role, a.Value)
	case AssertContains:
		s := fmt.Sprint(a.Value)
		if !strings.Contains(text, s) {
			return fmt.Sprintf("expected prompt to contain %q", s)
		}
	case AssertNotContains:
		s := fmt.Sprint(a.Value)
		if strings.Contains(text, s) {
			return fmt.Sprintf("expected prompt not to contain %q", s)
		}
	case AssertRegex:
		re, err := regexp.Compile(fmt.Sprint(a.Value))
		if err != nil {
			return fmt.Sprintf("invalid regex %q: %v", a.Value, err)
		}
		if !re.MatchString(text) {
			return fmt.Sprintf("expected prompt to match %q", a.Value)
		}
	case AssertMaxLength:
		limit, ok := a.Value.(int)
		if !ok {
			return "max-length needs an integer value"
		}
		if n := prompt.Length(text); n > limit {
			return fmt.Sprintf("prompt is %d characters, limit %d", n, limit)
		}
	case AssertValidated:
		want, ok := a.Value.(bool)
		if !ok {
			return "validated needs a boolean value"
		}
		if out.Validation.Passed != want {
			return fmt.Sprintf("validated = %v, want %v (warnings: %s)", out.Validation.Passed, want, strings.Join(out.Validation.Warnings, ", "))
		}
	default:
		return fmt.Sprintf("unknown assertion type %q", a.Type)
	}
	return ""
}

func equalFold(field, got string, want interface{}) string {
	w := fmt.Sprint(want)
	if !strings.EqualFold(got, w) {
		return fmt.Sprintf("%s = %q, want %q", field, got, w)
	}
	return ""
}
