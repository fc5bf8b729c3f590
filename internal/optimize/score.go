package optimize

import (
	"fmt"
	"strings"

	"github.com/HartBrook/promptforge/internal/prompt"
)

// MinMeaningfulLength is the shortest trimmed candidate that can pass.
const MinMeaningfulLength = 50

// feedbackPassed is the feedback of a candidate that passes every check.
const feedbackPassed = "all checks passed"

// Check is one applicable quality check and its outcome.
type Check struct {
	Name     string
	Passed   bool
	Feedback string
}

// Evaluation is the score of one candidate.
type Evaluation struct {
	Score    float64
	Feedback string
	Checks   []Check
}

// Evaluate scores text against constraints as passed / applicable checks.
// The minimum-length check always applies, so the score is well defined.
func Evaluate(text string, c prompt.Constraints) Evaluation {
	var checks []Check

	if c.MaxLength > 0 {
		n := prompt.Length(text)
		checks = append(checks, Check{
			Name:     "length",
			Passed:   n <= c.MaxLength,
			Feedback: fmt.Sprintf("exceeds length budget: %d > %d characters", n, c.MaxLength),
		})
	}
	if c.Format == prompt.FormatCode {
		checks = append(checks, Check{
			Name:     "format",
			Passed:   prompt.HasCodeMarker(text),
			Feedback: "missing code format marker",
		})
	}
	if c.IncludeExamples {
		checks = append(checks, Check{
			Name:     "example",
			Passed:   prompt.HasExampleIndicator(text),
			Feedback: "missing example",
		})
	}
	if c.IncludeExplanation {
		checks = append(checks, Check{
			Name:     "explanation",
			Passed:   prompt.HasExplanationIndicator(text),
			Feedback: "missing explanation",
		})
	}
	checks = append(checks, Check{
		Name:     "detail",
		Passed:   prompt.Length(strings.TrimSpace(text)) >= MinMeaningfulLength,
		Feedback: fmt.Sprintf("too short and unclear: fewer than %d meaningful characters", MinMeaningfulLength),
	})

	passed := 0
	var failures []string
	for _, ch := range checks {
		if ch.Passed {
			passed++
			continue
		}
		failures = append(failures, ch.Feedback)
	}

	feedback := feedbackPassed
	if len(failures) > 0 {
		feedback = strings.Join(failures, "; ")
	}

	return Evaluation{
		Score:    float64(passed) / float64(len(checks)),
		Feedback: feedback,
		Checks:   checks,
	}
}
