package optimize

import (
	"fmt"
	"strings"

	"github.com/HartBrook/promptforge/internal/prompt"
)

// historyWindow is how many recent attempts a meta-prompt shows.
const historyWindow = 2

// maxExemplars caps reference examples in a meta-prompt.
const maxExemplars = 2

// buildMetaPrompt asks the generator to improve current given recent
// attempts and their feedback.
func buildMetaPrompt(current string, c prompt.Constraints, history prompt.Trajectory, exemplars []prompt.FewShotExample) string {
	var b strings.Builder

	b.WriteString("Improve the prompt below so that it satisfies every constraint.\n\n")

	b.WriteString("CONSTRAINTS:\n")
	for _, line := range constraintLines(c) {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	fmt.Fprintf(&b, "- At least %d characters of real instructions\n\n", MinMeaningfulLength)

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	if len(history) > 0 {
		b.WriteString("RECENT ATTEMPTS:\n")
		for _, it := range history {
			fmt.Fprintf(&b, "Attempt %d (score %.2f): %s\n", it.Number, it.Score, it.Feedback)
		}
		b.WriteString("\n")
	}

	if len(exemplars) > maxExemplars {
		exemplars = exemplars[:maxExemplars]
	}
	if len(exemplars) > 0 {
		b.WriteString("REFERENCE EXAMPLES:\n")
		for _, ex := range exemplars {
			fmt.Fprintf(&b, "Input: %s\nOutput: %s\n\n", ex.Input, ex.Output)
		}
	}

	b.WriteString("CURRENT PROMPT:\n---\n")
	b.WriteString(current)
	b.WriteString("\n---\n\n")
	b.WriteString("Keep every file path, command and code identifier. Output ONLY the improved prompt.")

	return b.String()
}

func constraintLines(c prompt.Constraints) []string {
	var lines []string
	if c.MaxLength > 0 {
		lines = append(lines, fmt.Sprintf("At most %d characters", c.MaxLength))
	}
	switch c.Format {
	case prompt.FormatCode:
		lines = append(lines, "Ask for the answer as code in a fenced block")
	case prompt.FormatJSON:
		lines = append(lines, "Ask for the answer as JSON")
	}
	if c.RequireMarkdown {
		lines = append(lines, "Use markdown structure")
	}
	if c.ProhibitMarkdown {
		lines = append(lines, "Use no markdown")
	}
	if c.IncludeExamples {
		lines = append(lines, "Include or request an example")
	}
	if c.IncludeExplanation {
		lines = append(lines, "Ask for an explanation of the reasoning")
	}
	return lines
}
