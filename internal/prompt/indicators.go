package prompt

import (
	"regexp"
	"strings"
)

// Indicator tables shared by the optimizer's scorer and the validator.
var (
	exampleIndicators = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bexamples?\b`),
		regexp.MustCompile(`(?i)\be\.g\.`),
		regexp.MustCompile(`(?i)\bfor instance\b`),
		regexp.MustCompile(`(?i)\bsample (input|output)\b`),
	}

	explanationIndicators = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bexplain\w*\b`),
		regexp.MustCompile(`(?i)\bexplanation\b`),
		regexp.MustCompile(`(?i)\breason(ing)?\b`),
		regexp.MustCompile(`(?i)\brationale\b`),
		regexp.MustCompile(`(?i)\bstep[- ]by[- ]step\b`),
		regexp.MustCompile(`(?i)\bbecause\b`),
	}

	roleIndicators = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\byou are\b`),
		regexp.MustCompile(`(?i)\bact as\b`),
		regexp.MustCompile(`(?i)\byour (task|role|job)\b`),
		regexp.MustCompile(`(?im)^#+\s*(role|task)\b`),
	}

	fencePattern = regexp.MustCompile("(?s)```[^\\n]*\\n.*?```")
)

func anyMatch(table []*regexp.Regexp, text string) bool {
	for _, re := range table {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// HasExampleIndicator reports whether text shows or asks for an example.
func HasExampleIndicator(text string) bool { return anyMatch(exampleIndicators, text) }

// HasExplanationIndicator reports whether text shows or asks for an explanation.
func HasExplanationIndicator(text string) bool { return anyMatch(explanationIndicators, text) }

// HasRoleIndicator reports whether text declares a role or a task.
func HasRoleIndicator(text string) bool { return anyMatch(roleIndicators, text) }

// HasCodeFence reports whether text contains a complete fenced code block.
func HasCodeFence(text string) bool { return fencePattern.MatchString(text) }

// HasCodeMarker reports whether text contains any code marker: a fence,
// inline code, or an indented code line.
func HasCodeMarker(text string) bool {
	if strings.Contains(text, "```") || strings.Contains(text, "`") {
		return true
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "    ") && strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}
