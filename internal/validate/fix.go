package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/HartBrook/promptforge/internal/prompt"
)

// codeLine matches lines that look like source code.
var codeLine = regexp.MustCompile(`^\s*(def |class |func |function |fn |public |private |return\b|import |from \S+ import|const |let |var |if .*[:{]\s*$|for .*[:{]\s*$|}\s*$|.*\)\s*[{:]\s*$|.*;\s*$|.*=>)`)

// fix applies the deterministic corrections for the failed checks.
func fix(text, role string, rules markdownRules) string {
	if !prompt.HasRoleIndicator(text) {
		header := defaultRole
		if role != "" {
			header = fmt.Sprintf("You are a %s.", role)
		}
		text = header + "\n\n" + strings.TrimLeft(text, "\n")
	}

	switch {
	case rules.require && !prompt.HasCodeFence(text):
		text = fenceCode(text)
	case rules.prohibit && strings.Contains(text, "```"):
		text = stripFences(text)
	}

	return text
}

// fenceCode wraps each run of code-like lines in a fenced block. Indented
// lines directly after a code line stay in the run.
func fenceCode(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+4)
	inCode := false

	for _, line := range lines {
		isCode := codeLine.MatchString(line) || (inCode && strings.HasPrefix(line, " ") && strings.TrimSpace(line) != "") ||
			(inCode && strings.HasPrefix(line, "\t"))
		switch {
		case isCode && !inCode:
			out = append(out, "```")
			inCode = true
		case !isCode && inCode:
			out = append(out, "```")
			inCode = false
		}
		out = append(out, line)
	}
	if inCode {
		out = append(out, "```")
	}
	return strings.Join(out, "\n")
}

// stripFences removes fence lines and inline backticks.
func stripFences(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		out = append(out, strings.ReplaceAll(line, "`", ""))
	}
	return strings.Join(out, "\n")
}
