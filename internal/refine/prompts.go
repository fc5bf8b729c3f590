package refine

import (
	"fmt"
	"strings"
)

// initialPrompt frames the debug prompt with the reported failure.
func initialPrompt(p Params) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(p.Prompt))
	b.WriteString("\n\n## Reported Failure\n")
	fmt.Fprintf(&b, "Kind: %s\n", strings.TrimSpace(p.ErrorKind))
	if msg := strings.TrimSpace(p.ErrorMessage); msg != "" {
		fmt.Fprintf(&b, "Message: %s\n", msg)
	}
	if code := strings.TrimSpace(p.CodeContext); code != "" {
		fmt.Fprintf(&b, "\n## Failing Code\n```\n%s\n```\n", code)
	}
	b.WriteString("\nReturn the corrected code in a single fenced block.")

	return b.String()
}

// feedbackPrompt folds the last failed attempt into the next request.
func feedbackPrompt(base, candidate, execErr string) string {
	return fmt.Sprintf("%s\n\n## Previous Attempt\n%s\n\n## Error\n%s\n\nThe previous attempt failed with the error above. Fix it.",
		base, strings.TrimSpace(candidate), strings.TrimSpace(execErr))
}
