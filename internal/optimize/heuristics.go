package optimize

import (
	"strings"

	"github.com/HartBrook/promptforge/internal/prompt"
)

// Sections added by heuristic refinement.
const (
	clarificationHeader = "## Goal\nProduce a complete answer for the task below and state any assumption you make.\n\n"
	detailSection       = "## Details\nDescribe the expected inputs and outputs, then the edge cases to handle."
	formatSection       = "## Output Format\nReturn the code in a single fenced block using ``` markers."
	exampleSection      = "## Example\nShow one short example of the expected input and output."
	explanationSection  = "## Explanation\nExplain the reasoning behind the solution."
)

// improve applies a deterministic edit for each kind of feedback. Length is
// handled last so added sections survive truncation.
func improve(text string, feedback string, c prompt.Constraints) string {
	fb := strings.ToLower(feedback)
	body := text

	if strings.Contains(fb, "unclear") && !strings.HasPrefix(body, "## Goal") {
		body = clarificationHeader + body
	}

	var sections []string
	if strings.Contains(fb, "short") {
		sections = append(sections, detailSection)
	}
	if strings.Contains(fb, "format") {
		sections = append(sections, formatSection)
	}
	if strings.Contains(fb, "example") {
		sections = append(sections, exampleSection)
	}
	if strings.Contains(fb, "explanation") {
		sections = append(sections, explanationSection)
	}

	suffix := ""
	if len(sections) > 0 {
		suffix = "\n\n" + strings.Join(sections, "\n\n")
	}

	if c.MaxLength > 0 && prompt.Length(body+suffix) > c.MaxLength {
		budget := c.MaxLength - prompt.Length(suffix)
		if budget <= 0 {
			return truncateRunes(body+suffix, c.MaxLength)
		}
		body = truncateAtLine(body, budget)
	}

	return body + suffix
}

// truncateAtLine cuts text to at most n runes, preferring a line break.
func truncateAtLine(text string, n int) string {
	cut := truncateRunes(text, n)
	if len(cut) == len(text) {
		return text
	}
	if i := strings.LastIndex(cut, "\n"); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \n")
}

func truncateRunes(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}
