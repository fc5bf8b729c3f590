package optimize

import (
	"regexp"
	"strings"
)

// TidyStats records what Tidy changed.
type TidyStats struct {
	BlankLinesRemoved int
	DuplicatesRemoved int
	FillerStripped    int
	WrapperStripped   bool
}

var (
	blankRunPattern = regexp.MustCompile(`\n{3,}`)
	bulletPattern   = regexp.MustCompile(`^(\s*[-*+]\s+)(.+)$`)
	bulletPrefix    = regexp.MustCompile(`^(\s*[-*+]\s+)`)

	// preamblePattern matches chatter a model puts before the prompt itself.
	preamblePattern = regexp.MustCompile(`(?i)^(here is|here's|below is|sure[,!]?)[^\n]*(prompt|version)[^\n]*:\s*\n`)
)

// fillerPhrases add words without adding instructions.
var fillerPhrases = []string{
	"Please make sure to ",
	"Always make sure to ",
	"Make sure to ",
	"Make sure that ",
	"Please ensure that ",
	"Please ensure ",
	"It is important to ",
	"It's important to ",
	"Remember to always ",
	"Remember to ",
	"Be sure to ",
	"Don't forget to ",
}

// Tidy performs deterministic cleanup on a candidate prompt. Lines inside
// fenced code blocks are never touched.
func Tidy(text string) (string, TidyStats) {
	var stats TidyStats

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text, stats.WrapperStripped = stripWrapper(text)

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	seen := make(map[string]bool)
	inFence := false

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			out = append(out, strings.TrimRight(line, " \t"))
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}

		if strings.HasPrefix(line, "#") {
			seen = make(map[string]bool)
		}

		if m := bulletPattern.FindStringSubmatch(line); m != nil {
			key := strings.ToLower(strings.TrimSpace(m[2]))
			if seen[key] {
				stats.DuplicatesRemoved++
				continue
			}
			seen[key] = true
		}

		stripped, ok := stripFiller(line)
		if ok {
			stats.FillerStripped++
		}
		out = append(out, strings.TrimRight(stripped, " \t"))
	}

	text = strings.Join(out, "\n")
	before := strings.Count(text, "\n")
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	stats.BlankLinesRemoved = before - strings.Count(text, "\n")

	return strings.TrimSpace(text), stats
}

// stripWrapper removes a leading preamble line and a "---" or fence pair
// wrapped around the whole text.
func stripWrapper(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	changed := false

	if loc := preamblePattern.FindStringIndex(trimmed); loc != nil {
		trimmed = strings.TrimSpace(trimmed[loc[1]:])
		changed = true
	}

	for _, marker := range []string{"---", "```text", "```markdown", "```"} {
		if strings.HasPrefix(trimmed, marker+"\n") && strings.HasSuffix(trimmed, "\n"+closing(marker)) {
			inner := trimmed[len(marker)+1 : len(trimmed)-len(closing(marker))-1]
			if marker != "---" && strings.Contains(inner, "```") {
				continue
			}
			trimmed = strings.TrimSpace(inner)
			changed = true
			break
		}
	}

	return trimmed, changed
}

func closing(marker string) string {
	if strings.HasPrefix(marker, "```") {
		return "```"
	}
	return marker
}

// stripFiller removes at most one filler phrase from the start of a line or
// bullet and re-capitalizes what follows.
func stripFiller(line string) (string, bool) {
	prefix := ""
	rest := line
	if m := bulletPrefix.FindStringSubmatch(line); m != nil {
		prefix = m[1]
		rest = line[len(prefix):]
	}

	lower := strings.ToLower(rest)
	for _, phrase := range fillerPhrases {
		if !strings.HasPrefix(lower, strings.ToLower(phrase)) {
			continue
		}
		remaining := rest[len(phrase):]
		if remaining == "" {
			return line, false
		}
		return prefix + strings.ToUpper(remaining[:1]) + remaining[1:], true
	}
	return line, false
}
