package optimize

import (
	"regexp"
	"sort"
	"strings"
)

// Anchors are details of a prompt a rewrite must keep. Strict anchors are
// project-specific (paths, commands, code definitions); soft anchors are tool
// names a rewrite may rephrase.
type Anchors struct {
	Strict []string
	Soft   []string
}

var (
	pathPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:^|[\s"'(])(/[a-zA-Z][a-zA-Z0-9_\-./]*)`),
		regexp.MustCompile(`(?:^|[\s"'(])(\.\.?/[a-zA-Z0-9_\-./]+)`),
		regexp.MustCompile(`(?:^|[\s"'(])(~/[a-zA-Z0-9_\-./]+)`),
		regexp.MustCompile(`(?:^|[\s"'(])([a-zA-Z][a-zA-Z0-9_\-]*\.(?:yaml|yml|json|toml|py|go|ts|js|rs|java|rb|sql))\b`),
	}

	inlineCodePattern = regexp.MustCompile("`([^`\n]+)`")
	fenceBodyPattern  = regexp.MustCompile("(?s)```[a-zA-Z]*\n(.*?)```")
	definitionPattern = regexp.MustCompile(`(?:\bdef|\bclass|\bfunc|\bfunction|\bfn)\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
	versionPattern    = regexp.MustCompile(`^v?\d+\.\d+`)
)

// knownTools are matched as soft anchors.
var knownTools = []string{
	"pytest", "ruff", "black", "mypy", "pip", "poetry", "django", "flask", "fastapi",
	"gofmt", "golangci-lint", "go test", "go build",
	"npm", "yarn", "pnpm", "eslint", "prettier", "jest", "vitest", "tsc",
	"cargo", "clippy",
	"git", "docker", "make", "curl",
}

// commandPrefixes mark inline code as a shell command.
var commandPrefixes = []string{
	"npm ", "yarn ", "pnpm ", "go ", "cargo ", "python ", "pip ", "git ", "docker ", "make", "curl ",
}

// genericNames are illustrative identifiers not worth preserving.
var genericNames = map[string]bool{
	"main": true, "foo": true, "bar": true, "baz": true, "test": true,
	"handler": true, "helper": true, "run": true, "init": true,
}

// extractAnchors collects the anchors of text, deduplicated and sorted.
func extractAnchors(text string) Anchors {
	var a Anchors
	seen := make(map[string]bool)
	add := func(dst *[]string, s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			*dst = append(*dst, s)
		}
	}

	for _, re := range pathPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			p := strings.TrimRight(m[1], ".")
			if len(p) > 2 && !versionPattern.MatchString(p) {
				add(&a.Strict, p)
			}
		}
	}

	for _, m := range inlineCodePattern.FindAllStringSubmatch(text, -1) {
		if cmd := strings.TrimSpace(m[1]); looksLikeCommand(cmd) {
			add(&a.Strict, cmd)
		}
	}

	for _, body := range fenceBodyPattern.FindAllStringSubmatch(text, -1) {
		for _, m := range definitionPattern.FindAllStringSubmatch(body[1], -1) {
			if !genericNames[strings.ToLower(m[1])] {
				add(&a.Strict, m[1])
			}
		}
	}

	lower := strings.ToLower(text)
	for _, tool := range knownTools {
		if containsWord(lower, tool) {
			add(&a.Soft, tool)
		}
	}

	sort.Strings(a.Strict)
	sort.Strings(a.Soft)
	return a
}

// missingAnchors reports which anchors of original are absent from candidate,
// compared case-insensitively.
func missingAnchors(original, candidate string) (strict, soft []string) {
	a := extractAnchors(original)
	lower := strings.ToLower(candidate)
	for _, s := range a.Strict {
		if !strings.Contains(lower, strings.ToLower(s)) {
			strict = append(strict, s)
		}
	}
	for _, s := range a.Soft {
		if !strings.Contains(lower, s) {
			soft = append(soft, s)
		}
	}
	return strict, soft
}

func looksLikeCommand(s string) bool {
	if len(s) < 2 || len(s) > 100 {
		return false
	}
	lower := strings.ToLower(s)
	for _, p := range commandPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	first := strings.Fields(lower)[0]
	for _, tool := range knownTools {
		if first == tool {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], word)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(word)
		if (start == 0 || !isWordByte(text[start-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
