// Package intent classifies requests into a discrete intent category.
//
// Classification runs structural rules first (attached inputs, expected-behavior
// phrasing in the context), then keyword heuristics over the idea and context.
// It is a pure function: no I/O and no hidden state.
package intent

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/HartBrook/promptforge/internal/prompt"
)

// Rule names the classification rule that produced a Decision.
type Rule string

const (
	RuleStructuralDebug  Rule = "structural_code_and_error"
	RuleExpectedBehavior Rule = "structural_expected_behavior"
	RuleExplain          Rule = "keyword_explain"
	RuleRefactor         Rule = "keyword_refactor"
	RuleDebugFrustrated  Rule = "keyword_debug_frustration"
	RuleDebug            Rule = "keyword_debug"
	RuleDefault          Rule = "default"
)

// Decision is the classifier's output.
type Decision struct {
	Intent prompt.Intent
	Sub    prompt.SubIntent
	Rule   Rule
}

// patternTable is an ordered list of compiled patterns.
type patternTable []*regexp.Regexp

func (t patternTable) match(text string) bool {
	for _, re := range t {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// words compiles each term as a case-insensitive whole-word pattern.
func words(terms ...string) patternTable {
	table := make(patternTable, 0, len(terms))
	for _, term := range terms {
		table = append(table, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(term)+`\b`))
	}
	return table
}

func compileAll(patterns ...string) patternTable {
	table := make(patternTable, 0, len(patterns))
	for _, p := range patterns {
		table = append(table, regexp.MustCompile(`(?i)`+p))
	}
	return table
}

var (
	// Context phrases that describe expected vs. actual behavior.
	expectedBehavior = words(
		"expected", "should output", "should return", "but it",
		"esperado", "esperaba", "debería", "pero devuelve", "pero retorna", // es
		"deveria", "mas ele", "mas retorna", // pt
	)

	explainKeywords = words(
		"explain", "what is", "what are", "how does", "how do", "why does", "why is",
		"describe", "understand", "clarify", "walk me through", "meaning of",
		"explica", "explicar", "explique",
	)

	refactorKeywords = words(
		"refactor", "refactoring", "optimize", "optimise", "improve", "clean up",
		"cleanup", "restructure", "simplify", "rewrite", "modernize", "deduplicate",
		"refactorizar", "optimizar", "melhorar",
	)

	performanceKeywords = words(
		"performance", "faster", "speed up", "slow", "latency", "throughput",
		"memory usage", "efficient", "efficiency", "bottleneck",
	)

	debugKeywords = words(
		"debug", "fix", "bug", "error", "exception", "crash", "crashes", "broken",
		"traceback", "stack trace", "panic", "segfault", "failing", "fails", "issue",
		"depurar", "erro",
	)

	frustrationPatterns = compileAll(
		`\b(doesn'?t|does not|won'?t|will not|isn'?t|is not)\s+work`,
		`\bnot working\b`,
		`\b(always|keeps?|still)\s+(fail|fails|failing|crash|crashes|crashing|broken)\b`,
		`\bnothing works\b`,
		`\bno funciona\b`,
		`\bnão funciona\b`,
		`\bwhy (won'?t|doesn'?t|does not|can'?t)\b`,
	)
)

// Classify maps a request to an intent decision. It never fails: when no rule
// matches, the default is GENERATE.
func Classify(req prompt.Request) Decision {
	// Structural rule A fires regardless of wording.
	if req.Inputs.HasCode() && req.Inputs.HasErrorLog() {
		return Decision{Intent: prompt.IntentDebug, Sub: prompt.SubDebugRuntime, Rule: RuleStructuralDebug}
	}

	ctx := fold(req.Context)
	if ctx != "" && expectedBehavior.match(ctx) {
		return Decision{Intent: prompt.IntentRefactor, Sub: prompt.SubRefactorLogic, Rule: RuleExpectedBehavior}
	}

	text := fold(strings.TrimSpace(req.Idea + " " + req.Context))

	switch {
	case explainKeywords.match(text):
		return Decision{Intent: prompt.IntentExplain, Sub: prompt.SubExplain, Rule: RuleExplain}
	case refactorKeywords.match(text) || performanceKeywords.match(text):
		return Decision{Intent: prompt.IntentRefactor, Sub: prompt.SubRefactor, Rule: RuleRefactor}
	case debugKeywords.match(text) && frustrationPatterns.match(text):
		return Decision{Intent: prompt.IntentDebug, Sub: prompt.SubDebugFrustr, Rule: RuleDebugFrustrated}
	case debugKeywords.match(text):
		return Decision{Intent: prompt.IntentDebug, Sub: prompt.SubDebug, Rule: RuleDebug}
	default:
		return Decision{Intent: prompt.IntentGenerate, Sub: prompt.SubGenerate, Rule: RuleDefault}
	}
}

// fold case-folds text for matching. A Caser is stateful, so one is created
// per call.
func fold(s string) string {
	if s == "" {
		return ""
	}
	return cases.Fold().String(s)
}
