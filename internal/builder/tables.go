package builder

import "github.com/HartBrook/promptforge/internal/prompt"

type key struct {
	intent     prompt.Intent
	complexity prompt.Complexity
}

// strategies maps (intent, complexity) to a strategy label.
var strategies = map[key]string{
	{prompt.IntentGenerate, prompt.ComplexitySimple}:   "simple_generate",
	{prompt.IntentGenerate, prompt.ComplexityModerate}: "moderate_generate",
	{prompt.IntentGenerate, prompt.ComplexityComplex}:  "complex_generate",
	{prompt.IntentDebug, prompt.ComplexitySimple}:      "simple_debug",
	{prompt.IntentDebug, prompt.ComplexityModerate}:    "moderate_debug",
	{prompt.IntentDebug, prompt.ComplexityComplex}:     "complex_debug",
	{prompt.IntentRefactor, prompt.ComplexitySimple}:   "simple_refactor",
	{prompt.IntentRefactor, prompt.ComplexityModerate}: "moderate_refactor",
	{prompt.IntentRefactor, prompt.ComplexityComplex}:  "complex_refactor",
	{prompt.IntentExplain, prompt.ComplexitySimple}:    "explain",
	{prompt.IntentExplain, prompt.ComplexityModerate}:  "explain",
	{prompt.IntentExplain, prompt.ComplexityComplex}:   "explain",
}

// roles escalates seniority with complexity.
var roles = map[key]string{
	{prompt.IntentGenerate, prompt.ComplexitySimple}:   "Developer",
	{prompt.IntentGenerate, prompt.ComplexityModerate}: "Senior Developer",
	{prompt.IntentGenerate, prompt.ComplexityComplex}:  "Software Engineer",
	{prompt.IntentDebug, prompt.ComplexitySimple}:      "Debugging Assistant",
	{prompt.IntentDebug, prompt.ComplexityModerate}:    "Senior Debugging Engineer",
	{prompt.IntentDebug, prompt.ComplexityComplex}:     "Principal Debugging Engineer",
	{prompt.IntentRefactor, prompt.ComplexitySimple}:   "Code Reviewer",
	{prompt.IntentRefactor, prompt.ComplexityModerate}: "Senior Code Reviewer",
	{prompt.IntentRefactor, prompt.ComplexityComplex}:  "Software Architect",
	{prompt.IntentExplain, prompt.ComplexitySimple}:    "Technical Tutor",
	{prompt.IntentExplain, prompt.ComplexityModerate}:  "Senior Technical Educator",
	{prompt.IntentExplain, prompt.ComplexityComplex}:   "Staff Engineer and Educator",
}

// maxLengths is the character budget per complexity level.
var maxLengths = map[prompt.Complexity]int{
	prompt.ComplexitySimple:   500,
	prompt.ComplexityModerate: 1000,
	prompt.ComplexityComplex:  2000,
}

// instructions are appended to every template for the intent.
var instructions = map[prompt.Intent]string{
	prompt.IntentGenerate: "Write working code that solves the task.",
	prompt.IntentDebug:    "Find the root cause, then give a minimal fix.",
	prompt.IntentRefactor: "Change structure, not behavior; keep outputs identical.",
	prompt.IntentExplain:  "Explain the concept clearly, from fundamentals up.",
}

// Strategy returns the strategy label for an intent and complexity.
func Strategy(intent prompt.Intent, c prompt.Complexity) string {
	if s, ok := strategies[key{intent, c}]; ok {
		return s
	}
	return strategies[key{prompt.IntentGenerate, c}]
}

// Role returns the persona for an intent and complexity.
func Role(intent prompt.Intent, c prompt.Complexity) string {
	if r, ok := roles[key{intent, c}]; ok {
		return r
	}
	return "Developer"
}

// exampleCount is k for the retriever.
func exampleCount(c prompt.Complexity) int {
	if c == prompt.ComplexityComplex {
		return 5
	}
	return 3
}
