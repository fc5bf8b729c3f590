package prompt

import "strings"

// Intent is the coarse purpose classification of a request.
type Intent string

const (
	IntentGenerate Intent = "GENERATE"
	IntentDebug    Intent = "DEBUG"
	IntentRefactor Intent = "REFACTOR"
	IntentExplain  Intent = "EXPLAIN"
)

// Intents lists every intent in declaration order.
var Intents = []Intent{IntentGenerate, IntentDebug, IntentRefactor, IntentExplain}

// SubIntent is the routing sub-tag produced alongside an Intent,
// e.g. "debug_runtime". It does not leave the classifier/builder boundary.
type SubIntent string

const (
	SubGenerate      SubIntent = "generate"
	SubDebugRuntime  SubIntent = "debug_runtime"
	SubDebug         SubIntent = "debug"
	SubDebugFrustr   SubIntent = "debug_frustrated"
	SubRefactorLogic SubIntent = "refactor_logic"
	SubRefactor      SubIntent = "refactor"
	SubExplain       SubIntent = "explain"
)

// IntentFromSubTag maps any sub-tag string to the four-way enumeration.
// Unknown or empty strings map to IntentGenerate.
func IntentFromSubTag(tag string) Intent {
	t := strings.ToLower(strings.TrimSpace(tag))
	switch {
	case t == "":
		return IntentGenerate
	case strings.HasPrefix(t, "debug"):
		return IntentDebug
	case strings.HasPrefix(t, "refactor"), strings.HasPrefix(t, "optimi"):
		return IntentRefactor
	case strings.HasPrefix(t, "explain"):
		return IntentExplain
	default:
		return IntentGenerate
	}
}

// Complexity is a three-way bucket describing how much scaffolding a
// request needs.
type Complexity string

const (
	ComplexitySimple   Complexity = "SIMPLE"
	ComplexityModerate Complexity = "MODERATE"
	ComplexityComplex  Complexity = "COMPLEX"
)

// Complexities lists every level in ascending order.
var Complexities = []Complexity{ComplexitySimple, ComplexityModerate, ComplexityComplex}

// FewShotExample is a retrieved past input/output pair. The core borrows
// examples for one call and never persists them.
type FewShotExample struct {
	Input          string `json:"input" yaml:"input"`
	Output         string `json:"output" yaml:"output"`
	ExpectedOutput string `json:"expected_output,omitempty" yaml:"expected_output,omitempty"`
	Intent         Intent `json:"intent,omitempty" yaml:"intent,omitempty"`
}

// HasExpected reports whether the example carries an expected-output field.
func (e FewShotExample) HasExpected() bool {
	return strings.TrimSpace(e.ExpectedOutput) != ""
}

// Iteration is one meta-optimization step.
type Iteration struct {
	Number     int     `json:"iteration"`
	MetaPrompt string  `json:"meta_prompt"`
	Candidate  string  `json:"candidate"`
	Score      float64 `json:"score"`
	Feedback   string  `json:"feedback"`
}

// Trajectory is the ordered history of one optimization run.
type Trajectory []Iteration

// Best returns the index of the highest-scoring entry, keeping the first
// on ties, or -1 for an empty trajectory.
func (t Trajectory) Best() int {
	best := -1
	for i, it := range t {
		if best == -1 || it.Score > t[best].Score {
			best = i
		}
	}
	return best
}

// RefinementResult is the outcome of the debug execute/feedback loop.
type RefinementResult struct {
	Candidate  string   `json:"candidate"`
	Iterations int      `json:"iteration_count"`
	Success    bool     `json:"success"`
	Errors     []string `json:"error_history"`
	LastError  string   `json:"last_error,omitempty"`
}
