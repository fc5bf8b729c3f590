// Package complexity scores how much scaffolding a request needs.
package complexity

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/HartBrook/promptforge/internal/prompt"
)

// Signal weights. They sum to 1.0.
const (
	WeightLength     = 0.4
	WeightTechnical  = 0.3
	WeightStructure  = 0.2
	WeightHasContext = 0.1
)

// Thresholds and caps.
const (
	SimpleBelow      = 0.25
	ComplexAtOrAbove = 0.6

	// Ideas longer than this are COMPLEX regardless of the weighted score.
	OverrideLength = 300

	technicalCap   = 5
	punctuationCap = 10
)

// technicalTerms is matched with word boundaries so "apis" in "capis" never counts.
var technicalTerms = compileTerms(
	"api", "rest", "graphql", "grpc", "http", "database", "sql", "nosql", "query",
	"cache", "redis", "queue", "kafka", "async", "concurrency", "thread", "goroutine",
	"mutex", "lock", "microservice", "kubernetes", "docker", "container", "deploy",
	"authentication", "authorization", "oauth", "jwt", "encryption", "algorithm",
	"recursion", "regex", "parser", "compiler", "schema", "migration", "index",
	"latency", "throughput", "scalability", "pagination", "websocket", "middleware",
	"interface", "generic", "closure", "callback", "promise", "stream", "pipeline",
	"orm", "transaction", "serialization", "json", "yaml", "protobuf", "binary tree",
	"hash map", "linked list", "big o", "machine learning", "neural network",
)

func compileTerms(terms ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(terms))
	for _, t := range terms {
		out = append(out, regexp.MustCompile(`\b`+regexp.QuoteMeta(t)+`\b`))
	}
	return out
}

// Breakdown exposes the individual signals behind a level.
type Breakdown struct {
	Length      float64
	Technical   float64
	Structure   float64
	HasContext  float64
	Score       float64
	Overridden  bool
	Level       prompt.Complexity
	TermMatches int
}

// Analyze returns the complexity level of a request. It is a pure function of
// (idea, context).
func Analyze(idea, context string) prompt.Complexity {
	return Score(idea, context).Level
}

// Score computes the weighted signals and the resulting level.
func Score(idea, context string) Breakdown {
	var b Breakdown

	n := prompt.Length(idea)
	switch {
	case n > 150:
		b.Length = 1.0
	case n > 50:
		b.Length = 0.5
	default:
		b.Length = 0
	}

	text := cases.Fold().String(idea + " " + context)
	for _, re := range technicalTerms {
		b.TermMatches += len(re.FindAllStringIndex(text, -1))
	}
	b.Technical = capped(float64(b.TermMatches) / technicalCap)

	punct := strings.Count(idea, ",") + strings.Count(idea, ".") + strings.Count(idea, ";")
	b.Structure = capped(float64(punct) / punctuationCap)

	if strings.TrimSpace(context) != "" {
		b.HasContext = 1.0
	}

	b.Score = WeightLength*b.Length +
		WeightTechnical*b.Technical +
		WeightStructure*b.Structure +
		WeightHasContext*b.HasContext

	switch {
	case n > OverrideLength:
		b.Level = prompt.ComplexityComplex
		b.Overridden = true
	case b.Score >= ComplexAtOrAbove:
		b.Level = prompt.ComplexityComplex
	case b.Score >= SimpleBelow:
		b.Level = prompt.ComplexityModerate
	default:
		b.Level = prompt.ComplexitySimple
	}

	return b
}

func capped(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}
