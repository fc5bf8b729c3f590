package complexity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HartBrook/promptforge/internal/prompt"
)

func TestAnalyze_Simple(t *testing.T) {
	assert.Equal(t, prompt.ComplexitySimple, Analyze("Create a function", ""))
}

func TestAnalyze_ModerateWithContext(t *testing.T) {
	// 60 chars, no terms, no punctuation: 0.4*0.5 + 0.1 = 0.3
	idea := strings.Repeat("word ", 12)
	b := Score(idea, "some background")

	assert.InDelta(t, 0.5, b.Length, 1e-9)
	assert.InDelta(t, 1.0, b.HasContext, 1e-9)
	assert.InDelta(t, 0.3, b.Score, 1e-9)
	assert.Equal(t, prompt.ComplexityModerate, b.Level)
}

func TestAnalyze_Complex(t *testing.T) {
	idea := "Design a service that exposes an api over grpc, stores results in a database, " +
		"retries failed writes, and reports metrics. Keep it small. Document the behaviour of each component."
	b := Score(idea, "")

	assert.Greater(t, prompt.Length(idea), 150)
	assert.LessOrEqual(t, prompt.Length(idea), OverrideLength)
	assert.GreaterOrEqual(t, b.TermMatches, 3)
	assert.False(t, b.Overridden)
	assert.Equal(t, prompt.ComplexityComplex, b.Level)
}

func TestAnalyze_LengthOverride(t *testing.T) {
	idea := strings.Repeat("a", OverrideLength+1)
	b := Score(idea, "")

	assert.True(t, b.Overridden)
	assert.Less(t, b.Score, ComplexAtOrAbove, "weighted score alone would not reach COMPLEX")
	assert.Equal(t, prompt.ComplexityComplex, b.Level)
}

func TestScore_TechnicalTermsUseWordBoundaries(t *testing.T) {
	b := Score("Build a capital sequel", "")
	assert.Equal(t, 0, b.TermMatches, "'api' in 'capital' and 'sql' nowhere must not count")

	b = Score("Expose a REST API backed by SQL", "")
	assert.Equal(t, 3, b.TermMatches)
}

func TestScore_Caps(t *testing.T) {
	idea := "api api api api api api api, . ; , . ; , . ; , . ;"
	b := Score(idea, "")

	assert.InDelta(t, 1.0, b.Technical, 1e-9)
	assert.InDelta(t, 1.0, b.Structure, 1e-9)
}

func TestAnalyze_Deterministic(t *testing.T) {
	idea := "Implement pagination for the orders endpoint, with caching."
	ctx := "Used by the mobile app"

	assert.Equal(t, Analyze(idea, ctx), Analyze(idea, ctx))
	assert.Equal(t, Score(idea, ctx), Score(idea, ctx))
}

func TestAnalyze_BlankContextDoesNotCount(t *testing.T) {
	assert.InDelta(t, 0.0, Score("x", "   \n").HasContext, 1e-9)
}
