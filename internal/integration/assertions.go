package integration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HartBrook/promptforge/internal/prompt"
)

// Asserter checks a built prompt object.
type Asserter struct {
	t   *testing.T
	obj *prompt.PromptObject
}

// NewAsserter creates an asserter for obj.
func NewAsserter(t *testing.T, obj *prompt.PromptObject) *Asserter {
	return &Asserter{t: t, obj: obj}
}

// ContainsText checks if the template contains text.
func (a *Asserter) ContainsText(text string) bool {
	return strings.Contains(a.obj.Template, text)
}

// ExtraValue returns the metadata annotation for key.
func (a *Asserter) ExtraValue(key string) (string, bool) {
	v, ok := a.obj.Metadata.Extra[key]
	return v, ok
}

// RunAssertions runs the prompt-level assertions of a fixture. Model call
// counts and cache state are checked by the caller, which owns the env.
func (a *Asserter) RunAssertions(assertions FixtureAssertions) {
	a.t.Helper()

	if assertions.Intent != "" {
		assert.Equal(a.t, assertions.Intent, string(a.obj.Intent), "intent")
	}
	if assertions.Complexity != "" {
		assert.Equal(a.t, assertions.Complexity, string(a.obj.Metadata.Complexity), "complexity")
	}
	if assertions.Strategy != "" {
		assert.Equal(a.t, assertions.Strategy, a.obj.Metadata.Strategy, "strategy")
	}
	if assertions.Role != "" {
		assert.Equal(a.t, assertions.Role, a.obj.Metadata.Role, "role")
	}
	if assertions.MinExamples > 0 {
		assert.GreaterOrEqual(a.t, a.obj.Metadata.ExampleCount, assertions.MinExamples, "example count")
	}

	for key, want := range assertions.Extra {
		got, ok := a.ExtraValue(key)
		if assert.True(a.t, ok, "missing extra %q", key) {
			assert.Equal(a.t, want, got, "extra %q", key)
		}
	}
	for _, key := range assertions.ExtraPresent {
		v, ok := a.ExtraValue(key)
		assert.True(a.t, ok && v != "", "extra %q should be set", key)
	}

	for _, text := range assertions.Contains {
		assert.True(a.t, a.ContainsText(text), "template should contain %q", text)
	}
	for _, text := range assertions.NotContains {
		assert.False(a.t, a.ContainsText(text), "template should not contain %q", text)
	}
	for _, text := range assertions.Candidate {
		assert.Contains(a.t, a.obj.Metadata.RefinedCandidate, text, "refined candidate")
	}
}
