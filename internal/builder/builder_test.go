package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	forgeerrors "github.com/HartBrook/promptforge/internal/errors"
	"github.com/HartBrook/promptforge/internal/examples"
	"github.com/HartBrook/promptforge/internal/prompt"
)

func fixedExamples(n int) []prompt.FewShotExample {
	out := make([]prompt.FewShotExample, n)
	for i := range out {
		out[i] = prompt.FewShotExample{Input: fmt.Sprintf("in-%d", i), Output: fmt.Sprintf("out-%d", i)}
	}
	return out
}

func longIdea() string {
	return "Design a service that exposes an api over grpc, stores results in a database, " +
		"retries failed writes, and reports metrics. Keep it small. Document the behaviour of each component."
}

func TestBuild_SimpleGenerate(t *testing.T) {
	b := New()

	obj, err := b.Build(context.Background(), prompt.Request{Idea: "Create a function", Mode: prompt.ModeNLAC})
	require.NoError(t, err)

	assert.Equal(t, prompt.IntentGenerate, obj.Intent)
	assert.Equal(t, prompt.ComplexitySimple, obj.Metadata.Complexity)
	assert.Equal(t, "simple_generate", obj.Metadata.Strategy)
	assert.Equal(t, "Developer", obj.Metadata.Role)
	assert.False(t, obj.Metadata.Elaborated)

	want := prompt.Constraints{MaxLength: 500, IncludeExamples: false, IncludeExplanation: false}
	if diff := cmp.Diff(want, obj.Constraints); diff != "" {
		t.Errorf("constraints mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, strings.HasPrefix(obj.Template, "You are a Developer."))
	assert.Contains(t, obj.Template, "## Task\nCreate a function")
	assert.LessOrEqual(t, prompt.Length(obj.Template), 500)
	assert.Equal(t, "nlac", obj.Metadata.Extra[ExtraMode])
}

func TestBuild_InvalidInput(t *testing.T) {
	called := false
	b := New(WithRetriever(examples.RetrieverFunc(func(context.Context, examples.Query) ([]prompt.FewShotExample, error) {
		called = true
		return nil, nil
	})))

	_, err := b.Build(context.Background(), prompt.Request{Idea: "  "})

	require.Error(t, err)
	assert.True(t, forgeerrors.IsCode(err, forgeerrors.ErrInputInvalid))
	assert.False(t, called, "retriever must not run for invalid input")
}

func TestBuild_RetrievalFailureIsNonFatal(t *testing.T) {
	b := New(WithRetriever(examples.RetrieverFunc(func(context.Context, examples.Query) ([]prompt.FewShotExample, error) {
		return nil, forgeerrors.RetrievalFailed(errors.New("index offline"))
	})))

	obj, err := b.Build(context.Background(), prompt.Request{Idea: "Create a function"})

	require.NoError(t, err)
	assert.True(t, obj.Metadata.RetrievalFailed)
	assert.Contains(t, obj.Metadata.RetrievalError, "index offline")
	assert.Equal(t, 0, obj.Metadata.ExampleCount)
}

func TestBuild_RetrieverQuery(t *testing.T) {
	tests := []struct {
		name            string
		req             prompt.Request
		wantK           int
		wantExpectedOut bool
	}{
		{name: "simple", req: prompt.Request{Idea: "Create a function"}, wantK: 3},
		{name: "complex", req: prompt.Request{Idea: longIdea()}, wantK: 5},
		{name: "refactor requires expected output", req: prompt.Request{Idea: "Refactor this loop"}, wantK: 3, wantExpectedOut: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got examples.Query
			b := New(WithRetriever(examples.RetrieverFunc(func(_ context.Context, q examples.Query) ([]prompt.FewShotExample, error) {
				got = q
				return nil, nil
			})))

			_, err := b.Build(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantK, got.K)
			assert.Equal(t, tt.wantExpectedOut, got.RequireExpected)
			assert.Equal(t, tt.req.Idea, got.Text)
		})
	}
}

func TestBuild_ComplexUsesElaboratedForm(t *testing.T) {
	b := New(WithRetriever(examples.RetrieverFunc(func(context.Context, examples.Query) ([]prompt.FewShotExample, error) {
		return fixedExamples(5), nil
	})))

	obj, err := b.Build(context.Background(), prompt.Request{Idea: longIdea()})
	require.NoError(t, err)

	assert.Equal(t, prompt.ComplexityComplex, obj.Metadata.Complexity)
	assert.Equal(t, "complex_generate", obj.Metadata.Strategy)
	assert.Equal(t, "Software Engineer", obj.Metadata.Role)
	assert.True(t, obj.Metadata.Elaborated)
	assert.Equal(t, 3, obj.Metadata.ExampleCount)

	restated := strings.Index(obj.Template, "## Understanding the Request")
	task := strings.Index(obj.Template, "## Task")
	require.GreaterOrEqual(t, restated, 0)
	assert.Less(t, restated, task, "restatement must come before the task body")
	assert.Contains(t, obj.Template, "in-2")
	assert.NotContains(t, obj.Template, "in-3")

	assert.Equal(t, 2000, obj.Constraints.MaxLength)
	assert.True(t, obj.Constraints.IncludeExamples)
	assert.True(t, obj.Constraints.IncludeExplanation)
	assert.True(t, prompt.HasExplanationIndicator(obj.Template))
}

func TestBuild_DirectFormIncludesAllExamples(t *testing.T) {
	b := New(WithRetriever(examples.RetrieverFunc(func(context.Context, examples.Query) ([]prompt.FewShotExample, error) {
		return fixedExamples(3), nil
	})))

	obj, err := b.Build(context.Background(), prompt.Request{Idea: "Create a function"})
	require.NoError(t, err)

	assert.Equal(t, 3, obj.Metadata.ExampleCount)
	for i := 0; i < 3; i++ {
		assert.Contains(t, obj.Template, fmt.Sprintf("Example %d:", i+1))
	}
}

func TestBuild_StructuredInputsAppendedVerbatim(t *testing.T) {
	inputs := &prompt.StructuredInputs{
		CodeSnippet:    "def foo(): return 1/0",
		ErrorLog:       "ZeroDivisionError: division by zero",
		TargetLanguage: "Python",
		Framework:      "FastAPI",
	}

	obj, err := New().Build(context.Background(), prompt.Request{Idea: "Make it work", Inputs: inputs})
	require.NoError(t, err)

	assert.Equal(t, prompt.IntentDebug, obj.Intent)
	assert.Contains(t, obj.Template, "```python\ndef foo(): return 1/0\n```")
	assert.Contains(t, obj.Template, "## Error\n```\nZeroDivisionError: division by zero\n```")
	assert.Contains(t, obj.Template, "Target: Python (framework: FastAPI)")
	assert.Equal(t, prompt.FormatCode, obj.Constraints.Format)
}

func TestBuild_NilInputs(t *testing.T) {
	assert.NotPanics(t, func() {
		_, err := New().Build(context.Background(), prompt.Request{Idea: "Explain closures", Inputs: nil})
		require.NoError(t, err)
	})
}

func TestBuild_ExplainStrategyIgnoresComplexity(t *testing.T) {
	for _, idea := range []string{"Explain closures", longIdea() + " Explain it."} {
		obj, err := New().Build(context.Background(), prompt.Request{Idea: idea})
		require.NoError(t, err)
		assert.Equal(t, "explain", obj.Metadata.Strategy)
	}
}

func TestStrategyAndRoleTablesAreComplete(t *testing.T) {
	for _, in := range prompt.Intents {
		for _, c := range prompt.Complexities {
			assert.NotEmpty(t, Strategy(in, c), "%s/%s", in, c)
			assert.NotEmpty(t, Role(in, c), "%s/%s", in, c)
		}
	}
	assert.Equal(t, "simple_debug", Strategy(prompt.IntentDebug, prompt.ComplexitySimple))
	assert.Equal(t, "complex_debug", Strategy(prompt.IntentDebug, prompt.ComplexityComplex))
	assert.Equal(t, "Senior Developer", Role(prompt.IntentGenerate, prompt.ComplexityModerate))
}
