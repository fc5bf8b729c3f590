package optimize

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HartBrook/promptforge/internal/errors"
	"github.com/HartBrook/promptforge/internal/examples"
	"github.com/HartBrook/promptforge/internal/llm"
	"github.com/HartBrook/promptforge/internal/prompt"
)

func newObject(template string, c prompt.Constraints) *prompt.PromptObject {
	obj := prompt.NewPromptObject(prompt.IntentGenerate, template)
	obj.Constraints = c
	return obj
}

const goodTemplate = "You are a Developer.\n\n## Task\nWrite a function that parses ISO dates and returns a time value."

func TestOptimize_PassingTemplateStopsAtFirstIteration(t *testing.T) {
	obj := newObject(goodTemplate, prompt.Constraints{MaxLength: 500})

	res, err := New().Optimize(context.Background(), obj)

	require.NoError(t, err)
	assert.True(t, res.EarlyStopped)
	assert.Equal(t, 1, res.Iterations)
	require.Len(t, res.Trajectory, 1)
	assert.Equal(t, goodTemplate, res.Text)
	assert.Equal(t, 1.0, res.Score)
}

func TestOptimize_HeuristicFixesShortTemplate(t *testing.T) {
	obj := newObject("Write code", prompt.Constraints{MaxLength: 500})

	res, err := New().Optimize(context.Background(), obj)

	require.NoError(t, err)
	assert.True(t, res.EarlyStopped)
	assert.Equal(t, 2, res.Iterations)
	assert.Less(t, res.Iterations, DefaultMaxIterations)
	require.Len(t, res.Trajectory, 2)
	assert.Equal(t, 0.5, res.Trajectory[0].Score)
	assert.Contains(t, res.Trajectory[0].Feedback, "unclear")
	assert.Equal(t, res.Trajectory[1].Candidate, res.Text)

	assert.Equal(t, 1.0, res.Score)
	assert.True(t, strings.HasPrefix(res.Text, "## Goal"))
	assert.Contains(t, res.Text, "Write code")
	assert.Contains(t, res.Text, "## Details")
	assert.Equal(t, "Write code", obj.Template, "input object must not change")
}

func TestOptimize_HeuristicTruncatesToBudget(t *testing.T) {
	long := "You are a Developer.\n" + strings.Repeat("Handle every input carefully.\n", 12)
	obj := newObject(long, prompt.Constraints{MaxLength: 120})

	res, err := New().Optimize(context.Background(), obj)

	require.NoError(t, err)
	assert.True(t, res.EarlyStopped)
	assert.LessOrEqual(t, prompt.Length(res.Text), 120)
	assert.True(t, strings.HasPrefix(res.Text, "You are a Developer."))
}

func TestOptimize_HeuristicAddsMissingSections(t *testing.T) {
	obj := newObject(goodTemplate, prompt.Constraints{
		MaxLength:          1000,
		Format:             prompt.FormatCode,
		IncludeExamples:    true,
		IncludeExplanation: true,
	})

	res, err := New().Optimize(context.Background(), obj)

	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
	assert.Contains(t, res.Text, "## Output Format")
	assert.Contains(t, res.Text, "## Example")
	assert.Contains(t, res.Text, "## Explanation")
}

func TestOptimize_GeneratorUsesMetaPrompt(t *testing.T) {
	var metaPrompts []string
	gen := llm.GeneratorFunc(func(_ context.Context, p string) (string, error) {
		metaPrompts = append(metaPrompts, p)
		return "Here is the improved prompt:\n---\nYou are a Developer. Write a function that parses dates. Include an example of input and output.\n---", nil
	})
	retriever := examples.RetrieverFunc(func(_ context.Context, q examples.Query) ([]prompt.FewShotExample, error) {
		assert.Equal(t, maxExemplars, q.K)
		return []prompt.FewShotExample{{Input: "parse 2024-01-01", Output: "time.Date(2024, 1, 1)"}}, nil
	})
	obj := newObject("Write code", prompt.Constraints{MaxLength: 500, IncludeExamples: true})

	res, err := New(WithGenerator(gen), WithRetriever(retriever)).Optimize(context.Background(), obj)

	require.NoError(t, err)
	require.Len(t, metaPrompts, 1)
	assert.Contains(t, metaPrompts[0], "Attempt 1 (score 0.33)")
	assert.Contains(t, metaPrompts[0], "CURRENT PROMPT:\n---\nWrite code\n---")
	assert.Contains(t, metaPrompts[0], "Input: parse 2024-01-01")
	assert.Contains(t, metaPrompts[0], "Include or request an example")

	assert.True(t, res.EarlyStopped)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, 1.0, res.Score)
	assert.True(t, strings.HasPrefix(res.Text, "You are a Developer."))
}

func TestOptimize_BestCandidateWinsAndTiesKeepFirst(t *testing.T) {
	gen := llm.GeneratorFunc(func(context.Context, string) (string, error) {
		return "tiny", nil
	})
	obj := newObject("Write code", prompt.Constraints{MaxLength: 500})

	res, err := New(WithGenerator(gen)).Optimize(context.Background(), obj)

	require.NoError(t, err)
	assert.False(t, res.EarlyStopped)
	assert.Equal(t, DefaultMaxIterations, res.Iterations)
	require.Len(t, res.Trajectory, DefaultMaxIterations)
	assert.NotEmpty(t, res.Trajectory[1].MetaPrompt)

	best := res.Trajectory.Best()
	assert.Equal(t, 0, best)
	assert.Equal(t, res.Trajectory[best].Score, res.Score)
	assert.Equal(t, "Write code", res.Text)
}

func TestOptimize_GeneratorFailureAborts(t *testing.T) {
	gen := llm.GeneratorFunc(func(context.Context, string) (string, error) {
		return "", context.DeadlineExceeded
	})
	obj := newObject("Write code", prompt.Constraints{MaxLength: 500})

	res, err := New(WithGenerator(gen)).Optimize(context.Background(), obj)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.IsCode(err, errors.ErrGenerationFailed))
	assert.True(t, errors.IsTransient(err))
}

func TestOptimize_LostAnchorsFallBackToHeuristics(t *testing.T) {
	gen := llm.GeneratorFunc(func(context.Context, string) (string, error) {
		return "You are a Developer. Fix the configuration loader so that it handles missing files.", nil
	})
	obj := newObject("Fix ./config/loader.go", prompt.Constraints{MaxLength: 500})

	res, err := New(WithGenerator(gen)).Optimize(context.Background(), obj)

	require.NoError(t, err)
	assert.Contains(t, res.Text, "./config/loader.go")
	assert.Equal(t, 1.0, res.Score)
}

func TestOptimize_NilObject(t *testing.T) {
	_, err := New().Optimize(context.Background(), nil)

	assert.True(t, errors.IsCode(err, errors.ErrInputInvalid))
}

func TestOptions_IgnoreInvalidValues(t *testing.T) {
	o := New(WithMaxIterations(0), WithThreshold(1.5), WithLogger(nil), WithRetriever(nil))

	assert.Equal(t, DefaultMaxIterations, o.maxIterations)
	assert.Equal(t, DefaultThreshold, o.threshold)
	assert.NotNil(t, o.logger)
	assert.NotNil(t, o.retriever)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		constraints  prompt.Constraints
		wantScore    float64
		wantFeedback []string
	}{
		{
			name:         "all pass",
			text:         goodTemplate,
			constraints:  prompt.Constraints{MaxLength: 500},
			wantScore:    1.0,
			wantFeedback: []string{feedbackPassed},
		},
		{
			name:         "too long",
			text:         goodTemplate,
			constraints:  prompt.Constraints{MaxLength: 20},
			wantScore:    0.5,
			wantFeedback: []string{"length"},
		},
		{
			name:         "missing code marker",
			text:         goodTemplate,
			constraints:  prompt.Constraints{MaxLength: 500, Format: prompt.FormatCode},
			wantScore:    2.0 / 3.0,
			wantFeedback: []string{"format"},
		},
		{
			name:         "missing example and explanation",
			text:         goodTemplate,
			constraints:  prompt.Constraints{IncludeExamples: true, IncludeExplanation: true},
			wantScore:    1.0 / 3.0,
			wantFeedback: []string{"example", "explanation"},
		},
		{
			name:         "only minimum length applies",
			text:         "short",
			constraints:  prompt.Constraints{},
			wantScore:    0,
			wantFeedback: []string{"short", "unclear"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Evaluate(tt.text, tt.constraints)

			assert.InDelta(t, tt.wantScore, ev.Score, 1e-9)
			for _, f := range tt.wantFeedback {
				assert.Contains(t, ev.Feedback, f)
			}
		})
	}
}
