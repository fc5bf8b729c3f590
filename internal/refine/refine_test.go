package refine

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HartBrook/promptforge/internal/errors"
	"github.com/HartBrook/promptforge/internal/executor"
	"github.com/HartBrook/promptforge/internal/llm"
)

// scriptedGenerator records prompts and returns numbered candidates.
type scriptedGenerator struct {
	prompts []string
	failAt  int
}

func (g *scriptedGenerator) Generate(_ context.Context, p string) (string, error) {
	g.prompts = append(g.prompts, p)
	if g.failAt == len(g.prompts) {
		return "", stderrors.New("model unavailable")
	}
	return "candidate-" + string(rune('0'+len(g.prompts))), nil
}

func failingExecutor(failures int) (executor.Executor, *int) {
	calls := 0
	return executor.Func(func(context.Context, string) error {
		calls++
		if calls <= failures {
			return errors.ExecutionFailed("ZeroDivisionError: division by zero", nil)
		}
		return nil
	}), &calls
}

func validParams() Params {
	return Params{
		Prompt:        "Fix the divide function",
		ErrorKind:     "ZeroDivisionError",
		ErrorMessage:  "division by zero",
		MaxIterations: 3,
		CodeContext:   "def divide(a, b): return a / b",
	}
}

func TestRefine_FailOnceThenSucceed(t *testing.T) {
	gen := &scriptedGenerator{}
	exec, calls := failingExecutor(1)

	res, err := New(gen, WithExecutor(exec)).Refine(context.Background(), validParams())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Iterations)
	assert.Len(t, res.Errors, 1)
	assert.Equal(t, "candidate-2", res.Candidate)
	assert.Equal(t, 2, *calls)

	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[0], "Kind: ZeroDivisionError")
	assert.Contains(t, gen.prompts[0], "def divide(a, b)")
	assert.NotContains(t, gen.prompts[0], "## Previous Attempt")
	assert.Contains(t, gen.prompts[1], "## Previous Attempt\ncandidate-1")
	assert.Contains(t, gen.prompts[1], "## Error\nZeroDivisionError: division by zero")
}

func TestRefine_NoExecutorAcceptsFirstCandidate(t *testing.T) {
	gen := &scriptedGenerator{}

	res, err := New(gen).Refine(context.Background(), validParams())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Iterations)
	assert.Empty(t, res.Errors)
	assert.Len(t, gen.prompts, 1)
}

func TestRefine_BudgetExhausted(t *testing.T) {
	gen := &scriptedGenerator{}
	exec, _ := failingExecutor(10)

	res, err := New(gen, WithExecutor(exec)).Refine(context.Background(), validParams())

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Iterations)
	assert.Len(t, res.Errors, 3)
	assert.Equal(t, "candidate-3", res.Candidate)
	assert.Equal(t, res.Errors[2], res.LastError)
	assert.Equal(t, 1, strings.Count(gen.prompts[2], "## Previous Attempt"), "only the latest attempt is folded in")
}

func TestRefine_GenerationFailureAborts(t *testing.T) {
	gen := &scriptedGenerator{failAt: 2}
	exec, calls := failingExecutor(10)

	res, err := New(gen, WithExecutor(exec)).Refine(context.Background(), validParams())

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrGenerationFailed))
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Iterations)
	assert.Len(t, gen.prompts, 2)
	assert.Equal(t, 1, *calls, "no execution after a generation failure")
	assert.Contains(t, res.LastError, "model unavailable")
}

func TestRefine_NoGenerator(t *testing.T) {
	res, err := New(nil).Refine(context.Background(), validParams())

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrGenerationFailed))
	assert.False(t, res.Success)
}

func TestRefine_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
		field  string
	}{
		{name: "blank prompt", mutate: func(p *Params) { p.Prompt = " \n\t" }, field: "prompt"},
		{name: "empty error kind", mutate: func(p *Params) { p.ErrorKind = "" }, field: "error_kind"},
		{name: "zero iterations", mutate: func(p *Params) { p.MaxIterations = 0 }, field: "max_iterations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGenerator{}
			p := validParams()
			tt.mutate(&p)

			_, err := New(gen).Refine(context.Background(), p)

			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrInputInvalid))
			assert.Contains(t, err.Error(), tt.field)
			assert.Empty(t, gen.prompts, "generator must not run")
		})
	}
}

func TestRefineAny(t *testing.T) {
	gen := llm.GeneratorFunc(func(context.Context, string) (string, error) { return "fixed", nil })
	r := New(gen)

	tests := []struct {
		name     string
		in       map[string]any
		wantCode errors.ErrorCode
	}{
		{name: "valid", in: map[string]any{"prompt": "Fix it", "error_kind": "TypeError", "max_iterations": 2}},
		{name: "prompt wrong type", in: map[string]any{"prompt": 42, "error_kind": "TypeError"}, wantCode: errors.ErrInputTypeMismatch},
		{name: "prompt missing", in: map[string]any{"error_kind": "TypeError"}, wantCode: errors.ErrInputInvalid},
		{name: "prompt nil", in: map[string]any{"prompt": nil, "error_kind": "TypeError"}, wantCode: errors.ErrInputInvalid},
		{name: "kind blank", in: map[string]any{"prompt": "Fix it", "error_kind": "  "}, wantCode: errors.ErrInputInvalid},
		{name: "iterations wrong type", in: map[string]any{"prompt": "Fix it", "error_kind": "TypeError", "max_iterations": "3"}, wantCode: errors.ErrInputTypeMismatch},
		{name: "message wrong type", in: map[string]any{"prompt": "Fix it", "error_kind": "TypeError", "error_message": []string{"x"}}, wantCode: errors.ErrInputTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.RefineAny(context.Background(), tt.in)

			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.True(t, res.Success)
				assert.Equal(t, "fixed", res.Candidate)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
		})
	}
}
