package starter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HartBrook/promptforge/internal/eval"
	"github.com/HartBrook/promptforge/internal/examples"
	"github.com/HartBrook/promptforge/internal/pipeline"
	"github.com/HartBrook/promptforge/internal/prompt"
)

func TestBank(t *testing.T) {
	bank, err := Bank()
	require.NoError(t, err)
	assert.Equal(t, 8, bank.Len())

	for _, intent := range prompt.Intents {
		got, err := bank.FindExamples(context.Background(), examples.Query{Intent: intent, K: 5})
		require.NoError(t, err)
		assert.Len(t, got, 2, "intent %s", intent)
	}

	refactors, err := bank.FindExamples(context.Background(), examples.Query{Intent: prompt.IntentRefactor, K: 5, RequireExpected: true})
	require.NoError(t, err)
	assert.Len(t, refactors, 2)
}

func TestBootstrapExamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "examples.yaml")

	wrote, err := BootstrapExamples(path)
	require.NoError(t, err)
	assert.True(t, wrote)

	loaded, err := examples.LoadBank(path)
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.Len())

	require.NoError(t, os.WriteFile(path, []byte("version: 1\nexamples: []\n"), 0644))
	wrote, err = BootstrapExamples(path)
	require.NoError(t, err)
	assert.False(t, wrote, "existing bank must not be overwritten")
}

func TestEvalNames(t *testing.T) {
	assert.ElementsMatch(t, []string{"constraints", "routing"}, EvalNames())
}

func TestEvals_AreValid(t *testing.T) {
	evals, err := Evals()
	require.NoError(t, err)
	require.Len(t, evals, 2)

	for _, e := range evals {
		assert.False(t, eval.HasErrors(e.Validate()), "%s: %v", e.Name, e.Validate())
		assert.True(t, e.HasTag("starter"))
	}
}

func TestEvals_PassOffline(t *testing.T) {
	evals, err := Evals()
	require.NoError(t, err)

	runner := eval.NewRunner(pipeline.New())
	for _, e := range evals {
		res, err := runner.Run(context.Background(), e)
		require.NoError(t, err)
		for _, tr := range res.Results {
			assert.True(t, tr.Passed, "%s/%s: %s\n%s", e.Name, tr.Name, tr.Error, tr.Output)
		}
	}
}

func TestBootstrapEvals(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "routing.yaml"), []byte("custom"), 0644))

	installed, err := BootstrapEvals(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"constraints.yaml"}, installed)

	content, err := os.ReadFile(filepath.Join(dir, "routing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "custom", string(content))
}
