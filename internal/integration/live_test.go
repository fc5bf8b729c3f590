//go:build live

package integration

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HartBrook/promptforge/internal/config"
	"github.com/HartBrook/promptforge/internal/pipeline"
	"github.com/HartBrook/promptforge/internal/prompt"
)

// liveEnv returns a test env that talks to the hosted model.
// Run with: ANTHROPIC_API_KEY=... go test -tags=live ./internal/integration/...
func liveEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping live test in short mode")
	}

	key := os.Getenv("ANTHROPIC_API_KEY")
	if key == "" {
		t.Skip("ANTHROPIC_API_KEY not set, skipping live test")
	}

	env := NewTestEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", key)
	require.NoError(t, env.SetupConfig(config.Default()))
	return env
}

func TestLive_DebugRefinement(t *testing.T) {
	env := liveEnv(t)

	code, err := env.WriteFile("half.go", "package main\n\nfunc half(n int) int {\n\treturn n / zero\n}\n")
	require.NoError(t, err)
	errLog, err := env.WriteFile("error.log", "./half.go:4:13: undefined: zero\n")
	require.NoError(t, err)

	obj, err := env.Build("Fix the build error in half", "--code-file", code, "--error-file", errLog, "--no-cache")
	require.NoError(t, err)

	assert.Equal(t, prompt.IntentDebug, obj.Intent)
	state := obj.Metadata.Extra[pipeline.ExtraRefinement]
	assert.Contains(t, []string{pipeline.RefinementSucceeded, pipeline.RefinementExhausted}, state,
		"refinement should reach the model, got %q (%s)", state, obj.Metadata.Extra[pipeline.ExtraRefinementError])
}

func TestLive_OptimizeGenerate(t *testing.T) {
	env := liveEnv(t)

	obj, err := env.Build("Build a rate limiter middleware with per-client buckets, metrics and graceful shutdown",
		"--context", "Go HTTP service behind a load balancer", "--no-cache")
	require.NoError(t, err)

	assert.Equal(t, prompt.IntentGenerate, obj.Intent)
	assert.NotEmpty(t, obj.Template)
	_, aborted := obj.Metadata.Extra[pipeline.ExtraOptimizationError]
	assert.False(t, aborted, "optimization should not abort: %s", obj.Metadata.Extra[pipeline.ExtraOptimizationError])
}
