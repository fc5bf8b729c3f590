// Package refine fixes DEBUG prompts through a generate, execute and
// feedback loop.
package refine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/HartBrook/promptforge/internal/errors"
	"github.com/HartBrook/promptforge/internal/executor"
	"github.com/HartBrook/promptforge/internal/llm"
	"github.com/HartBrook/promptforge/internal/prompt"
)

// DefaultMaxIterations is the attempt budget when none is configured.
const DefaultMaxIterations = 3

// Params is one refinement request.
type Params struct {
	Prompt        string
	ErrorKind     string
	ErrorMessage  string
	MaxIterations int
	CodeContext   string
}

// Refiner runs the debug loop. Without an executor the first generated
// candidate is accepted.
type Refiner struct {
	generator llm.Generator
	executor  executor.Executor
	logger    *zap.Logger
}

// Option configures a Refiner.
type Option func(*Refiner)

// WithExecutor sets the executor that checks candidates.
func WithExecutor(e executor.Executor) Option {
	return func(r *Refiner) {
		r.executor = e
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Refiner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Refiner that generates candidates with g.
func New(g llm.Generator, opts ...Option) *Refiner {
	r := &Refiner{
		generator: g,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validate checks p before any generation happens.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Prompt) == "" {
		return errors.InputInvalid("prompt", "must be a non-blank string")
	}
	if strings.TrimSpace(p.ErrorKind) == "" {
		return errors.InputInvalid("error_kind", "must be a non-blank string")
	}
	if p.MaxIterations < 1 {
		return errors.InputInvalid("max_iterations", fmt.Sprintf("must be at least 1, got %d", p.MaxIterations))
	}
	return nil
}

// Refine generates candidates until one executes cleanly or the budget runs
// out. The only errors are invalid input and generation failures; for the
// latter the returned result records the failure.
func (r *Refiner) Refine(ctx context.Context, p Params) (prompt.RefinementResult, error) {
	if err := p.Validate(); err != nil {
		return prompt.RefinementResult{}, err
	}

	var res prompt.RefinementResult
	base := initialPrompt(p)
	current := base

	for i := 1; i <= p.MaxIterations; i++ {
		candidate, err := r.generate(ctx, current)
		if err != nil {
			res.Success = false
			res.LastError = err.Error()
			res.Errors = append(res.Errors, res.LastError)
			r.logger.Warn("refinement aborted", zap.Int("iteration", i), zap.Error(err))
			return res, err
		}

		res.Candidate = candidate
		res.Iterations = i

		if r.executor == nil {
			res.Success = true
			return res, nil
		}

		execErr := r.executor.Execute(ctx, candidate)
		if execErr == nil {
			res.Success = true
			res.LastError = ""
			r.logger.Debug("candidate executed cleanly", zap.Int("iteration", i))
			return res, nil
		}

		res.LastError = execErr.Error()
		res.Errors = append(res.Errors, res.LastError)
		r.logger.Debug("candidate failed", zap.Int("iteration", i), zap.String("error", res.LastError))

		current = feedbackPrompt(base, candidate, res.LastError)
	}

	return res, nil
}

// RefineAny validates loosely typed input, reporting wrong types apart from
// empty values, then calls Refine.
func (r *Refiner) RefineAny(ctx context.Context, in map[string]any) (prompt.RefinementResult, error) {
	var p Params
	var err error

	if p.Prompt, err = requiredString(in, "prompt"); err != nil {
		return prompt.RefinementResult{}, err
	}
	if p.ErrorKind, err = requiredString(in, "error_kind"); err != nil {
		return prompt.RefinementResult{}, err
	}
	if p.ErrorMessage, err = optionalString(in, "error_message"); err != nil {
		return prompt.RefinementResult{}, err
	}
	if p.CodeContext, err = optionalString(in, "code_context"); err != nil {
		return prompt.RefinementResult{}, err
	}

	p.MaxIterations = DefaultMaxIterations
	if v, ok := in["max_iterations"]; ok && v != nil {
		n, ok := v.(int)
		if !ok {
			return prompt.RefinementResult{}, errors.InputTypeMismatch("max_iterations", "int", v)
		}
		p.MaxIterations = n
	}

	return r.Refine(ctx, p)
}

func (r *Refiner) generate(ctx context.Context, text string) (string, error) {
	if r.generator == nil {
		return "", errors.GenerationFailed("no generator configured", nil)
	}
	out, err := r.generator.Generate(ctx, text)
	if err != nil {
		if errors.IsCode(err, errors.ErrGenerationFailed) {
			return "", err
		}
		return "", errors.GenerationFailed("refiner candidate", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", errors.GenerationFailed("empty candidate", nil)
	}
	return out, nil
}

func requiredString(in map[string]any, field string) (string, error) {
	v, ok := in[field]
	if !ok || v == nil {
		return "", errors.InputInvalid(field, "is required")
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.InputTypeMismatch(field, "string", v)
	}
	return s, nil
}

func optionalString(in map[string]any, field string) (string, error) {
	v, ok := in[field]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.InputTypeMismatch(field, "string", v)
	}
	return s, nil
}
