// Package builder assembles structured prompt objects from requests.
package builder

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/HartBrook/promptforge/internal/complexity"
	"github.com/HartBrook/promptforge/internal/errors"
	"github.com/HartBrook/promptforge/internal/examples"
	"github.com/HartBrook/promptforge/internal/intent"
	"github.com/HartBrook/promptforge/internal/prompt"
)

// Metadata extension keys written by the builder.
const (
	ExtraMode            = "mode"
	ExtraClassifierRule  = "classifier_rule"
	ExtraComplexityScore = "complexity_score"
	ExtraTokenEstimate   = "estimated_tokens"
)

// Builder turns requests into prompt objects.
type Builder struct {
	retriever examples.Retriever
	logger    *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithRetriever sets the example retriever.
func WithRetriever(r examples.Retriever) Option {
	return func(b *Builder) {
		if r != nil {
			b.retriever = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a Builder. Without a retriever, prompts are built with no examples.
func New(opts ...Option) *Builder {
	b := &Builder{
		retriever: examples.Nop{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build classifies, scores and renders a request into a PromptObject.
// The only error is an invalid request; retrieval failures are recorded in
// the object's metadata.
func (b *Builder) Build(ctx context.Context, req prompt.Request) (*prompt.PromptObject, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	decision := intent.Classify(req)
	score := complexity.Score(req.Idea, req.Context)
	level := score.Level

	constraints := deriveConstraints(req, level)
	role := Role(decision.Intent, level)

	obj := prompt.NewPromptObject(decision.Intent, "")
	obj.Constraints = constraints
	obj.Metadata.Strategy = Strategy(decision.Intent, level)
	obj.Metadata.Role = role
	obj.Metadata.Complexity = level

	exs, err := b.retriever.FindExamples(ctx, examples.Query{
		Intent:          decision.Intent,
		Complexity:      level,
		K:               exampleCount(level),
		RequireExpected: decision.Intent == prompt.IntentRefactor,
		Text:            req.Idea,
	})
	if err != nil {
		b.logger.Warn("example retrieval failed, continuing without examples",
			zap.String("code", string(errors.CodeOf(err))),
			zap.Error(err))
		obj.Metadata.RetrievalFailed = true
		obj.Metadata.RetrievalError = err.Error()
		exs = nil
	}
	if k := exampleCount(level); len(exs) > k {
		exs = exs[:k]
	}

	in := renderInput{
		req:         req,
		intent:      decision.Intent,
		role:        role,
		examples:    exs,
		constraints: constraints,
	}

	var template string
	if level == prompt.ComplexityComplex {
		template = renderElaborated(in)
		obj.Metadata.Elaborated = true
		obj.Metadata.ExampleCount = min(len(exs), maxElaboratedExamples)
	} else {
		template = renderDirect(in)
		obj.Metadata.ExampleCount = len(exs)
	}
	obj.SetTemplate(template)

	mode := req.Mode
	if mode == "" {
		mode = prompt.ModeNLAC
	}
	obj.Annotate(ExtraMode, string(mode))
	obj.Annotate(ExtraClassifierRule, string(decision.Rule))
	obj.Annotate(ExtraComplexityScore, strconv.FormatFloat(score.Score, 'f', 3, 64))
	obj.Annotate(ExtraTokenEstimate, strconv.Itoa(prompt.CountTokens(template)))

	b.logger.Debug("built prompt",
		zap.String("id", obj.ID),
		zap.String("intent", string(decision.Intent)),
		zap.String("complexity", string(level)),
		zap.String("strategy", obj.Metadata.Strategy),
		zap.Int("examples", obj.Metadata.ExampleCount))

	return obj, nil
}

// deriveConstraints scales the output rules with complexity.
func deriveConstraints(req prompt.Request, level prompt.Complexity) prompt.Constraints {
	c := prompt.Constraints{
		MaxLength:          maxLengths[level],
		IncludeExamples:    level != prompt.ComplexitySimple,
		IncludeExplanation: level == prompt.ComplexityComplex,
	}
	if req.Inputs.Language() != "" {
		c.Format = prompt.FormatCode
	}
	return c
}
