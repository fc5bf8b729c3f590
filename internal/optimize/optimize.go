// Package optimize iteratively improves a prompt template against its
// declared constraints.
package optimize

import (
	"context"

	"go.uber.org/zap"

	"github.com/HartBrook/promptforge/internal/errors"
	"github.com/HartBrook/promptforge/internal/examples"
	"github.com/HartBrook/promptforge/internal/llm"
	"github.com/HartBrook/promptforge/internal/prompt"
)

const (
	// DefaultMaxIterations is the iteration budget per run.
	DefaultMaxIterations = 3
	// DefaultThreshold is the score that stops a run early.
	DefaultThreshold = 1.0
)

// Result is the outcome of one optimization run.
type Result struct {
	Text     string
	Score    float64
	Feedback string

	// Trajectory holds every scored attempt, including an early-stop winner.
	Trajectory   prompt.Trajectory
	EarlyStopped bool
	Iterations   int
}

// Optimizer runs the score-and-refine loop.
type Optimizer struct {
	generator     llm.Generator
	retriever     examples.Retriever
	logger        *zap.Logger
	maxIterations int
	threshold     float64
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithGenerator refines candidates through meta-prompts instead of heuristics.
func WithGenerator(g llm.Generator) Option {
	return func(o *Optimizer) {
		o.generator = g
	}
}

// WithRetriever supplies reference examples for meta-prompts.
func WithRetriever(r examples.Retriever) Option {
	return func(o *Optimizer) {
		if r != nil {
			o.retriever = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxIterations sets the iteration budget. Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(o *Optimizer) {
		if n >= 1 {
			o.maxIterations = n
		}
	}
}

// WithThreshold sets the early-stop score. Values outside (0, 1] are ignored.
func WithThreshold(t float64) Option {
	return func(o *Optimizer) {
		if t > 0 && t <= 1 {
			o.threshold = t
		}
	}
}

// New creates an Optimizer. Without a generator it refines heuristically.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		retriever:     examples.Nop{},
		logger:        zap.NewNop(),
		maxIterations: DefaultMaxIterations,
		threshold:     DefaultThreshold,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize scores obj's template, refines it from the feedback, and returns
// the best candidate seen. Ties keep the earliest candidate. obj is not
// modified. A generator failure aborts the run.
func (o *Optimizer) Optimize(ctx context.Context, obj *prompt.PromptObject) (*Result, error) {
	if obj == nil {
		return nil, errors.InputInvalid("prompt", "must not be nil")
	}

	exemplars := o.exemplars(ctx, obj)

	res := &Result{}
	current := obj.Template
	var last Evaluation

	for i := 1; i <= o.maxIterations; i++ {
		metaPrompt := ""
		if i > 1 {
			var err error
			current, metaPrompt, err = o.next(ctx, obj, current, last, res.Trajectory, exemplars)
			if err != nil {
				return nil, err
			}
		}

		last = Evaluate(current, obj.Constraints)
		res.Iterations = i

		if i == 1 || last.Score > res.Score {
			res.Text = current
			res.Score = last.Score
			res.Feedback = last.Feedback
		}

		o.logger.Debug("optimizer iteration",
			zap.String("id", obj.ID),
			zap.Int("iteration", i),
			zap.Float64("score", last.Score),
			zap.String("feedback", last.Feedback))

		res.Trajectory = append(res.Trajectory, prompt.Iteration{
			Number:     i,
			MetaPrompt: metaPrompt,
			Candidate:  current,
			Score:      last.Score,
			Feedback:   last.Feedback,
		})

		if last.Score >= o.threshold {
			res.EarlyStopped = true
			break
		}
	}

	return res, nil
}

// next produces the candidate for the following iteration.
func (o *Optimizer) next(ctx context.Context, obj *prompt.PromptObject, current string, last Evaluation, history prompt.Trajectory, exemplars []prompt.FewShotExample) (string, string, error) {
	if o.generator == nil {
		text, _ := Tidy(improve(current, last.Feedback, obj.Constraints))
		return text, "", nil
	}

	metaPrompt := buildMetaPrompt(current, obj.Constraints, history, exemplars)
	generated, err := o.generator.Generate(ctx, metaPrompt)
	if err != nil {
		if errors.IsCode(err, errors.ErrGenerationFailed) {
			return "", metaPrompt, err
		}
		return "", metaPrompt, errors.GenerationFailed("optimizer candidate", err)
	}

	text, stats := Tidy(generated)
	if stats.WrapperStripped {
		o.logger.Debug("stripped generator wrapper", zap.String("id", obj.ID))
	}

	strict, soft := missingAnchors(obj.Template, text)
	if len(soft) > 0 {
		o.logger.Debug("candidate dropped tool names", zap.Strings("tools", soft))
	}
	if len(strict) > 0 || text == "" {
		o.logger.Warn("generated candidate lost required details, using heuristic refinement",
			zap.String("id", obj.ID),
			zap.Strings("missing", strict))
		text, _ = Tidy(improve(current, last.Feedback, obj.Constraints))
	}

	return text, metaPrompt, nil
}

func (o *Optimizer) exemplars(ctx context.Context, obj *prompt.PromptObject) []prompt.FewShotExample {
	if o.generator == nil {
		return nil
	}
	exs, err := o.retriever.FindExamples(ctx, examples.Query{
		Intent:     obj.Intent,
		Complexity: obj.Metadata.Complexity,
		K:          maxExemplars,
		Text:       obj.Template,
	})
	if err != nil {
		o.logger.Debug("meta-prompt examples unavailable", zap.Error(err))
		return nil
	}
	return exs
}
