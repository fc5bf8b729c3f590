// Package pipeline sequences the builder, the optimizer or debug refiner,
// and the validator behind an optional cache.
package pipeline

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/HartBrook/promptforge/internal/builder"
	"github.com/HartBrook/promptforge/internal/cache"
	"github.com/HartBrook/promptforge/internal/examples"
	"github.com/HartBrook/promptforge/internal/executor"
	"github.com/HartBrook/promptforge/internal/llm"
	"github.com/HartBrook/promptforge/internal/optimize"
	"github.com/HartBrook/promptforge/internal/prompt"
	"github.com/HartBrook/promptforge/internal/refine"
	"github.com/HartBrook/promptforge/internal/validate"
)

// Metadata extension keys written by the pipeline.
const (
	ExtraOptimizationScore = "optimization_score"
	ExtraOptimizationError = "optimization_error"
	ExtraRefinement        = "refinement"
	ExtraRefinementError   = "refinement_error"
	ExtraValidationError   = "validation_error"
)

// Refinement states recorded under ExtraRefinement.
const (
	RefinementSucceeded = "succeeded"
	RefinementExhausted = "exhausted"
	RefinementAborted   = "aborted"
)

// Outcome is everything one call produced.
type Outcome struct {
	Prompt       *prompt.PromptObject
	Trajectory   prompt.Trajectory
	Optimization *optimize.Result
	Refinement   *prompt.RefinementResult
	Validation   validate.Report
	FromCache    bool
}

// Pipeline turns requests into refined prompt objects. It is safe for
// concurrent use and holds no per-call state outside the cache.
type Pipeline struct {
	retriever examples.Retriever
	generator llm.Generator
	executor  executor.Executor
	cache     *cache.Cache
	logger    *zap.Logger

	optimizerOpts   []optimize.Option
	debugIterations int
	modelValidation bool

	builder   *builder.Builder
	optimizer *optimize.Optimizer
	refiner   *refine.Refiner
	validator *validate.Validator

	group singleflight.Group
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRetriever sets the example retriever.
func WithRetriever(r examples.Retriever) Option {
	return func(p *Pipeline) { p.retriever = r }
}

// WithGenerator enables generator-backed optimization and debug refinement.
func WithGenerator(g llm.Generator) Option {
	return func(p *Pipeline) { p.generator = g }
}

// WithExecutor sets the executor used by the debug refiner.
func WithExecutor(e executor.Executor) Option {
	return func(p *Pipeline) { p.executor = e }
}

// WithCache wraps calls in a cache lookup and write.
func WithCache(c *cache.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithLogger sets the logger shared by every stage.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithOptimizerOptions passes options through to the optimizer.
func WithOptimizerOptions(opts ...optimize.Option) Option {
	return func(p *Pipeline) { p.optimizerOpts = append(p.optimizerOpts, opts...) }
}

// WithDebugIterations sets the debug refiner's attempt budget.
func WithDebugIterations(n int) Option {
	return func(p *Pipeline) {
		if n >= 1 {
			p.debugIterations = n
		}
	}
}

// WithModelValidation lets the validator ask the generator for rewrites.
func WithModelValidation(on bool) Option {
	return func(p *Pipeline) { p.modelValidation = on }
}

// New wires a Pipeline from its collaborators.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		retriever:       examples.Nop{},
		logger:          zap.NewNop(),
		debugIterations: refine.DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.builder = builder.New(builder.WithRetriever(p.retriever), builder.WithLogger(p.logger))

	optOpts := []optimize.Option{optimize.WithRetriever(p.retriever), optimize.WithLogger(p.logger)}
	if p.generator != nil {
		optOpts = append(optOpts, optimize.WithGenerator(p.generator))
	}
	p.optimizer = optimize.New(append(optOpts, p.optimizerOpts...)...)

	if p.generator != nil {
		p.refiner = refine.New(p.generator, refine.WithExecutor(p.executor), refine.WithLogger(p.logger))
	}

	valOpts := []validate.Option{validate.WithLogger(p.logger)}
	if p.modelValidation && p.generator != nil {
		valOpts = append(valOpts, validate.WithCorrector(validate.GeneratorCorrector{Generator: p.generator}))
	}
	p.validator = validate.New(valOpts...)

	return p
}

// BuildAndRefine builds a prompt for req, refines it, and validates it.
// Only invalid input fails the call; collaborator failures are recorded in
// the prompt's metadata. Concurrent identical requests share one build.
func (p *Pipeline) BuildAndRefine(ctx context.Context, req prompt.Request) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if p.cache != nil {
		if obj, ok := p.cache.Get(ctx, req); ok {
			p.logger.Debug("cache hit", zap.String("id", obj.ID))
			return &Outcome{Prompt: obj, Validation: p.cachedValidation(ctx, obj), FromCache: true}, nil
		}
	}

	v, err, shared := p.group.Do(cache.Key(req), func() (any, error) {
		return p.run(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	out := v.(*Outcome)
	if shared {
		cp := *out
		cp.Prompt = out.Prompt.Clone()
		return &cp, nil
	}
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, req prompt.Request) (*Outcome, error) {
	obj, err := p.builder.Build(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Prompt: obj}

	if obj.Intent == prompt.IntentDebug && p.refiner != nil {
		p.refineDebug(ctx, req, out)
	} else {
		p.optimize(ctx, out)
	}

	report, err := p.validator.Validate(ctx, obj)
	if err != nil {
		p.logger.Warn("validation rejected constraints", zap.String("id", obj.ID), zap.Error(err))
		obj.Annotate(ExtraValidationError, err.Error())
	}
	out.Validation = report
	record := report
	record.Warnings = append([]string(nil), report.Warnings...)
	obj.Metadata.Validation = &record

	if p.cache != nil && ctx.Err() == nil {
		p.cache.Put(ctx, req, obj)
	}

	p.logger.Info("prompt ready",
		zap.String("id", obj.ID),
		zap.String("intent", string(obj.Intent)),
		zap.String("strategy", obj.Metadata.Strategy),
		zap.Bool("validated", report.Passed))

	return out, nil
}

// cachedValidation replays the verdict stored with a cached object. Entries
// written without one are validated again.
func (p *Pipeline) cachedValidation(ctx context.Context, obj *prompt.PromptObject) validate.Report {
	if obj.Metadata.Validation != nil {
		return *obj.Metadata.Validation
	}
	report, err := p.validator.Validate(ctx, obj)
	if err != nil {
		obj.Annotate(ExtraValidationError, err.Error())
	}
	record := report
	obj.Metadata.Validation = &record
	return report
}

func (p *Pipeline) optimize(ctx context.Context, out *Outcome) {
	obj := out.Prompt

	res, err := p.optimizer.Optimize(ctx, obj)
	if err != nil {
		p.logger.Warn("optimization aborted", zap.String("id", obj.ID), zap.Error(err))
		obj.Annotate(ExtraOptimizationError, err.Error())
		return
	}

	out.Optimization = res
	out.Trajectory = res.Trajectory
	if res.Text != obj.Template {
		obj.SetTemplate(res.Text)
	}
	obj.Annotate(ExtraOptimizationScore, strconv.FormatFloat(res.Score, 'f', 3, 64))
}

func (p *Pipeline) refineDebug(ctx context.Context, req prompt.Request, out *Outcome) {
	obj := out.Prompt

	res, err := p.refiner.Refine(ctx, refine.Params{
		Prompt:        obj.Template,
		ErrorKind:     errorKind(req.Inputs),
		ErrorMessage:  errorLog(req.Inputs),
		MaxIterations: p.debugIterations,
		CodeContext:   codeSnippet(req.Inputs),
	})
	out.Refinement = &res

	switch {
	case err != nil:
		p.logger.Warn("debug refinement aborted", zap.String("id", obj.ID), zap.Error(err))
		obj.Annotate(ExtraRefinement, RefinementAborted)
		obj.Annotate(ExtraRefinementError, err.Error())
	case res.Success:
		obj.Metadata.RefinedCandidate = res.Candidate
		obj.Annotate(ExtraRefinement, RefinementSucceeded)
	default:
		obj.Annotate(ExtraRefinement, RefinementExhausted)
		obj.Annotate(ExtraRefinementError, res.LastError)
	}
}

// errorKind is the exception name at the start of the error log's last
// non-empty line, which is where tracebacks put it.
func errorKind(in *prompt.StructuredInputs) string {
	if !in.HasErrorLog() {
		return "unspecified"
	}
	lines := strings.Split(strings.TrimSpace(in.ErrorLog), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if i := strings.Index(last, ":"); i > 0 {
		last = last[:i]
	}
	if f := strings.Fields(last); len(f) > 0 {
		return f[0]
	}
	return "unspecified"
}

func errorLog(in *prompt.StructuredInputs) string {
	if !in.HasErrorLog() {
		return ""
	}
	return in.ErrorLog
}

func codeSnippet(in *prompt.StructuredInputs) string {
	if !in.HasCode() {
		return ""
	}
	return in.CodeSnippet
}
