package cli

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/HartBrook/promptforge/internal/cache"
	"github.com/HartBrook/promptforge/internal/config"
	"github.com/HartBrook/promptforge/internal/errors"
	"github.com/HartBrook/promptforge/internal/examples"
	"github.com/HartBrook/promptforge/internal/executor"
	"github.com/HartBrook/promptforge/internal/llm"
	"github.com/HartBrook/promptforge/internal/optimize"
	"github.com/HartBrook/promptforge/internal/pipeline"
)

// loadConfig reads the config named by --config, or the default file.
// A missing default file is not an error.
func loadConfig(g *globalOptions) (*config.Config, *config.Paths, error) {
	paths := config.NewPaths()
	if g.configPath != "" {
		// Files that sit next to an explicit config belong to it.
		paths = config.NewPathsWithOverrides(filepath.Dir(g.configPath), paths.CacheDir)
		cfg, err := config.LoadFrom(g.configPath)
		return cfg, paths, err
	}
	cfg, err := config.LoadOrDefault(paths.ConfigFile)
	return cfg, paths, err
}

// openCache builds the cache for cfg. The caller closes it.
func openCache(cfg *config.Config, paths *config.Paths, logger *zap.Logger) (*cache.Cache, error) {
	opts := []cache.Option{
		cache.WithCapacity(cfg.Cache.Capacity),
		cache.WithLogger(logger),
	}

	switch cfg.Cache.Backend {
	case config.BackendFile:
		opts = append(opts, cache.WithBackend(cache.NewFileBackend(paths.PromptCacheDir())))
	case config.BackendSQLite:
		backend, err := cache.OpenSQLite(paths.PromptCacheDB())
		if err != nil {
			return nil, err
		}
		opts = append(opts, cache.WithBackend(backend))
	}

	return cache.New(opts...)
}

// newGenerator creates the hosted-model client, or nil with a reason when
// none can be used.
func newGenerator(cfg *config.Config) (llm.Generator, error) {
	opts := []llm.ClientOption{
		llm.WithTimeout(cfg.Generator.TimeoutDuration()),
		llm.WithRequestsPerMinute(cfg.Generator.RequestsPerMinute),
	}
	if cfg.Generator.Model != "" {
		opts = append(opts, llm.WithModel(cfg.Generator.Model))
	}
	if cfg.Generator.BaseURL != "" {
		opts = append(opts, llm.WithBaseURL(cfg.Generator.BaseURL))
	}

	client, err := llm.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// pipelineSettings are the per-invocation switches that shape the pipeline.
type pipelineSettings struct {
	offline bool
	noCache bool
}

// newPipeline wires a pipeline from cfg. The returned cleanup closes the
// cache, if any.
func newPipeline(cfg *config.Config, paths *config.Paths, logger *zap.Logger, s pipelineSettings) (*pipeline.Pipeline, func(), error) {
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithDebugIterations(cfg.Debug.MaxIterations),
		pipeline.WithModelValidation(cfg.Validator.ModelAssisted),
		pipeline.WithOptimizerOptions(
			optimize.WithMaxIterations(cfg.Optimizer.MaxIterations),
			optimize.WithThreshold(cfg.Optimizer.QualityThreshold),
		),
	}

	if path := paths.ExamplesPath(cfg); path != "" {
		bank, err := examples.LoadBank(path)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("loaded example bank", zap.String("path", path), zap.Int("examples", bank.Len()))
		opts = append(opts, pipeline.WithRetriever(bank))
	}

	if !s.offline {
		gen, err := newGenerator(cfg)
		switch {
		case errors.IsCode(err, errors.ErrAuthFailed):
			printWarning("No API key found, running offline (set ANTHROPIC_API_KEY to enable refinement)")
		case err != nil:
			return nil, nil, err
		default:
			opts = append(opts, pipeline.WithGenerator(gen))
		}
	}

	if cfg.Debug.ExecuteEnabled() {
		opts = append(opts, pipeline.WithExecutor(executor.NewYaegi(
			executor.WithTimeout(cfg.Debug.ExecTimeoutDuration()),
		)))
	}

	cleanup := func() {}
	if cfg.Cache.IsEnabled() && !s.noCache {
		c, err := openCache(cfg, paths, logger)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, pipeline.WithCache(c))
		cleanup = func() {
			if err := c.Close(); err != nil {
				logger.Warn("failed to close cache", zap.Error(err))
			}
		}
	}

	return pipeline.New(opts...), cleanup, nil
}
