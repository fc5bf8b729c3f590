package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HartBrook/promptforge/internal/eval"
	"github.com/HartBrook/promptforge/internal/starter"
)

type evalOptions struct {
	test     string
	tag      string
	output   string
	debug    bool
	offline  bool
	validate bool
	starter  bool
}

// NewEvalCmd creates the eval command.
func NewEvalCmd(g *globalOptions) *cobra.Command {
	opts := &evalOptions{}

	cmd := &cobra.Command{
		Use:   "eval [file-or-dir]",
		Short: "Run prompt regression suites",
		Long: `Runs YAML eval suites through the pipeline. Each test is a request plus
assertions about the prompt built for it: intent, strategy, complexity, role,
contents, length, and whether it passed validation.

Caching is always skipped so every test builds a fresh prompt.`,
		Example: `  promptforge eval evals/
  promptforge eval evals/routing.yaml --test "debug-*" --offline
  promptforge eval evals/ --validate
  promptforge eval --starter --offline`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.starter == (len(args) == 1) {
				return fmt.Errorf("give either an eval path or --starter")
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runEval(cmd, g, opts, path)
		},
	}

	cmd.Flags().StringVar(&opts.test, "test", "", "Run only matching tests (name or prefix*)")
	cmd.Flags().StringVar(&opts.tag, "tag", "", "Run only evals with this tag")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format: table, json")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Show the built prompt for failures")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Skip the hosted model")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "Only check eval definitions")
	cmd.Flags().BoolVar(&opts.starter, "starter", false, "Run the built-in starter suites")

	return cmd
}

func runEval(cmd *cobra.Command, g *globalOptions, opts *evalOptions, path string) error {
	evals, skipped, err := loadEvals(opts, path)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		printWarning("Skipped %v", s)
	}

	var selected []*eval.Eval
	for _, e := range evals {
		if opts.tag != "" && !e.HasTag(opts.tag) {
			continue
		}
		if f := e.FilterTests(opts.test); f != nil {
			selected = append(selected, f)
		}
	}
	if len(selected) == 0 {
		printWarning("No matching evals")
		return nil
	}

	if opts.validate {
		return validateEvals(selected)
	}

	cfg, paths, err := loadConfig(g)
	if err != nil {
		return err
	}
	p, cleanup, err := newPipeline(cfg, paths, g.logger, pipelineSettings{offline: opts.offline, noCache: true})
	if err != nil {
		return err
	}
	defer cleanup()

	runner := eval.NewRunner(p)
	var results []*eval.RunResult
	for _, e := range selected {
		res, err := runner.Run(cmd.Context(), e)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return err
		}
	}

	f := eval.NewFormatter(cmd.OutOrStdout(), eval.OutputFormat(opts.output))
	f.Debug = opts.debug
	if err := f.FormatResults(results); err != nil {
		return err
	}

	if s := eval.Summarize(results); s.Failed > 0 {
		return fmt.Errorf("%d of %d eval tests failed", s.Failed, s.TotalTests)
	}
	return nil
}

func loadEvals(opts *evalOptions, path string) ([]*eval.Eval, []error, error) {
	if opts.starter {
		evals, err := starter.Evals()
		return evals, nil, err
	}
	return eval.Load(path)
}

func validateEvals(evals []*eval.Eval) error {
	failed := false
	for _, e := range evals {
		issues := e.Validate()
		if len(issues) == 0 {
			printSuccess("%s", e.Name)
			continue
		}
		for _, issue := range issues {
			icon := warningIcon
			if issue.Level == eval.ValidationLevelError {
				icon = errorIcon
				failed = true
			}
			fmt.Fprintf(os.Stderr, "%s %s: %s: %s\n", icon, e.Name, issue.Field, issue.Message)
		}
	}
	if failed {
		return fmt.Errorf("eval definitions have errors")
	}
	return nil
}
