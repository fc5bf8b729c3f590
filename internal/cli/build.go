package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HartBrook/promptforge/internal/errors"
	"github.com/HartBrook/promptforge/internal/language"
	"github.com/HartBrook/promptforge/internal/pipeline"
	"github.com/HartBrook/promptforge/internal/prompt"
)

type buildOptions struct {
	context   string
	mode      string
	codeFile  string
	errorFile string
	language  string
	framework string
	offline   bool
	noCache   bool
	jsonOut   bool
}

// NewBuildCmd creates the build command.
func NewBuildCmd(g *globalOptions) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build <idea>",
		Short: "Build a refined prompt from a rough request",
		Long: `Builds a structured prompt from a rough request.

The request is classified and scored, rendered with a persona and examples,
then refined. Debugging requests with an attached error go through the debug
refiner when a model is available; everything else goes through the
meta-optimizer. The result is checked against its constraints and cached.`,
		Example: `  promptforge build "Create a function that parses ISO dates"
  promptforge build "Make it work" --code-file main.go --error-file panic.log --language Go
  promptforge build "Explain closures" --offline --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, g, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&opts.context, "context", "", "Background for the request")
	cmd.Flags().StringVar(&opts.mode, "mode", string(prompt.ModeNLAC), "Execution mode: nlac, fast, deep, batch")
	cmd.Flags().StringVar(&opts.codeFile, "code-file", "", "Attach a code snippet from a file")
	cmd.Flags().StringVar(&opts.errorFile, "error-file", "", "Attach an error log from a file")
	cmd.Flags().StringVar(&opts.language, "language", "", "Target language (inferred from the code file when omitted)")
	cmd.Flags().StringVar(&opts.framework, "framework", "", "Target framework")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Skip the hosted model; use deterministic refinement only")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Skip cache read/write")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the prompt object as JSON")

	return cmd
}

func runBuild(cmd *cobra.Command, g *globalOptions, opts *buildOptions, idea string) error {
	req, err := opts.request(idea)
	if err != nil {
		return err
	}

	cfg, paths, err := loadConfig(g)
	if err != nil {
		return err
	}

	p, cleanup, err := newPipeline(cfg, paths, g.logger, pipelineSettings{offline: opts.offline, noCache: opts.noCache})
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := p.BuildAndRefine(cmd.Context(), req)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		return writeJSON(cmd.OutOrStdout(), out.Prompt)
	}
	displayOutcome(cmd.OutOrStdout(), out)
	return nil
}

// request assembles a Request from flags, reading attachment files.
func (o *buildOptions) request(idea string) (prompt.Request, error) {
	req := prompt.Request{
		Idea:    idea,
		Context: o.context,
		Mode:    prompt.Mode(o.mode),
	}

	code, err := readAttachment(o.codeFile)
	if err != nil {
		return req, err
	}
	errLog, err := readAttachment(o.errorFile)
	if err != nil {
		return req, err
	}

	lang := o.language
	if lang == "" && code != "" {
		cwd, _ := os.Getwd()
		lang = language.Infer(o.codeFile, code, cwd)
	}

	if code != "" || errLog != "" || lang != "" || o.framework != "" {
		req.Inputs = &prompt.StructuredInputs{
			CodeSnippet:    code,
			ErrorLog:       errLog,
			TargetLanguage: lang,
			Framework:      o.framework,
		}
	}
	return req, nil
}

func readAttachment(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrInputInvalid, "failed to read "+path, "Check the file path", err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func displayOutcome(w io.Writer, out *pipeline.Outcome) {
	obj := out.Prompt
	meta := obj.Metadata

	fmt.Fprintln(w, obj.Template)
	fmt.Fprintln(w)
	if meta.RefinedCandidate != "" {
		fmt.Fprintf(w, "%s\n%s\n\n", dim("refined candidate:"), meta.RefinedCandidate)
	}

	source := "built"
	if out.FromCache {
		source = "cached"
	}
	fmt.Fprintf(w, "%s %s %s/%s, strategy %s, role %s\n",
		successIcon, source, info(string(obj.Intent)), meta.Complexity, meta.Strategy, meta.Role)

	if out.Optimization != nil {
		fmt.Fprintf(w, "  %s: %d iteration(s), score %.2f\n", dim("optimizer"), out.Optimization.Iterations, out.Optimization.Score)
		if out.Optimization.Score < 1 {
			fmt.Fprintf(w, "  %s: %s\n", dim("feedback"), out.Optimization.Feedback)
		}
	}
	if out.Refinement != nil {
		state := success("succeeded")
		if !out.Refinement.Success {
			state = warning("failed")
		}
		fmt.Fprintf(w, "  %s: %s after %d attempt(s)\n", dim("debug refiner"), state, out.Refinement.Iterations)
	}
	if meta.RetrievalFailed {
		fmt.Fprintf(w, "%s examples unavailable: %s\n", warningIcon, meta.RetrievalError)
	}
	for _, key := range []string{pipeline.ExtraOptimizationError, pipeline.ExtraRefinementError, pipeline.ExtraValidationError} {
		if v := meta.Extra[key]; v != "" {
			fmt.Fprintf(w, "%s %s: %s\n", warningIcon, strings.ReplaceAll(key, "_", " "), v)
		}
	}
	for _, warn := range out.Validation.Warnings {
		fmt.Fprintf(w, "%s %s\n", warningIcon, warn)
	}
}
