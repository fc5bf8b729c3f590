package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HartBrook/promptforge/internal/builder"
	"github.com/HartBrook/promptforge/internal/complexity"
	"github.com/HartBrook/promptforge/internal/intent"
	"github.com/HartBrook/promptforge/internal/prompt"
)

type classifyOptions struct {
	context string
	jsonOut bool
}

// classification is the classify command's report.
type classification struct {
	Intent     prompt.Intent        `json:"intent"`
	SubIntent  prompt.SubIntent     `json:"sub_intent"`
	Rule       intent.Rule          `json:"rule"`
	Complexity complexity.Breakdown `json:"complexity"`
	Strategy   string               `json:"strategy"`
	Role       string               `json:"role"`
}

// NewClassifyCmd creates the classify command.
func NewClassifyCmd(g *globalOptions) *cobra.Command {
	opts := &classifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify <idea>",
		Short: "Show how a request is classified and scored",
		Long: `Shows the intent, the rule that decided it, and the complexity breakdown
for a request, without building a prompt.`,
		Example: `  promptforge classify "Why does this crash? It keeps failing"
  promptforge classify "Design a service" --context "Needs a queue and a database"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := prompt.Request{Idea: strings.Join(args, " "), Context: opts.context}
			if err := req.Validate(); err != nil {
				return err
			}
			c := classify(req)
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), c)
			}
			displayClassification(cmd.OutOrStdout(), c)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.context, "context", "", "Background for the request")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the classification as JSON")

	return cmd
}

func classify(req prompt.Request) classification {
	d := intent.Classify(req)
	b := complexity.Score(req.Idea, req.Context)
	return classification{
		Intent:     d.Intent,
		SubIntent:  d.Sub,
		Rule:       d.Rule,
		Complexity: b,
		Strategy:   builder.Strategy(d.Intent, b.Level),
		Role:       builder.Role(d.Intent, b.Level),
	}
}

func displayClassification(w io.Writer, c classification) {
	fmt.Fprintf(w, "%s %s (%s)\n", info(string(c.Intent)), c.SubIntent, dim(string(c.Rule)))
	fmt.Fprintf(w, "  %s: %s, score %.3f\n", dim("complexity"), c.Complexity.Level, c.Complexity.Score)
	fmt.Fprintf(w, "    length %.2f  technical %.2f (%d terms)  structure %.2f  context %.2f\n",
		c.Complexity.Length, c.Complexity.Technical, c.Complexity.TermMatches, c.Complexity.Structure, c.Complexity.HasContext)
	if c.Complexity.Overridden {
		fmt.Fprintf(w, "    %s\n", warning("long-request override applied"))
	}
	fmt.Fprintf(w, "  %s: %s\n", dim("strategy"), c.Strategy)
	fmt.Fprintf(w, "  %s: %s\n", dim("role"), c.Role)
}
