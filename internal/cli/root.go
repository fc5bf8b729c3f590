// Package cli implements the promptforge command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Output helpers.
	successIcon = color.New(color.FgGreen).Sprint("✓")
	warningIcon = color.New(color.FgYellow).Sprint("⚠")
	errorIcon   = color.New(color.FgRed).Sprint("✗")

	success = color.New(color.FgGreen).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	info    = color.New(color.FgCyan).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	verbose    bool
	logger     *zap.Logger
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "promptforge",
		Short: "Turn rough requests into refined, validated prompts",
		Long: `Promptforge turns a rough request into a structured prompt.

It classifies the request, scores its complexity, builds a prompt with a
matching persona and examples, then refines it with the meta-optimizer or,
for debugging requests, the debug refiner. Every result is checked against
its constraints and cached.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(g.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			g.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = g.logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default ~/.config/promptforge/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(NewBuildCmd(g))
	rootCmd.AddCommand(NewClassifyCmd(g))
	rootCmd.AddCommand(NewCacheCmd(g))
	rootCmd.AddCommand(NewConfigCmd(g))
	rootCmd.AddCommand(NewEvalCmd(g))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// newLogger builds the process logger. Logs go to stderr so they never mix
// with command output; only warnings show unless verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "promptforge %s\n", Version)
		},
	}
}

// Execute runs the CLI.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Print error with hint if available
		fmt.Fprintf(os.Stderr, "%s %s\n", errorIcon, err.Error())
		if se, ok := err.(interface{ HintText() string }); ok {
			if hint := se.HintText(); hint != "" {
				fmt.Fprintf(os.Stderr, "  %s\n", dim(hint))
			}
		}
		return err
	}
	return nil
}

// printSuccess prints a success message.
func printSuccess(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", successIcon, fmt.Sprintf(format, args...))
}

// printWarning prints a warning message to stderr.
func printWarning(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", warningIcon, fmt.Sprintf(format, args...))
}
