package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/HartBrook/promptforge/internal/config"
	"github.com/HartBrook/promptforge/internal/starter"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the promptforge config file",
	}
	cmd.AddCommand(newConfigInitCmd(g))
	cmd.AddCommand(newConfigShowCmd(g))
	return cmd
}

func newConfigInitCmd(g *globalOptions) *cobra.Command {
	var force, withEvals bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default settings and a starter example bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if path == "" {
				path = config.NewPaths().ConfigFile
			}
			if _, err := os.Stat(path); err == nil && !force {
				printWarning("Config already exists at %s (use --force to overwrite)", path)
				return nil
			}
			if err := config.SaveTo(config.Default(), path); err != nil {
				return err
			}
			printSuccess("Wrote %s", path)

			bankPath := filepath.Join(filepath.Dir(path), "examples.yaml")
			wrote, err := starter.BootstrapExamples(bankPath)
			if err != nil {
				return err
			}
			if wrote {
				printSuccess("Wrote starter example bank to %s", bankPath)
			}

			if withEvals {
				dir := filepath.Join(filepath.Dir(path), "evals")
				installed, err := starter.BootstrapEvals(dir)
				if err != nil {
					return err
				}
				printSuccess("Installed %d starter eval(s) in %s", len(installed), dir)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	cmd.Flags().BoolVar(&withEvals, "evals", false, "Also copy the starter eval suites")
	return cmd
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(g)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}
