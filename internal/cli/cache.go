package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/HartBrook/promptforge/internal/cache"
	"github.com/HartBrook/promptforge/internal/config"
	"github.com/HartBrook/promptforge/internal/prompt"
)

// NewCacheCmd creates the cache command group.
func NewCacheCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage cached prompts",
	}

	cmd.AddCommand(newCacheStatsCmd(g))
	cmd.AddCommand(newCacheListCmd(g))
	cmd.AddCommand(newCacheClearCmd(g))
	cmd.AddCommand(newCacheInvalidateCmd(g))

	return cmd
}

// withCache opens the configured cache for the duration of fn.
func withCache(g *globalOptions, fn func(c *cache.Cache, cfg *config.Config) error) error {
	cfg, paths, err := loadConfig(g)
	if err != nil {
		return err
	}
	c, err := openCache(cfg, paths, g.logger)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c, cfg)
}

func newCacheStatsCmd(g *globalOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show entry and hit counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(g, func(c *cache.Cache, cfg *config.Config) error {
				entries, err := c.Entries(cmd.Context())
				if err != nil {
					return err
				}
				stats := summarize(entries)
				if jsonOut {
					return writeJSON(cmd.OutOrStdout(), stats)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%s cache (%s backend)\n", info("Prompt"), cfg.Cache.Backend)
				fmt.Fprintf(w, "  %s: %d\n", dim("entries"), stats.Entries)
				fmt.Fprintf(w, "  %s: %d\n", dim("hits"), stats.Hits)
				fmt.Fprintf(w, "  %s: %.2f\n", dim("avg hits"), stats.AvgHits)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print stats as JSON")
	return cmd
}

func newCacheListCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached prompts, most recently used first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(g, func(c *cache.Cache, _ *config.Config) error {
				entries, err := c.Entries(cmd.Context())
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), dim("Cache is empty"))
					return nil
				}
				listEntries(cmd.OutOrStdout(), entries, time.Now())
				return nil
			})
		},
	}
}

func newCacheClearCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(g, func(c *cache.Cache, _ *config.Config) error {
				n := c.Clear(cmd.Context())
				printSuccess("Removed %d cached prompt(s)", n)
				return nil
			})
		},
	}
}

func newCacheInvalidateCmd(g *globalOptions) *cobra.Command {
	var contextText, mode string
	cmd := &cobra.Command{
		Use:   "invalidate <idea>",
		Short: "Remove the cached prompt for one request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := prompt.Request{Idea: strings.Join(args, " "), Context: contextText, Mode: prompt.Mode(mode)}
			return withCache(g, func(c *cache.Cache, _ *config.Config) error {
				if c.Invalidate(cmd.Context(), req) {
					printSuccess("Invalidated %s", cache.Key(req)[:12])
				} else {
					printWarning("No cached prompt for that request")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&contextText, "context", "", "Context the request was built with")
	cmd.Flags().StringVar(&mode, "mode", string(prompt.ModeNLAC), "Mode the request was built with")
	return cmd
}

func summarize(entries []*cache.Entry) cache.Stats {
	var s cache.Stats
	for _, e := range entries {
		s.Entries++
		s.Hits += e.Hits
	}
	if s.Entries > 0 {
		s.AvgHits = float64(s.Hits) / float64(s.Entries)
	}
	return s
}

func listEntries(w io.Writer, entries []*cache.Entry, now time.Time) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccess.After(entries[j].LastAccess)
	})
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %-8s %-18s %3d hit(s)  %s\n",
			e.Key[:12], e.Prompt.Intent, e.Prompt.Metadata.Strategy, e.Hits, dim(e.Age(now)))
	}
}
