// Package app wires the CLI entry points: extract, search and stats.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docindex/config"
	"docindex/extract"
	"docindex/index"
	"docindex/search"
)

var version = "0.3"

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	plain      bool
	verbose    bool
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "docindex",
		Short:         "Index document collections for page-level full-text search",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Config file path")
	cmd.PersistentFlags().BoolVar(&opts.plain, "plain", false, "Plain output (no progress UI)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(newExtractCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	return cmd
}

// newLogger builds the zap logger used by every command.
func newLogger(opts *rootOptions) (*zap.Logger, error) {
	if opts.verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// extractOptions holds CLI flags for extract.
type extractOptions struct {
	source string
	force  bool
}

func newExtractCmd(root *rootOptions) *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract document text into the search index",
		Long: `Extract per-page text from every document under the source folder
and persist it to the index folder.

Already-extracted documents whose fingerprint is unchanged are skipped,
so an interrupted run picks up where it left off. Use --force to
re-extract everything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "Source folder (overrides config)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Re-extract all documents regardless of prior state")
	return cmd
}

func runExtract(root *rootOptions, opts extractOptions) error {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return err
	}
	if opts.source != "" {
		cfg.SourceFolder = opts.source
	}

	logger, err := newLogger(root)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store := index.NewStore(cfg.IndexFolder)
	state, err := index.OpenStateStore(store.StatePath())
	if err != nil {
		return err
	}
	defer state.Close()

	pipeline := extract.NewPipeline(store, state, extract.NewRegistry(), logger)
	runOpts := extract.Options{
		SourceRoot: cfg.SourceFolder,
		Extensions: cfg.Extensions(),
		Force:      opts.force,
	}

	var report *extract.Report
	if !root.plain && isatty.IsTerminal(os.Stdout.Fd()) {
		report, err = runExtractTUI(pipeline, runOpts)
	} else {
		report, err = pipeline.Run(runOpts)
	}
	if err != nil {
		return err
	}

	fmt.Print(renderReport(report))
	return nil
}

// searchOptions holds CLI flags for search.
type searchOptions struct {
	page     int
	jsonOut  bool
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the extracted index",
		Long: `Search every indexed page for the given phrase (case-insensitive)
and show highlighted context snippets, most matches first.

Examples:
  docindex search "emissions testing"
  docindex search "article 12" --page 2
  docindex search "supplier agreement" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(root, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.page, "page", "p", 1, "Result page (1-based)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Emit the raw result JSON")
	return cmd
}

func runSearch(root *rootOptions, query string, opts searchOptions) error {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(root)
	if err != nil {
		return err
	}
	defer logger.Sync()

	snap, err := index.LoadSnapshot(cfg.IndexFolder, logger)
	if err != nil {
		if errors.Is(err, index.ErrIndexCorrupt) {
			return fmt.Errorf("refusing to search: %w", err)
		}
		return err
	}

	engine := search.NewEngine(snap, cfg.ResultsPerPage, logger)
	result, err := engine.Search(query, opts.page)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Print(renderResult(result))
	return nil
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(root)
			if err != nil {
				return err
			}
			defer logger.Sync()

			snap, err := index.LoadSnapshot(cfg.IndexFolder, logger)
			if err != nil {
				return err
			}
			stats := search.NewEngine(snap, cfg.ResultsPerPage, logger).Stats()

			if jsonOut {
				data, err := json.MarshalIndent(stats, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Print(renderStats(stats))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the raw stats JSON")
	return cmd
}
