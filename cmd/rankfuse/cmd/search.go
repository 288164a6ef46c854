package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/rankfuse/internal/config"
	"github.com/Aman-CERP/rankfuse/internal/output"
	"github.com/Aman-CERP/rankfuse/internal/search"
	"github.com/Aman-CERP/rankfuse/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit  int
	format string // "text", "json"
	preset string // fusion weight profile
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed codebase",
		Long: `Search the indexed codebase with hybrid ranking.

Keyword (BM25) and fuzzy full-text results are merged with weighted
Reciprocal Rank Fusion; chunks found by both backends are promoted.

Examples:
  rankfuse search "parse config"
  rankfuse search "handleRequest" --limit 5
  rankfuse search "retry backoff" --preset natural_language --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.preset, "preset", "", "Fusion preset: default, code_search, natural_language")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())
	start := time.Now()

	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if opts.preset != "" {
		cfg.Search.Preset = opts.preset
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	indexPath := filepath.Join(root, cfg.Index.Path)
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found at %s. Run 'rankfuse index' first", indexPath)
	}

	slog.Info("search_started", slog.String("query", query), slog.Int("limit", opts.limit))

	engine, cleanup, err := buildEngine(ctx, cfg, indexPath)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := engine.Search(ctx, query, search.Options{Limit: opts.limit})
	if err != nil {
		return err
	}

	slog.Info("search_complete",
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(start)))

	switch opts.format {
	case "json":
		return out.ResultsJSON(results)
	default:
		out.Results(query, results)
		return nil
	}
}

// buildEngine rebuilds the search backends from the persisted index and
// wires them into a hybrid engine. The returned cleanup closes everything.
func buildEngine(ctx context.Context, cfg *config.Config, indexPath string) (*search.Engine, func(), error) {
	st, err := store.OpenReadOnly(indexPath)
	if err != nil {
		return nil, nil, err
	}

	docs, contents, err := st.LoadAll(ctx)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	keyword := search.NewKeywordBackendWithParams(cfg.Index.K1, cfg.Index.B)
	for _, doc := range docs {
		if err := keyword.Index(doc, contents[doc.ID]); err != nil {
			st.Close()
			return nil, nil, err
		}
	}

	fuzzy, err := search.NewFuzzyBackend()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	if err := fuzzy.Index(docs, contents); err != nil {
		fuzzy.Close()
		st.Close()
		return nil, nil, err
	}

	engineCfg := search.DefaultEngineConfig()
	engineCfg.Fusion = cfg.FusionConfig()
	engineCfg.CacheSize = cfg.Search.CacheSize

	engine, err := search.NewEngine(engineCfg, keyword, fuzzy)
	if err != nil {
		fuzzy.Close()
		st.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = fuzzy.Close()
		_ = st.Close()
	}
	return engine, cleanup, nil
}
