package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/rankfuse/internal/config"
	"github.com/Aman-CERP/rankfuse/internal/indexer"
	"github.com/Aman-CERP/rankfuse/internal/output"
	"github.com/Aman-CERP/rankfuse/internal/store"
)

func newIndexCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the project for search",
		Long: `Index walks the project tree, chunks source files, and persists
tokenized documents to the local SQLite index.

Examples:
  rankfuse index
  rankfuse index --path ./services/api`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, path)
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", ".", "Directory to index")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string) error {
	out := output.New(cmd.OutOrStdout())
	start := time.Now()

	root, err := config.FindProjectRoot(path)
	if err != nil {
		return err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	slog.Info("index_started", slog.String("root", root))

	ix := indexer.New(cfg.Index)
	result, err := ix.IndexDir(root)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	st, err := store.Open(filepath.Join(root, cfg.Index.Path))
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveDocuments(ctx, result.Documents, result.Contents); err != nil {
		return err
	}

	slog.Info("index_complete",
		slog.Int("files", result.Files),
		slog.Int("chunks", len(result.Documents)),
		slog.Duration("elapsed", time.Since(start)))

	out.Successf("Indexed %d files (%d chunks, %d skipped) in %s",
		result.Files, len(result.Documents), result.Skipped,
		time.Since(start).Round(time.Millisecond))
	return nil
}
