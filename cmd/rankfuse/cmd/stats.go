package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/rankfuse/internal/config"
	"github.com/Aman-CERP/rankfuse/internal/output"
	"github.com/Aman-CERP/rankfuse/internal/store"
)

// indexStats is the machine-readable stats payload.
type indexStats struct {
	Root      string `json:"root"`
	IndexPath string `json:"index_path"`
	Documents int    `json:"documents"`
	Preset    string `json:"preset"`
}

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output stats as JSON")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	indexPath := filepath.Join(root, cfg.Index.Path)
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found at %s. Run 'rankfuse index' first", indexPath)
	}

	st, err := store.OpenReadOnly(indexPath)
	if err != nil {
		return err
	}
	defer st.Close()

	count, err := st.Count(ctx)
	if err != nil {
		return err
	}

	stats := indexStats{
		Root:      root,
		IndexPath: indexPath,
		Documents: count,
		Preset:    cfg.Search.Preset,
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	out.Infof("Project root: %s", stats.Root)
	out.Infof("Index path:   %s", stats.IndexPath)
	out.Infof("Documents:    %d", stats.Documents)
	out.Infof("Preset:       %s", stats.Preset)
	return nil
}
