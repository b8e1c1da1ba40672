package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/verdantlabs/curator/internal/groundtruth"
	"github.com/verdantlabs/curator/internal/reconcile"
)

var renameCmd = &cobra.Command{
	Use:   "rename <directives.yaml>",
	Short: "Rewrite display names from a rename directive file",
	Long:  "Scan pesticide records and rewrite document_name, source, and where present product_name for every record matching a directive. Directives may also retag type and brand.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	renames, err := groundtruth.LoadRenames(args[0])
	if err != nil {
		return err
	}
	slog.Info("rename directives loaded", "component", "cli", "count", len(renames))

	return a.runPass(ctx, cmd, reconcile.RenamePass(renames))
}
