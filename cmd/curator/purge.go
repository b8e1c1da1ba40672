package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/verdantlabs/curator/internal/reconcile"
	"github.com/verdantlabs/curator/internal/snapshot"
)

var (
	purgeKeywords []string
	purgeForce    bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete records whose display name matches a keyword",
	Long:  "Scan the whole index and delete every record whose display name matches one of the given keywords. The matched records are snapshotted to disk before deletion, and nothing is deleted without confirmation unless --force is given.",
	Args:  cobra.NoArgs,
	RunE:  runPurge,
}

func init() {
	purgeCmd.Flags().StringArrayVar(&purgeKeywords, "keyword", nil,
		"Keyword to match against record display names (repeatable)")
	purgeCmd.Flags().BoolVar(&purgeForce, "force", false,
		"Skip confirmation prompt")
	purgeCmd.MarkFlagRequired("keyword")
}

func runPurge(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	uploader, err := snapshot.NewUploader(a.cfg.Snapshot)
	if err != nil {
		return err
	}
	archiver := snapshot.NewExporter(a.cfg.Snapshot.Dir, uploader)

	var confirmer reconcile.Confirmer = &reconcile.ReaderConfirmer{
		In:  cmd.InOrStdin(),
		Out: cmd.ErrOrStderr(),
	}
	if purgeForce {
		slog.Info("confirmation skipped", "component", "cli", "reason", "--force")
		confirmer = reconcile.AutoConfirmer{}
	}

	return a.runPass(ctx, cmd, reconcile.PurgePass(purgeKeywords),
		reconcile.WithConfirmer(confirmer),
		reconcile.WithArchiver(archiver))
}
