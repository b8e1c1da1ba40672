package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/verdantlabs/curator/internal/groundtruth"
	"github.com/verdantlabs/curator/internal/reconcile"
)

var linkCmd = &cobra.Command{
	Use:   "link <label-dir>",
	Short: "Attach label document links to product and label records",
	Long:  "Scan pesticide records and set label_url and pdf_path from the ground-truth label files in <label-dir>. Records already linked to a protected registry are left untouched.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLink,
}

func runLink(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	labels, skipped, err := groundtruth.LoadLabels(args[0])
	if err != nil {
		return err
	}
	for _, name := range skipped {
		slog.Warn("label file skipped", "component", "cli", "file", name)
	}
	slog.Info("label files loaded", "component", "cli", "count", len(labels))

	return a.runPass(ctx, cmd, reconcile.LinkPass(labels))
}
