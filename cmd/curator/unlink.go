package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/verdantlabs/curator/internal/reconcile"
)

var unlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Strip disallowed label links from pesticide records",
	Long:  "Scan pesticide records and remove label_url values pointing at the federal registry and pdf_path values pointing at the registry or at plain-text extracts. Records linked to a protected registry are left untouched.",
	Args:  cobra.NoArgs,
	RunE:  runUnlink,
}

func runUnlink(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.runPass(ctx, cmd, reconcile.UnlinkPass())
}
