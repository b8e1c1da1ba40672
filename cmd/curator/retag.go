package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/verdantlabs/curator/internal/reconcile"
)

var retagCmd = &cobra.Command{
	Use:   "retag-country",
	Short: "Tag pesticide records with their sales market",
	Long:  "Scan pesticide records and set the country tag from the built-in market rules. Canada-only products are tagged first, dual-market products next, and everything else defaults to USA.",
	Args:  cobra.NoArgs,
	RunE:  runRetag,
}

func runRetag(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.runPass(ctx, cmd, reconcile.CountryPass(reconcile.DefaultCountryRules()))
}
