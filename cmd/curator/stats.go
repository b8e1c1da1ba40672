package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSONOutput bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index dimension and vector count",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSONOutput, "json", false,
		"Output in JSON format")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.client.DescribeIndexStats(ctx)
	if err != nil {
		return err
	}

	if statsJSONOutput {
		return printJSON(cmd.OutOrStdout(), stats)
	}

	tw := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintf(tw, "Host:\t%s\n", a.cfg.Index.Host)
	fmt.Fprintf(tw, "Dimension:\t%d\n", stats.Dimension)
	fmt.Fprintf(tw, "Vectors:\t%d\n", stats.TotalVectorCount)
	return tw.Flush()
}
