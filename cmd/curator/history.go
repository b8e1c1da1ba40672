package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	historyLimit      int
	historyRunID      string
	historyJSONOutput bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past reconciliation runs from the journal",
	Long:  "List recent runs with their tallies, newest first. With --run, show the per-record actions of one run instead.",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20,
		"Maximum number of runs to list")
	historyCmd.Flags().StringVar(&historyRunID, "run", "",
		"Show the per-record actions of this run ID")
	historyCmd.Flags().BoolVar(&historyJSONOutput, "json", false,
		"Output in JSON format")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	a, err := newLocalApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	if historyRunID != "" {
		actions, err := a.journal.Actions(ctx, historyRunID)
		if err != nil {
			return err
		}
		if historyJSONOutput {
			return printJSON(out, actions)
		}
		tw := newTabWriter(out)
		fmt.Fprintln(tw, "TIME\tRECORD\tKIND\tDETAIL")
		for _, act := range actions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				act.CreatedAt, act.RecordID, act.Kind, act.Detail)
		}
		return tw.Flush()
	}

	entries, err := a.journal.History(ctx, historyLimit)
	if err != nil {
		return err
	}
	if historyJSONOutput {
		return printJSON(out, entries)
	}

	tw := newTabWriter(out)
	fmt.Fprintln(tw, "ID\tPASS\tSTARTED\tMODE\tSCANNED\tUPDATED\tREMOVED\tERRORS")
	for _, e := range entries {
		mode := "live"
		if e.DryRun {
			mode = "dry-run"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			e.ID, e.Pass, e.StartedAt, mode,
			e.Summary.Scanned, e.Summary.Updated, e.Summary.Removed, e.Summary.Errors)
	}
	return tw.Flush()
}
