package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/verdantlabs/curator/internal/embedding"
	"github.com/verdantlabs/curator/internal/index"
	"github.com/verdantlabs/curator/internal/record"
)

var (
	searchTopK int
	searchType string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a similarity query against the index",
	Long:  "Embed the query text and print the nearest records with their scores. Useful for spot-checking metadata after a reconciliation pass.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 10,
		"Number of matches to return")
	searchCmd.Flags().StringVar(&searchType, "type", "",
		"Restrict matches to one record type")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Embedding.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for search")
	}

	embedder := embedding.NewOpenAI(a.cfg.Embedding.APIKey, a.cfg.Embedding.Model)
	vector, err := embedder.Embed(ctx, args[0])
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}
	slog.Debug("query embedded", "component", "cli",
		"model", embedder.ModelName(), "dimension", len(vector))

	req := index.QueryRequest{
		Vector:          vector,
		TopK:            searchTopK,
		IncludeMetadata: true,
	}
	if searchType != "" {
		req.Filter = index.Eq("type", searchType)
	}

	resp, err := a.client.Query(ctx, req)
	if err != nil {
		return err
	}

	tw := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(tw, "SCORE\tID\tNAME\tTYPE")
	for _, m := range resp.Matches {
		rec := record.Record{ID: m.ID, Metadata: m.Metadata}
		fmt.Fprintf(tw, "%.4f\t%s\t%s\t%s\n",
			m.Score, m.ID, rec.DisplayName(), m.Metadata.GetString("type"))
	}
	return tw.Flush()
}
