package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/verdantlabs/curator/internal/config"
	"github.com/verdantlabs/curator/internal/index"
	"github.com/verdantlabs/curator/internal/journal"
	"github.com/verdantlabs/curator/internal/reconcile"
	"github.com/verdantlabs/curator/internal/report"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var (
	configPath string
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:     "curator",
	Short:   "Curator - bulk metadata reconciliation for the knowledge index",
	Long:    "Reconcile the remote vector index against local ground truth: link label documents, rename products, retag countries, strip disallowed links, and purge stale records.",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (overrides CURATOR_CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false,
		"Report what would change without writing to the index")

	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(retagCmd)
	rootCmd.AddCommand(unlinkCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(historyCmd)
}

// signalContext returns a context cancelled on SIGTERM or SIGINT, so an
// interrupted pass stops between records rather than mid-write.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
}

// app bundles the shared process wiring: config, logger, index client,
// and run journal. Commands obtain one via newApp and must Close it.
type app struct {
	cfg     *config.Config
	client  *index.HTTPClient
	journal *journal.Journal
}

// newLocalApp loads configuration, initializes logging, and opens the run
// journal. It never touches the index; commands that only read the journal
// use it directly.
func newLocalApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	jr, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	return &app{cfg: cfg, journal: jr}, nil
}

// newApp extends newLocalApp with an index client and verifies the
// credentials before any scan runs. A bad API key fails here, not mid-pass.
func newApp(ctx context.Context) (*app, error) {
	a, err := newLocalApp()
	if err != nil {
		return nil, err
	}

	a.client = index.NewHTTPClient(a.cfg.Index.Host, a.cfg.Index.APIKey, index.Options{
		CallTimeout: time.Duration(a.cfg.Index.CallTimeout),
		RateLimit:   a.cfg.Index.RateLimit,
	})

	stats, err := a.client.DescribeIndexStats(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("index credential check: %w", err)
	}
	slog.Info("index reachable",
		"component", "cli",
		"host", a.cfg.Index.Host,
		"vectors", stats.TotalVectorCount)

	return a, nil
}

func (a *app) Close() {
	if err := a.journal.Close(); err != nil {
		slog.Error("journal close error", "component", "cli", "error", err)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// runPass executes one reconciliation pass with the standard wiring: slog
// progress reporting, journal sink, and the configured delete batch size.
// Destructive passes supply their confirmer and archiver through extra.
func (a *app) runPass(ctx context.Context, cmd *cobra.Command, pass reconcile.Pass, extra ...reconcile.DriverOption) error {
	run, err := a.journal.Begin(ctx, pass.Name, dryRun)
	if err != nil {
		return err
	}

	scanner := reconcile.NewScanner(a.client, a.cfg.Index.Dimension, a.cfg.Index.ScanCap)
	opts := []reconcile.DriverOption{
		reconcile.WithReporter(report.NewSlogReporter(a.cfg.Report.ProgressEvery)),
		reconcile.WithSink(run),
		reconcile.WithDeleteBatch(a.cfg.Index.DeleteBatch),
		reconcile.WithDryRun(dryRun),
	}
	opts = append(opts, extra...)
	driver := reconcile.NewDriver(a.client, scanner, opts...)

	summary, runErr := driver.Run(ctx, pass)
	if err := run.Finish(ctx, summary); err != nil {
		slog.Warn("journal finish error", "component", "cli", "run", run.ID, "error", err)
	}
	if runErr != nil {
		return runErr
	}

	printSummary(cmd.OutOrStdout(), pass.Name, summary)
	return nil
}

func printSummary(w io.Writer, pass string, s reconcile.Summary) {
	tw := newTabWriter(w)
	fmt.Fprintf(tw, "Pass:\t%s\n", pass)
	if dryRun {
		fmt.Fprintf(tw, "Mode:\tdry-run\n")
	}
	fmt.Fprintf(tw, "Scanned:\t%d\n", s.Scanned)
	fmt.Fprintf(tw, "Matched:\t%d\n", s.Matched)
	fmt.Fprintf(tw, "Updated:\t%d\n", s.Updated)
	fmt.Fprintf(tw, "Skipped:\t%d\n", s.Skipped)
	fmt.Fprintf(tw, "Removed:\t%d\n", s.Removed)
	fmt.Fprintf(tw, "Errors:\t%d\n", s.Errors)
	if s.Cancelled {
		fmt.Fprintf(tw, "Cancelled:\ttrue\n")
	}
	tw.Flush()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
