// Package reconcile orchestrates the scan → match → patch → write loop that
// keeps index metadata consistent with external ground truth.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/verdantlabs/curator/internal/index"
	"github.com/verdantlabs/curator/internal/record"
)

// Summary tallies the outcome of one reconciliation pass.
type Summary struct {
	Scanned   int
	Matched   int
	Updated   int
	Skipped   int
	Removed   int
	Errors    int
	Cancelled bool
}

// Pass describes one reconciliation task: which records to scan, which of
// them correspond to ground truth, and what mutation to apply. Destructive
// passes delete matched records instead of patching them.
type Pass struct {
	Name   string
	Filter index.Filter
	Cap    int // 0 uses the driver's default

	// Match decides whether a scanned record corresponds to a ground-truth
	// entity. It sees the scan-time metadata snapshot.
	Match func(rec record.Record) bool

	// Patch computes the mutation for a matched record. It sees the
	// authoritative fetched record, not the scan snapshot. A zero patch
	// skips the record. Unused for destructive passes.
	Patch func(rec record.Record) record.Patch

	Destructive bool
}

// Reporter observes the driver's counters. Not authoritative state.
type Reporter interface {
	Progress(pass string, processed int)
	Final(pass string, s Summary)
}

// NopReporter discards all observations.
type NopReporter struct{}

func (NopReporter) Progress(string, int)  {}
func (NopReporter) Final(string, Summary) {}

// Confirmer gates destructive actions behind explicit operator approval.
type Confirmer interface {
	// Confirm returns true only for an affirmative answer to prompt.
	Confirm(prompt string) (bool, error)
}

// Action describes one per-record outcome, for audit sinks.
type Action struct {
	Pass     string
	RecordID string
	Kind     string // updated, removed, skipped, error
	Detail   string
}

// Sink receives per-record actions. Sink failures never fail the run.
type Sink interface {
	Record(ctx context.Context, a Action)
}

// Archiver preserves records before a destructive pass deletes them.
type Archiver interface {
	Archive(ctx context.Context, pass string, records []record.Record) (ref string, err error)
}

// Driver runs reconciliation passes sequentially, one store call at a time.
type Driver struct {
	client      index.Client
	scanner     *Scanner
	reporter    Reporter
	confirmer   Confirmer
	sink        Sink
	archiver    Archiver
	deleteBatch int
	dryRun      bool
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) DriverOption {
	return func(d *Driver) { d.reporter = r }
}

// WithConfirmer sets the destructive-pass confirmation gate.
func WithConfirmer(c Confirmer) DriverOption {
	return func(d *Driver) { d.confirmer = c }
}

// WithSink sets the per-record action sink.
func WithSink(s Sink) DriverOption {
	return func(d *Driver) { d.sink = s }
}

// WithArchiver sets the pre-delete archiver.
func WithArchiver(a Archiver) DriverOption {
	return func(d *Driver) { d.archiver = a }
}

// WithDeleteBatch overrides the delete batch size. Values outside 1..100
// are clamped to the store limit.
func WithDeleteBatch(n int) DriverOption {
	return func(d *Driver) {
		if n > 0 && n <= index.MaxDeleteBatch {
			d.deleteBatch = n
		}
	}
}

// WithDryRun suppresses all writes; the pass scans, matches, and counts.
func WithDryRun(dry bool) DriverOption {
	return func(d *Driver) { d.dryRun = dry }
}

// NewDriver creates a driver over the given store client and scanner.
func NewDriver(client index.Client, scanner *Scanner, opts ...DriverOption) *Driver {
	d := &Driver{
		client:      client,
		scanner:     scanner,
		reporter:    NopReporter{},
		deleteBatch: index.MaxDeleteBatch,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes one pass. Per-record failures are logged and counted, never
// fatal; only the scan itself and a declined-or-failed confirmation can end
// a pass early. Re-running a pass against already-patched records recomputes
// the same patches and re-applies them with no observable change.
func (d *Driver) Run(ctx context.Context, pass Pass) (Summary, error) {
	var summary Summary

	matches, err := d.scanner.ApproximateScan(ctx, pass.Filter, pass.Cap)
	if err != nil {
		return summary, err
	}

	slog.Info("pass started",
		"component", "reconcile",
		"pass", pass.Name,
		"scanned", len(matches),
		"destructive", pass.Destructive,
		"dry_run", d.dryRun,
	)

	if pass.Destructive {
		return d.runDestructive(ctx, pass, matches)
	}

	for _, m := range matches {
		summary.Scanned++
		d.reporter.Progress(pass.Name, summary.Scanned)

		rec := record.Record{ID: m.ID, Metadata: m.Metadata}
		if pass.Match == nil || !pass.Match(rec) {
			continue
		}
		summary.Matched++

		if err := d.patchOne(ctx, pass, rec.ID, &summary); err != nil {
			summary.Errors++
			slog.Error("record failed",
				"component", "reconcile",
				"pass", pass.Name,
				"id", rec.ID,
				"error", err,
			)
			d.record(ctx, pass, rec.ID, "error", err.Error())
		}
	}

	d.reporter.Final(pass.Name, summary)
	return summary, nil
}

// patchOne applies a pass's patch to a single record via read-modify-write.
// The scan snapshot is not trusted for the write: the fetch supplies the
// authoritative metadata and the embedding to round-trip.
func (d *Driver) patchOne(ctx context.Context, pass Pass, id string, summary *Summary) error {
	fetched, err := d.client.Fetch(ctx, []string{id})
	if err != nil {
		return fmt.Errorf("fetch %s: %w", id, err)
	}

	current, ok := fetched[id]
	if !ok {
		// Stale scan result; the record is gone. Not fatal.
		summary.Skipped++
		slog.Debug("record absent at fetch",
			"component", "reconcile",
			"pass", pass.Name,
			"id", id,
		)
		d.record(ctx, pass, id, "skipped", "absent at fetch")
		return nil
	}

	patch := pass.Patch(current)
	if patch.IsZero() {
		summary.Skipped++
		d.record(ctx, pass, id, "skipped", "no change")
		return nil
	}

	if d.dryRun {
		summary.Updated++
		d.record(ctx, pass, id, "updated", "dry run")
		return nil
	}

	current.Metadata = patch.Apply(current.Metadata)
	if err := d.client.Upsert(ctx, []record.Record{current}); err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}

	summary.Updated++
	d.record(ctx, pass, id, "updated", "")
	return nil
}

// runDestructive accumulates matched ids across the full scan, asks for one
// confirmation, then deletes in fixed-size batches. A non-affirmative answer
// cancels the pass with zero side effects.
func (d *Driver) runDestructive(ctx context.Context, pass Pass, matches []index.Match) (Summary, error) {
	var summary Summary
	var doomed []string

	for _, m := range matches {
		summary.Scanned++
		d.reporter.Progress(pass.Name, summary.Scanned)

		rec := record.Record{ID: m.ID, Metadata: m.Metadata}
		if pass.Match != nil && pass.Match(rec) {
			summary.Matched++
			doomed = append(doomed, m.ID)
		}
	}

	if len(doomed) == 0 {
		d.reporter.Final(pass.Name, summary)
		return summary, nil
	}

	if d.dryRun {
		slog.Info("dry run, skipping delete",
			"component", "reconcile",
			"pass", pass.Name,
			"matched", len(doomed),
		)
		d.reporter.Final(pass.Name, summary)
		return summary, nil
	}

	if d.confirmer == nil {
		return summary, fmt.Errorf("destructive pass %q requires a confirmer", pass.Name)
	}

	prompt := fmt.Sprintf("About to delete %d records in pass %q. Type 'yes' to proceed: ", len(doomed), pass.Name)
	ok, err := d.confirmer.Confirm(prompt)
	if err != nil {
		return summary, fmt.Errorf("read confirmation: %w", err)
	}
	if !ok {
		summary.Cancelled = true
		slog.Info("destructive pass cancelled",
			"component", "reconcile",
			"pass", pass.Name,
			"matched", len(doomed),
		)
		d.reporter.Final(pass.Name, summary)
		return summary, nil
	}

	if err := d.archive(ctx, pass, doomed); err != nil {
		return summary, err
	}

	// One confirmation covers the whole pass; batches proceed sequentially
	// without re-prompting.
	for start := 0; start < len(doomed); start += d.deleteBatch {
		end := start + d.deleteBatch
		if end > len(doomed) {
			end = len(doomed)
		}
		batch := doomed[start:end]

		if err := d.client.Delete(ctx, batch); err != nil {
			summary.Errors++
			slog.Error("delete batch failed",
				"component", "reconcile",
				"pass", pass.Name,
				"batch_start", start,
				"batch_size", len(batch),
				"error", err,
			)
			continue
		}
		summary.Removed += len(batch)
		for _, id := range batch {
			d.record(ctx, pass, id, "removed", "")
		}
	}

	d.reporter.Final(pass.Name, summary)
	return summary, nil
}

// archive fetches the doomed records and hands them to the archiver. The
// safety net must hold, so an archive failure aborts the purge.
func (d *Driver) archive(ctx context.Context, pass Pass, ids []string) error {
	if d.archiver == nil {
		return nil
	}

	var records []record.Record
	for start := 0; start < len(ids); start += d.deleteBatch {
		end := start + d.deleteBatch
		if end > len(ids) {
			end = len(ids)
		}
		fetched, err := d.client.Fetch(ctx, ids[start:end])
		if err != nil {
			return fmt.Errorf("archive fetch: %w", err)
		}
		for _, rec := range fetched {
			records = append(records, rec)
		}
	}

	ref, err := d.archiver.Archive(ctx, pass.Name, records)
	if err != nil {
		return fmt.Errorf("archive before delete: %w", err)
	}
	slog.Info("records archived",
		"component", "reconcile",
		"pass", pass.Name,
		"count", len(records),
		"ref", ref,
	)
	return nil
}

func (d *Driver) record(ctx context.Context, pass Pass, id, kind, detail string) {
	if d.sink == nil {
		return
	}
	d.sink.Record(ctx, Action{Pass: pass.Name, RecordID: id, Kind: kind, Detail: detail})
}
