// Package report emits reconciliation progress and final tallies. Output is
// observational only; the driver's summary is the source of truth.
package report

import (
	"log/slog"

	"github.com/verdantlabs/curator/internal/reconcile"
)

// Compile-time interface check
var _ reconcile.Reporter = (*SlogReporter)(nil)

// SlogReporter logs progress at a fixed cadence and a final tally.
type SlogReporter struct {
	every int
}

// NewSlogReporter creates a reporter that logs every n processed records.
// n below 1 falls back to 10.
func NewSlogReporter(every int) *SlogReporter {
	if every < 1 {
		every = 10
	}
	return &SlogReporter{every: every}
}

// Progress logs a heartbeat every cadence boundary.
func (r *SlogReporter) Progress(pass string, processed int) {
	if processed%r.every != 0 {
		return
	}
	slog.Info("progress",
		"component", "report",
		"pass", pass,
		"processed", processed,
	)
}

// Final logs the closing tally for a pass.
func (r *SlogReporter) Final(pass string, s reconcile.Summary) {
	slog.Info("pass complete",
		"component", "report",
		"pass", pass,
		"scanned", s.Scanned,
		"matched", s.Matched,
		"updated", s.Updated,
		"skipped", s.Skipped,
		"removed", s.Removed,
		"errors", s.Errors,
		"cancelled", s.Cancelled,
	)
}
