package reconcile

import (
	"context"
	"fmt"

	"github.com/verdantlabs/curator/internal/index"
)

// Scanner approximates a full-table scan of the index. The store exposes no
// cursor, so the scan is one broad similarity query with a neutral zero
// vector and a top_k meant to exceed the index's cardinality.
type Scanner struct {
	client    index.Client
	dimension int
	cap       int
}

// NewScanner creates a scanner for an index of the given dimensionality.
// cap is the default top_k when a pass does not override it.
func NewScanner(client index.Client, dimension, cap int) *Scanner {
	if cap <= 0 || cap > index.MaxTopK {
		cap = index.MaxTopK
	}
	return &Scanner{client: client, dimension: dimension, cap: cap}
}

// ApproximateScan returns up to cap records, optionally narrowed by filter,
// in store order. Coverage is approximate: when the index holds more records
// than cap, the overflow is silently missed. That is the store's contract,
// not a retryable condition.
func (s *Scanner) ApproximateScan(ctx context.Context, filter index.Filter, cap int) ([]index.Match, error) {
	if cap <= 0 {
		cap = s.cap
	}
	if cap > index.MaxTopK {
		cap = index.MaxTopK
	}

	resp, err := s.client.Query(ctx, index.QueryRequest{
		Vector:          make([]float32, s.dimension),
		TopK:            cap,
		Filter:          filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("approximate scan: %w", err)
	}
	return resp.Matches, nil
}

// ResolveCap picks a scan cap from the index's reported cardinality: the
// larger of floor and the current total, clamped to the store's query limit.
func ResolveCap(ctx context.Context, client index.Client, floor int) (int, error) {
	stats, err := client.DescribeIndexStats(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve scan cap: %w", err)
	}
	cap := floor
	if int(stats.TotalVectorCount) > cap {
		cap = int(stats.TotalVectorCount)
	}
	if cap > index.MaxTopK {
		cap = index.MaxTopK
	}
	return cap, nil
}
