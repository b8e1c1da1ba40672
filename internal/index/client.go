// Package index is the boundary to the remote vector index. The index is a
// black box offering similarity query, fetch, upsert, and delete; there is no
// native full enumeration, no cursor, and no update-by-filter.
package index

import (
	"context"
	"errors"

	"github.com/verdantlabs/curator/internal/record"
)

// MaxTopK is the largest top_k the store accepts in one query.
const MaxTopK = 10000

// MaxDeleteBatch is the largest id batch the store accepts in one delete call.
const MaxDeleteBatch = 100

var (
	// ErrBatchTooLarge is returned when a delete call exceeds MaxDeleteBatch ids.
	ErrBatchTooLarge = errors.New("delete batch exceeds store limit")
	// ErrUnauthorized is returned when the store rejects the API key.
	ErrUnauthorized = errors.New("store rejected credentials")
)

// Filter is a metadata predicate forwarded verbatim to the store.
type Filter map[string]any

// Eq builds an equality filter on a single metadata key.
func Eq(key string, value any) Filter {
	return Filter{key: value}
}

// In builds an inclusion filter: the key's value must be one of values.
func In(key string, values ...string) Filter {
	anyValues := make([]any, len(values))
	for i, v := range values {
		anyValues[i] = v
	}
	return Filter{key: map[string]any{"$in": anyValues}}
}

// Match is a single similarity query result.
type Match struct {
	ID       string          `json:"id"`
	Score    float64         `json:"score"`
	Metadata record.Metadata `json:"metadata,omitempty"`
}

// QueryRequest describes one similarity query.
type QueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Filter          Filter    `json:"filter,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

// QueryResponse holds the store's matches in store order. The order carries
// no guarantee beyond stable iteration within one response.
type QueryResponse struct {
	Matches []Match `json:"matches"`
}

// IndexStats reports aggregate index statistics.
type IndexStats struct {
	Dimension        int   `json:"dimension"`
	TotalVectorCount int64 `json:"totalVectorCount"`
}

// Client defines the four store operations plus stats. All calls are
// synchronous and respect ctx cancellation.
type Client interface {
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
	Fetch(ctx context.Context, ids []string) (map[string]record.Record, error)
	Upsert(ctx context.Context, records []record.Record) error
	Delete(ctx context.Context, ids []string) error
	DescribeIndexStats(ctx context.Context) (*IndexStats, error)
}
